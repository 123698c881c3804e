package collation

import (
	"golang.org/x/text/language"

	"github.com/openfga/flwor/pkg/evalerr"
)

func parseLanguage(lang string) (language.Tag, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.Und, evalerr.New(evalerr.CodeInvalidSortParameter, "invalid language %q", lang)
	}
	return tag, nil
}
