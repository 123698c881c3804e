package collation

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/openfga/flwor/pkg/evalerr"
)

// Strength selects which differences between strings are significant.
type Strength int

const (
	// StrengthTertiary distinguishes base letters, accents and case. It is
	// the default.
	StrengthTertiary Strength = iota
	// StrengthPrimary distinguishes base letters only.
	StrengthPrimary
	// StrengthSecondary distinguishes base letters and accents.
	StrengthSecondary
	// StrengthIdentical additionally breaks ties by codepoint.
	StrengthIdentical
)

// CaseFirst selects the relative order of strings differing only in case.
type CaseFirst int

const (
	CaseFirstOff CaseFirst = iota
	CaseFirstUpper
	CaseFirstLower
)

// UCAParams are the parameters of a UCA collation.
type UCAParams struct {
	Lang      language.Tag
	Strength  Strength
	CaseFirst CaseFirst
	Numeric   bool
}

// URI renders the params as a UCA collation URI. Parsing the result with
// ParseUCA yields an equivalent collation.
func (p UCAParams) URI() string {
	var parts []string
	if p.Lang != language.Und {
		parts = append(parts, "lang="+p.Lang.String())
	}
	switch p.Strength {
	case StrengthPrimary:
		parts = append(parts, "strength=primary")
	case StrengthSecondary:
		parts = append(parts, "strength=secondary")
	case StrengthIdentical:
		parts = append(parts, "strength=identical")
	}
	switch p.CaseFirst {
	case CaseFirstUpper:
		parts = append(parts, "caseFirst=upper")
	case CaseFirstLower:
		parts = append(parts, "caseFirst=lower")
	}
	if p.Numeric {
		parts = append(parts, "numeric=yes")
	}
	if len(parts) == 0 {
		return UCABaseURI
	}
	return UCABaseURI + "?" + strings.Join(parts, ";")
}

// UCA is a collation implementing the Unicode Collation Algorithm with
// locale tailoring from golang.org/x/text/collate.
type UCA struct {
	uri    string
	params UCAParams

	// x/text collators keep internal buffers and must not be shared
	// across goroutines.
	mu sync.Mutex
	// primary orders strings; when a case order is requested it ignores case.
	primary *collate.Collator
	// tiebreak orders strings that primary finds equal by case. It is nil
	// unless a case order is requested.
	tiebreak *collate.Collator
	buf      collate.Buffer
}

var _ Collation = (*UCA)(nil)

// NewUCA builds a UCA collation from params.
func NewUCA(params UCAParams) *UCA {
	var opts []collate.Option
	switch params.Strength {
	case StrengthPrimary:
		opts = append(opts, collate.IgnoreCase, collate.IgnoreDiacritics, collate.IgnoreWidth)
	case StrengthSecondary:
		opts = append(opts, collate.IgnoreCase, collate.IgnoreWidth)
	}
	if params.Numeric {
		opts = append(opts, collate.Numeric)
	}

	u := &UCA{uri: params.URI(), params: params}
	caseSignificant := params.Strength == StrengthTertiary || params.Strength == StrengthIdentical
	if params.CaseFirst != CaseFirstOff && caseSignificant {
		u.primary = collate.New(params.Lang, append(opts, collate.IgnoreCase)...)
		u.tiebreak = collate.New(params.Lang, opts...)
	} else {
		u.primary = collate.New(params.Lang, opts...)
	}
	return u
}

// ParseUCA parses a UCA collation URI of the form
// UCABaseURI?lang=en;strength=primary;caseFirst=upper;numeric=yes.
//
// Unknown parameters and unsupported values are ignored unless the URI
// carries fallback=no, in which case they are reported as FOCH0002.
func ParseUCA(uri string) (*UCA, error) {
	base, query, _ := strings.Cut(uri, "?")
	if base != UCABaseURI {
		return nil, evalerr.New(evalerr.CodeUnknownCollation, "unknown collation %q", uri)
	}

	values := map[string]string{}
	for _, kv := range strings.FieldsFunc(query, func(r rune) bool { return r == ';' || r == '&' }) {
		k, v, _ := strings.Cut(kv, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if uv, err := url.QueryUnescape(v); err == nil {
			v = uv
		}
		values[k] = v
	}

	fallback := values["fallback"] != "no"
	var problems []string
	var params UCAParams

	for k, v := range values {
		switch k {
		case "fallback":
		case "lang":
			tag, err := language.Parse(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("lang=%s", v))
				continue
			}
			params.Lang = tag
		case "strength":
			switch v {
			case "primary", "1":
				params.Strength = StrengthPrimary
			case "secondary", "2":
				params.Strength = StrengthSecondary
			case "tertiary", "3", "quaternary", "4":
				params.Strength = StrengthTertiary
			case "identical", "5":
				params.Strength = StrengthIdentical
			default:
				problems = append(problems, "strength="+v)
			}
		case "caseFirst":
			switch v {
			case "upper":
				params.CaseFirst = CaseFirstUpper
			case "lower":
				params.CaseFirst = CaseFirstLower
			case "off":
			default:
				problems = append(problems, "caseFirst="+v)
			}
		case "numeric":
			switch v {
			case "yes":
				params.Numeric = true
			case "no":
			default:
				problems = append(problems, "numeric="+v)
			}
		default:
			problems = append(problems, k)
		}
	}

	if len(problems) > 0 && !fallback {
		return nil, evalerr.New(evalerr.CodeUnknownCollation,
			"unsupported collation parameters %s in %q", strings.Join(problems, ", "), uri)
	}

	u := NewUCA(params)
	u.uri = uri
	return u, nil
}

// URI returns the URI the collation was created from.
func (u *UCA) URI() string { return u.uri }

// Params returns the effective parameters.
func (u *UCA) Params() UCAParams { return u.params }

func (u *UCA) CompareStrings(a, b string) int {
	u.mu.Lock()
	defer u.mu.Unlock()

	c := u.primary.CompareString(a, b)
	if c == 0 && u.tiebreak != nil {
		c = u.tiebreak.CompareString(a, b)
		// CLDR orders lower case first at the tertiary level
		if u.params.CaseFirst == CaseFirstUpper {
			c = -c
		}
	}
	if c == 0 && u.params.Strength == StrengthIdentical {
		c = strings.Compare(a, b)
	}
	return c
}

func (u *UCA) Equal(a, b string) bool {
	return u.CompareStrings(a, b) == 0
}

func (u *UCA) Key(s string) string {
	u.mu.Lock()
	defer u.mu.Unlock()

	c := u.primary
	if u.tiebreak != nil {
		c = u.tiebreak
	}
	u.buf.Reset()
	key := string(c.KeyFromString(&u.buf, s))
	if u.params.Strength == StrengthIdentical {
		key += "\x00" + s
	}
	return key
}
