package collation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/openfga/flwor/pkg/evalerr"
)

func TestCodepoint(t *testing.T) {
	require.Negative(t, Codepoint.CompareStrings("B", "a"))
	require.Positive(t, Codepoint.CompareStrings("é", "z"))
	require.Zero(t, Codepoint.CompareStrings("x", "x"))
	require.False(t, Codepoint.Equal("a", "A"))
	require.Equal(t, "abc", Codepoint.Key("abc"))
}

func TestHTMLASCIICaseInsensitive(t *testing.T) {
	c := HTMLASCIICaseInsensitive

	tests := []struct {
		name  string
		a, b  string
		order int
	}{
		{name: "equal_ignoring_ascii_case", a: "Hello", b: "hELLO", order: 0},
		{name: "folded_before_comparison", a: "a", b: "B", order: -1},
		{name: "prefix_sorts_first", a: "abc", b: "ABCD", order: -1},
		{name: "non_ascii_not_folded", a: "É", b: "é", order: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.CompareStrings(tt.a, tt.b)
			switch {
			case tt.order < 0:
				require.Negative(t, got)
				require.Positive(t, c.CompareStrings(tt.b, tt.a))
			case tt.order > 0:
				require.Positive(t, got)
			default:
				require.Zero(t, got)
			}
			require.Equal(t, tt.order == 0, c.Equal(tt.a, tt.b))
			require.Equal(t, tt.order == 0, c.Key(tt.a) == c.Key(tt.b))
		})
	}
}

func TestUCA(t *testing.T) {
	t.Run("default_orders_letters_alphabetically", func(t *testing.T) {
		u := NewUCA(UCAParams{Lang: language.English})
		require.Negative(t, u.CompareStrings("a", "B"))
		require.Negative(t, u.CompareStrings("a", "A"))
		require.False(t, u.Equal("a", "A"))
	})

	t.Run("primary_strength_ignores_case_and_accents", func(t *testing.T) {
		u := NewUCA(UCAParams{Lang: language.English, Strength: StrengthPrimary})
		require.True(t, u.Equal("resume", "Résumé"))
		require.Equal(t, u.Key("resume"), u.Key("RÉSUMÉ"))
		require.NotEqual(t, u.Key("resume"), u.Key("resumes"))
	})

	t.Run("upper_first", func(t *testing.T) {
		u := NewUCA(UCAParams{Lang: language.English, CaseFirst: CaseFirstUpper})
		require.Negative(t, u.CompareStrings("A", "a"))
		require.Negative(t, u.CompareStrings("a", "B"))
		require.NotEqual(t, u.Key("a"), u.Key("A"))
	})

	t.Run("lower_first", func(t *testing.T) {
		u := NewUCA(UCAParams{Lang: language.English, CaseFirst: CaseFirstLower})
		require.Negative(t, u.CompareStrings("a", "A"))
	})

	t.Run("numeric", func(t *testing.T) {
		u := NewUCA(UCAParams{Numeric: true})
		require.Negative(t, u.CompareStrings("file2", "file10"))

		plain := NewUCA(UCAParams{})
		require.Positive(t, plain.CompareStrings("file2", "file10"))
	})

	t.Run("identical_breaks_ties_by_codepoint", func(t *testing.T) {
		u := NewUCA(UCAParams{Strength: StrengthIdentical})
		require.False(t, u.Equal("a", "A"))
		require.True(t, u.Equal("x", "x"))
	})

	t.Run("safe_for_concurrent_use", func(t *testing.T) {
		u := NewUCA(UCAParams{Lang: language.German})
		results := make([]int, 8)
		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					results[i] += u.CompareStrings("apfel", "birne")
					_ = u.Key("straße")
				}
			}()
		}
		wg.Wait()
		for _, r := range results {
			require.Equal(t, -100, r)
		}
	})
}

func TestParseUCA(t *testing.T) {
	t.Run("parameters", func(t *testing.T) {
		u, err := ParseUCA(UCABaseURI + "?lang=sv;strength=secondary;caseFirst=upper;numeric=yes")
		require.NoError(t, err)
		p := u.Params()
		require.Equal(t, language.Swedish, p.Lang)
		require.Equal(t, StrengthSecondary, p.Strength)
		require.Equal(t, CaseFirstUpper, p.CaseFirst)
		require.True(t, p.Numeric)
	})

	t.Run("round_trips_through_uri", func(t *testing.T) {
		p := UCAParams{Lang: language.French, Strength: StrengthPrimary, Numeric: true}
		u, err := ParseUCA(p.URI())
		require.NoError(t, err)
		require.Equal(t, p, u.Params())
	})

	t.Run("unknown_parameters_ignored_with_fallback", func(t *testing.T) {
		u, err := ParseUCA(UCABaseURI + "?reorder=latn;strength=primary")
		require.NoError(t, err)
		require.Equal(t, StrengthPrimary, u.Params().Strength)
	})

	t.Run("unknown_parameters_rejected_without_fallback", func(t *testing.T) {
		_, err := ParseUCA(UCABaseURI + "?reorder=latn;fallback=no")
		require.Error(t, err)
		require.Equal(t, evalerr.CodeUnknownCollation, evalerr.CodeOf(err))
	})

	t.Run("foreign_base_uri", func(t *testing.T) {
		_, err := ParseUCA("http://example.com/collation")
		require.Equal(t, evalerr.CodeUnknownCollation, evalerr.CodeOf(err))
	})
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	t.Cleanup(r.Close)

	t.Run("builtin_collations", func(t *testing.T) {
		c, err := r.Resolve(CodepointURI)
		require.NoError(t, err)
		require.Equal(t, Codepoint, c)

		c, err = r.Resolve(HTMLASCIICaseInsensitiveURI)
		require.NoError(t, err)
		require.Equal(t, HTMLASCIICaseInsensitive, c)

		c, err = r.Default()
		require.NoError(t, err)
		require.Equal(t, Codepoint, c)
	})

	t.Run("uca_resolved_once", func(t *testing.T) {
		uri := UCABaseURI + "?lang=en;strength=primary"
		first, err := r.Resolve(uri)
		require.NoError(t, err)
		require.Equal(t, uri, first.URI())
		require.True(t, first.Equal("A", "a"))

		second, err := r.Resolve(uri)
		require.NoError(t, err)
		require.Equal(t, first.URI(), second.URI())
		require.True(t, second.Equal("B", "b"))
	})

	t.Run("unknown_uri", func(t *testing.T) {
		_, err := r.Resolve("http://example.com/no-such-collation")
		require.ErrorIs(t, err, evalerr.ErrDynamic)
		require.Equal(t, evalerr.CodeUnknownCollation, evalerr.CodeOf(err))
	})

	t.Run("for_language", func(t *testing.T) {
		c, err := r.ForLanguage("en", "upper-first")
		require.NoError(t, err)
		require.Negative(t, c.CompareStrings("A", "a"))

		_, err = r.ForLanguage("en", "sideways")
		require.Equal(t, evalerr.CodeInvalidSortParameter, evalerr.CodeOf(err))

		_, err = r.ForLanguage("not a language!", "")
		require.Equal(t, evalerr.CodeInvalidSortParameter, evalerr.CodeOf(err))
	})

	t.Run("custom_default", func(t *testing.T) {
		custom, err := NewRegistry(WithDefault(HTMLASCIICaseInsensitiveURI), WithCacheSize(4))
		require.NoError(t, err)
		defer custom.Close()

		c, err := custom.Default()
		require.NoError(t, err)
		require.True(t, c.Equal("ABC", "abc"))
	})
}
