package compare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openfga/flwor/pkg/collation"
	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/item"
)

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func TestGenericComparer(t *testing.T) {
	g := NewGenericComparer(nil)
	nan := item.Double(math.NaN())

	tests := []struct {
		name     string
		a, b     item.Atomic
		expected int
	}{
		{name: "strings_by_codepoint", a: item.String("B"), b: item.String("a"), expected: -1},
		{name: "untyped_compares_as_string", a: item.UntypedAtomic("x"), b: item.String("x"), expected: 0},
		{name: "integers", a: item.Integer(10), b: item.Integer(9), expected: 1},
		{name: "integer_and_double", a: item.Integer(2), b: item.Double(2.5), expected: -1},
		{name: "integer_equals_double", a: item.Integer(3), b: item.Double(3), expected: 0},
		{name: "booleans", a: item.Boolean(false), b: item.Boolean(true), expected: -1},
		{name: "nan_before_numbers", a: nan, b: item.Double(math.Inf(-1)), expected: -1},
		{name: "nan_equals_nan", a: nan, b: nan, expected: 0},
		{name: "empty_first", a: item.Absent, b: nan, expected: -1},
		{name: "empty_equals_empty", a: item.Absent, b: item.Absent, expected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Compare(tt.a, tt.b)
			require.NoError(t, err)
			require.Equal(t, tt.expected, sign(got))

			reversed, err := g.Compare(tt.b, tt.a)
			require.NoError(t, err)
			require.Equal(t, -tt.expected, sign(reversed))

			eq, err := Equal(g, tt.a, tt.b)
			require.NoError(t, err)
			require.Equal(t, tt.expected == 0, eq)
		})
	}

	t.Run("incomparable_types", func(t *testing.T) {
		_, err := g.Compare(item.String("1"), item.Integer(1))
		require.True(t, evalerr.IsTypeError(err))

		_, err = g.Compare(item.Boolean(true), item.Double(1))
		require.ErrorIs(t, err, evalerr.ErrTypeError)
	})

	t.Run("keys_follow_collation", func(t *testing.T) {
		ci := NewGenericComparer(collation.HTMLASCIICaseInsensitive)
		k1, err := ci.ComparisonKey(item.String("Alpha"))
		require.NoError(t, err)
		k2, err := ci.ComparisonKey(item.UntypedAtomic("ALPHA"))
		require.NoError(t, err)
		require.Equal(t, k1, k2)
		require.Equal(t, k1.Bytes(), k2.Bytes())

		k3, err := ci.ComparisonKey(item.Integer(1))
		require.NoError(t, err)
		require.NotEqual(t, k1, k3)
	})

	t.Run("negative_zero_key", func(t *testing.T) {
		k1, err := g.ComparisonKey(item.Double(math.Copysign(0, -1)))
		require.NoError(t, err)
		k2, err := g.ComparisonKey(item.Integer(0))
		require.NoError(t, err)
		require.True(t, k1 == k2)
		require.Equal(t, k1.Bytes(), k2.Bytes())
	})

	t.Run("large_integer_keys_are_exact", func(t *testing.T) {
		k1, err := g.ComparisonKey(item.Integer(9007199254740992))
		require.NoError(t, err)
		k2, err := g.ComparisonKey(item.Integer(9007199254740993))
		require.NoError(t, err)
		require.False(t, k1 == k2)
		require.NotEqual(t, k1.Bytes(), k2.Bytes())

		eq, err := Equal(g, item.Integer(9007199254740992), item.Integer(9007199254740993))
		require.NoError(t, err)
		require.False(t, eq)

		k3, err := g.ComparisonKey(item.Integer(math.MaxInt64))
		require.NoError(t, err)
		k4, err := g.ComparisonKey(item.Integer(math.MaxInt64 - 1))
		require.NoError(t, err)
		require.False(t, k3 == k4)
		require.Equal(t, "n:9223372036854775807", k3.String())
	})

	t.Run("integer_key_equals_double_key", func(t *testing.T) {
		k1, err := g.ComparisonKey(item.Integer(3))
		require.NoError(t, err)
		k2, err := g.ComparisonKey(item.Double(3))
		require.NoError(t, err)
		require.True(t, k1 == k2)

		k3, err := g.ComparisonKey(item.Integer(9007199254740992))
		require.NoError(t, err)
		k4, err := g.ComparisonKey(item.Double(9007199254740992))
		require.NoError(t, err)
		require.True(t, k3 == k4)
	})
}

func TestDecorators(t *testing.T) {
	base := NewGenericComparer(nil)

	t.Run("descending", func(t *testing.T) {
		d := Descending(base)
		c, err := d.Compare(item.Integer(1), item.Integer(2))
		require.NoError(t, err)
		require.Positive(t, c)

		// empty stays least in ascending terms, so it comes last
		c, err = d.Compare(item.Absent, item.Integer(2))
		require.NoError(t, err)
		require.Positive(t, c)

		require.Equal(t, AtomicComparer(base), Descending(d))
	})

	t.Run("empty_greatest", func(t *testing.T) {
		e := EmptyGreatest(base)
		c, err := e.Compare(item.Absent, item.String("z"))
		require.NoError(t, err)
		require.Positive(t, c)

		c, err = e.Compare(item.String("a"), item.String("z"))
		require.NoError(t, err)
		require.Negative(t, c)

		c, err = Descending(e).Compare(item.Absent, item.String("z"))
		require.NoError(t, err)
		require.Negative(t, c)
	})

	t.Run("descending_propagates_type_errors", func(t *testing.T) {
		_, err := Descending(base).Compare(item.String("a"), item.Integer(1))
		require.True(t, evalerr.IsTypeError(err))
	})

	t.Run("numeric", func(t *testing.T) {
		n := NumericComparer{}
		c, err := n.Compare(item.String("10"), item.String("9"))
		require.NoError(t, err)
		require.Positive(t, c)

		c, err = n.Compare(item.String("not a number"), item.Integer(-5))
		require.NoError(t, err)
		require.Negative(t, c)

		c, err = NumericComparer{NaNGreatest: true}.Compare(item.String("x"), item.Integer(5))
		require.NoError(t, err)
		require.Positive(t, c)

		eq, err := Equal(n, item.String(" 1 "), item.Double(1))
		require.NoError(t, err)
		require.True(t, eq)
	})

	t.Run("text", func(t *testing.T) {
		tc := TextComparer{}
		c, err := tc.Compare(item.Integer(10), item.Integer(9))
		require.NoError(t, err)
		require.Negative(t, c)

		eq, err := Equal(TextComparer{Collation: collation.HTMLASCIICaseInsensitive}, item.Boolean(true), item.String("TRUE"))
		require.NoError(t, err)
		require.True(t, eq)
	})
}
