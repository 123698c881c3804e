package grouping_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/openfga/flwor/internal/mocks"
	"github.com/openfga/flwor/pkg/collation"
	"github.com/openfga/flwor/pkg/compare"
	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/grouping"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
	"github.com/openfga/flwor/pkg/sorting"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func strs(values ...string) []item.Item {
	out := make([]item.Item, len(values))
	for i, v := range values {
		out[i] = item.String(v)
	}
	return out
}

// letters keys each string item by its characters, or by nothing for "".
var letters = expr.NewFunction("letters", func(_ context.Context, _ *expr.DynamicContext, args []item.Sequence) (item.Sequence, error) {
	s := args[0][0].StringValue()
	if s == "boom" {
		return nil, errors.New("cannot key boom")
	}
	var out item.Sequence
	for _, r := range strings.SplitN(s, ":", 2)[0] {
		out = append(out, item.String(string(r)))
	}
	return out, nil
}, expr.ContextItem{})

func keySpec(composite bool) grouping.KeySpec {
	return grouping.KeySpec{
		Key:       letters,
		Comparer:  compare.NewGenericComparer(collation.Codepoint),
		Composite: composite,
	}
}

// failingComparer refuses to key any value.
type failingComparer struct {
	*compare.GenericComparer
}

func (failingComparer) ComparisonKey(a item.Atomic) (compare.Key, error) {
	return compare.Key{}, evalerr.TypeError("no key for %s", a.StringValue())
}

type group struct {
	key     string
	members []string
}

func flatten(t *testing.T, it grouping.GroupIterator) []group {
	t.Helper()
	list, err := grouping.Collect(context.Background(), it)
	require.NoError(t, err)
	out := make([]group, 0, len(list))
	for _, g := range list {
		var key []string
		for _, k := range g.Key {
			key = append(key, k.StringValue())
		}
		var members []string
		for _, m := range g.Members {
			members = append(members, m.StringValue())
		}
		out = append(out, group{key: strings.Join(key, ","), members: members})
	}
	return out
}

func TestGroupBy(t *testing.T) {
	ctx := context.Background()
	dc := expr.NewDynamicContext(0)

	t.Run("first_appearance_order", func(t *testing.T) {
		it, err := grouping.GroupBy(ctx, sequence.FromSlice(strs("a:1", "b:2", "a:3")), keySpec(false), dc)
		require.NoError(t, err)
		require.Equal(t, []group{
			{key: "a", members: []string{"a:1", "a:3"}},
			{key: "b", members: []string{"b:2"}},
		}, flatten(t, it))
	})

	t.Run("multiple_keys_join_multiple_groups", func(t *testing.T) {
		it, err := grouping.GroupBy(ctx, sequence.FromSlice(strs("ab:1", "b:2")), keySpec(false), dc)
		require.NoError(t, err)
		require.Equal(t, []group{
			{key: "a", members: []string{"ab:1"}},
			{key: "b", members: []string{"ab:1", "b:2"}},
		}, flatten(t, it))
	})

	t.Run("repeated_key_value_adds_item_once", func(t *testing.T) {
		it, err := grouping.GroupBy(ctx, sequence.FromSlice(strs("a:1", "aba:2")), keySpec(false), dc)
		require.NoError(t, err)
		require.Equal(t, []group{
			{key: "a", members: []string{"a:1", "aba:2"}},
			{key: "b", members: []string{"aba:2"}},
		}, flatten(t, it))
	})

	t.Run("empty_key_joins_no_group", func(t *testing.T) {
		it, err := grouping.GroupBy(ctx, sequence.FromSlice(strs(":1", "a:2")), keySpec(false), dc)
		require.NoError(t, err)
		require.Equal(t, []group{{key: "a", members: []string{"a:2"}}}, flatten(t, it))
	})

	t.Run("composite_keys", func(t *testing.T) {
		it, err := grouping.GroupBy(ctx, sequence.FromSlice(strs("ab:1", "ba:2", "ab:3", ":4")), keySpec(true), dc)
		require.NoError(t, err)
		require.Equal(t, []group{
			{key: "a,b", members: []string{"ab:1", "ab:3"}},
			{key: "b,a", members: []string{"ba:2"}},
			{key: "", members: []string{":4"}},
		}, flatten(t, it))
	})

	t.Run("case_insensitive_collation_merges_keys", func(t *testing.T) {
		s := keySpec(false)
		s.Comparer = compare.NewGenericComparer(collation.HTMLASCIICaseInsensitive)
		it, err := grouping.GroupBy(ctx, sequence.FromSlice(strs("a:1", "A:2")), s, dc)
		require.NoError(t, err)
		require.Equal(t, []group{{key: "a", members: []string{"a:1", "A:2"}}}, flatten(t, it))
	})

	t.Run("numeric_keys_compare_by_value", func(t *testing.T) {
		s := grouping.KeySpec{Key: expr.ContextItem{}, Comparer: compare.NewGenericComparer(nil)}
		population := sequence.FromSlice([]item.Item{item.Integer(1), item.Double(1), item.Integer(2)})
		it, err := grouping.GroupBy(ctx, population, s, dc)
		require.NoError(t, err)
		list, err := grouping.Collect(ctx, it)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Len(t, list[0].Members, 2)
	})

	t.Run("key_error_aborts", func(t *testing.T) {
		_, err := grouping.GroupBy(ctx, sequence.FromSlice(strs("a:1", "boom")), keySpec(false), dc)
		require.ErrorContains(t, err, "cannot key boom")

		var derr *evalerr.DynamicError
		require.ErrorAs(t, err, &derr)
		require.Equal(t, "group by", derr.Clause)
		require.Equal(t, "letters(.)", derr.Expression)
	})

	t.Run("large_integer_keys_stay_distinct", func(t *testing.T) {
		s := grouping.KeySpec{Key: expr.ContextItem{}, Comparer: compare.NewGenericComparer(nil)}
		population := sequence.FromSlice([]item.Item{
			item.Integer(9007199254740992),
			item.Integer(9007199254740993),
			item.Integer(9007199254740992),
		})
		it, err := grouping.GroupBy(ctx, population, s, dc)
		require.NoError(t, err)
		list, err := grouping.Collect(ctx, it)
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Len(t, list[0].Members, 2)
		require.Equal(t, item.Integer(9007199254740993), list[1].Key[0])
	})

	t.Run("comparison_key_error_names_clause", func(t *testing.T) {
		for _, composite := range []bool{false, true} {
			s := keySpec(composite)
			s.Comparer = failingComparer{compare.NewGenericComparer(nil)}
			_, err := grouping.GroupBy(ctx, sequence.FromSlice(strs("a:1")), s, dc)
			require.ErrorIs(t, err, evalerr.ErrTypeError)

			var derr *evalerr.DynamicError
			require.ErrorAs(t, err, &derr)
			require.Equal(t, "group by", derr.Clause)
			require.Equal(t, "letters(.)", derr.Expression)
		}

		s := keySpec(true)
		s.Comparer = failingComparer{compare.NewGenericComparer(nil)}
		_, err := grouping.GroupAdjacent(ctx, sequence.FromSlice(strs("a:1")), s, dc)
		var derr *evalerr.DynamicError
		require.ErrorAs(t, err, &derr)
		require.Equal(t, "group adjacent", derr.Clause)
	})

	t.Run("population_error_aborts", func(t *testing.T) {
		population := mocks.NewErrorIterator(strs("a:1", "b:2"), 1, nil)
		_, err := grouping.GroupBy(ctx, population, keySpec(false), dc)
		require.ErrorIs(t, err, mocks.ErrSimulated)
		require.Equal(t, 1, population.Stopped())
	})

	t.Run("records_population_size", func(t *testing.T) {
		_, err := grouping.GroupBy(ctx, sequence.FromSlice(strs("a:1")), keySpec(false), dc)
		require.NoError(t, err)
		n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "flwor_grouping_population_size")
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 1)
	})
}

func TestGroupIterator(t *testing.T) {
	ctx := context.Background()
	dc := expr.NewDynamicContext(0)

	it, err := grouping.GroupBy(ctx, sequence.FromSlice(strs("a:1", "b:2", "a:3")), keySpec(false), dc)
	require.NoError(t, err)

	require.Nil(t, it.CurrentGroupingKey())
	require.Equal(t, 0, it.Position())
	empty, err := sequence.Collect(ctx, it.IterateCurrentGroup())
	require.NoError(t, err)
	require.Empty(t, empty)

	leading, err := it.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, item.String("a:1"), leading)
	require.Equal(t, 1, it.Position())
	require.Equal(t, []item.Atomic{item.String("a")}, it.CurrentGroupingKey())

	// each call yields an independent iterator over the whole group
	first := it.IterateCurrentGroup()
	v, err := first.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, item.String("a:1"), v)
	members, err := sequence.Collect(ctx, it.IterateCurrentGroup())
	require.NoError(t, err)
	require.Equal(t, strs("a:1", "a:3"), members)
	first.Stop()

	another, err := it.Another()
	require.NoError(t, err)
	require.Equal(t, 0, another.Position())

	_, err = it.Next(ctx)
	require.NoError(t, err)
	_, err = it.Next(ctx)
	require.ErrorIs(t, err, sequence.ErrIteratorDone)
	require.Equal(t, -1, it.Position())

	n, err := sequence.Count(ctx, another)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestGroupAdjacent(t *testing.T) {
	ctx := context.Background()
	dc := expr.NewDynamicContext(0)

	t.Run("runs_of_equal_keys", func(t *testing.T) {
		it, err := grouping.GroupAdjacent(ctx, sequence.FromSlice(strs("a:1", "a:2", "b:3", "a:4")), keySpec(false), dc)
		require.NoError(t, err)
		require.Equal(t, []group{
			{key: "a", members: []string{"a:1", "a:2"}},
			{key: "b", members: []string{"b:3"}},
			{key: "a", members: []string{"a:4"}},
		}, flatten(t, it))
	})

	t.Run("composite_runs", func(t *testing.T) {
		it, err := grouping.GroupAdjacent(ctx, sequence.FromSlice(strs("ab:1", "ab:2", "a:3")), keySpec(true), dc)
		require.NoError(t, err)
		require.Len(t, flatten(t, it), 2)
	})

	t.Run("single_key_cardinality", func(t *testing.T) {
		for _, population := range [][]item.Item{strs("ab:1"), strs(":1")} {
			_, err := grouping.GroupAdjacent(ctx, sequence.FromSlice(population), keySpec(false), dc)
			require.Equal(t, evalerr.CodeGroupingKeyCardinality, evalerr.CodeOf(err))
		}
	})

	t.Run("empty_population", func(t *testing.T) {
		it, err := grouping.GroupAdjacent(ctx, sequence.Empty[item.Item](), keySpec(false), dc)
		require.NoError(t, err)
		require.Empty(t, flatten(t, it))
	})
}

func TestBoundaryGrouping(t *testing.T) {
	ctx := context.Background()
	dc := expr.NewDynamicContext(0)
	isHeading := grouping.PatternFunc(func(_ context.Context, it item.Item, _ *expr.DynamicContext) (bool, error) {
		return strings.HasPrefix(it.StringValue(), "h"), nil
	})

	t.Run("starting_with", func(t *testing.T) {
		it, err := grouping.GroupStartingWith(ctx, sequence.FromSlice(strs("p0", "h1", "p1", "p2", "h2", "h3", "p3")), isHeading, dc)
		require.NoError(t, err)
		require.Equal(t, []group{
			{members: []string{"p0"}},
			{members: []string{"h1", "p1", "p2"}},
			{members: []string{"h2"}},
			{members: []string{"h3", "p3"}},
		}, flatten(t, it))
	})

	t.Run("ending_with", func(t *testing.T) {
		it, err := grouping.GroupEndingWith(ctx, sequence.FromSlice(strs("p1", "h1", "h2", "p2")), isHeading, dc)
		require.NoError(t, err)
		require.Equal(t, []group{
			{members: []string{"p1", "h1"}},
			{members: []string{"h2"}},
			{members: []string{"p2"}},
		}, flatten(t, it))
	})

	t.Run("no_keys", func(t *testing.T) {
		it, err := grouping.GroupStartingWith(ctx, sequence.FromSlice(strs("h1")), isHeading, dc)
		require.NoError(t, err)
		_, err = it.Next(ctx)
		require.NoError(t, err)
		require.Nil(t, it.CurrentGroupingKey())
	})

	t.Run("expression_pattern", func(t *testing.T) {
		pattern := grouping.ExpressionPattern{Expression: expr.NewValueComparison(expr.ContextItem{}, expr.OpEq, expr.NewLiteral(item.String("x")))}
		it, err := grouping.GroupEndingWith(ctx, sequence.FromSlice(strs("a", "x", "b")), pattern, dc)
		require.NoError(t, err)
		require.Len(t, flatten(t, it), 2)
	})

	t.Run("pattern_error_aborts", func(t *testing.T) {
		failing := grouping.PatternFunc(func(context.Context, item.Item, *expr.DynamicContext) (bool, error) {
			return false, errors.New("pattern failed")
		})
		_, err := grouping.GroupStartingWith(ctx, sequence.FromSlice(strs("a")), failing, dc)
		require.EqualError(t, err, "pattern failed")
	})
}

func TestSortGroups(t *testing.T) {
	ctx := context.Background()
	dc := expr.NewDynamicContext(0)

	it, err := grouping.GroupBy(ctx, sequence.FromSlice(strs("c:1", "a:2", "b:3", "a:4")), keySpec(false), dc)
	require.NoError(t, err)

	sorted, err := grouping.SortGroups(ctx, it, sorting.NewChain(sorting.Descending(expr.ContextItem{})), dc)
	require.NoError(t, err)
	require.Equal(t, []group{
		{key: "c", members: []string{"c:1"}},
		{key: "b", members: []string{"b:3"}},
		{key: "a", members: []string{"a:2", "a:4"}},
	}, flatten(t, sorted))
}

func TestIndex(t *testing.T) {
	c := compare.NewGenericComparer(nil)
	key := func(values ...item.Atomic) []compare.Key {
		out := make([]compare.Key, len(values))
		for i, v := range values {
			k, err := c.ComparisonKey(v)
			require.NoError(t, err)
			out[i] = k
		}
		return out
	}

	x := grouping.NewIndex()
	require.Equal(t, 0, x.Insert(key(item.String("ab"))))
	require.Equal(t, 1, x.Insert(key(item.String("a"), item.String("b"))))
	require.Equal(t, 2, x.Insert(key()))

	ordinal, ok := x.Lookup(key(item.String("a"), item.String("b")))
	require.True(t, ok)
	require.Equal(t, 1, ordinal)

	ordinal, ok = x.Lookup(key())
	require.True(t, ok)
	require.Equal(t, 2, ordinal)

	_, ok = x.Lookup(key(item.String("b")))
	require.False(t, ok)
	require.Equal(t, 3, x.Len())
}
