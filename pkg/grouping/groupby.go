package grouping

import (
	"context"
	"slices"

	"github.com/openfga/flwor/pkg/compare"
	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

// KeySpec describes how population items are keyed: Key is evaluated with
// each item as the context item and atomized, and the resulting values are
// compared with Comparer.
type KeySpec struct {
	Key      expr.Expression
	Comparer compare.AtomicComparer

	// Composite treats all values produced for one item as a single
	// composite key. Otherwise each value is a key of its own.
	Composite bool
}

func (k KeySpec) evaluate(ctx context.Context, dc *expr.DynamicContext, it item.Item, position int) ([]item.Atomic, error) {
	seq, err := expr.Evaluate(ctx, k.Key, dc.Focus(it, position))
	if err != nil {
		return nil, err
	}
	return item.Atomize(seq)
}

func (k KeySpec) comparisonKeys(values []item.Atomic) ([]compare.Key, error) {
	keys := make([]compare.Key, len(values))
	for i, v := range values {
		key, err := k.Comparer.ComparisonKey(v)
		if err != nil {
			return nil, err
		}
		keys[i] = key
	}
	return keys, nil
}

// GroupBy groups the population by equal keys. Groups are ordered by the
// first appearance of their key.
//
// In single-key mode an item whose key evaluates to several values joins one
// group per distinct value, and an item with an empty key joins no group. In
// composite mode the whole value list is one key.
func GroupBy(ctx context.Context, population sequence.Iterator[item.Item], spec KeySpec, dc *expr.DynamicContext) (GroupIterator, error) {
	defer population.Stop()

	index := NewIndex()
	var (
		list []Group
		// last holds the population position of the latest member of each group
		last []int
	)
	n := 0
	for {
		it, err := population.Next(ctx)
		if err != nil {
			if sequence.IsDone(err) {
				break
			}
			return nil, err
		}
		n++

		values, err := spec.evaluate(ctx, dc, it, n)
		if err != nil {
			return nil, evalerr.Wrap(err, "group by", spec.Key.String())
		}

		if spec.Composite {
			keys, err := spec.comparisonKeys(values)
			if err != nil {
				return nil, evalerr.Wrap(err, "group by", spec.Key.String())
			}
			if ordinal, ok := index.Lookup(keys); ok {
				list[ordinal].Members = append(list[ordinal].Members, it)
				continue
			}
			index.Insert(keys)
			list = append(list, Group{Key: values, Members: []item.Item{it}})
			last = append(last, n)
			continue
		}

		for i, v := range values {
			key, err := spec.Comparer.ComparisonKey(v)
			if err != nil {
				return nil, evalerr.Wrap(err, "group by", spec.Key.String())
			}
			keys := []compare.Key{key}
			ordinal, ok := index.Lookup(keys)
			if !ok {
				index.Insert(keys)
				list = append(list, Group{Key: []item.Atomic{v}, Members: []item.Item{it}})
				last = append(last, n)
				continue
			}
			if i > 0 && last[ordinal] == n {
				continue
			}
			list[ordinal].Members = append(list[ordinal].Members, it)
			last[ordinal] = n
		}
	}

	populationSizeHistogram.WithLabelValues(algorithmGroupBy).Observe(float64(n))
	return newGroups(list), nil
}

// GroupAdjacent groups runs of consecutive items with equal keys. Each item
// must produce exactly one key value unless spec is composite; otherwise
// grouping fails with XTTE1100.
func GroupAdjacent(ctx context.Context, population sequence.Iterator[item.Item], spec KeySpec, dc *expr.DynamicContext) (GroupIterator, error) {
	defer population.Stop()

	var (
		list     []Group
		previous []compare.Key
	)
	n := 0
	for {
		it, err := population.Next(ctx)
		if err != nil {
			if sequence.IsDone(err) {
				break
			}
			return nil, err
		}
		n++

		values, err := spec.evaluate(ctx, dc, it, n)
		if err != nil {
			return nil, evalerr.Wrap(err, "group adjacent", spec.Key.String())
		}
		if !spec.Composite && len(values) != 1 {
			return nil, evalerr.New(evalerr.CodeGroupingKeyCardinality,
				"grouping key of item %d must be a single value, found %d values", n, len(values))
		}

		keys, err := spec.comparisonKeys(values)
		if err != nil {
			return nil, evalerr.Wrap(err, "group adjacent", spec.Key.String())
		}
		if len(list) > 0 && slices.Equal(previous, keys) {
			last := &list[len(list)-1]
			last.Members = append(last.Members, it)
			continue
		}
		list = append(list, Group{Key: values, Members: []item.Item{it}})
		previous = keys
	}

	populationSizeHistogram.WithLabelValues(algorithmGroupAdjacent).Observe(float64(n))
	return newGroups(list), nil
}
