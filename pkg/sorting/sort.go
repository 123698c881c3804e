package sorting

import (
	"cmp"
	"context"
	"slices"

	"github.com/openfga/flwor/pkg/compare"
	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

// Record is a value waiting to be sorted, with its evaluated sort keys and
// its position in the input.
type Record[T any] struct {
	Value    T
	Keys     []item.Atomic
	Position int
}

// Sort orders records by their keys under cmps, most significant key first.
// Records with equal keys keep their input order.
//
// A comparison failure aborts the sort. Type errors are reported as XPTY0004
// attributed to clause; other failures are wrapped with the clause.
func Sort[T any](records []Record[T], cmps []compare.AtomicComparer, clause string) error {
	var failure error
	slices.SortFunc(records, func(a, b Record[T]) int {
		if failure != nil {
			return cmp.Compare(a.Position, b.Position)
		}
		for i, c := range cmps {
			r, err := c.Compare(a.Keys[i], b.Keys[i])
			if err != nil {
				failure = err
				return cmp.Compare(a.Position, b.Position)
			}
			if r != 0 {
				return r
			}
		}
		return cmp.Compare(a.Position, b.Position)
	})

	if failure == nil {
		return nil
	}
	if evalerr.IsTypeError(failure) {
		return &evalerr.DynamicError{
			Code:    evalerr.CodeTypeError,
			Clause:  clause,
			Message: "sort key values are not comparable",
			Cause:   failure,
		}
	}
	return evalerr.Wrap(failure, clause, "")
}

// NewSortedIterator sorts the items of input by the keys of chain, each key
// evaluated with the item as context item. The input is drained eagerly; the
// result is restartable.
func NewSortedIterator(ctx context.Context, input sequence.Iterator[item.Item], chain *Chain, dc *expr.DynamicContext) (sequence.Iterator[item.Item], error) {
	cmps, err := chain.Comparators(ctx, dc)
	if err != nil {
		return nil, err
	}

	values, err := sequence.Collect(ctx, input)
	if err != nil {
		return nil, err
	}

	records := make([]Record[item.Item], len(values))
	for i, v := range values {
		keys, err := chain.EvaluateKeys(ctx, dc.Focus(v, i+1))
		if err != nil {
			return nil, evalerr.Wrap(err, "sort", chain.String())
		}
		records[i] = Record[item.Item]{Value: v, Keys: keys, Position: i}
	}

	if err := Sort(records, cmps, "sort"); err != nil {
		return nil, err
	}

	sorted := make([]item.Item, len(records))
	for i, r := range records {
		sorted[i] = r.Value
	}
	return sequence.FromSlice(sorted), nil
}
