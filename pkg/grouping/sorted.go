package grouping

import (
	"context"

	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/sorting"
)

// SortGroups reorders the groups of input by the keys of chain, each key
// evaluated with the leading item of a group as context item. Groups with
// equal keys keep their order.
func SortGroups(ctx context.Context, input GroupIterator, chain *sorting.Chain, dc *expr.DynamicContext) (GroupIterator, error) {
	cmps, err := chain.Comparators(ctx, dc)
	if err != nil {
		return nil, err
	}

	list, err := Collect(ctx, input)
	if err != nil {
		return nil, err
	}

	records := make([]sorting.Record[Group], len(list))
	for i, g := range list {
		keys, err := chain.EvaluateKeys(ctx, dc.Focus(g.Leading(), i+1))
		if err != nil {
			return nil, evalerr.Wrap(err, "sort groups", chain.String())
		}
		records[i] = sorting.Record[Group]{Value: g, Keys: keys, Position: i}
	}
	if err := sorting.Sort(records, cmps, "sort groups"); err != nil {
		return nil, err
	}

	sorted := make([]Group, len(records))
	for i, r := range records {
		sorted[i] = r.Value
	}
	return newGroups(sorted), nil
}
