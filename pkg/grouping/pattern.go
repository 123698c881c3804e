package grouping

import (
	"context"

	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

// Pattern decides whether a population item marks a group boundary.
type Pattern interface {
	Matches(ctx context.Context, it item.Item, dc *expr.DynamicContext) (bool, error)
}

// PatternFunc adapts a function to Pattern.
type PatternFunc func(ctx context.Context, it item.Item, dc *expr.DynamicContext) (bool, error)

func (f PatternFunc) Matches(ctx context.Context, it item.Item, dc *expr.DynamicContext) (bool, error) {
	return f(ctx, it, dc)
}

// ExpressionPattern matches the items for which the effective boolean value
// of the expression, evaluated with the item as context item, is true.
type ExpressionPattern struct {
	Expression expr.Expression
}

func (p ExpressionPattern) Matches(ctx context.Context, it item.Item, dc *expr.DynamicContext) (bool, error) {
	return p.Expression.EffectiveBooleanValue(ctx, dc.Focus(it, 1))
}

// GroupStartingWith starts a new group at every item matching pattern. Items
// before the first match form a group of their own.
func GroupStartingWith(ctx context.Context, population sequence.Iterator[item.Item], pattern Pattern, dc *expr.DynamicContext) (GroupIterator, error) {
	return groupAtBoundaries(ctx, population, pattern, dc, true)
}

// GroupEndingWith ends the current group at every item matching pattern.
// Items after the last match form a group of their own.
func GroupEndingWith(ctx context.Context, population sequence.Iterator[item.Item], pattern Pattern, dc *expr.DynamicContext) (GroupIterator, error) {
	return groupAtBoundaries(ctx, population, pattern, dc, false)
}

func groupAtBoundaries(ctx context.Context, population sequence.Iterator[item.Item], pattern Pattern, dc *expr.DynamicContext, starting bool) (GroupIterator, error) {
	defer population.Stop()

	var (
		list    []Group
		current []item.Item
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

		matched, err := pattern.Matches(ctx, it, dc)
		if err != nil {
			return nil, err
		}

		if starting && matched && len(current) > 0 {
			list = append(list, Group{Members: current})
			current = nil
		}
		current = append(current, it)
		if !starting && matched {
			list = append(list, Group{Members: current})
			current = nil
		}
	}
	if len(current) > 0 {
		list = append(list, Group{Members: current})
	}

	algorithm := algorithmEndingWith
	if starting {
		algorithm = algorithmStartingWith
	}
	populationSizeHistogram.WithLabelValues(algorithm).Observe(float64(n))
	return newGroups(list), nil
}
