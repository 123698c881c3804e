//go:generate mockgen -source expression.go -destination ../../internal/mocks/mock_expression.go -package mocks Expression

// Package expr defines the expression capability consumed by the FLWOR
// engine, the dynamic context expressions are evaluated against, and a small
// set of concrete expressions.
package expr

import (
	"context"

	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

// Expression is a compiled expression.
type Expression interface {
	// EvaluateItem returns the single item the expression evaluates to, or
	// nil for the empty sequence. More than one item is a type error.
	EvaluateItem(ctx context.Context, dc *DynamicContext) (item.Item, error)

	// Iterate returns an iterator over the value of the expression.
	Iterate(ctx context.Context, dc *DynamicContext) (sequence.Iterator[item.Item], error)

	// EffectiveBooleanValue evaluates the expression as a condition.
	EffectiveBooleanValue(ctx context.Context, dc *DynamicContext) (bool, error)

	// Copy returns a deep copy with variable references redirected by r.
	Copy(r *Rebinder) Expression

	String() string
}

// Evaluate returns the value of e as a materialized sequence.
func Evaluate(ctx context.Context, e Expression, dc *DynamicContext) (item.Sequence, error) {
	it, err := e.Iterate(ctx, dc)
	if err != nil {
		return nil, err
	}
	values, err := sequence.Collect(ctx, it)
	if err != nil {
		return nil, err
	}
	return item.Sequence(values), nil
}

// EvaluateAtomic evaluates e and atomizes the result, which must have at most
// one item. The empty sequence yields item.Absent.
func EvaluateAtomic(ctx context.Context, e Expression, dc *DynamicContext) (item.Atomic, error) {
	it, err := e.EvaluateItem(ctx, dc)
	if err != nil || it == nil {
		return item.Absent, err
	}
	values, err := item.AtomizeItem(it)
	if err != nil {
		return item.Absent, err
	}
	switch len(values) {
	case 0:
		return item.Absent, nil
	case 1:
		return values[0], nil
	default:
		return item.Absent, evalerr.TypeError("a sequence of more than one item is not allowed as the value of %s", e)
	}
}

// singleItem drains it and returns its only item, or nil when empty.
func singleItem(ctx context.Context, e Expression, it sequence.Iterator[item.Item]) (item.Item, error) {
	defer it.Stop()
	first, err := it.Next(ctx)
	if err != nil {
		if sequence.IsDone(err) {
			return nil, nil
		}
		return nil, err
	}
	_, err = it.Next(ctx)
	if err == nil {
		return nil, evalerr.TypeError("a sequence of more than one item is not allowed as the value of %s", e)
	}
	if !sequence.IsDone(err) {
		return nil, err
	}
	return first, nil
}

// effectiveBooleanValue reads at most two items of it.
func effectiveBooleanValue(ctx context.Context, it sequence.Iterator[item.Item]) (bool, error) {
	defer it.Stop()
	var head item.Sequence
	for len(head) < 2 {
		v, err := it.Next(ctx)
		if err != nil {
			if sequence.IsDone(err) {
				break
			}
			return false, err
		}
		head = append(head, v)
		if _, ok := v.(item.Node); ok {
			return true, nil
		}
	}
	return item.EffectiveBooleanValue(head)
}

// base supplies EvaluateItem and EffectiveBooleanValue in terms of Iterate.
type base struct {
	self Expression
}

func (b base) EvaluateItem(ctx context.Context, dc *DynamicContext) (item.Item, error) {
	it, err := b.self.Iterate(ctx, dc)
	if err != nil {
		return nil, err
	}
	return singleItem(ctx, b.self, it)
}

func (b base) EffectiveBooleanValue(ctx context.Context, dc *DynamicContext) (bool, error) {
	it, err := b.self.Iterate(ctx, dc)
	if err != nil {
		return false, err
	}
	return effectiveBooleanValue(ctx, it)
}

func fromSequence(seq item.Sequence) sequence.Iterator[item.Item] {
	return sequence.FromSlice([]item.Item(seq))
}
