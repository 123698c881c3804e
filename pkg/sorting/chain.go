package sorting

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/openfga/flwor/pkg/collation"
	"github.com/openfga/flwor/pkg/compare"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/item"
)

// Chain is an ordered list of sort keys and their comparators. When every key
// is fixed the comparators are built on first use and shared by later
// evaluations against the same collation registry; otherwise they are
// rebuilt for each evaluation.
type Chain struct {
	keys  []KeyDefinition
	fixed bool

	cached atomic.Pointer[resolved]
}

// resolved holds comparators built against one registry. Failed builds are
// never cached.
type resolved struct {
	registry *collation.Registry
	cmps     []compare.AtomicComparer
}

// NewChain returns a chain over the given keys, most significant first.
func NewChain(keys ...KeyDefinition) *Chain {
	fixed := true
	for _, k := range keys {
		if !k.IsFixed() {
			fixed = false
			break
		}
	}
	return &Chain{keys: keys, fixed: fixed}
}

// Keys returns the key definitions.
func (c *Chain) Keys() []KeyDefinition {
	return c.keys
}

// IsFixed reports whether the comparators are independent of the dynamic
// context.
func (c *Chain) IsFixed() bool {
	return c.fixed
}

// Comparators returns one comparator per key.
func (c *Chain) Comparators(ctx context.Context, dc *expr.DynamicContext) ([]compare.AtomicComparer, error) {
	if !c.fixed {
		return c.build(ctx, dc)
	}
	registry := dc.Collations()
	if r := c.cached.Load(); r != nil && r.registry == registry {
		return r.cmps, nil
	}
	cmps, err := c.build(ctx, dc)
	if err != nil {
		return nil, err
	}
	c.cached.Store(&resolved{registry: registry, cmps: cmps})
	return cmps, nil
}

func (c *Chain) build(ctx context.Context, dc *expr.DynamicContext) ([]compare.AtomicComparer, error) {
	cmps := make([]compare.AtomicComparer, len(c.keys))
	for i, k := range c.keys {
		cmp, err := k.MakeComparator(ctx, dc)
		if err != nil {
			return nil, err
		}
		cmps[i] = cmp
	}
	return cmps, nil
}

// EvaluateKeys evaluates every sort key in dc. An empty key yields
// item.Absent; a key of more than one item is a type error.
func (c *Chain) EvaluateKeys(ctx context.Context, dc *expr.DynamicContext) ([]item.Atomic, error) {
	keys := make([]item.Atomic, len(c.keys))
	for i, k := range c.keys {
		a, err := expr.EvaluateAtomic(ctx, k.Key, dc)
		if err != nil {
			return nil, err
		}
		keys[i] = a
	}
	return keys, nil
}

// Copy returns a chain over deep copies of the keys. Fixed comparators are
// rebuilt on first use of the copy.
func (c *Chain) Copy(r *expr.Rebinder) *Chain {
	keys := make([]KeyDefinition, len(c.keys))
	for i, k := range c.keys {
		keys[i] = k.Copy(r)
	}
	return NewChain(keys...)
}

func (c *Chain) String() string {
	parts := make([]string, len(c.keys))
	for i, k := range c.keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}
