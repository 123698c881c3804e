package flwor

import (
	"context"

	"github.com/openfga/flwor/pkg/compare"
	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/grouping"
	"github.com/openfga/flwor/pkg/item"
)

type tupleGroup struct {
	key    []item.Atomic
	tuples []Tuple
}

// groupTable accumulates the tuples reaching a group by clause. scope lists
// the variables in scope before the clause; they become the non-grouping
// variables of the output.
type groupTable struct {
	clause    *GroupByClause
	scope     []*expr.Binding
	comparers []compare.AtomicComparer
	index     *grouping.Index
	groups    []tupleGroup
}

func newGroupTable(c *GroupByClause, scope []*expr.Binding) *groupTable {
	return &groupTable{clause: c, scope: scope, index: grouping.NewIndex()}
}

func (g *groupTable) resolve(dc *expr.DynamicContext) error {
	if g.comparers != nil {
		return nil
	}
	cmps := make([]compare.AtomicComparer, len(g.clause.Specs))
	for i, s := range g.clause.Specs {
		coll, err := dc.Collation(s.Collation)
		if err != nil {
			return evalerr.Wrap(err, "group by", s.Key.String())
		}
		cmps[i] = compare.NewGenericComparer(coll)
	}
	g.comparers = cmps
	return nil
}

func (g *groupTable) add(ctx context.Context, dc *expr.DynamicContext) error {
	if err := g.resolve(dc); err != nil {
		return err
	}

	specs := g.clause.Specs
	values := make([]item.Atomic, len(specs))
	keys := make([]compare.Key, len(specs))
	for i, s := range specs {
		seq, err := expr.Evaluate(ctx, s.Key, dc)
		if err != nil {
			return evalerr.Wrap(err, "group by", s.Key.String())
		}
		atoms, err := item.Atomize(seq)
		if err != nil {
			return evalerr.Wrap(err, "group by", s.Key.String())
		}
		switch len(atoms) {
		case 0:
			values[i] = item.Absent
		case 1:
			values[i] = atoms[0]
		default:
			return evalerr.Wrap(evalerr.TypeError("grouping key %s must be at most one atomic value, found %d", s.Var, len(atoms)),
				"group by", s.Key.String())
		}
		k, err := g.comparers[i].ComparisonKey(values[i])
		if err != nil {
			return evalerr.Wrap(err, "group by", s.Key.String())
		}
		keys[i] = k
	}

	t, err := capture(dc, g.scope)
	if err != nil {
		return err
	}

	ordinal, ok := g.index.Lookup(keys)
	if !ok {
		ordinal = g.index.Insert(keys)
		g.groups = append(g.groups, tupleGroup{key: values})
	}
	g.groups[ordinal].tuples = append(g.groups[ordinal].tuples, t)
	return nil
}

// bind binds the grouping variables to the key of group i and every
// non-grouping variable to the concatenation of its values in the group.
func (g *groupTable) bind(dc *expr.DynamicContext, i int) error {
	grp := g.groups[i]
	for j, s := range g.clause.Specs {
		var v item.Sequence
		if !grp.key[j].IsAbsent() {
			v = item.Of(grp.key[j])
		}
		if err := dc.Bind(s.Var, v); err != nil {
			return err
		}
	}
	for j, b := range g.scope {
		var v item.Sequence
		for _, t := range grp.tuples {
			v = append(v, t[j]...)
		}
		if err := dc.Bind(b, v); err != nil {
			return err
		}
	}
	return nil
}

type groupByPull struct {
	table    *groupTable
	upstream TuplePull
	loaded   bool
	next     int
}

func (p *groupByPull) NextTuple(ctx context.Context, dc *expr.DynamicContext) (bool, error) {
	if !p.loaded {
		p.loaded = true
		for {
			ok, err := p.upstream.NextTuple(ctx, dc)
			if err != nil {
				return false, err
			}
			if !ok {
				break
			}
			if err := p.table.add(ctx, dc); err != nil {
				return false, err
			}
		}
	}
	if p.next >= len(p.table.groups) {
		return false, nil
	}
	if err := p.table.bind(dc, p.next); err != nil {
		return false, err
	}
	p.next++
	emitted(KindGroupBy)
	return true, nil
}

func (p *groupByPull) Close() {
	p.table.groups = nil
	p.upstream.Close()
}

type groupByPush struct {
	table       *groupTable
	destination TuplePush
}

func (p *groupByPush) ProcessTuple(ctx context.Context, dc *expr.DynamicContext) error {
	return p.table.add(ctx, dc)
}

func (p *groupByPush) Close(ctx context.Context, dc *expr.DynamicContext) error {
	for i := range p.table.groups {
		if err := p.table.bind(dc, i); err != nil {
			return err
		}
		emitted(KindGroupBy)
		if err := p.destination.ProcessTuple(ctx, dc); err != nil {
			return err
		}
	}
	p.table.groups = nil
	return p.destination.Close(ctx, dc)
}
