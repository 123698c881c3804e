package flwor

import (
	"context"

	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/item"
)

func (c *LetClause) bind(ctx context.Context, dc *expr.DynamicContext) error {
	v, err := expr.Evaluate(ctx, c.Value, dc)
	if err != nil {
		return evalerr.Wrap(err, "let", c.Value.String())
	}
	return dc.Bind(c.Var, v)
}

type letPull struct {
	clause   *LetClause
	upstream TuplePull
}

func (p *letPull) NextTuple(ctx context.Context, dc *expr.DynamicContext) (bool, error) {
	ok, err := p.upstream.NextTuple(ctx, dc)
	if err != nil || !ok {
		return false, err
	}
	if err := p.clause.bind(ctx, dc); err != nil {
		return false, err
	}
	emitted(KindLet)
	return true, nil
}

func (p *letPull) Close() {
	p.upstream.Close()
}

type letPush struct {
	clause      *LetClause
	destination TuplePush
}

func (p *letPush) ProcessTuple(ctx context.Context, dc *expr.DynamicContext) error {
	if err := p.clause.bind(ctx, dc); err != nil {
		return err
	}
	emitted(KindLet)
	return p.destination.ProcessTuple(ctx, dc)
}

func (p *letPush) Close(ctx context.Context, dc *expr.DynamicContext) error {
	return p.destination.Close(ctx, dc)
}

func (c *WhereClause) test(ctx context.Context, dc *expr.DynamicContext) (bool, error) {
	ok, err := c.Predicate.EffectiveBooleanValue(ctx, dc)
	if err != nil {
		return false, evalerr.Wrap(err, "where", c.Predicate.String())
	}
	return ok, nil
}

type wherePull struct {
	clause   *WhereClause
	upstream TuplePull
}

func (p *wherePull) NextTuple(ctx context.Context, dc *expr.DynamicContext) (bool, error) {
	for {
		ok, err := p.upstream.NextTuple(ctx, dc)
		if err != nil || !ok {
			return false, err
		}
		pass, err := p.clause.test(ctx, dc)
		if err != nil {
			return false, err
		}
		if pass {
			emitted(KindWhere)
			return true, nil
		}
	}
}

func (p *wherePull) Close() {
	p.upstream.Close()
}

type wherePush struct {
	clause      *WhereClause
	destination TuplePush
}

func (p *wherePush) ProcessTuple(ctx context.Context, dc *expr.DynamicContext) error {
	pass, err := p.clause.test(ctx, dc)
	if err != nil || !pass {
		return err
	}
	emitted(KindWhere)
	return p.destination.ProcessTuple(ctx, dc)
}

func (p *wherePush) Close(ctx context.Context, dc *expr.DynamicContext) error {
	return p.destination.Close(ctx, dc)
}

type countPull struct {
	clause   *CountClause
	upstream TuplePull
	count    int64
}

func (p *countPull) NextTuple(ctx context.Context, dc *expr.DynamicContext) (bool, error) {
	ok, err := p.upstream.NextTuple(ctx, dc)
	if err != nil || !ok {
		return false, err
	}
	p.count++
	if err := dc.Bind(p.clause.Var, item.Of(item.Integer(p.count))); err != nil {
		return false, err
	}
	emitted(KindCount)
	return true, nil
}

func (p *countPull) Close() {
	p.upstream.Close()
}

type countPush struct {
	clause      *CountClause
	destination TuplePush
	count       int64
}

func (p *countPush) ProcessTuple(ctx context.Context, dc *expr.DynamicContext) error {
	p.count++
	if err := dc.Bind(p.clause.Var, item.Of(item.Integer(p.count))); err != nil {
		return err
	}
	emitted(KindCount)
	return p.destination.ProcessTuple(ctx, dc)
}

func (p *countPush) Close(ctx context.Context, dc *expr.DynamicContext) error {
	return p.destination.Close(ctx, dc)
}
