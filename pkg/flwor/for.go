package flwor

import (
	"context"

	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

func (c *ForClause) bind(dc *expr.DynamicContext, value item.Sequence, position int) error {
	if err := dc.Bind(c.Var, value); err != nil {
		return err
	}
	if c.Position != nil {
		return dc.Bind(c.Position, item.Of(item.Integer(int64(position))))
	}
	return nil
}

func (c *ForClause) wrap(err error) error {
	return evalerr.Wrap(err, "for", c.Sequence.String())
}

// forPull is a nested loop: for every upstream tuple it iterates the bound
// sequence to completion before pulling the next upstream tuple.
type forPull struct {
	clause   *ForClause
	upstream TuplePull

	current  sequence.Iterator[item.Item]
	position int
}

func (p *forPull) NextTuple(ctx context.Context, dc *expr.DynamicContext) (bool, error) {
	for {
		if p.current != nil {
			v, err := p.current.Next(ctx)
			if err == nil {
				p.position++
				if err := p.clause.bind(dc, item.Of(v), p.position); err != nil {
					return false, err
				}
				emitted(KindFor)
				return true, nil
			}

			p.current.Stop()
			p.current = nil
			if !sequence.IsDone(err) {
				return false, p.clause.wrap(err)
			}
			if p.clause.AllowingEmpty && p.position == 0 {
				if err := p.clause.bind(dc, item.Empty, 0); err != nil {
					return false, err
				}
				emitted(KindFor)
				return true, nil
			}
		}

		ok, err := p.upstream.NextTuple(ctx, dc)
		if err != nil || !ok {
			return false, err
		}

		it, err := p.clause.Sequence.Iterate(ctx, dc)
		if err != nil {
			return false, p.clause.wrap(err)
		}
		p.current = it
		p.position = 0
	}
}

func (p *forPull) Close() {
	if p.current != nil {
		p.current.Stop()
		p.current = nil
	}
	p.upstream.Close()
}

type forPush struct {
	clause      *ForClause
	destination TuplePush
}

func (p *forPush) ProcessTuple(ctx context.Context, dc *expr.DynamicContext) error {
	it, err := p.clause.Sequence.Iterate(ctx, dc)
	if err != nil {
		return p.clause.wrap(err)
	}
	defer it.Stop()

	position := 0
	for {
		v, err := it.Next(ctx)
		if err != nil {
			if !sequence.IsDone(err) {
				return p.clause.wrap(err)
			}
			break
		}
		position++
		if err := p.clause.bind(dc, item.Of(v), position); err != nil {
			return err
		}
		emitted(KindFor)
		if err := p.destination.ProcessTuple(ctx, dc); err != nil {
			return err
		}
	}

	if p.clause.AllowingEmpty && position == 0 {
		if err := p.clause.bind(dc, item.Empty, 0); err != nil {
			return err
		}
		emitted(KindFor)
		return p.destination.ProcessTuple(ctx, dc)
	}
	return nil
}

func (p *forPush) Close(ctx context.Context, dc *expr.DynamicContext) error {
	return p.destination.Close(ctx, dc)
}
