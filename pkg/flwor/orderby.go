package flwor

import (
	"context"

	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/sorting"
)

// sortBuffer holds the tuples an order by clause has received, with their
// sort keys and arrival positions.
type sortBuffer struct {
	clause  *OrderByClause
	scope   []*expr.Binding
	records []sorting.Record[Tuple]
}

func (b *sortBuffer) add(ctx context.Context, dc *expr.DynamicContext) error {
	keys, err := b.clause.Keys.EvaluateKeys(ctx, dc)
	if err != nil {
		return evalerr.Wrap(err, "order by", b.clause.Keys.String())
	}
	t, err := capture(dc, b.scope)
	if err != nil {
		return err
	}
	b.records = append(b.records, sorting.Record[Tuple]{Value: t, Keys: keys, Position: len(b.records)})
	return nil
}

func (b *sortBuffer) sort(ctx context.Context, dc *expr.DynamicContext) error {
	cmps, err := b.clause.Keys.Comparators(ctx, dc)
	if err != nil {
		return evalerr.Wrap(err, "order by", b.clause.Keys.String())
	}
	sortBufferSizeHistogram.Observe(float64(len(b.records)))
	return sorting.Sort(b.records, cmps, "order by")
}

// orderByPull drains its upstream on the first pull and then serves the
// sorted tuples.
type orderByPull struct {
	buffer   sortBuffer
	upstream TuplePull
	loaded   bool
	next     int
}

func (p *orderByPull) load(ctx context.Context, dc *expr.DynamicContext) error {
	for {
		ok, err := p.upstream.NextTuple(ctx, dc)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := p.buffer.add(ctx, dc); err != nil {
			return err
		}
	}
	return p.buffer.sort(ctx, dc)
}

func (p *orderByPull) NextTuple(ctx context.Context, dc *expr.DynamicContext) (bool, error) {
	if !p.loaded {
		p.loaded = true
		if err := p.load(ctx, dc); err != nil {
			return false, err
		}
	}
	if p.next >= len(p.buffer.records) {
		return false, nil
	}
	r := p.buffer.records[p.next]
	p.next++
	if err := r.Value.restore(dc, p.buffer.scope); err != nil {
		return false, err
	}
	emitted(KindOrderBy)
	return true, nil
}

func (p *orderByPull) Close() {
	p.buffer.records = nil
	p.upstream.Close()
}

// orderByPush buffers every tuple and replays them, sorted, on Close.
type orderByPush struct {
	buffer      sortBuffer
	destination TuplePush
}

func (p *orderByPush) ProcessTuple(ctx context.Context, dc *expr.DynamicContext) error {
	return p.buffer.add(ctx, dc)
}

func (p *orderByPush) Close(ctx context.Context, dc *expr.DynamicContext) error {
	if err := p.buffer.sort(ctx, dc); err != nil {
		return err
	}
	for _, r := range p.buffer.records {
		if err := r.Value.restore(dc, p.buffer.scope); err != nil {
			return err
		}
		emitted(KindOrderBy)
		if err := p.destination.ProcessTuple(ctx, dc); err != nil {
			return err
		}
	}
	p.buffer.records = nil
	return p.destination.Close(ctx, dc)
}
