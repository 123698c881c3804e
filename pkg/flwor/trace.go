//go:generate mockgen -source trace.go -destination ../../internal/mocks/mock_trace_listener.go -package mocks TraceListener

package flwor

import (
	"context"

	"github.com/openfga/flwor/pkg/expr"
)

// TraceListener observes the tuples passing through trace clauses. Enter is
// called when a tuple reaches the clause and Leave once the pipeline has
// finished with it; Leave receives the context returned by Enter.
type TraceListener interface {
	Enter(ctx context.Context, label string, dc *expr.DynamicContext) context.Context
	Leave(ctx context.Context, label string, dc *expr.DynamicContext)
}

type noopTraceListener struct{}

func (noopTraceListener) Enter(ctx context.Context, _ string, _ *expr.DynamicContext) context.Context {
	return ctx
}

func (noopTraceListener) Leave(context.Context, string, *expr.DynamicContext) {}

// tracePull holds the tuple it last reported until the next pull, so that
// Leave follows the downstream processing of the tuple.
type tracePull struct {
	clause   *TraceClause
	upstream TuplePull
	listener TraceListener

	active  context.Context
	entered *expr.DynamicContext
}

func (p *tracePull) leave() {
	if p.active != nil {
		p.listener.Leave(p.active, p.clause.Label, p.entered)
		p.active = nil
		p.entered = nil
	}
}

func (p *tracePull) NextTuple(ctx context.Context, dc *expr.DynamicContext) (bool, error) {
	p.leave()
	ok, err := p.upstream.NextTuple(ctx, dc)
	if err != nil || !ok {
		return false, err
	}
	p.active = p.listener.Enter(ctx, p.clause.Label, dc)
	p.entered = dc
	emitted(KindTrace)
	return true, nil
}

func (p *tracePull) Close() {
	p.leave()
	p.upstream.Close()
}

type tracePush struct {
	clause      *TraceClause
	destination TuplePush
	listener    TraceListener
}

func (p *tracePush) ProcessTuple(ctx context.Context, dc *expr.DynamicContext) error {
	traced := p.listener.Enter(ctx, p.clause.Label, dc)
	defer p.listener.Leave(traced, p.clause.Label, dc)
	emitted(KindTrace)
	return p.destination.ProcessTuple(traced, dc)
}

func (p *tracePush) Close(ctx context.Context, dc *expr.DynamicContext) error {
	return p.destination.Close(ctx, dc)
}
