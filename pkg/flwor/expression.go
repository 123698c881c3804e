// Package flwor evaluates FLWOR expressions: a pipeline of clauses binding
// variables tuple by tuple, followed by a return expression evaluated once
// per tuple. Pipelines run either in pull mode, as an item iterator, or in
// push mode, delivering items to a Receiver. Both modes produce the same
// items in the same order.
package flwor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/logger"
	"github.com/openfga/flwor/pkg/sequence"
	"github.com/openfga/flwor/pkg/telemetry"
)

var tracer = otel.Tracer("pkg/flwor")

// ErrInvalidPipeline is returned by New for a malformed clause list.
var ErrInvalidPipeline = errors.New("invalid flwor pipeline")

// Option configures an Expression.
type Option func(*Expression)

// WithTraceListener sets the listener notified by trace clauses.
func WithTraceListener(l TraceListener) Option {
	return func(x *Expression) {
		x.listener = l
	}
}

// Expression is a compiled FLWOR expression. It is immutable and can be
// evaluated concurrently, each evaluation with its own DynamicContext.
type Expression struct {
	clauses  []Clause
	ret      expr.Expression
	listener TraceListener

	// scopes[i] lists the variables bound on entry to clause i.
	scopes    [][]*expr.Binding
	frameSize int
}

var _ expr.Expression = (*Expression)(nil)

// New validates the pipeline and returns the expression. The first clause
// must be a for or let clause.
func New(clauses []Clause, ret expr.Expression, opts ...Option) (*Expression, error) {
	if len(clauses) == 0 {
		return nil, fmt.Errorf("%w: no clauses", ErrInvalidPipeline)
	}
	if ret == nil {
		return nil, fmt.Errorf("%w: missing return expression", ErrInvalidPipeline)
	}
	for i, c := range clauses {
		if c == nil {
			return nil, fmt.Errorf("%w: clause %d is nil", ErrInvalidPipeline, i)
		}
		for _, b := range c.Declared() {
			if b == nil {
				return nil, fmt.Errorf("%w: clause %d (%s) declares a nil variable", ErrInvalidPipeline, i, c.Kind())
			}
		}
	}
	if k := clauses[0].Kind(); k != KindFor && k != KindLet {
		return nil, fmt.Errorf("%w: first clause must be for or let, found %s", ErrInvalidPipeline, k)
	}

	x := &Expression{
		clauses:  clauses,
		ret:      ret,
		listener: noopTraceListener{},
	}
	for _, opt := range opts {
		opt(x)
	}

	var scope []*expr.Binding
	x.scopes = make([][]*expr.Binding, len(clauses))
	for i, c := range clauses {
		x.scopes[i] = scope
		declared := c.Declared()
		next := make([]*expr.Binding, 0, len(scope)+len(declared))
		next = append(next, scope...)
		next = append(next, declared...)
		scope = next
		for _, b := range declared {
			x.frameSize = max(x.frameSize, b.Slot()+1)
		}
	}
	return x, nil
}

// MustNew is like New but panics on error.
func MustNew(clauses []Clause, ret expr.Expression, opts ...Option) *Expression {
	x, err := New(clauses, ret, opts...)
	if err != nil {
		panic(err)
	}
	return x
}

// Clauses returns the clauses of the pipeline.
func (x *Expression) Clauses() []Clause {
	return x.clauses
}

// Return returns the return expression.
func (x *Expression) Return() expr.Expression {
	return x.ret
}

// FrameSize returns the number of frame slots the pipeline writes to.
func (x *Expression) FrameSize() int {
	return x.frameSize
}

func (x *Expression) pullStream(i int, upstream TuplePull) TuplePull {
	switch c := x.clauses[i].(type) {
	case *ForClause:
		return &forPull{clause: c, upstream: upstream}
	case *LetClause:
		return &letPull{clause: c, upstream: upstream}
	case *WhereClause:
		return &wherePull{clause: c, upstream: upstream}
	case *OrderByClause:
		return &orderByPull{buffer: sortBuffer{clause: c, scope: x.scopes[i]}, upstream: upstream}
	case *GroupByClause:
		return &groupByPull{table: newGroupTable(c, x.scopes[i]), upstream: upstream}
	case *CountClause:
		return &countPull{clause: c, upstream: upstream}
	case *TraceClause:
		return &tracePull{clause: c, upstream: upstream, listener: x.listener}
	default:
		panic(fmt.Sprintf("unexpected clause type %T", c))
	}
}

func (x *Expression) pushStream(i int, destination TuplePush) TuplePush {
	switch c := x.clauses[i].(type) {
	case *ForClause:
		return &forPush{clause: c, destination: destination}
	case *LetClause:
		return &letPush{clause: c, destination: destination}
	case *WhereClause:
		return &wherePush{clause: c, destination: destination}
	case *OrderByClause:
		return &orderByPush{buffer: sortBuffer{clause: c, scope: x.scopes[i]}, destination: destination}
	case *GroupByClause:
		return &groupByPush{table: newGroupTable(c, x.scopes[i]), destination: destination}
	case *CountClause:
		return &countPush{clause: c, destination: destination}
	case *TraceClause:
		return &tracePush{clause: c, destination: destination, listener: x.listener}
	default:
		panic(fmt.Sprintf("unexpected clause type %T", c))
	}
}

// Tuples returns the pull-mode tuple stream of the pipeline, without the
// return expression. Each call to NextTuple binds the variables of the next
// tuple in dc.
func (x *Expression) Tuples(dc *expr.DynamicContext) TuplePull {
	dc.Grow(x.frameSize)
	var stream TuplePull = &singularity{}
	for i := range x.clauses {
		stream = x.pullStream(i, stream)
	}
	return stream
}

// Iterate evaluates the expression in pull mode. The pipeline binds its
// variables in dc as it advances. Another on the returned iterator re-runs
// the pipeline on a copy of dc as it was when Iterate was called.
func (x *Expression) Iterate(_ context.Context, dc *expr.DynamicContext) (sequence.Iterator[item.Item], error) {
	origin := dc.Fork()
	return &resultIterator{x: x, origin: origin, dc: dc, stream: x.Tuples(dc)}, nil
}

// Process evaluates the expression in push mode, passing every result item
// to out. The push pipeline is built from the last clause backwards; it
// receives the single initial tuple and is then closed.
func (x *Expression) Process(ctx context.Context, dc *expr.DynamicContext, out Receiver) error {
	ctx, span := tracer.Start(ctx, "flwor.Process", trace.WithAttributes(
		attribute.String("run_id", dc.RunID()),
		attribute.Int("clauses", len(x.clauses)),
	))
	defer span.End()

	ctx = logger.ContextWithRunID(ctx, dc.RunID())
	dc.Logger().DebugWithContext(ctx, "flwor evaluation started", zap.String("mode", "push"), zap.Int("clauses", len(x.clauses)))

	dc.Grow(x.frameSize)
	var destination TuplePush = &returnPush{ret: x.ret, out: out}
	for i := len(x.clauses) - 1; i >= 0; i-- {
		destination = x.pushStream(i, destination)
	}

	err := destination.ProcessTuple(ctx, dc)
	if err == nil {
		err = destination.Close(ctx, dc)
	}
	if err != nil {
		telemetry.TraceError(span, err)
		dc.Logger().DebugWithContext(ctx, "flwor evaluation failed", zap.Error(err))
		return err
	}
	dc.Logger().DebugWithContext(ctx, "flwor evaluation finished", zap.String("mode", "push"))
	return nil
}

// EvaluateItem implements expr.Expression.
func (x *Expression) EvaluateItem(ctx context.Context, dc *expr.DynamicContext) (item.Item, error) {
	seq, err := expr.Evaluate(ctx, x, dc)
	if err != nil {
		return nil, err
	}
	if len(seq) > 1 {
		return nil, evalerr.Wrap(evalerr.TypeError("expected at most one item, found %d", len(seq)), "", x.String())
	}
	first, _ := seq.First()
	return first, nil
}

// EffectiveBooleanValue implements expr.Expression.
func (x *Expression) EffectiveBooleanValue(ctx context.Context, dc *expr.DynamicContext) (bool, error) {
	seq, err := expr.Evaluate(ctx, x, dc)
	if err != nil {
		return false, err
	}
	return item.EffectiveBooleanValue(seq)
}

// Copy returns a deep copy of the expression. Variables declared by the
// clauses get fresh bindings from r; a nil r shares them.
func (x *Expression) Copy(r *expr.Rebinder) expr.Expression {
	clauses := make([]Clause, len(x.clauses))
	for i, c := range x.clauses {
		clauses[i] = c.copyClause(r)
	}
	return MustNew(clauses, x.ret.Copy(r), WithTraceListener(x.listener))
}

// CloneWithFreshBindings returns a copy of the expression in which every
// variable declared by the clauses has a new binding allocated from slots.
// The copy can be evaluated in the same frame as the original without the
// two interfering.
func (x *Expression) CloneWithFreshBindings(slots *expr.SlotManager) *Expression {
	return x.Copy(expr.NewRebinder(slots)).(*Expression)
}

func (x *Expression) String() string {
	parts := make([]string, 0, len(x.clauses)+1)
	for _, c := range x.clauses {
		parts = append(parts, c.String())
	}
	parts = append(parts, "return "+x.ret.String())
	return strings.Join(parts, " ")
}

// resultIterator evaluates the return expression for each tuple of the pull
// pipeline and yields the resulting items.
type resultIterator struct {
	x      *Expression
	origin *expr.DynamicContext
	dc     *expr.DynamicContext
	stream TuplePull

	items    sequence.Iterator[item.Item]
	current  item.Item
	position int
	err      error
	released bool

	span trace.Span
}

func (r *resultIterator) start(ctx context.Context) context.Context {
	ctx, r.span = tracer.Start(ctx, "flwor.Iterate", trace.WithAttributes(
		attribute.String("run_id", r.dc.RunID()),
		attribute.Int("clauses", len(r.x.clauses)),
	))
	ctx = logger.ContextWithRunID(ctx, r.dc.RunID())
	r.dc.Logger().DebugWithContext(ctx, "flwor evaluation started", zap.String("mode", "pull"), zap.Int("clauses", len(r.x.clauses)))
	return ctx
}

func (r *resultIterator) Next(ctx context.Context) (item.Item, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.position < 0 {
		return nil, sequence.ErrIteratorDone
	}
	if r.span == nil {
		ctx = r.start(ctx)
	}
	if err := ctx.Err(); err != nil {
		return r.fail(ctx, err)
	}

	for {
		if r.items != nil {
			v, err := r.items.Next(ctx)
			if err == nil {
				r.position++
				r.current = v
				return v, nil
			}
			r.items.Stop()
			r.items = nil
			if !sequence.IsDone(err) {
				return r.fail(ctx, evalerr.Wrap(err, "return", r.x.ret.String()))
			}
		}

		ok, err := r.stream.NextTuple(ctx, r.dc)
		if err != nil {
			return r.fail(ctx, err)
		}
		if !ok {
			r.position = -1
			r.current = nil
			r.release()
			r.dc.Logger().DebugWithContext(logger.ContextWithRunID(ctx, r.dc.RunID()), "flwor evaluation finished", zap.String("mode", "pull"))
			return nil, sequence.ErrIteratorDone
		}

		items, err := r.x.ret.Iterate(ctx, r.dc)
		if err != nil {
			return r.fail(ctx, evalerr.Wrap(err, "return", r.x.ret.String()))
		}
		r.items = items
	}
}

func (r *resultIterator) fail(ctx context.Context, err error) (item.Item, error) {
	r.err = err
	r.current = nil
	if r.span != nil {
		telemetry.TraceError(r.span, err)
	}
	r.dc.Logger().DebugWithContext(logger.ContextWithRunID(ctx, r.dc.RunID()), "flwor evaluation failed", zap.Error(err))
	r.release()
	return nil, err
}

func (r *resultIterator) release() {
	if r.released {
		return
	}
	r.released = true
	if r.items != nil {
		r.items.Stop()
		r.items = nil
	}
	r.stream.Close()
	if r.span != nil {
		r.span.End()
	}
}

func (r *resultIterator) Current() (item.Item, bool) {
	return r.current, r.position > 0 && r.current != nil
}

func (r *resultIterator) Position() int {
	return r.position
}

func (r *resultIterator) Another() (sequence.Iterator[item.Item], error) {
	return r.x.Iterate(context.Background(), r.origin.Fork())
}

// Stop closes the pipeline.
func (r *resultIterator) Stop() {
	r.release()
}
