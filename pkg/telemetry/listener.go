package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/logger"
)

var tracer = otel.Tracer("pkg/telemetry")

// Listener observes the tuples passing through trace clauses. It has the
// method set of flwor.TraceListener.
type Listener interface {
	Enter(ctx context.Context, label string, dc *expr.DynamicContext) context.Context
	Leave(ctx context.Context, label string, dc *expr.DynamicContext)
}

// SpanListener opens a span for every traced tuple. The span covers the
// downstream processing of the tuple.
type SpanListener struct {
	vars []*expr.Binding
}

var _ Listener = (*SpanListener)(nil)

// NewSpanListener returns a SpanListener recording the values of vars as
// span attributes.
func NewSpanListener(vars ...*expr.Binding) *SpanListener {
	return &SpanListener{vars: vars}
}

func (s *SpanListener) Enter(ctx context.Context, label string, dc *expr.DynamicContext) context.Context {
	attrs := make([]attribute.KeyValue, 0, len(s.vars)+2)
	attrs = append(attrs, attribute.String("label", label), attribute.String("run_id", dc.RunID()))
	for _, b := range s.vars {
		if v, err := dc.Lookup(b); err == nil {
			attrs = append(attrs, attribute.String("var."+b.Name(), v.String()))
		}
	}
	ctx, _ = tracer.Start(ctx, "flwor.trace", trace.WithAttributes(attrs...))
	return ctx
}

func (s *SpanListener) Leave(ctx context.Context, _ string, _ *expr.DynamicContext) {
	trace.SpanFromContext(ctx).End()
}

// LogListener logs every traced tuple at debug level.
type LogListener struct {
	logger logger.Logger
	vars   []*expr.Binding
}

var _ Listener = (*LogListener)(nil)

// NewLogListener returns a LogListener logging the values of vars.
func NewLogListener(l logger.Logger, vars ...*expr.Binding) *LogListener {
	return &LogListener{logger: l, vars: vars}
}

func (l *LogListener) Enter(ctx context.Context, label string, dc *expr.DynamicContext) context.Context {
	fields := make([]zap.Field, 0, len(l.vars)+1)
	fields = append(fields, zap.String("label", label))
	for _, b := range l.vars {
		v, err := dc.Lookup(b)
		if err != nil {
			fields = append(fields, zap.NamedError(b.Name(), err))
			continue
		}
		fields = append(fields, zap.Stringer(b.Name(), v))
	}
	l.logger.DebugWithContext(logger.ContextWithRunID(ctx, dc.RunID()), "trace enter", fields...)
	return ctx
}

func (l *LogListener) Leave(ctx context.Context, label string, dc *expr.DynamicContext) {
	l.logger.DebugWithContext(logger.ContextWithRunID(ctx, dc.RunID()), "trace leave", zap.String("label", label))
}

// Listeners fans every notification out to each listener in turn. Leave is
// delivered in reverse order.
type Listeners []Listener

var _ Listener = Listeners(nil)

func (ls Listeners) Enter(ctx context.Context, label string, dc *expr.DynamicContext) context.Context {
	for _, l := range ls {
		ctx = l.Enter(ctx, label, dc)
	}
	return ctx
}

func (ls Listeners) Leave(ctx context.Context, label string, dc *expr.DynamicContext) {
	for i := len(ls) - 1; i >= 0; i-- {
		ls[i].Leave(ctx, label, dc)
	}
}
