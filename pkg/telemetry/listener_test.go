package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/logger"
)

func TestSpanListener(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})

	slots := expr.NewSlotManager()
	x := slots.Declare("x")
	unbound := slots.Declare("unbound")
	dc := slots.NewContext(expr.WithRunID("run-1"))
	require.NoError(t, dc.Bind(x, item.Of(item.Integer(7))))

	l := NewSpanListener(x, unbound)
	ctx := l.Enter(context.Background(), "after-for", dc)
	require.Empty(t, spanRecorder.Ended())
	l.Leave(ctx, "after-for", dc)

	spans := spanRecorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "flwor.trace", spans[0].Name())
	require.ElementsMatch(t, []attribute.KeyValue{
		attribute.String("label", "after-for"),
		attribute.String("run_id", "run-1"),
		attribute.String("var.x", "(xs:integer(7))"),
	}, spans[0].Attributes())
}

func TestLogListener(t *testing.T) {
	log, logs := logger.NewObserverLogger("debug")

	slots := expr.NewSlotManager()
	x := slots.Declare("x")
	dc := slots.NewContext(expr.WithRunID("run-2"))
	require.NoError(t, dc.Bind(x, item.Of(item.String("a"), item.String("b"))))

	l := NewLogListener(log, x)
	ctx := l.Enter(context.Background(), "probe", dc)
	l.Leave(ctx, "probe", dc)

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "trace enter", entries[0].Message)
	fields := entries[0].ContextMap()
	require.Equal(t, "probe", fields["label"])
	require.Equal(t, "run-2", fields["run_id"])
	require.Contains(t, fields, "x")
	require.Equal(t, "trace leave", entries[1].Message)
}

type recordingListener struct {
	name  string
	calls *[]string
}

type listenerKey struct{}

func (r recordingListener) Enter(ctx context.Context, label string, _ *expr.DynamicContext) context.Context {
	*r.calls = append(*r.calls, "enter "+r.name+" "+label)
	return context.WithValue(ctx, listenerKey{}, r.name)
}

func (r recordingListener) Leave(ctx context.Context, label string, _ *expr.DynamicContext) {
	*r.calls = append(*r.calls, "leave "+r.name+" "+label+" "+ctx.Value(listenerKey{}).(string))
}

func TestListeners(t *testing.T) {
	var calls []string
	ls := Listeners{
		recordingListener{name: "a", calls: &calls},
		recordingListener{name: "b", calls: &calls},
	}
	dc := expr.NewDynamicContext(0)

	ctx := ls.Enter(context.Background(), "t", dc)
	ls.Leave(ctx, "t", dc)

	require.Equal(t, []string{"enter a t", "enter b t", "leave b t b", "leave a t b"}, calls)
}
