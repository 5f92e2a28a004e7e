package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const scope = "github.com/Zhima-Mochi/restaurant-ordering/usecase"

type tracer struct {
	t      trace.Tracer
	common []attribute.KeyValue
}

// New returns a tracer whose use case spans are tagged with service.name and any extra attrs.
// It reads the global provider, so spans are no-ops until main calls otel.SetTracerProvider.
func New(service string, attrs ...attribute.KeyValue) observability.Tracer {
	if service == "" {
		service = "restaurant-ordering"
	}
	common := append([]attribute.KeyValue{attribute.String("service.name", service)}, attrs...)
	return &tracer{t: otel.Tracer(scope), common: common}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(t.common...),
		trace.WithAttributes(attrs...),
	)
}
