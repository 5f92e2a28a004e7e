package workerpresentation

import (
	"context"
	"sort"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext puts an event-scoped logger on ctx for handlers running off the bus.
// The logger carries event_id (generated when attrs has none), trace_id and span_id when
// valid, and the remaining attrs in key order. Keep attrs low-cardinality apart from ids.
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	tel observability.Observability,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil && tel != nil {
		base = tel.Logger()
	}
	if base == nil {
		base = observability.NopLogger()
	}

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields := []observability.Field{observability.F("event_id", evtID)}

	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}

	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, observability.F(k, attrs[k]))
	}

	return logctx.With(ctx, base.With(fields...))
}
