package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

// Instrument holds the RED instruments shared by use cases of one service.
type Instrument struct {
	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewInstrument(tel observability.Observability, service string) Instrument {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return Instrument{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
	}
}

func (in Instrument) Logger() observability.Logger { return in.log }

// Run tracks one use case execution. Set Outcome/Status on failure paths, then call End.
type Run struct {
	Logger  observability.Logger
	Span    trace.Span
	Outcome string
	Status  string

	in      Instrument
	useCase string
	start   time.Time
	ctx     context.Context
	fields  []observability.Field
}

func (in Instrument) Start(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", useCase))
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := in.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	return ctx, &Run{
		Logger:  logger,
		Span:    span,
		Outcome: "success",
		Status:  "OK",
		in:      in,
		useCase: useCase,
		start:   time.Now(),
		ctx:     ctx,
	}
}

// Fail marks the run as failed with a stable status code.
func (r *Run) Fail(status string) {
	r.Outcome, r.Status = "error", status
}

// Annotate adds fields to the closing use_case_done line.
func (r *Run) Annotate(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

// End records span status, metrics and the use_case_done log line.
func (r *Run) End(err error) {
	lat := time.Since(r.start).Seconds()

	if r.Span != nil {
		if err != nil {
			r.Span.RecordError(err)
			r.Span.SetStatus(codes.Error, r.Status)
		} else {
			r.Span.SetStatus(codes.Ok, r.Status)
		}
		r.Span.End()
	}

	if r.in.reqCounter != nil {
		r.in.reqCounter.Add(1,
			observability.L("use_case", r.useCase),
			observability.L("outcome", r.Outcome),
		)
	}
	if r.in.durHistogram != nil {
		r.in.durHistogram.Observe(lat,
			observability.L("use_case", r.useCase),
		)
	}

	fields := []observability.Field{
		observability.F("outcome", r.Outcome),
		observability.F("status", r.Status),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}

	r.Logger.Info("use_case_done", fields...)
}
