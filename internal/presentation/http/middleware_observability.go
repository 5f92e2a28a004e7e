package httppresentation

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability/logctx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	headerRequestID = "X-Request-ID"
	routeUnknown    = "unknown"
	tracerName      = "restaurant.http"
)

// routeOf returns the matched route template so labels stay low-cardinality.
func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return routeUnknown
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func withTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := c.Request
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeOf(c)
		spanName := r.Method + " " + route
		if route == routeUnknown {
			spanName = r.Method + " " + r.URL.Path
		}

		ctx, span := otel.Tracer(tracerName).Start(parentCtx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		c.Request = r.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// withRequestLogger injects a request-scoped logger (request_id, trace ids) and echoes X-Request-ID.
func withRequestLogger(base observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(headerRequestID, rid)

		fields := []observability.Field{observability.F("request_id", rid)}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		c.Request = c.Request.WithContext(logctx.With(c.Request.Context(), base.With(fields...)))
		c.Next()
	}
}

// withHTTPMetrics records RED-ish HTTP metrics using injected vectors.
// DO NOT new metrics inside the middleware.
func withHTTPMetrics(m observability.Metrics) gin.HandlerFunc {
	requests := m.Counter(observability.MHTTPRequests)
	duration := m.Histogram(observability.MHTTPRequestDuration)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		labels := []observability.Label{
			observability.L("method", c.Request.Method),
			observability.L("route", routeOf(c)),
			observability.L("status", strconv.Itoa(c.Writer.Status())),
		}
		requests.Add(1, labels...)
		duration.Observe(time.Since(start).Seconds(), labels...)
	}
}

// withAccessLog writes a single access log after the handler completes.
func withAccessLog(fallback observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []observability.Field{
			observability.F("method", c.Request.Method),
			observability.F("route", routeOf(c)),
			observability.F("path", c.Request.URL.Path),
			observability.F("status", c.Writer.Status()),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		}
		if uid := c.GetString(ctxUserID); uid != "" {
			fields = append(fields, observability.F("user_id", uid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, observability.F("error", c.Errors.String()))
		}
		logctx.FromOr(c.Request.Context(), fallback).Info("http_access", fields...)
	}
}

func withRecovery(fallback observability.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logctx.FromOr(c.Request.Context(), fallback).Error("http_panic",
			observability.F("panic", recovered),
			observability.F("stack", string(debug.Stack())),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": msgInternal})
	})
}
