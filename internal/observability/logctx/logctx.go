package logctx

import (
	"context"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
)

type loggerKey struct{}

// With returns ctx carrying logger. A nil logger leaves ctx as is.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(observability.Logger)
	return logger
}

func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	return fallback
}

// Enrich adds fields to the logger already on ctx, e.g. the user once a token is verified.
// Without one it returns ctx unchanged.
func Enrich(ctx context.Context, fields ...observability.Field) context.Context {
	logger := From(ctx)
	if logger == nil || len(fields) == 0 {
		return ctx
	}
	return With(ctx, logger.With(fields...))
}
