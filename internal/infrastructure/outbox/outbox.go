package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/outbox"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability/logctx"
	"go.opentelemetry.io/otel/trace"
)

var ErrClosed = errors.New("outbox: bus is closed")

const (
	componentOutbox       = "outbox"
	defaultQueueSize      = 1024
	defaultConcurrency    = 8
	defaultHandlerTimeout = 30 * time.Second
)

// ContextDecorator builds the context a handler runs with from the publisher's span.
type ContextDecorator func(ctx context.Context, base observability.Logger, traceID trace.TraceID, spanID trace.SpanID, attrs map[string]string) context.Context

type Options struct {
	QueueSize      int
	Concurrency    int
	HandlerTimeout time.Duration

	// Decorate replaces the default event-scoped logger when set.
	Decorate ContextDecorator
}

type envelope struct {
	event   domoutbox.Event
	traceID trace.TraceID
	spanID  trace.SpanID
}

// Bus is an in-memory event bus with at-most-once delivery: events still queued when the
// process dies are lost, and handler errors are logged, never retried.
type Bus struct {
	subsMu         sync.RWMutex
	subs           map[string][]domoutbox.Handler
	stateMu        sync.RWMutex // guards closed and sends on queue
	queue          chan envelope
	closed         bool
	done           chan struct{}
	startOnce      sync.Once
	stopOnce       sync.Once
	cancel         context.CancelFunc
	concurrency    int
	handlerTimeout time.Duration
	decorate       ContextDecorator
	log            observability.Logger
}

// NewBus creates a bus with a buffered queue and a per-event handler concurrency cap.
func NewBus(logger observability.Logger, opts Options) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = defaultHandlerTimeout
	}
	return &Bus{
		subs:           make(map[string][]domoutbox.Handler),
		queue:          make(chan envelope, opts.QueueSize),
		done:           make(chan struct{}),
		concurrency:    opts.Concurrency,
		handlerTimeout: opts.HandlerTimeout,
		decorate:       opts.Decorate,
		log:            logger.With(observability.F("component", componentOutbox)),
	}
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.cancel = cancel
		go b.dispatchLoop(bg)
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop closes the queue and waits for queued events to be dispatched, or for ctx to expire.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		b.stateMu.Lock()
		b.closed = true
		close(b.queue)
		b.stateMu.Unlock()

		logger := logctx.FromOr(ctx, b.log)
		select {
		case <-b.done:
		case <-ctx.Done():
			logger.Warn("event_bus_drain_aborted", observability.F("error", ctx.Err()))
		}
		if b.cancel != nil {
			b.cancel()
		}
		logger.Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}

	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	sc := trace.SpanContextFromContext(ctx)
	select {
	case b.queue <- envelope{event: e, traceID: sc.TraceID(), spanID: sc.SpanID()}:
		logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
		logger.Debug("event_enqueued")
		return nil
	case <-ctx.Done():
		logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
		logger.Warn("event_enqueue_aborted",
			observability.F("error", ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-b.queue:
			if !ok {
				return
			}
			b.fanout(ctx, env)
		}
	}
}

func (b *Bus) fanout(ctx context.Context, env envelope) {
	e := env.event
	name := e.EventName()

	b.subsMu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.subsMu.RUnlock()

	attrs := map[string]string{"event": name}
	fields := []observability.Field{observability.F("event", name)}
	if key := domoutbox.KeyOf(e); key != "" {
		attrs["event_key"] = key
		fields = append(fields, observability.F("event_key", key))
	}
	baseLogger := b.log.With(fields...)
	if len(handlers) == 0 {
		baseLogger.Debug("event_dropped_no_subscriber")
		return
	}

	ctx = context.WithoutCancel(ctx)
	if b.decorate != nil {
		ctx = b.decorate(ctx, b.log, env.traceID, env.spanID, attrs)
		baseLogger = logctx.FromOr(ctx, baseLogger)
	} else {
		ctx = logctx.With(ctx, baseLogger)
	}

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		h := h
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					baseLogger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
			err := h(hctx, e)
			cancel()
			if err != nil {
				baseLogger.Warn("event_handler_error",
					observability.F("error", err),
				)
			}
		}()
	}

	wg.Wait()

	baseLogger.Debug("event_fanned_out",
		observability.F("handlers", len(handlers)),
	)
}
