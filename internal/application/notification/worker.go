package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/outbox"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
)

const componentNotificationWorker = "notification_worker"

// Worker relays order events from the bus to every configured notifier.
type Worker struct {
	subscriber domoutbox.Subscriber
	notifiers  []Notifier
	tel        observability.Observability
	log        observability.Logger

	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewWorker(subscriber domoutbox.Subscriber, tel observability.Observability, notifiers ...Notifier) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Worker{
		subscriber:   subscriber,
		notifiers:    notifiers,
		tel:          tel,
		log:          tel.Logger().With(observability.F("component", componentNotificationWorker)),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

func (w *Worker) Start() {
	w.subscriber.Subscribe(order.EventNewOrder, w.handlePlaced)
	w.subscriber.Subscribe(order.StatusChangedEvent{}.EventName(), w.handleStatusChanged)
}

func (w *Worker) handlePlaced(ctx context.Context, evt domoutbox.Event) error {
	e, ok := evt.(order.PlacedEvent)
	if !ok {
		return fmt.Errorf("notification: unexpected event type %T", evt)
	}
	return w.broadcast(ctx, evt.EventName(), e.Order.ID, FromPlaced(e))
}

func (w *Worker) handleStatusChanged(ctx context.Context, evt domoutbox.Event) error {
	e, ok := evt.(order.StatusChangedEvent)
	if !ok {
		return fmt.Errorf("notification: unexpected event type %T", evt)
	}
	return w.broadcast(ctx, evt.EventName(), e.OrderID, FromStatusChanged(e))
}

// broadcast tries every notifier; one failing never stops the others.
func (w *Worker) broadcast(ctx context.Context, eventName, orderID string, msg Message) error {
	ctx, span := w.tel.Tracer().Start(ctx, "Worker.Notify",
		attribute.String("event", eventName),
		attribute.String("order.id", orderID),
	)
	defer span.End()

	logger := logctx.FromOr(ctx, w.log).With(observability.F("order_id", orderID))

	var errs []error
	for _, n := range w.notifiers {
		start := time.Now()
		outcome := "success"
		if err := n.Notify(ctx, msg); err != nil {
			outcome = "error"
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			logger.Warn("notification_failed",
				observability.F("notifier", n.Name()),
				observability.F("error", err.Error()),
			)
		}
		if w.extCounter != nil {
			w.extCounter.Add(1,
				observability.L("peer", n.Name()),
				observability.L("endpoint", eventName),
				observability.L("outcome", outcome),
			)
		}
		if w.extHistogram != nil {
			w.extHistogram.Observe(time.Since(start).Seconds(),
				observability.L("peer", n.Name()),
				observability.L("endpoint", eventName),
			)
		}
	}

	logger.Debug("notification_broadcast",
		observability.F("notifiers", len(w.notifiers)),
		observability.F("failed", len(errs)),
	)
	return errors.Join(errs...)
}
