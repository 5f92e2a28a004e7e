package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application"
	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/outbox"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	orderService        = "order-service"
	useCaseListMine     = "order.list_mine"
	useCaseGet          = "order.get"
	useCaseUpdateStatus = "order.update_status"
	publishPeer         = "outbox"
	publishTimeout      = 300 * time.Millisecond
)

var (
	ErrRepository   = errors.New("order: repository failure")
	ErrUserRequired = errors.New("order: user id is required")
)

// Viewer is who is asking. Admins see every order, customers only their own.
type Viewer struct {
	UserID string
	Admin  bool
}

type Service struct {
	orders    domain.Repository
	publisher domoutbox.Publisher

	in           application.Instrument
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewService(orders domain.Repository, publisher domoutbox.Publisher, tel observability.Observability) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Service{
		orders:       orders,
		publisher:    publisher,
		in:           application.NewInstrument(tel, orderService),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// ListMine returns the user's orders with their items, newest first.
func (s *Service) ListMine(ctx context.Context, userID string) (_ []*domain.Order, err error) {
	ctx, run := s.in.Start(ctx, useCaseListMine, "ListMyOrders", attribute.String("order.user_id", userID))
	defer func() { run.End(err) }()

	if userID == "" {
		run.Fail("USER_ID_REQUIRED")
		return nil, fmt.Errorf("validation: %w", ErrUserRequired)
	}
	out, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	run.Annotate(observability.F("orders", len(out)))
	return out, nil
}

func (s *Service) Get(ctx context.Context, viewer Viewer, id string) (_ *domain.Order, err error) {
	ctx, run := s.in.Start(ctx, useCaseGet, "GetOrder",
		attribute.String("order.id", id),
		attribute.Bool("viewer.admin", viewer.Admin),
	)
	defer func() { run.End(err) }()

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("ORDER_NOT_FOUND")
			return nil, err
		}
		run.Fail("REPO_GET_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	// someone else's order reads as missing
	if !viewer.Admin && o.UserID != viewer.UserID {
		run.Fail("ORDER_NOT_FOUND")
		return nil, domain.ErrNotFound
	}
	return o, nil
}

type UpdateStatusInput struct {
	OrderID string
	Status  string
}

// UpdateStatus moves an order along its lifecycle and announces the change.
func (s *Service) UpdateStatus(ctx context.Context, in UpdateStatusInput) (_ *domain.Order, err error) {
	ctx, run := s.in.Start(ctx, useCaseUpdateStatus, "UpdateOrderStatus",
		attribute.String("order.id", in.OrderID),
		attribute.String("order.target_status", in.Status),
	)
	defer func() { run.End(err) }()

	target, err := domain.ParseStatus(in.Status)
	if err != nil {
		run.Fail("UNKNOWN_STATUS")
		return nil, fmt.Errorf("validation: %w", err)
	}

	o, err := s.orders.Get(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("ORDER_NOT_FOUND")
			return nil, err
		}
		run.Fail("REPO_GET_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	from := o.Status
	if err := o.TransitionTo(target); err != nil {
		run.Fail("INVALID_TRANSITION")
		run.Annotate(observability.F("from", string(from)))
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, o); err != nil {
		run.Fail("REPO_UPDATE_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	evt := domain.NewStatusChangedEvent(o, from)
	if perr := s.publish(ctx, evt); perr != nil {
		run.Status = "EVENT_PUBLISH_FAILED"
		run.Annotate(observability.F("event_publish_error", perr.Error()))
	}
	run.Annotate(
		observability.F("from", string(from)),
		observability.F("to", string(o.Status)),
	)
	return o, nil
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event) error {
	if s.publisher == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	start := time.Now()
	outcome := "success"
	err := s.publisher.Publish(pubCtx, e)
	if err != nil {
		outcome = "error"
		if pubCtx.Err() != nil {
			outcome = "canceled"
		}
	}
	s.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", outcome),
	)
	s.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
	)
	return err
}
