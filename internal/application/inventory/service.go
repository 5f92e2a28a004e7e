package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application"
	dominv "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	domoutbox "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/outbox"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService = "inventory-service"
	useCaseList      = "inventory.list"
	useCaseLowStock  = "inventory.low_stock"
	useCaseAdjust    = "inventory.adjust"
	useCaseDelete    = "inventory.delete"
	publishPeer      = "outbox"
	endpointAdjusted = "inventory.stock_adjusted"
	publishTimeout   = 300 * time.Millisecond
)

var ErrRepository = errors.New("inventory: repository failure")

type Service struct {
	ingredients dominv.Repository
	dishes      menu.Repository
	publisher   domoutbox.Publisher

	in           application.Instrument
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewService(ingredients dominv.Repository, dishes menu.Repository, publisher domoutbox.Publisher, tel observability.Observability) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Service{
		ingredients:  ingredients,
		dishes:       dishes,
		publisher:    publisher,
		in:           application.NewInstrument(tel, inventoryService),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

func (s *Service) List(ctx context.Context) (_ []*dominv.Ingredient, err error) {
	ctx, run := s.in.Start(ctx, useCaseList, "ListIngredients")
	defer func() { run.End(err) }()

	out, err := s.ingredients.List(ctx)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	return out, nil
}

// LowStock lists ingredients at or under their alert threshold, lowest first.
func (s *Service) LowStock(ctx context.Context) (_ []*dominv.Ingredient, err error) {
	ctx, run := s.in.Start(ctx, useCaseLowStock, "ListLowStock")
	defer func() { run.End(err) }()

	out, err := s.ingredients.ListLowStock(ctx)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	run.Annotate(observability.F("low_stock", len(out)))
	return out, nil
}

type AdjustStockInput struct {
	IngredientID string
	Delta        float64
}

// AdjustStock applies a manual correction and announces it on the bus.
func (s *Service) AdjustStock(ctx context.Context, in AdjustStockInput) (_ *dominv.Ingredient, err error) {
	ctx, run := s.in.Start(ctx, useCaseAdjust, "AdjustStock",
		attribute.String("ingredient.id", in.IngredientID),
		attribute.Float64("ingredient.delta", in.Delta),
	)
	defer func() { run.End(err) }()

	if in.IngredientID == "" {
		run.Fail("INGREDIENT_ID_REQUIRED")
		return nil, errors.New("validation: ingredient id is required")
	}
	if in.Delta == 0 {
		run.Fail("INVALID_DELTA")
		return nil, fmt.Errorf("validation: %w", dominv.ErrInvalidQuantity)
	}

	ing, err := s.ingredients.Adjust(ctx, in.IngredientID, in.Delta)
	if err != nil {
		switch {
		case errors.Is(err, dominv.ErrNotFound):
			run.Fail("INGREDIENT_NOT_FOUND")
			return nil, err
		case errors.Is(err, dominv.ErrInsufficientStock), errors.Is(err, dominv.ErrInvalidQuantity):
			run.Fail("INVALID_DELTA")
			return nil, fmt.Errorf("validation: %w", err)
		default:
			run.Fail("REPO_ADJUST_FAILED")
			return nil, fmt.Errorf("%w: %w", ErrRepository, err)
		}
	}

	if perr := s.publish(ctx, dominv.NewStockAdjustedEvent(ing, in.Delta)); perr != nil {
		run.Status = "EVENT_PUBLISH_FAILED"
		run.Annotate(observability.F("event_publish_error", perr.Error()))
	}
	run.Annotate(
		observability.F("ingredient_id", ing.ID),
		observability.F("stock", ing.Stock),
		observability.F("low_stock", ing.LowStock()),
	)
	return ing, nil
}

// Delete removes an ingredient no dish links to.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, run := s.in.Start(ctx, useCaseDelete, "DeleteIngredient", attribute.String("ingredient.id", id))
	defer func() { run.End(err) }()

	n, err := s.dishes.CountUsing(ctx, id)
	if err != nil {
		run.Fail("REPO_COUNT_FAILED")
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
	if n > 0 {
		run.Fail("INGREDIENT_IN_USE")
		run.Annotate(observability.F("dishes", n))
		return fmt.Errorf("%w: linked to %d dish(es)", dominv.ErrInUse, n)
	}
	if err := s.ingredients.Delete(ctx, id); err != nil {
		if errors.Is(err, dominv.ErrNotFound) {
			run.Fail("INGREDIENT_NOT_FOUND")
			return err
		}
		run.Fail("REPO_DELETE_FAILED")
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
	return nil
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
		observability.L("endpoint", endpointAdjusted),
		observability.L("outcome", outcome),
	)
	s.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", endpointAdjusted),
	)
	return err
}
