package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/promotion"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/outbox"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	checkoutService       = "checkout-service"
	useCaseConfirm        = "order.confirm"
	publishPeer           = "outbox"
	defaultPublishTimeout = 300 * time.Millisecond
	defaultCurrency       = "DA"
)

type Config struct {
	Policy         StockPolicy
	Currency       string
	PublishTimeout time.Duration
}

// ConfirmOrderUseCase turns a user's cart into an order.
type ConfirmOrderUseCase struct {
	store     application.Transactor
	promos    *promotion.Engine
	ids       application.IDGenerator
	publisher domoutbox.Publisher
	cfg       Config

	in            application.Instrument
	extCounter    observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram  observability.Histogram // external_request_duration_seconds{peer,endpoint}
	stockFailures observability.Counter   // stock_decrement_failures_total{mode}
}

func NewConfirmOrderUseCase(
	store application.Transactor,
	promos *promotion.Engine,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	cfg Config,
	tel observability.Observability,
) *ConfirmOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyStrict
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if promos == nil {
		promos = promotion.NewEngine(nil)
	}
	m := tel.Metrics()
	return &ConfirmOrderUseCase{
		store:         store,
		promos:        promos,
		ids:           ids,
		publisher:     publisher,
		cfg:           cfg,
		in:            application.NewInstrument(tel, checkoutService),
		extCounter:    m.Counter(observability.MExternalRequests),
		extHistogram:  m.Histogram(observability.MExternalRequestDuration),
		stockFailures: m.Counter(observability.MStockDecrementFailures),
	}
}

type ConfirmOrderInput struct {
	UserID    string
	PromoCode string
}

type ConfirmOrderResult struct {
	Message   string
	Order     *order.Order
	Promotion promotion.Result
	// StockFailures lists decrements skipped under the best-effort policy.
	StockFailures []DecrementFailure
}

// Execute validates the whole cart, prices it, persists the order, consumes stock, clears the
// cart and announces the order. Nothing is written when validation fails.
func (uc *ConfirmOrderUseCase) Execute(ctx context.Context, cmd ConfirmOrderInput) (_ *ConfirmOrderResult, err error) {
	ctx, run := uc.in.Start(ctx, useCaseConfirm, "ConfirmOrder",
		attribute.String("order.user_id", cmd.UserID),
		attribute.String("checkout.stock_policy", string(uc.cfg.Policy)),
	)
	defer func() { run.End(err) }()

	if cmd.UserID == "" {
		run.Fail("USER_ID_REQUIRED")
		return nil, newValidation(ErrUserRequired)
	}
	if err := ctx.Err(); err != nil {
		run.Fail("CONTEXT_CANCELED")
		return nil, err
	}

	repos := uc.store.Repositories()
	items, err := repos.Carts.ListByUser(ctx, cmd.UserID)
	if err != nil {
		run.Fail("CART_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	if len(items) == 0 {
		run.Fail("CART_EMPTY")
		return nil, newValidation(ErrCartEmpty)
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		dish, derr := repos.Dishes.Get(ctx, item.DishID)
		if derr != nil {
			if errors.Is(wrapRepositoryError(derr), ErrDishNotFound) {
				run.Fail("DISH_NOT_FOUND")
			} else {
				run.Fail("DISH_LOOKUP_FAILED")
			}
			return nil, wrapRepositoryError(derr)
		}
		line, rerr := Resolve(ctx, repos.Ingredients, dish, item)
		if rerr != nil {
			run.Fail("CUSTOMIZATION_RESOLVE_FAILED")
			return nil, rerr
		}
		lines = append(lines, line)
	}

	if err := ValidateStock(ctx, repos.Ingredients, lines); err != nil {
		var se *StockError
		if errors.As(err, &se) {
			run.Fail("OUT_OF_STOCK")
			run.Span.SetAttributes(attribute.String("checkout.exhausted_ingredient", se.Ingredient))
		} else {
			run.Fail("STOCK_LOOKUP_FAILED")
		}
		return nil, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}

	var placed *order.Order
	var promoRes promotion.Result
	var failures []DecrementFailure
	moves := Movements(lines)

	switch uc.cfg.Policy {
	case PolicyBestEffort:
		placed, promoRes, err = uc.place(ctx, run, repos, cmd, lines, subtotal)
		if err != nil {
			return nil, err
		}
		failures = applyBestEffort(ctx, repos.Ingredients, moves)
		uc.reportFailures(run.Logger, placed.ID, failures)
		if _, cerr := repos.Carts.ClearByUser(ctx, cmd.UserID); cerr != nil {
			run.Fail("CART_CLEAR_FAILED")
			return nil, wrapRepositoryError(cerr)
		}
	default:
		err = uc.store.WithinTx(ctx, func(ctx context.Context, tx application.Repositories) error {
			var perr error
			placed, promoRes, perr = uc.place(ctx, run, tx, cmd, lines, subtotal)
			if perr != nil {
				return perr
			}
			if serr := applyStrict(ctx, tx.Ingredients, moves); serr != nil {
				var se *StockError
				if errors.As(serr, &se) {
					run.Fail("INSUFFICIENT_STOCK")
				} else {
					run.Fail("STOCK_DECREMENT_FAILED")
				}
				return serr
			}
			if _, cerr := tx.Carts.ClearByUser(ctx, cmd.UserID); cerr != nil {
				run.Fail("CART_CLEAR_FAILED")
				return wrapRepositoryError(cerr)
			}
			return nil
		})
		if err != nil {
			if run.Outcome == "success" {
				run.Fail("TX_FAILED")
				err = wrapRepositoryError(err)
			}
			return nil, err
		}
	}

	publishErr := uc.publish(ctx, placed, lines)
	if publishErr != nil {
		run.Status = "EVENT_PUBLISH_FAILED"
		run.Annotate(observability.F("event_publish_error", publishErr.Error()))
	}

	run.Span.SetAttributes(
		attribute.String("order.id", placed.ID),
		attribute.String("order.total", placed.Total.String()),
		attribute.Bool("promo.applied", promoRes.Applied),
	)
	run.Span.AddEvent("order.confirmed", trace.WithAttributes(attribute.String("order.id", placed.ID)))
	run.Annotate(
		observability.F("order_id", placed.ID),
		observability.F("total", placed.Total.String()),
		observability.F("lines", len(lines)),
		observability.F("promo_applied", promoRes.Applied),
	)

	return &ConfirmOrderResult{
		Message:       fmt.Sprintf("Order #%s confirmed! Total: %s %s", placed.ID, placed.Total.StringFixed(2), uc.cfg.Currency),
		Order:         placed,
		Promotion:     promoRes,
		StockFailures: failures,
	}, nil
}

// place applies the promotion and inserts the order with its frozen items.
func (uc *ConfirmOrderUseCase) place(
	ctx context.Context,
	run *application.Run,
	repos application.Repositories,
	cmd ConfirmOrderInput,
	lines []Line,
	subtotal decimal.Decimal,
) (*order.Order, promotion.Result, error) {
	promoRes, err := uc.promos.Apply(ctx, repos.Promos, cmd.PromoCode, subtotal)
	if err != nil {
		run.Fail("PROMO_APPLY_FAILED")
		return nil, promoRes, wrapRepositoryError(err)
	}

	orderID := uc.ids.NewID()
	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, order.Item{
			ID:            uc.ids.NewID(),
			DishID:        l.Dish.ID,
			DishName:      l.Dish.Name,
			UnitPrice:     l.UnitPrice,
			Quantity:      l.Item.Quantity,
			Customization: l.Item.Customization.Clone(),
		})
	}

	entity, derr := order.New(orderID, cmd.UserID, items, subtotal, promoRes.Discount, promoRes.Code)
	if derr != nil {
		run.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, promoRes, fmt.Errorf("checkout: construct order: %w", derr)
	}
	if err := repos.Orders.Insert(ctx, entity); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, promoRes, wrapRepositoryError(err)
	}
	return entity, promoRes, nil
}

func (uc *ConfirmOrderUseCase) reportFailures(logger observability.Logger, orderID string, failures []DecrementFailure) {
	for _, f := range failures {
		logger.Warn("stock_decrement_failed",
			observability.F("order_id", orderID),
			observability.F("ingredient_id", f.Movement.IngredientID),
			observability.F("dish_id", f.Movement.DishID),
			observability.F("quantity", f.Movement.Quantity),
			observability.F("error", f.Err.Error()),
		)
		if uc.stockFailures != nil {
			uc.stockFailures.Add(1, observability.L("mode", string(PolicyBestEffort)))
		}
	}
}

// publish announces the order without waiting on listeners. A failure is reported, never retried.
func (uc *ConfirmOrderUseCase) publish(ctx context.Context, placed *order.Order, lines []Line) error {
	if uc.publisher == nil {
		return nil
	}
	details := make([]order.LineDetail, 0, len(lines))
	for _, l := range lines {
		details = append(details, lineDetail(l.Item, l.Dish.Name))
	}

	pubCtx, cancel := context.WithTimeout(ctx, uc.cfg.PublishTimeout)
	defer cancel()
	start := time.Now()
	outcome := "success"

	err := uc.publisher.Publish(pubCtx, order.NewPlacedEvent(placed, details))
	if err != nil {
		outcome = "error"
		if pubCtx.Err() != nil {
			outcome = "canceled"
		}
	}

	if uc.extCounter != nil {
		uc.extCounter.Add(1,
			observability.L("peer", publishPeer),
			observability.L("endpoint", order.EventNewOrder),
			observability.L("outcome", outcome),
		)
	}
	if uc.extHistogram != nil {
		uc.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", publishPeer),
			observability.L("endpoint", order.EventNewOrder),
		)
	}
	return err
}

func lineDetail(item *cart.Item, dishName string) order.LineDetail {
	return order.LineDetail{
		ID:            item.ID,
		DishID:        item.DishID,
		DishName:      dishName,
		Quantity:      item.Quantity,
		Customization: item.Customization.Clone(),
	}
}
