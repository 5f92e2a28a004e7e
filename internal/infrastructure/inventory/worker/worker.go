package worker

import (
	"context"
	"fmt"

	dominventory "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/outbox"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability/logctx"
)

const componentStockWatcher = "stock_watcher"

// Worker raises low_stock_alert log lines after anything that moves stock: a placed order or a
// manual adjustment.
type Worker struct {
	subscriber  domoutbox.Subscriber
	ingredients dominventory.Repository
	log         observability.Logger
}

func New(subscriber domoutbox.Subscriber, ingredients dominventory.Repository, logger observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Worker{
		subscriber:  subscriber,
		ingredients: ingredients,
		log:         logger.With(observability.F("component", componentStockWatcher)),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.ingredients == nil {
		return
	}
	w.subscriber.Subscribe(domorder.EventNewOrder, w.handleOrderPlaced)
	w.subscriber.Subscribe(dominventory.StockAdjustedEvent{}.EventName(), w.handleStockAdjusted)
}

func (w *Worker) handleOrderPlaced(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.PlacedEvent)
	if !ok {
		return nil
	}
	low, err := w.ingredients.ListLowStock(ctx)
	if err != nil {
		logctx.FromOr(ctx, w.log).Warn("low_stock_scan_failed",
			observability.F("order_id", evt.Order.ID),
			observability.F("error", err),
		)
		return fmt.Errorf("stock watcher: list low stock: %w", err)
	}
	logger := logctx.FromOr(ctx, w.log).With(observability.F("order_id", evt.Order.ID))
	for _, ing := range low {
		alert(logger, ing)
	}
	return nil
}

func (w *Worker) handleStockAdjusted(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dominventory.StockAdjustedEvent)
	if !ok {
		return nil
	}
	logger := logctx.FromOr(ctx, w.log)
	logger.Info("stock_adjusted",
		observability.F("ingredient_id", evt.IngredientID),
		observability.F("delta", evt.Delta),
		observability.F("stock", evt.Stock),
	)

	ing, err := w.ingredients.Get(ctx, evt.IngredientID)
	if err != nil {
		return fmt.Errorf("stock watcher: get ingredient: %w", err)
	}
	if ing.LowStock() {
		alert(logger, ing)
	}
	return nil
}

func alert(logger observability.Logger, ing *dominventory.Ingredient) {
	logger.Warn("low_stock_alert",
		observability.F("ingredient_id", ing.ID),
		observability.F("ingredient", ing.Name),
		observability.F("stock", ing.Stock),
		observability.F("alert_threshold", ing.AlertThreshold),
		observability.F("unit", ing.Unit),
	)
}
