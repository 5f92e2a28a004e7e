package inventory

import "time"

// StockAdjustedEvent is emitted after a manual stock correction.
type StockAdjustedEvent struct {
	IngredientID string
	Name         string
	Delta        float64
	Stock        float64
	OccurredAt   time.Time
}

func (StockAdjustedEvent) EventName() string { return "inventory.stock_adjusted" }

func (e StockAdjustedEvent) EventKey() string { return e.IngredientID }

func NewStockAdjustedEvent(i *Ingredient, delta float64) StockAdjustedEvent {
	return StockAdjustedEvent{
		IngredientID: i.ID,
		Name:         i.Name,
		Delta:        delta,
		Stock:        i.Stock,
		OccurredAt:   time.Now().UTC(),
	}
}
