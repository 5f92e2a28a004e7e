package checkout

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
)

// ValidateStock is the whole-cart pre-flight check. It re-reads every required ingredient and
// fails on the first one with no stock left. It never writes.
func ValidateStock(ctx context.Context, ingredients inventory.Repository, lines []Line) error {
	for _, line := range lines {
		for _, link := range line.Base {
			ing, err := ingredients.Get(ctx, link.IngredientID)
			if errors.Is(err, inventory.ErrNotFound) {
				continue
			}
			if err != nil {
				return wrapRepositoryError(err)
			}
			if !ing.InStock() {
				return &StockError{Ingredient: ing.Name, Dish: line.Dish.Name}
			}
		}
		for _, extra := range line.Extras {
			if !extra.Tracked() {
				continue
			}
			ing, err := ingredients.Get(ctx, extra.IngredientID)
			if errors.Is(err, inventory.ErrNotFound) {
				continue
			}
			if err != nil {
				return wrapRepositoryError(err)
			}
			if !ing.InStock() {
				return &StockError{Ingredient: ing.Name, Dish: line.Dish.Name, Extra: true}
			}
		}
	}
	return nil
}
