package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
)

// StockPolicy selects how the decrement pass treats the ledger.
type StockPolicy string

const (
	// PolicyStrict decrements only when enough stock remains and aborts the checkout otherwise.
	// It is meant to run inside the checkout transaction.
	PolicyStrict StockPolicy = "strict"
	// PolicyBestEffort decrements unconditionally and skips failures after logging them.
	PolicyBestEffort StockPolicy = "best_effort"
)

func ParseStockPolicy(s string) (StockPolicy, error) {
	switch p := StockPolicy(s); p {
	case PolicyStrict, PolicyBestEffort:
		return p, nil
	case "":
		return PolicyStrict, nil
	}
	return "", fmt.Errorf("checkout: unknown stock policy %q", s)
}

// Movement is one ledger decrement required by a placed order.
type Movement struct {
	IngredientID string
	Ingredient   string
	Dish         string
	DishID       string
	Extra        bool
	Quantity     float64
}

// Movements lists the decrements for the given lines: each kept base ingredient and each
// tracked extra, once per line, by the line quantity. Removed ingredients and unbound extras
// produce nothing.
func Movements(lines []Line) []Movement {
	var out []Movement
	for _, line := range lines {
		qty := float64(line.Item.Quantity)
		for _, link := range line.Base {
			if link.Ingredient == nil {
				continue
			}
			out = append(out, Movement{
				IngredientID: link.IngredientID,
				Ingredient:   link.Ingredient.Name,
				Dish:         line.Dish.Name,
				DishID:       line.Dish.ID,
				Quantity:     qty,
			})
		}
		for _, extra := range line.Extras {
			if !extra.Tracked() {
				continue
			}
			out = append(out, Movement{
				IngredientID: extra.IngredientID,
				Ingredient:   extra.Name,
				Dish:         line.Dish.Name,
				DishID:       line.Dish.ID,
				Extra:        true,
				Quantity:     qty,
			})
		}
	}
	return out
}

// DecrementFailure is a movement the best-effort pass could not apply.
type DecrementFailure struct {
	Movement Movement
	Err      error
}

// rowLocker is implemented by ledgers that can pin rows for the rest of a transaction.
type rowLocker interface {
	Lock(ctx context.Context, ids []string) error
}

// applyStrict stops at the first movement the ledger refuses.
func applyStrict(ctx context.Context, ingredients inventory.Repository, moves []Movement) error {
	if locker, ok := ingredients.(rowLocker); ok {
		seen := make(map[string]struct{}, len(moves))
		ids := make([]string, 0, len(moves))
		for _, m := range moves {
			if _, dup := seen[m.IngredientID]; !dup {
				seen[m.IngredientID] = struct{}{}
				ids = append(ids, m.IngredientID)
			}
		}
		if err := locker.Lock(ctx, ids); err != nil {
			return wrapRepositoryError(err)
		}
	}
	for _, m := range moves {
		err := ingredients.Deduct(ctx, m.IngredientID, m.Quantity)
		switch {
		case err == nil, errors.Is(err, inventory.ErrNotFound):
			continue
		case errors.Is(err, inventory.ErrInsufficientStock):
			return &StockError{Ingredient: m.Ingredient, Dish: m.Dish, Extra: m.Extra, Insufficient: true}
		default:
			return wrapRepositoryError(err)
		}
	}
	return nil
}

// applyBestEffort applies every movement it can and reports the ones that failed.
func applyBestEffort(ctx context.Context, ingredients inventory.Repository, moves []Movement) []DecrementFailure {
	var failed []DecrementFailure
	for _, m := range moves {
		if err := ingredients.ForceDeduct(ctx, m.IngredientID, m.Quantity); err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				continue
			}
			failed = append(failed, DecrementFailure{Movement: m, Err: err})
		}
	}
	return failed
}
