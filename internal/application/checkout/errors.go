package checkout

import (
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
)

var (
	ErrCartEmpty    = errors.New("checkout: cart is empty")
	ErrDishNotFound = errors.New("checkout: dish is no longer on the menu")
	ErrRepository   = errors.New("checkout: repository failure")
	ErrUserRequired = errors.New("checkout: user id is required")
)

// StockError blocks a checkout because an ingredient ran out. Its message is shown to the customer.
type StockError struct {
	Ingredient string
	Dish       string
	// Extra is set when the exhausted ingredient was an added option rather than part of the recipe.
	Extra bool
	// Insufficient is set when stock exists but does not cover the ordered quantity.
	Insufficient bool
}

func (e *StockError) Error() string {
	switch {
	case e.Extra && e.Insufficient:
		return fmt.Sprintf("Not enough %q left for the extra on %q", e.Ingredient, e.Dish)
	case e.Extra:
		return fmt.Sprintf("The extra %q is out of stock", e.Ingredient)
	case e.Insufficient:
		return fmt.Sprintf("Not enough %q left to prepare %q", e.Ingredient, e.Dish)
	default:
		return fmt.Sprintf("Sorry, %q is out of stock for the dish %q", e.Ingredient, e.Dish)
	}
}

func (e *StockError) Unwrap() error { return inventory.ErrInsufficientStock }

// newValidation tags err with the prefix the HTTP layer maps to 400.
func newValidation(err error) error {
	return fmt.Errorf("validation: %w", err)
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, menu.ErrNotFound):
		return ErrDishNotFound
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}
