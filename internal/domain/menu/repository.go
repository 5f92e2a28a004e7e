package menu

import "context"

const (
	PopularLimit = 6
	NewestLimit  = 3
)

// Filter narrows dish listings. The zero value lists every dish in name order.
type Filter struct {
	AvailableOnly bool
	PopularOnly   bool
	NewOnly       bool
	NewestFirst   bool
	Limit         int
}

type Repository interface {
	Create(ctx context.Context, dish *Dish) error
	// Get loads the dish with its links and their current ledger rows.
	Get(ctx context.Context, id string) (*Dish, error)
	List(ctx context.Context, filter Filter) ([]*Dish, error)
	Update(ctx context.Context, dish *Dish) error
	// CountUsing reports how many dishes link the ingredient, as base or extra.
	CountUsing(ctx context.Context, ingredientID string) (int, error)
}
