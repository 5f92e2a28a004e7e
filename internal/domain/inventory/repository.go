package inventory

import "context"

type Repository interface {
	Create(ctx context.Context, ingredient *Ingredient) error
	Get(ctx context.Context, id string) (*Ingredient, error)
	// FindByName matches case-insensitively and returns ErrNotFound when nothing matches.
	FindByName(ctx context.Context, name string) (*Ingredient, error)
	List(ctx context.Context) ([]*Ingredient, error)
	// ListLowStock returns ingredients at or under their alert threshold, lowest stock first.
	ListLowStock(ctx context.Context) ([]*Ingredient, error)
	// Deduct atomically removes quantity when stock >= quantity, else returns ErrInsufficientStock.
	Deduct(ctx context.Context, id string, quantity float64) error
	// ForceDeduct removes quantity without checking the remaining stock.
	ForceDeduct(ctx context.Context, id string, quantity float64) error
	Adjust(ctx context.Context, id string, delta float64) (*Ingredient, error)
	Delete(ctx context.Context, id string) error
}
