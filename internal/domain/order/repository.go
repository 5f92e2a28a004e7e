package order

import "context"

type Repository interface {
	// Insert stores the order together with its items.
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// ListByUser returns the user's orders newest first.
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	// UpdateStatus persists the status and UpdatedAt of an existing order.
	UpdateStatus(ctx context.Context, order *Order) error
}
