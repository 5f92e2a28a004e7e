package cart

import "context"

type Repository interface {
	Add(ctx context.Context, item *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	Update(ctx context.Context, item *Item) error
	// Remove deletes a line only when it belongs to userID.
	Remove(ctx context.Context, userID, id string) error
	// ListByUser returns the user's lines in insertion order.
	ListByUser(ctx context.Context, userID string) ([]*Item, error)
	ClearByUser(ctx context.Context, userID string) (int, error)
}
