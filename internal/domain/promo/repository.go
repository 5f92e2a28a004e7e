package promo

import "context"

type Repository interface {
	Create(ctx context.Context, code *Code) error
	// FindActive returns the active code matching exactly, else ErrNotFound.
	FindActive(ctx context.Context, code string) (*Code, error)
	IncrementUsage(ctx context.Context, code string) error
}
