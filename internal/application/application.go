package application

import (
	"context"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/promo"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// Repositories is the set of stores a unit of work can touch.
type Repositories struct {
	Ingredients inventory.Repository
	Dishes      menu.Repository
	Carts       cart.Repository
	Orders      order.Repository
	Promos      promo.Repository
}

// Transactor runs fn so that every write made through repos commits together or not at all.
type Transactor interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// IDGenerator hands out identifiers for new entities.
type IDGenerator interface {
	NewID() string
}
