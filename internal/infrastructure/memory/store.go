package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/promo"
)

// Store groups the in-memory repositories and gives them a unit of work.
// A transaction holds the write gate for its whole run, so writes through the
// exported repositories wait for it and a rollback only undoes the transaction's own work.
type Store struct {
	gate sync.Mutex

	Ingredients *IngredientRepository
	Dishes      *DishRepository
	Carts       *CartRepository
	Orders      *OrderRepository
	Promos      *PromoRepository
}

func NewStore() *Store {
	s := &Store{}
	g := writeGate{mu: &s.gate}

	s.Ingredients = NewIngredientRepository()
	s.Ingredients.gate = g
	s.Dishes = NewDishRepository(s.Ingredients)
	s.Dishes.gate = g
	s.Carts = NewCartRepository()
	s.Carts.gate = g
	s.Orders = NewOrderRepository()
	s.Orders.gate = g
	s.Promos = NewPromoRepository()
	s.Promos.gate = g
	return s
}

func (s *Store) Repositories() application.Repositories {
	return application.Repositories{
		Ingredients: s.Ingredients,
		Dishes:      s.Dishes,
		Carts:       s.Carts,
		Orders:      s.Orders,
		Promos:      s.Promos,
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) (err error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	snap := s.snapshot()
	defer func() {
		if r := recover(); r != nil {
			s.restore(snap)
			panic(r)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, s.txRepositories())
}

// txRepositories shares the store's tables but skips the gate the caller already holds.
func (s *Store) txRepositories() application.Repositories {
	ingredients := &IngredientRepository{ingredientTable: s.Ingredients.ingredientTable}
	return application.Repositories{
		Ingredients: ingredients,
		Dishes:      &DishRepository{dishTable: s.Dishes.dishTable, ingredients: ingredients},
		Carts:       &CartRepository{cartTable: s.Carts.cartTable},
		Orders:      &OrderRepository{orderTable: s.Orders.orderTable},
		Promos:      &PromoRepository{promoTable: s.Promos.promoTable},
	}
}

// writeGate serialises plain writes against an open transaction. A zero gate is open.
type writeGate struct {
	mu *sync.Mutex
}

func (g writeGate) hold() func() {
	if g.mu == nil {
		return func() {}
	}
	g.mu.Lock()
	return g.mu.Unlock
}

type storeSnapshot struct {
	ingredients map[string]*inventory.Ingredient
	dishes      map[string]*menu.Dish
	carts       cartSnapshot
	orders      map[string]*order.Order
	promos      map[string]*promo.Code
}

func (s *Store) snapshot() storeSnapshot {
	return storeSnapshot{
		ingredients: s.Ingredients.snapshot(),
		dishes:      s.Dishes.snapshot(),
		carts:       s.Carts.snapshot(),
		orders:      s.Orders.snapshot(),
		promos:      s.Promos.snapshot(),
	}
}

func (s *Store) restore(snap storeSnapshot) {
	s.Ingredients.restore(snap.ingredients)
	s.Dishes.restore(snap.dishes)
	s.Carts.restore(snap.carts)
	s.Orders.restore(snap.orders)
	s.Promos.restore(snap.promos)
}
