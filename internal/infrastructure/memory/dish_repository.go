package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
)

type dishTable struct {
	mu     sync.RWMutex
	dishes map[string]*domain.Dish
}

type DishRepository struct {
	*dishTable
	ingredients *IngredientRepository
	gate        writeGate
}

// NewDishRepository hydrates dish links from the given ledger on every read.
func NewDishRepository(ingredients *IngredientRepository) *DishRepository {
	return &DishRepository{
		dishTable:   &dishTable{dishes: make(map[string]*domain.Dish)},
		ingredients: ingredients,
	}
}

func (r *DishRepository) Create(ctx context.Context, dish *domain.Dish) error {
	_ = ctx
	if dish == nil || dish.ID == "" {
		return fmt.Errorf("dish repository: id is required")
	}

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dishes[dish.ID]; exists {
		return fmt.Errorf("dish repository: duplicate id %s", dish.ID)
	}
	r.dishes[dish.ID] = stripLinks(dish)
	return nil
}

func (r *DishRepository) Get(ctx context.Context, id string) (*domain.Dish, error) {
	r.mu.RLock()
	dish, ok := r.dishes[id]
	if ok {
		dish = dish.Clone()
	}
	r.mu.RUnlock()

	if !ok {
		return nil, domain.ErrNotFound
	}
	r.hydrate(ctx, dish)
	return dish, nil
}

func (r *DishRepository) List(ctx context.Context, filter domain.Filter) ([]*domain.Dish, error) {
	r.mu.RLock()
	out := make([]*domain.Dish, 0, len(r.dishes))
	for _, d := range r.dishes {
		if filter.AvailableOnly && !d.Available {
			continue
		}
		if filter.PopularOnly && !d.Popular {
			continue
		}
		if filter.NewOnly && !d.New {
			continue
		}
		out = append(out, d.Clone())
	}
	r.mu.RUnlock()

	if filter.NewestFirst {
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID > out[j].ID
		})
	} else {
		sort.Slice(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	for _, d := range out {
		r.hydrate(ctx, d)
	}
	return out, nil
}

func (r *DishRepository) Update(ctx context.Context, dish *domain.Dish) error {
	_ = ctx
	if dish == nil || dish.ID == "" {
		return fmt.Errorf("dish repository: id is required")
	}

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dishes[dish.ID]; !exists {
		return domain.ErrNotFound
	}
	r.dishes[dish.ID] = stripLinks(dish)
	return nil
}

func (r *DishRepository) CountUsing(ctx context.Context, ingredientID string) (int, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, d := range r.dishes {
		for _, l := range d.Links {
			if l.IngredientID == ingredientID {
				n++
				break
			}
		}
	}
	return n, nil
}

// hydrate attaches the current ledger row to each link. Missing rows stay nil.
func (r *DishRepository) hydrate(ctx context.Context, dish *domain.Dish) {
	if r.ingredients == nil {
		return
	}
	for i, l := range dish.Links {
		ing, err := r.ingredients.Get(ctx, l.IngredientID)
		if err != nil {
			dish.Links[i].Ingredient = nil
			continue
		}
		dish.Links[i].Ingredient = ing
	}
}

// stripLinks stores only link ids and flags; ledger rows are always read fresh.
func stripLinks(dish *domain.Dish) *domain.Dish {
	c := dish.Clone()
	for i := range c.Links {
		c.Links[i].Ingredient = nil
	}
	return c
}

func (r *DishRepository) snapshot() map[string]*domain.Dish {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(map[string]*domain.Dish, len(r.dishes))
	for k, v := range r.dishes {
		snap[k] = v.Clone()
	}
	return snap
}

func (r *DishRepository) restore(snap map[string]*domain.Dish) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dishes = snap
}
