package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
)

type ingredientTable struct {
	mu    sync.RWMutex
	items map[string]*domain.Ingredient
}

type IngredientRepository struct {
	*ingredientTable
	gate writeGate
}

func NewIngredientRepository() *IngredientRepository {
	return &IngredientRepository{ingredientTable: &ingredientTable{
		items: make(map[string]*domain.Ingredient),
	}}
}

func (r *IngredientRepository) Create(ctx context.Context, ing *domain.Ingredient) error {
	_ = ctx
	if ing == nil || ing.ID == "" {
		return fmt.Errorf("ingredient repository: id is required")
	}

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.ID == ing.ID || domain.SameName(existing.Name, ing.Name) {
			return domain.ErrDuplicateName
		}
	}
	r.items[ing.ID] = ing.Clone()
	return nil
}

func (r *IngredientRepository) Get(ctx context.Context, id string) (*domain.Ingredient, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	ing, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ing.Clone(), nil
}

func (r *IngredientRepository) FindByName(ctx context.Context, name string) (*domain.Ingredient, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ing := range r.sortedLocked() {
		if domain.SameName(ing.Name, name) {
			return ing.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *IngredientRepository) List(ctx context.Context) ([]*domain.Ingredient, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Ingredient, 0, len(r.items))
	for _, ing := range r.sortedLocked() {
		out = append(out, ing.Clone())
	}
	return out, nil
}

func (r *IngredientRepository) ListLowStock(ctx context.Context) ([]*domain.Ingredient, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Ingredient, 0)
	for _, ing := range all {
		if ing.LowStock() {
			out = append(out, ing)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out, nil
}

func (r *IngredientRepository) Deduct(ctx context.Context, id string, quantity float64) error {
	return r.mutate(ctx, id, func(ing *domain.Ingredient) error { return ing.Deduct(quantity) })
}

func (r *IngredientRepository) ForceDeduct(ctx context.Context, id string, quantity float64) error {
	return r.mutate(ctx, id, func(ing *domain.Ingredient) error { return ing.ForceDeduct(quantity) })
}

func (r *IngredientRepository) Adjust(ctx context.Context, id string, delta float64) (*domain.Ingredient, error) {
	var out *domain.Ingredient
	err := r.mutate(ctx, id, func(ing *domain.Ingredient) error {
		if err := ing.Adjust(delta); err != nil {
			return err
		}
		out = ing.Clone()
		return nil
	})
	return out, err
}

func (r *IngredientRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// mutate applies fn to a copy and stores it only when fn succeeds.
func (r *IngredientRepository) mutate(ctx context.Context, id string, fn func(*domain.Ingredient) error) error {
	_ = ctx

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	ing, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	next := ing.Clone()
	if err := fn(next); err != nil {
		return err
	}
	r.items[id] = next
	return nil
}

func (r *IngredientRepository) sortedLocked() []*domain.Ingredient {
	out := make([]*domain.Ingredient, 0, len(r.items))
	for _, ing := range r.items {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *IngredientRepository) snapshot() map[string]*domain.Ingredient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(map[string]*domain.Ingredient, len(r.items))
	for k, v := range r.items {
		snap[k] = v.Clone()
	}
	return snap
}

func (r *IngredientRepository) restore(snap map[string]*domain.Ingredient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = snap
}
