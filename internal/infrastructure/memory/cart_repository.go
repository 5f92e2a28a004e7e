package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
)

type cartTable struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
	seq   map[string]uint64
	next  uint64
}

type CartRepository struct {
	*cartTable
	gate writeGate
}

func NewCartRepository() *CartRepository {
	return &CartRepository{cartTable: &cartTable{
		items: make(map[string]*domain.Item),
		seq:   make(map[string]uint64),
	}}
}

func (r *CartRepository) Add(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil || item.ID == "" {
		return fmt.Errorf("cart repository: id is required")
	}

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return fmt.Errorf("cart repository: duplicate id %s", item.ID)
	}
	r.next++
	r.items[item.ID] = item.Clone()
	r.seq[item.ID] = r.next
	return nil
}

func (r *CartRepository) Get(ctx context.Context, id string) (*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return item.Clone(), nil
}

func (r *CartRepository) Update(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil || item.ID == "" {
		return fmt.Errorf("cart repository: id is required")
	}

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		return domain.ErrNotFound
	}
	r.items[item.ID] = item.Clone()
	return nil
}

func (r *CartRepository) Remove(ctx context.Context, userID, id string) error {
	_ = ctx

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	delete(r.seq, id)
	return nil
}

func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Item, 0)
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.seq[out[i].ID] < r.seq[out[j].ID] })
	return out, nil
}

func (r *CartRepository) ClearByUser(ctx context.Context, userID string) (int, error) {
	_ = ctx

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, item := range r.items {
		if item.UserID == userID {
			delete(r.items, id)
			delete(r.seq, id)
			n++
		}
	}
	return n, nil
}

type cartSnapshot struct {
	items map[string]*domain.Item
	seq   map[string]uint64
}

func (r *CartRepository) snapshot() cartSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := cartSnapshot{
		items: make(map[string]*domain.Item, len(r.items)),
		seq:   make(map[string]uint64, len(r.seq)),
	}
	for k, v := range r.items {
		snap.items[k] = v.Clone()
	}
	for k, v := range r.seq {
		snap.seq[k] = v
	}
	return snap
}

func (r *CartRepository) restore(snap cartSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = snap.items
	r.seq = snap.seq
}
