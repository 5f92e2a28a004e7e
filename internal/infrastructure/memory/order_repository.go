package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
)

type orderTable struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

type OrderRepository struct {
	*orderTable
	gate writeGate
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orderTable: &orderTable{
		orders: make(map[string]*domain.Order),
	}}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[order.ID]
	if !exists {
		return domain.ErrNotFound
	}
	next := stored.Clone()
	next.Status = order.Status
	next.UpdatedAt = order.UpdatedAt
	r.orders[order.ID] = next
	return nil
}

func (r *OrderRepository) snapshot() map[string]*domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(map[string]*domain.Order, len(r.orders))
	for k, v := range r.orders {
		snap[k] = v.Clone()
	}
	return snap
}

func (r *OrderRepository) restore(snap map[string]*domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = snap
}
