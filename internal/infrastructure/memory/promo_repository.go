package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/promo"
)

type promoTable struct {
	mu    sync.RWMutex
	codes map[string]*domain.Code
}

type PromoRepository struct {
	*promoTable
	gate writeGate
}

func NewPromoRepository() *PromoRepository {
	return &PromoRepository{promoTable: &promoTable{
		codes: make(map[string]*domain.Code),
	}}
}

func (r *PromoRepository) Create(ctx context.Context, code *domain.Code) error {
	_ = ctx

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.codes[code.Code]; exists {
		return domain.ErrDuplicateCode
	}
	r.codes[code.Code] = code.Clone()
	return nil
}

// FindActive matches the code exactly, case included.
func (r *PromoRepository) FindActive(ctx context.Context, code string) (*domain.Code, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.codes[code]
	if !ok || !c.Active {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *PromoRepository) IncrementUsage(ctx context.Context, code string) error {
	_ = ctx

	defer r.gate.hold()()
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[code]
	if !ok {
		return domain.ErrNotFound
	}
	next := c.Clone()
	next.CurrentUses++
	r.codes[code] = next
	return nil
}

// Get returns a code whatever its state; used to inspect usage counters.
func (r *PromoRepository) Get(ctx context.Context, code string) (*domain.Code, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.codes[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *PromoRepository) snapshot() map[string]*domain.Code {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(map[string]*domain.Code, len(r.codes))
	for k, v := range r.codes {
		snap[k] = v.Clone()
	}
	return snap
}

func (r *PromoRepository) restore(snap map[string]*domain.Code) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = snap
}
