package inventory

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultUnit           = "unité"
	DefaultAlertThreshold = 5
)

var (
	ErrNotFound          = errors.New("inventory: ingredient not found")
	ErrDuplicateName     = errors.New("inventory: ingredient name already exists")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrInUse             = errors.New("inventory: ingredient is used by a dish")
	ErrNameRequired      = errors.New("inventory: name is required")
)

// Ingredient is a ledger entry. Stock is signed; the legacy decrement path may push it below zero.
type Ingredient struct {
	ID             string
	Name           string
	Stock          float64
	Unit           string
	AlertThreshold float64
	UnitPrice      decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewIngredient(id, name string, stock float64, unit string, unitPrice decimal.Decimal) (*Ingredient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if unit == "" {
		unit = DefaultUnit
	}
	now := time.Now().UTC()
	return &Ingredient{
		ID:             id,
		Name:           name,
		Stock:          stock,
		Unit:           unit,
		AlertThreshold: DefaultAlertThreshold,
		UnitPrice:      unitPrice,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// InStock reports whether any stock remains. Zero and negative both count as exhausted.
func (i *Ingredient) InStock() bool { return i.Stock > 0 }

func (i *Ingredient) LowStock() bool { return i.Stock <= i.AlertThreshold }

// Deduct removes quantity only when enough stock remains.
func (i *Ingredient) Deduct(quantity float64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > i.Stock {
		return ErrInsufficientStock
	}
	i.Stock -= quantity
	i.touch()
	return nil
}

// ForceDeduct removes quantity unconditionally, allowing the stock to go negative.
func (i *Ingredient) ForceDeduct(quantity float64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	i.Stock -= quantity
	i.touch()
	return nil
}

// Adjust applies a manual correction. It is the only path that adds stock back, and it never
// takes stock below zero.
func (i *Ingredient) Adjust(delta float64) error {
	if delta == 0 {
		return ErrInvalidQuantity
	}
	if delta < 0 && i.Stock+delta < 0 {
		return ErrInsufficientStock
	}
	i.Stock += delta
	i.touch()
	return nil
}

func (i *Ingredient) Clone() *Ingredient {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// SameName compares ingredient names the way customizations reference them.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (i *Ingredient) touch() {
	i.UpdatedAt = time.Now().UTC()
}
