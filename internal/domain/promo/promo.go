package promo

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("promo: code not found")
	ErrCodeRequired  = errors.New("promo: code is required")
	ErrInvalidValue  = errors.New("promo: discount value must be greater than zero")
	ErrInvalidType   = errors.New("promo: unknown discount type")
	ErrDuplicateCode = errors.New("promo: code already exists")
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountAmount     DiscountType = "amount"
)

var hundred = decimal.NewFromInt(100)

type Code struct {
	Code           string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount decimal.Decimal
	ExpiresAt      *time.Time
	Active         bool
	CurrentUses    int
	CreatedAt      time.Time
}

func NewCode(code string, typ DiscountType, value, minOrder decimal.Decimal, expiresAt *time.Time) (*Code, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeRequired
	}
	if typ != DiscountPercentage && typ != DiscountAmount {
		return nil, ErrInvalidType
	}
	if !value.IsPositive() {
		return nil, ErrInvalidValue
	}
	return &Code{
		Code:           code,
		DiscountType:   typ,
		DiscountValue:  value,
		MinOrderAmount: minOrder,
		ExpiresAt:      expiresAt,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Expired is true once now is past ExpiresAt. A code without expiry never expires.
func (c *Code) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Applicable reports whether the code may discount this subtotal at this time.
func (c *Code) Applicable(subtotal decimal.Decimal, now time.Time) bool {
	if !c.Active || c.Expired(now) {
		return false
	}
	return !subtotal.LessThan(c.MinOrderAmount)
}

// Discount computes the reduction for subtotal, capped so the total never drops below zero.
func (c *Code) Discount(subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		d = subtotal.Mul(c.DiscountValue).Div(hundred)
	case DiscountAmount:
		d = c.DiscountValue
	default:
		return decimal.Zero
	}
	if d.GreaterThan(subtotal) {
		return subtotal
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func (c *Code) Clone() *Code {
	if c == nil {
		return nil
	}
	cp := *c
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		cp.ExpiresAt = &t
	}
	return &cp
}
