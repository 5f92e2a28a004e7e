package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/promo"
	"github.com/shopspring/decimal"
)

var ErrRepository = errors.New("promotion: repository failure")

// Result describes the discount applied to a subtotal. Applied is false when the code was
// absent, unknown, inactive, expired or below its minimum; Total is then the subtotal.
type Result struct {
	Code     string
	Applied  bool
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

type Engine struct {
	now func() time.Time
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Apply prices subtotal with the given code and counts one usage when the code applies.
// Codes that cannot apply are ignored without error.
func (e *Engine) Apply(ctx context.Context, codes promo.Repository, code string, subtotal decimal.Decimal) (Result, error) {
	res := Result{Subtotal: subtotal, Discount: decimal.Zero, Total: subtotal}
	code = strings.TrimSpace(code)
	if code == "" {
		return res, nil
	}

	pc, err := codes.FindActive(ctx, code)
	switch {
	case errors.Is(err, promo.ErrNotFound):
		return res, nil
	case err != nil:
		return res, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	if !pc.Applicable(subtotal, e.now()) {
		return res, nil
	}

	if err := codes.IncrementUsage(ctx, pc.Code); err != nil {
		return res, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	discount := pc.Discount(subtotal)
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Result{
		Code:     pc.Code,
		Applied:  true,
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
	}, nil
}
