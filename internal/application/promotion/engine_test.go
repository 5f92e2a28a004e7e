package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/promo"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedCodes(t *testing.T) *memory.PromoRepository {
	t.Helper()
	repo := memory.NewPromoRepository()
	past := now.Add(-time.Minute)

	mk := func(code string, typ promo.DiscountType, value, min string, exp *time.Time, active bool) {
		pc, err := promo.NewCode(code, typ, dec(value), dec(min), exp)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pc.Active = active
		if err := repo.Create(context.Background(), pc); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	mk("SAVE10", promo.DiscountPercentage, "10", "500", nil, true)
	mk("MOINS200", promo.DiscountAmount, "200", "1500", nil, true)
	mk("OLD", promo.DiscountPercentage, "50", "0", &past, true)
	mk("OFF", promo.DiscountPercentage, "50", "0", nil, false)
	return repo
}

func TestApply(t *testing.T) {
	cases := []struct {
		name         string
		code         string
		subtotal     string
		wantApplied  bool
		wantDiscount string
		wantTotal    string
	}{
		{"no code", "", "1100", false, "0", "1100"},
		{"percentage", "SAVE10", "1100", true, "110", "990"},
		{"padded code", "  SAVE10 ", "1100", true, "110", "990"},
		{"below minimum", "MOINS200", "1499", false, "0", "1499"},
		{"amount", "MOINS200", "1500", true, "200", "1300"},
		{"expired", "OLD", "1100", false, "0", "1100"},
		{"inactive", "OFF", "1100", false, "0", "1100"},
		{"unknown", "NOPE", "1100", false, "0", "1100"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := seedCodes(t)
			e := NewEngine(func() time.Time { return now })

			res, err := e.Apply(context.Background(), repo, tc.code, dec(tc.subtotal))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Applied != tc.wantApplied {
				t.Errorf("Applied = %v, want %v", res.Applied, tc.wantApplied)
			}
			if !res.Discount.Equal(dec(tc.wantDiscount)) {
				t.Errorf("Discount = %s, want %s", res.Discount, tc.wantDiscount)
			}
			if !res.Total.Equal(dec(tc.wantTotal)) {
				t.Errorf("Total = %s, want %s", res.Total, tc.wantTotal)
			}
		})
	}
}

func TestApplyCountsUsageOnlyWhenApplied(t *testing.T) {
	repo := seedCodes(t)
	e := NewEngine(func() time.Time { return now })
	ctx := context.Background()

	if _, err := e.Apply(ctx, repo, "MOINS200", dec("100")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Apply(ctx, repo, "SAVE10", dec("1000")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Apply(ctx, repo, "SAVE10", dec("1000")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for code, want := range map[string]int{"MOINS200": 0, "SAVE10": 2} {
		pc, err := repo.Get(ctx, code)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pc.CurrentUses != want {
			t.Errorf("%s CurrentUses = %d, want %d", code, pc.CurrentUses, want)
		}
	}
}

type brokenCodes struct{ promo.Repository }

func (brokenCodes) FindActive(context.Context, string) (*promo.Code, error) {
	return nil, errors.New("db gone")
}

func TestApplyRepositoryFailure(t *testing.T) {
	e := NewEngine(nil)
	res, err := e.Apply(context.Background(), brokenCodes{}, "SAVE10", dec("100"))
	if !errors.Is(err, ErrRepository) {
		t.Fatalf("expected ErrRepository, got %v", err)
	}
	if !res.Total.Equal(dec("100")) {
		t.Errorf("Total = %s, want 100", res.Total)
	}
}
