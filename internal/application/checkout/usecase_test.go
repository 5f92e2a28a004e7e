package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/promotion"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/outbox"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/promo"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NewID() string { return fmt.Sprintf("id-%d", s.n.Add(1)) }

type capturePublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fixture struct {
	store *memory.Store
	pub   *capturePublisher
	ids   *seqIDs
}

// newFixture seeds a Burger (1000) made of Bun, Patty and Onion, plus an unlinked Cheese extra
// priced 100.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	for _, spec := range []struct {
		id, name string
		stock    float64
		price    int64
	}{
		{"bun", "Bun", 10, 0},
		{"patty", "Patty", 10, 0},
		{"onion", "Onion", 10, 0},
		{"cheese", "Cheese", 5, 100},
	} {
		ing, err := inventory.NewIngredient(spec.id, spec.name, spec.stock, "", decimal.NewFromInt(spec.price))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := store.Ingredients.Create(ctx, ing); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	dish, err := menu.NewDish("burger", "Burger", decimal.NewFromInt(1000), []menu.Link{
		{IngredientID: "bun"},
		{IngredientID: "patty"},
		{IngredientID: "onion"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Dishes.Create(ctx, dish); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return &fixture{store: store, pub: &capturePublisher{}, ids: &seqIDs{}}
}

func (f *fixture) addToCart(t *testing.T, userID string, qty int, c cart.Customization) {
	t.Helper()
	item, err := cart.NewItem(f.ids.NewID(), userID, "burger", qty, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.store.Carts.Add(context.Background(), item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func (f *fixture) addPromo(t *testing.T, code string, typ promo.DiscountType, value, min string, expires *time.Time) {
	t.Helper()
	pc, err := promo.NewCode(code, typ, decimal.RequireFromString(value), decimal.RequireFromString(min), expires)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.store.Promos.Create(context.Background(), pc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func (f *fixture) useCase(policy StockPolicy) *ConfirmOrderUseCase {
	return f.useCaseWith(f.store, policy, nil)
}

func (f *fixture) useCaseWith(store application.Transactor, policy StockPolicy, tel observability.Observability) *ConfirmOrderUseCase {
	engine := promotion.NewEngine(func() time.Time { return fixedNow })
	return NewConfirmOrderUseCase(store, engine, f.ids, f.pub, Config{Policy: policy}, tel)
}

func (f *fixture) stock(t *testing.T, id string) float64 {
	t.Helper()
	ing, err := f.store.Ingredients.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ing.Stock
}

func (f *fixture) cartSize(t *testing.T, userID string) int {
	t.Helper()
	items, err := f.store.Carts.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return len(items)
}

func (f *fixture) orderCount(t *testing.T, userID string) int {
	t.Helper()
	orders, err := f.store.Orders.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return len(orders)
}

func cheeseExtra() cart.Customization {
	return cart.Customization{Added: []cart.Extra{{ID: "cheese", Name: "Cheese", UnitPrice: decimal.NewFromInt(100)}}}
}

func TestConfirmOrderWithExtra(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, "u1", 1, cheeseExtra())

	res, err := f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.Order.Total.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("Total = %s, want 1100", res.Order.Total)
	}
	if res.Order.Status != order.StatusPending {
		t.Errorf("Status = %q, want pending", res.Order.Status)
	}
	want := fmt.Sprintf("Order #%s confirmed! Total: 1100.00 DA", res.Order.ID)
	if res.Message != want {
		t.Errorf("Message = %q, want %q", res.Message, want)
	}
	for id, want := range map[string]float64{"bun": 9, "patty": 9, "onion": 9, "cheese": 4} {
		if got := f.stock(t, id); got != want {
			t.Errorf("stock[%s] = %v, want %v", id, got, want)
		}
	}
	if n := f.cartSize(t, "u1"); n != 0 {
		t.Errorf("cart has %d items after checkout", n)
	}
	if n := f.pub.count(); n != 1 {
		t.Fatalf("published %d events, want 1", n)
	}
	placed, ok := f.pub.events[0].(order.PlacedEvent)
	if !ok {
		t.Fatalf("published %T, want order.PlacedEvent", f.pub.events[0])
	}
	if placed.Order.ID != res.Order.ID || len(placed.Items) != 1 || placed.Items[0].DishName != "Burger" {
		t.Errorf("unexpected event %+v", placed)
	}

	stored, err := f.store.Orders.Get(context.Background(), res.Order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored.Items) != 1 || !stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("frozen items = %+v", stored.Items)
	}
}

func TestConfirmOrderOutOfStockWritesNothing(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.Ingredients.Adjust(context.Background(), "patty", -10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.addToCart(t, "u1", 1, cheeseExtra())

	_, err := f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1"})
	var se *StockError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StockError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Patty") || !strings.Contains(err.Error(), "Burger") {
		t.Errorf("message %q should name Patty and Burger", err.Error())
	}
	if !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Error("stock errors should unwrap to inventory.ErrInsufficientStock")
	}

	if n := f.orderCount(t, "u1"); n != 0 {
		t.Errorf("created %d orders", n)
	}
	for id, want := range map[string]float64{"bun": 10, "patty": 0, "onion": 10, "cheese": 5} {
		if got := f.stock(t, id); got != want {
			t.Errorf("stock[%s] = %v, want %v", id, got, want)
		}
	}
	if n := f.cartSize(t, "u1"); n != 1 {
		t.Errorf("cart has %d items, want 1", n)
	}
	if n := f.pub.count(); n != 0 {
		t.Errorf("published %d events on failure", n)
	}
}

func TestConfirmOrderExhaustedExtra(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.Ingredients.Adjust(context.Background(), "cheese", -5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.addToCart(t, "u1", 1, cheeseExtra())

	_, err := f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1"})
	var se *StockError
	if !errors.As(err, &se) || !se.Extra || se.Ingredient != "Cheese" {
		t.Fatalf("expected extra StockError for Cheese, got %v", err)
	}
}

func TestConfirmOrderPromotion(t *testing.T) {
	expired := fixedNow.Add(-time.Hour)

	cases := []struct {
		name      string
		code      string
		expires   *time.Time
		wantTotal int64
		wantUses  int
	}{
		{name: "applied", code: "SAVE10", wantTotal: 990, wantUses: 1},
		{name: "expired", code: "SAVE10", expires: &expired, wantTotal: 1100, wantUses: 0},
		{name: "unknown code", code: "NOPE", wantTotal: 1100, wantUses: 0},
		{name: "case mismatch", code: "save10", wantTotal: 1100, wantUses: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.addPromo(t, "SAVE10", promo.DiscountPercentage, "10", "500", tc.expires)
			f.addToCart(t, "u1", 1, cheeseExtra())

			res, err := f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1", PromoCode: tc.code})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.Order.Total.Equal(decimal.NewFromInt(tc.wantTotal)) {
				t.Errorf("Total = %s, want %d", res.Order.Total, tc.wantTotal)
			}
			if !res.Order.Subtotal.Equal(decimal.NewFromInt(1100)) {
				t.Errorf("Subtotal = %s, want 1100", res.Order.Subtotal)
			}
			pc, err := f.store.Promos.Get(context.Background(), "SAVE10")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pc.CurrentUses != tc.wantUses {
				t.Errorf("CurrentUses = %d, want %d", pc.CurrentUses, tc.wantUses)
			}
			if res.Promotion.Applied != (tc.wantUses == 1) {
				t.Errorf("Applied = %v", res.Promotion.Applied)
			}
		})
	}
}

func TestConfirmOrderEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1"})
	if !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "validation: ") {
		t.Errorf("expected validation prefix, got %q", err.Error())
	}

	_, err = f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{})
	if !errors.Is(err, ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "validation: ") {
		t.Errorf("expected validation prefix, got %q", err.Error())
	}
}

func TestConfirmOrderRemovedIngredientKeepsStock(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, "u1", 2, cart.Customization{Removed: []string{"onion"}})

	res, err := f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Order.Total.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Total = %s, want 2000", res.Order.Total)
	}
	if got := f.stock(t, "onion"); got != 10 {
		t.Errorf("onion stock = %v, want 10", got)
	}
	if got := f.stock(t, "bun"); got != 8 {
		t.Errorf("bun stock = %v, want 8", got)
	}
}

func TestConfirmOrderRemovedIngredientOutOfStockIsIgnored(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.Ingredients.Adjust(context.Background(), "onion", -10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.addToCart(t, "u1", 1, cart.Customization{Removed: []string{"Onion"}})

	if _, err := f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfirmOrderDuplicateExtraDecrementedOnce(t *testing.T) {
	f := newFixture(t)
	c := cart.Customization{Added: []cart.Extra{
		{ID: "cheese", Name: "Cheese", UnitPrice: decimal.NewFromInt(100)},
		{Name: "cheese"},
	}}
	f.addToCart(t, "u1", 1, c)

	res, err := f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.stock(t, "cheese"); got != 4 {
		t.Errorf("cheese stock = %v, want 4", got)
	}
	if !res.Order.Total.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("Total = %s, want 1100", res.Order.Total)
	}
}

func TestConfirmOrderLegacyExtraUsesLedgerPrice(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, "u1", 1, cart.Customization{Added: []cart.Extra{{Name: "CHEESE"}}})

	res, err := f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Order.Total.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("Total = %s, want 1100", res.Order.Total)
	}
	if got := f.stock(t, "cheese"); got != 4 {
		t.Errorf("cheese stock = %v, want 4", got)
	}
}

func TestConfirmOrderUnknownExtraIsBilledNotTracked(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, "u1", 1, cart.Customization{Added: []cart.Extra{{Name: "Truffle", UnitPrice: decimal.NewFromInt(500)}}})

	res, err := f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Order.Total.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Total = %s, want 1500", res.Order.Total)
	}
}

func TestConfirmOrderDishWithdrawn(t *testing.T) {
	f := newFixture(t)
	item, err := cart.NewItem("c1", "u1", "gone", 1, cart.Customization{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.store.Carts.Add(context.Background(), item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1"})
	if !errors.Is(err, ErrDishNotFound) {
		t.Fatalf("expected ErrDishNotFound, got %v", err)
	}
}

func TestConfirmOrderStrictRollsBackOnInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.addPromo(t, "SAVE10", promo.DiscountPercentage, "10", "0", nil)
	if _, err := f.store.Ingredients.Adjust(context.Background(), "patty", -9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.addToCart(t, "u1", 2, cart.Customization{})

	_, err := f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1", PromoCode: "SAVE10"})
	var se *StockError
	if !errors.As(err, &se) || !se.Insufficient || se.Ingredient != "Patty" {
		t.Fatalf("expected insufficient StockError for Patty, got %v", err)
	}

	if got := f.stock(t, "bun"); got != 10 {
		t.Errorf("bun stock = %v, want 10 after rollback", got)
	}
	if got := f.stock(t, "patty"); got != 1 {
		t.Errorf("patty stock = %v, want 1", got)
	}
	if n := f.orderCount(t, "u1"); n != 0 {
		t.Errorf("created %d orders", n)
	}
	if n := f.cartSize(t, "u1"); n != 1 {
		t.Errorf("cart has %d items, want 1", n)
	}
	pc, err := f.store.Promos.Get(context.Background(), "SAVE10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pc.CurrentUses != 0 {
		t.Errorf("CurrentUses = %d, want 0 after rollback", pc.CurrentUses)
	}
}

func TestConfirmOrderBestEffortOversells(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.Ingredients.Adjust(context.Background(), "patty", -9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.addToCart(t, "u1", 2, cart.Customization{})

	res, err := f.useCase(PolicyBestEffort).Execute(context.Background(), ConfirmOrderInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.StockFailures) != 0 {
		t.Errorf("StockFailures = %+v", res.StockFailures)
	}
	if got := f.stock(t, "patty"); got != -1 {
		t.Errorf("patty stock = %v, want -1", got)
	}
	if n := f.cartSize(t, "u1"); n != 0 {
		t.Errorf("cart has %d items after checkout", n)
	}
}

type failingLedger struct {
	inventory.Repository
	failID string
}

func (l failingLedger) ForceDeduct(ctx context.Context, id string, quantity float64) error {
	if id == l.failID {
		return errors.New("connection reset")
	}
	return l.Repository.ForceDeduct(ctx, id, quantity)
}

type plainStore struct{ repos application.Repositories }

func (s plainStore) Repositories() application.Repositories { return s.repos }

func (s plainStore) WithinTx(ctx context.Context, fn func(context.Context, application.Repositories) error) error {
	return fn(ctx, s.repos)
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[observability.MetricKey]float64
}

type countingCounter struct {
	m   *countingMetrics
	key observability.MetricKey
}

func (c countingCounter) Add(d float64, _ ...observability.Label) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.counts[c.key] += d
}

func (m *countingMetrics) Counter(k observability.MetricKey) observability.Counter {
	return countingCounter{m: m, key: k}
}

func (m *countingMetrics) Histogram(observability.MetricKey) observability.Histogram {
	return observability.NopHistogram()
}

type testTel struct{ m *countingMetrics }

func (t testTel) Tracer() observability.Tracer   { return observability.NopTracer() }
func (t testTel) Logger() observability.Logger   { return observability.NopLogger() }
func (t testTel) Metrics() observability.Metrics { return t.m }

func TestConfirmOrderBestEffortReportsFailures(t *testing.T) {
	f := newFixture(t)
	f.addToCart(t, "u1", 1, cart.Customization{})

	repos := f.store.Repositories()
	repos.Ingredients = failingLedger{Repository: repos.Ingredients, failID: "patty"}
	metrics := &countingMetrics{counts: map[observability.MetricKey]float64{}}

	uc := f.useCaseWith(plainStore{repos: repos}, PolicyBestEffort, testTel{m: metrics})
	res, err := uc.Execute(context.Background(), ConfirmOrderInput{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.StockFailures) != 1 || res.StockFailures[0].Movement.IngredientID != "patty" {
		t.Fatalf("StockFailures = %+v", res.StockFailures)
	}
	if got := f.stock(t, "bun"); got != 9 {
		t.Errorf("bun stock = %v, want 9", got)
	}
	if got := f.stock(t, "patty"); got != 10 {
		t.Errorf("patty stock = %v, want 10", got)
	}
	if got := metrics.counts[observability.MStockDecrementFailures]; got != 1 {
		t.Errorf("stock failure counter = %v, want 1", got)
	}
	if n := f.orderCount(t, "u1"); n != 1 {
		t.Errorf("created %d orders, want 1", n)
	}
}

func TestConfirmOrderPublishFailureDoesNotFailCheckout(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("bus down")
	f.addToCart(t, "u1", 1, cart.Customization{})

	if _, err := f.useCase(PolicyStrict).Execute(context.Background(), ConfirmOrderInput{UserID: "u1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := f.orderCount(t, "u1"); n != 1 {
		t.Errorf("created %d orders, want 1", n)
	}
}

func TestConfirmOrderConcurrentCheckoutsNeverOversell(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.Ingredients.Adjust(context.Background(), "patty", -7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	const users = 8
	for i := 0; i < users; i++ {
		f.addToCart(t, fmt.Sprintf("u%d", i), 1, cart.Customization{})
	}

	uc := f.useCase(PolicyStrict)
	var wg sync.WaitGroup
	var placed atomic.Int32
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			if _, err := uc.Execute(context.Background(), ConfirmOrderInput{UserID: userID}); err == nil {
				placed.Add(1)
			}
		}(fmt.Sprintf("u%d", i))
	}
	wg.Wait()

	if got := placed.Load(); got != 3 {
		t.Errorf("placed %d orders, want 3", got)
	}
	if got := f.stock(t, "patty"); got != 0 {
		t.Errorf("patty stock = %v, want 0", got)
	}
	if got := f.stock(t, "bun"); got != 7 {
		t.Errorf("bun stock = %v, want 7", got)
	}
}

func TestParseStockPolicy(t *testing.T) {
	if p, err := ParseStockPolicy(""); err != nil || p != PolicyStrict {
		t.Errorf("ParseStockPolicy(\"\") = %q, %v", p, err)
	}
	if p, err := ParseStockPolicy("best_effort"); err != nil || p != PolicyBestEffort {
		t.Errorf("ParseStockPolicy(best_effort) = %q, %v", p, err)
	}
	if _, err := ParseStockPolicy("yolo"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
