package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appcart "github.com/Zhima-Mochi/restaurant-ordering/internal/application/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/catalog"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/checkout"
	appinventory "github.com/Zhima-Mochi/restaurant-ordering/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/restaurant-ordering/internal/application/order"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/promotion"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/outbox"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/audit"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/memory"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

const testSecret = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domoutbox.Event) error { return nil }

type fakeStream struct{ msgs [][]byte }

func (s *fakeStream) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, len(s.msgs))
	for _, m := range s.msgs {
		ch <- m
	}
	close(ch)
	return ch, func() {}
}

type fakeAudit struct{ limit int64 }

func (a *fakeAudit) History(_ context.Context, orderID string, limit int64) ([]*audit.Entry, error) {
	a.limit = limit
	return []*audit.Entry{{Service: "restaurant-ordering", Action: order.EventNewOrder, EntityID: orderID}}, nil
}

// newTestServer serves a Burger (1000) made of Bun and a Soup whose Leek is out of stock.
func newTestServer(t *testing.T, opts Options) (*memory.Store, http.Handler) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, spec := range []struct {
		id, name string
		stock    float64
	}{{"bun", "Bun", 10}, {"leek", "Leek", 0}} {
		ing, err := inventory.NewIngredient(spec.id, spec.name, spec.stock, "", decimal.Zero)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := store.Ingredients.Create(ctx, ing); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for _, spec := range []struct {
		id, name, ing string
		price         int64
	}{{"burger", "Burger", "bun", 1000}, {"soup", "Soup", "leek", 400}} {
		d, err := menu.NewDish(spec.id, spec.name, decimal.NewFromInt(spec.price), []menu.Link{{IngredientID: spec.ing}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := store.Dishes.Create(ctx, d); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	ids := &seqIDs{}
	repos := store.Repositories()
	svc := Services{
		Catalog:   catalog.NewService(repos.Dishes, nil),
		Inventory: appinventory.NewService(repos.Ingredients, repos.Dishes, nopPublisher{}, nil),
		Cart:      appcart.NewService(repos, ids, nil),
		Orders:    apporder.NewService(repos.Orders, nopPublisher{}, nil),
		Checkout: checkout.NewConfirmOrderUseCase(store, promotion.NewEngine(nil), ids, nopPublisher{},
			checkout.Config{Policy: checkout.PolicyStrict}, nil),
	}
	if opts.Verifier == nil {
		opts.Verifier = NewTokenVerifier(testSecret, "")
	}
	return store, NewHandler(svc, opts).Router()
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return raw
}

func do(h http.Handler, method, path, bearer, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	decode(t, w, &body)
	return body.Message
}

func TestPublicMenu(t *testing.T) {
	_, h := newTestServer(t, Options{})

	w := do(h, http.MethodGet, "/dishes", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var dishes []dishResponse
	decode(t, w, &dishes)
	if len(dishes) != 1 || dishes[0].ID != "burger" || dishes[0].Price != "1000.00" {
		t.Errorf("unexpected listing %+v", dishes)
	}

	w = do(h, http.MethodGet, "/dishes/soup", "", "")
	var soup dishResponse
	decode(t, w, &soup)
	if soup.Available || soup.InStock || len(soup.Missing) != 1 || soup.Missing[0] != "Leek" {
		t.Errorf("unexpected soup %+v", soup)
	}

	w = do(h, http.MethodGet, "/dishes/pizza", "", "")
	if w.Code != http.StatusNotFound || message(t, w) != "Dish not found" {
		t.Errorf("got %d %s", w.Code, w.Body)
	}
}

func TestAuthRequired(t *testing.T) {
	_, h := newTestServer(t, Options{})

	cases := map[string]string{
		"missing":   "",
		"format":    "Token abc",
		"garbage":   "Bearer not-a-jwt",
		"no bearer": "Bearer ",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestConfirmOrderFlow(t *testing.T) {
	store, h := newTestServer(t, Options{})
	customer := token(t, "u1", RoleCustomer)

	w := do(h, http.MethodPost, "/orders/confirm", customer, "")
	if w.Code != http.StatusBadRequest || message(t, w) != msgCartEmpty {
		t.Fatalf("empty cart: got %d %s", w.Code, w.Body)
	}

	w = do(h, http.MethodPost, "/cart/items", customer, `{"dish_id":"burger","quantity":2,"removed":["bun"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add item: got %d %s", w.Code, w.Body)
	}
	w = do(h, http.MethodPost, "/cart/items", customer, `{"dish_id":"burger","quantity":1}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add item: got %d %s", w.Code, w.Body)
	}

	w = do(h, http.MethodGet, "/cart", customer, "")
	var c cartResponse
	decode(t, w, &c)
	if len(c.Items) != 2 || c.Total != "3000.00" {
		t.Errorf("unexpected cart %+v", c)
	}

	w = do(h, http.MethodPost, "/orders/confirm", customer, "")
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: got %d %s", w.Code, w.Body)
	}
	var res confirmOrderResponse
	decode(t, w, &res)
	want := fmt.Sprintf("Order #%s confirmed! Total: 3000.00 DA", res.Order.ID)
	if res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}
	if res.Order.Status != order.StatusPending || len(res.Order.Items) != 2 {
		t.Errorf("unexpected order %+v", res.Order)
	}

	// only the line that kept its bun consumed stock
	bun, err := store.Ingredients.Get(context.Background(), "bun")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bun.Stock != 9 {
		t.Errorf("bun stock = %v, want 9", bun.Stock)
	}

	w = do(h, http.MethodGet, "/orders", customer, "")
	var mine []orderResponse
	decode(t, w, &mine)
	if len(mine) != 1 || mine[0].Total != "3000.00" {
		t.Errorf("unexpected orders %+v", mine)
	}

	w = do(h, http.MethodGet, "/orders/"+res.Order.ID, token(t, "u2", RoleCustomer), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign order: got %d", w.Code)
	}
	w = do(h, http.MethodGet, "/orders/"+res.Order.ID, token(t, "boss", RoleAdmin), "")
	if w.Code != http.StatusOK {
		t.Errorf("admin read: got %d", w.Code)
	}

	w = do(h, http.MethodPost, "/orders/confirm", customer, "")
	if w.Code != http.StatusBadRequest || message(t, w) != msgCartEmpty {
		t.Errorf("cart should be cleared: got %d %s", w.Code, w.Body)
	}
}

func TestConfirmOrderOutOfStock(t *testing.T) {
	store, h := newTestServer(t, Options{})
	customer := token(t, "u1", RoleCustomer)

	item, err := cart.NewItem("line-1", "u1", "soup", 1, cart.Customization{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Carts.Add(context.Background(), item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := do(h, http.MethodPost, "/orders/confirm", customer, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d %s", w.Code, w.Body)
	}
	if msg := message(t, w); !strings.Contains(msg, "Leek") || !strings.Contains(msg, "Soup") {
		t.Errorf("message = %q", msg)
	}
}

func TestCartValidation(t *testing.T) {
	_, h := newTestServer(t, Options{})
	customer := token(t, "u1", RoleCustomer)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", `{"dish_id":`, http.StatusBadRequest},
		{"missing dish id", `{"quantity":1}`, http.StatusBadRequest},
		{"unknown dish", `{"dish_id":"pizza"}`, http.StatusNotFound},
		{"negative quantity", `{"dish_id":"burger","quantity":-1}`, http.StatusBadRequest},
		{"unknown removal", `{"dish_id":"burger","removed":["anchovy"]}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/cart/items", customer, tc.body)
			if w.Code != tc.status {
				t.Errorf("status = %d, want %d (%s)", w.Code, tc.status, w.Body)
			}
		})
	}

	w := do(h, http.MethodDelete, "/cart/items/nope", customer, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("remove missing item: got %d", w.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	store, h := newTestServer(t, Options{})
	customer := token(t, "u1", RoleCustomer)
	admin := token(t, "boss", RoleAdmin)

	if w := do(h, http.MethodGet, "/admin/ingredients", customer, ""); w.Code != http.StatusForbidden {
		t.Errorf("customer on admin route: got %d", w.Code)
	}

	w := do(h, http.MethodGet, "/admin/ingredients/low-stock", admin, "")
	var low []ingredientResponse
	decode(t, w, &low)
	if len(low) != 1 || low[0].ID != "leek" {
		t.Errorf("unexpected low stock %+v", low)
	}

	w = do(h, http.MethodPost, "/admin/ingredients/leek/stock", admin, `{"delta":5}`)
	var leek ingredientResponse
	decode(t, w, &leek)
	if w.Code != http.StatusOK || leek.Stock != 5 {
		t.Errorf("adjust: got %d %+v", w.Code, leek)
	}

	if w := do(h, http.MethodDelete, "/admin/ingredients/leek", admin, ""); w.Code != http.StatusConflict {
		t.Errorf("delete linked ingredient: got %d", w.Code)
	}

	w = do(h, http.MethodPatch, "/admin/dishes/burger/availability", admin, `{"available":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("availability: got %d %s", w.Code, w.Body)
	}
	var all []dishResponse
	decode(t, do(h, http.MethodGet, "/dishes", "", ""), &all)
	if len(all) != 1 || all[0].ID != "soup" {
		t.Errorf("public listing after toggles: %+v", all)
	}
	decode(t, do(h, http.MethodGet, "/admin/dishes", admin, ""), &all)
	if len(all) != 2 {
		t.Errorf("admin listing has %d dishes, want 2", len(all))
	}

	o, err := order.New("o1", "u1", nil, decimal.NewFromInt(100), decimal.Zero, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Orders.Insert(context.Background(), o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	statusCases := []struct {
		body   string
		status int
	}{
		{`{"status":"delivered"}`, http.StatusConflict},
		{`{"status":"teleported"}`, http.StatusBadRequest},
		{`{}`, http.StatusBadRequest},
		{`{"status":"confirmed"}`, http.StatusOK},
	}
	for _, tc := range statusCases {
		if w := do(h, http.MethodPut, "/admin/orders/o1/status", admin, tc.body); w.Code != tc.status {
			t.Errorf("%s: got %d, want %d", tc.body, w.Code, tc.status)
		}
	}
	if w := do(h, http.MethodPut, "/admin/orders/o404/status", admin, `{"status":"confirmed"}`); w.Code != http.StatusNotFound {
		t.Errorf("unknown order: got %d", w.Code)
	}
}

func TestOptionalAdminFeatures(t *testing.T) {
	admin := token(t, "boss", RoleAdmin)

	_, h := newTestServer(t, Options{})
	if w := do(h, http.MethodGet, "/admin/orders/stream", admin, ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("stream without hub: got %d", w.Code)
	}
	if w := do(h, http.MethodGet, "/admin/orders/o1/audit", admin, ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("audit without recorder: got %d", w.Code)
	}

	trail := &fakeAudit{}
	stream := &fakeStream{msgs: [][]byte{[]byte(`{"event":"new_order","order_id":"o1"}`), []byte(`not json`)}}
	_, h = newTestServer(t, Options{Stream: stream, Audit: trail})

	w := do(h, http.MethodGet, "/admin/orders/stream", admin, "")
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event:new_order") || !strings.Contains(body, "event:message") {
		t.Errorf("unexpected stream %q", body)
	}

	w = do(h, http.MethodGet, "/admin/orders/o1/audit?limit=5", admin, "")
	var entries []audit.Entry
	decode(t, w, &entries)
	if len(entries) != 1 || entries[0].EntityID != "o1" || trail.limit != 5 {
		t.Errorf("unexpected audit %+v (limit %d)", entries, trail.limit)
	}
	if w := do(h, http.MethodGet, "/admin/orders/o1/audit?limit=zero", admin, ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, Options{})
	if w := do(h, http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("got %d", w.Code)
	}

	_, h = newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})
	if w := do(h, http.MethodGet, "/health", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d", w.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	_, h := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/dishes", nil)
	req.Header.Set(headerRequestID, "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get(headerRequestID); got != "req-42" {
		t.Errorf("%s = %q", headerRequestID, got)
	}
}

func TestWriteDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"stock", fmt.Errorf("wrap: %w", &checkout.StockError{Ingredient: "Bun", Dish: "Burger"}), http.StatusBadRequest, `Sorry, "Bun" is out of stock for the dish "Burger"`},
		{"empty cart", checkout.ErrCartEmpty, http.StatusBadRequest, msgCartEmpty},
		{"withdrawn dish", fmt.Errorf("%w: burger", checkout.ErrDishNotFound), http.StatusBadRequest, msgDishWithdrawn},
		{"order", order.ErrNotFound, http.StatusNotFound, "Order not found"},
		{"transition", order.ErrInvalidStateTransition, http.StatusConflict, msgBadTransition},
		{"validation", errors.New("validation: quantity must be positive"), http.StatusBadRequest, "quantity must be positive"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, msgInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", bytes.NewReader(nil))
			writeDomainError(c, tc.err)
			if w.Code != tc.status {
				t.Errorf("status = %d, want %d", w.Code, tc.status)
			}
			if got := message(t, w); got != tc.msg {
				t.Errorf("message = %q, want %q", got, tc.msg)
			}
			if len(c.Errors) != 1 {
				t.Errorf("error not attached to the context")
			}
		})
	}
}
