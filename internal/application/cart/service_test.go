package cart

import (
	"context"
	"errors"
	"fmt"
	"testing"

	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
)

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("item-%d", s.n)
}

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	for _, spec := range []struct {
		id, name string
		price    int64
	}{
		{"ing-bun", "Pain", 0},
		{"ing-onion", "Oignon", 0},
		{"ing-cheddar", "Cheddar", 150},
		{"ing-bacon", "Bacon", 250},
	} {
		ing, err := inventory.NewIngredient(spec.id, spec.name, 10, "", decimal.NewFromInt(spec.price))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := store.Ingredients.Create(ctx, ing); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	dish, err := menu.NewDish("dish-burger", "Burger", decimal.NewFromInt(1000), []menu.Link{
		{IngredientID: "ing-bun"},
		{IngredientID: "ing-onion"},
		{IngredientID: "ing-cheddar", IsExtra: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Dishes.Create(ctx, dish); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return NewService(store.Repositories(), &seqIDs{}, nil), store
}

func TestAddItemResolvesNamesToIDs(t *testing.T) {
	svc, _ := newService(t)

	item, err := svc.AddItem(context.Background(), AddItemInput{
		UserID:  "u1",
		DishID:  "dish-burger",
		Removed: []string{"oignon", "ing-onion"},
		Added:   []string{"cheddar", "ing-bacon", "Cheddar"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Quantity != 1 {
		t.Errorf("Quantity = %d, want 1", item.Quantity)
	}
	c := item.Customization
	if len(c.Removed) != 1 || c.Removed[0] != "ing-onion" {
		t.Errorf("Removed = %v, want [ing-onion]", c.Removed)
	}
	if len(c.Added) != 2 {
		t.Fatalf("Added = %+v, want 2 extras", c.Added)
	}
	if c.Added[0].ID != "ing-cheddar" || !c.Added[0].UnitPrice.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Added[0] = %+v", c.Added[0])
	}
	if c.Added[1].ID != "ing-bacon" || c.Added[1].Name != "Bacon" {
		t.Errorf("Added[1] = %+v", c.Added[1])
	}
}

func TestAddItemValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   AddItemInput
		want error
	}{
		{"missing user", AddItemInput{DishID: "dish-burger"}, domain.ErrUserRequired},
		{"negative quantity", AddItemInput{UserID: "u1", DishID: "dish-burger", Quantity: -2}, domain.ErrInvalidQuantity},
		{"unknown dish", AddItemInput{UserID: "u1", DishID: "nope"}, menu.ErrNotFound},
		{"remove an extra", AddItemInput{UserID: "u1", DishID: "dish-burger", Removed: []string{"Cheddar"}}, ErrUnknownIngredient},
		{"unknown extra", AddItemInput{UserID: "u1", DishID: "dish-burger", Added: []string{"Truffe"}}, ErrUnknownExtra},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.AddItem(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUpdateAndRemoveRequireOwnership(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", DishID: "dish-burger", Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.UpdateQuantity(ctx, "u2", item.ID, 3); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}
	if _, err := svc.UpdateQuantity(ctx, "u1", item.ID, 0); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
	updated, err := svc.UpdateQuantity(ctx, "u1", item.ID, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Quantity != 3 {
		t.Errorf("Quantity = %d, want 3", updated.Quantity)
	}

	if err := svc.RemoveItem(ctx, "u2", item.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}
	if err := svc.RemoveItem(ctx, "u1", item.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.RemoveItem(ctx, "u1", item.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestListCartPricesLines(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", DishID: "dish-burger", Quantity: 2, Added: []string{"Cheddar"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddItem(ctx, AddItemInput{UserID: "u2", DishID: "dish-burger"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	orphan, err := domain.NewItem("orphan", "u1", "dish-gone", 1, domain.Customization{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Carts.Add(ctx, orphan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view, err := svc.ListCart(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Lines) != 2 {
		t.Fatalf("Lines = %d, want 2", len(view.Lines))
	}
	first := view.Lines[0]
	if first.DishName != "Burger" || !first.UnitPrice.Equal(decimal.NewFromInt(1150)) || !first.Subtotal.Equal(decimal.NewFromInt(2300)) {
		t.Errorf("first line = %+v", first)
	}
	if first.Unavailable {
		t.Error("burger should be available")
	}
	if !view.Lines[1].Unavailable {
		t.Error("withdrawn dish should be flagged unavailable")
	}
	if !view.Total.Equal(decimal.NewFromInt(2300)) {
		t.Errorf("Total = %s, want 2300", view.Total)
	}

	if _, err := store.Ingredients.Adjust(ctx, "ing-bun", -10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, err = svc.ListCart(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !view.Lines[0].Unavailable {
		t.Error("dish without bun should be flagged unavailable")
	}
}
