package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	"github.com/shopspring/decimal"
)

// ResolvedExtra is an added option bound to the ledger, or left unbound when no ingredient matches.
type ResolvedExtra struct {
	Name         string
	IngredientID string
	UnitPrice    decimal.Decimal
	// Linked is true when the dish declares this ingredient as one of its extras.
	Linked bool
}

// Tracked reports whether the extra consumes ledger stock.
func (e ResolvedExtra) Tracked() bool { return e.IngredientID != "" }

// Line is a cart line with its customization resolved against the dish and the ledger.
type Line struct {
	Item      *cart.Item
	Dish      *menu.Dish
	Base      []menu.Link // base links the customer kept
	Extras    []ResolvedExtra
	UnitPrice decimal.Decimal
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Item.Quantity)))
}

// Resolve binds a cart line's customization to concrete ingredients and prices it.
// An extra is matched against the dish's declared extras first, then against the whole ledger
// by id and finally by name. Whatever stays unmatched is billed but never touches stock.
// An extra listed more than once on the line is billed and decremented once.
func Resolve(ctx context.Context, ingredients inventory.Repository, dish *menu.Dish, item *cart.Item) (Line, error) {
	line := Line{Item: item, Dish: dish}
	c := item.Customization

	for _, l := range dish.BaseLinks() {
		name := ""
		if l.Ingredient != nil {
			name = l.Ingredient.Name
		}
		if c.IsRemoved(l.IngredientID, name) {
			continue
		}
		line.Base = append(line.Base, l)
	}

	seen := make(map[string]struct{}, len(c.Added))
	unitPrice := dish.Price
	for _, added := range c.Added {
		extra, err := resolveExtra(ctx, ingredients, dish, added)
		if err != nil {
			return Line{}, err
		}
		key := "id:" + extra.IngredientID
		if !extra.Tracked() {
			key = "name:" + strings.ToLower(strings.TrimSpace(extra.Name))
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		line.Extras = append(line.Extras, extra)
		unitPrice = unitPrice.Add(extra.UnitPrice)
	}
	line.UnitPrice = unitPrice
	return line, nil
}

func resolveExtra(ctx context.Context, ingredients inventory.Repository, dish *menu.Dish, added cart.Extra) (ResolvedExtra, error) {
	extra := ResolvedExtra{Name: added.Name, UnitPrice: added.UnitPrice}

	if link, ok := dish.ExtraLink(added.ID, added.Name); ok {
		extra.IngredientID = link.IngredientID
		extra.Linked = true
		if link.Ingredient != nil {
			extra.Name = link.Ingredient.Name
			extra.UnitPrice = pickPrice(added.UnitPrice, link.Ingredient.UnitPrice)
		}
		return extra, nil
	}

	ing, err := lookupIngredient(ctx, ingredients, added)
	switch {
	case err == nil:
		extra.IngredientID = ing.ID
		extra.Name = ing.Name
		extra.UnitPrice = pickPrice(added.UnitPrice, ing.UnitPrice)
		return extra, nil
	case errors.Is(err, inventory.ErrNotFound):
		return extra, nil
	default:
		return ResolvedExtra{}, wrapRepositoryError(err)
	}
}

func lookupIngredient(ctx context.Context, ingredients inventory.Repository, added cart.Extra) (*inventory.Ingredient, error) {
	if added.ID != "" {
		ing, err := ingredients.Get(ctx, added.ID)
		if err == nil || !errors.Is(err, inventory.ErrNotFound) {
			return ing, err
		}
	}
	if strings.TrimSpace(added.Name) == "" {
		return nil, inventory.ErrNotFound
	}
	return ingredients.FindByName(ctx, added.Name)
}

// pickPrice bills what the customer saw when adding the extra. Legacy rows without a
// captured price fall back to the ledger price.
func pickPrice(captured, ledger decimal.Decimal) decimal.Decimal {
	if captured.IsPositive() {
		return captured
	}
	return ledger
}
