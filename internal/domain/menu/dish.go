package menu

import (
	"errors"
	"strings"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("menu: dish not found")
	ErrNameRequired  = errors.New("menu: name is required")
	ErrInvalidPrice  = errors.New("menu: price must be zero or greater")
	ErrDuplicateLink = errors.New("menu: ingredient linked twice")
)

// Link ties a dish to a ledger ingredient. Extras are optional add-ons, base links are the recipe.
type Link struct {
	IngredientID string
	IsExtra      bool
	// Ingredient is the ledger row as loaded with the dish. It may be nil when the row is gone.
	Ingredient *inventory.Ingredient
}

type Dish struct {
	ID          string
	Name        string
	Description string
	Category    string
	ImageURL    string
	Price       decimal.Decimal
	// Available is the admin toggle; it says nothing about stock.
	Available bool
	Popular   bool
	// New puts the dish on the "new" listing.
	New       bool
	Links     []Link
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewDish(id, name string, price decimal.Decimal, links []Link) (*Dish, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		if _, dup := seen[l.IngredientID]; dup {
			return nil, ErrDuplicateLink
		}
		seen[l.IngredientID] = struct{}{}
	}
	now := time.Now().UTC()
	return &Dish{
		ID:        id,
		Name:      name,
		Price:     price,
		Available: true,
		Links:     links,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// BaseLinks returns the recipe ingredients, extras excluded.
func (d *Dish) BaseLinks() []Link {
	out := make([]Link, 0, len(d.Links))
	for _, l := range d.Links {
		if !l.IsExtra {
			out = append(out, l)
		}
	}
	return out
}

// ExtraLink finds a declared extra by ingredient id, then by case-insensitive name.
func (d *Dish) ExtraLink(id, name string) (Link, bool) {
	for _, l := range d.Links {
		if l.IsExtra && id != "" && l.IngredientID == id {
			return l, true
		}
	}
	if name == "" {
		return Link{}, false
	}
	for _, l := range d.Links {
		if l.IsExtra && l.Ingredient != nil && inventory.SameName(l.Ingredient.Name, name) {
			return l, true
		}
	}
	return Link{}, false
}

func (d *Dish) SetAvailable(v bool) {
	d.Available = v
	d.UpdatedAt = time.Now().UTC()
}

func (d *Dish) Clone() *Dish {
	if d == nil {
		return nil
	}
	c := *d
	c.Links = make([]Link, len(d.Links))
	for i, l := range d.Links {
		c.Links[i] = Link{IngredientID: l.IngredientID, IsExtra: l.IsExtra, Ingredient: l.Ingredient.Clone()}
	}
	return &c
}
