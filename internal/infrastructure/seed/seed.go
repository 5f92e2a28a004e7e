// Package seed loads a starter menu from YAML into the repositories.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/promo"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type File struct {
	Ingredients []Ingredient `yaml:"ingredients"`
	Dishes      []Dish       `yaml:"dishes"`
	PromoCodes  []PromoCode  `yaml:"promo_codes"`
}

type Ingredient struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Stock          float64  `yaml:"stock"`
	Unit           string   `yaml:"unit"`
	AlertThreshold *float64 `yaml:"alert_threshold"`
	UnitPrice      string   `yaml:"unit_price"`
}

// Dish references its ingredients by seed id or by name.
type Dish struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	ImageURL    string   `yaml:"image_url"`
	Price       string   `yaml:"price"`
	Available   *bool    `yaml:"available"`
	Popular     bool     `yaml:"popular"`
	New         bool     `yaml:"new"`
	Ingredients []string `yaml:"ingredients"`
	Extras      []string `yaml:"extras"`
}

type PromoCode struct {
	Code           string     `yaml:"code"`
	DiscountType   string     `yaml:"discount_type"`
	DiscountValue  string     `yaml:"discount_value"`
	MinOrderAmount string     `yaml:"min_order_amount"`
	ExpiresAt      *time.Time `yaml:"expires_at"`
	Active         *bool      `yaml:"active"`
}

// Result counts what Apply created; existing rows are skipped.
type Result struct {
	Ingredients int
	Dishes      int
	PromoCodes  int
}

func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	return &f, nil
}

// Apply writes the seed row by row, so it can run again on a populated store. Ingredients whose
// name already exists, dishes whose id already exists and known promo codes are left untouched.
func Apply(ctx context.Context, repos application.Repositories, ids application.IDGenerator, f *File) (Result, error) {
	var res Result
	refs := make(map[string]string, len(f.Ingredients))

	for _, in := range f.Ingredients {
		id, created, err := ingredient(ctx, repos.Ingredients, ids, in)
		if err != nil {
			return res, err
		}
		if created {
			res.Ingredients++
		}
		if in.ID != "" {
			refs[in.ID] = id
		}
		refs[strings.ToLower(strings.TrimSpace(in.Name))] = id
	}

	for _, d := range f.Dishes {
		created, err := dish(ctx, repos, ids, refs, d)
		if err != nil {
			return res, err
		}
		if created {
			res.Dishes++
		}
	}

	for _, p := range f.PromoCodes {
		created, err := promoCode(ctx, repos.Promos, p)
		if err != nil {
			return res, err
		}
		if created {
			res.PromoCodes++
		}
	}
	return res, nil
}

func ingredient(ctx context.Context, repo inventory.Repository, ids application.IDGenerator, in Ingredient) (string, bool, error) {
	if existing, err := repo.FindByName(ctx, in.Name); err == nil {
		return existing.ID, false, nil
	} else if !errors.Is(err, inventory.ErrNotFound) {
		return "", false, fmt.Errorf("seed: ingredient %q: %w", in.Name, err)
	}

	price, err := amount(in.UnitPrice)
	if err != nil {
		return "", false, fmt.Errorf("seed: ingredient %q unit_price: %w", in.Name, err)
	}
	id := in.ID
	if id == "" {
		id = ids.NewID()
	}
	ing, err := inventory.NewIngredient(id, in.Name, in.Stock, in.Unit, price)
	if err != nil {
		return "", false, fmt.Errorf("seed: ingredient %q: %w", in.Name, err)
	}
	if in.AlertThreshold != nil {
		ing.AlertThreshold = *in.AlertThreshold
	}
	if err := repo.Create(ctx, ing); err != nil {
		return "", false, fmt.Errorf("seed: ingredient %q: %w", in.Name, err)
	}
	return ing.ID, true, nil
}

func dish(ctx context.Context, repos application.Repositories, ids application.IDGenerator, refs map[string]string, d Dish) (bool, error) {
	if d.ID != "" {
		if _, err := repos.Dishes.Get(ctx, d.ID); err == nil {
			return false, nil
		} else if !errors.Is(err, menu.ErrNotFound) {
			return false, fmt.Errorf("seed: dish %q: %w", d.Name, err)
		}
	}

	price, err := amount(d.Price)
	if err != nil {
		return false, fmt.Errorf("seed: dish %q price: %w", d.Name, err)
	}

	links := make([]menu.Link, 0, len(d.Ingredients)+len(d.Extras))
	for _, group := range []struct {
		refs  []string
		extra bool
	}{{d.Ingredients, false}, {d.Extras, true}} {
		for _, ref := range group.refs {
			id, ok := refs[ref]
			if !ok {
				id, ok = refs[strings.ToLower(strings.TrimSpace(ref))]
			}
			if !ok {
				return false, fmt.Errorf("seed: dish %q: unknown ingredient %q", d.Name, ref)
			}
			links = append(links, menu.Link{IngredientID: id, IsExtra: group.extra})
		}
	}

	id := d.ID
	if id == "" {
		id = ids.NewID()
	}
	entity, err := menu.NewDish(id, d.Name, price, links)
	if err != nil {
		return false, fmt.Errorf("seed: dish %q: %w", d.Name, err)
	}
	entity.Description = d.Description
	entity.Category = d.Category
	entity.ImageURL = d.ImageURL
	entity.Popular = d.Popular
	entity.New = d.New
	if d.Available != nil {
		entity.Available = *d.Available
	}
	if err := repos.Dishes.Create(ctx, entity); err != nil {
		return false, fmt.Errorf("seed: dish %q: %w", d.Name, err)
	}
	return true, nil
}

func promoCode(ctx context.Context, repo promo.Repository, p PromoCode) (bool, error) {
	value, err := amount(p.DiscountValue)
	if err != nil {
		return false, fmt.Errorf("seed: promo %q discount_value: %w", p.Code, err)
	}
	minOrder, err := amount(p.MinOrderAmount)
	if err != nil {
		return false, fmt.Errorf("seed: promo %q min_order_amount: %w", p.Code, err)
	}
	code, err := promo.NewCode(p.Code, promo.DiscountType(p.DiscountType), value, minOrder, p.ExpiresAt)
	if err != nil {
		return false, fmt.Errorf("seed: promo %q: %w", p.Code, err)
	}
	if p.Active != nil {
		code.Active = *p.Active
	}
	if err := repo.Create(ctx, code); err != nil {
		if errors.Is(err, promo.ErrDuplicateCode) {
			return false, nil
		}
		return false, fmt.Errorf("seed: promo %q: %w", p.Code, err)
	}
	return true, nil
}

func amount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}
