package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application"
	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	cartService       = "cart-service"
	useCaseAddItem    = "cart.add_item"
	useCaseUpdateQty  = "cart.update_quantity"
	useCaseRemoveItem = "cart.remove_item"
	useCaseListCart   = "cart.list"
)

var (
	ErrRepository        = errors.New("cart: repository failure")
	ErrUnknownExtra      = errors.New("cart: unknown extra")
	ErrUnknownIngredient = errors.New("cart: ingredient is not part of the dish")
)

type Service struct {
	carts       domain.Repository
	dishes      menu.Repository
	ingredients inventory.Repository
	ids         application.IDGenerator
	in          application.Instrument
}

func NewService(repos application.Repositories, ids application.IDGenerator, tel observability.Observability) *Service {
	return &Service{
		carts:       repos.Carts,
		dishes:      repos.Dishes,
		ingredients: repos.Ingredients,
		ids:         ids,
		in:          application.NewInstrument(tel, cartService),
	}
}

// AddItemInput names removed ingredients and added extras by id or by name.
type AddItemInput struct {
	UserID   string
	DishID   string
	Quantity int
	Removed  []string
	Added    []string
}

// AddItem stores a new cart line with its customization bound to ingredient ids and prices.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (_ *domain.Item, err error) {
	ctx, run := s.in.Start(ctx, useCaseAddItem, "AddItem",
		attribute.String("cart.user_id", in.UserID),
		attribute.String("dish.id", in.DishID),
		attribute.Int("cart.quantity", in.Quantity),
	)
	defer func() { run.End(err) }()

	if in.UserID == "" {
		run.Fail("USER_ID_REQUIRED")
		return nil, fmt.Errorf("validation: %w", domain.ErrUserRequired)
	}
	if in.Quantity < 0 {
		run.Fail("INVALID_QUANTITY")
		return nil, fmt.Errorf("validation: %w", domain.ErrInvalidQuantity)
	}

	dish, err := s.dishes.Get(ctx, in.DishID)
	if err != nil {
		if errors.Is(err, menu.ErrNotFound) {
			run.Fail("DISH_NOT_FOUND")
			return nil, err
		}
		run.Fail("REPO_GET_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	c, err := s.customize(ctx, dish, in.Removed, in.Added)
	if err != nil {
		if errors.Is(err, ErrRepository) {
			run.Fail("REPO_LOOKUP_FAILED")
		} else {
			run.Fail("INVALID_CUSTOMIZATION")
		}
		return nil, err
	}

	item, err := domain.NewItem(s.ids.NewID(), in.UserID, dish.ID, in.Quantity, c)
	if err != nil {
		run.Fail("INVALID_ITEM")
		return nil, fmt.Errorf("validation: %w", err)
	}
	if err := s.carts.Add(ctx, item); err != nil {
		run.Fail("REPO_ADD_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	run.Annotate(
		observability.F("cart_item_id", item.ID),
		observability.F("removed", len(c.Removed)),
		observability.F("added", len(c.Added)),
	)
	return item, nil
}

func (s *Service) customize(ctx context.Context, dish *menu.Dish, removed, added []string) (domain.Customization, error) {
	var c domain.Customization

	seenRemoved := make(map[string]struct{}, len(removed))
	for _, ref := range removed {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		link, ok := baseLink(dish, ref)
		if !ok {
			return domain.Customization{}, fmt.Errorf("validation: %w: %q", ErrUnknownIngredient, ref)
		}
		if _, dup := seenRemoved[link.IngredientID]; dup {
			continue
		}
		seenRemoved[link.IngredientID] = struct{}{}
		c.Removed = append(c.Removed, link.IngredientID)
	}

	seenAdded := make(map[string]struct{}, len(added))
	for _, ref := range added {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		ing, err := s.extraIngredient(ctx, dish, ref)
		if err != nil {
			return domain.Customization{}, err
		}
		if _, dup := seenAdded[ing.ID]; dup {
			continue
		}
		seenAdded[ing.ID] = struct{}{}
		c.Added = append(c.Added, domain.Extra{ID: ing.ID, Name: ing.Name, UnitPrice: ing.UnitPrice})
	}
	return c, nil
}

func baseLink(dish *menu.Dish, ref string) (menu.Link, bool) {
	for _, l := range dish.BaseLinks() {
		if l.IngredientID == ref {
			return l, true
		}
		if l.Ingredient != nil && inventory.SameName(l.Ingredient.Name, ref) {
			return l, true
		}
	}
	return menu.Link{}, false
}

// extraIngredient binds an added option to the dish's declared extras, then to the whole ledger.
func (s *Service) extraIngredient(ctx context.Context, dish *menu.Dish, ref string) (*inventory.Ingredient, error) {
	if l, ok := dish.ExtraLink(ref, ref); ok && l.Ingredient != nil {
		return l.Ingredient, nil
	}
	ing, err := s.ingredients.Get(ctx, ref)
	if err == nil {
		return ing, nil
	}
	if !errors.Is(err, inventory.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	ing, err = s.ingredients.FindByName(ctx, ref)
	if err == nil {
		return ing, nil
	}
	if errors.Is(err, inventory.ErrNotFound) {
		return nil, fmt.Errorf("validation: %w: %q", ErrUnknownExtra, ref)
	}
	return nil, fmt.Errorf("%w: %w", ErrRepository, err)
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (_ *domain.Item, err error) {
	ctx, run := s.in.Start(ctx, useCaseUpdateQty, "UpdateQuantity",
		attribute.String("cart.user_id", userID),
		attribute.String("cart.item_id", itemID),
		attribute.Int("cart.quantity", quantity),
	)
	defer func() { run.End(err) }()

	item, err := s.owned(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("ITEM_NOT_FOUND")
		} else {
			run.Fail("REPO_GET_FAILED")
		}
		return nil, err
	}
	if err := item.SetQuantity(quantity); err != nil {
		run.Fail("INVALID_QUANTITY")
		return nil, fmt.Errorf("validation: %w", err)
	}
	if err := s.carts.Update(ctx, item); err != nil {
		run.Fail("REPO_UPDATE_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	return item, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (err error) {
	ctx, run := s.in.Start(ctx, useCaseRemoveItem, "RemoveItem",
		attribute.String("cart.user_id", userID),
		attribute.String("cart.item_id", itemID),
	)
	defer func() { run.End(err) }()

	if err := s.carts.Remove(ctx, userID, itemID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("ITEM_NOT_FOUND")
			return err
		}
		run.Fail("REPO_REMOVE_FAILED")
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
	return nil
}

// Line is a cart line priced at today's menu price plus the captured extras.
type Line struct {
	Item      *domain.Item
	DishName  string
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	// Unavailable is set when the dish was withdrawn or ran out of a base ingredient.
	Unavailable bool
}

type View struct {
	Lines []Line
	Total decimal.Decimal
}

func (s *Service) ListCart(ctx context.Context, userID string) (_ View, err error) {
	ctx, run := s.in.Start(ctx, useCaseListCart, "ListCart", attribute.String("cart.user_id", userID))
	defer func() { run.End(err) }()

	if userID == "" {
		run.Fail("USER_ID_REQUIRED")
		return View{}, fmt.Errorf("validation: %w", domain.ErrUserRequired)
	}
	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return View{}, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	view := View{Lines: make([]Line, 0, len(items)), Total: decimal.Zero}
	for _, item := range items {
		line := Line{Item: item, UnitPrice: item.Customization.ExtrasTotal()}
		dish, derr := s.dishes.Get(ctx, item.DishID)
		switch {
		case derr == nil:
			line.DishName = dish.Name
			line.UnitPrice = line.UnitPrice.Add(dish.Price)
			line.Unavailable = !dish.Listed()
		case errors.Is(derr, menu.ErrNotFound):
			line.Unavailable = true
		default:
			run.Fail("REPO_GET_FAILED")
			return View{}, fmt.Errorf("%w: %w", ErrRepository, derr)
		}
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Total = view.Total.Add(line.Subtotal)
		view.Lines = append(view.Lines, line)
	}
	run.Annotate(observability.F("lines", len(view.Lines)))
	return view, nil
}

// owned returns the item only when it belongs to userID; other users' lines read as missing.
func (s *Service) owned(ctx context.Context, userID, itemID string) (*domain.Item, error) {
	item, err := s.carts.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	if item.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return item, nil
}
