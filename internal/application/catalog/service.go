package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	catalogService    = "catalog-service"
	useCaseListDishes = "catalog.list"
	useCaseGetDish    = "catalog.get"
	useCaseToggleDish = "catalog.toggle_availability"
)

var ErrRepository = errors.New("catalog: repository failure")

// Listing selects which slice of the menu to return.
type Listing string

const (
	ListingAll     Listing = "all"
	ListingPopular Listing = "popular"
	ListingNew     Listing = "new"
)

type ListDishesInput struct {
	Listing Listing
	// IncludeUnavailable also returns dishes hidden by the admin toggle or by missing stock.
	IncludeUnavailable bool
}

// DishView is a dish as shown on the menu, with its live availability.
type DishView struct {
	Dish    *menu.Dish
	InStock bool
	Listed  bool
	// Missing names the base ingredients that are out of stock.
	Missing []string
}

type Service struct {
	dishes menu.Repository
	in     application.Instrument
}

func NewService(dishes menu.Repository, tel observability.Observability) *Service {
	return &Service{dishes: dishes, in: application.NewInstrument(tel, catalogService)}
}

// ListDishes returns the menu. Customers only see dishes that are toggled on and fully in stock.
func (s *Service) ListDishes(ctx context.Context, in ListDishesInput) (_ []DishView, err error) {
	if in.Listing == "" {
		in.Listing = ListingAll
	}
	ctx, run := s.in.Start(ctx, useCaseListDishes, "ListDishes",
		attribute.String("catalog.listing", string(in.Listing)),
		attribute.Bool("catalog.include_unavailable", in.IncludeUnavailable),
	)
	defer func() { run.End(err) }()

	filter := menu.Filter{AvailableOnly: !in.IncludeUnavailable}
	limit := 0
	switch in.Listing {
	case ListingAll:
	case ListingPopular:
		filter.PopularOnly = true
		limit = menu.PopularLimit
	case ListingNew:
		filter.NewOnly = true
		filter.NewestFirst = true
		limit = menu.NewestLimit
	default:
		run.Fail("UNKNOWN_LISTING")
		return nil, fmt.Errorf("validation: unknown listing %q", in.Listing)
	}

	dishes, err := s.dishes.List(ctx, filter)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	out := make([]DishView, 0, len(dishes))
	for _, d := range dishes {
		v := view(d)
		if !in.IncludeUnavailable && !v.Listed {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	run.Annotate(observability.F("dishes", len(out)))
	return out, nil
}

func (s *Service) GetDish(ctx context.Context, id string) (_ DishView, err error) {
	ctx, run := s.in.Start(ctx, useCaseGetDish, "GetDish", attribute.String("dish.id", id))
	defer func() { run.End(err) }()

	d, err := s.dishes.Get(ctx, id)
	if err != nil {
		if errors.Is(err, menu.ErrNotFound) {
			run.Fail("DISH_NOT_FOUND")
			return DishView{}, err
		}
		run.Fail("REPO_GET_FAILED")
		return DishView{}, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	return view(d), nil
}

// SetAvailability flips the admin toggle. Stock still decides whether customers see the dish.
func (s *Service) SetAvailability(ctx context.Context, id string, available bool) (_ DishView, err error) {
	ctx, run := s.in.Start(ctx, useCaseToggleDish, "SetAvailability",
		attribute.String("dish.id", id),
		attribute.Bool("dish.available", available),
	)
	defer func() { run.End(err) }()

	d, err := s.dishes.Get(ctx, id)
	if err != nil {
		if errors.Is(err, menu.ErrNotFound) {
			run.Fail("DISH_NOT_FOUND")
			return DishView{}, err
		}
		run.Fail("REPO_GET_FAILED")
		return DishView{}, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	d.SetAvailable(available)
	if err := s.dishes.Update(ctx, d); err != nil {
		run.Fail("REPO_UPDATE_FAILED")
		return DishView{}, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	return view(d), nil
}

func view(d *menu.Dish) DishView {
	return DishView{
		Dish:    d,
		InStock: d.InStock(),
		Listed:  d.Listed(),
		Missing: d.MissingIngredients(),
	}
}
