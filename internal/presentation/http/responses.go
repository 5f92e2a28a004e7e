package httppresentation

import (
	"time"

	appcart "github.com/Zhima-Mochi/restaurant-ordering/internal/application/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/catalog"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
	"github.com/shopspring/decimal"
)

type linkResponse struct {
	IngredientID string          `json:"ingredient_id"`
	Name         string          `json:"name,omitempty"`
	IsExtra      bool            `json:"is_extra"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	InStock      bool            `json:"in_stock"`
}

type dishResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
	Price       string         `json:"price"`
	Available   bool           `json:"available"`
	Enabled     bool           `json:"enabled"`
	InStock     bool           `json:"in_stock"`
	Popular     bool           `json:"popular"`
	New         bool           `json:"new"`
	Missing     []string       `json:"missing_ingredients,omitempty"`
	Ingredients []linkResponse `json:"ingredients"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toDishResponse(v catalog.DishView) dishResponse {
	d := v.Dish
	out := dishResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		ImageURL:    d.ImageURL,
		Price:       d.Price.StringFixed(2),
		Available:   v.Listed,
		Enabled:     d.Available,
		InStock:     v.InStock,
		Popular:     d.Popular,
		New:         d.New,
		Missing:     v.Missing,
		Ingredients: make([]linkResponse, 0, len(d.Links)),
		CreatedAt:   d.CreatedAt,
	}
	for _, l := range d.Links {
		lr := linkResponse{IngredientID: l.IngredientID, IsExtra: l.IsExtra, InStock: true}
		if l.Ingredient != nil {
			lr.Name = l.Ingredient.Name
			lr.UnitPrice = l.Ingredient.UnitPrice
			lr.InStock = l.Ingredient.InStock()
		}
		out.Ingredients = append(out.Ingredients, lr)
	}
	return out
}

type ingredientResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Stock          float64   `json:"stock"`
	Unit           string    `json:"unit"`
	AlertThreshold float64   `json:"alert_threshold"`
	UnitPrice      string    `json:"unit_price"`
	LowStock       bool      `json:"low_stock"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toIngredientResponse(i *inventory.Ingredient) ingredientResponse {
	return ingredientResponse{
		ID:             i.ID,
		Name:           i.Name,
		Stock:          i.Stock,
		Unit:           i.Unit,
		AlertThreshold: i.AlertThreshold,
		UnitPrice:      i.UnitPrice.StringFixed(2),
		LowStock:       i.LowStock(),
		UpdatedAt:      i.UpdatedAt,
	}
}

func toIngredientResponses(in []*inventory.Ingredient) []ingredientResponse {
	out := make([]ingredientResponse, 0, len(in))
	for _, i := range in {
		out = append(out, toIngredientResponse(i))
	}
	return out
}

type cartItemResponse struct {
	ID            string             `json:"id"`
	DishID        string             `json:"dish_id"`
	DishName      string             `json:"dish_name,omitempty"`
	Quantity      int                `json:"quantity"`
	Customization cart.Customization `json:"customization"`
	UnitPrice     string             `json:"unit_price,omitempty"`
	Subtotal      string             `json:"subtotal,omitempty"`
	Unavailable   bool               `json:"unavailable,omitempty"`
}

type cartResponse struct {
	Items []cartItemResponse `json:"items"`
	Total string             `json:"total"`
}

func toCartItemResponse(i *cart.Item) cartItemResponse {
	return cartItemResponse{
		ID:            i.ID,
		DishID:        i.DishID,
		Quantity:      i.Quantity,
		Customization: i.Customization,
	}
}

func toCartResponse(v appcart.View) cartResponse {
	out := cartResponse{Items: make([]cartItemResponse, 0, len(v.Lines)), Total: v.Total.StringFixed(2)}
	for _, l := range v.Lines {
		item := toCartItemResponse(l.Item)
		item.DishName = l.DishName
		item.UnitPrice = l.UnitPrice.StringFixed(2)
		item.Subtotal = l.Subtotal.StringFixed(2)
		item.Unavailable = l.Unavailable
		out.Items = append(out.Items, item)
	}
	return out
}

type orderItemResponse struct {
	ID            string             `json:"id"`
	DishID        string             `json:"dish_id"`
	DishName      string             `json:"dish_name"`
	UnitPrice     string             `json:"unit_price"`
	Quantity      int                `json:"quantity"`
	Subtotal      string             `json:"subtotal"`
	Customization cart.Customization `json:"customization"`
}

type orderResponse struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	Status    order.Status        `json:"status"`
	Subtotal  string              `json:"subtotal"`
	Discount  string              `json:"discount"`
	Total     string              `json:"total"`
	PromoCode string              `json:"promo_code,omitempty"`
	Items     []orderItemResponse `json:"items"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	out := orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    o.Status,
		Subtotal:  o.Subtotal.StringFixed(2),
		Discount:  o.Discount.StringFixed(2),
		Total:     o.Total.StringFixed(2),
		PromoCode: o.PromoCode,
		Items:     make([]orderItemResponse, 0, len(o.Items)),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemResponse{
			ID:            it.ID,
			DishID:        it.DishID,
			DishName:      it.DishName,
			UnitPrice:     it.UnitPrice.StringFixed(2),
			Quantity:      it.Quantity,
			Subtotal:      it.Subtotal().StringFixed(2),
			Customization: it.Customization,
		})
	}
	return out
}
