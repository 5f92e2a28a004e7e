package sqlstore

import (
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/promo"
	"github.com/shopspring/decimal"
)

type ingredientModel struct {
	ID             string          `gorm:"primaryKey;size:36"`
	Name           string          `gorm:"size:191;uniqueIndex;not null"`
	Stock          float64         `gorm:"not null;default:0"`
	Unit           string          `gorm:"size:32;not null"`
	AlertThreshold float64         `gorm:"not null;default:5"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ingredientModel) TableName() string { return "ingredients" }

type dishModel struct {
	ID          string                `gorm:"primaryKey;size:36"`
	Name        string                `gorm:"size:191;not null"`
	Description string                `gorm:"type:text"`
	Category    string                `gorm:"size:64"`
	ImageURL    string                `gorm:"size:512"`
	Price       decimal.Decimal       `gorm:"type:decimal(10,2);not null"`
	Available   bool                  `gorm:"not null;default:true"`
	Popular     bool                  `gorm:"not null;default:false"`
	IsNew       bool                  `gorm:"column:is_new;not null;default:false"`
	Links       []dishIngredientModel `gorm:"foreignKey:DishID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time             `gorm:"index"`
	UpdatedAt   time.Time
}

func (dishModel) TableName() string { return "dishes" }

type dishIngredientModel struct {
	DishID       string           `gorm:"primaryKey;size:36"`
	IngredientID string           `gorm:"primaryKey;size:36;index"`
	IsExtra      bool             `gorm:"not null;default:false"`
	Ingredient   *ingredientModel `gorm:"foreignKey:IngredientID;constraint:OnDelete:RESTRICT"`
}

func (dishIngredientModel) TableName() string { return "dish_ingredients" }

type cartItemModel struct {
	ID            string             `gorm:"primaryKey;size:36"`
	UserID        string             `gorm:"size:64;index;not null"`
	DishID        string             `gorm:"size:36;not null"`
	Quantity      int                `gorm:"not null;default:1"`
	Customization cart.Customization `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (cartItemModel) TableName() string { return "cart_items" }

type orderModel struct {
	ID        string           `gorm:"primaryKey;size:36"`
	UserID    string           `gorm:"size:64;index;not null"`
	Subtotal  decimal.Decimal  `gorm:"type:decimal(10,2);not null"`
	Discount  decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0"`
	Total     decimal.Decimal  `gorm:"type:decimal(10,2);not null"`
	PromoCode string           `gorm:"size:64"`
	Status    string           `gorm:"size:32;not null;default:pending"`
	Items     []orderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"index"`
	UpdatedAt time.Time
}

func (orderModel) TableName() string { return "orders" }

type orderItemModel struct {
	ID            string             `gorm:"primaryKey;size:36"`
	OrderID       string             `gorm:"size:36;index;not null"`
	DishID        string             `gorm:"size:36"`
	DishName      string             `gorm:"size:191;not null"`
	UnitPrice     decimal.Decimal    `gorm:"type:decimal(10,2);not null"`
	Quantity      int                `gorm:"not null"`
	Customization cart.Customization `gorm:"type:text"`
}

func (orderItemModel) TableName() string { return "order_items" }

type promoCodeModel struct {
	Code           string          `gorm:"primaryKey;size:64"`
	DiscountType   string          `gorm:"size:16;not null"`
	DiscountValue  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	MinOrderAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	ExpiresAt      *time.Time
	Active         bool `gorm:"not null;default:true"`
	CurrentUses    int  `gorm:"not null;default:0"`
	CreatedAt      time.Time
}

func (promoCodeModel) TableName() string { return "promo_codes" }

func allModels() []any {
	return []any{
		&ingredientModel{},
		&dishModel{},
		&dishIngredientModel{},
		&cartItemModel{},
		&orderModel{},
		&orderItemModel{},
		&promoCodeModel{},
	}
}

func ingredientFromModel(m *ingredientModel) *inventory.Ingredient {
	if m == nil {
		return nil
	}
	return &inventory.Ingredient{
		ID:             m.ID,
		Name:           m.Name,
		Stock:          m.Stock,
		Unit:           m.Unit,
		AlertThreshold: m.AlertThreshold,
		UnitPrice:      m.UnitPrice,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func ingredientToModel(i *inventory.Ingredient) *ingredientModel {
	return &ingredientModel{
		ID:             i.ID,
		Name:           i.Name,
		Stock:          i.Stock,
		Unit:           i.Unit,
		AlertThreshold: i.AlertThreshold,
		UnitPrice:      i.UnitPrice,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

func dishFromModel(m *dishModel) *menu.Dish {
	d := &menu.Dish{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		ImageURL:    m.ImageURL,
		Price:       m.Price,
		Available:   m.Available,
		Popular:     m.Popular,
		New:         m.IsNew,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	d.Links = make([]menu.Link, 0, len(m.Links))
	for _, l := range m.Links {
		d.Links = append(d.Links, menu.Link{
			IngredientID: l.IngredientID,
			IsExtra:      l.IsExtra,
			Ingredient:   ingredientFromModel(l.Ingredient),
		})
	}
	return d
}

func dishToModel(d *menu.Dish) *dishModel {
	m := &dishModel{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		ImageURL:    d.ImageURL,
		Price:       d.Price,
		Available:   d.Available,
		Popular:     d.Popular,
		IsNew:       d.New,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, l := range d.Links {
		m.Links = append(m.Links, dishIngredientModel{DishID: d.ID, IngredientID: l.IngredientID, IsExtra: l.IsExtra})
	}
	return m
}

func cartItemFromModel(m *cartItemModel) *cart.Item {
	return &cart.Item{
		ID:            m.ID,
		UserID:        m.UserID,
		DishID:        m.DishID,
		Quantity:      m.Quantity,
		Customization: m.Customization,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func cartItemToModel(i *cart.Item) *cartItemModel {
	return &cartItemModel{
		ID:            i.ID,
		UserID:        i.UserID,
		DishID:        i.DishID,
		Quantity:      i.Quantity,
		Customization: i.Customization,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

func orderFromModel(m *orderModel) *order.Order {
	o := &order.Order{
		ID:        m.ID,
		UserID:    m.UserID,
		Subtotal:  m.Subtotal,
		Discount:  m.Discount,
		Total:     m.Total,
		PromoCode: m.PromoCode,
		Status:    order.Status(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	o.Items = make([]order.Item, 0, len(m.Items))
	for _, it := range m.Items {
		o.Items = append(o.Items, order.Item{
			ID:            it.ID,
			OrderID:       it.OrderID,
			DishID:        it.DishID,
			DishName:      it.DishName,
			UnitPrice:     it.UnitPrice,
			Quantity:      it.Quantity,
			Customization: it.Customization,
		})
	}
	return o
}

func orderToModel(o *order.Order) *orderModel {
	m := &orderModel{
		ID:        o.ID,
		UserID:    o.UserID,
		Subtotal:  o.Subtotal,
		Discount:  o.Discount,
		Total:     o.Total,
		PromoCode: o.PromoCode,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, it := range o.Items {
		m.Items = append(m.Items, orderItemModel{
			ID:            it.ID,
			OrderID:       o.ID,
			DishID:        it.DishID,
			DishName:      it.DishName,
			UnitPrice:     it.UnitPrice,
			Quantity:      it.Quantity,
			Customization: it.Customization,
		})
	}
	return m
}

func promoFromModel(m *promoCodeModel) *promo.Code {
	return &promo.Code{
		Code:           m.Code,
		DiscountType:   promo.DiscountType(m.DiscountType),
		DiscountValue:  m.DiscountValue,
		MinOrderAmount: m.MinOrderAmount,
		ExpiresAt:      m.ExpiresAt,
		Active:         m.Active,
		CurrentUses:    m.CurrentUses,
		CreatedAt:      m.CreatedAt,
	}
}

func promoToModel(c *promo.Code) *promoCodeModel {
	return &promoCodeModel{
		Code:           c.Code,
		DiscountType:   string(c.DiscountType),
		DiscountValue:  c.DiscountValue,
		MinOrderAmount: c.MinOrderAmount,
		ExpiresAt:      c.ExpiresAt,
		Active:         c.Active,
		CurrentUses:    c.CurrentUses,
		CreatedAt:      c.CreatedAt,
	}
}
