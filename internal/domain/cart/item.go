package cart

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("cart: item not found")
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")
	ErrUserRequired    = errors.New("cart: user id is required")
)

const DefaultQuantity = 1

// Item is one cart line: a dish, how many, and what the customer changed on it.
type Item struct {
	ID            string
	UserID        string
	DishID        string
	Quantity      int
	Customization Customization
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewItem(id, userID, dishID string, quantity int, c Customization) (*Item, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if quantity == 0 {
		quantity = DefaultQuantity
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	now := time.Now().UTC()
	return &Item{
		ID:            id,
		UserID:        userID,
		DishID:        dishID,
		Quantity:      quantity,
		Customization: c,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (i *Item) SetQuantity(q int) error {
	if q < 1 {
		return ErrInvalidQuantity
	}
	i.Quantity = q
	i.UpdatedAt = time.Now().UTC()
	return nil
}

func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	c.Customization = i.Customization.Clone()
	return &c
}
