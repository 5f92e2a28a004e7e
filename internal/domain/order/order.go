package order

import (
	"errors"
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: conflict")
	ErrInvalidQuantity        = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount          = errors.New("order: amount must be zero or greater")
	ErrInvalidStateTransition = errors.New("order: invalid status transition")
	ErrUnknownStatus          = errors.New("order: unknown status")
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out for delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", ErrUnknownStatus
}

// Item is frozen at checkout: later menu or price changes never touch it.
type Item struct {
	ID            string
	OrderID       string
	DishID        string
	DishName      string
	UnitPrice     decimal.Decimal
	Quantity      int
	Customization cart.Customization
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID        string
	UserID    string
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	PromoCode string
	Status    Status
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id, userID string, items []Item, subtotal, discount decimal.Decimal, promoCode string) (*Order, error) {
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if subtotal.IsNegative() || discount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	now := time.Now().UTC()
	o := &Order{
		ID:        id,
		UserID:    userID,
		Subtotal:  subtotal,
		Discount:  discount,
		Total:     total,
		PromoCode: promoCode,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.Items = make([]Item, len(items))
	for i, it := range items {
		it.OrderID = id
		o.Items[i] = it
	}
	return o, nil
}

// TransitionTo moves the order along its lifecycle. Cancelling never gives stock back.
func (o *Order) TransitionTo(next Status) error {
	st, err := stateFor(o.Status)
	if err != nil {
		return err
	}
	ns, err := st.Next(next)
	if err != nil {
		return err
	}
	o.Status = ns.Status()
	o.touch()
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]Item, len(o.Items))
	for i, it := range o.Items {
		it.Customization = it.Customization.Clone()
		c.Items[i] = it
	}
	return &c
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
