package order

import (
	"time"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"github.com/shopspring/decimal"
)

const EventNewOrder = "new_order"

// Summary is the order part of the new_order notification.
type Summary struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// LineDetail is a cart line as it stood when the order was placed.
type LineDetail struct {
	ID            string             `json:"id"`
	DishID        string             `json:"dish_id"`
	DishName      string             `json:"dish_name"`
	Quantity      int                `json:"quantity"`
	Customization cart.Customization `json:"customization"`
}

// PlacedEvent is published once per successful checkout.
type PlacedEvent struct {
	Order      Summary      `json:"order"`
	Items      []LineDetail `json:"items"`
	OccurredAt time.Time    `json:"-"`
}

func (PlacedEvent) EventName() string { return EventNewOrder }

func (e PlacedEvent) EventKey() string { return e.Order.ID }

func NewPlacedEvent(o *Order, lines []LineDetail) PlacedEvent {
	return PlacedEvent{
		Order: Summary{
			ID:        o.ID,
			UserID:    o.UserID,
			Total:     o.Total,
			Status:    o.Status,
			CreatedAt: o.CreatedAt,
		},
		Items:      lines,
		OccurredAt: time.Now().UTC(),
	}
}

// StatusChangedEvent is published after an admin moves an order along its lifecycle.
type StatusChangedEvent struct {
	OrderID    string
	UserID     string
	Total      decimal.Decimal
	PlacedAt   time.Time
	From       Status
	To         Status
	OccurredAt time.Time
}

func (StatusChangedEvent) EventName() string { return "order.status_changed" }

func (e StatusChangedEvent) EventKey() string { return e.OrderID }

func NewStatusChangedEvent(o *Order, from Status) StatusChangedEvent {
	return StatusChangedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Total:      o.Total,
		PlacedAt:   o.CreatedAt,
		From:       from,
		To:         o.Status,
		OccurredAt: time.Now().UTC(),
	}
}
