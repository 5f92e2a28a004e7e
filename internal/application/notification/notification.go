package notification

import (
	"context"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
)

const EventStatusChanged = "order_status_changed"

// Message is what listeners receive. For new orders it is
// {"event":"new_order","order":{...},"items":[...]}.
type Message struct {
	Event string             `json:"event"`
	Order order.Summary      `json:"order"`
	Items []order.LineDetail `json:"items,omitempty"`
	From  order.Status       `json:"from,omitempty"`
}

// Notifier delivers a message to one kind of listener. Delivery is at most once.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}

func FromPlaced(e order.PlacedEvent) Message {
	items := e.Items
	if items == nil {
		items = []order.LineDetail{}
	}
	return Message{Event: order.EventNewOrder, Order: e.Order, Items: items}
}

func FromStatusChanged(e order.StatusChangedEvent) Message {
	return Message{
		Event: EventStatusChanged,
		Order: order.Summary{
			ID:        e.OrderID,
			UserID:    e.UserID,
			Total:     e.Total,
			Status:    e.To,
			CreatedAt: e.PlacedAt,
		},
		From: e.From,
	}
}
