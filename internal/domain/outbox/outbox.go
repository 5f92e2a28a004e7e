package outbox

import "context"

// Event is anything published on the bus, routed by its name.
type Event interface {
	EventName() string
}

// Keyed events carry the id of the order or ingredient they concern.
type Keyed interface {
	Event
	EventKey() string
}

// KeyOf returns the event key, or "" for events that carry none.
func KeyOf(e Event) string {
	if k, ok := e.(Keyed); ok {
		return k.EventKey()
	}
	return ""
}

type Handler func(ctx context.Context, e Event) error

// Publisher is what use cases depend on; delivery is at-most-once.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber is what workers register with at startup.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
