package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/notification"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
)

const defaultListenerBuffer = 16

// Hub broadcasts notifications to every connected listener (the admin SSE stream).
// A listener whose buffer is full misses the message; nothing waits on slow readers.
type Hub struct {
	mu        sync.RWMutex
	listeners map[chan []byte]struct{}
	buffer    int
	log       observability.Logger
}

func NewHub(buffer int, logger observability.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultListenerBuffer
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Hub{
		listeners: make(map[chan []byte]struct{}),
		buffer:    buffer,
		log:       logger.With(observability.F("component", "notify_hub")),
	}
}

func (h *Hub) Name() string { return "sse" }

// Subscribe registers a listener. The returned cancel func must be called when it goes away.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, h.buffer)
	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, ch)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Listeners() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

func (h *Hub) Notify(ctx context.Context, msg notification.Message) error {
	_ = ctx
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: encode message: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for ch := range h.listeners {
		select {
		case ch <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.log.Warn("notification_dropped_slow_listener",
			observability.F("event", msg.Event),
			observability.F("dropped", dropped),
		)
	}
	return nil
}
