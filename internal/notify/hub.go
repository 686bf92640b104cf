// Package notify fans status events out to every connected client.
//
// Each subscriber owns a buffered queue, so one slow client cannot hold up
// the workflow or the other clients. Events reach each subscriber in publish
// order. A subscriber whose queue is full loses the event.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stevenhuff/media-renamer/internal/entity"
)

const (
	defaultBuffer = 64
)

type Subscription struct {
	C  <-chan entity.Event
	ch chan entity.Event
}

type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	origin string
	closed bool

	log *slog.Logger
}

func NewHub(buffer int, log *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		origin: uuid.NewString(),
		log:    log.With(slog.String("item", "NotifyHub")),
	}
}

// Origin identifies events published by this process.
func (h *Hub) Origin() string {
	return h.origin
}

func (h *Hub) Subscribe() *Subscription {
	ch := make(chan entity.Event, h.buffer)
	s := &Subscription{C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)

		return s
	}

	h.subs[s] = struct{}{}
	h.log.Debug("Subscribe", slog.Int("subscribers", len(h.subs)))

	return s
}

func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

func (h *Hub) Publish(t entity.EventType, message string) {
	h.Deliver(entity.Event{
		ID:      uuid.NewString(),
		Origin:  h.origin,
		Type:    t,
		Message: message,
		Time:    time.Now().UTC(),
	})
}

// Deliver hands e to every current subscriber without blocking.
func (h *Hub) Deliver(e entity.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		select {
		case s.ch <- e:
		default:
			h.log.Warn("Subscriber queue is full, drop event", slog.String("type", string(e.Type)), slog.String("id", e.ID))
		}
	}
}

// Subscribers counts the open subscriptions, event stream clients and the
// redis relay included.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs)
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}
