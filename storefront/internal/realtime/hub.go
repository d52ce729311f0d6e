package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gauravniet133/insta-canteen-connect/pkg/events"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cart"
)

const defaultBuffer = 16

// Filter selects the events a subscription receives: a customer's own
// orders, a seller's incoming orders, or both.
type Filter struct {
	UserID   string
	SellerID string
}

func (f Filter) matches(e events.OrderEvent) bool {
	return (f.UserID != "" && e.UserID == f.UserID) ||
		(f.SellerID != "" && e.SellerID == f.SellerID)
}

// Hub fans order events and cart notices out to live subscriptions. A
// subscriber that is not keeping up loses events instead of blocking the hub.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	log    *slog.Logger
}

func NewHub(buffer int, log *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		log:    log,
	}
}

func (h *Hub) Subscribe(f Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	s := &Subscription{
		hub:     h,
		id:      h.nextID,
		filter:  f,
		events:  make(chan events.OrderEvent, h.buffer),
		notices: make(chan cart.Notice, h.buffer),
	}
	h.subs[s.id] = s
	return s
}

// Publish delivers e to every matching subscription and returns how many
// received it.
func (h *Hub) Publish(e events.OrderEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, s := range h.subs {
		if !s.filter.matches(e) {
			continue
		}
		select {
		case s.events <- e:
			delivered++
		default:
			h.log.Warn("dropping order event for slow subscriber", "order_id", e.OrderID, "subscription", s.id)
		}
	}
	return delivered
}

// Notify pushes a cart notice to the user's open sessions.
func (h *Hub) Notify(ctx context.Context, userID string, n cart.Notice) {
	h.log.DebugContext(ctx, "notice", "user_id", userID, "title", n.Title, "variant", n.Variant)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.filter.UserID != userID {
			continue
		}
		select {
		case s.notices <- n:
		default:
		}
	}
}

// Len is the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.id]; !ok {
		return
	}
	delete(h.subs, s.id)
	close(s.events)
	close(s.notices)
}

// Subscription is a live feed of order events. Close stops delivery and
// closes the channels; nothing is delivered after Close returns.
type Subscription struct {
	hub     *Hub
	id      uint64
	filter  Filter
	events  chan events.OrderEvent
	notices chan cart.Notice
}

func (s *Subscription) Events() <-chan events.OrderEvent { return s.events }

func (s *Subscription) Notices() <-chan cart.Notice { return s.notices }

func (s *Subscription) Filter() Filter { return s.filter }

func (s *Subscription) Close() { s.hub.remove(s) }
