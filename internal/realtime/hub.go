package realtime

import (
	"log/slog"
	"sync"

	"github.com/alerta-utec/campuswatch/internal/domain"
)

// Hub manages channel subscribers and event fan-out. Handlers are invoked
// in subscription order; a panicking handler is logged and skipped so one
// failure never breaks delivery for the rest.
type Hub struct {
	mu        sync.Mutex
	nextID    int
	eventSubs []subscriber[domain.RealtimeEvent]
	connSubs  []subscriber[bool]
	logger    *slog.Logger
}

type subscriber[T any] struct {
	id      int
	handler func(T)
}

// NewHub creates a hub. A nil logger falls back to slog.Default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger}
}

// OnEvent registers an event handler and returns its unsubscribe function.
// Unsubscribing is idempotent and safe from within a handler.
func (h *Hub) OnEvent(handler func(domain.RealtimeEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.eventSubs = append(h.eventSubs, subscriber[domain.RealtimeEvent]{id: id, handler: handler})
	return func() { h.removeEventSub(id) }
}

// OnConnectionChange registers a connectivity handler and returns its
// unsubscribe function.
func (h *Hub) OnConnectionChange(handler func(bool)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.connSubs = append(h.connSubs, subscriber[bool]{id: id, handler: handler})
	return func() { h.removeConnSub(id) }
}

// EmitEvent delivers the event to all subscribers in subscription order.
func (h *Hub) EmitEvent(event domain.RealtimeEvent) {
	h.mu.Lock()
	subs := make([]subscriber[domain.RealtimeEvent], len(h.eventSubs))
	copy(subs, h.eventSubs)
	h.mu.Unlock()

	for _, s := range subs {
		h.safeCall(func() { s.handler(event) })
	}
}

// EmitConnectionChange delivers a connectivity transition to all subscribers.
func (h *Hub) EmitConnectionChange(connected bool) {
	h.mu.Lock()
	subs := make([]subscriber[bool], len(h.connSubs))
	copy(subs, h.connSubs)
	h.mu.Unlock()

	for _, s := range subs {
		h.safeCall(func() { s.handler(connected) })
	}
}

func (h *Hub) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("realtime handler panicked", "panic", r)
		}
	}()
	fn()
}

func (h *Hub) removeEventSub(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.eventSubs {
		if s.id == id {
			h.eventSubs = append(h.eventSubs[:i], h.eventSubs[i+1:]...)
			return
		}
	}
}

func (h *Hub) removeConnSub(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.connSubs {
		if s.id == id {
			h.connSubs = append(h.connSubs[:i], h.connSubs[i+1:]...)
			return
		}
	}
}
