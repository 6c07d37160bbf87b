package realtime

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alerta-utec/campuswatch/internal/domain"
)

func TestHub_EmitEvent(t *testing.T) {
	t.Run("handlers run in subscription order", func(t *testing.T) {
		h := NewHub(slog.Default())

		var order []string
		h.OnEvent(func(domain.RealtimeEvent) { order = append(order, "first") })
		h.OnEvent(func(domain.RealtimeEvent) { order = append(order, "second") })
		h.OnEvent(func(domain.RealtimeEvent) { order = append(order, "third") })

		h.EmitEvent(domain.RealtimeEvent{Kind: domain.EventKindIncidentUpdated})

		assert.Equal(t, []string{"first", "second", "third"}, order)
	})

	t.Run("panicking handler does not break delivery", func(t *testing.T) {
		h := NewHub(slog.Default())

		delivered := 0
		h.OnEvent(func(domain.RealtimeEvent) { panic("boom") })
		h.OnEvent(func(domain.RealtimeEvent) { delivered++ })

		h.EmitEvent(domain.RealtimeEvent{Kind: domain.EventKindIncidentUpdated})

		assert.Equal(t, 1, delivered)
	})
}

func TestHub_Unsubscribe(t *testing.T) {
	t.Run("removed handler stops receiving", func(t *testing.T) {
		h := NewHub(slog.Default())

		calls := 0
		unsub := h.OnEvent(func(domain.RealtimeEvent) { calls++ })

		h.EmitEvent(domain.RealtimeEvent{})
		unsub()
		h.EmitEvent(domain.RealtimeEvent{})

		assert.Equal(t, 1, calls)
	})

	t.Run("unsubscribe is idempotent and removes only its own handler", func(t *testing.T) {
		h := NewHub(slog.Default())

		var calls []string
		unsubA := h.OnEvent(func(domain.RealtimeEvent) { calls = append(calls, "a") })
		h.OnEvent(func(domain.RealtimeEvent) { calls = append(calls, "b") })

		unsubA()
		unsubA()
		h.EmitEvent(domain.RealtimeEvent{})

		assert.Equal(t, []string{"b"}, calls)
	})

	t.Run("unsubscribe from within a handler", func(t *testing.T) {
		h := NewHub(slog.Default())

		calls := 0
		var unsub func()
		unsub = h.OnEvent(func(domain.RealtimeEvent) {
			calls++
			unsub()
		})

		h.EmitEvent(domain.RealtimeEvent{})
		h.EmitEvent(domain.RealtimeEvent{})

		assert.Equal(t, 1, calls)
	})
}

func TestHub_ConnectionChange(t *testing.T) {
	h := NewHub(slog.Default())

	var states []bool
	unsub := h.OnConnectionChange(func(connected bool) { states = append(states, connected) })

	h.EmitConnectionChange(true)
	h.EmitConnectionChange(false)
	unsub()
	h.EmitConnectionChange(true)

	assert.Equal(t, []bool{true, false}, states)
}
