package sim

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alerta-utec/campuswatch/internal/domain"
)

// quietConfig keeps the random generator from firing during a test.
func quietConfig() Config {
	return Config{
		EventInterval:    time.Hour,
		EventJitter:      0,
		WatchdogInterval: time.Hour,
	}
}

func TestChannel_ConnectDisconnect(t *testing.T) {
	t.Run("connect reports connectivity", func(t *testing.T) {
		ch := New(quietConfig(), slog.Default())
		t.Cleanup(ch.Disconnect)

		var states []bool
		ch.OnConnectionChange(func(connected bool) { states = append(states, connected) })

		ch.Connect([]string{"inc_1"})

		assert.True(t, ch.Connected())
		assert.Equal(t, []bool{true}, states)
	})

	t.Run("disconnect is idempotent", func(t *testing.T) {
		ch := New(quietConfig(), slog.Default())

		var states []bool
		ch.OnConnectionChange(func(connected bool) { states = append(states, connected) })

		ch.Connect([]string{"inc_1"})
		ch.Disconnect()
		ch.Disconnect()

		assert.False(t, ch.Connected())
		assert.Equal(t, []bool{true, false}, states)
	})

	t.Run("disconnect without connect is a no-op", func(t *testing.T) {
		ch := New(quietConfig(), slog.Default())

		called := false
		ch.OnConnectionChange(func(bool) { called = true })

		ch.Disconnect()
		assert.False(t, called)
	})
}

func TestChannel_ConnectWhileConnected(t *testing.T) {
	cfg := Config{
		EventInterval:    20 * time.Millisecond,
		EventJitter:      0,
		WatchdogInterval: time.Hour,
	}
	ch := New(cfg, slog.Default())
	t.Cleanup(ch.Disconnect)

	var mu sync.Mutex
	counts := map[int64]int{}
	ch.OnEvent(func(ev domain.RealtimeEvent) {
		mu.Lock()
		counts[ev.Timestamp]++
		mu.Unlock()
	})

	ch.Connect([]string{"inc_1"})
	// a second Connect must not start a second delivery loop
	ch.Connect([]string{"inc_1", "inc_2"})

	time.Sleep(150 * time.Millisecond)
	ch.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	total := 0
	for _, n := range counts {
		total += n
	}
	// one generator at 20ms cannot produce more than ~8 events in 150ms;
	// a duplicated loop would roughly double that
	assert.Greater(t, total, 0)
	assert.LessOrEqual(t, total, 10)
}

func TestChannel_ForceUpdate(t *testing.T) {
	ch := New(quietConfig(), slog.Default())
	t.Cleanup(ch.Disconnect)

	var events []domain.RealtimeEvent
	ch.OnEvent(func(ev domain.RealtimeEvent) { events = append(events, ev) })

	ch.ForceUpdate("inc_1", domain.IncidentStatusResolved)

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, domain.EventKindIncidentUpdated, ev.Kind)
	assert.Equal(t, "inc_1", ev.IncidentID)
	require.NotNil(t, ev.Payload.Status)
	assert.Equal(t, domain.IncidentStatusResolved, *ev.Payload.Status)
	require.NotNil(t, ev.Payload.UpdatedAt)
	assert.Equal(t, ev.Timestamp, *ev.Payload.UpdatedAt)
}

func TestChannel_RandomUpdates(t *testing.T) {
	cfg := Config{
		EventInterval:    5 * time.Millisecond,
		EventJitter:      5 * time.Millisecond,
		WatchdogInterval: time.Hour,
	}
	ch := New(cfg, slog.Default())
	t.Cleanup(ch.Disconnect)

	var mu sync.Mutex
	var events []domain.RealtimeEvent
	ch.OnEvent(func(ev domain.RealtimeEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	ch.Connect([]string{"inc_1", "inc_2"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) >= 5
	}, time.Second, 5*time.Millisecond)

	ch.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	for _, ev := range events {
		assert.Contains(t, []string{"inc_1", "inc_2"}, ev.IncidentID)
		switch ev.Kind {
		case domain.EventKindIncidentCreated:
			assert.Nil(t, ev.Payload.Status)
		case domain.EventKindIncidentUpdated:
			require.NotNil(t, ev.Payload.Status)
			assert.True(t, ev.Payload.Status.IsValid())
			if *ev.Payload.Status != domain.IncidentStatusPending {
				require.NotNil(t, ev.Payload.AssignedTo)
				assert.Equal(t, "worker@utec.edu.pe", *ev.Payload.AssignedTo)
			}
		default:
			t.Fatalf("unexpected event kind %q", ev.Kind)
		}
	}
}

func TestChannel_WatchdogReconnects(t *testing.T) {
	cfg := Config{
		EventInterval:    time.Hour,
		EventJitter:      0,
		WatchdogInterval: 10 * time.Millisecond,
	}
	ch := New(cfg, slog.Default())
	t.Cleanup(ch.Disconnect)

	var mu sync.Mutex
	var states []bool
	ch.OnConnectionChange(func(connected bool) {
		mu.Lock()
		states = append(states, connected)
		mu.Unlock()
	})

	ch.Connect([]string{"inc_1"})
	ch.DropConnection()
	assert.False(t, ch.Connected())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 3
	}, time.Second, 5*time.Millisecond)

	assert.True(t, ch.Connected())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false, true}, states)
}

func TestChannel_DisconnectStopsWatchdog(t *testing.T) {
	cfg := Config{
		EventInterval:    time.Hour,
		EventJitter:      0,
		WatchdogInterval: 10 * time.Millisecond,
	}
	ch := New(cfg, slog.Default())

	ch.Connect([]string{"inc_1"})
	ch.Disconnect()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, ch.Connected())
}
