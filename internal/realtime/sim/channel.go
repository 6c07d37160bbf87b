// Package sim provides an interval-driven fake realtime channel. It emits
// random incident updates on an unpredictable schedule so the
// reconciliation logic can be exercised without a backend.
package sim

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/alerta-utec/campuswatch/internal/domain"
	"github.com/alerta-utec/campuswatch/internal/realtime"
)

// Config controls the simulated event cadence.
type Config struct {
	// Events fire every EventInterval plus up to EventJitter of random delay.
	EventInterval time.Duration
	EventJitter   time.Duration
	// WatchdogInterval is how often a dropped connection is re-established.
	WatchdogInterval time.Duration
}

// DefaultConfig matches the cadence the dashboards were tuned against.
func DefaultConfig() Config {
	return Config{
		EventInterval:    8 * time.Second,
		EventJitter:      7 * time.Second,
		WatchdogInterval: 30 * time.Second,
	}
}

// Channel implements realtime.Channel with a ticker-driven generator.
type Channel struct {
	cfg    Config
	hub    *realtime.Hub
	logger *slog.Logger
	now    func() int64

	mu           sync.Mutex
	connected    bool
	subjects     []string
	sessionStop  chan struct{}
	watchdogStop chan struct{}
}

// New creates a simulated channel.
func New(cfg Config, logger *slog.Logger) *Channel {
	return &Channel{
		cfg:    cfg,
		hub:    realtime.NewHub(logger),
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// Connect implements realtime.Channel. Connecting while connected is a
// no-op so duplicate delivery timers are never created.
func (c *Channel) Connect(subjectIDs []string) {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return
	}

	c.subjects = append([]string(nil), subjectIDs...)
	c.connected = true
	c.sessionStop = make(chan struct{})
	go c.deliver(c.sessionStop)

	if c.watchdogStop == nil {
		c.watchdogStop = make(chan struct{})
		go c.watchdog(c.watchdogStop)
	}
	c.mu.Unlock()

	realtime.RecordConnected(true)
	c.hub.EmitConnectionChange(true)
}

// Disconnect implements realtime.Channel. It is terminal: the watchdog is
// stopped too, so no reconnect follows. Safe to call multiple times.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	if c.sessionStop != nil {
		close(c.sessionStop)
		c.sessionStop = nil
	}
	if c.watchdogStop != nil {
		close(c.watchdogStop)
		c.watchdogStop = nil
	}
	c.mu.Unlock()

	if wasConnected {
		realtime.RecordConnected(false)
		c.hub.EmitConnectionChange(false)
	}
}

// DropConnection simulates a network failure: delivery stops and the
// watchdog re-establishes the connection later.
func (c *Channel) DropConnection() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	if c.sessionStop != nil {
		close(c.sessionStop)
		c.sessionStop = nil
	}
	c.mu.Unlock()

	realtime.RecordConnected(false)
	c.hub.EmitConnectionChange(false)
}

// OnEvent implements realtime.Channel.
func (c *Channel) OnEvent(handler func(domain.RealtimeEvent)) func() {
	return c.hub.OnEvent(handler)
}

// OnConnectionChange implements realtime.Channel.
func (c *Channel) OnConnectionChange(handler func(bool)) func() {
	return c.hub.OnConnectionChange(handler)
}

// Connected implements realtime.Channel.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ForceUpdate emits a deterministic update event, bypassing the random
// schedule. Useful for demos and tests.
func (c *Channel) ForceUpdate(incidentID string, status domain.IncidentStatus) {
	now := c.now()
	ev := domain.RealtimeEvent{
		Kind:       domain.EventKindIncidentUpdated,
		IncidentID: incidentID,
		Timestamp:  now,
		Payload: domain.EventPayload{
			Status:    &status,
			UpdatedAt: &now,
		},
	}
	realtime.RecordEventReceived(string(ev.Kind))
	c.hub.EmitEvent(ev)
}

// deliver emits random updates until the session stop channel closes.
func (c *Channel) deliver(stop chan struct{}) {
	for {
		timer := time.NewTimer(c.nextDelay())
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			c.emitRandomUpdate()
		}
	}
}

// watchdog reconnects after a dropped connection. Only Disconnect stops it.
func (c *Channel) watchdog(stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			reconnect := !c.connected
			subjects := append([]string(nil), c.subjects...)
			c.mu.Unlock()

			if reconnect {
				realtime.RecordReconnectAttempt()
				c.logger.Info("simulated channel reconnecting", "subjects", len(subjects))
				c.reconnect(subjects)
			}
		}
	}
}

// reconnect restores delivery without spawning a second watchdog.
func (c *Channel) reconnect(subjects []string) {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return
	}
	c.subjects = subjects
	c.connected = true
	c.sessionStop = make(chan struct{})
	go c.deliver(c.sessionStop)
	c.mu.Unlock()

	realtime.RecordConnected(true)
	c.hub.EmitConnectionChange(true)
}

func (c *Channel) nextDelay() time.Duration {
	d := c.cfg.EventInterval
	if c.cfg.EventJitter > 0 {
		d += rand.N(c.cfg.EventJitter)
	}
	return d
}

func (c *Channel) emitRandomUpdate() {
	c.mu.Lock()
	connected := c.connected
	subjects := append([]string(nil), c.subjects...)
	c.mu.Unlock()

	if !connected || len(subjects) == 0 {
		return
	}

	incidentID := subjects[rand.IntN(len(subjects))]
	now := c.now()

	// Occasionally announce a brand-new incident. The payload is partial;
	// consumers must re-list to get the full record.
	if rand.Float64() > 0.8 {
		ev := domain.RealtimeEvent{
			Kind:       domain.EventKindIncidentCreated,
			IncidentID: incidentID,
			Timestamp:  now,
		}
		realtime.RecordEventReceived(string(ev.Kind))
		c.hub.EmitEvent(ev)
		return
	}

	statuses := []domain.IncidentStatus{
		domain.IncidentStatusPending,
		domain.IncidentStatusInProgress,
		domain.IncidentStatusResolved,
	}
	status := statuses[rand.IntN(len(statuses))]

	payload := domain.EventPayload{
		Status:    &status,
		UpdatedAt: &now,
	}
	if status != domain.IncidentStatusPending {
		handler := "worker@utec.edu.pe"
		payload.AssignedTo = &handler
	}

	ev := domain.RealtimeEvent{
		Kind:       domain.EventKindIncidentUpdated,
		IncidentID: incidentID,
		Payload:    payload,
		Timestamp:  now,
	}
	realtime.RecordEventReceived(string(ev.Kind))
	c.hub.EmitEvent(ev)
}
