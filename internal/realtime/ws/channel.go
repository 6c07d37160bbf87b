// Package ws implements the realtime channel over a websocket connection
// to the backend push endpoint. The wire format is JSON-encoded realtime
// events; malformed frames are dropped with a warning, never fatal.
package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/alerta-utec/campuswatch/internal/domain"
	"github.com/alerta-utec/campuswatch/internal/realtime"
	"github.com/gorilla/websocket"
)

// TokenSource provides the bearer token the push endpoint expects as a
// query parameter. Implemented by auth.Session.
type TokenSource interface {
	Token() string
}

// Config contains websocket channel configuration.
type Config struct {
	URL string
	// ReconnectInterval is the fixed wait between reconnection attempts.
	ReconnectInterval time.Duration
	// MaxReconnectAttempts caps consecutive failed attempts; zero means
	// retry until Disconnect.
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration
}

// DefaultConfig returns the reconnect policy the dashboard uses.
func DefaultConfig(wsURL string) Config {
	return Config{
		URL:               wsURL,
		ReconnectInterval: 3 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// Channel implements realtime.Channel over a websocket. Subject scoping is
// ignored: the backend broadcasts all events and consumers filter.
type Channel struct {
	cfg    Config
	tokens TokenSource
	hub    *realtime.Hub
	logger *slog.Logger

	mu          sync.Mutex
	state       realtime.State
	conn        *websocket.Conn
	retryTimer  *time.Timer
	attempts    int
	manualClose bool
}

// New creates a websocket channel.
func New(cfg Config, tokens TokenSource, logger *slog.Logger) *Channel {
	return &Channel{
		cfg:    cfg,
		tokens: tokens,
		hub:    realtime.NewHub(logger),
		logger: logger,
		state:  realtime.StateDisconnected,
	}
}

// Connect implements realtime.Channel. The id set is ignored (broadcast
// endpoint); connecting while connected or connecting is a no-op.
func (c *Channel) Connect(_ []string) {
	c.mu.Lock()
	if c.state != realtime.StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = realtime.StateConnecting
	c.manualClose = false
	c.attempts = 0
	c.mu.Unlock()

	go c.dial()
}

// Disconnect implements realtime.Channel. Cancels any scheduled reconnect;
// always wins over pending retries. Safe to call multiple times.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.manualClose = true
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	wasConnected := c.state == realtime.StateConnected
	c.state = realtime.StateDisconnected
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if wasConnected {
		realtime.RecordConnected(false)
		c.hub.EmitConnectionChange(false)
	}
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
	return c.state == realtime.StateConnected
}

func (c *Channel) dial() {
	endpoint, err := c.endpoint()
	if err != nil {
		c.logger.Error("invalid websocket URL", "url", c.cfg.URL, "error", err)
		return
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.Dial(endpoint, nil)
	if err != nil {
		c.logger.Warn("websocket dial failed", "error", err)
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	if c.manualClose {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.state = realtime.StateConnected
	c.conn = conn
	c.attempts = 0
	c.mu.Unlock()

	c.logger.Info("websocket connected")
	realtime.RecordConnected(true)
	c.hub.EmitConnectionChange(true)

	go c.readLoop(conn)
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(err)
			return
		}

		var ev domain.RealtimeEvent
		if err := json.Unmarshal(data, &ev); err != nil || !ev.Kind.IsValid() {
			c.logger.Warn("dropping malformed realtime frame", "error", err)
			realtime.RecordMalformedFrame()
			continue
		}

		realtime.RecordEventReceived(string(ev.Kind))
		c.hub.EmitEvent(ev)
	}
}

func (c *Channel) handleDisconnect(err error) {
	c.mu.Lock()
	manual := c.manualClose
	wasConnected := c.state == realtime.StateConnected
	c.conn = nil
	if !manual {
		c.state = realtime.StateDisconnected
	}
	c.mu.Unlock()

	if manual {
		return
	}

	c.logger.Warn("websocket connection lost", "error", err)
	if wasConnected {
		realtime.RecordConnected(false)
		c.hub.EmitConnectionChange(false)
	}
	c.scheduleReconnect()
}

func (c *Channel) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.manualClose {
		return
	}
	if c.cfg.MaxReconnectAttempts > 0 && c.attempts >= c.cfg.MaxReconnectAttempts {
		c.logger.Warn("websocket reconnect attempts exhausted", "attempts", c.attempts)
		c.state = realtime.StateDisconnected
		return
	}

	c.attempts++
	c.state = realtime.StateConnecting
	realtime.RecordReconnectAttempt()
	c.logger.Info("scheduling websocket reconnect",
		"attempt", c.attempts,
		"interval", c.cfg.ReconnectInterval,
	)

	c.retryTimer = time.AfterFunc(c.cfg.ReconnectInterval, c.dial)
}

func (c *Channel) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if token := c.tokens.Token(); token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
