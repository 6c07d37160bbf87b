package ws

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alerta-utec/campuswatch/internal/domain"
	"github.com/alerta-utec/campuswatch/internal/realtime"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

// pushServer is a minimal websocket endpoint for tests. Each accepted
// connection is handed to the test through conns.
type pushServer struct {
	t        *testing.T
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	tokens []string
	conns  chan *websocket.Conn
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{t: t, conns: make(chan *websocket.Conn, 4)}
	ps.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.tokens = append(ps.tokens, r.URL.Query().Get("token"))
		ps.mu.Unlock()

		conn, err := ps.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.conns <- conn
	}))
	t.Cleanup(ps.server.Close)
	return ps
}

func (ps *pushServer) url() string {
	return "ws" + strings.TrimPrefix(ps.server.URL, "http")
}

func (ps *pushServer) accept() *websocket.Conn {
	ps.t.Helper()
	select {
	case conn := <-ps.conns:
		ps.t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		ps.t.Fatal("timed out waiting for websocket connection")
		return nil
	}
}

func (ps *pushServer) seenTokens() []string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	out := make([]string, len(ps.tokens))
	copy(out, ps.tokens)
	return out
}

func testConfig(url string) Config {
	return Config{
		URL:               url,
		ReconnectInterval: 10 * time.Millisecond,
		HandshakeTimeout:  time.Second,
	}
}

// eventRecorder collects delivered events and connectivity transitions.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.RealtimeEvent
	states []bool
}

func (r *eventRecorder) attach(c *Channel) {
	c.OnEvent(func(ev domain.RealtimeEvent) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	})
	c.OnConnectionChange(func(connected bool) {
		r.mu.Lock()
		r.states = append(r.states, connected)
		r.mu.Unlock()
	})
}

func (r *eventRecorder) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *eventRecorder) snapshot() ([]domain.RealtimeEvent, []bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]domain.RealtimeEvent, len(r.events))
	copy(events, r.events)
	states := make([]bool, len(r.states))
	copy(states, r.states)
	return events, states
}

func TestChannel_DeliversEvents(t *testing.T) {
	ps := newPushServer(t)
	ch := New(testConfig(ps.url()), staticTokens("token-123"), slog.Default())
	rec := &eventRecorder{}
	rec.attach(ch)
	t.Cleanup(ch.Disconnect)

	ch.Connect(nil)
	conn := ps.accept()

	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)

	frame := `{"kind":"incident_updated","incident_id":"inc_1","timestamp":150,"payload":{"status":"in_progress","updated_at":150}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))

	require.Eventually(t, func() bool { return rec.eventCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	events, states := rec.snapshot()
	ev := events[0]
	assert.Equal(t, domain.EventKindIncidentUpdated, ev.Kind)
	assert.Equal(t, "inc_1", ev.IncidentID)
	require.NotNil(t, ev.Payload.Status)
	assert.Equal(t, domain.IncidentStatusInProgress, *ev.Payload.Status)
	require.NotNil(t, ev.Payload.UpdatedAt)
	assert.Equal(t, int64(150), *ev.Payload.UpdatedAt)
	assert.Equal(t, []bool{true}, states)

	assert.Equal(t, []string{"token-123"}, ps.seenTokens())
}

func TestChannel_DropsMalformedFrames(t *testing.T) {
	ps := newPushServer(t)
	ch := New(testConfig(ps.url()), staticTokens(""), slog.Default())
	rec := &eventRecorder{}
	rec.attach(ch)
	t.Cleanup(ch.Disconnect)

	ch.Connect(nil)
	conn := ps.accept()
	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)

	frames := []string{
		`not json at all`,
		`{"kind":"incident_exploded","incident_id":"inc_1"}`,
		`{"kind":"incident_created","incident_id":"inc_2","timestamp":200}`,
	}
	for _, frame := range frames {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	}

	// only the well-formed frame survives, and delivery keeps working
	require.Eventually(t, func() bool { return rec.eventCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	events, _ := rec.snapshot()
	assert.Equal(t, domain.EventKindIncidentCreated, events[0].Kind)
	assert.Equal(t, "inc_2", events[0].IncidentID)
}

func TestChannel_ReconnectsAfterConnectionLoss(t *testing.T) {
	ps := newPushServer(t)
	ch := New(testConfig(ps.url()), staticTokens(""), slog.Default())
	rec := &eventRecorder{}
	rec.attach(ch)
	t.Cleanup(ch.Disconnect)

	ch.Connect(nil)
	first := ps.accept()
	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)

	// server drops the connection; the channel retries on its own
	require.NoError(t, first.Close())
	second := ps.accept()
	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)

	frame := `{"kind":"incident_created","incident_id":"inc_3","timestamp":300}`
	require.NoError(t, second.WriteMessage(websocket.TextMessage, []byte(frame)))
	require.Eventually(t, func() bool { return rec.eventCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, states := rec.snapshot()
	assert.Equal(t, []bool{true, false, true}, states)
}

func TestChannel_ManualDisconnect(t *testing.T) {
	ps := newPushServer(t)
	ch := New(testConfig(ps.url()), staticTokens(""), slog.Default())
	rec := &eventRecorder{}
	rec.attach(ch)

	ch.Connect(nil)
	ps.accept()
	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)

	ch.Disconnect()
	assert.False(t, ch.Connected())

	// no reconnect follows a manual disconnect
	time.Sleep(100 * time.Millisecond)
	assert.False(t, ch.Connected())
	select {
	case <-ps.conns:
		t.Fatal("channel reconnected after manual disconnect")
	default:
	}

	_, states := rec.snapshot()
	assert.Equal(t, []bool{true, false}, states)
}

func TestChannel_ConnectWhileConnectedIsNoOp(t *testing.T) {
	ps := newPushServer(t)
	ch := New(testConfig(ps.url()), staticTokens(""), slog.Default())
	t.Cleanup(ch.Disconnect)

	ch.Connect(nil)
	ps.accept()
	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)

	ch.Connect(nil)
	time.Sleep(50 * time.Millisecond)
	select {
	case <-ps.conns:
		t.Fatal("second Connect opened another connection")
	default:
	}
}

func TestChannel_GivesUpAfterMaxAttempts(t *testing.T) {
	// no server listening: every dial fails
	cfg := Config{
		URL:                  "ws://127.0.0.1:1/push",
		ReconnectInterval:    5 * time.Millisecond,
		MaxReconnectAttempts: 2,
		HandshakeTimeout:     50 * time.Millisecond,
	}
	ch := New(cfg, staticTokens(""), slog.Default())
	t.Cleanup(ch.Disconnect)

	ch.Connect(nil)

	assert.Eventually(t, func() bool {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		return ch.attempts >= cfg.MaxReconnectAttempts && ch.state == realtime.StateDisconnected
	}, 2*time.Second, 10*time.Millisecond)
}
