// Package realtime abstracts the push-update source that feeds the sync
// controller: either a real websocket or an in-process simulated generator.
// Application logic never branches on which implementation is active.
package realtime

import "github.com/alerta-utec/campuswatch/internal/domain"

// State represents the connection state of a channel.
type State string

// Connection states.
const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Channel delivers realtime events asynchronously and reports connectivity.
//
// Connect scopes delivery to the given incident ids, though implementations
// may broadcast everything; consumers filter defensively. Connect while
// connected is a no-op and must not create duplicate delivery timers.
// Disconnect is idempotent, cancels any scheduled reconnect, and wins over
// pending retries. Connection loss is never fatal: it is reported through
// OnConnectionChange and recovered by the implementation's retry policy.
type Channel interface {
	Connect(subjectIDs []string)
	Disconnect()
	OnEvent(handler func(domain.RealtimeEvent)) (unsubscribe func())
	OnConnectionChange(handler func(connected bool)) (unsubscribe func())
	Connected() bool
}
