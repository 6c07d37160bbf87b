package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "campuswatch"

var (
	eventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_received_total",
			Help:      "Realtime events received from the channel",
		},
		[]string{"kind"},
	)

	malformedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "malformed_frames_total",
			Help:      "Inbound frames dropped because they could not be decoded",
		},
	)

	reconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "reconnect_attempts_total",
			Help:      "Reconnection attempts after connection loss",
		},
	)

	connectedGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connected",
			Help:      "Whether the realtime channel is currently connected",
		},
	)
)

// RecordEventReceived records one inbound realtime event.
func RecordEventReceived(kind string) {
	eventsReceived.WithLabelValues(kind).Inc()
}

// RecordMalformedFrame records one dropped undecodable frame.
func RecordMalformedFrame() {
	malformedFrames.Inc()
}

// RecordReconnectAttempt records one reconnection attempt.
func RecordReconnectAttempt() {
	reconnectAttempts.Inc()
}

// RecordConnected records the current connection state.
func RecordConnected(connected bool) {
	if connected {
		connectedGauge.Set(1)
	} else {
		connectedGauge.Set(0)
	}
}
