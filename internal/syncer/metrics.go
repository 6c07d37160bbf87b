package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "campuswatch"

// Event drop reasons.
const (
	dropReasonStale      = "stale"
	dropReasonOutOfScope = "out_of_scope"
	dropReasonMalformed  = "malformed"
)

var (
	eventsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "events_applied_total",
			Help:      "Realtime events merged into the store",
		},
	)

	eventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "events_dropped_total",
			Help:      "Realtime events dropped without mutation",
		},
		[]string{"reason"},
	)

	resubscribes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "resubscribes_total",
			Help:      "Channel reconnects issued because the subject id set changed",
		},
	)
)

func recordEventApplied() {
	eventsApplied.Inc()
}

func recordEventDropped(reason string) {
	eventsDropped.WithLabelValues(reason).Inc()
}

func recordResubscribe() {
	resubscribes.Inc()
}
