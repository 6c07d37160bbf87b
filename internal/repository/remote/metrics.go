package remote

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "campuswatch"

var requestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "repository",
		Name:      "request_duration_seconds",
		Help:      "Duration of backend API requests",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	},
	[]string{"op", "status"},
)

// recordRequest records one backend API request.
func recordRequest(op, status string, duration time.Duration) {
	requestDuration.WithLabelValues(op, status).Observe(duration.Seconds())
}
