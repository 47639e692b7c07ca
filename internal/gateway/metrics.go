package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dimetrics_backend_requests_total",
			Help: "Total Dimetrics API requests by method and status code.",
		},
		[]string{"method", "code"},
	)
	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dimetrics_backend_request_duration_seconds",
			Help:    "Duration of Dimetrics API requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method"},
	)
)

// observe records one request. code is the HTTP status or "error" for
// transport failures.
func observe(method, code string, d time.Duration) {
	backendRequestsTotal.WithLabelValues(method, code).Inc()
	backendRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}
