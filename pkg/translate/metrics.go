package translate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yatra_provider_requests_total",
			Help: "Total number of requests to translation endpoints",
		},
		[]string{"endpoint", "operation", "status"},
	)

	providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yatra_provider_request_duration_seconds",
			Help:    "Duration of translation endpoint requests in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"endpoint", "operation", "status"},
	)

	poolExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yatra_pool_exhausted_total",
			Help: "Number of pool calls that failed over every configured endpoint",
		},
		[]string{"operation"},
	)
)

// observeProviderRequest records metrics for one provider call.
func observeProviderRequest(endpoint, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	providerRequestsTotal.WithLabelValues(endpoint, operation, status).Inc()
	providerRequestDuration.WithLabelValues(endpoint, operation, status).Observe(duration.Seconds())
}
