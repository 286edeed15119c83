// Package metrics provides Prometheus metrics for the voxdeploy gateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by endpoint and status code
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxdeploy_requests_total",
			Help: "Total HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// RequestDuration tracks HTTP request latency by endpoint
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voxdeploy_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// LoginAttempts counts login attempts by result (success, failure, rate_limited)
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxdeploy_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	// MarketplaceTxTotal counts marketplace transactions by operation and result
	MarketplaceTxTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voxdeploy_marketplace_tx_total",
			Help: "Marketplace transactions by operation and result",
		},
		[]string{"operation", "result"},
	)

	// MarketplaceLatency tracks marketplace call latency by operation
	MarketplaceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voxdeploy_marketplace_latency_seconds",
			Help:    "Marketplace call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	// ReconciliationGaps counts remote-success/local-failure divergences
	ReconciliationGaps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voxdeploy_reconciliation_gaps_total",
			Help: "Deployments that exist remotely but failed to persist locally",
		},
	)

	// SessionsSwept counts expired sessions removed by the background sweep
	SessionsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voxdeploy_sessions_swept_total",
			Help: "Expired sessions removed by garbage collection",
		},
	)
)

// RecordMarketplaceTx records one marketplace call outcome with latency
func RecordMarketplaceTx(operation, result string, duration time.Duration) {
	MarketplaceTxTotal.WithLabelValues(operation, result).Inc()
	MarketplaceLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRequest records one HTTP request outcome with latency
func RecordRequest(endpoint, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(endpoint, status).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
