package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for UpstreamRequests.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected" // circuit open
)

var (
	// UpstreamRequests counts analytics API fetches by endpoint and outcome.
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qosdash_upstream_requests_total",
			Help: "Total number of upstream analytics API requests",
		},
		[]string{"endpoint", "outcome"},
	)

	// UpstreamDuration tracks upstream latency, including failed calls.
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qosdash_upstream_request_duration_seconds",
			Help:    "Duration of upstream analytics API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// GatewayUnauthorized counts stats requests rejected for a missing bearer token.
	GatewayUnauthorized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qosdash_gateway_unauthorized_total",
			Help: "Total number of gateway requests rejected without a bearer token",
		},
		[]string{"kind"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qosdash_circuit_breaker_state",
			Help: "Upstream circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
