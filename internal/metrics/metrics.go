// Package metrics exposes Prometheus collectors for import runs, catalog traffic and HTTP requests.
//
// Collectors are registered on the default registry at package init, so the server's /metrics
// handler picks them up without further wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	// Import metrics
	ImportRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listenlog_import_runs_total",
			Help: "Total number of import runs by outcome",
		},
		[]string{"status"}, // "success", "malformed", "failed"
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listenlog_import_duration_seconds",
			Help:    "Duration of import runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	ImportEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listenlog_import_events_total",
			Help: "Total number of play events received by imports",
		},
	)

	RowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listenlog_rows_inserted_total",
			Help: "Rows newly inserted by imports, by entity",
		},
		[]string{"entity"},
	)

	RowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listenlog_rows_dropped_total",
			Help: "Candidate rows dropped because a dependency could not be resolved, by entity",
		},
		[]string{"entity"},
	)

	// Catalog metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listenlog_catalog_requests_total",
			Help: "Catalog lookups by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "not_found", "error", "rejected"
	)

	CatalogBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listenlog_catalog_request_duration_seconds",
			Help:    "Duration of catalog lookups in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "listenlog_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listenlog_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listenlog_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)

// BreakerStateValue maps a breaker state onto the gauge scale.
func BreakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
