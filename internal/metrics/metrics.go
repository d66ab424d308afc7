package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the dispatch board
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Scheduling Metrics
	MutationsTotal       *prometheus.CounterVec
	NotificationsApplied *prometheus.CounterVec
	ConflictedClaims     *prometheus.GaugeVec
	SnapshotFlights      prometheus.Gauge
	AnalysisDuration     *prometheus.HistogramVec
	SnapshotLoadsTotal   prometheus.Counter
}

// NewMetricsRegistry registers every metric on reg. Pass
// prometheus.DefaultRegisterer in the server and a fresh registry in tests.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatch_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dispatch_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method"},
		),

		// Cache Metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_cache_hits_total",
				Help: "Total analysis cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_cache_misses_total",
				Help: "Total analysis cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		// Scheduling Metrics
		MutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_assignment_mutations_total",
				Help: "Assignment writes by field and final outcome",
			},
			[]string{"field", "outcome"},
		),
		NotificationsApplied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_notifications_applied_total",
				Help: "Remote change notifications applied to the snapshot by event type",
			},
			[]string{"event"},
		),
		ConflictedClaims: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dispatch_conflicted_claims",
				Help: "Claims currently overlapping another claim on the same resource",
			},
			[]string{"class"},
		),
		SnapshotFlights: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dispatch_snapshot_flights",
				Help: "Flights in the current in-memory snapshot",
			},
		),
		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatch_analysis_duration_seconds",
				Help:    "Time spent deriving claims and running analyzers",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"operation"},
		),
		SnapshotLoadsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dispatch_snapshot_loads_total",
				Help: "Snapshot loads that reached the flight store",
			},
		),
	}
}
