package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_dashboard"

// Metrics holds the Prometheus collectors for the dashboard service.
type Metrics struct {
	// Provider calls.
	ProviderRequests *prometheus.CounterVec   // labels: provider, op, outcome={success,error,circuit_open}
	ProviderDuration *prometheus.HistogramVec // labels: provider, op

	// Workflow.
	WorkflowFetches  *prometheus.CounterVec // labels: trigger={start,coordinates,search,refresh}, outcome={success,error,superseded}
	WorkflowRetries  prometheus.Counter
	WorkflowRestarts prometheus.Counter

	// Place search cache.
	PlaceCache *prometheus.CounterVec // labels: result={hit,miss}

	// Sessions.
	SessionsActive  prometheus.Gauge
	SessionsEvicted prometheus.Counter
}

// NewMetrics creates all collectors and registers them with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ProviderRequests,
		m.ProviderDuration,
		m.WorkflowFetches,
		m.WorkflowRetries,
		m.WorkflowRestarts,
		m.PlaceCache,
		m.SessionsActive,
		m.SessionsEvicted,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors so tests can build as
// many as they need without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "External provider requests by provider, operation and outcome.",
		}, []string{"provider", "op", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "External provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider", "op"}),
		WorkflowFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_fetches_total",
			Help:      "Weather fetches by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		WorkflowRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_retries_total",
			Help:      "Weather fetch retries after temporary failures.",
		}),
		WorkflowRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_restarts_total",
			Help:      "Workflow restarts after a failed fetch.",
		}),
		PlaceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "place_cache_total",
			Help:      "Place suggestion cache lookups by result.",
		}, []string{"result"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Dashboard sessions currently held in memory.",
		}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Sessions evicted for idleness or capacity.",
		}),
	}
}
