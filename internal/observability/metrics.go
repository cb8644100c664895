package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// forecast pipeline.
type Metrics struct {
	PredictionRequests *prometheus.CounterVec   // labels: variant, outcome={ok,invalid_input,not_found,schema_mismatch,model_error}
	PredictionDuration *prometheus.HistogramVec // labels: variant
	MissingSources     *prometheus.CounterVec   // labels: source={venue,demographics,state_stats,genre_stats,artist,event}

	// Warehouse metrics.
	WarehouseQueries *prometheus.CounterVec // labels: query, outcome={ok,empty,error}

	// Metrics-provider metrics.
	ProviderRequests    *prometheus.CounterVec   // labels: endpoint, outcome={ok,no_data,rate_limited,error}
	ProviderRetries     *prometheus.CounterVec   // labels: endpoint, reason={rate_limit,transient}
	ProviderAPIDuration *prometheus.HistogramVec // labels: endpoint
	ProviderCache       *prometheus.CounterVec   // labels: endpoint, result={hit,miss}
	ProviderEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.PredictionRequests,
		m.PredictionDuration,
		m.MissingSources,
		m.WarehouseQueries,
		m.ProviderRequests,
		m.ProviderRetries,
		m.ProviderAPIDuration,
		m.ProviderCache,
		m.ProviderEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PredictionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sellout_forecast",
			Name:      "prediction_requests_total",
			Help:      "Prediction requests by schema variant and outcome.",
		}, []string{"variant", "outcome"}),
		PredictionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sellout_forecast",
			Name:      "prediction_duration_seconds",
			Help:      "Duration of a complete fetch-assemble-encode-predict chain.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"variant"}),
		MissingSources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sellout_forecast",
			Name:      "missing_sources_total",
			Help:      "Predictions that proceeded on defaults because a source had no data.",
		}, []string{"source"}),
		WarehouseQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sellout_forecast",
			Name:      "warehouse_queries_total",
			Help:      "Warehouse lookups by query name and outcome.",
		}, []string{"query", "outcome"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sellout_forecast",
			Name:      "provider_requests_total",
			Help:      "Metrics-provider API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		ProviderRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sellout_forecast",
			Name:      "provider_retries_total",
			Help:      "Metrics-provider retries by endpoint and reason.",
		}, []string{"endpoint", "reason"}),
		ProviderAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sellout_forecast",
			Name:      "provider_api_duration_seconds",
			Help:      "Metrics-provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		ProviderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sellout_forecast",
			Name:      "provider_cache_total",
			Help:      "Metrics-provider cache lookups by endpoint and result.",
		}, []string{"endpoint", "result"}),
		ProviderEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sellout_forecast",
			Name:      "provider_enabled",
			Help:      "1 when the metrics provider is configured, 0 otherwise.",
		}),
	}
}
