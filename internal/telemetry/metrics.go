package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the fixed set of Prometheus instruments the pipeline
// exposes, on a private registry (grounded on
// engine/telemetry/metrics/prometheus.go's PrometheusProvider, trimmed
// from its generic per-call-site metric registration down to the named
// counters/gauges this domain actually needs).
type Metrics struct {
	registry *prometheus.Registry

	EventsProcessed  *prometheus.CounterVec
	AlertsEmitted    *prometheus.CounterVec
	BatchDuration    *prometheus.HistogramVec
	StorageErrors    *prometheus.CounterVec
	ProviderFailures *prometheus.CounterVec
	ScorerFitted     prometheus.Gauge
}

// NewMetrics builds and registers every instrument on a fresh, private
// registry so multiple Orchestrators in the same process (tests, e.g.)
// never collide on global default-registry names.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siem_events_processed_total",
			Help: "Events that completed the enrich/score/store pipeline, by source.",
		}, []string{"source"}),
		AlertsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siem_alerts_emitted_total",
			Help: "Alerts emitted, by kind (anomaly or rule name) and severity.",
		}, []string{"kind", "severity"}),
		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "siem_batch_duration_seconds",
			Help:    "Time to process one per-source batch through enrich/score/store/alert.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		StorageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siem_storage_errors_total",
			Help: "Storage operation failures, by operation.",
		}, []string{"operation"}),
		ProviderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "siem_provider_failures_total",
			Help: "Enrichment provider failures, by provider name.",
		}, []string{"provider"}),
		ScorerFitted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "siem_scorer_fitted",
			Help: "1 if the anomaly scorer has been fit, else 0.",
		}),
	}

	reg.MustRegister(m.EventsProcessed, m.AlertsEmitted, m.BatchDuration,
		m.StorageErrors, m.ProviderFailures, m.ScorerFitted)

	return m
}

// Handler returns the HTTP handler exposing /metrics for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
