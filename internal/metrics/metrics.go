// Package metrics exposes Prometheus instruments for the query pipeline.
// All methods are safe on a nil *Metrics, which disables instrumentation.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the pipeline's collectors.
type Metrics struct {
	queries       *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	backendErrors prometheus.Counter
	datasetRows   *prometheus.GaugeVec
	refreshes     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bank_analytics",
			Name:      "queries_total",
			Help:      "Queries executed, by plan source and outcome.",
		}, []string{"source", "success"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bank_analytics",
			Name:      "parser_fallbacks_total",
			Help:      "Queries planned by the keyword detector instead of the backend.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bank_analytics",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
		}, []string{"source"}),
		backendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bank_analytics",
			Name:      "backend_errors_total",
			Help:      "Failed calls to the text-generation backend.",
		}),
		datasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bank_analytics",
			Name:      "dataset_rows",
			Help:      "Rows in the currently loaded snapshot of each dataset.",
		}, []string{"dataset"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bank_analytics",
			Name:      "catalog_refreshes_total",
			Help:      "Dataset catalog refreshes, by outcome.",
		}, []string{"success"}),
	}
	reg.MustRegister(m.queries, m.fallbacks, m.duration, m.backendErrors, m.datasetRows, m.refreshes)
	return m
}

// ObserveQuery records one executed query.
func (m *Metrics) ObserveQuery(source string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(source, strconv.FormatBool(success)).Inc()
	m.duration.WithLabelValues(source).Observe(d.Seconds())
}

// Fallback records a query planned by the keyword detector.
func (m *Metrics) Fallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

// BackendError records a failed backend call.
func (m *Metrics) BackendError() {
	if m == nil {
		return
	}
	m.backendErrors.Inc()
}

// SetDatasetRows records the row count of a loaded dataset.
func (m *Metrics) SetDatasetRows(dataset string, rows int) {
	if m == nil {
		return
	}
	m.datasetRows.WithLabelValues(dataset).Set(float64(rows))
}

// Refreshed records a catalog refresh.
func (m *Metrics) Refreshed(success bool) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(strconv.FormatBool(success)).Inc()
}
