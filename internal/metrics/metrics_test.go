package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveQuery("llm", true, 10*time.Millisecond)
	m.ObserveQuery("fallback", false, time.Millisecond)
	m.ObserveQuery("fallback", false, time.Millisecond)
	m.Fallback("backend_error")
	m.BackendError()
	m.SetDatasetRows("loan", 3650)
	m.Refreshed(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("llm", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.queries.WithLabelValues("fallback", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("backend_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backendErrors))
	assert.Equal(t, 3650.0, testutil.ToFloat64(m.datasetRows.WithLabelValues("loan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("true")))

	n, err := testutil.GatherAndCount(reg, "bank_analytics_query_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveQuery("llm", true, time.Second)
		m.Fallback("x")
		m.BackendError()
		m.SetDatasetRows("loan", 1)
		m.Refreshed(false)
	})
}
