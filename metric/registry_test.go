package metric

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry_CoreMetricsPresent(t *testing.T) {
	r := NewMetricsRegistry()

	require.NotNil(t, r.Metrics)
	r.Metrics.RetryAttempts.WithLabelValues("portal", "failure").Inc()
	r.Metrics.RetryExhaustions.WithLabelValues("console").Inc()
	r.Metrics.AccountsExtracted.Observe(12)
	r.Metrics.DisplayUpdates.Inc()
	r.Metrics.StorageRequests.WithLabelValues("STORE_ACCOUNTS", "success").Inc()

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["aws_account_name_retry_attempts_total"])
	assert.True(t, names["aws_account_name_retry_exhaustions_total"])
	assert.True(t, names["aws_account_name_accounts_extracted"])
	assert.True(t, names["aws_account_name_display_updates_total"])
	assert.True(t, names["aws_account_name_storage_requests_total"])
}

func TestRegister_DuplicateRejected(t *testing.T) {
	r := NewMetricsRegistry()

	c1 := prometheus.NewCounter(prometheus.CounterOpts{Name: "svc_thing_total"})
	require.NoError(t, r.Register("svc", "thing", c1))

	c2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "svc_other_total"})
	assert.Error(t, r.Register("svc", "thing", c2))

	assert.True(t, r.Unregister("svc", "thing"))
	assert.False(t, r.Unregister("svc", "thing"))
}

func TestHandler_ServesMetrics(t *testing.T) {
	r := NewMetricsRegistry()
	r.Metrics.DisplayUpdates.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "aws_account_name_display_updates_total 1")
}
