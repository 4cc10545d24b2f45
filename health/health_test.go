package health

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonwadsworth/aws-account-name/component"
)

func TestAggregateAllHealthy(t *testing.T) {
	agg := Aggregate("resolver", []Status{
		Healthy("account-service", "running"),
		Healthy("ws-gateway", "running"),
	})
	assert.True(t, agg.IsHealthy())
	assert.Len(t, agg.SubStatuses, 2)
}

func TestAggregateUnhealthyWins(t *testing.T) {
	agg := Aggregate("resolver", []Status{
		Healthy("account-service", "running"),
		Degraded("nats", "reconnecting"),
		Unhealthy("ws-gateway", "listen failed"),
	})
	assert.True(t, agg.IsUnhealthy())
}

func TestAggregateDegraded(t *testing.T) {
	agg := Aggregate("resolver", []Status{
		Healthy("account-service", "running"),
		Degraded("nats", "reconnecting"),
	})
	assert.True(t, agg.IsDegraded())
	assert.False(t, agg.Healthy)
}

func TestAggregateEmpty(t *testing.T) {
	assert.True(t, Aggregate("resolver", nil).IsHealthy())
}

func TestFromState(t *testing.T) {
	assert.True(t, FromState("svc", component.StateStarted).IsHealthy())
	assert.True(t, FromState("svc", component.StateFailed).IsUnhealthy())
	assert.True(t, FromState("svc", component.StateStopped).IsUnhealthy())
	assert.True(t, FromState("svc", component.StateInitialized).IsDegraded())
}

func TestMonitorUpdateAndSnapshot(t *testing.T) {
	m := NewMonitor("resolver")
	m.Update(Healthy("account-service", "running"))
	m.Update(Unhealthy("ws-gateway", "listen failed"))

	got, ok := m.Get("account-service")
	require.True(t, ok)
	assert.True(t, got.IsHealthy())

	assert.True(t, m.Snapshot().IsUnhealthy())

	m.Remove("ws-gateway")
	assert.True(t, m.Snapshot().IsHealthy())
}

func TestMonitorLatestUpdateWins(t *testing.T) {
	m := NewMonitor("resolver")
	m.Update(Unhealthy("nats", "no connection"))
	m.Update(Healthy("nats", "connected"))
	assert.True(t, m.Snapshot().IsHealthy())
}

func TestHandlerStatusCodes(t *testing.T) {
	m := NewMonitor("resolver")
	m.Update(Healthy("account-service", "running"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, 200, rec.Code)

	var snapshot Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, "resolver", snapshot.Component)
	assert.True(t, snapshot.IsHealthy())

	m.Update(Unhealthy("account-service", "store failure"))
	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, 503, rec.Code)
}
