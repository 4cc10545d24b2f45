// Package health tracks the health of the resolver's components and serves
// an aggregated status over HTTP.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/jasonwadsworth/aws-account-name/component"
)

// Status is the health state of one component or of the whole system.
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"` // healthy, degraded, unhealthy
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
}

// IsHealthy reports whether the status is healthy.
func (s Status) IsHealthy() bool { return s.Status == "healthy" }

// IsDegraded reports whether the status is degraded.
func (s Status) IsDegraded() bool { return s.Status == "degraded" }

// IsUnhealthy reports whether the status is unhealthy.
func (s Status) IsUnhealthy() bool { return s.Status == "unhealthy" }

// Healthy builds a healthy status.
func Healthy(name, message string) Status {
	return Status{Component: name, Healthy: true, Status: "healthy", Message: message, Timestamp: time.Now()}
}

// Degraded builds a degraded status: still serving, but impaired.
func Degraded(name, message string) Status {
	return Status{Component: name, Status: "degraded", Message: message, Timestamp: time.Now()}
}

// Unhealthy builds an unhealthy status.
func Unhealthy(name, message string) Status {
	return Status{Component: name, Status: "unhealthy", Message: message, Timestamp: time.Now()}
}

// FromState maps a component lifecycle state to a health status. A started
// component is healthy, a failed one unhealthy, anything in between degraded.
func FromState(name string, state component.State) Status {
	switch state {
	case component.StateStarted:
		return Healthy(name, "running")
	case component.StateFailed:
		return Unhealthy(name, "lifecycle failure")
	case component.StateStopped:
		return Unhealthy(name, "stopped")
	default:
		return Degraded(name, state.String())
	}
}

// Aggregate folds sub-statuses into one: any unhealthy makes the whole
// unhealthy, otherwise any degraded makes it degraded.
func Aggregate(name string, subs []Status) Status {
	if len(subs) == 0 {
		return Healthy(name, "no components registered")
	}

	var unhealthy, degraded bool
	for _, sub := range subs {
		switch {
		case sub.IsUnhealthy():
			unhealthy = true
		case sub.IsDegraded():
			degraded = true
		}
	}

	var agg Status
	switch {
	case unhealthy:
		agg = Unhealthy(name, "one or more components unhealthy")
	case degraded:
		agg = Degraded(name, "one or more components degraded")
	default:
		agg = Healthy(name, "all components healthy")
	}
	agg.SubStatuses = make([]Status, len(subs))
	copy(agg.SubStatuses, subs)
	return agg
}

// Monitor tracks component health statuses.
type Monitor struct {
	system string

	mu       sync.RWMutex
	statuses map[string]Status
}

// NewMonitor creates a monitor aggregating under the given system name.
func NewMonitor(system string) *Monitor {
	return &Monitor{
		system:   system,
		statuses: make(map[string]Status),
	}
}

// Update records a status under its component name.
func (m *Monitor) Update(status Status) {
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.mu.Lock()
	m.statuses[status.Component] = status
	m.mu.Unlock()
}

// Get retrieves the status recorded for name.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[name]
	return status, ok
}

// Remove drops a component from monitoring.
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	delete(m.statuses, name)
	m.mu.Unlock()
}

// Snapshot returns the aggregated system status.
func (m *Monitor) Snapshot() Status {
	m.mu.RLock()
	subs := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		subs = append(subs, status)
	}
	m.mu.RUnlock()
	return Aggregate(m.system, subs)
}

// Handler serves the aggregated status as JSON. Unhealthy aggregates return
// 503 so load balancers can act on the plain status code.
func (m *Monitor) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		snapshot := m.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		if snapshot.IsUnhealthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(snapshot)
	})
}
