// Package metric manages Prometheus metrics for the resolver: core pipeline
// metrics plus per-component registrations.
package metric

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jasonwadsworth/aws-account-name/errors"
)

const namespace = "aws_account_name"

// Metrics holds the core pipeline metrics tracked for every deployment.
type Metrics struct {
	// RetryAttempts counts probe attempts by pipeline and outcome
	// (success, failure).
	RetryAttempts *prometheus.CounterVec
	// RetryExhaustions counts retry cycles that ran out of attempts.
	RetryExhaustions *prometheus.CounterVec
	// AccountsExtracted observes batch sizes of successful extractions.
	AccountsExtracted prometheus.Histogram
	// DisplayUpdates counts console display renders.
	DisplayUpdates prometheus.Counter
	// StorageRequests counts storage service requests by type and outcome.
	StorageRequests *prometheus.CounterVec
}

func newMetrics() *Metrics {
	return &Metrics{
		RetryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Probe attempts by pipeline and outcome",
		}, []string{"pipeline", "outcome"}),
		RetryExhaustions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_exhaustions_total",
			Help:      "Retry cycles that exhausted their attempts",
		}, []string{"pipeline"}),
		AccountsExtracted: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "accounts_extracted",
			Help:      "Accounts found per successful portal extraction",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		DisplayUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_updates_total",
			Help:      "Console display renders performed",
		}),
		StorageRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_requests_total",
			Help:      "Storage service requests by type and outcome",
		}, []string{"type", "outcome"}),
	}
}

// MetricsRegistry manages metric registration and exposure.
type MetricsRegistry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
	registeredMetrics  map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewMetricsRegistry creates a registry with the core metrics plus Go
// runtime collectors pre-registered.
func NewMetricsRegistry() *MetricsRegistry {
	registry := &MetricsRegistry{
		prometheusRegistry: prometheus.NewRegistry(),
		registeredMetrics:  make(map[string]prometheus.Collector),
		Metrics:            newMetrics(),
	}

	registry.prometheusRegistry.MustRegister(
		registry.Metrics.RetryAttempts,
		registry.Metrics.RetryExhaustions,
		registry.Metrics.AccountsExtracted,
		registry.Metrics.DisplayUpdates,
		registry.Metrics.StorageRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (r *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})
}

// Register registers a component-specific collector under service.name.
func (r *MetricsRegistry) Register(serviceName, metricName string, collector prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", serviceName, metricName)
	if _, exists := r.registeredMetrics[key]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("metric %s already registered for service %s", metricName, serviceName),
			"MetricsRegistry", "Register", "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			r.registeredMetrics[key] = already.ExistingCollector
			return nil
		}
		return errors.Wrap(err, "MetricsRegistry", "Register", "prometheus register")
	}

	r.registeredMetrics[key] = collector
	return nil
}

// Unregister removes a component-specific collector.
func (r *MetricsRegistry) Unregister(serviceName, metricName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", serviceName, metricName)
	collector, exists := r.registeredMetrics[key]
	if !exists {
		return false
	}
	delete(r.registeredMetrics, key)
	return r.prometheusRegistry.Unregister(collector)
}
