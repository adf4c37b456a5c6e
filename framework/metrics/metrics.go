// Package metrics exposes dispatch instrumentation through a private
// Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bus instrumentation collectors.
type Metrics struct {
	registry *prometheus.Registry

	dispatchDuration *prometheus.HistogramVec
	dispatchFailures *prometheus.CounterVec
}

// New creates a registry with the standard Go collectors plus the bus
// dispatch collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bus_dispatch_duration_seconds",
			Help:    "Time spent dispatching a request through its pipeline and handler.",
			Buckets: prometheus.DefBuckets,
		}, []string{"shape", "status"}),
		dispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bus_dispatch_failures_total",
			Help: "Dispatches that returned an error, by request shape.",
		}, []string{"shape"}),
	}
	registry.MustRegister(m.dispatchDuration, m.dispatchFailures)
	return m
}

// ObserveDispatch records one dispatch outcome.
func (m *Metrics) ObserveDispatch(shape string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.dispatchFailures.WithLabelValues(shape).Inc()
	}
	m.dispatchDuration.WithLabelValues(shape, status).Observe(elapsed.Seconds())
}

// Handler returns the scrape endpoint for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry so applications can register
// their own collectors alongside the framework's.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
