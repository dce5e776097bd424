// Package metrics provides Prometheus collection and exposition.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hubauth/internal/domain/service"
)

// Collector is the Prometheus-backed service.AuthMetrics.
type Collector struct {
	operations   *prometheus.CounterVec
	hashDuration prometheus.Histogram
}

var _ service.AuthMetrics = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hubauth_auth_operations_total",
			Help: "Auth operations by name and outcome",
		}, []string{"operation", "outcome"}),
		hashDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hubauth_password_hash_seconds",
			Help:    "Time spent hashing passwords",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}

	reg.MustRegister(c.operations, c.hashDuration)

	return c
}

// RecordOperation counts one finished operation.
func (c *Collector) RecordOperation(operation, outcome string) {
	c.operations.WithLabelValues(operation, outcome).Inc()
}

// RecordPasswordHash observes one hash computation.
func (c *Collector) RecordPasswordHash(duration time.Duration) {
	c.hashDuration.Observe(duration.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewRegistry is the fx provider for the process registry, with Go runtime and
// process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// Nop discards everything. Used where metrics are not wired.
type Nop struct{}

func (Nop) RecordOperation(string, string)   {}
func (Nop) RecordPasswordHash(time.Duration) {}
