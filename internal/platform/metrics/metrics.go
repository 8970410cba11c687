// Package metrics defines the Prometheus instrumentation for the
// assignment pipeline and the capacity cache.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors the service updates. A single instance
// is created at startup and injected into the components that record to
// it, so tests can construct their own registry-backed instance.
type Metrics struct {
	registry *prometheus.Registry

	// AssignmentOutcomes counts finished assignment calls by outcome
	// code (ASSIGNED, USER_BILL_LIMIT_EXCEEDED, CONCURRENT_UPDATE, ...).
	AssignmentOutcomes *prometheus.CounterVec

	// AssignmentRetries counts transaction attempts that failed with a
	// transient conflict and were retried.
	AssignmentRetries prometheus.Counter

	// AssignmentDuration observes the wall time of whole assignment
	// calls, retries included.
	AssignmentDuration prometheus.Histogram

	// CacheLookups counts capacity cache lookups by result (hit, miss,
	// expired).
	CacheLookups *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		AssignmentOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billtrack_assignment_outcomes_total",
				Help: "Finished bill assignment calls by outcome code.",
			},
			[]string{"outcome"},
		),
		AssignmentRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billtrack_assignment_retries_total",
				Help: "Assignment transaction attempts retried after a transient conflict.",
			},
		),
		AssignmentDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billtrack_assignment_duration_seconds",
				Help:    "Duration of bill assignment calls, retries included.",
				Buckets: prometheus.DefBuckets,
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billtrack_capacity_cache_lookups_total",
				Help: "Capacity cache lookups by result.",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.AssignmentOutcomes,
		m.AssignmentRetries,
		m.AssignmentDuration,
		m.CacheLookups,
	)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint for
// this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
