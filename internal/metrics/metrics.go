// Package metrics holds the Prometheus instruments of the audit collector
// and the check store.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sysaudit"

// Metrics holds all the Prometheus metrics for the process.
type Metrics struct {
	PassesTotal        prometheus.Counter
	PassDuration       prometheus.Histogram
	HostsTotal         *prometheus.CounterVec
	HostFailuresTotal  *prometheus.CounterVec
	FindingsTotal      *prometheus.CounterVec
	SinkErrorsTotal    *prometheus.CounterVec
	SubmissionsTotal   *prometheus.CounterVec
	StoreOperationTime *prometheus.HistogramVec
	BreakerState       prometheus.Gauge
}

// New registers all metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PassesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Total number of audit passes run",
		}),
		PassDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of an audit pass",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		HostsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hosts_total",
			Help:      "Hosts processed, by outcome",
		}, []string{"outcome"}),
		HostFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_failures_total",
			Help:      "Per-host failures, by stage",
		}, []string{"stage"}),
		FindingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Classified findings, by location and method",
		}, []string{"location", "method"}),
		SinkErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Report sink failures, by sink",
		}, []string{"sink"}),
		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_submissions_total",
			Help:      "Submitted check items, by outcome",
		}, []string{"outcome"}),
		StoreOperationTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_seconds",
			Help:      "Latency of check store operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_breaker_state",
			Help:      "Check store circuit breaker state (0 closed, 1 open, 2 half-open)",
		}),
	}
}

// ObserveStore records the latency of a store operation started at start.
func (m *Metrics) ObserveStore(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreOperationTime.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordSubmit counts the outcome of one applied batch.
func (m *Metrics) RecordSubmit(inserted, updated, unchanged int) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues("inserted").Add(float64(inserted))
	m.SubmissionsTotal.WithLabelValues("updated").Add(float64(updated))
	m.SubmissionsTotal.WithLabelValues("unchanged").Add(float64(unchanged))
}

// RecordHostFailure counts a host that failed at stage.
func (m *Metrics) RecordHostFailure(stage string) {
	if m == nil {
		return
	}
	m.HostsTotal.WithLabelValues("failed").Inc()
	m.HostFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordFinding counts one classified finding.
func (m *Metrics) RecordFinding(location, method string, n int) {
	if m == nil {
		return
	}
	m.FindingsTotal.WithLabelValues(location, method).Add(float64(n))
}

// RecordSinkError counts a failed report sink.
func (m *Metrics) RecordSinkError(sink string) {
	if m == nil {
		return
	}
	m.SinkErrorsTotal.WithLabelValues(sink).Inc()
}

// RecordHostAudited counts a host that produced a ledger.
func (m *Metrics) RecordHostAudited() {
	if m == nil {
		return
	}
	m.HostsTotal.WithLabelValues("audited").Inc()
}

// RecordPass counts a finished pass and its duration.
func (m *Metrics) RecordPass(d time.Duration) {
	if m == nil {
		return
	}
	m.PassesTotal.Inc()
	m.PassDuration.Observe(d.Seconds())
}

// SetBreakerState records the store circuit breaker state.
func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.BreakerState.Set(float64(state))
}
