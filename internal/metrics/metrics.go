// Package metrics exposes Prometheus counters for the bill tracker.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bill_tracker"

// Extraction outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeUnsupported = "unsupported_format"
	OutcomeFailed      = "service_error"
	OutcomeNoMatch     = "template_miss"
)

// Entry sources
const (
	SourceScan   = "scan"
	SourceManual = "manual"
)

// Metrics holds the collectors on a dedicated registry
type Metrics struct {
	registry        *prometheus.Registry
	extractions     *prometheus.CounterVec
	entriesSaved    *prometheus.CounterVec
	entriesDeleted  prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Bill extractions by outcome.",
		}, []string{"outcome"}),
		entriesSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_saved_total",
			Help:      "Ledger entries inserted by source.",
		}, []string{"source"}),
		entriesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_deleted_total",
			Help:      "Ledger entries actually removed.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.extractions,
		m.entriesSaved,
		m.entriesDeleted,
		m.requestDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveExtraction counts one extraction attempt
func (m *Metrics) ObserveExtraction(outcome string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(outcome).Inc()
}

// ObserveEntriesSaved counts inserted entries
func (m *Metrics) ObserveEntriesSaved(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.entriesSaved.WithLabelValues(source).Add(float64(n))
}

// ObserveEntriesDeleted counts removed entries
func (m *Metrics) ObserveEntriesDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.entriesDeleted.Add(float64(n))
}

// ObserveRequest records the latency of one HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
