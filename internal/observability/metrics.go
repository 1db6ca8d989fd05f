package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Finance sync outcomes.
const (
	FinanceSyncSucceeded = "succeeded"
	FinanceSyncFailed    = "failed"
	FinanceSyncSkipped   = "skipped"
)

// Metrics owns the service's Prometheus collectors on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	financeSync     *prometheus.CounterVec
	unsyncedNotices *prometheus.GaugeVec
}

// NewMetrics registers collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aftersales",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aftersales",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aftersales",
			Name:      "http_errors_total",
			Help:      "Error responses by domain error code.",
		}, []string{"path", "method", "code"}),
		financeSync: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aftersales",
			Name:      "finance_sync_total",
			Help:      "Finance statement sync attempts by outcome.",
		}, []string{"outcome"}),
		unsyncedNotices: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "aftersales",
			Name:      "finance_unsynced_notices",
			Help:      "Confirmed factory notices not yet synced to finance.",
		}, []string{"tenant_id"}),
	}
	registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.financeSync,
		m.unsyncedNotices,
		prometheus.NewGoCollector(),
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordFinanceSync counts one saga outcome.
func (m *Metrics) RecordFinanceSync(outcome string) {
	if m == nil {
		return
	}
	m.financeSync.WithLabelValues(outcome).Inc()
}

// SetUnsyncedNotices publishes the reconciliation backlog for a tenant.
func (m *Metrics) SetUnsyncedNotices(tenantID string, count int64) {
	if m == nil {
		return
	}
	m.unsyncedNotices.WithLabelValues(tenantID).Set(float64(count))
}

// ResetUnsyncedNotices clears tenants that no longer have a backlog.
func (m *Metrics) ResetUnsyncedNotices() {
	if m == nil {
		return
	}
	m.unsyncedNotices.Reset()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
