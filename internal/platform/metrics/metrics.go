package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	FundTransitions  *prometheus.CounterVec
	ReleaseDenied    *prometheus.CounterVec
	AuditEvents      *prometheus.CounterVec
	AuthorizeLatency *prometheus.HistogramVec
	HTTPLatency      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		FundTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fundgate_fund_transitions_total",
			Help: "Fund status transitions applied, by from/to state",
		}, []string{"from", "to"}),
		ReleaseDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fundgate_release_denied_total",
			Help: "Release authorization denials, by reason code",
		}, []string{"reason"}),
		AuditEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fundgate_audit_events_total",
			Help: "Audit trail entries written, by category",
		}, []string{"category"}),
		AuthorizeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fundgate_authorizer_op_seconds",
			Help:    "Latency of money release authorizer operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fundgate_http_request_seconds",
			Help:    "HTTP request latency by method and route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveHTTPLatency records the duration of an HTTP request.
func (m *Metrics) ObserveHTTPLatency(method, route string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPLatency.WithLabelValues(method, route).Observe(seconds)
}

// RecordTransition counts an applied fund status transition.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.FundTransitions.WithLabelValues(from, to).Inc()
}

// RecordDenial counts a denied authorization attempt.
func (m *Metrics) RecordDenial(reason string) {
	if m == nil {
		return
	}
	m.ReleaseDenied.WithLabelValues(reason).Inc()
}

// RecordAuditEvent counts an audit write by category.
func (m *Metrics) RecordAuditEvent(category string) {
	if m == nil {
		return
	}
	m.AuditEvents.WithLabelValues(category).Inc()
}

// ObserveAuthorizeLatency records the duration of an authorizer operation.
func (m *Metrics) ObserveAuthorizeLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.AuthorizeLatency.WithLabelValues(operation).Observe(seconds)
}
