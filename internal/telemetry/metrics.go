// Package telemetry wires the Prometheus metrics and OpenTelemetry tracer
// that observe the pipeline's AUTHENTICATE/AUTHORIZE/RATE/UPSTREAM/AUDIT
// stages, per SPEC_FULL.md §4.11.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus series banshogate exposes.
type Metrics struct {
	RequestsTotal           *prometheus.CounterVec
	RequestDuration         *prometheus.HistogramVec
	RateLimitRejections     *prometheus.CounterVec
	AuditWriteFailuresTotal prometheus.Counter
}

// ObserveRequest satisfies pipeline.Recorder.
func (m *Metrics) ObserveRequest(method, status string, durationSeconds float64) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// ObserveRateLimitRejection satisfies pipeline.Recorder.
func (m *Metrics) ObserveRateLimitRejection(scope string) {
	m.RateLimitRejections.WithLabelValues(scope).Inc()
}

// ObserveAuditWriteFailure satisfies pipeline.Recorder.
func (m *Metrics) ObserveAuditWriteFailure() {
	m.AuditWriteFailuresTotal.Inc()
}

// NewMetrics creates and registers every series with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "banshogate",
				Name:      "requests_total",
				Help:      "Total number of MCP requests processed, by method and status code.",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "banshogate",
				Name:      "request_duration_seconds",
				Help:      "Request latency in seconds, by method.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RateLimitRejections: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "banshogate",
				Name:      "rate_limit_rejections_total",
				Help:      "Total requests rejected by the rate limiter, by scope (api_key/tool).",
			},
			[]string{"scope"},
		),
		AuditWriteFailuresTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "banshogate",
				Name:      "audit_write_failures_total",
				Help:      "Total audit events that failed to persist.",
			},
		),
	}
}
