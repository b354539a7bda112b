// Package middleware provides observability adapters for the judging
// pipeline.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/modelrank/judgekit/internal/ports"
)

// Label sets shared by the judging metrics. Judgement metrics identify the
// judging model and parsing strategy; request metrics identify the provider
// call.
var (
	judgementLabels = []string{"model", "provider", "strategy", "status"}
	requestLabels   = []string{"provider", "model", "status"}
	tokenLabels     = []string{"provider", "model", "status", "token_type"}
)

// PrometheusMetrics implements ports.MetricsCollector on the global
// Prometheus registry, exposing judgement throughput, provider request
// rates, token consumption, and latency distributions for bulk runs.
type PrometheusMetrics struct {
	judgements       *prometheus.CounterVec
	judgementLatency *prometheus.HistogramVec
	requests         *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
	tokens           *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	operations       *prometheus.CounterVec
	gauges           *prometheus.GaugeVec
}

// NewPrometheusMetrics registers the judging metrics with the global
// Prometheus registry. Call at most once per process.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		judgements: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "judgements_total",
				Help: "Total number of judgement records produced, by outcome.",
			},
			judgementLabels,
		),
		judgementLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "judgement_latency_seconds",
				Help:    "End-to-end judgement time including retries and parsing.",
				Buckets: prometheus.DefBuckets,
			},
			judgementLabels,
		),
		requests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of provider API calls made.",
			},
			requestLabels,
		),
		requestLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_latency_seconds",
				Help:    "Latency of individual provider API calls.",
				Buckets: prometheus.DefBuckets,
			},
			requestLabels,
		),
		tokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total tokens consumed across provider calls.",
			},
			tokenLabels,
		),
		operationLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "judgekit_operation_duration_seconds",
				Help:    "Execution time of pipeline operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "judgekit_operations_total",
				Help: "Total pipeline operations performed, by status.",
			},
			[]string{"operation", "status"},
		),
		gauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "judgekit_state",
				Help: "Current pipeline state values, such as in-flight examples.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency records the execution time of a pipeline operation.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter increments the counter registered under metric, routing
// known judging metrics to their dedicated vectors.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "judgements_total":
		pm.judgements.WithLabelValues(
			labels["model"], labels["provider"], labels["strategy"], labels["status"],
		).Add(value)
	case "llm_requests_total":
		pm.requests.WithLabelValues(
			labels["provider"], labels["model"], labels["status"],
		).Add(value)
	case "llm_tokens_total":
		pm.tokens.WithLabelValues(
			labels["provider"], labels["model"], labels["status"], labels["token_type"],
		).Add(value)
	default:
		status, ok := labels["status"]
		if !ok {
			status = "success"
		}
		pm.operations.WithLabelValues(metric, status).Add(value)
	}
}

// RecordGauge sets the gauge registered under metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.gauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram records a value in the histogram registered under metric.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case "judgement_latency_seconds":
		pm.judgementLatency.WithLabelValues(
			labels["model"], labels["provider"], labels["strategy"], labels["status"],
		).Observe(value)
	case "llm_latency_seconds":
		pm.requestLatency.WithLabelValues(
			labels["provider"], labels["model"], labels["status"],
		).Observe(value)
	default:
		pm.operationLatency.WithLabelValues(metric).Observe(value)
	}
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
