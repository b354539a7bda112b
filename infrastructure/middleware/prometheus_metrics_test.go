package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// A single shared instance: promauto registers with the global registry and
// duplicate registration panics.
var metrics = NewPrometheusMetrics()

func judgementLabelSet(status string) map[string]string {
	return map[string]string{
		"model":    "phi3-mini",
		"provider": "openrouter",
		"strategy": "tagged",
		"status":   status,
	}
}

func TestPrometheusMetricsJudgementCounters(t *testing.T) {
	labels := judgementLabelSet("ok")

	metrics.RecordCounter("judgements_total", 1, labels)
	metrics.RecordCounter("judgements_total", 1, labels)

	count := testutil.ToFloat64(metrics.judgements.WithLabelValues(
		"phi3-mini", "openrouter", "tagged", "ok"))
	assert.Equal(t, float64(2), count)
}

func TestPrometheusMetricsRequestCounters(t *testing.T) {
	labels := map[string]string{"provider": "openrouter", "model": "m", "status": "success"}

	metrics.RecordCounter("llm_requests_total", 1, labels)

	labels["token_type"] = "input"
	metrics.RecordCounter("llm_tokens_total", 120, labels)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.requests.WithLabelValues("openrouter", "m", "success")))
	assert.Equal(t, float64(120), testutil.ToFloat64(
		metrics.tokens.WithLabelValues("openrouter", "m", "success", "input")))
}

func TestPrometheusMetricsFallbackRouting(t *testing.T) {
	metrics.RecordCounter("examples_read", 3, nil)
	assert.Equal(t, float64(3), testutil.ToFloat64(
		metrics.operations.WithLabelValues("examples_read", "success")))

	metrics.RecordGauge("inflight_examples", 5, nil)
	assert.Equal(t, float64(5), testutil.ToFloat64(
		metrics.gauges.WithLabelValues("inflight_examples")))
}

func TestPrometheusMetricsHistograms(t *testing.T) {
	metrics.RecordHistogram("judgement_latency_seconds", 0.25, judgementLabelSet("ok"))
	metrics.RecordLatency("read_examples", 30*time.Millisecond, nil)

	// Observations land without panicking; exact bucket contents are
	// Prometheus's concern, not ours.
}
