package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCollector captures metric calls for assertions.
type recordingCollector struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string]int
	statuses   []string
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{
		counters:   make(map[string]float64),
		histograms: make(map[string]int),
	}
}

func (r *recordingCollector) RecordLatency(string, time.Duration, map[string]string) {}

func (r *recordingCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[metric] += value
	if metric == "llm_requests_total" {
		r.statuses = append(r.statuses, labels["status"])
	}
}

func (r *recordingCollector) RecordGauge(string, float64, map[string]string) {}

func (r *recordingCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histograms[metric]++
}

func TestTimeoutMiddlewareSetsDeadline(t *testing.T) {
	core := &stubCoreLLM{model: "m", response: "ok"}
	wrapped := TimeoutMiddleware(5 * time.Second)(core)

	_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
	require.NoError(t, err)

	deadline, ok := core.lastCtx.Deadline()
	require.True(t, ok, "request context must carry a deadline")
	assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
}

func TestRateLimitMiddlewarePacesRequests(t *testing.T) {
	core := &stubCoreLLM{model: "m", response: "ok"}
	// 100 rps with burst 1: the second call must wait roughly 10ms.
	wrapped := RateLimitMiddleware(100, 1)(core)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestRateLimitMiddlewareHonorsCancellation(t *testing.T) {
	core := &stubCoreLLM{model: "m", response: "ok"}
	wrapped := RateLimitMiddleware(0.001, 1)(core)

	// Consume the burst token, then cancel while waiting for the next.
	_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, _, err = wrapped.DoRequest(ctx, "p", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestMetricsMiddlewareRecordsOutcomes(t *testing.T) {
	collector := newRecordingCollector()

	t.Run("success records tokens", func(t *testing.T) {
		core := &stubCoreLLM{model: "m", response: "ok"}
		wrapped := MetricsMiddleware("openrouter", collector)(core)

		_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
		require.NoError(t, err)

		assert.Equal(t, float64(1), collector.counters["llm_requests_total"])
		assert.Equal(t, float64(15), collector.counters["llm_tokens_total"],
			"input and output tokens are both counted")
		assert.Equal(t, 1, collector.histograms["llm_latency_seconds"])
		assert.Equal(t, []string{"success"}, collector.statuses)
	})

	t.Run("failure records error status without tokens", func(t *testing.T) {
		core := &stubCoreLLM{model: "m", err: errors.New("boom")}
		wrapped := MetricsMiddleware("openrouter", collector)(core)

		_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
		require.Error(t, err)

		assert.Equal(t, float64(2), collector.counters["llm_requests_total"])
		assert.Equal(t, float64(15), collector.counters["llm_tokens_total"],
			"failed calls contribute no tokens")
		assert.Equal(t, []string{"success", "error"}, collector.statuses)
	})
}

func TestTracingMiddlewarePassesThrough(t *testing.T) {
	core := &stubCoreLLM{model: "m", response: "ok"}
	wrapped := TracingMiddleware("judgekit/test")(core)

	response, tokensIn, tokensOut, err := wrapped.DoRequest(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", response)
	assert.Equal(t, 10, tokensIn)
	assert.Equal(t, 5, tokensOut)
	assert.Equal(t, "m", wrapped.GetModel())
}
