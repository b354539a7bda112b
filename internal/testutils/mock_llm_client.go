// Package testutils provides deterministic test doubles for the judging
// pipeline.
package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelrank/judgekit/internal/ports"
)

// MockLLMClient implements ports.LLMClient with a scripted sequence of
// outcomes, letting tests drive exact retry and parsing behavior. Calls
// consume the script in order; when the script is exhausted the final
// entry repeats. Safe for concurrent use.
type MockLLMClient struct {
	mu     sync.Mutex
	model  string
	script []Outcome
	calls  int
}

// Outcome is one scripted provider response: either a completion text or
// an error.
type Outcome struct {
	// Response is the raw completion text returned on success.
	Response string
	// Err, when non-nil, fails the call instead.
	Err error
}

// NewMockLLMClient creates a client that always returns response.
func NewMockLLMClient(model, response string) *MockLLMClient {
	return &MockLLMClient{
		model:  model,
		script: []Outcome{{Response: response}},
	}
}

// NewScriptedLLMClient creates a client that plays back the given outcomes
// in order.
func NewScriptedLLMClient(model string, script ...Outcome) *MockLLMClient {
	return &MockLLMClient{model: model, script: script}
}

// NewFlakyLLMClient creates a client that fails the first failures calls
// with err and then succeeds with response.
func NewFlakyLLMClient(model string, failures int, err error, response string) *MockLLMClient {
	script := make([]Outcome, 0, failures+1)
	for i := 0; i < failures; i++ {
		script = append(script, Outcome{Err: err})
	}
	script = append(script, Outcome{Response: response})
	return &MockLLMClient{model: model, script: script}
}

// Complete implements ports.LLMClient by consuming the next scripted
// outcome.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.script) == 0 {
		return "", fmt.Errorf("mock client has no scripted outcomes")
	}

	idx := m.calls
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	m.calls++

	outcome := m.script[idx]
	if outcome.Err != nil {
		return "", outcome.Err
	}
	return outcome.Response, nil
}

// EstimateTokens approximates four characters per token, matching the
// production estimator closely enough for assertions.
func (m *MockLLMClient) EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	tokens := len(text) / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens, nil
}

// GetModel returns the mock model identifier.
func (m *MockLLMClient) GetModel() string { return m.model }

// Calls returns the number of Complete invocations so far.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ ports.LLMClient = (*MockLLMClient)(nil)
