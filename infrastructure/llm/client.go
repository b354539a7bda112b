// Package llm provides the inference clients used for relevance judging.
// It abstracts multiple providers (OpenAI-compatible endpoints such as
// OpenRouter, Anthropic, Google) behind a common interface and layers
// cross-cutting concerns like rate limiting, timeouts, metrics, and tracing
// through a middleware chain, so judging code never depends on a specific
// provider SDK.
//
// Basic usage:
//
//	client, err := llm.NewClient("openrouter", llm.ClientConfig{
//	    APIKey: os.Getenv("OPENROUTER_API_KEY"),
//	    Model:  "microsoft/phi-3-mini-128k-instruct",
//	})
//	raw, err := client.Complete(ctx, prompt, nil)
//
// With middleware:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-3-5-haiku-latest",
//	    Middleware: []llm.Middleware{
//	        llm.RateLimitMiddleware(2, 4),
//	        llm.TimeoutMiddleware(60 * time.Second),
//	        llm.MetricsMiddleware(collector),
//	    },
//	})
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/modelrank/judgekit/internal/ports"
)

// CoreLLM is the minimal provider contract. Providers format requests for
// their API and return the completion text with token usage; the middleware
// chain wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends a prompt to the provider and returns the completion
	// text along with input and output token counts. The opts map carries
	// generation parameters such as temperature and max_tokens.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel switches the model for subsequent requests.
	SetModel(model string)
}

// TokenEstimator approximates token counts when exact counts are unavailable
// before a request is made. Estimates feed cost projection and debug logs.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig holds provider and middleware settings for a judging client.
type ClientConfig struct {
	// APIKey authenticates requests. For the Google provider this may
	// instead be a path to a service-account credentials file.
	APIKey string

	// Model names the model to judge with. Providers fall back to their
	// default model when empty.
	Model string

	// BaseURL overrides the provider's default endpoint, e.g. to point an
	// OpenAI-compatible client at OpenRouter or a local server.
	BaseURL string

	// Timeout bounds individual requests. Zero means no client-level bound.
	Timeout time.Duration

	// TokenEstimator overrides the default character-ratio estimator.
	TokenEstimator TokenEstimator

	// Middleware is applied in order, first entry outermost.
	Middleware []Middleware
}

// Middleware wraps a CoreLLM to add cross-cutting behavior without touching
// provider logic.
type Middleware func(CoreLLM) CoreLLM

// Client adapts a middleware-wrapped CoreLLM to the ports.LLMClient
// interface consumed by the judging pipeline.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient resolves the provider, validates configuration, and assembles
// the middleware chain.
func NewClient(providerType string, config ClientConfig) (ports.LLMClient, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}

	// Reverse order so the first configured middleware is outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = &CharRatioEstimator{}
	}

	return &Client{core: core, estimator: estimator}, nil
}

// Complete sends a prompt and returns the raw completion text, discarding
// token usage.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends a prompt and additionally returns input and output
// token counts for cost tracking.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// EstimateTokens approximates the token count of text before sending it.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string { return c.core.GetModel() }

// CharRatioEstimator estimates tokens from character count, assuming about
// four characters per token for English text.
type CharRatioEstimator struct{}

// EstimateTokens implements TokenEstimator.
func (e *CharRatioEstimator) EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// ProviderFactory builds a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider under a name for NewClient.
// Built-in providers register themselves at init.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}

// Providers returns the names of all registered providers.
func Providers() []string {
	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	return names
}
