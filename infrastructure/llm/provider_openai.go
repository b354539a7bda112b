package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// OpenAIDefaultModel is used when no model is configured for "openai".
	OpenAIDefaultModel = "gpt-4o-mini"

	// OpenRouterBaseURL is the OpenAI-compatible OpenRouter endpoint.
	// OpenRouter fronts the small open models typically used for bulk
	// relevance judging.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// OpenRouterDefaultModel is used when no model is configured for
	// "openrouter".
	OpenRouterDefaultModel = "microsoft/phi-3-mini-128k-instruct"
)

func init() {
	RegisterProviderFactory("openai", func(config ClientConfig) (CoreLLM, error) {
		return newOpenAIProvider("openai", OpenAIDefaultModel, config)
	})
	// OpenRouter speaks the OpenAI chat completion protocol; only the
	// endpoint and model namespace differ.
	RegisterProviderFactory("openrouter", func(config ClientConfig) (CoreLLM, error) {
		if config.BaseURL == "" {
			config.BaseURL = OpenRouterBaseURL
		}
		return newOpenAIProvider("openrouter", OpenRouterDefaultModel, config)
	})
}

// openAIProvider implements CoreLLM over the OpenAI chat completion API,
// serving both api.openai.com and OpenAI-compatible endpoints.
type openAIProvider struct {
	BaseProvider
	name            string
	client          *openai.Client
	estimator       *CharRatioEstimator
	errorClassifier *ErrorClassifier
}

func newOpenAIProvider(name, defaultModel string, config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = defaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)

	if config.BaseURL != "" {
		validatedURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		clientConfig.BaseURL = validatedURL
	}

	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{
			Timeout: ValidateTimeout(config.Timeout),
		}
	}

	return &openAIProvider{
		BaseProvider:    BaseProvider{model: model},
		name:            name,
		client:          openai.NewClientWithConfig(clientConfig),
		estimator:       &CharRatioEstimator{},
		errorClassifier: &ErrorClassifier{Provider: name},
	}, nil
}

// DoRequest sends a chat completion request and returns the first choice's
// content with token usage.
func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	req := p.buildChatCompletionRequest(prompt, options)
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	if len(resp.Choices) == 0 {
		return "", 0, 0, ErrNoResponseChoice
	}

	content := resp.Choices[0].Message.Content

	tokensIn := p.tokenCount(resp.Usage.PromptTokens, prompt)
	tokensOut := p.tokenCount(resp.Usage.CompletionTokens, content)

	return content, tokensIn, tokensOut, nil
}

// tokenCount prefers the API-reported count, estimating only when the
// response omits usage (common on OpenAI-compatible proxies).
func (p *openAIProvider) tokenCount(actualCount int, text string) int {
	if actualCount > 0 {
		return actualCount
	}
	return p.estimator.EstimateTokens(text)
}

func (p *openAIProvider) buildChatCompletionRequest(prompt string, options RequestOptions) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    options.Model,
		Messages: p.buildMessages(prompt, options),
	}
	p.applyRequestParameters(&req, options)
	return req
}

func (p *openAIProvider) buildMessages(prompt string, options RequestOptions) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)

	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.System,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	return messages
}

func (p *openAIProvider) applyRequestParameters(req *openai.ChatCompletionRequest, options RequestOptions) {
	if options.Temperature != nil {
		// The chat completion API accepts temperatures up to 2.0.
		temp := ClampFloat64(*options.Temperature, 0.0, 2.0)
		req.Temperature = float32(temp)
	}

	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}

	if options.TopP != nil {
		topP := ClampFloat64(*options.TopP, MinTopP, MaxTopP)
		req.TopP = float32(topP)
	}

	if frequencyPenalty, ok := options.Extra["frequency_penalty"]; ok {
		if penalty, valid := SafeFloat32(frequencyPenalty); valid {
			req.FrequencyPenalty = float32(ClampFloat64(float64(penalty), MinPenalty, MaxPenalty))
		}
	}

	if presencePenalty, ok := options.Extra["presence_penalty"]; ok {
		if penalty, valid := SafeFloat32(presencePenalty); valid {
			req.PresencePenalty = float32(ClampFloat64(float64(penalty), MinPenalty, MaxPenalty))
		}
	}
}

func (p *openAIProvider) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	return NewProviderError(p.name, ErrorTypeUnknown, 0, "request failed", err)
}
