// Package application wires parsers, providers, and IO into judging runs
// driven by a YAML run configuration.
package application

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/modelrank/judgekit/infrastructure/parsers"
)

// RunConfig is the top-level run specification: the input and output files
// plus one entry per judging model. Each model judges every input example
// independently.
type RunConfig struct {
	// Version is the configuration schema version.
	Version string `yaml:"version" validate:"required"`
	// Input is the NDJSON file of judging examples.
	Input string `yaml:"input" validate:"required"`
	// Output is the NDJSON file judgement records are appended to.
	Output string `yaml:"output" validate:"required"`
	// Concurrency caps in-flight examples per model.
	Concurrency int `yaml:"concurrency" validate:"omitempty,min=1,max=256"`
	// Models lists the judging models to run.
	Models []ModelConfig `yaml:"models" validate:"required,min=1,dive"`
}

// ModelConfig specifies one judging model: its provider, parsing strategy,
// and generation parameters.
type ModelConfig struct {
	// ModelID identifies this model in output records and must be unique
	// within the run.
	ModelID string `yaml:"model_id" validate:"required,min=1,max=255"`
	// Provider selects the inference backend (openrouter, openai,
	// anthropic, google).
	Provider string `yaml:"provider" validate:"required,oneof=openrouter openai anthropic google"`
	// Model is the provider-side model name. Empty selects the provider
	// default.
	Model string `yaml:"model"`
	// Version is an optional model version stamped onto records.
	Version string `yaml:"version,omitempty"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`
	// Strategy selects the response parsing strategy.
	Strategy string `yaml:"strategy" validate:"required"`
	// Field overrides the JSON score field name for the json-field
	// strategy.
	Field string `yaml:"field,omitempty"`
	// Prompt overrides the strategy's default prompt template. Templates
	// reference {{.Query}} and {{.Document}}.
	Prompt string `yaml:"prompt,omitempty"`
	// Params carries generation parameters (temperature, max_tokens, ...)
	// forwarded to the provider on every call.
	Params yaml.Node `yaml:"params,omitempty"`
	// Retry configures the backoff behavior for failed calls.
	Retry RetrySettings `yaml:"retry"`
	// TimeoutSeconds bounds individual provider calls.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"omitempty,min=1,max=3600"`
	// RateLimit caps sustained requests per second to the provider.
	// Zero disables client-side rate limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"omitempty,min=0"`
}

// RetrySettings configures per-call retry behavior for one model.
type RetrySettings struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Negative is rejected; omitted fields use the pipeline default.
	MaxRetries *int `yaml:"max_retries,omitempty" validate:"omitempty,min=0,max=10"`
	// BaseDelaySeconds is the backoff unit; waits double from here.
	BaseDelaySeconds int `yaml:"base_delay_seconds" validate:"omitempty,min=1,max=300"`
}

// APIKey resolves the model's credential from the environment.
func (m ModelConfig) APIKey() (string, error) {
	key := os.Getenv(m.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set for model %s", m.APIKeyEnv, m.ModelID)
	}
	return key, nil
}

// GenerationParams decodes the model's params block into the options map
// forwarded to the provider.
func (m ModelConfig) GenerationParams() (map[string]any, error) {
	if m.Params.IsZero() {
		return nil, nil
	}
	var params map[string]any
	if err := m.Params.Decode(&params); err != nil {
		return nil, fmt.Errorf("failed to decode params for model %s: %w", m.ModelID, err)
	}
	return params, nil
}

// LoadConfig reads and validates a run configuration file. Configuration
// problems fail here, before any provider call is made.
func LoadConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates raw YAML configuration bytes.
func ParseConfig(data []byte) (*RunConfig, error) {
	var config RunConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// ValidateConfig applies struct-level validation plus the cross-field rules
// struct tags cannot express: unique model IDs and known strategy names.
func ValidateConfig(config *RunConfig) error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]struct{}, len(config.Models))
	for _, model := range config.Models {
		if _, dup := seen[model.ModelID]; dup {
			return fmt.Errorf("invalid config: duplicate model_id %q", model.ModelID)
		}
		seen[model.ModelID] = struct{}{}

		// Resolving the strategy now surfaces typos with a suggestion
		// instead of failing mid-run.
		if _, err := parsers.New(model.Strategy, parsers.Config{Field: model.Field}); err != nil {
			return fmt.Errorf("invalid config for model %s: %w", model.ModelID, err)
		}
	}

	return nil
}
