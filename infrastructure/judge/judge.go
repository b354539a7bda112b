package judge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/modelrank/judgekit/infrastructure/parsers"
	"github.com/modelrank/judgekit/internal/domain"
	"github.com/modelrank/judgekit/internal/ports"
)

// Identity names the judging model in produced records.
type Identity struct {
	// ModelID is the configured model identifier (e.g. "phi3-mini").
	ModelID string
	// Provider is the serving provider name (e.g. "openrouter").
	Provider string
	// Version is the model version when known.
	Version string
}

// Config assembles the dependencies and parameters of a Judge.
type Config struct {
	// Client performs the inference calls. Required.
	Client ports.LLMClient

	// Parser turns raw completions into parsed judgements. Required.
	Parser ports.ResponseParser

	// Confidence derives confidence from parsed judgements. Defaults to
	// the heuristic policy.
	Confidence parsers.ConfidencePolicy

	// Prompt renders judging prompts. Required.
	Prompt *PromptBuilder

	// Retry controls the attempt sequence. Defaults per DefaultRetryConfig.
	Retry RetryConfig

	// Identity is stamped onto every produced judgement. ModelID and
	// Provider are required.
	Identity Identity

	// Options are forwarded to the LLM client on every call
	// (temperature, max_tokens, etc.).
	Options map[string]any

	// Metrics receives per-judgement observability data. Optional.
	Metrics ports.MetricsCollector

	// Logger receives per-judgement debug events. The zero value discards.
	Logger zerolog.Logger
}

// Judge produces one ModelJudgement per judging example. It is stateless
// across examples and safe for concurrent use.
type Judge struct {
	client     ports.LLMClient
	parser     ports.ResponseParser
	confidence parsers.ConfidencePolicy
	prompt     *PromptBuilder
	retry      *RetryController
	identity   Identity
	options    map[string]any
	metrics    ports.MetricsCollector
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// New validates the configuration and creates a Judge.
func New(cfg Config) (*Judge, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: LLM client is required", domain.ErrInvalidConfiguration)
	}
	if cfg.Parser == nil {
		return nil, fmt.Errorf("%w: response parser is required", domain.ErrInvalidConfiguration)
	}
	if cfg.Prompt == nil {
		return nil, fmt.Errorf("%w: prompt builder is required", domain.ErrInvalidConfiguration)
	}
	if cfg.Identity.ModelID == "" || cfg.Identity.Provider == "" {
		return nil, fmt.Errorf("%w: model_id and provider are required", domain.ErrInvalidConfiguration)
	}

	if cfg.Confidence == nil {
		cfg.Confidence = parsers.HeuristicConfidence{}
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	retry, err := NewRetryController(cfg.Retry)
	if err != nil {
		return nil, err
	}

	return &Judge{
		client:     cfg.Client,
		parser:     cfg.Parser,
		confidence: cfg.Confidence,
		prompt:     cfg.Prompt,
		retry:      retry,
		identity:   cfg.Identity,
		options:    cfg.Options,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		tracer:     otel.Tracer("judgekit/judge"),
	}, nil
}

// Judge runs the full attempt sequence for one example and assembles the
// canonical judgement record. Parse failures still produce a record with a
// nil label and explanatory warnings; only exhausted retries return an
// error (*domain.ExhaustedError), in which case no record exists for the
// pair and the caller chooses the skip-or-abort policy.
func (j *Judge) Judge(ctx context.Context, example domain.JudgingExample) (domain.ModelJudgement, error) {
	ctx, span := j.tracer.Start(ctx, "judge.example",
		trace.WithAttributes(
			attribute.String("judge.query_id", example.QueryID),
			attribute.String("judge.docid", example.DocID),
			attribute.String("judge.model_id", j.identity.ModelID),
			attribute.String("judge.strategy", j.parser.Name()),
		))
	defer span.End()

	prompt, err := j.prompt.Build(example)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.ModelJudgement{}, err
	}

	start := time.Now()
	rawText, retries, err := j.retry.Do(ctx, example.QueryID, example.DocID,
		func(ctx context.Context) (string, error) {
			return j.client.Complete(ctx, prompt, j.options)
		})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		j.recordOutcome("call_failed", time.Since(start))
		return domain.ModelJudgement{}, err
	}
	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)

	parsed := j.parse(rawText, example)
	judgement := j.assemble(example, parsed, rawText, latencyMs, retries)

	status := "ok"
	if judgement.Label == nil {
		status = "parse_failed"
	}
	j.recordOutcome(status, time.Since(start))
	span.SetAttributes(
		attribute.Int("judge.retries", retries),
		attribute.Bool("judge.labelled", judgement.Label != nil),
	)

	if promptTokens, terr := j.client.EstimateTokens(prompt); terr == nil {
		j.logger.Debug().
			Str("pair", example.Key()).
			Int("prompt_tokens_est", promptTokens).
			Int("retries", retries).
			Str("status", status).
			Msg("judged example")
	}

	return judgement, nil
}

// parse applies the strategy and folds the tagged strategy's
// total-extraction-failure error into a label-less result so downstream
// handling stays uniform.
func (j *Judge) parse(rawText string, example domain.JudgingExample) domain.ParsedJudgement {
	parsed, err := j.parser.Parse(rawText)
	if err == nil {
		return parsed
	}

	var noLabel *domain.NoLabelError
	if !errors.As(err, &noLabel) {
		// Parsers only signal NoLabelError; anything else indicates a
		// strategy bug, but the record must still carry the raw text.
		j.logger.Warn().Err(err).Str("pair", example.Key()).Msg("unexpected parser error")
	}
	return domain.ParsedJudgement{Warnings: []string{err.Error()}}
}

// assemble builds the immutable judgement record from a parsed result,
// identity, and timing metadata. Invariants (bounded label and score, raw
// text retained, warning present when the label is absent) hold by
// construction; tests assert them via ModelJudgement.Validate.
func (j *Judge) assemble(
	example domain.JudgingExample,
	parsed domain.ParsedJudgement,
	rawText string,
	latencyMs float64,
	retries int,
) domain.ModelJudgement {
	warnings := make([]string, 0, len(parsed.Warnings)+1)
	warnings = append(warnings, parsed.Warnings...)
	if retries > 0 {
		warnings = append(warnings, fmt.Sprintf("Recovered after %d failed attempt(s)", retries))
	}

	var score *float64
	switch {
	case parsed.Score != nil:
		score = parsed.Score
	case parsed.Label != nil:
		if grade, ok := parsed.Label.Grade(); ok {
			// The graded score mirrors the label directly; it is not a
			// confidence.
			s := float64(grade)
			score = &s
		}
	}

	return domain.ModelJudgement{
		ModelID:    j.identity.ModelID,
		Provider:   j.identity.Provider,
		Version:    j.identity.Version,
		QueryID:    example.QueryID,
		DocID:      example.DocID,
		Label:      parsed.Label,
		Score:      score,
		Confidence: j.confidence.Confidence(parsed),
		Rationale:  parsed.Rationale,
		RawText:    rawText,
		LatencyMs:  latencyMs,
		Retries:    retries,
		Warnings:   warnings,
	}
}

// recordOutcome emits per-judgement metrics when a collector is configured.
func (j *Judge) recordOutcome(status string, elapsed time.Duration) {
	if j.metrics == nil {
		return
	}
	labels := map[string]string{
		"model":    j.identity.ModelID,
		"provider": j.identity.Provider,
		"strategy": j.parser.Name(),
		"status":   status,
	}
	j.metrics.RecordCounter("judgements_total", 1, labels)
	j.metrics.RecordHistogram("judgement_latency_seconds", elapsed.Seconds(), labels)
}
