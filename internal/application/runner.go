package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/modelrank/judgekit/infrastructure/judge"
	"github.com/modelrank/judgekit/infrastructure/llm"
	"github.com/modelrank/judgekit/infrastructure/ndjson"
	"github.com/modelrank/judgekit/infrastructure/parsers"
	"github.com/modelrank/judgekit/internal/domain"
	"github.com/modelrank/judgekit/internal/ports"
)

// DefaultConcurrency caps in-flight examples per model when the config
// leaves concurrency unset.
const DefaultConcurrency = 4

// RunStats summarizes a judging run.
type RunStats struct {
	// RunID uniquely identifies the run in logs.
	RunID string
	// Examples is the number of input examples read.
	Examples int
	// Judged counts judgement records written.
	Judged int64
	// Skipped counts pairs dropped after retry exhaustion.
	Skipped int64
	// Duration is the wall-clock run time.
	Duration time.Duration
}

// Runner executes a judging run: every configured model judges every input
// example, and records stream to the output file as they complete. Pairs
// whose attempts are exhausted are logged and skipped; the rest of the run
// proceeds.
type Runner struct {
	config  *RunConfig
	logger  zerolog.Logger
	metrics ports.MetricsCollector

	// newJudge builds the judge for one model entry. Tests replace it to
	// run against scripted clients.
	newJudge func(model ModelConfig, logger zerolog.Logger) (*judge.Judge, error)
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the run logger.
func WithLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithMetrics sets the metrics collector shared by all judges in the run.
func WithMetrics(metrics ports.MetricsCollector) RunnerOption {
	return func(r *Runner) { r.metrics = metrics }
}

// NewRunner creates a runner for a validated configuration.
func NewRunner(config *RunConfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		config: config,
		logger: zerolog.Nop(),
	}
	r.newJudge = r.buildJudge
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads the input examples and judges each with every configured model.
// It returns run statistics; the error is non-nil only for failures that
// abort the run, such as unreadable input or context cancellation.
func (r *Runner) Run(ctx context.Context) (RunStats, error) {
	start := time.Now()
	stats := RunStats{RunID: uuid.NewString()}
	logger := r.logger.With().Str("run_id", stats.RunID).Logger()

	examples, err := r.readExamples()
	if err != nil {
		return stats, err
	}
	stats.Examples = len(examples)

	writer, err := ndjson.OpenJudgementFile(r.config.Output)
	if err != nil {
		return stats, err
	}
	defer writer.Close()

	logger.Info().
		Int("examples", len(examples)).
		Int("models", len(r.config.Models)).
		Msg("starting judging run")

	for _, model := range r.config.Models {
		if err := r.runModel(ctx, logger, model, examples, writer, &stats); err != nil {
			return stats, err
		}
	}

	stats.Duration = time.Since(start)
	logger.Info().
		Int64("judged", stats.Judged).
		Int64("skipped", stats.Skipped).
		Dur("duration", stats.Duration).
		Msg("judging run complete")

	return stats, nil
}

// runModel judges every example with one model, fanning out up to the
// configured concurrency.
func (r *Runner) runModel(
	ctx context.Context,
	logger zerolog.Logger,
	model ModelConfig,
	examples []domain.JudgingExample,
	writer ports.JudgementWriter,
	stats *RunStats,
) error {
	modelLogger := logger.With().Str("model_id", model.ModelID).Logger()

	j, err := r.newJudge(model, modelLogger)
	if err != nil {
		return fmt.Errorf("failed to set up model %s: %w", model.ModelID, err)
	}

	concurrency := r.config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var judged, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, example := range examples {
		g.Go(func() error {
			judgement, err := j.Judge(gctx, example)
			if err != nil {
				var exhausted *domain.ExhaustedError
				if errors.As(err, &exhausted) {
					// One dead pair must not sink the run; the gap in the
					// output identifies what to re-judge.
					modelLogger.Warn().
						Err(err).
						Str("pair", example.Key()).
						Msg("skipping example after exhausted retries")
					skipped.Add(1)
					return nil
				}
				return err
			}

			if err := writer.Write(judgement); err != nil {
				return err
			}
			judged.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats.Judged += judged.Load()
	stats.Skipped += skipped.Load()

	modelLogger.Info().
		Int64("judged", judged.Load()).
		Int64("skipped", skipped.Load()).
		Msg("model finished")

	return nil
}

// buildJudge assembles the client, parser, and prompt for one model entry.
func (r *Runner) buildJudge(model ModelConfig, logger zerolog.Logger) (*judge.Judge, error) {
	apiKey, err := model.APIKey()
	if err != nil {
		return nil, err
	}

	params, err := model.GenerationParams()
	if err != nil {
		return nil, err
	}

	var middleware []llm.Middleware
	if model.RateLimit > 0 {
		middleware = append(middleware, llm.RateLimitMiddleware(rate.Limit(model.RateLimit), 1))
	}
	if model.TimeoutSeconds > 0 {
		middleware = append(middleware, llm.TimeoutMiddleware(time.Duration(model.TimeoutSeconds)*time.Second))
	}
	if r.metrics != nil {
		middleware = append(middleware, llm.MetricsMiddleware(model.Provider, r.metrics))
	}
	middleware = append(middleware, llm.TracingMiddleware("judgekit/llm"))

	client, err := llm.NewClient(model.Provider, llm.ClientConfig{
		APIKey:     apiKey,
		Model:      model.Model,
		BaseURL:    model.BaseURL,
		Middleware: middleware,
	})
	if err != nil {
		return nil, err
	}

	parser, err := parsers.New(model.Strategy, parsers.Config{Field: model.Field})
	if err != nil {
		return nil, err
	}

	prompt, err := judge.NewPromptBuilder(model.Prompt, model.Strategy)
	if err != nil {
		return nil, err
	}

	retry := judge.DefaultRetryConfig()
	if model.Retry.MaxRetries != nil {
		retry.MaxRetries = *model.Retry.MaxRetries
	}
	if model.Retry.BaseDelaySeconds > 0 {
		retry.BaseDelay = time.Duration(model.Retry.BaseDelaySeconds) * time.Second
	}

	return judge.New(judge.Config{
		Client: client,
		Parser: parser,
		Prompt: prompt,
		Retry:  retry,
		Identity: judge.Identity{
			ModelID:  model.ModelID,
			Provider: model.Provider,
			Version:  model.Version,
		},
		Options: params,
		Metrics: r.metrics,
		Logger:  logger,
	})
}

// readExamples loads the input file into memory. Judging cost dwarfs input
// size, so buffering the examples keeps per-model iteration simple.
func (r *Runner) readExamples() ([]domain.JudgingExample, error) {
	reader, err := ndjson.OpenExampleFile(r.config.Input)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var examples []domain.JudgingExample
	for {
		example, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return examples, nil
		}
		if err != nil {
			return nil, err
		}
		examples = append(examples, example)
	}
}
