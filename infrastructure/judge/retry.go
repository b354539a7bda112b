// Package judge executes single-example relevance judging: it wraps one
// provider call in bounded exponential-backoff retries, parses the raw
// completion through a configured strategy, and assembles the canonical
// judgement record.
package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/modelrank/judgekit/internal/domain"
)

// Default retry configuration.
const (
	// DefaultMaxRetries is the default number of retries after the first
	// attempt, giving up to four total attempts.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the backoff unit; delays double from here.
	DefaultBaseDelay = 1 * time.Second
	// DefaultMaxDelay caps individual backoff waits. The cap is high
	// enough that the doubling law holds for any realistic retry budget.
	DefaultMaxDelay = 5 * time.Minute
)

// AttemptFunc is a single inference call: it returns the raw completion
// text or an error. The network call itself is opaque to the controller.
type AttemptFunc func(ctx context.Context) (string, error)

// RetryConfig controls the backoff behavior of a RetryController.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Zero means a single attempt with no retry.
	MaxRetries int

	// BaseDelay is the wait before the first retry; each subsequent wait
	// doubles it (1x, 2x, 4x, 8x, ...). No jitter is applied so that the
	// attempt timing stays deterministic.
	BaseDelay time.Duration

	// MaxDelay caps individual waits. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the standard retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

// RetryController executes an AttemptFunc up to MaxRetries+1 times with
// exponential backoff between attempts. It is used exactly once per
// (query, document, model) triple; the zero value is not usable, construct
// with NewRetryController.
type RetryController struct {
	config RetryConfig

	// sleep waits for the given duration or until the context is done.
	// Replaceable in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryController creates a controller, filling zero config fields with
// defaults. A negative MaxRetries is rejected.
func NewRetryController(config RetryConfig) (*RetryController, error) {
	if config.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: max retries must be non-negative, got %d",
			domain.ErrInvalidConfiguration, config.MaxRetries)
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultBaseDelay
	}
	return &RetryController{config: config, sleep: sleepContext}, nil
}

// Do runs the attempt sequence for the identified pair. On success it
// returns the raw completion and the number of failed attempts consumed.
// When every attempt fails it returns *domain.ExhaustedError carrying the
// pair identity and the last underlying error.
//
// Backoff occurs strictly between attempts, never before the first. A
// context cancellation during backoff aborts the operation immediately
// with the context error; the interrupted wait does not count as a
// retry-consuming failure and no judgement is produced.
func (c *RetryController) Do(ctx context.Context, queryID, docID string, attempt AttemptFunc) (string, int, error) {
	var lastErr error

	for n := 0; n <= c.config.MaxRetries; n++ {
		raw, err := attempt(ctx)
		if err == nil {
			return raw, n, nil
		}
		lastErr = err

		if n == c.config.MaxRetries {
			break
		}
		if err := c.sleep(ctx, c.delay(n)); err != nil {
			return "", 0, fmt.Errorf("context cancelled during backoff for %s/%s: %w",
				queryID, docID, err)
		}
	}

	return "", 0, &domain.ExhaustedError{
		QueryID:  queryID,
		DocID:    docID,
		Attempts: c.config.MaxRetries + 1,
		Err:      lastErr,
	}
}

// delay returns the backoff wait after failed attempt n: BaseDelay * 2^n,
// capped at MaxDelay when one is set.
func (c *RetryController) delay(n int) time.Duration {
	if n > 30 {
		n = 30
	}
	d := c.config.BaseDelay * time.Duration(1<<uint(n))
	if c.config.MaxDelay > 0 && d > c.config.MaxDelay {
		d = c.config.MaxDelay
	}
	return d
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
