package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassifierHTTPStatus(t *testing.T) {
	classifier := &ErrorClassifier{Provider: "openrouter"}

	tests := []struct {
		name          string
		statusCode    int
		wantType      ErrorType
		wantRetryable bool
	}{
		{name: "unauthorized", statusCode: 401, wantType: ErrorTypeAuthentication},
		{name: "forbidden", statusCode: 403, wantType: ErrorTypeAuthentication},
		{name: "rate limited", statusCode: 429, wantType: ErrorTypeRateLimit, wantRetryable: true},
		{name: "bad request", statusCode: 400, wantType: ErrorTypeBadRequest},
		{name: "unknown model", statusCode: 404, wantType: ErrorTypeNotFound},
		{name: "server error", statusCode: 500, wantType: ErrorTypeServerError, wantRetryable: true},
		{name: "bad gateway", statusCode: 502, wantType: ErrorTypeServerError, wantRetryable: true},
		{name: "other 4xx", statusCode: 418, wantType: ErrorTypeBadRequest},
		{name: "other 5xx", statusCode: 599, wantType: ErrorTypeServerError, wantRetryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cause := errors.New("api failure")
			perr := classifier.ClassifyHTTPError(tt.statusCode, "message", cause)

			assert.Equal(t, tt.wantType, perr.Type)
			assert.Equal(t, tt.statusCode, perr.StatusCode)
			assert.Equal(t, "openrouter", perr.Provider)
			assert.Equal(t, tt.wantRetryable, perr.IsRetryable())
			assert.ErrorIs(t, perr, cause)
		})
	}
}

func TestErrorClassifierContextErrors(t *testing.T) {
	classifier := &ErrorClassifier{Provider: "anthropic"}

	perr := classifier.ClassifyContextError(context.DeadlineExceeded)
	assert.Equal(t, ErrorTypeNetwork, perr.Type)
	assert.True(t, perr.IsRetryable())

	perr = classifier.ClassifyContextError(context.Canceled)
	assert.Equal(t, ErrorTypeNetwork, perr.Type)
	assert.ErrorIs(t, perr, context.Canceled)
}

func TestProviderErrorMessage(t *testing.T) {
	cause := errors.New("quota exceeded")
	perr := NewProviderError("openrouter", ErrorTypeRateLimit, 429, "openrouter rate limit exceeded", cause)

	msg := perr.Error()
	assert.Contains(t, msg, "openrouter error")
	assert.Contains(t, msg, "(HTTP 429)")
	assert.Contains(t, msg, "[rate_limit]")
	assert.Contains(t, msg, "quota exceeded")

	var target *ProviderError
	require.ErrorAs(t, error(perr), &target)
	assert.Equal(t, cause, errors.Unwrap(perr))
}
