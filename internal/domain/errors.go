package domain

import (
	"errors"
	"fmt"
)

// Common domain errors shared across the parsing and judging layers.
var (
	// ErrUnknownStrategy indicates a parser strategy name that is not in
	// the registry. Surfaced at construction time, never per record.
	ErrUnknownStrategy = errors.New("unknown parser strategy")

	// ErrInvalidConfiguration indicates configuration that is invalid or
	// incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// NoLabelError reports that the tagged parser found no extractable
// relevance signal at all: no LABEL: tag and none of the fallback keywords.
// This is the one parse failure surfaced as an error rather than as a
// warning-only result; callers convert it into a label-less judgement with
// the message folded into warnings so downstream behavior stays uniform.
type NoLabelError struct {
	// Snippet is a bounded prefix of the raw output for diagnostics.
	Snippet string
}

// Error implements the error interface.
func (e *NoLabelError) Error() string {
	return fmt.Sprintf("could not extract valid label from output: %s", e.Snippet)
}

// ExhaustedError reports that every attempt of a retried inference call
// failed. No judgement record exists for the pair; the pipeline layer
// decides whether to skip the record or abort the run.
type ExhaustedError struct {
	// QueryID and DocID identify the pair whose call sequence failed.
	QueryID string
	DocID   string

	// Attempts is the total number of attempts made.
	Attempts int

	// Err is the error from the final attempt.
	Err error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("inference failed after %d attempts for %s/%s: %v",
		e.Attempts, e.QueryID, e.DocID, e.Err)
}

// Unwrap returns the last underlying attempt error.
func (e *ExhaustedError) Unwrap() error { return e.Err }

// ValidationError collects one or more invariant violations for an entity.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the individual violation messages.
	Errors []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError appends a violation message.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors reports whether any violations were recorded.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates an empty ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: make([]string, 0)}
}
