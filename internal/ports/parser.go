// Package ports defines the interfaces that form the contract between the
// judging core and the infrastructure layer: response parsing, LLM access,
// example/judgement IO, and metrics. These interfaces enable dependency
// inversion and keep the core testable without network or disk.
package ports

import "github.com/modelrank/judgekit/internal/domain"

// ResponseParser turns one raw LLM completion into a parsed judgement.
// Implementations must be pure and deterministic: no IO, no hidden state,
// identical output for identical input, and safe for concurrent use.
//
// Malformed input is not an error; it yields a nil label plus warnings
// describing what failed. The single exception is the tagged strategy's
// total-extraction-failure case, which returns *domain.NoLabelError.
// Callers convert that into a label-less judgement rather than letting it
// propagate.
type ResponseParser interface {
	// Name returns the registry name of the strategy, used for logging
	// and configuration.
	Name() string

	// Parse extracts a relevance label, optional score and rationale, and
	// any warnings from the raw model output.
	Parse(rawText string) (domain.ParsedJudgement, error)
}
