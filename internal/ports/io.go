package ports

import "github.com/modelrank/judgekit/internal/domain"

// ExampleReader streams judging examples from an input source.
type ExampleReader interface {
	// Next returns the next example. It returns io.EOF when the source is
	// exhausted and a descriptive error for malformed records.
	Next() (domain.JudgingExample, error)

	// Close releases the underlying source.
	Close() error
}

// JudgementWriter persists judgement records to an append-only output
// stream, one record per call. Implementations must be safe for concurrent
// use; records are written whole so the stream stays parseable up to the
// last fully written line.
type JudgementWriter interface {
	// Write appends one judgement record.
	Write(judgement domain.ModelJudgement) error

	// Close flushes and releases the underlying sink. Idempotent.
	Close() error
}
