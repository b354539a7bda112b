package ndjson

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/modelrank/judgekit/internal/domain"
	"github.com/modelrank/judgekit/internal/ports"
)

// JudgementWriter appends judgement records to an NDJSON sink, one record
// per line. Safe for concurrent use; each record is marshalled and written
// under the lock so lines never interleave and a crashed run leaves the
// output parseable up to the last complete line.
type JudgementWriter struct {
	mu     sync.Mutex
	writer *bufio.Writer
	closer io.Closer
	closed bool
}

var _ ports.JudgementWriter = (*JudgementWriter)(nil)

// NewJudgementWriter writes records to w. The writer does not close w.
func NewJudgementWriter(w io.Writer) *JudgementWriter {
	return &JudgementWriter{writer: bufio.NewWriter(w)}
}

// OpenJudgementFile opens an output file for appending judgement records.
// An existing file is appended to, preserving records from earlier partial
// runs.
func OpenJudgementFile(path string) (*JudgementWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	writer := NewJudgementWriter(f)
	writer.closer = f
	return writer, nil
}

// Write appends one judgement record, flushing it to the sink immediately.
func (w *JudgementWriter) Write(judgement domain.ModelJudgement) error {
	data, err := json.Marshal(judgement)
	if err != nil {
		return fmt.Errorf("failed to marshal judgement for %s/%s: %w",
			judgement.QueryID, judgement.DocID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("judgement writer is closed")
	}
	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write judgement: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write judgement: %w", err)
	}
	return w.writer.Flush()
}

// Close flushes buffered data and releases the underlying file when the
// writer owns one. Safe to call more than once.
func (w *JudgementWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush judgement writer: %w", err)
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
