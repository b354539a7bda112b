// Package ndjson reads judging examples from and writes judgement records
// to newline-delimited JSON files, the interchange format of the pipeline.
package ndjson

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/modelrank/judgekit/internal/domain"
	"github.com/modelrank/judgekit/internal/ports"
)

// maxLineBytes bounds a single input line. Web-page documents can be large;
// 16 MiB leaves generous headroom over bufio's default 64 KiB.
const maxLineBytes = 16 * 1024 * 1024

// ExampleReader streams judging examples from an NDJSON source. Blank lines
// are skipped; malformed lines fail the read with their line number so bad
// input surfaces before any model call is spent on it.
type ExampleReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

var _ ports.ExampleReader = (*ExampleReader)(nil)

// NewExampleReader reads examples from r. The reader does not close r.
func NewExampleReader(r io.Reader) *ExampleReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &ExampleReader{scanner: scanner}
}

// OpenExampleFile opens an NDJSON file of judging examples. Close releases
// the underlying file.
func OpenExampleFile(path string) (*ExampleReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	reader := NewExampleReader(f)
	reader.closer = f
	return reader, nil
}

// Next returns the next example, or io.EOF when the input is exhausted.
func (r *ExampleReader) Next() (domain.JudgingExample, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" {
			continue
		}

		var example domain.JudgingExample
		if err := json.Unmarshal([]byte(text), &example); err != nil {
			return domain.JudgingExample{}, fmt.Errorf("line %d: failed to parse example: %w", r.line, err)
		}
		if example.QueryID == "" || example.DocID == "" {
			return domain.JudgingExample{}, fmt.Errorf("line %d: example is missing qid or docid", r.line)
		}
		return example, nil
	}

	if err := r.scanner.Err(); err != nil {
		return domain.JudgingExample{}, fmt.Errorf("failed to read input: %w", err)
	}
	return domain.JudgingExample{}, io.EOF
}

// Close releases the underlying file when the reader owns one.
func (r *ExampleReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
