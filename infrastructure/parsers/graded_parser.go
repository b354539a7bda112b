// Package parsers implements the response-parsing strategies that turn
// free-form LLM completion text into validated relevance labels, plus the
// confidence policies and the static strategy registry that resolves
// parsers by name at startup.
package parsers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/modelrank/judgekit/internal/domain"
	"github.com/modelrank/judgekit/internal/ports"
)

// DefaultGradedField is the JSON field holding the overall relevance score
// in the graded response protocol, e.g. {"O": 2} or {"M": 2, "T": 1, "O": 1}.
const DefaultGradedField = "O"

var _ ports.ResponseParser = (*GradedParser)(nil)

// GradedParser extracts a three-level integer relevance label from a JSON
// object embedded anywhere in the model output. Only a clean integer 0, 1,
// or 2 is accepted; floats, strings, and out-of-range integers are rejected
// with a warning, never coerced. The parser is total: malformed input
// yields a nil label plus warnings and never an error.
type GradedParser struct {
	field   string
	pattern *regexp.Regexp
}

// NewGradedParser creates a parser for the given score field name.
// An empty field selects DefaultGradedField. Field names containing quotes
// or braces would corrupt the extraction pattern and are rejected at
// construction time.
func NewGradedParser(field string) (*GradedParser, error) {
	if field == "" {
		field = DefaultGradedField
	}
	if strings.ContainsAny(field, `"{}`) {
		return nil, fmt.Errorf("%w: invalid score field name %q",
			domain.ErrInvalidConfiguration, field)
	}

	// Matches the first {...} object that assigns an integer to the score
	// field. Text before and after the object is ignored.
	pattern, err := regexp.Compile(`\{[^}]*"` + regexp.QuoteMeta(field) + `"\s*:\s*\d+[^}]*\}`)
	if err != nil {
		return nil, fmt.Errorf("compiling extraction pattern for field %q: %w", field, err)
	}

	return &GradedParser{field: field, pattern: pattern}, nil
}

// Name returns the registry name of this strategy.
func (p *GradedParser) Name() string { return StrategyGraded }

// Field returns the configured score field name.
func (p *GradedParser) Field() string { return p.field }

// Parse extracts the graded label from rawText.
// The returned error is always nil; every failure mode is reported through
// warnings so that callers emit a uniform label-less judgement.
func (p *GradedParser) Parse(rawText string) (domain.ParsedJudgement, error) {
	warnings := []string{}

	jsonStr := p.pattern.FindString(rawText)
	if jsonStr == "" {
		warnings = append(warnings,
			fmt.Sprintf("No JSON object with '%s' field found in response", p.field))
		return domain.ParsedJudgement{Warnings: warnings}, nil
	}

	// UseNumber preserves the distinction between 1 and 1.0 so that
	// non-integer scores are rejected rather than truncated.
	dec := json.NewDecoder(strings.NewReader(jsonStr))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		warnings = append(warnings, fmt.Sprintf("Failed to parse JSON: %v", err))
		return domain.ParsedJudgement{Warnings: warnings}, nil
	}

	value, ok := data[p.field]
	if !ok {
		warnings = append(warnings,
			fmt.Sprintf("Missing '%s' field in parsed JSON", p.field))
		return domain.ParsedJudgement{Warnings: warnings}, nil
	}

	grade, ok := integerGrade(value)
	if !ok {
		warnings = append(warnings,
			fmt.Sprintf("Invalid %s score: %v (expected 0, 1, or 2)", p.field, value))
		return domain.ParsedJudgement{Warnings: warnings}, nil
	}

	label, err := domain.NewGradeLabel(grade)
	if err != nil {
		// Unreachable: integerGrade already bounds the value.
		return domain.ParsedJudgement{}, err
	}

	return domain.ParsedJudgement{Label: &label, Warnings: warnings}, nil
}

// integerGrade reports whether the decoded JSON value is a clean integer in
// {0,1,2}. json.Number keeps "1.0" distinct from "1", so fractional scores
// fail the Int64 conversion and are rejected.
func integerGrade(value any) (domain.Grade, bool) {
	num, ok := value.(json.Number)
	if !ok {
		return 0, false
	}
	n, err := num.Int64()
	if err != nil {
		return 0, false
	}
	grade := domain.Grade(n)
	if !grade.Valid() {
		return 0, false
	}
	return grade, true
}
