package domain

import (
	"encoding/json"
	"fmt"
)

// Grade is a graded relevance label on the three-level scale used by the
// json-field judging protocol.
type Grade int

// Graded relevance levels. The numbering is part of the persisted data
// contract and must not be reordered.
const (
	// GradeNotRelevant means the document should never be shown for the query.
	GradeNotRelevant Grade = 0
	// GradeRelevant means the document may be partly helpful for the query.
	GradeRelevant Grade = 1
	// GradeHighlyRelevant means the document is very helpful for the query.
	GradeHighlyRelevant Grade = 2
)

// Valid reports whether the grade is one of the three defined levels.
func (g Grade) Valid() bool { return g >= GradeNotRelevant && g <= GradeHighlyRelevant }

// TaggedLabel is a three-way relevance class from the tagged judging
// protocol (LABEL:/REASONING: responses).
type TaggedLabel string

// Tagged relevance classes. The literal strings are part of the persisted
// data contract.
const (
	TagRelevant   TaggedLabel = "relevant"
	TagPartially  TaggedLabel = "partially"
	TagIrrelevant TaggedLabel = "irrelevant"
)

// Valid reports whether the label is one of the three defined classes.
func (t TaggedLabel) Valid() bool {
	switch t {
	case TagRelevant, TagPartially, TagIrrelevant:
		return true
	}
	return false
}

// Label is a validated relevance label from either judging protocol.
// A Label always holds exactly one of the two representations: a Grade for
// the graded scheme or a TaggedLabel for the tagged scheme. It marshals to
// JSON as a bare integer or a bare string accordingly, matching the
// persisted judgement contract.
type Label struct {
	grade  Grade
	tag    TaggedLabel
	graded bool
}

// NewGradeLabel wraps a graded relevance level in a Label.
// It returns an error if the grade is outside the defined scale; parsers
// construct labels only from validated input, so an error here indicates
// a programming mistake in the caller.
func NewGradeLabel(g Grade) (Label, error) {
	if !g.Valid() {
		return Label{}, fmt.Errorf("grade %d outside the 0-2 scale", int(g))
	}
	return Label{grade: g, graded: true}, nil
}

// NewTagLabel wraps a tagged relevance class in a Label.
func NewTagLabel(t TaggedLabel) (Label, error) {
	if !t.Valid() {
		return Label{}, fmt.Errorf("unknown tagged label %q", string(t))
	}
	return Label{tag: t}, nil
}

// Grade returns the graded level and true when the label came from the
// graded protocol.
func (l Label) Grade() (Grade, bool) {
	if !l.graded {
		return 0, false
	}
	return l.grade, true
}

// Tag returns the tagged class and true when the label came from the
// tagged protocol.
func (l Label) Tag() (TaggedLabel, bool) {
	if l.graded || l.tag == "" {
		return "", false
	}
	return l.tag, true
}

// String renders the label for logs and error messages.
func (l Label) String() string {
	if l.graded {
		return fmt.Sprintf("%d", int(l.grade))
	}
	return string(l.tag)
}

// MarshalJSON emits the label as an integer for the graded scheme and as a
// string for the tagged scheme.
func (l Label) MarshalJSON() ([]byte, error) {
	if l.graded {
		return json.Marshal(int(l.grade))
	}
	return json.Marshal(string(l.tag))
}

// UnmarshalJSON accepts either representation and validates it against the
// corresponding label set.
func (l *Label) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed, err := NewGradeLabel(Grade(n))
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("label must be an integer grade or a tagged class: %w", err)
	}
	parsed, err := NewTagLabel(TaggedLabel(s))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParsedJudgement is the transient result of parsing one raw model output.
// Label is nil when extraction failed; in that case Warnings explains why.
type ParsedJudgement struct {
	// Label is the extracted relevance label, or nil on parse failure.
	Label *Label

	// Score is the heuristic score attached by the tagged protocol
	// (relevant 0.9, partially 0.5, irrelevant 0.1). It is nil for the
	// graded protocol, where the score mirrors the label instead.
	Score *float64

	// Rationale is the model's explanation when one could be extracted.
	Rationale string

	// Warnings lists fallback paths taken and failures encountered, in
	// order of occurrence. Empty when parsing was clean.
	Warnings []string
}

// ModelJudgement is the canonical output of one judge for one
// query-document pair. It is created once at the end of an inference
// attempt sequence, is immutable afterward, and is written as one line of
// the NDJSON judgement stream. Field names form the data contract that
// downstream aggregate and evaluate stages depend on.
type ModelJudgement struct {
	// ModelID identifies the judging model (e.g. "phi3-mini").
	ModelID string `json:"model_id"`

	// Provider names the serving provider (e.g. "openrouter", "anthropic").
	Provider string `json:"provider"`

	// Version is the model version when the provider reports one.
	Version string `json:"version,omitempty"`

	// QueryID and DocID carry the identity of the judged pair.
	QueryID string `json:"query_id"`
	DocID   string `json:"docid"`

	// Label is the validated relevance label, or nil when no usable label
	// could be extracted from the model output.
	Label *Label `json:"label"`

	// Score is the numeric relevance score. For the graded scheme it
	// mirrors the label directly; for the tagged scheme it is the fixed
	// heuristic mapping. Nil when Label is nil.
	Score *float64 `json:"score,omitempty"`

	// Confidence is a derived or provider-reported certainty in [0,1].
	// Nil when no policy defines one for the scheme in use.
	Confidence *float64 `json:"confidence,omitempty"`

	// Rationale is the model's explanation for its judgement, if any.
	Rationale string `json:"rationale,omitempty"`

	// RawText is the verbatim model output. It is always retained, even on
	// complete parse failure, for debugging and manual re-labeling.
	RawText string `json:"raw_text"`

	// LatencyMs is the wall-clock time of the whole retried call sequence
	// in milliseconds.
	LatencyMs float64 `json:"latency_ms"`

	// Retries counts the failed attempts consumed before success.
	Retries int `json:"retries"`

	// CostEstimate is the estimated call cost in USD, when known.
	CostEstimate *float64 `json:"cost_estimate,omitempty"`

	// Warnings carries parser warnings plus any retry-related warnings,
	// preserving order of occurrence.
	Warnings []string `json:"warnings"`
}

// Validate checks the record invariants: bounded score and confidence,
// non-negative observability fields, raw text retained, and at least one
// warning whenever the label is absent. Violations are programming-contract
// errors; the hot path constructs records that satisfy these by
// construction, so Validate is exercised from tests and debugging tools.
func (j ModelJudgement) Validate() error {
	v := NewValidationError("ModelJudgement")
	if j.ModelID == "" {
		v.AddError("model_id is required")
	}
	if j.Provider == "" {
		v.AddError("provider is required")
	}
	if j.QueryID == "" {
		v.AddError("query_id is required")
	}
	if j.DocID == "" {
		v.AddError("docid is required")
	}
	if j.Label == nil && len(j.Warnings) == 0 {
		v.AddError("label is absent but no warning explains why")
	}
	if j.Score != nil && (*j.Score < 0 || *j.Score > 2) {
		v.AddError(fmt.Sprintf("score %.3f outside [0,2]", *j.Score))
	}
	if j.Confidence != nil && (*j.Confidence < 0 || *j.Confidence > 1) {
		v.AddError(fmt.Sprintf("confidence %.3f outside [0,1]", *j.Confidence))
	}
	if j.LatencyMs < 0 {
		v.AddError("latency_ms must be non-negative")
	}
	if j.Retries < 0 {
		v.AddError("retries must be non-negative")
	}
	if v.HasErrors() {
		return v
	}
	return nil
}
