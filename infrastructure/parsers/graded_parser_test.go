package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrank/judgekit/internal/domain"
)

func TestGradedParserExtractsScores(t *testing.T) {
	parser, err := NewGradedParser("")
	require.NoError(t, err)

	tests := []struct {
		name      string
		rawText   string
		wantGrade domain.Grade
	}{
		{name: "bare object", rawText: `{"O": 2}`, wantGrade: domain.GradeHighlyRelevant},
		{name: "zero score", rawText: `{"O": 0}`, wantGrade: domain.GradeNotRelevant},
		{name: "object inside prose", rawText: `Here is my answer: {"O": 1} as requested.`, wantGrade: domain.GradeRelevant},
		{name: "multi-field object", rawText: `{"M": 2, "T": 1, "O": 1}`, wantGrade: domain.GradeRelevant},
		{name: "no space after colon", rawText: `{"O":2}`, wantGrade: domain.GradeHighlyRelevant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parser.Parse(tt.rawText)
			require.NoError(t, err)

			require.NotNil(t, parsed.Label)
			grade, ok := parsed.Label.Grade()
			require.True(t, ok)
			assert.Equal(t, tt.wantGrade, grade)

			assert.Nil(t, parsed.Score, "graded strategy carries no heuristic score")
			assert.Empty(t, parsed.Warnings)
		})
	}
}

func TestGradedParserFailureModes(t *testing.T) {
	parser, err := NewGradedParser("")
	require.NoError(t, err)

	tests := []struct {
		name        string
		rawText     string
		wantWarning string
	}{
		{
			name:        "no JSON object",
			rawText:     "The document is highly relevant.",
			wantWarning: "No JSON object with 'O' field found in response",
		},
		{
			name:        "empty input",
			rawText:     "",
			wantWarning: "No JSON object with 'O' field found in response",
		},
		{
			name:        "string score does not match",
			rawText:     `{"O": "2"}`,
			wantWarning: "No JSON object with 'O' field found in response",
		},
		{
			name:        "float score is rejected not truncated",
			rawText:     `{"O": 1.0}`,
			wantWarning: "Invalid O score: 1.0 (expected 0, 1, or 2)",
		},
		{
			name:        "out of range score",
			rawText:     `{"O": 5}`,
			wantWarning: "Invalid O score: 5 (expected 0, 1, or 2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parser.Parse(tt.rawText)
			require.NoError(t, err, "the graded parser must never fail")

			assert.Nil(t, parsed.Label)
			require.NotEmpty(t, parsed.Warnings)
			assert.Contains(t, parsed.Warnings, tt.wantWarning)
		})
	}
}

func TestGradedParserCustomField(t *testing.T) {
	parser, err := NewGradedParser("score")
	require.NoError(t, err)
	assert.Equal(t, "score", parser.Field())

	parsed, err := parser.Parse(`{"score": 1}`)
	require.NoError(t, err)

	require.NotNil(t, parsed.Label)
	grade, ok := parsed.Label.Grade()
	require.True(t, ok)
	assert.Equal(t, domain.GradeRelevant, grade)

	// The default field name must not match a custom-field parser.
	parsed, err = parser.Parse(`{"O": 1}`)
	require.NoError(t, err)
	assert.Nil(t, parsed.Label)
	assert.Contains(t, parsed.Warnings, "No JSON object with 'score' field found in response")
}

func TestNewGradedParserRejectsUnsafeFieldNames(t *testing.T) {
	for _, field := range []string{`O"`, `{O}`, `a"b`} {
		_, err := NewGradedParser(field)
		require.Error(t, err, "field %q", field)
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	}
}

func TestGradedParserName(t *testing.T) {
	parser, err := NewGradedParser("")
	require.NoError(t, err)
	assert.Equal(t, StrategyGraded, parser.Name())
}
