package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGradeLabel(t *testing.T) {
	tests := []struct {
		name    string
		grade   Grade
		wantErr bool
	}{
		{name: "not relevant", grade: GradeNotRelevant},
		{name: "relevant", grade: GradeRelevant},
		{name: "highly relevant", grade: GradeHighlyRelevant},
		{name: "negative", grade: Grade(-1), wantErr: true},
		{name: "above scale", grade: Grade(3), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, err := NewGradeLabel(tt.grade)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			grade, ok := label.Grade()
			assert.True(t, ok)
			assert.Equal(t, tt.grade, grade)

			_, ok = label.Tag()
			assert.False(t, ok, "graded label must not expose a tag")
		})
	}
}

func TestNewTagLabel(t *testing.T) {
	tests := []struct {
		name    string
		tag     TaggedLabel
		wantErr bool
	}{
		{name: "relevant", tag: TagRelevant},
		{name: "partially", tag: TagPartially},
		{name: "irrelevant", tag: TagIrrelevant},
		{name: "unknown class", tag: TaggedLabel("maybe"), wantErr: true},
		{name: "empty", tag: TaggedLabel(""), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, err := NewTagLabel(tt.tag)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			tag, ok := label.Tag()
			assert.True(t, ok)
			assert.Equal(t, tt.tag, tag)

			_, ok = label.Grade()
			assert.False(t, ok, "tagged label must not expose a grade")
		})
	}
}

func TestLabelJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		build    func(t *testing.T) Label
		wantJSON string
	}{
		{
			name: "graded marshals as bare integer",
			build: func(t *testing.T) Label {
				l, err := NewGradeLabel(GradeHighlyRelevant)
				require.NoError(t, err)
				return l
			},
			wantJSON: `2`,
		},
		{
			name: "tagged marshals as bare string",
			build: func(t *testing.T) Label {
				l, err := NewTagLabel(TagRelevant)
				require.NoError(t, err)
				return l
			},
			wantJSON: `"relevant"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label := tt.build(t)

			data, err := json.Marshal(label)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantJSON, string(data))

			var decoded Label
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, label, decoded)
		})
	}
}

func TestLabelUnmarshalRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "grade above scale", data: `5`},
		{name: "negative grade", data: `-1`},
		{name: "unknown class", data: `"somewhat"`},
		{name: "object", data: `{"label": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var label Label
			assert.Error(t, json.Unmarshal([]byte(tt.data), &label))
		})
	}
}

func TestModelJudgementJSONFieldNames(t *testing.T) {
	label, err := NewGradeLabel(GradeHighlyRelevant)
	require.NoError(t, err)
	score := 2.0

	judgement := ModelJudgement{
		ModelID:   "phi3-mini",
		Provider:  "openrouter",
		QueryID:   "q42",
		DocID:     "d7",
		Label:     &label,
		Score:     &score,
		Rationale: "The page answers the query directly.",
		RawText:   `{"O": 2}`,
		LatencyMs: 812.5,
		Retries:   0,
		Warnings:  []string{},
	}

	data, err := json.Marshal(judgement)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	for _, key := range []string{
		"model_id", "provider", "query_id", "docid", "label",
		"score", "rationale", "raw_text", "latency_ms", "retries", "warnings",
	} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "version", "empty version must be omitted")
	assert.NotContains(t, fields, "confidence", "unset confidence must be omitted")
	assert.NotContains(t, fields, "cost_estimate", "unset cost must be omitted")

	assert.EqualValues(t, 2, fields["label"])
	assert.EqualValues(t, 2.0, fields["score"])
}

func TestModelJudgementValidate(t *testing.T) {
	label, err := NewTagLabel(TagRelevant)
	require.NoError(t, err)
	validScore := 0.9

	base := ModelJudgement{
		ModelID:  "m1",
		Provider: "openrouter",
		QueryID:  "q1",
		DocID:    "d1",
		Label:    &label,
		Score:    &validScore,
		RawText:  "LABEL: relevant",
	}

	tests := []struct {
		name    string
		mutate  func(j *ModelJudgement)
		wantErr string
	}{
		{name: "valid record", mutate: func(j *ModelJudgement) {}},
		{
			name:    "missing query id",
			mutate:  func(j *ModelJudgement) { j.QueryID = "" },
			wantErr: "query_id is required",
		},
		{
			name:    "missing doc id",
			mutate:  func(j *ModelJudgement) { j.DocID = "" },
			wantErr: "docid is required",
		},
		{
			name: "nil label without warning",
			mutate: func(j *ModelJudgement) {
				j.Label = nil
				j.Warnings = nil
			},
			wantErr: "no warning explains why",
		},
		{
			name: "nil label with warning is valid",
			mutate: func(j *ModelJudgement) {
				j.Label = nil
				j.Score = nil
				j.Warnings = []string{"No JSON object with 'O' field found in response"}
			},
		},
		{
			name: "score out of range",
			mutate: func(j *ModelJudgement) {
				bad := 2.5
				j.Score = &bad
			},
			wantErr: "outside [0,2]",
		},
		{
			name: "confidence out of range",
			mutate: func(j *ModelJudgement) {
				bad := 1.2
				j.Confidence = &bad
			},
			wantErr: "outside [0,1]",
		},
		{
			name:    "negative retries",
			mutate:  func(j *ModelJudgement) { j.Retries = -1 },
			wantErr: "retries must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			judgement := base
			tt.mutate(&judgement)

			err := judgement.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
