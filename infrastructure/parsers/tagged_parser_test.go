package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrank/judgekit/internal/domain"
)

func TestTaggedParserStructuredLabels(t *testing.T) {
	parser := NewTaggedParser()

	tests := []struct {
		name          string
		rawText       string
		wantTag       domain.TaggedLabel
		wantScore     float64
		wantRationale string
	}{
		{
			name:          "full protocol response",
			rawText:       "LABEL: relevant\nREASONING: The document fully answers the query.",
			wantTag:       domain.TagRelevant,
			wantScore:     0.9,
			wantRationale: "The document fully answers the query.",
		},
		{
			name:          "partially relevant",
			rawText:       "LABEL: partially\nREASONING: Related but incomplete.",
			wantTag:       domain.TagPartially,
			wantScore:     0.5,
			wantRationale: "Related but incomplete.",
		},
		{
			name:          "irrelevant resolves despite shared suffix",
			rawText:       "LABEL: irrelevant\nREASONING: Different topic entirely.",
			wantTag:       domain.TagIrrelevant,
			wantScore:     0.1,
			wantRationale: "Different topic entirely.",
		},
		{
			name:          "case-insensitive tags",
			rawText:       "label: RELEVANT\nreasoning: Matches the query.",
			wantTag:       domain.TagRelevant,
			wantScore:     0.9,
			wantRationale: "Matches the query.",
		},
		{
			name:          "leading chatter before the tag",
			rawText:       "Sure, here is my assessment.\nLABEL: irrelevant\nREASONING: Off topic.",
			wantTag:       domain.TagIrrelevant,
			wantScore:     0.1,
			wantRationale: "Off topic.",
		},
		{
			name:          "multiline reasoning is kept whole",
			rawText:       "LABEL: relevant\nREASONING: First point.\nSecond point.",
			wantTag:       domain.TagRelevant,
			wantScore:     0.9,
			wantRationale: "First point.\nSecond point.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parser.Parse(tt.rawText)
			require.NoError(t, err)

			require.NotNil(t, parsed.Label)
			tag, ok := parsed.Label.Tag()
			require.True(t, ok)
			assert.Equal(t, tt.wantTag, tag)

			require.NotNil(t, parsed.Score)
			assert.InDelta(t, tt.wantScore, *parsed.Score, 1e-9)

			assert.Equal(t, tt.wantRationale, parsed.Rationale)
			assert.Empty(t, parsed.Warnings, "clean parses must carry no warnings")
		})
	}
}

func TestTaggedParserKeywordFallback(t *testing.T) {
	parser := NewTaggedParser()

	tests := []struct {
		name        string
		rawText     string
		wantTag     domain.TaggedLabel
		wantWarning string
	}{
		{
			name:        "bare relevant keyword",
			rawText:     "I think this document is relevant to the query.",
			wantTag:     domain.TagRelevant,
			wantWarning: "Fallback: extracted 'relevant' from unstructured text",
		},
		{
			name:        "irrelevant wins over its substring",
			rawText:     "This looks irrelevant to me.",
			wantTag:     domain.TagIrrelevant,
			wantWarning: "Fallback: extracted 'irrelevant' from unstructured text",
		},
		{
			name:        "partial match",
			rawText:     "The document is partially relevant here.",
			wantTag:     domain.TagPartially,
			wantWarning: "Fallback: extracted 'partially' from unstructured text",
		},
		{
			name:        "uppercase keywords fold",
			rawText:     "IRRELEVANT.",
			wantTag:     domain.TagIrrelevant,
			wantWarning: "Fallback: extracted 'irrelevant' from unstructured text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parser.Parse(tt.rawText)
			require.NoError(t, err)

			require.NotNil(t, parsed.Label)
			tag, ok := parsed.Label.Tag()
			require.True(t, ok)
			assert.Equal(t, tt.wantTag, tag)

			assert.Contains(t, parsed.Warnings, tt.wantWarning)
		})
	}
}

func TestTaggedParserRationaleFallbacks(t *testing.T) {
	parser := NewTaggedParser()

	t.Run("text after label becomes rationale with warning", func(t *testing.T) {
		parsed, err := parser.Parse("LABEL: relevant\nThe page covers exactly this question.")
		require.NoError(t, err)

		assert.Equal(t, "The page covers exactly this question.", parsed.Rationale)
		assert.Contains(t, parsed.Warnings, "Fallback: used text after label as rationale")
	})

	t.Run("bare label yields empty rationale without warning", func(t *testing.T) {
		parsed, err := parser.Parse("LABEL: relevant")
		require.NoError(t, err)

		assert.Empty(t, parsed.Rationale)
		assert.Empty(t, parsed.Warnings)
	})

	t.Run("keyword fallback without reasoning warns about missing rationale", func(t *testing.T) {
		parsed, err := parser.Parse("Definitely irrelevant.")
		require.NoError(t, err)

		assert.Empty(t, parsed.Rationale)
		assert.Contains(t, parsed.Warnings, "No rationale found in output")
	})
}

func TestTaggedParserNoLabelError(t *testing.T) {
	parser := NewTaggedParser()

	tests := []struct {
		name    string
		rawText string
	}{
		{name: "no signal at all", rawText: "I cannot assess this document."},
		{name: "empty input", rawText: ""},
		{name: "whitespace only", rawText: "   \n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.rawText)
			require.Error(t, err)

			var noLabel *domain.NoLabelError
			require.ErrorAs(t, err, &noLabel)
			assert.Contains(t, err.Error(), "could not extract valid label from output")
		})
	}

	t.Run("snippet is bounded to 100 runes", func(t *testing.T) {
		_, err := parser.Parse(strings.Repeat("x", 500))
		require.Error(t, err)

		var noLabel *domain.NoLabelError
		require.ErrorAs(t, err, &noLabel)
		assert.Len(t, []rune(noLabel.Snippet), 100)
	})
}

func TestHeuristicScore(t *testing.T) {
	assert.InDelta(t, 0.9, HeuristicScore(domain.TagRelevant), 1e-9)
	assert.InDelta(t, 0.5, HeuristicScore(domain.TagPartially), 1e-9)
	assert.InDelta(t, 0.1, HeuristicScore(domain.TagIrrelevant), 1e-9)
}
