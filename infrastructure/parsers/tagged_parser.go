package parsers

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/modelrank/judgekit/internal/domain"
	"github.com/modelrank/judgekit/internal/ports"
)

var (
	_ ports.ResponseParser = (*TaggedParser)(nil)

	// labelPattern matches the structured label tag. Alternation order
	// matters: at the position of "irrelevant" the first two branches fail
	// on the leading 'i', so both words resolve correctly.
	labelPattern = regexp.MustCompile(`(?i)LABEL:\s*(relevant|partially|irrelevant)`)

	// reasoningPattern captures everything after the REASONING: tag,
	// across newlines.
	reasoningPattern = regexp.MustCompile(`(?is)REASONING:\s*(.+)`)

	// foldCaser is a package-level Unicode case folder, shared because
	// cases.Fold is stateless and caser construction is not free.
	foldCaser = cases.Fold()
)

// heuristicScores is the fixed score mapping for the tagged protocol.
// These are not model-reported values; they encode the protocol's prior.
var heuristicScores = map[domain.TaggedLabel]float64{
	domain.TagRelevant:   0.9,
	domain.TagPartially:  0.5,
	domain.TagIrrelevant: 0.1,
}

// HeuristicScore returns the fixed score for a tagged label.
func HeuristicScore(tag domain.TaggedLabel) float64 { return heuristicScores[tag] }

// TaggedParser extracts a three-way relevance label from responses in the
// tagged protocol:
//
//	LABEL: <relevant|partially|irrelevant>
//	REASONING: <explanation>
//
// When the structured tag is absent the parser falls back to keyword
// scanning over the case-folded text, recording each fallback as a warning.
// If no signal is present at all, Parse returns *domain.NoLabelError;
// callers fold that into a label-less judgement.
type TaggedParser struct{}

// NewTaggedParser creates the tagged-protocol parser. It takes no
// configuration; the tag grammar is fixed by the prompt template.
func NewTaggedParser() *TaggedParser { return &TaggedParser{} }

// Name returns the registry name of this strategy.
func (p *TaggedParser) Name() string { return StrategyTagged }

// Parse extracts (label, score, rationale, warnings) from rawText.
func (p *TaggedParser) Parse(rawText string) (domain.ParsedJudgement, error) {
	warnings := []string{}
	rawText = strings.TrimSpace(rawText)

	var tag domain.TaggedLabel
	loc := labelPattern.FindStringSubmatchIndex(rawText)
	if loc != nil {
		tag = domain.TaggedLabel(strings.ToLower(rawText[loc[2]:loc[3]]))
	} else {
		var err error
		tag, warnings, err = fallbackLabel(rawText, warnings)
		if err != nil {
			return domain.ParsedJudgement{}, err
		}
	}

	rationale, warnings := extractRationale(rawText, loc, warnings)

	score := heuristicScores[tag]
	label, err := domain.NewTagLabel(tag)
	if err != nil {
		// Unreachable: both extraction paths produce members of the set.
		return domain.ParsedJudgement{}, err
	}

	return domain.ParsedJudgement{
		Label:     &label,
		Score:     &score,
		Rationale: rationale,
		Warnings:  warnings,
	}, nil
}

// fallbackLabel scans the case-folded text for standalone relevance
// keywords when the structured tag is missing. "relevant" is a substring of
// "irrelevant", so the positive branch is guarded by the absence of the
// negative keyword.
func fallbackLabel(rawText string, warnings []string) (domain.TaggedLabel, []string, error) {
	folded := foldCaser.String(rawText)

	switch {
	case strings.Contains(folded, "relevant") && !strings.Contains(folded, "irrelevant"):
		if strings.Contains(folded, "partial") {
			return domain.TagPartially,
				append(warnings, "Fallback: extracted 'partially' from unstructured text"), nil
		}
		return domain.TagRelevant,
			append(warnings, "Fallback: extracted 'relevant' from unstructured text"), nil
	case strings.Contains(folded, "irrelevant"):
		return domain.TagIrrelevant,
			append(warnings, "Fallback: extracted 'irrelevant' from unstructured text"), nil
	default:
		return "", warnings, &domain.NoLabelError{Snippet: truncate(rawText, 100)}
	}
}

// extractRationale captures the REASONING: tag, falling back to the text
// after the matched label when the tag is absent. labelLoc is the submatch
// index slice from the primary label pattern, or nil if the label came from
// the keyword fallback.
func extractRationale(rawText string, labelLoc []int, warnings []string) (string, []string) {
	if m := reasoningPattern.FindStringSubmatch(rawText); m != nil {
		return strings.TrimSpace(m[1]), warnings
	}

	if labelLoc != nil {
		rationale := strings.TrimSpace(rawText[labelLoc[1]:])
		if rationale != "" {
			warnings = append(warnings, "Fallback: used text after label as rationale")
		}
		return rationale, warnings
	}

	return "", append(warnings, "No rationale found in output")
}

// truncate returns at most n runes of s without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
