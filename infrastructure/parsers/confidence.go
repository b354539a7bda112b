package parsers

import (
	"github.com/modelrank/judgekit/internal/domain"
)

// ConfidencePolicy derives a confidence value in [0,1] from a parsed
// judgement. Policies are swappable so that callers with better signals
// (logprobs, calibration curves) can replace the shipped heuristic.
type ConfidencePolicy interface {
	// Confidence returns the derived confidence, or nil when the policy
	// defines none for the judgement's labelling scheme.
	Confidence(parsed domain.ParsedJudgement) *float64
}

var _ ConfidencePolicy = (*HeuristicConfidence)(nil)

// HeuristicConfidence is the default policy for the tagged scheme:
// confidence equals the protocol's heuristic score, with "partially" scaled
// by 0.8 to reflect the inherently lower certainty of partial matches.
//
// The graded 0/1/2 scheme has no model-independent confidence function, so
// this policy returns nil for graded labels rather than fabricating one;
// providers that report confidence directly should use their own policy.
type HeuristicConfidence struct{}

// Confidence implements ConfidencePolicy.
func (HeuristicConfidence) Confidence(parsed domain.ParsedJudgement) *float64 {
	if parsed.Label == nil {
		return nil
	}
	tag, ok := parsed.Label.Tag()
	if !ok {
		return nil
	}

	score := heuristicScores[tag]
	if parsed.Score != nil {
		score = *parsed.Score
	}
	if tag == domain.TagPartially {
		score *= 0.8
	}
	return &score
}
