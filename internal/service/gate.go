package service

import "github.com/sfohq/sop-assistant/internal/domain"

// ConfidenceGate decides whether retrieval is strong enough to answer from.
// The policy is fail-closed: anything below the threshold routes to
// escalation instead of attempting an answer.
type ConfidenceGate struct {
	minConfidence float32
}

// NewConfidenceGate creates a gate with the given threshold in [0,1].
func NewConfidenceGate(minConfidence float32) *ConfidenceGate {
	return &ConfidenceGate{minConfidence: minConfidence}
}

// Decide derives confidence from the top match score, clamped to [0,1]
// (negative similarity floors to 0, numerical artifacts above 1 ceiling to
// 1). Citations are populated from all matches regardless of the decision so
// either outcome can be audited.
func (g *ConfidenceGate) Decide(result domain.RetrievalResult) domain.GateDecision {
	citations := make([]domain.Citation, 0, len(result.Matches))
	for _, m := range result.Matches {
		citations = append(citations, domain.Citation{
			SourceName:    m.SourceName,
			SequenceIndex: m.SequenceIndex,
			Score:         m.Score,
		})
	}

	var confidence float32
	if len(result.Matches) > 0 {
		confidence = clamp01(result.Matches[0].Score)
	}

	return domain.GateDecision{
		Confidence: confidence,
		Escalate:   len(result.Matches) == 0 || confidence < g.minConfidence,
		Citations:  citations,
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
