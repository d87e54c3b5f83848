package usecase

import "github.com/kirillkom/faq-assistant/internal/core/domain"

const defaultConfidenceThreshold = 0.5

// ConfidenceGate picks the response strategy from the final relevance score. The score is
// on the relevance scale, where the golden ticket counts as 1.0.
type ConfidenceGate struct {
	threshold float64
}

// NewConfidenceGate uses threshold as given, zero included. A negative threshold selects
// the default.
func NewConfidenceGate(threshold float64) *ConfidenceGate {
	if threshold < 0 {
		threshold = defaultConfidenceThreshold
	}
	return &ConfidenceGate{threshold: threshold}
}

func (g *ConfidenceGate) Threshold() float64 {
	return g.threshold
}

func (g *ConfidenceGate) Decide(topScore float64, intent domain.Intent) domain.Decision {
	decision := domain.Decision{TopScore: topScore}
	switch {
	case topScore >= g.threshold:
		decision.Strategy = domain.StrategyDirect
	case intent == domain.IntentProductInquiry:
		decision.Strategy = domain.StrategyFallbackProduct
	default:
		decision.Strategy = domain.StrategyFallbackGeneric
	}
	return decision
}
