package routing

import (
	"github.com/vietddude/taskrelay/internal/core/domain"
	"github.com/vietddude/taskrelay/internal/infra/provider"
)

// recencyBonus is added to providers that have succeeded at least once.
const recencyBonus = 0.1

// ScoredSelector picks providers by success rate plus a recency bonus.
type ScoredSelector struct {
	registry *provider.Registry
}

// NewScoredSelector creates a selector over the registry.
func NewScoredSelector(registry *provider.Registry) *ScoredSelector {
	return &ScoredSelector{registry: registry}
}

// Score computes the selection score for a set of stats.
func Score(s domain.ProviderStats) float64 {
	score := s.SuccessRate()
	if s.HasSucceeded() {
		score += recencyBonus
	}
	return score
}

// Best returns the highest-scoring registered provider. Ties go to the
// provider that comes first in the configured order.
func (s *ScoredSelector) Best() (string, bool) {
	best := ""
	bestScore := -1.0
	for _, raw := range s.registry.Order() {
		name := s.registry.Normalize(raw)
		stats, ok := s.registry.Stats(name)
		if !ok {
			continue
		}
		if score := Score(stats); score > bestScore {
			best, bestScore = name, score
		}
	}
	return best, best != ""
}

// promote returns order with first moved to the front.
func promote(order []string, first string, normalize func(string) string) []string {
	out := make([]string, 0, len(order)+1)
	out = append(out, first)
	for _, raw := range order {
		if normalize(raw) != first {
			out = append(out, raw)
		}
	}
	return out
}
