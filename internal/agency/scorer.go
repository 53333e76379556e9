package agency

import (
	"sort"

	"github.com/debtflow/platform/internal/shared/config"
)

// CaseProfile carries the case attributes that influence scoring.
type CaseProfile struct {
	Industry   string
	Segment    string
	RegionCode string
}

// Candidate is a scored, eligible agency.
type Candidate struct {
	Agency Agency  `json:"agency"`
	Score  float64 `json:"score"`
}

// Scorer ranks eligible agencies for a case on a 0-100 scale using
// injected weights. Pure; safe to call concurrently.
type Scorer struct {
	weights config.ScoringConfig
}

// NewScorer creates a scorer with the given weights
func NewScorer(weights config.ScoringConfig) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the weighted score of one agency for a case profile:
// capacity headroom, historical performance, and specialization match.
func (s *Scorer) Score(profile CaseProfile, a Agency) float64 {
	score := 0.0

	if a.CapacityLimit > 0 {
		headroom := float64(a.CapacityLimit-a.CapacityUsed) / float64(a.CapacityLimit)
		score += headroom * s.weights.CapacityWeight
	}

	score += a.PerformanceScore * s.weights.PerformanceWeight

	if a.HasIndustry(profile.Industry) {
		score += s.weights.IndustryMatchBonus
	}
	if a.HasSegment(profile.Segment) {
		score += s.weights.SegmentMatchBonus
	}

	return score
}

// Rank filters ineligible agencies and returns the survivors ordered by
// descending score. Ties are broken by agency ID ordering so the result
// is deterministic and stable under retry.
func (s *Scorer) Rank(profile CaseProfile, agencies []Agency) []Candidate {
	candidates := make([]Candidate, 0, len(agencies))

	for _, a := range agencies {
		if !a.Eligible() {
			continue
		}
		if len(a.RegionCodes) > 0 && profile.RegionCode != "" && !containsFold(a.RegionCodes, profile.RegionCode) {
			continue
		}
		candidates = append(candidates, Candidate{Agency: a, Score: s.Score(profile, a)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Agency.ID < candidates[j].Agency.ID
	})

	return candidates
}
