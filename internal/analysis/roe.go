package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/debtflow/platform/internal/agency"
	"github.com/debtflow/platform/internal/shared/types"
)

// Amounts below this rarely justify intensive agency effort
const minTargetAmount = 1000

// ROEInput are the case attributes return-on-effort advice is derived
// from. PriorityScore defaults to 50 when absent.
type ROEInput struct {
	CaseID            string  `json:"case_id,omitempty"`
	OutstandingAmount float64 `json:"outstanding_amount"`
	DaysPastDue       int     `json:"days_past_due"`
	Segment           string  `json:"segment"`
	Industry          string  `json:"industry,omitempty"`
	PriorityScore     int     `json:"priority_score"`
}

// AgencyMatch scores one agency's fit for a case
type AgencyMatch struct {
	AgencyID             types.ID `json:"agency_id"`
	AgencyName           string   `json:"agency_name"`
	MatchScore           float64  `json:"match_score"`
	MatchReasons         []string `json:"match_reasons"`
	ExpectedRecoveryRate float64  `json:"expected_recovery_rate"`
}

// ActionItem is one recommended collection action
type ActionItem struct {
	Action         string `json:"action"`
	Priority       string `json:"priority"`
	Timeline       string `json:"timeline"`
	ExpectedImpact string `json:"expected_impact"`
}

// ROEResult is the return-on-effort advice for a case
type ROEResult struct {
	CaseID              string        `json:"case_id,omitempty"`
	ROEScore            float64       `json:"roe_score"`
	RecommendedAgencies []AgencyMatch `json:"recommended_agencies"`
	RecommendedActions  []ActionItem  `json:"recommended_actions"`
	EscalationTimeline  string        `json:"escalation_timeline"`
	OptimalStrategy     string        `json:"optimal_strategy"`
}

// RecommendROE ranks the given agencies by fit for the case and bundles
// them with recommended actions and an escalation timeline. At most the
// top three matches are returned.
func RecommendROE(in ROEInput, agencies []agency.Agency) ROEResult {
	priority := in.PriorityScore
	if priority == 0 {
		priority = 50
	}

	matches := make([]AgencyMatch, 0, len(agencies))
	for _, a := range agencies {
		score, reasons := matchAgency(in, priority, a)
		matches = append(matches, AgencyMatch{
			AgencyID:             a.ID,
			AgencyName:           a.Name,
			MatchScore:           score,
			MatchReasons:         reasons,
			ExpectedRecoveryRate: round1(a.RecoveryRate * 100),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].MatchScore != matches[j].MatchScore {
			return matches[i].MatchScore > matches[j].MatchScore
		}
		return matches[i].AgencyID < matches[j].AgencyID
	})
	if len(matches) > 3 {
		matches = matches[:3]
	}

	roeScore := 50.0
	if len(matches) > 0 && matches[0].MatchScore >= 70 {
		roeScore += 20
	}
	if in.DaysPastDue <= 60 {
		roeScore += 15
	}
	if in.OutstandingAmount >= 5000 {
		roeScore += 15
	}
	if roeScore > 100 {
		roeScore = 100
	}

	return ROEResult{
		CaseID:              in.CaseID,
		ROEScore:            roeScore,
		RecommendedAgencies: matches,
		RecommendedActions:  recommendedActions(in.OutstandingAmount, in.DaysPastDue, priority),
		EscalationTimeline:  escalationTimeline(in.DaysPastDue, priority),
		OptimalStrategy:     optimalStrategy(priority, in.OutstandingAmount, in.Segment),
	}
}

// matchAgency scores an agency's fit from 0 to 100 starting at a
// neutral 50, with a reason recorded for every adjustment that fired.
func matchAgency(in ROEInput, priority int, a agency.Agency) (float64, []string) {
	score := 50.0
	var reasons []string

	if a.HasSegment(in.Segment) {
		score += 25
		reasons = append(reasons, fmt.Sprintf("Specializes in %s segment", in.Segment))
	}

	if in.OutstandingAmount >= minTargetAmount {
		score += 10
		reasons = append(reasons, "Amount within agency's target range")
	} else {
		score -= 10
		reasons = append(reasons, "Amount below agency's preferred minimum")
	}

	available := a.CapacityLimit - a.CapacityUsed
	switch {
	case available > 20:
		score += 10
		reasons = append(reasons, fmt.Sprintf("Has available capacity (%d slots)", available))
	case available > 0:
		score += 5
		reasons = append(reasons, "Limited capacity available")
	default:
		score -= 15
		reasons = append(reasons, "No capacity available")
	}

	if priority >= 70 && a.RecoveryRate >= 0.75 {
		score += 15
		reasons = append(reasons, "High performer for high-priority cases")
	}

	switch {
	case a.PerformanceScore >= 80:
		score += 10
		reasons = append(reasons, fmt.Sprintf("Top performer (score: %.0f)", a.PerformanceScore))
	case a.PerformanceScore >= 60:
		score += 5
		reasons = append(reasons, fmt.Sprintf("Above average performer (score: %.0f)", a.PerformanceScore))
	}

	if in.DaysPastDue > 90 && a.HasIndustry("legal") {
		score += 10
		reasons = append(reasons, "Legal capability for aged cases")
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score, reasons
}

func recommendedActions(amount float64, days, priority int) []ActionItem {
	var actions []ActionItem

	if priority >= 80 {
		actions = append(actions, ActionItem{
			Action:         "Immediate phone contact with decision maker",
			Priority:       "CRITICAL",
			Timeline:       "Within 24 hours",
			ExpectedImpact: "40% higher response rate",
		})
	} else if priority >= 60 {
		actions = append(actions, ActionItem{
			Action:         "Send formal demand letter with payment options",
			Priority:       "HIGH",
			Timeline:       "Within 48 hours",
			ExpectedImpact: "25% payment initiation rate",
		})
	}

	if amount >= 50000 {
		actions = append(actions, ActionItem{
			Action:         "Propose structured settlement plan",
			Priority:       "HIGH",
			Timeline:       "Within first week",
			ExpectedImpact: "Higher recovery on large amounts",
		})
	}

	if days >= 60 {
		actions = append(actions, ActionItem{
			Action:         "Escalate with final notice before legal action",
			Priority:       "MEDIUM",
			Timeline:       "Week 2",
			ExpectedImpact: "Creates urgency for payment",
		})
	}
	if days >= 90 {
		actions = append(actions, ActionItem{
			Action:         "Review for legal proceedings or agency transfer",
			Priority:       "HIGH",
			Timeline:       "Week 3",
			ExpectedImpact: "May require legal intervention",
		})
	}

	actions = append(actions, ActionItem{
		Action:         "Implement automated reminder sequence",
		Priority:       "STANDARD",
		Timeline:       "Ongoing",
		ExpectedImpact: "Maintains collection pressure",
	})
	return actions
}

func optimalStrategy(priority int, amount float64, segment string) string {
	switch {
	case priority >= 80 && amount >= 10000:
		return "Executive Escalation: High-touch personal attention with senior decision-maker engagement"
	case priority >= 60:
		return "Intensive Collection: Frequent contact with payment plan negotiation focus"
	case upperIn(segment, "ENTERPRISE", "LARGE"):
		return "Relationship Preservation: Maintain business relationship while pursuing payment"
	default:
		return "Standard Collection: Systematic follow-up with automated reminders"
	}
}

func upperIn(s string, options ...string) bool {
	u := strings.ToUpper(s)
	for _, o := range options {
		if u == o {
			return true
		}
	}
	return false
}

func escalationTimeline(days, priority int) string {
	switch {
	case priority >= 80:
		return "Immediate escalation required - already critical"
	case days >= 90:
		return "Escalate now - case is aging beyond optimal recovery window"
	case days >= 60:
		return "Escalate in 15 days if no payment progress"
	case days >= 30:
		return "Escalate in 30 days if no payment progress"
	default:
		return "Standard 45-day escalation timeline"
	}
}
