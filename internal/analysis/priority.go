package analysis

import (
	"math"
	"strings"
)

// Factor weights for the priority score
const (
	weightAmount      = 0.35
	weightDaysPastDue = 0.30
	weightSegment     = 0.20
	weightHistory     = 0.15
)

var segmentScores = map[string]float64{
	"ENTERPRISE": 100,
	"LARGE":      80,
	"MEDIUM":     60,
	"SMALL":      40,
	"MICRO":      20,
}

// PriorityInput are the case attributes the score is derived from.
// PaymentHistoryScore is 0-100 with 100 meaning flawless history; it
// contributes inversely, bad payers rank higher.
type PriorityInput struct {
	CaseID              string  `json:"case_id,omitempty"`
	OutstandingAmount   float64 `json:"outstanding_amount"`
	DaysPastDue         int     `json:"days_past_due"`
	Segment             string  `json:"segment"`
	PaymentHistoryScore float64 `json:"payment_history_score"`
}

// PriorityFactor is one factor's contribution to the total
type PriorityFactor struct {
	Factor       string  `json:"factor"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// PriorityResult is the scored case
type PriorityResult struct {
	CaseID         string           `json:"case_id,omitempty"`
	PriorityScore  int              `json:"priority_score"`
	RiskLevel      string           `json:"risk_level"`
	Factors        []PriorityFactor `json:"factors"`
	Recommendation string           `json:"recommendation"`
}

// ScorePriority computes the 0-100 priority score for a case from its
// amount, age, segment and payment history.
func ScorePriority(in PriorityInput) PriorityResult {
	history := in.PaymentHistoryScore
	if history == 0 {
		history = 50
	}

	factors := []PriorityFactor{
		{Factor: "Outstanding Amount", Score: amountScore(in.OutstandingAmount), Weight: weightAmount},
		{Factor: "Days Past Due", Score: daysScore(in.DaysPastDue), Weight: weightDaysPastDue},
		{Factor: "Customer Segment", Score: segmentScore(in.Segment), Weight: weightSegment},
		{Factor: "Payment History Risk", Score: 100 - history, Weight: weightHistory},
	}

	total := 0.0
	for i := range factors {
		factors[i].Score = round1(factors[i].Score)
		factors[i].Contribution = round1(factors[i].Score * factors[i].Weight)
		total += factors[i].Contribution
	}

	score := int(total)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return PriorityResult{
		CaseID:         in.CaseID,
		PriorityScore:  score,
		RiskLevel:      riskLevel(score),
		Factors:        factors,
		Recommendation: recommendation(score),
	}
}

// amountScore grows on a log scale: 1k outstanding scores 50, 10k
// scores 75, 100k and above saturate at 100.
func amountScore(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	score := 25*math.Log10(math.Max(amount, 1)) - 25
	return math.Max(0, math.Min(100, score))
}

// daysScore ramps steeply in the first month and flattens after 90 days
func daysScore(days int) float64 {
	switch {
	case days <= 0:
		return 0
	case days <= 30:
		return float64(days) * 2
	case days <= 60:
		return 60 + float64(days-30)
	case days <= 90:
		return 90 + float64(days-60)*0.33
	default:
		return 100
	}
}

func segmentScore(segment string) float64 {
	if s, ok := segmentScores[strings.ToUpper(segment)]; ok {
		return s
	}
	return 50
}

func riskLevel(score int) string {
	switch {
	case score >= 80:
		return "CRITICAL"
	case score >= 60:
		return "HIGH"
	case score >= 40:
		return "MEDIUM"
	case score >= 20:
		return "LOW"
	default:
		return "MINIMAL"
	}
}

func recommendation(score int) string {
	switch {
	case score >= 80:
		return "Immediate escalation required. Assign to top-performing DCA with legal capability."
	case score >= 60:
		return "High priority case. Assign to experienced DCA with aggressive collection strategy."
	case score >= 40:
		return "Standard collection process. Monitor for payment plan compliance."
	case score >= 20:
		return "Low risk. Automated reminders may be sufficient."
	default:
		return "Minimal intervention needed. Continue standard follow-up."
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
