package analysis

import (
	"fmt"
	"math"
	"strings"
)

// Recovery base rates by case age bracket
var recoveryBaseRates = map[string]float64{
	"0-30":   0.85,
	"31-60":  0.70,
	"61-90":  0.55,
	"91-180": 0.35,
	"180+":   0.15,
}

var segmentModifiers = map[string]float64{
	"ENTERPRISE": 1.2,
	"LARGE":      1.1,
	"MEDIUM":     1.0,
	"SMALL":      0.9,
	"MICRO":      0.8,
}

// RecoveryInput are the case attributes the prediction is derived
// from. AgencyRecoveryRate defaults to 0.65 when absent.
type RecoveryInput struct {
	CaseID             string  `json:"case_id,omitempty"`
	OutstandingAmount  float64 `json:"outstanding_amount"`
	DaysPastDue        int     `json:"days_past_due"`
	Segment            string  `json:"segment"`
	AgencyRecoveryRate float64 `json:"agency_recovery_rate"`
	PreviousPayments   int     `json:"previous_payments"`
}

// RecoveryPrediction is the predicted recovery outcome for a case
type RecoveryPrediction struct {
	CaseID              string   `json:"case_id,omitempty"`
	RecoveryProbability float64  `json:"recovery_probability"`
	ExpectedAmount      float64  `json:"expected_recovery_amount"`
	ExpectedDays        int      `json:"expected_timeline_days"`
	ConfidenceLevel     string   `json:"confidence_level"`
	RiskFactors         []string `json:"risk_factors"`
	PositiveFactors     []string `json:"positive_factors"`
	RecommendedStrategy string   `json:"recommended_strategy"`
}

// PredictRecovery estimates the recovery probability, amount and
// timeline for a case from its age, segment, assigned agency track
// record and payment history.
func PredictRecovery(in RecoveryInput) RecoveryPrediction {
	agencyRate := in.AgencyRecoveryRate
	if agencyRate == 0 {
		agencyRate = 0.65
	}

	probability := recoveryProbability(in.DaysPastDue, in.Segment, agencyRate, in.PreviousPayments)
	risks, positives := recoveryFactors(in.DaysPastDue, in.Segment, agencyRate, in.PreviousPayments)

	return RecoveryPrediction{
		CaseID:              in.CaseID,
		RecoveryProbability: round1(probability * 100),
		ExpectedAmount:      math.Round(in.OutstandingAmount*probability*100) / 100,
		ExpectedDays:        recoveryTimeline(in.DaysPastDue, probability),
		ConfidenceLevel:     confidenceLevel(probability, in.DaysPastDue),
		RiskFactors:         risks,
		PositiveFactors:     positives,
		RecommendedStrategy: recoveryStrategy(probability, in.Segment),
	}
}

func ageBracket(days int) string {
	switch {
	case days <= 30:
		return "0-30"
	case days <= 60:
		return "31-60"
	case days <= 90:
		return "61-90"
	case days <= 180:
		return "91-180"
	default:
		return "180+"
	}
}

// recoveryProbability multiplies the age-bracket base rate by segment,
// agency performance and payment history modifiers, clamped to
// [0.05, 0.95].
func recoveryProbability(days int, segment string, agencyRate float64, payments int) float64 {
	base := recoveryBaseRates[ageBracket(days)]

	segmentMod := 1.0
	if m, ok := segmentModifiers[strings.ToUpper(segment)]; ok {
		segmentMod = m
	}

	// Agency modifier spans 0.7 to 1.3 across the 0-1 recovery rate.
	agencyMod := 0.7 + agencyRate*0.6

	historyMod := 1.0
	switch {
	case payments >= 3:
		historyMod = 1.2
	case payments >= 1:
		historyMod = 1.1
	}

	probability := base * segmentMod * agencyMod * historyMod
	return math.Min(0.95, math.Max(0.05, probability))
}

func recoveryTimeline(days int, probability float64) int {
	switch {
	case probability >= 0.8:
		return 15 + days/10
	case probability >= 0.6:
		return 30 + days/5
	case probability >= 0.4:
		return 60 + days/3
	default:
		return 90 + days
	}
}

func confidenceLevel(probability float64, days int) string {
	switch {
	case days <= 60 && probability >= 0.6:
		return "HIGH"
	case days <= 120 || probability >= 0.4:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func recoveryFactors(days int, segment string, agencyRate float64, payments int) (risks, positives []string) {
	switch {
	case days > 180:
		risks = append(risks, "Case is significantly aged (180+ days)")
	case days > 90:
		risks = append(risks, "Case is aging (90+ days)")
	case days <= 30:
		positives = append(positives, "Recent case with high recovery potential")
	}

	switch strings.ToUpper(segment) {
	case "ENTERPRISE", "LARGE":
		positives = append(positives, fmt.Sprintf("%s customer - higher recovery likelihood", segment))
	case "MICRO", "SMALL":
		risks = append(risks, fmt.Sprintf("%s customer - may have limited payment capacity", segment))
	}

	switch {
	case agencyRate >= 0.7:
		positives = append(positives, "Assigned to high-performing DCA")
	case agencyRate < 0.5:
		risks = append(risks, "DCA has below-average recovery rate")
	}

	switch {
	case payments >= 2:
		positives = append(positives, "Customer has made recent payments")
	case payments == 0:
		risks = append(risks, "No payment history on this case")
	}

	return risks, positives
}

func recoveryStrategy(probability float64, segment string) string {
	switch {
	case probability >= 0.7:
		return "Standard collection with payment plan offering"
	case probability >= 0.5:
		s := strings.ToUpper(segment)
		if s == "ENTERPRISE" || s == "LARGE" {
			return "Relationship-based approach with executive escalation option"
		}
		return "Intensified collection with settlement negotiation"
	case probability >= 0.3:
		return "Aggressive collection strategy with legal notice consideration"
	default:
		return "Evaluate for write-off or sale to specialized agency"
	}
}
