package analysis

import (
	"fmt"
	"sort"

	"github.com/debtflow/platform/internal/agency"
)

// Industry averages used as the comparison baseline, in percent
var industryAverage = map[string]float64{
	"recovery_rate":        65.0,
	"sla_compliance":       88.0,
	"capacity_utilization": 70.0,
}

// Recommendation is one improvement suggestion for an agency
type Recommendation struct {
	Area           string `json:"area"`
	CurrentState   string `json:"current_state"`
	Recommendation string `json:"recommendation"`
	ExpectedImpact string `json:"expected_impact"`
	Priority       string `json:"priority"`
}

// PerformanceReport is the scored review of one agency
type PerformanceReport struct {
	AgencyID         string            `json:"agency_id"`
	AgencyName       string            `json:"agency_name"`
	OverallScore     int               `json:"overall_score"`
	PerformanceGrade string            `json:"performance_grade"`
	Recommendations  []Recommendation  `json:"recommendations"`
	Comparison       map[string]string `json:"comparison_to_average"`
	Strengths        []string          `json:"strengths"`
	Weaknesses       []string          `json:"weaknesses"`
}

// RankedAgency is one entry in a side-by-side comparison
type RankedAgency struct {
	AgencyID string `json:"agency_id"`
	Score    int    `json:"score"`
	Grade    string `json:"grade"`
}

// AnalyzePerformance builds the performance review of an agency from
// its recovery rate, SLA compliance and capacity utilization.
func AnalyzePerformance(a agency.Agency) PerformanceReport {
	utilization := a.Utilization()

	score := int(a.PerformanceScore)
	if score == 0 {
		// Not stored; derive from the component metrics.
		derived := a.RecoveryRate*35 + a.SLACompliance*35 + minf(utilization, 1)*30
		score = int(derived)
	}

	strengths, weaknesses := strengthsAndWeaknesses(a.RecoveryRate, a.SLACompliance, utilization)

	return PerformanceReport{
		AgencyID:         a.ID.String(),
		AgencyName:       a.Name,
		OverallScore:     score,
		PerformanceGrade: Grade(score),
		Recommendations:  recommendations(a.RecoveryRate, a.SLACompliance, utilization),
		Comparison: map[string]string{
			"recovery_rate":        vsAverage(a.RecoveryRate*100, industryAverage["recovery_rate"]),
			"sla_compliance":       vsAverage(a.SLACompliance*100, industryAverage["sla_compliance"]),
			"capacity_utilization": vsAverage(utilization*100, industryAverage["capacity_utilization"]),
		},
		Strengths:  strengths,
		Weaknesses: weaknesses,
	}
}

// Compare analyzes several agencies and ranks them by overall score
func Compare(agencies []agency.Agency) ([]PerformanceReport, []RankedAgency) {
	reports := make([]PerformanceReport, 0, len(agencies))
	for _, a := range agencies {
		reports = append(reports, AnalyzePerformance(a))
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].OverallScore > reports[j].OverallScore
	})

	ranking := make([]RankedAgency, 0, len(reports))
	for _, r := range reports {
		ranking = append(ranking, RankedAgency{AgencyID: r.AgencyID, Score: r.OverallScore, Grade: r.PerformanceGrade})
	}
	return reports, ranking
}

// Grade converts a 0-100 score to a letter grade
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 85:
		return "A"
	case score >= 80:
		return "A-"
	case score >= 75:
		return "B+"
	case score >= 70:
		return "B"
	case score >= 65:
		return "B-"
	case score >= 60:
		return "C+"
	case score >= 55:
		return "C"
	default:
		return "D"
	}
}

func recommendations(recoveryRate, slaCompliance, utilization float64) []Recommendation {
	var out []Recommendation

	if recoveryRate < 0.7 {
		out = append(out, Recommendation{
			Area:           "Recovery Rate",
			CurrentState:   fmt.Sprintf("%.1f%% recovery rate", recoveryRate*100),
			Recommendation: "Implement tiered escalation process with defined triggers",
			ExpectedImpact: "+10-15% recovery rate improvement",
			Priority:       "HIGH",
		})
	}
	if slaCompliance < 0.9 {
		out = append(out, Recommendation{
			Area:           "SLA Compliance",
			CurrentState:   fmt.Sprintf("%.1f%% SLA compliance", slaCompliance*100),
			Recommendation: "Add automated SLA tracking with early warning alerts",
			ExpectedImpact: "Reduce SLA breaches by 50%",
			Priority:       "HIGH",
		})
	}
	if utilization < 0.5 {
		out = append(out, Recommendation{
			Area:           "Capacity Utilization",
			CurrentState:   fmt.Sprintf("%.0f%% capacity utilized", utilization*100),
			Recommendation: "Consider accepting more cases or reallocating resources",
			ExpectedImpact: "Better ROI on DCA relationship",
			Priority:       "MEDIUM",
		})
	} else if utilization > 0.9 {
		out = append(out, Recommendation{
			Area:           "Capacity Overload",
			CurrentState:   fmt.Sprintf("%.0f%% capacity utilized", utilization*100),
			Recommendation: "Consider redistributing cases to prevent quality issues",
			ExpectedImpact: "Maintain recovery quality",
			Priority:       "HIGH",
		})
	}

	out = append(out, Recommendation{
		Area:           "Process Optimization",
		CurrentState:   "Regular review recommended",
		Recommendation: "Conduct monthly performance reviews with DCA leadership",
		ExpectedImpact: "Continuous improvement in all metrics",
		Priority:       "STANDARD",
	})

	return out
}

func strengthsAndWeaknesses(recoveryRate, slaCompliance, utilization float64) ([]string, []string) {
	var strengths, weaknesses []string

	if recoveryRate >= 0.75 {
		strengths = append(strengths, fmt.Sprintf("Strong recovery rate: %.1f%%", recoveryRate*100))
	} else if recoveryRate < 0.6 {
		weaknesses = append(weaknesses, fmt.Sprintf("Recovery rate below target: %.1f%%", recoveryRate*100))
	}

	if slaCompliance >= 0.95 {
		strengths = append(strengths, fmt.Sprintf("Excellent SLA compliance: %.1f%%", slaCompliance*100))
	} else if slaCompliance < 0.85 {
		weaknesses = append(weaknesses, fmt.Sprintf("SLA compliance needs improvement: %.1f%%", slaCompliance*100))
	}

	if utilization >= 0.6 && utilization <= 0.85 {
		strengths = append(strengths, "Optimal capacity utilization")
	} else if utilization > 0.9 {
		weaknesses = append(weaknesses, "Near capacity limit - risk of quality issues")
	} else if utilization < 0.4 {
		weaknesses = append(weaknesses, "Underutilized capacity")
	}

	if len(strengths) == 0 {
		strengths = []string{"No significant strengths identified"}
	}
	if len(weaknesses) == 0 {
		weaknesses = []string{"No significant weaknesses identified"}
	}
	return strengths, weaknesses
}

func vsAverage(value, average float64) string {
	return fmt.Sprintf("%+.1f%% vs industry avg", value-average)
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
