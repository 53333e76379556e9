package analysis

import (
	"math"
	"testing"

	"github.com/debtflow/platform/internal/agency"
	"github.com/debtflow/platform/internal/shared/types"
)

func TestAmountScore(t *testing.T) {
	tests := []struct {
		amount float64
		want   float64
	}{
		{0, 0},
		{-100, 0},
		{1000, 50},
		{10000, 75},
		{100000, 100},
		{10000000, 100}, // saturates
	}
	for _, tt := range tests {
		got := amountScore(tt.amount)
		if math.Abs(got-tt.want) > 0.01 {
			t.Errorf("amountScore(%f) = %f, want %f", tt.amount, got, tt.want)
		}
	}
}

func TestDaysScore(t *testing.T) {
	tests := []struct {
		days int
		want float64
	}{
		{0, 0},
		{15, 30},
		{30, 60},
		{45, 75},
		{60, 90},
		{90, 99.9},
		{365, 100},
	}
	for _, tt := range tests {
		got := daysScore(tt.days)
		if math.Abs(got-tt.want) > 0.01 {
			t.Errorf("daysScore(%d) = %f, want %f", tt.days, got, tt.want)
		}
	}
}

func TestScorePriority(t *testing.T) {
	result := ScorePriority(PriorityInput{
		CaseID:              "test-case",
		OutstandingAmount:   100000,
		DaysPastDue:         120,
		Segment:             "enterprise",
		PaymentHistoryScore: 10,
	})

	// 100*.35 + 100*.30 + 100*.20 + 90*.15 = 98.5
	if result.PriorityScore != 98 {
		t.Errorf("Expected priority score 98, got %d", result.PriorityScore)
	}
	if result.RiskLevel != "CRITICAL" {
		t.Errorf("Expected CRITICAL risk, got %s", result.RiskLevel)
	}
	if len(result.Factors) != 4 {
		t.Errorf("Expected 4 factors, got %d", len(result.Factors))
	}
}

func TestScorePriorityDefaultsHistory(t *testing.T) {
	result := ScorePriority(PriorityInput{
		OutstandingAmount: 1000,
		DaysPastDue:       10,
		Segment:           "unknown-segment",
	})

	// 50*.35 + 20*.30 + 50*.20 + 50*.15 = 41
	if result.PriorityScore != 41 {
		t.Errorf("Expected priority score 41, got %d", result.PriorityScore)
	}
	if result.RiskLevel != "MEDIUM" {
		t.Errorf("Expected MEDIUM risk, got %s", result.RiskLevel)
	}
}

func TestRiskLevels(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{95, "CRITICAL"},
		{80, "CRITICAL"},
		{79, "HIGH"},
		{60, "HIGH"},
		{59, "MEDIUM"},
		{40, "MEDIUM"},
		{39, "LOW"},
		{20, "LOW"},
		{19, "MINIMAL"},
		{0, "MINIMAL"},
	}
	for _, tt := range tests {
		if got := riskLevel(tt.score); got != tt.want {
			t.Errorf("riskLevel(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{95, "A+"},
		{90, "A+"},
		{87, "A"},
		{82, "A-"},
		{76, "B+"},
		{72, "B"},
		{66, "B-"},
		{61, "C+"},
		{56, "C"},
		{40, "D"},
	}
	for _, tt := range tests {
		if got := Grade(tt.score); got != tt.want {
			t.Errorf("Grade(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func testAgency(name string, recovery, compliance float64, used, limit int) agency.Agency {
	return agency.Agency{
		ID:            types.NewID(),
		Name:          name,
		Status:        agency.StatusActive,
		CapacityLimit: limit,
		CapacityUsed:  used,
		RecoveryRate:  recovery,
		SLACompliance: compliance,
	}
}

func TestAnalyzePerformanceDerivesScore(t *testing.T) {
	a := testAgency("Apex Recovery", 0.80, 0.96, 7, 10)

	report := AnalyzePerformance(a)

	// 0.80*35 + 0.96*35 + 0.70*30 = 82.6
	if report.OverallScore != 82 {
		t.Errorf("Expected overall score 82, got %d", report.OverallScore)
	}
	if report.PerformanceGrade != "A-" {
		t.Errorf("Expected grade A-, got %s", report.PerformanceGrade)
	}
	if len(report.Strengths) < 2 {
		t.Errorf("Expected recovery and compliance strengths, got %v", report.Strengths)
	}
}

func TestAnalyzePerformanceFlagsWeaknesses(t *testing.T) {
	a := testAgency("Laggard Collections", 0.45, 0.70, 1, 10)

	report := AnalyzePerformance(a)

	if len(report.Weaknesses) != 3 {
		t.Errorf("Expected 3 weaknesses, got %v", report.Weaknesses)
	}

	// Low recovery and low compliance both produce HIGH priority advice.
	high := 0
	for _, rec := range report.Recommendations {
		if rec.Priority == "HIGH" {
			high++
		}
	}
	if high != 2 {
		t.Errorf("Expected 2 HIGH priority recommendations, got %d", high)
	}
}

func TestCompareRanksDescending(t *testing.T) {
	strong := testAgency("Strong", 0.85, 0.98, 7, 10)
	weak := testAgency("Weak", 0.50, 0.70, 2, 10)

	reports, ranking := Compare([]agency.Agency{weak, strong})

	if len(reports) != 2 || len(ranking) != 2 {
		t.Fatalf("Expected 2 reports and rankings, got %d / %d", len(reports), len(ranking))
	}
	if ranking[0].AgencyID != strong.ID.String() {
		t.Error("Expected strongest agency ranked first")
	}
	if ranking[0].Score < ranking[1].Score {
		t.Error("Expected descending score order")
	}
}

func TestPredictRecoveryFreshEnterpriseCase(t *testing.T) {
	p := PredictRecovery(RecoveryInput{
		OutstandingAmount:  10000,
		DaysPastDue:        20,
		Segment:            "ENTERPRISE",
		AgencyRecoveryRate: 0.8,
		PreviousPayments:   3,
	})

	// All modifiers push upward; the probability caps at 95%.
	if p.RecoveryProbability != 95.0 {
		t.Errorf("Expected probability 95.0, got %f", p.RecoveryProbability)
	}
	if p.ExpectedAmount != 9500 {
		t.Errorf("Expected amount 9500, got %f", p.ExpectedAmount)
	}
	if p.ExpectedDays != 17 {
		t.Errorf("Expected 17 days, got %d", p.ExpectedDays)
	}
	if p.ConfidenceLevel != "HIGH" {
		t.Errorf("Expected HIGH confidence, got %s", p.ConfidenceLevel)
	}
	if len(p.RiskFactors) != 0 {
		t.Errorf("Expected no risk factors, got %v", p.RiskFactors)
	}
	if len(p.PositiveFactors) != 4 {
		t.Errorf("Expected 4 positive factors, got %v", p.PositiveFactors)
	}
	if p.RecommendedStrategy != "Standard collection with payment plan offering" {
		t.Errorf("Unexpected strategy: %s", p.RecommendedStrategy)
	}
}

func TestPredictRecoveryAgedMicroCase(t *testing.T) {
	p := PredictRecovery(RecoveryInput{
		OutstandingAmount:  8000,
		DaysPastDue:        200,
		Segment:            "MICRO",
		AgencyRecoveryRate: 0.4,
	})

	if p.RecoveryProbability != 11.3 {
		t.Errorf("Expected probability 11.3, got %f", p.RecoveryProbability)
	}
	if p.ExpectedDays != 290 {
		t.Errorf("Expected 290 days, got %d", p.ExpectedDays)
	}
	if p.ConfidenceLevel != "LOW" {
		t.Errorf("Expected LOW confidence, got %s", p.ConfidenceLevel)
	}
	if len(p.RiskFactors) != 4 {
		t.Errorf("Expected 4 risk factors, got %v", p.RiskFactors)
	}
	if p.RecommendedStrategy != "Evaluate for write-off or sale to specialized agency" {
		t.Errorf("Unexpected strategy: %s", p.RecommendedStrategy)
	}
}

func TestAgeBracket(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, "0-30"},
		{30, "0-30"},
		{31, "31-60"},
		{90, "61-90"},
		{180, "91-180"},
		{181, "180+"},
	}
	for _, tt := range tests {
		if got := ageBracket(tt.days); got != tt.want {
			t.Errorf("ageBracket(%d) = %s, want %s", tt.days, got, tt.want)
		}
	}
}

func TestRecommendROERanksAgencies(t *testing.T) {
	specialist := agency.Agency{
		ID:               types.NewID(),
		Name:             "Enterprise Specialists",
		Status:           agency.StatusActive,
		CapacityLimit:    100,
		CapacityUsed:     10,
		RecoveryRate:     0.8,
		PerformanceScore: 85,
		SegmentTags:      []string{"enterprise"},
	}
	generalist := agency.Agency{
		ID:            types.NewID(),
		Name:          "Saturated Collections",
		Status:        agency.StatusActive,
		CapacityLimit: 10,
		CapacityUsed:  10,
		RecoveryRate:  0.5,
	}

	result := RecommendROE(ROEInput{
		OutstandingAmount: 20000,
		DaysPastDue:       30,
		Segment:           "ENTERPRISE",
		PriorityScore:     80,
	}, []agency.Agency{generalist, specialist})

	if len(result.RecommendedAgencies) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(result.RecommendedAgencies))
	}
	best := result.RecommendedAgencies[0]
	if best.AgencyID != specialist.ID {
		t.Error("Expected the specialist ranked first")
	}
	if best.MatchScore != 100 {
		t.Errorf("Expected specialist match score 100, got %f", best.MatchScore)
	}
	if len(best.MatchReasons) != 5 {
		t.Errorf("Expected 5 match reasons, got %v", best.MatchReasons)
	}
	if result.RecommendedAgencies[1].MatchScore != 45 {
		t.Errorf("Expected saturated agency score 45, got %f", result.RecommendedAgencies[1].MatchScore)
	}

	if result.ROEScore != 100 {
		t.Errorf("Expected ROE score 100, got %f", result.ROEScore)
	}
	if result.EscalationTimeline != "Immediate escalation required - already critical" {
		t.Errorf("Unexpected escalation timeline: %s", result.EscalationTimeline)
	}
	if result.OptimalStrategy != "Executive Escalation: High-touch personal attention with senior decision-maker engagement" {
		t.Errorf("Unexpected strategy: %s", result.OptimalStrategy)
	}
}

func TestRecommendROEKeepsTopThree(t *testing.T) {
	var agencies []agency.Agency
	for i := 0; i < 5; i++ {
		agencies = append(agencies, agency.Agency{
			ID:               types.NewID(),
			Name:             "Agency",
			Status:           agency.StatusActive,
			CapacityLimit:    50,
			CapacityUsed:     i * 10,
			PerformanceScore: float64(60 + i*5),
		})
	}

	result := RecommendROE(ROEInput{OutstandingAmount: 3000, DaysPastDue: 10, Segment: "SME"}, agencies)
	if len(result.RecommendedAgencies) != 3 {
		t.Errorf("Expected top 3 matches, got %d", len(result.RecommendedAgencies))
	}
}

func TestMatchAgencyLegalCapabilityForAgedCases(t *testing.T) {
	legal := agency.Agency{
		ID:            types.NewID(),
		Name:          "Legal Recovery",
		Status:        agency.StatusActive,
		CapacityLimit: 50,
		CapacityUsed:  10,
		IndustryTags:  []string{"legal"},
	}

	fresh := ROEInput{OutstandingAmount: 5000, DaysPastDue: 30, Segment: "SME"}
	aged := ROEInput{OutstandingAmount: 5000, DaysPastDue: 120, Segment: "SME"}

	freshScore, _ := matchAgency(fresh, 50, legal)
	agedScore, _ := matchAgency(aged, 50, legal)

	if agedScore != freshScore+10 {
		t.Errorf("Expected legal bonus of 10 for aged case, got %f vs %f", agedScore, freshScore)
	}
}
