package narrative

import (
	"math"
	"strings"
	"testing"

	"loanverify/domain/scoring"
	"loanverify/domain/verdict"

	"github.com/stretchr/testify/assert"
)

func TestFormatting(t *testing.T) {
	assert.Equal(t, "$350,000.00", Money(350000))
	assert.Equal(t, "$0.00", Money(0))
	assert.Equal(t, "17.50%", Percent(0.175))
	assert.Equal(t, "80%", WholePercent(0.8))
	assert.Equal(t, "0.5", Years(0.5))
	assert.Equal(t, "8", Years(8))
	assert.Equal(t, "\n  1. a\n  2. b", Numbered([]string{"a", "b"}))
	assert.Equal(t, "", Numbered(nil))
}

func TestCreditAnalysis(t *testing.T) {
	text := CreditAnalysis(verdict.CreditVerdict{
		CreditScore: 798.17, RiskCategory: scoring.RiskLow, DebtToIncome: 0.2,
		ScoreTier: scoring.ScoreExcellent, RepaymentTier: scoring.RepaymentStrong,
		LoanTier: scoring.LoansManageable, DTITier: scoring.DTIHealthy,
		RepaymentScore: 0.95, ExistingLoans: 1,
	})
	assert.Equal(t, "Applicant shows Excellent credit score of 798, strong repayment history (95.00%), "+
		"1 existing loans (manageable), healthy DTI ratio of 20.00%. Risk level: Low.", text)

	none := CreditAnalysis(verdict.CreditVerdict{LoanTier: scoring.LoansNone, ScoreTier: scoring.ScoreFair,
		RepaymentTier: scoring.RepaymentAcceptable, DTITier: scoring.DTIModerate, RiskCategory: scoring.RiskMedium})
	assert.Contains(t, none, "no existing loans")
	assert.NotContains(t, none, "%!")
}

func TestEmploymentAnalysisVariants(t *testing.T) {
	known := EmploymentAnalysis(verdict.EmploymentVerdict{
		EmploymentVerified: true, CompanyVerified: true, KnownEmployer: true,
		Stability: scoring.StabilityExcellent, YearsEmployed: 8, CompanyName: "Microsoft",
	})
	assert.Equal(t, "Employment verified at Microsoft for 8 years. Company Microsoft verified through multiple sources. "+
		"Employment stability: Excellent (5+ years). Demonstrates strong employment commitment.", known)

	unknown := EmploymentAnalysis(verdict.EmploymentVerdict{
		CompanyVerified: true, Stability: scoring.StabilityConcerning, YearsEmployed: 0.2, CompanyName: "Corner Bakery",
	})
	assert.True(t, strings.HasPrefix(unknown, "Unable to fully verify employment history."))
	assert.Contains(t, unknown, "accepted with limited verification sources")
	assert.Contains(t, unknown, "Limited employment tenure raises concerns")
}

func TestCollateralAnalysis(t *testing.T) {
	text := CollateralAnalysis(verdict.CollateralVerdict{
		CollateralSufficient: true, LoanToValue: 250000.0 / 350000.0, MarginApplied: 0.2,
		CollateralValue: 350000, LoanAmount: 250000, EffectiveCollateral: 280000, EffectiveCoverage: 1.12,
		LTVTier: scoring.LTVStandard, CoverageTier: scoring.CoverageAcceptable,
	})
	assert.Contains(t, text, "Collateral value: $350,000.00.")
	assert.Contains(t, text, "Excellent LTV ratio of 71.43% (well within 20% threshold)")
	assert.Contains(t, text, "effective coverage is $280,000.00 (112.00% of loan amount)")
	assert.Contains(t, text, "sufficient with $30,000.00 surplus")

	none := CollateralAnalysis(verdict.CollateralVerdict{
		LoanToValue: math.Inf(1), MarginApplied: 0.3, LoanAmount: 150000,
		LTVTier: scoring.LTVHigh, CoverageTier: scoring.CoverageInsufficient,
	})
	assert.Contains(t, none, "High LTV ratio (no collateral declared)")
	assert.Contains(t, none, "insufficient by $150,000.00")
	assert.NotContains(t, none, "Inf")
}

func TestDegradedAnalysis(t *testing.T) {
	assert.Equal(t, "Credit evaluation failed; a worst-case failed verdict was substituted.",
		CreditAnalysis(verdict.CreditVerdict{Degraded: true}))
	assert.Contains(t, CollateralAnalysis(verdict.CollateralVerdict{Degraded: true}), "Collateral evaluation failed")
}

func TestRecommendationsAndConditions(t *testing.T) {
	advice := []verdict.Advice{
		{Kind: verdict.AdviceLargerDownPayment, Percent: 42.6},
		{Kind: verdict.AdviceManualReview},
	}
	assert.Equal(t, []string{
		"Collateral shortfall of 43% - consider larger down payment",
		"Manual review recommended due to identified inconsistencies",
	}, Recommendations(advice))

	assert.Equal(t, []string{"Increase collateral by 12%"},
		Conditions([]verdict.Advice{{Kind: verdict.AdviceIncreaseCollateral, Percent: 12.4}}))
}

func TestCritiqueSummary(t *testing.T) {
	v := verdict.Verdicts{
		Credit:     verdict.CreditVerdict{RiskCategory: scoring.RiskMedium},
		Employment: verdict.EmploymentVerdict{Passed: true},
	}
	assert.Equal(t, "All agent outputs are consistent and coherent. Confidence score: 90.00%. "+
		"Credit: Medium risk, Employment: Verified, Collateral: Insufficient.", CritiqueSummary(0, 0.9, v))
	assert.Contains(t, CritiqueSummary(2, 0.7, v), "Found 2 inconsistency(ies) requiring attention. Confidence score: 70.00%.")
}

func TestReasoningRejectedOmitsConditions(t *testing.T) {
	d := verdict.Decision{Outcome: verdict.Rejected, RiskScore: 0.8, Conditions: []string{"never shown"}}
	text := Reasoning(d, verdict.Verdicts{}, verdict.CritiqueResult{})

	assert.Contains(t, text, "has been rejected with an overall risk score of 80.00%")
	assert.Contains(t, text, "high risk (80.00%)")
	assert.NotContains(t, text, "never shown")
	assert.NotContains(t, text, "Recommendations:")
}

func TestPlanText(t *testing.T) {
	assert.Len(t, PlanSteps, 5)
	assert.Equal(t, "Analyze credit profile: 2 existing loans, repayment score 0.8, income $75,000.00", CreditStep(2, 0.8, 75000))
	assert.Equal(t, "5-7 minutes", Duration(DurationHigh))
	assert.Contains(t, Greeting("Ada", "APP-20250101-ABCDEF12"), "reference number: APP-20250101-ABCDEF12")
}
