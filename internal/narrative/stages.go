package narrative

import (
	"fmt"
	"math"
	"strings"

	"loanverify/domain/scoring"
	"loanverify/domain/verdict"
)

var scoreTierText = map[scoring.ScoreTier]string{
	scoring.ScoreExcellent:    "Excellent credit score of %.0f",
	scoring.ScoreFair:         "Fair credit score of %.0f",
	scoring.ScoreBelowAverage: "Below-average credit score of %.0f",
}

var repaymentTierText = map[scoring.RepaymentTier]string{
	scoring.RepaymentStrong:     "strong repayment history (%s)",
	scoring.RepaymentAcceptable: "acceptable repayment history (%s)",
	scoring.RepaymentConcerning: "concerning repayment history (%s)",
}

var loanTierText = map[scoring.LoanTier]string{
	scoring.LoansNone:       "no existing loans",
	scoring.LoansManageable: "%d existing loans (manageable)",
	scoring.LoansBurden:     "%d existing loans (high debt burden)",
}

var dtiTierText = map[scoring.DTITier]string{
	scoring.DTIHealthy:  "healthy DTI ratio of %s",
	scoring.DTIModerate: "moderate DTI ratio of %s",
	scoring.DTIHigh:     "high DTI ratio of %s",
}

// CreditAnalysis renders the four credit sub-judgments and the risk summary
func CreditAnalysis(v verdict.CreditVerdict) string {
	if v.Degraded {
		return degradedText("Credit")
	}
	loans := loanTierText[v.LoanTier]
	if v.LoanTier != scoring.LoansNone {
		loans = fmt.Sprintf(loans, v.ExistingLoans)
	}
	details := []string{
		fmt.Sprintf(scoreTierText[v.ScoreTier], v.CreditScore),
		fmt.Sprintf(repaymentTierText[v.RepaymentTier], Percent(v.RepaymentScore)),
		loans,
		fmt.Sprintf(dtiTierText[v.DTITier], Percent(v.DebtToIncome)),
	}
	return fmt.Sprintf("Applicant shows %s. Risk level: %s.", strings.Join(details, ", "), v.RiskCategory)
}

var stabilityText = map[scoring.Stability]string{
	scoring.StabilityExcellent:  "Excellent (5+ years)",
	scoring.StabilityGood:       "Good (3-5 years)",
	scoring.StabilityAcceptable: "Acceptable (1-3 years)",
	scoring.StabilityConcerning: "Concerning (< 1 year)",
}

// StabilityLabel is the display label of a stability class
func StabilityLabel(s scoring.Stability) string {
	if label, ok := stabilityText[s]; ok {
		return label
	}
	return string(s)
}

var tenureText = map[scoring.Stability]string{
	scoring.StabilityExcellent:  "Demonstrates strong employment commitment",
	scoring.StabilityGood:       "Demonstrates strong employment commitment",
	scoring.StabilityAcceptable: "Shows reasonable employment history",
	scoring.StabilityConcerning: "Limited employment tenure raises concerns",
}

// EmploymentAnalysis renders verification, company and tenure judgments
func EmploymentAnalysis(v verdict.EmploymentVerdict) string {
	if v.Degraded {
		return degradedText("Employment")
	}
	parts := make([]string, 0, 4)
	if v.EmploymentVerified {
		parts = append(parts, fmt.Sprintf("Employment verified at %s for %s years", v.CompanyName, Years(v.YearsEmployed)))
	} else {
		parts = append(parts, "Unable to fully verify employment history")
	}
	if v.CompanyVerified && v.KnownEmployer {
		parts = append(parts, fmt.Sprintf("Company %s verified through multiple sources", v.CompanyName))
	} else if v.CompanyVerified {
		parts = append(parts, fmt.Sprintf("Company %s accepted with limited verification sources", v.CompanyName))
	} else {
		parts = append(parts, "Company verification inconclusive")
	}
	parts = append(parts, "Employment stability: "+StabilityLabel(v.Stability))
	parts = append(parts, tenureText[v.Stability])
	return sentences(parts)
}

var ltvTierText = map[scoring.LTVTier]string{
	scoring.LTVStandard:   "Excellent LTV ratio of %s (well within %s threshold)",
	scoring.LTVAcceptable: "Acceptable LTV ratio of %s (slightly above optimal)",
	scoring.LTVHigh:       "High LTV ratio of %s (exceeds recommended threshold)",
}

var coverageTierText = map[scoring.CoverageTier]string{
	scoring.CoverageExcellent:    "Low collateral risk with strong coverage",
	scoring.CoverageAcceptable:   "Acceptable collateral coverage",
	scoring.CoverageMarginal:     "Marginal collateral coverage - increased risk",
	scoring.CoverageInsufficient: "Insufficient collateral coverage - high risk",
}

// CollateralAnalysis renders value, LTV, margin, surplus/shortfall and coverage judgments
func CollateralAnalysis(v verdict.CollateralVerdict) string {
	if v.Degraded {
		return degradedText("Collateral")
	}
	parts := make([]string, 0, 5)
	parts = append(parts, "Collateral value: "+Money(v.CollateralValue))

	switch {
	case math.IsInf(v.LoanToValue, 1):
		parts = append(parts, "High LTV ratio (no collateral declared)")
	case v.LTVTier == scoring.LTVStandard:
		parts = append(parts, fmt.Sprintf(ltvTierText[v.LTVTier], Percent(v.LoanToValue), WholePercent(v.MarginApplied)))
	default:
		parts = append(parts, fmt.Sprintf(ltvTierText[v.LTVTier], Percent(v.LoanToValue)))
	}

	parts = append(parts, fmt.Sprintf("After applying %s margin, effective coverage is %s (%s of loan amount)",
		WholePercent(v.MarginApplied), Money(v.EffectiveCollateral), Percent(v.EffectiveCoverage)))

	if v.CollateralSufficient {
		parts = append(parts, fmt.Sprintf("Collateral is sufficient with %s surplus after margin", Money(v.EffectiveCollateral-v.LoanAmount)))
	} else {
		parts = append(parts, fmt.Sprintf("Collateral is insufficient by %s after applying margin", Money(v.LoanAmount-v.EffectiveCollateral)))
	}
	parts = append(parts, coverageTierText[v.CoverageTier])
	return sentences(parts)
}

func degradedText(stage string) string {
	return stage + " evaluation failed; a worst-case failed verdict was substituted."
}
