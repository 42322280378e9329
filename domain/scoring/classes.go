package scoring

// RiskCategory is the credit risk class
type RiskCategory string

const (
	RiskLow    RiskCategory = "Low"
	RiskMedium RiskCategory = "Medium"
	RiskHigh   RiskCategory = "High"
)

// Stability is the employment-stability class by tenure
type Stability string

const (
	StabilityExcellent  Stability = "Excellent"
	StabilityGood       Stability = "Good"
	StabilityAcceptable Stability = "Acceptable"
	StabilityConcerning Stability = "Concerning"
)

// ScoreTier classifies the credit score alone
type ScoreTier string

const (
	ScoreExcellent    ScoreTier = "excellent"
	ScoreFair         ScoreTier = "fair"
	ScoreBelowAverage ScoreTier = "below_average"
)

// RepaymentTier classifies the repayment history score
type RepaymentTier string

const (
	RepaymentStrong     RepaymentTier = "strong"
	RepaymentAcceptable RepaymentTier = "acceptable"
	RepaymentConcerning RepaymentTier = "concerning"
)

// LoanTier classifies the count of existing loans
type LoanTier string

const (
	LoansNone       LoanTier = "none"
	LoansManageable LoanTier = "manageable"
	LoansBurden     LoanTier = "burden"
)

// DTITier classifies the debt-to-income ratio
type DTITier string

const (
	DTIHealthy  DTITier = "healthy"
	DTIModerate DTITier = "moderate"
	DTIHigh     DTITier = "high"
)

// LTVTier classifies the loan-to-value ratio
type LTVTier string

const (
	LTVStandard   LTVTier = "standard"
	LTVAcceptable LTVTier = "acceptable"
	LTVHigh       LTVTier = "high"
)

// CoverageTier classifies the margin-adjusted coverage ratio
type CoverageTier string

const (
	CoverageExcellent    CoverageTier = "excellent"
	CoverageAcceptable   CoverageTier = "acceptable"
	CoverageMarginal     CoverageTier = "marginal"
	CoverageInsufficient CoverageTier = "insufficient"
)

// RiskCategoryFor is first-match-wins: Low needs both the excellent score and
// strong repayment, Medium needs both fair tiers, anything else is High
func (p Parameters) RiskCategoryFor(creditScore, repaymentScore float64) RiskCategory {
	t := p.Thresholds
	switch {
	case creditScore >= t.CreditScoreExcellent && repaymentScore >= t.RepaymentStrong:
		return RiskLow
	case creditScore >= t.CreditScoreFair && repaymentScore >= t.RepaymentAcceptable:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// StabilityFor classifies tenure in years
func (p Parameters) StabilityFor(years float64) Stability {
	t := p.Thresholds
	switch {
	case years >= t.EmploymentExcellent:
		return StabilityExcellent
	case years >= t.EmploymentGood:
		return StabilityGood
	case years >= t.EmploymentAcceptable:
		return StabilityAcceptable
	default:
		return StabilityConcerning
	}
}

func (p Parameters) ScoreTierFor(creditScore float64) ScoreTier {
	switch {
	case creditScore >= p.Thresholds.CreditScoreExcellent:
		return ScoreExcellent
	case creditScore >= p.Thresholds.CreditScoreFair:
		return ScoreFair
	default:
		return ScoreBelowAverage
	}
}

func (p Parameters) RepaymentTierFor(repaymentScore float64) RepaymentTier {
	switch {
	case repaymentScore >= p.Thresholds.RepaymentStrong:
		return RepaymentStrong
	case repaymentScore >= p.Thresholds.RepaymentAcceptable:
		return RepaymentAcceptable
	default:
		return RepaymentConcerning
	}
}

func (p Parameters) LoanTierFor(existingLoans int) LoanTier {
	switch {
	case existingLoans <= 0:
		return LoansNone
	case existingLoans <= p.Thresholds.ManageableLoans:
		return LoansManageable
	default:
		return LoansBurden
	}
}

// DTITierFor uses strict upper bounds: a ratio equal to the healthy bound is moderate
func (p Parameters) DTITierFor(dti float64) DTITier {
	switch {
	case dti < p.Thresholds.DTIHealthy:
		return DTIHealthy
	case dti < p.Thresholds.DTIModerate:
		return DTIModerate
	default:
		return DTIHigh
	}
}

// LTVTierFor uses inclusive upper bounds. An infinite LTV is always high.
func (p Parameters) LTVTierFor(ltv float64) LTVTier {
	switch {
	case ltv <= p.Thresholds.LTVStandard:
		return LTVStandard
	case ltv <= p.Thresholds.LTVAcceptable:
		return LTVAcceptable
	default:
		return LTVHigh
	}
}

func (p Parameters) CoverageTierFor(coverage float64) CoverageTier {
	c := p.Collateral
	switch {
	case coverage >= c.CoverageExcellent:
		return CoverageExcellent
	case coverage >= c.CoverageAcceptable:
		return CoverageAcceptable
	case coverage >= c.CoverageMarginal:
		return CoverageMarginal
	default:
		return CoverageInsufficient
	}
}
