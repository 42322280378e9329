package stages

import (
	"context"

	"loanverify/domain/application"
	"loanverify/domain/scoring"
	"loanverify/domain/verdict"
	"loanverify/internal/narrative"
)

var riskConfidence = map[scoring.RiskCategory]float64{
	scoring.RiskLow:    0.90,
	scoring.RiskMedium: 0.75,
	scoring.RiskHigh:   0.60,
}

// CreditStage scores credit history and debt load
type CreditStage struct {
	params scoring.Parameters
}

// NewCreditStage creates a credit stage over a parameter table
func NewCreditStage(params scoring.Parameters) *CreditStage {
	return &CreditStage{params: params}
}

// AssessCredit passes when the risk category is Low or Medium and the DTI is
// below the moderate bound
func (s *CreditStage) AssessCredit(ctx context.Context, app application.Application) (verdict.CreditVerdict, error) {
	p := s.params
	score := p.CreditScore(app.Income, app.ExistingLoans, app.RepaymentScore, app.LoanAmount)
	dti := p.DebtToIncome(app.ExistingLoans, app.LoanAmount, app.Income)
	if err := requireFinite(map[string]float64{"credit_score": score, "debt_to_income": dti}); err != nil {
		return verdict.CreditVerdict{}, err
	}

	risk := p.RiskCategoryFor(score, app.RepaymentScore)
	v := verdict.CreditVerdict{
		CreditScore:    score,
		RiskCategory:   risk,
		DebtToIncome:   dti,
		ScoreTier:      p.ScoreTierFor(score),
		RepaymentTier:  p.RepaymentTierFor(app.RepaymentScore),
		LoanTier:       p.LoanTierFor(app.ExistingLoans),
		DTITier:        p.DTITierFor(dti),
		RepaymentScore: app.RepaymentScore,
		ExistingLoans:  app.ExistingLoans,
		Confidence:     riskConfidence[risk],
		Passed:         risk != scoring.RiskHigh && dti < p.Thresholds.DTIModerate,
	}
	v.Analysis = narrative.CreditAnalysis(v)
	return v, nil
}

// WorstCaseCredit is substituted for a failed credit stage under the degrade policy
func WorstCaseCredit(p scoring.Parameters) verdict.CreditVerdict {
	v := verdict.CreditVerdict{
		CreditScore:   p.Credit.ScoreMin,
		RiskCategory:  scoring.RiskHigh,
		DebtToIncome:  1.0,
		ScoreTier:     scoring.ScoreBelowAverage,
		RepaymentTier: scoring.RepaymentConcerning,
		LoanTier:      scoring.LoansBurden,
		DTITier:       scoring.DTIHigh,
		Confidence:    0,
		Passed:        false,
		Degraded:      true,
	}
	v.Analysis = narrative.CreditAnalysis(v)
	return v
}
