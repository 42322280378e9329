package stages

import (
	"context"

	"loanverify/domain/scoring"
	"loanverify/domain/verdict"
	"loanverify/internal/narrative"
)

// CritiqueStage cross-checks the verification verdicts. It never sees the
// application itself.
type CritiqueStage struct {
	params scoring.Parameters
}

func NewCritiqueStage(params scoring.Parameters) *CritiqueStage {
	return &CritiqueStage{params: params}
}

// Critique evaluates every consistency rule independently, derives a bounded
// confidence score and per-stage recommendations
func (s *CritiqueStage) Critique(ctx context.Context, v verdict.Verdicts) (verdict.CritiqueResult, error) {
	findings := s.findings(v)
	confidence := s.confidence(v, len(findings))
	if err := requireFinite(map[string]float64{"confidence": confidence}); err != nil {
		return verdict.CritiqueResult{}, err
	}

	advice := s.recommendations(v, len(findings) > 0)
	return verdict.CritiqueResult{
		Findings:        findings,
		Inconsistencies: narrative.Inconsistencies(findings),
		Advice:          advice,
		Recommendations: narrative.Recommendations(advice),
		ConfidenceScore: confidence,
		Summary:         narrative.CritiqueSummary(len(findings), confidence, v),
	}, nil
}

func (s *CritiqueStage) findings(v verdict.Verdicts) []verdict.Finding {
	findings := make([]verdict.Finding, 0)
	risk := v.Credit.RiskCategory

	if risk == scoring.RiskLow && v.Employment.Stability == scoring.StabilityConcerning {
		findings = append(findings, verdict.FindingLowRiskConcerningEmployment)
	}
	if risk == scoring.RiskHigh && v.Employment.Stability == scoring.StabilityExcellent {
		findings = append(findings, verdict.FindingHighRiskExcellentEmployment)
	}
	if risk == scoring.RiskHigh && !v.Collateral.CollateralSufficient {
		findings = append(findings, verdict.FindingHighRiskInsufficientCollat)
	}
	if risk == scoring.RiskLow && v.Collateral.LoanToValue > s.params.Thresholds.LTVUnusual {
		findings = append(findings, verdict.FindingLowRiskHighLTV)
	}
	if v.AllPassed() && v.Credit.DebtToIncome > s.params.Critique.ConcerningDTI {
		findings = append(findings, verdict.FindingAllPassedConcerningDTI)
	}
	if v.AllFailed() {
		findings = append(findings, verdict.FindingAllFailed)
	}
	return findings
}

func (s *CritiqueStage) confidence(v verdict.Verdicts, findingCount int) float64 {
	c := s.params.Critique
	score := c.BaseConfidence - c.InconsistencyPenalty*float64(findingCount)
	if v.Credit.CreditScore < c.WeakScoreBelow {
		score -= c.FactorPenalty
	}
	if v.Employment.YearsEmployed < c.ShortTenureBelow {
		score -= c.FactorPenalty
	}
	if v.Collateral.EffectiveCoverage < c.ThinCoverageBelow {
		score -= c.FactorPenalty
	}
	return scoring.Clamp(score, c.MinConfidence, c.MaxConfidence)
}

func (s *CritiqueStage) recommendations(v verdict.Verdicts, inconsistent bool) []verdict.Advice {
	advice := failingStageAdvice(s.params, v, s.params.Critique.ShortfallDownPaymentPct, verdict.AdviceLargerDownPayment)
	if inconsistent {
		advice = append(advice, verdict.Advice{Kind: verdict.AdviceManualReview})
	}
	if len(advice) == 0 {
		advice = append(advice, verdict.Advice{Kind: verdict.AdviceProceedStandard})
	}
	return advice
}

// failingStageAdvice lists remedies for each failed verification stage. A
// collateral shortfall above shortfallPct gets the percentage-bearing kind,
// smaller ones a co-signer suggestion.
func failingStageAdvice(p scoring.Parameters, v verdict.Verdicts, shortfallPct float64, shortfallKind verdict.AdviceKind) []verdict.Advice {
	advice := make([]verdict.Advice, 0)

	if !v.Credit.Passed {
		if v.Credit.DebtToIncome > p.Thresholds.DTIModerate {
			advice = append(advice, verdict.Advice{Kind: verdict.AdviceDebtConsolidation})
		}
		if v.Credit.RiskCategory == scoring.RiskHigh {
			advice = append(advice, verdict.Advice{Kind: verdict.AdviceCreditCounseling})
		}
	}

	if !v.Employment.Passed {
		if v.Employment.YearsEmployed < p.Thresholds.EmploymentAcceptable {
			advice = append(advice, verdict.Advice{Kind: verdict.AdviceReapplyAfterTenure})
		}
		if !v.Employment.CompanyVerified {
			advice = append(advice, verdict.Advice{Kind: verdict.AdviceEmploymentDocs})
		}
	}

	if !v.Collateral.Passed {
		shortfall := (1 - v.Collateral.EffectiveCoverage) * 100
		if shortfall > shortfallPct {
			advice = append(advice, verdict.Advice{Kind: shortfallKind, Percent: shortfall})
		} else {
			advice = append(advice, verdict.Advice{Kind: verdict.AdviceCosignerOrCollateral})
		}
	}
	return advice
}
