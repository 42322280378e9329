package stages

import (
	"context"

	"loanverify/domain/scoring"
	"loanverify/domain/verdict"
	"loanverify/internal/narrative"

	"gonum.org/v1/gonum/floats"
)

// DecisionStage synthesizes the weighted risk score and applies the decision
// state machine
type DecisionStage struct {
	params scoring.Parameters
}

func NewDecisionStage(params scoring.Parameters) *DecisionStage {
	return &DecisionStage{params: params}
}

// Decide never re-normalizes the components; the sum of maxima exceeds 1 so
// the total is clamped to [0,1]
func (s *DecisionStage) Decide(ctx context.Context, v verdict.Verdicts, c verdict.CritiqueResult) (verdict.Decision, error) {
	components := s.Components(v, c)
	risk := scoring.Clamp(floats.Sum([]float64{
		components.Credit, components.DTI, components.Employment, components.Collateral, components.Critique,
	}), 0, 1)
	if err := requireFinite(map[string]float64{"risk_score": risk}); err != nil {
		return verdict.Decision{}, err
	}

	passed := v.PassedCount()
	d := verdict.Decision{
		Outcome:     s.Outcome(risk, passed),
		RiskScore:   risk,
		Components:  components,
		PassedCount: passed,
	}
	if d.Outcome == verdict.Conditional {
		d.ConditionAdvice = failingStageAdvice(s.params, v, s.params.Critique.ShortfallIncreasePct, verdict.AdviceIncreaseCollateral)
		if c.HasInconsistencies() {
			d.ConditionAdvice = append(d.ConditionAdvice, verdict.Advice{Kind: verdict.AdviceManualReview})
		}
		d.Conditions = narrative.Conditions(d.ConditionAdvice)
	}
	d.Reasoning = narrative.Reasoning(d, v, c)
	return d, nil
}

// Components computes each weighted risk term independently
func (s *DecisionStage) Components(v verdict.Verdicts, c verdict.CritiqueResult) verdict.RiskComponents {
	w := s.params.Risk

	credit := w.CreditHigh
	switch v.Credit.RiskCategory {
	case scoring.RiskLow:
		credit = w.CreditLow
	case scoring.RiskMedium:
		credit = w.CreditMedium
	}

	employment := w.StageFailed
	switch {
	case v.Employment.Passed:
		employment = w.StagePassed
	case v.Employment.EmploymentVerified:
		employment = w.StagePartial
	}

	collateral := w.StageFailed
	switch {
	case v.Collateral.Passed:
		collateral = w.StagePassed
	case v.Collateral.CollateralSufficient:
		collateral = w.StagePartial
	}

	dti := v.Credit.DebtToIncome * w.DTIWeight
	if dti > w.DTICap {
		dti = w.DTICap
	}

	return verdict.RiskComponents{
		Credit:     credit,
		DTI:        dti,
		Employment: employment,
		Collateral: collateral,
		Critique:   (1 - c.ConfidenceScore) * w.CritiqueWeight,
	}
}

// Outcome is the decision state machine, evaluated top-down. Both risk bounds
// are inclusive.
func (s *DecisionStage) Outcome(riskScore float64, passedCount int) verdict.Outcome {
	t := s.params.Thresholds
	w := s.params.Risk
	switch {
	case riskScore <= t.RiskLow && passedCount >= w.ApprovalPassCount:
		return verdict.Approved
	case riskScore <= t.RiskMedium && passedCount >= w.ConditionPassCount:
		return verdict.Conditional
	default:
		return verdict.Rejected
	}
}
