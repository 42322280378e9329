package stages

import (
	"context"
	"math"

	"loanverify/domain/application"
	"loanverify/domain/scoring"
	"loanverify/domain/verdict"
	"loanverify/internal/narrative"
)

var coverageConfidence = map[scoring.CoverageTier]float64{
	scoring.CoverageExcellent:    0.90,
	scoring.CoverageAcceptable:   0.80,
	scoring.CoverageMarginal:     0.65,
	scoring.CoverageInsufficient: 0.50,
}

// CollateralStage computes LTV and margin-adjusted coverage
type CollateralStage struct {
	params scoring.Parameters
}

func NewCollateralStage(params scoring.Parameters) *CollateralStage {
	return &CollateralStage{params: params}
}

// AssessCollateral passes when margin-adjusted collateral covers the loan
func (s *CollateralStage) AssessCollateral(ctx context.Context, app application.Application) (verdict.CollateralVerdict, error) {
	p := s.params
	margin := p.Collateral.MarginRatio
	ltv := scoring.LoanToValue(app.LoanAmount, app.CollateralValue)
	effective := scoring.EffectiveCollateral(app.CollateralValue, margin)
	coverage := scoring.EffectiveCoverage(app.CollateralValue, margin, app.LoanAmount)

	metrics := map[string]float64{"effective_collateral": effective, "effective_coverage": coverage}
	if !math.IsInf(ltv, 1) {
		metrics["loan_to_value"] = ltv
	}
	if err := requireFinite(metrics); err != nil {
		return verdict.CollateralVerdict{}, err
	}

	tier := p.CoverageTierFor(coverage)
	sufficient := effective >= app.LoanAmount
	v := verdict.CollateralVerdict{
		CollateralSufficient: sufficient,
		LoanToValue:          ltv,
		MarginApplied:        margin,
		CollateralValue:      app.CollateralValue,
		LoanAmount:           app.LoanAmount,
		EffectiveCollateral:  effective,
		EffectiveCoverage:    coverage,
		LTVTier:              p.LTVTierFor(ltv),
		CoverageTier:         tier,
		Confidence:           coverageConfidence[tier],
		Passed:               sufficient && coverage >= p.Collateral.CoverageAcceptable,
	}
	v.Analysis = narrative.CollateralAnalysis(v)
	return v, nil
}

// WorstCaseCollateral is substituted for a failed collateral stage under the degrade policy
func WorstCaseCollateral(p scoring.Parameters) verdict.CollateralVerdict {
	v := verdict.CollateralVerdict{
		CollateralSufficient: false,
		LoanToValue:          math.Inf(1),
		MarginApplied:        p.Collateral.MarginRatio,
		LTVTier:              scoring.LTVHigh,
		CoverageTier:         scoring.CoverageInsufficient,
		Passed:               false,
		Degraded:             true,
	}
	v.Analysis = narrative.CollateralAnalysis(v)
	return v
}
