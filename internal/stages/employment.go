package stages

import (
	"context"

	"loanverify/domain/application"
	"loanverify/domain/scoring"
	"loanverify/domain/verdict"
	"loanverify/internal/narrative"
)

// simulated company-source figures for known and unknown employers
const (
	knownEmployerRating       = 4.2
	unknownEmployerRating     = 3.5
	knownEmployerConfidence   = 0.85
	unknownEmployerConfidence = 0.65
)

// EmploymentStage verifies tenure and employer against the static allow-list.
// No external lookups are made.
type EmploymentStage struct {
	params scoring.Parameters
}

func NewEmploymentStage(params scoring.Parameters) *EmploymentStage {
	return &EmploymentStage{params: params}
}

// AssessEmployment treats every employer as verified; an employer missing from
// the allow-list only lowers confidence
func (s *EmploymentStage) AssessEmployment(ctx context.Context, app application.Application) (verdict.EmploymentVerdict, error) {
	p := s.params
	if err := requireFinite(map[string]float64{"employment_years": app.EmploymentYears}); err != nil {
		return verdict.EmploymentVerdict{}, err
	}

	known := p.IsKnownEmployer(app.CompanyName)
	v := verdict.EmploymentVerdict{
		EmploymentVerified: app.EmploymentYears >= p.Thresholds.EmploymentMinimumVerifiable,
		CompanyVerified:    true,
		KnownEmployer:      known,
		Stability:          p.StabilityFor(app.EmploymentYears),
		YearsEmployed:      app.EmploymentYears,
		CompanyName:        app.CompanyName,
		CompanyRating:      unknownEmployerRating,
		Confidence:         unknownEmployerConfidence,
	}
	if known {
		v.CompanyRating = knownEmployerRating
		v.Confidence = knownEmployerConfidence
	}
	v.Passed = v.EmploymentVerified && v.CompanyVerified && app.EmploymentYears >= p.Thresholds.EmploymentAcceptable
	v.Analysis = narrative.EmploymentAnalysis(v)
	return v, nil
}

// WorstCaseEmployment is substituted for a failed employment stage under the degrade policy
func WorstCaseEmployment() verdict.EmploymentVerdict {
	v := verdict.EmploymentVerdict{
		EmploymentVerified: false,
		CompanyVerified:    false,
		Stability:          scoring.StabilityConcerning,
		Passed:             false,
		Degraded:           true,
	}
	v.Analysis = narrative.EmploymentAnalysis(v)
	return v
}
