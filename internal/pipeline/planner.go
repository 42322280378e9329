package pipeline

import (
	"loanverify/domain/application"
	"loanverify/domain/stage"
	"loanverify/internal/narrative"
)

// Plan is the verification plan attached to every record
type Plan struct {
	Steps             []string                   `json:"plan"`
	VerificationSteps map[stage.StageName]string `json:"verification_steps"`
	Complexity        float64                    `json:"complexity_score"`
	Band              narrative.DurationBand     `json:"duration_band"`
	EstimatedDuration string                     `json:"estimated_duration"`
}

// Planner derives the plan and a processing-time estimate from the application
type Planner struct{}

func NewPlanner() *Planner {
	return &Planner{}
}

// Complexity is existingLoans*0.5 + (1-repayment)*2, plus one when the
// collateral does not cover the loan
func (p *Planner) Complexity(app application.Application) float64 {
	score := float64(app.ExistingLoans)*0.5 + (1-app.RepaymentScore)*2
	if app.CollateralValue < app.LoanAmount {
		score++
	}
	return score
}

func (p *Planner) Plan(app application.Application) Plan {
	complexity := p.Complexity(app)
	band := narrative.DurationHigh
	switch {
	case complexity < 2:
		band = narrative.DurationLow
	case complexity < 4:
		band = narrative.DurationMedium
	}

	return Plan{
		Steps: append([]string(nil), narrative.PlanSteps...),
		VerificationSteps: map[stage.StageName]string{
			stage.StageCredit:     narrative.CreditStep(app.ExistingLoans, app.RepaymentScore, app.Income),
			stage.StageEmployment: narrative.EmploymentStep(app.CompanyName, app.EmploymentYears),
			stage.StageCollateral: narrative.CollateralStep(app.CollateralValue, app.LoanAmount),
			stage.StageCritique:   narrative.CritiqueStep,
			stage.StageDecision:   narrative.DecisionStep,
		},
		Complexity:        complexity,
		Band:              band,
		EstimatedDuration: narrative.Duration(band),
	}
}
