// Package stages implements the five scoring stages. Every stage is a pure
// function of its declared inputs and the read-only parameter table.
package stages

import (
	"context"
	"fmt"
	"math"

	"loanverify/domain/application"
	"loanverify/domain/core"
	"loanverify/domain/verdict"
)

// CreditAssessor produces the credit verdict
type CreditAssessor interface {
	AssessCredit(ctx context.Context, app application.Application) (verdict.CreditVerdict, error)
}

// EmploymentAssessor produces the employment verdict
type EmploymentAssessor interface {
	AssessEmployment(ctx context.Context, app application.Application) (verdict.EmploymentVerdict, error)
}

// CollateralAssessor produces the collateral verdict
type CollateralAssessor interface {
	AssessCollateral(ctx context.Context, app application.Application) (verdict.CollateralVerdict, error)
}

// Critic cross-checks the three verification verdicts
type Critic interface {
	Critique(ctx context.Context, v verdict.Verdicts) (verdict.CritiqueResult, error)
}

// Decider synthesizes the final decision
type Decider interface {
	Decide(ctx context.Context, v verdict.Verdicts, c verdict.CritiqueResult) (verdict.Decision, error)
}

// requireFinite guards against NaN leaking out of a formula. Infinite values
// are allowed only where the caller says so (the LTV of an uncollateralized loan).
func requireFinite(metrics map[string]float64) error {
	for name, v := range metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", core.ErrNonFiniteMetric, name, v)
		}
	}
	return nil
}
