package auditor

import (
	"loanverify/domain/application"
	"loanverify/domain/verdict"
)

// Rule is an expectation about the decision for a class of applications.
// Only rules whose predicate matches are scored.
type Rule struct {
	Name          string
	Applies       func(app application.Application) bool
	Expected      verdict.Outcome
	MinConfidence float64
}

// DefaultRules is the fixed expectation table
var DefaultRules = []Rule{
	{
		Name: "high_income_low_loan",
		Applies: func(app application.Application) bool {
			return app.Income > 100000 && app.LoanAmount < app.Income*2
		},
		Expected:      verdict.Approved,
		MinConfidence: 0.85,
	},
	{
		Name: "low_income_high_loan",
		Applies: func(app application.Application) bool {
			return app.Income < 40000 && app.LoanAmount > app.Income*5
		},
		Expected:      verdict.Rejected,
		MinConfidence: 0.80,
	},
	{
		Name: "poor_repayment_score",
		Applies: func(app application.Application) bool {
			return app.RepaymentScore < 0.50
		},
		Expected:      verdict.Rejected,
		MinConfidence: 0.90,
	},
	{
		Name: "excellent_repayment_score",
		Applies: func(app application.Application) bool {
			return app.RepaymentScore > 0.90 && app.ExistingLoans <= 1
		},
		Expected:      verdict.Approved,
		MinConfidence: 0.85,
	},
	{
		Name: "high_debt_ratio",
		Applies: func(app application.Application) bool {
			return app.LoanToIncome() > 6
		},
		Expected:      verdict.Rejected,
		MinConfidence: 0.75,
	},
}

const (
	reasonMatch           = "Decision and confidence match expected pattern"
	reasonDecisionDiffers = "Decision does not match expected pattern"
	reasonLowConfidence   = "Confidence level below expected threshold"
)

// validationReason explains a rule check. The confidence floor only applies
// when the decision itself matched.
func validationReason(decisionMatch, confidenceMatch bool) string {
	switch {
	case decisionMatch && confidenceMatch:
		return reasonMatch
	case !decisionMatch:
		return reasonDecisionDiffers
	default:
		return reasonLowConfidence
	}
}
