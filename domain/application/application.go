package application

import (
	"math"
	"strings"

	"loanverify/internal/errors"
)

// Application is the immutable input to one pipeline run
type Application struct {
	Name            string  `json:"name" yaml:"name"`
	Income          float64 `json:"income" yaml:"income"`
	LoanAmount      float64 `json:"loan_amount" yaml:"loan_amount"`
	ExistingLoans   int     `json:"existing_loans" yaml:"existing_loans"`
	RepaymentScore  float64 `json:"repayment_score" yaml:"repayment_score"`
	EmploymentYears float64 `json:"employment_years" yaml:"employment_years"`
	CompanyName     string  `json:"company_name" yaml:"company_name"`
	CollateralValue float64 `json:"collateral_value" yaml:"collateral_value"`
}

// Validate checks every field and reports all violations at once as an
// INVALID_INPUT error. A nil return means the application may enter the pipeline.
func (a Application) Validate() error {
	var violations []errors.FieldViolation
	add := func(field, reason string) {
		violations = append(violations, errors.FieldViolation{Field: field, Reason: reason})
	}

	if strings.TrimSpace(a.Name) == "" {
		add("name", "is required")
	}
	if !finite(a.Income) || a.Income <= 0 {
		add("income", "must be greater than 0")
	}
	if !finite(a.LoanAmount) || a.LoanAmount <= 0 {
		add("loan_amount", "must be greater than 0")
	}
	if a.ExistingLoans < 0 {
		add("existing_loans", "must not be negative")
	}
	if !finite(a.RepaymentScore) || a.RepaymentScore < 0 || a.RepaymentScore > 1 {
		add("repayment_score", "must be between 0 and 1")
	}
	if !finite(a.EmploymentYears) || a.EmploymentYears < 0 {
		add("employment_years", "must not be negative")
	}
	if strings.TrimSpace(a.CompanyName) == "" {
		add("company_name", "is required")
	}
	if !finite(a.CollateralValue) || a.CollateralValue < 0 {
		add("collateral_value", "must not be negative")
	}

	if len(violations) == 0 {
		return nil
	}
	return errors.NewInputError(violations, nil)
}

// LoanToIncome is the plain loan/income multiple used by audit rules, 0 when income is 0
func (a Application) LoanToIncome() float64 {
	if a.Income <= 0 {
		return 0
	}
	return a.LoanAmount / a.Income
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
