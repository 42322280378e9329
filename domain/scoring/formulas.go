package scoring

import "math"

// CreditScore computes the bounded credit score. Every term is total: a zero
// loan contributes no income component and zero income assumes the
// configured worst-case debt burden.
func (p Parameters) CreditScore(income float64, existingLoans int, repaymentScore, loanAmount float64) float64 {
	c := p.Credit
	loans := float64(existingLoans)

	repaymentComponent := repaymentScore * c.RepaymentMax
	loanPenalty := math.Min(loans*c.LoanPenaltyPerLoan, c.LoanPenaltyMax)

	incomeRatio := 0.0
	if loanAmount > 0 {
		incomeRatio = income / loanAmount
	}
	incomeComponent := math.Min(incomeRatio*c.IncomeRatioMultiplier, c.IncomeComponentMax)

	debtBurden := c.DebtBurdenNoIncome
	if income > 0 {
		debtBurden = loans / (income / c.DebtBurdenIncomeUnit)
	}
	debtComponent := math.Max(0, c.DebtBurdenBase-debtBurden*c.DebtBurdenMultiplier)

	score := c.BaseScore + repaymentComponent - loanPenalty + incomeComponent + debtComponent
	return clamp(score, c.ScoreMin, c.ScoreMax)
}

// MonthlyDebt estimates monthly debt service including the requested loan
func (p Parameters) MonthlyDebt(existingLoans int, loanAmount float64) float64 {
	return float64(existingLoans)*p.Debt.MonthlyPaymentPerLoan + loanAmount*p.Debt.MonthlyRateOfLoan
}

// DebtToIncome is estimated monthly debt over monthly income, 0 when income is 0
func (p Parameters) DebtToIncome(existingLoans int, loanAmount, income float64) float64 {
	monthlyIncome := income / 12
	if monthlyIncome <= 0 {
		return 0
	}
	return p.MonthlyDebt(existingLoans, loanAmount) / monthlyIncome
}

// LoanToValue is loan over collateral; +Inf when there is no collateral
func LoanToValue(loanAmount, collateralValue float64) float64 {
	if collateralValue <= 0 {
		return math.Inf(1)
	}
	return loanAmount / collateralValue
}

// EffectiveCollateral applies the safety margin to the declared value
func EffectiveCollateral(collateralValue, marginRatio float64) float64 {
	return collateralValue * marginRatio
}

// EffectiveCoverage is margin-adjusted collateral over the loan; 0 when the loan is not positive
func EffectiveCoverage(collateralValue, marginRatio, loanAmount float64) float64 {
	if loanAmount <= 0 {
		return 0
	}
	return EffectiveCollateral(collateralValue, marginRatio) / loanAmount
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return clamp(v, lo, hi)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
