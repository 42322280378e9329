package scoring

import (
	"fmt"
	"strings"

	"loanverify/domain/core"

	"gopkg.in/yaml.v3"
)

// CreditParams are the credit-score formula constants
type CreditParams struct {
	BaseScore             float64 `yaml:"base_score" json:"base_score"`
	RepaymentMax          float64 `yaml:"repayment_max" json:"repayment_max"`
	LoanPenaltyPerLoan    float64 `yaml:"loan_penalty_per_loan" json:"loan_penalty_per_loan"`
	LoanPenaltyMax        float64 `yaml:"loan_penalty_max" json:"loan_penalty_max"`
	IncomeRatioMultiplier float64 `yaml:"income_ratio_multiplier" json:"income_ratio_multiplier"`
	IncomeComponentMax    float64 `yaml:"income_component_max" json:"income_component_max"`
	DebtBurdenBase        float64 `yaml:"debt_burden_base" json:"debt_burden_base"`
	DebtBurdenMultiplier  float64 `yaml:"debt_burden_multiplier" json:"debt_burden_multiplier"`
	// DebtBurdenIncomeUnit scales income before dividing loan count by it
	DebtBurdenIncomeUnit float64 `yaml:"debt_burden_income_unit" json:"debt_burden_income_unit"`
	// DebtBurdenNoIncome is the burden assumed when income is 0
	DebtBurdenNoIncome float64 `yaml:"debt_burden_no_income" json:"debt_burden_no_income"`
	ScoreMin           float64 `yaml:"score_min" json:"score_min"`
	ScoreMax           float64 `yaml:"score_max" json:"score_max"`
}

// DebtParams estimate monthly debt service
type DebtParams struct {
	MonthlyPaymentPerLoan float64 `yaml:"monthly_payment_per_loan" json:"monthly_payment_per_loan"`
	MonthlyRateOfLoan     float64 `yaml:"monthly_rate_of_loan" json:"monthly_rate_of_loan"`
}

// Thresholds are the tier boundaries used by every classifier
type Thresholds struct {
	CreditScoreExcellent float64 `yaml:"credit_score_excellent" json:"credit_score_excellent"`
	CreditScoreFair      float64 `yaml:"credit_score_fair" json:"credit_score_fair"`

	RepaymentStrong     float64 `yaml:"repayment_strong" json:"repayment_strong"`
	RepaymentAcceptable float64 `yaml:"repayment_acceptable" json:"repayment_acceptable"`

	ManageableLoans int `yaml:"manageable_loans" json:"manageable_loans"`

	DTIHealthy  float64 `yaml:"dti_healthy" json:"dti_healthy"`
	DTIModerate float64 `yaml:"dti_moderate" json:"dti_moderate"`

	EmploymentExcellent         float64 `yaml:"employment_excellent" json:"employment_excellent"`
	EmploymentGood              float64 `yaml:"employment_good" json:"employment_good"`
	EmploymentAcceptable        float64 `yaml:"employment_acceptable" json:"employment_acceptable"`
	EmploymentMinimumVerifiable float64 `yaml:"employment_minimum_verifiable" json:"employment_minimum_verifiable"`

	LTVStandard   float64 `yaml:"ltv_standard" json:"ltv_standard"`
	LTVAcceptable float64 `yaml:"ltv_acceptable" json:"ltv_acceptable"`
	LTVUnusual    float64 `yaml:"ltv_unusual" json:"ltv_unusual"`

	RiskLow    float64 `yaml:"risk_low" json:"risk_low"`
	RiskMedium float64 `yaml:"risk_medium" json:"risk_medium"`
}

// CollateralParams configure the margin and coverage tiers
type CollateralParams struct {
	MarginRatio        float64 `yaml:"margin_ratio" json:"margin_ratio"`
	CoverageExcellent  float64 `yaml:"coverage_excellent" json:"coverage_excellent"`
	CoverageAcceptable float64 `yaml:"coverage_acceptable" json:"coverage_acceptable"`
	CoverageMarginal   float64 `yaml:"coverage_marginal" json:"coverage_marginal"`
}

// CritiqueParams drive the confidence score derived from cross-stage checks
type CritiqueParams struct {
	BaseConfidence          float64 `yaml:"base_confidence" json:"base_confidence"`
	InconsistencyPenalty    float64 `yaml:"inconsistency_penalty" json:"inconsistency_penalty"`
	WeakScoreBelow          float64 `yaml:"weak_score_below" json:"weak_score_below"`
	ShortTenureBelow        float64 `yaml:"short_tenure_below" json:"short_tenure_below"`
	ThinCoverageBelow       float64 `yaml:"thin_coverage_below" json:"thin_coverage_below"`
	FactorPenalty           float64 `yaml:"factor_penalty" json:"factor_penalty"`
	MinConfidence           float64 `yaml:"min_confidence" json:"min_confidence"`
	MaxConfidence           float64 `yaml:"max_confidence" json:"max_confidence"`
	ConcerningDTI           float64 `yaml:"concerning_dti" json:"concerning_dti"`
	ShortfallDownPaymentPct float64 `yaml:"shortfall_down_payment_pct" json:"shortfall_down_payment_pct"`
	ShortfallIncreasePct    float64 `yaml:"shortfall_increase_pct" json:"shortfall_increase_pct"`
}

// RiskWeights are the per-component contributions to the final risk score
type RiskWeights struct {
	CreditLow          float64 `yaml:"credit_low" json:"credit_low"`
	CreditMedium       float64 `yaml:"credit_medium" json:"credit_medium"`
	CreditHigh         float64 `yaml:"credit_high" json:"credit_high"`
	DTIWeight          float64 `yaml:"dti_weight" json:"dti_weight"`
	DTICap             float64 `yaml:"dti_cap" json:"dti_cap"`
	StagePassed        float64 `yaml:"stage_passed" json:"stage_passed"`
	StagePartial       float64 `yaml:"stage_partial" json:"stage_partial"`
	StageFailed        float64 `yaml:"stage_failed" json:"stage_failed"`
	CritiqueWeight     float64 `yaml:"critique_weight" json:"critique_weight"`
	ApprovalPassCount  int     `yaml:"approval_pass_count" json:"approval_pass_count"`
	ConditionPassCount int     `yaml:"condition_pass_count" json:"condition_pass_count"`
}

// Parameters is the static, read-only table every stage reads from. It is
// loaded once per process and never mutated after construction.
type Parameters struct {
	Credit         CreditParams     `yaml:"credit" json:"credit"`
	Debt           DebtParams       `yaml:"debt" json:"debt"`
	Thresholds     Thresholds       `yaml:"thresholds" json:"thresholds"`
	Collateral     CollateralParams `yaml:"collateral" json:"collateral"`
	Critique       CritiqueParams   `yaml:"critique" json:"critique"`
	Risk           RiskWeights      `yaml:"risk" json:"risk"`
	KnownEmployers []string         `yaml:"known_employers" json:"known_employers"`
}

// DefaultKnownEmployers is the allow-list used for simulated company verification
var DefaultKnownEmployers = []string{
	"microsoft", "google", "amazon", "apple", "meta", "facebook",
	"tesla", "nvidia", "intel", "ibm", "oracle", "salesforce",
	"adobe", "netflix", "uber", "airbnb", "twitter", "linkedin",
	"tech corp", "global solutions", "innovation labs", "digital systems",
	"accenture", "deloitte", "pwc", "ey", "kpmg", "mckinsey",
	"jp morgan", "goldman sachs", "morgan stanley", "citigroup",
}

// DefaultParameters returns the production parameter table
func DefaultParameters() Parameters {
	employers := make([]string, len(DefaultKnownEmployers))
	copy(employers, DefaultKnownEmployers)

	return Parameters{
		Credit: CreditParams{
			BaseScore:             500,
			RepaymentMax:          200,
			LoanPenaltyPerLoan:    15,
			LoanPenaltyMax:        100,
			IncomeRatioMultiplier: 50,
			IncomeComponentMax:    150,
			DebtBurdenBase:        100,
			DebtBurdenMultiplier:  10,
			DebtBurdenIncomeUnit:  10000,
			DebtBurdenNoIncome:    10,
			ScoreMin:              300,
			ScoreMax:              850,
		},
		Debt: DebtParams{
			MonthlyPaymentPerLoan: 500,
			MonthlyRateOfLoan:     0.005,
		},
		Thresholds: Thresholds{
			CreditScoreExcellent:        700,
			CreditScoreFair:             600,
			RepaymentStrong:             0.8,
			RepaymentAcceptable:         0.6,
			ManageableLoans:             2,
			DTIHealthy:                  0.36,
			DTIModerate:                 0.5,
			EmploymentExcellent:         5,
			EmploymentGood:              3,
			EmploymentAcceptable:        1,
			EmploymentMinimumVerifiable: 0.5,
			LTVStandard:                 0.80,
			LTVAcceptable:               0.90,
			LTVUnusual:                  0.95,
			RiskLow:                     0.3,
			RiskMedium:                  0.5,
		},
		Collateral: CollateralParams{
			MarginRatio:        0.80,
			CoverageExcellent:  1.2,
			CoverageAcceptable: 1.0,
			CoverageMarginal:   0.8,
		},
		Critique: CritiqueParams{
			BaseConfidence:          0.95,
			InconsistencyPenalty:    0.10,
			WeakScoreBelow:          650,
			ShortTenureBelow:        2,
			ThinCoverageBelow:       1.1,
			FactorPenalty:           0.05,
			MinConfidence:           0.5,
			MaxConfidence:           1.0,
			ConcerningDTI:           0.45,
			ShortfallDownPaymentPct: 20,
			ShortfallIncreasePct:    10,
		},
		Risk: RiskWeights{
			CreditLow:          0.10,
			CreditMedium:       0.25,
			CreditHigh:         0.40,
			DTIWeight:          0.3,
			DTICap:             0.2,
			StagePassed:        0.05,
			StagePartial:       0.15,
			StageFailed:        0.25,
			CritiqueWeight:     0.1,
			ApprovalPassCount:  3,
			ConditionPassCount: 2,
		},
		KnownEmployers: employers,
	}
}

// Validate rejects tables whose tiers are inverted or empty
func (p Parameters) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	t := p.Thresholds
	check(p.Credit.ScoreMin < p.Credit.ScoreMax, "credit.score_min must be below credit.score_max")
	check(p.Credit.DebtBurdenIncomeUnit > 0, "credit.debt_burden_income_unit must be positive")
	check(t.CreditScoreFair <= t.CreditScoreExcellent, "credit score fair tier exceeds excellent tier")
	check(t.RepaymentAcceptable <= t.RepaymentStrong, "repayment acceptable tier exceeds strong tier")
	check(t.DTIHealthy <= t.DTIModerate, "dti healthy tier exceeds moderate tier")
	check(t.EmploymentAcceptable <= t.EmploymentGood && t.EmploymentGood <= t.EmploymentExcellent, "employment tiers must be ascending")
	check(t.LTVStandard <= t.LTVAcceptable, "ltv standard tier exceeds acceptable tier")
	check(t.RiskLow <= t.RiskMedium, "risk low tier exceeds medium tier")
	check(p.Collateral.MarginRatio > 0 && p.Collateral.MarginRatio <= 1, "collateral.margin_ratio must be in (0,1]")
	check(p.Collateral.CoverageMarginal <= p.Collateral.CoverageAcceptable &&
		p.Collateral.CoverageAcceptable <= p.Collateral.CoverageExcellent, "coverage tiers must be ascending")
	check(p.Critique.MinConfidence <= p.Critique.MaxConfidence, "critique confidence bounds inverted")
	check(len(p.KnownEmployers) > 0, "known_employers must not be empty")

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", core.ErrInvalidParameters, strings.Join(problems, "; "))
}

// Fingerprint hashes the canonical YAML form so every decision record can
// name the exact parameter set it was computed with
func (p Parameters) Fingerprint() core.Hash {
	data, err := yaml.Marshal(p)
	if err != nil {
		return ""
	}
	return core.NewHash(data)
}

// IsKnownEmployer reports whether any allow-list entry is a case-insensitive
// substring of the employer name
func (p Parameters) IsKnownEmployer(company string) bool {
	lower := strings.ToLower(company)
	for _, known := range p.KnownEmployers {
		if known == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(known)) {
			return true
		}
	}
	return false
}
