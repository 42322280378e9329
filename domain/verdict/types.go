package verdict

import (
	"encoding/json"
	"math"

	"loanverify/domain/scoring"
)

// CreditVerdict is the output of the credit stage
type CreditVerdict struct {
	CreditScore   float64               `json:"credit_score"`
	RiskCategory  scoring.RiskCategory  `json:"risk_category"`
	DebtToIncome  float64               `json:"debt_to_income_ratio"`
	ScoreTier     scoring.ScoreTier     `json:"score_tier"`
	RepaymentTier scoring.RepaymentTier `json:"repayment_tier"`
	LoanTier      scoring.LoanTier      `json:"loan_tier"`
	DTITier       scoring.DTITier       `json:"dti_tier"`
	// inputs echoed for narrative rendering
	RepaymentScore float64 `json:"repayment_score"`
	ExistingLoans  int     `json:"existing_loans"`

	Confidence float64 `json:"confidence"`
	Passed     bool    `json:"passed"`
	Degraded   bool    `json:"degraded,omitempty"`
	Analysis   string  `json:"analysis"`
}

// EmploymentVerdict is the output of the employment stage
type EmploymentVerdict struct {
	EmploymentVerified bool              `json:"employment_verified"`
	CompanyVerified    bool              `json:"company_verified"`
	KnownEmployer      bool              `json:"known_employer"`
	Stability          scoring.Stability `json:"employment_stability"`
	YearsEmployed      float64           `json:"years_employed"`
	CompanyName        string            `json:"company_name"`
	CompanyRating      float64           `json:"company_rating"`

	Confidence float64 `json:"confidence"`
	Passed     bool    `json:"passed"`
	Degraded   bool    `json:"degraded,omitempty"`
	Analysis   string  `json:"analysis"`
}

// CollateralVerdict is the output of the collateral stage. LoanToValue is +Inf
// when no collateral was declared and is encoded as JSON null.
type CollateralVerdict struct {
	CollateralSufficient bool                 `json:"collateral_sufficient"`
	LoanToValue          float64              `json:"loan_to_value_ratio"`
	MarginApplied        float64              `json:"margin_applied"`
	CollateralValue      float64              `json:"collateral_value"`
	LoanAmount           float64              `json:"loan_amount"`
	EffectiveCollateral  float64              `json:"effective_collateral"`
	EffectiveCoverage    float64              `json:"effective_coverage"`
	LTVTier              scoring.LTVTier      `json:"ltv_tier"`
	CoverageTier         scoring.CoverageTier `json:"coverage_tier"`

	Confidence float64 `json:"confidence"`
	Passed     bool    `json:"passed"`
	Degraded   bool    `json:"degraded,omitempty"`
	Analysis   string  `json:"analysis"`
}

type collateralAlias CollateralVerdict

type collateralJSON struct {
	collateralAlias
	LoanToValue *float64 `json:"loan_to_value_ratio"`
}

// MarshalJSON writes an infinite LTV as null
func (c CollateralVerdict) MarshalJSON() ([]byte, error) {
	out := collateralJSON{collateralAlias: collateralAlias(c)}
	if !math.IsInf(c.LoanToValue, 0) && !math.IsNaN(c.LoanToValue) {
		ltv := c.LoanToValue
		out.LoanToValue = &ltv
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null LTV back as +Inf
func (c *CollateralVerdict) UnmarshalJSON(data []byte) error {
	var in collateralJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = CollateralVerdict(in.collateralAlias)
	if in.LoanToValue == nil {
		c.LoanToValue = math.Inf(1)
	} else {
		c.LoanToValue = *in.LoanToValue
	}
	return nil
}

// Finding is one cross-stage inconsistency detected by the critique
type Finding string

const (
	FindingLowRiskConcerningEmployment Finding = "low_risk_concerning_employment"
	FindingHighRiskExcellentEmployment Finding = "high_risk_excellent_employment"
	FindingHighRiskInsufficientCollat  Finding = "high_risk_insufficient_collateral"
	FindingLowRiskHighLTV              Finding = "low_risk_high_ltv"
	FindingAllPassedConcerningDTI      Finding = "all_passed_concerning_dti"
	FindingAllFailed                   Finding = "all_failed"
)

// AdviceKind enumerates recommendations and conditions. Critique emits them as
// recommendations; the decision stage emits the same kinds as conditions.
type AdviceKind string

const (
	AdviceDebtConsolidation    AdviceKind = "debt_consolidation"
	AdviceCreditCounseling     AdviceKind = "credit_counseling"
	AdviceReapplyAfterTenure   AdviceKind = "reapply_after_tenure"
	AdviceEmploymentDocs       AdviceKind = "employment_documentation"
	AdviceLargerDownPayment    AdviceKind = "larger_down_payment"
	AdviceIncreaseCollateral   AdviceKind = "increase_collateral"
	AdviceCosignerOrCollateral AdviceKind = "cosigner_or_collateral"
	AdviceManualReview         AdviceKind = "manual_review"
	AdviceProceedStandard      AdviceKind = "proceed_standard"
)

// Advice is a structured recommendation or condition. Percent carries the
// collateral shortfall where the kind needs one.
type Advice struct {
	Kind    AdviceKind `json:"kind"`
	Percent float64    `json:"percent,omitempty"`
}

// CritiqueResult is derived only from the three verification verdicts
type CritiqueResult struct {
	Findings        []Finding `json:"findings"`
	Inconsistencies []string  `json:"inconsistencies_found"`
	Advice          []Advice  `json:"advice"`
	Recommendations []string  `json:"recommendations"`
	ConfidenceScore float64   `json:"confidence_score"`
	Summary         string    `json:"critique_summary"`
}

// HasInconsistencies reports whether any finding was raised
func (c CritiqueResult) HasInconsistencies() bool {
	return len(c.Findings) > 0
}

// Outcome is the terminal decision state
type Outcome string

const (
	Approved    Outcome = "Approved"
	Conditional Outcome = "Conditional"
	Rejected    Outcome = "Rejected"
)

// RiskComponents itemizes the weighted risk score
type RiskComponents struct {
	Credit     float64 `json:"credit"`
	DTI        float64 `json:"dti"`
	Employment float64 `json:"employment"`
	Collateral float64 `json:"collateral"`
	Critique   float64 `json:"critique"`
}

// Decision is the terminal output of a pipeline run
type Decision struct {
	Outcome     Outcome        `json:"decision"`
	RiskScore   float64        `json:"risk_score"`
	Components  RiskComponents `json:"risk_components"`
	PassedCount int            `json:"passed_count"`
	Conditions  []string       `json:"conditions,omitempty"`
	// ConditionAdvice is the structured form of Conditions
	ConditionAdvice []Advice `json:"condition_advice,omitempty"`
	Reasoning       string   `json:"reasoning"`
}

// Verdicts bundles the three verification outputs handed to critique and decision
type Verdicts struct {
	Credit     CreditVerdict
	Employment EmploymentVerdict
	Collateral CollateralVerdict
}

// PassedCount counts passed verification stages
func (v Verdicts) PassedCount() int {
	n := 0
	for _, passed := range []bool{v.Credit.Passed, v.Employment.Passed, v.Collateral.Passed} {
		if passed {
			n++
		}
	}
	return n
}

// AllPassed reports whether all three verification stages passed
func (v Verdicts) AllPassed() bool { return v.PassedCount() == 3 }

// AllFailed reports whether all three verification stages failed
func (v Verdicts) AllFailed() bool { return v.PassedCount() == 0 }
