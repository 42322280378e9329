package pipeline

import (
	"math"

	"loanverify/domain/application"
	"loanverify/domain/core"
	"loanverify/domain/scoring"
	"loanverify/domain/stage"
	"loanverify/domain/verdict"
)

// Record is the external-facing result of one pipeline run
type Record struct {
	ApplicationID     core.ApplicationID `json:"application_id"`
	Status            stage.Status       `json:"status"`
	Decision          verdict.Outcome    `json:"decision"`
	RiskScore         float64            `json:"risk_score"`
	Confidence        float64            `json:"confidence_score"`
	Reasoning         string             `json:"reasoning"`
	Conditions        []string           `json:"conditions"`
	Summary           Summary            `json:"agent_summary"`
	Plan              Plan               `json:"plan"`
	Greeting          string             `json:"greeting"`
	DegradedStages    []stage.StageName  `json:"degraded_stages,omitempty"`
	ParamsFingerprint string             `json:"params_fingerprint"`
	Timestamp         core.Timestamp     `json:"timestamp"`

	// Full structured results, kept for auditing
	Application application.Application `json:"-"`
	Verdicts    verdict.Verdicts        `json:"-"`
	Critique    verdict.CritiqueResult  `json:"-"`
	Detail      verdict.Decision        `json:"-"`
}

// Degraded reports whether any verdict was substituted
func (r *Record) Degraded() bool {
	return len(r.DegradedStages) > 0
}

// Summary holds the per-stage summaries returned to callers
type Summary struct {
	Greeting      GreetingSummary   `json:"greeting"`
	Planner       PlannerSummary    `json:"planner"`
	Credit        CreditSummary     `json:"credit_history"`
	Employment    EmploymentSummary `json:"employment"`
	Collateral    CollateralSummary `json:"collateral"`
	Critique      CritiqueSummary   `json:"critique"`
	FinalDecision DecisionSummary   `json:"final_decision"`
}

type GreetingSummary struct {
	Message   string         `json:"message"`
	Timestamp core.Timestamp `json:"timestamp"`
}

type PlannerSummary struct {
	PlanSteps         int    `json:"plan_steps"`
	EstimatedDuration string `json:"estimated_duration"`
}

type CreditSummary struct {
	CreditScore  float64              `json:"credit_score"`
	RiskCategory scoring.RiskCategory `json:"risk_category"`
	DebtToIncome float64              `json:"debt_to_income_ratio"`
	Passed       bool                 `json:"passed"`
	Degraded     bool                 `json:"degraded,omitempty"`
	Analysis     string               `json:"analysis"`
}

type EmploymentSummary struct {
	EmploymentVerified bool              `json:"employment_verified"`
	CompanyVerified    bool              `json:"company_verified"`
	Stability          scoring.Stability `json:"stability"`
	Passed             bool              `json:"passed"`
	Degraded           bool              `json:"degraded,omitempty"`
	Analysis           string            `json:"analysis"`
}

// CollateralSummary reports a missing LTV (no collateral declared) as null
type CollateralSummary struct {
	CollateralSufficient bool     `json:"collateral_sufficient"`
	LoanToValue          *float64 `json:"ltv_ratio"`
	EffectiveCoverage    float64  `json:"effective_coverage"`
	Passed               bool     `json:"passed"`
	Degraded             bool     `json:"degraded,omitempty"`
	Analysis             string   `json:"analysis"`
}

type CritiqueSummary struct {
	InconsistenciesCount int      `json:"inconsistencies_count"`
	Inconsistencies      []string `json:"inconsistencies"`
	Recommendations      []string `json:"recommendations"`
	ConfidenceScore      float64  `json:"confidence_score"`
	Summary              string   `json:"summary"`
}

type DecisionSummary struct {
	Decision   verdict.Outcome `json:"decision"`
	RiskScore  float64         `json:"risk_score"`
	Conditions []string        `json:"conditions"`
}

const greetingPreview = 100

func summarize(greeting string, at core.Timestamp, plan Plan, v verdict.Verdicts, c verdict.CritiqueResult, d verdict.Decision) Summary {
	preview := greeting
	if len(preview) > greetingPreview {
		preview = preview[:greetingPreview] + "..."
	}

	var ltv *float64
	if !math.IsInf(v.Collateral.LoanToValue, 0) && !math.IsNaN(v.Collateral.LoanToValue) {
		value := v.Collateral.LoanToValue
		ltv = &value
	}

	return Summary{
		Greeting: GreetingSummary{Message: preview, Timestamp: at},
		Planner:  PlannerSummary{PlanSteps: len(plan.Steps), EstimatedDuration: plan.EstimatedDuration},
		Credit: CreditSummary{
			CreditScore:  v.Credit.CreditScore,
			RiskCategory: v.Credit.RiskCategory,
			DebtToIncome: v.Credit.DebtToIncome,
			Passed:       v.Credit.Passed,
			Degraded:     v.Credit.Degraded,
			Analysis:     v.Credit.Analysis,
		},
		Employment: EmploymentSummary{
			EmploymentVerified: v.Employment.EmploymentVerified,
			CompanyVerified:    v.Employment.CompanyVerified,
			Stability:          v.Employment.Stability,
			Passed:             v.Employment.Passed,
			Degraded:           v.Employment.Degraded,
			Analysis:           v.Employment.Analysis,
		},
		Collateral: CollateralSummary{
			CollateralSufficient: v.Collateral.CollateralSufficient,
			LoanToValue:          ltv,
			EffectiveCoverage:    v.Collateral.EffectiveCoverage,
			Passed:               v.Collateral.Passed,
			Degraded:             v.Collateral.Degraded,
			Analysis:             v.Collateral.Analysis,
		},
		Critique: CritiqueSummary{
			InconsistenciesCount: len(c.Inconsistencies),
			Inconsistencies:      c.Inconsistencies,
			Recommendations:      c.Recommendations,
			ConfidenceScore:      c.ConfidenceScore,
			Summary:              c.Summary,
		},
		FinalDecision: DecisionSummary{
			Decision:   d.Outcome,
			RiskScore:  d.RiskScore,
			Conditions: d.Conditions,
		},
	}
}
