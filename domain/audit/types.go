package audit

import (
	"loanverify/domain/core"
	"loanverify/domain/verdict"
)

// Severity grades an audit indicator
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// RiskLevel summarizes the anomaly section
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Section statuses
const (
	ValidationPass = "PASS"
	ValidationFail = "FAIL"

	BiasFair         = "FAIR"
	BiasReviewNeeded = "REVIEW_NEEDED"

	PerformanceGood        = "GOOD"
	PerformanceNeedsReview = "NEEDS_REVIEW"

	StatusHealthy        = "HEALTHY"
	StatusNeedsAttention = "NEEDS_ATTENTION"
)

// Indicator types raised by the bias and anomaly checks
const (
	IndicatorIncomeBias           = "POTENTIAL_INCOME_BIAS"
	IndicatorExperienceBias       = "POTENTIAL_EXPERIENCE_BIAS"
	IndicatorInconsistency        = "INCONSISTENCY_DETECTED"
	AnomalyConfidentWeakReason    = "HIGH_CONFIDENCE_WEAK_REASONING"
	AnomalyNoConsensus            = "NO_AGENT_CONSENSUS"
	AnomalyExtremeDTIApproved     = "EXTREME_DTI_APPROVED"
	AnomalyInsufficientCollateral = "INSUFFICIENT_COLLATERAL"
)

// Opinion is one stage's stance on an application, as fed to the performance
// and consensus checks
type Opinion struct {
	Stage      string          `json:"stage"`
	Decision   verdict.Outcome `json:"decision"`
	Confidence float64         `json:"confidence"`
}

// RuleCheck is the outcome of one applicable expectation rule
type RuleCheck struct {
	Rule               string          `json:"rule"`
	ExpectedDecision   verdict.Outcome `json:"expected_decision"`
	ActualDecision     verdict.Outcome `json:"actual_decision"`
	ExpectedConfidence float64         `json:"expected_confidence"`
	ActualConfidence   float64         `json:"actual_confidence"`
	Passed             bool            `json:"passed"`
	Reason             string          `json:"reason"`
}

// Validation is the rule-validation section
type Validation struct {
	PassedRules int         `json:"passed_rules"`
	TotalRules  int         `json:"total_rules"`
	Accuracy    float64     `json:"accuracy"`
	Checks      []RuleCheck `json:"validations"`
	Status      string      `json:"status"`
}

// Indicator is a bias indicator or anomaly
type Indicator struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// BiasCheck is the fairness section
type BiasCheck struct {
	FairnessScore float64     `json:"fairness_score"`
	Indicators    []Indicator `json:"bias_indicators"`
	BiasDetected  bool        `json:"bias_detected"`
	SimilarCases  int         `json:"similar_cases_found"`
	Consistency   string      `json:"consistency"`
	Status        string      `json:"status"`
}

// StageScore is the per-stage line of the performance section
type StageScore struct {
	Decision    verdict.Outcome `json:"decision"`
	Confidence  float64         `json:"confidence"`
	Performance string          `json:"performance"`
}

// Performance summarizes agreement between the stage opinions
type Performance struct {
	StagesAnalyzed    int                   `json:"agents_analyzed"`
	Scores            map[string]StageScore `json:"agent_scores"`
	AverageConfidence float64               `json:"average_confidence"`
	ConsensusStrength float64               `json:"consensus_strength"`
}

// Anomalies is the anomaly-detection section
type Anomalies struct {
	Count          int         `json:"anomalies_detected"`
	Items          []Indicator `json:"anomalies"`
	RiskLevel      RiskLevel   `json:"risk_level"`
	RequiresReview bool        `json:"requires_review"`
}

// HighSeverity counts HIGH anomalies
func (a Anomalies) HighSeverity() int {
	n := 0
	for _, item := range a.Items {
		if item.Severity == SeverityHigh {
			n++
		}
	}
	return n
}

// Report is the full quality audit of one decided application
type Report struct {
	ID              core.AuditID       `json:"test_id"`
	ApplicationID   core.ApplicationID `json:"application_id"`
	Applicant       string             `json:"applicant"`
	Timestamp       core.Timestamp     `json:"timestamp"`
	Decision        verdict.Outcome    `json:"final_decision"`
	Confidence      float64            `json:"confidence_score"`
	Validation      Validation         `json:"validation"`
	Bias            BiasCheck          `json:"bias_check"`
	Performance     Performance        `json:"agent_performance"`
	Anomalies       Anomalies          `json:"anomaly_detection"`
	TestScore       float64            `json:"test_score"`
	Passed          bool               `json:"passed"`
	Recommendations []string           `json:"recommendations"`
}

// Entry is one row of the audit history. The similarity check compares the
// audited application's income, loan amount and repayment score.
type Entry struct {
	Seq            int64              `json:"seq"`
	AuditID        core.AuditID       `json:"audit_id"`
	ApplicationID  core.ApplicationID `json:"application_id"`
	Income         float64            `json:"income"`
	LoanAmount     float64            `json:"loan_amount"`
	RepaymentScore float64            `json:"repayment_score"`
	Decision       verdict.Outcome    `json:"decision"`
	Report         Report             `json:"report"`
}

// Statistics aggregates the audit history
type Statistics struct {
	TotalTests       int     `json:"total_tests"`
	PassedTests      int     `json:"passed_tests"`
	FailedTests      int     `json:"failed_tests"`
	PassRate         float64 `json:"pass_rate"`
	AverageTestScore float64 `json:"average_test_score"`
	AverageFairness  float64 `json:"average_fairness_score"`
	MedianTestScore  float64 `json:"median_test_score"`
	P90TestScore     float64 `json:"p90_test_score"`
	TotalAnomalies   int     `json:"total_anomalies_detected"`
	Status           string  `json:"status,omitempty"`
	Message          string  `json:"message,omitempty"`
}
