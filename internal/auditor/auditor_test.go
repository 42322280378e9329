package auditor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"loanverify/adapters/memory"
	"loanverify/domain/application"
	"loanverify/domain/audit"
	"loanverify/domain/core"
	"loanverify/domain/scoring"
	"loanverify/domain/verdict"
	"loanverify/internal"
	"loanverify/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

func newAuditor(h *memory.AuditHistory, opts ...Option) *QualityAuditor {
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(internal.NewLoggerTo(&strings.Builder{}, internal.LogLevelError)),
	}
	return New(h, append(base, opts...)...)
}

func approvedOpinions() []audit.Opinion {
	return []audit.Opinion{
		{Stage: "credit_history", Decision: verdict.Approved, Confidence: 0.90},
		{Stage: "employment", Decision: verdict.Approved, Confidence: 0.85},
		{Stage: "collateral", Decision: verdict.Approved, Confidence: 0.90},
		{Stage: "critique", Decision: verdict.Approved, Confidence: 0.95},
		{Stage: "final_decision", Decision: verdict.Approved, Confidence: 0.95},
	}
}

func strongSubject() Subject {
	return Subject{
		ApplicationID: "APP-20260301-STRONG01",
		Application: application.Application{
			Name: "Test User", Income: 120000, LoanAmount: 200000, RepaymentScore: 0.92,
			ExistingLoans: 1, EmploymentYears: 8, CompanyName: "Tech Corp", CollateralValue: 300000,
		},
		Decision:   verdict.Approved,
		Confidence: 0.95,
		Reasoning:  strings.Repeat("Strong financial profile with excellent repayment history. ", 3),
		Opinions:   approvedOpinions(),
	}
}

func TestEvaluateStrongApproval(t *testing.T) {
	report := newAuditor(memory.NewAuditHistory()).Evaluate(strongSubject(), nil)

	assert.Regexp(t, `^TEST-20260301123000-[0-9a-f]{4}$`, string(report.ID))
	assert.Equal(t, 2, report.Validation.TotalRules)
	assert.Equal(t, 2, report.Validation.PassedRules)
	assert.Equal(t, 100.0, report.Validation.Accuracy)
	assert.Equal(t, audit.ValidationPass, report.Validation.Status)
	assert.Equal(t, 100.0, report.Bias.FairnessScore)
	assert.Equal(t, audit.BiasFair, report.Bias.Status)
	assert.Equal(t, 0, report.Anomalies.Count)
	assert.Equal(t, audit.RiskLow, report.Anomalies.RiskLevel)
	assert.InDelta(t, 0.91, report.Performance.AverageConfidence, 1e-9)
	assert.Equal(t, 1.0, report.Performance.ConsensusStrength)
	// .35 + .30 + .20*.91 + .15
	assert.InDelta(t, 0.982, report.TestScore, 1e-9)
	assert.True(t, report.Passed)
	assert.Equal(t, []string{"PASSED: All tests passed. Decision appears valid."}, report.Recommendations)
}

func TestValidationReasons(t *testing.T) {
	a := newAuditor(memory.NewAuditHistory())

	s := strongSubject()
	s.Confidence = 0.80
	report := a.Evaluate(s, nil)
	require.NotEmpty(t, report.Validation.Checks)
	assert.Equal(t, "Confidence level below expected threshold", report.Validation.Checks[0].Reason)
	assert.Equal(t, 0.0, report.Validation.Accuracy)

	s.Decision = verdict.Rejected
	report = a.Evaluate(s, nil)
	assert.Equal(t, "Decision does not match expected pattern", report.Validation.Checks[0].Reason)
	assert.Equal(t, audit.ValidationFail, report.Validation.Status)
}

func TestNoApplicableRulesIsFullAccuracy(t *testing.T) {
	s := strongSubject()
	s.Application.Income = 70000
	s.Application.LoanAmount = 150000
	s.Application.RepaymentScore = 0.75

	report := newAuditor(memory.NewAuditHistory()).Evaluate(s, nil)
	assert.Equal(t, 0, report.Validation.TotalRules)
	assert.Equal(t, 100.0, report.Validation.Accuracy)
	assert.NotNil(t, report.Validation.Checks)
}

func TestAnomalyDetection(t *testing.T) {
	s := Subject{
		ApplicationID: "APP-20260301-ANOMALY1",
		Application: application.Application{
			Name: "Anomaly User", Income: 50000, LoanAmount: 600000, RepaymentScore: 0.60,
			ExistingLoans: 2, EmploymentYears: 3, CompanyName: "Startup", CollateralValue: 100000,
		},
		Decision:   verdict.Approved,
		Confidence: 0.98,
		Reasoning:  "OK",
	}

	report := newAuditor(memory.NewAuditHistory()).Evaluate(s, nil)

	types := make([]string, 0)
	for _, item := range report.Anomalies.Items {
		types = append(types, item.Type)
	}
	assert.Equal(t, []string{
		audit.AnomalyConfidentWeakReason,
		audit.AnomalyExtremeDTIApproved,
		audit.AnomalyInsufficientCollateral,
	}, types)
	assert.Equal(t, audit.RiskHigh, report.Anomalies.RiskLevel)
	assert.True(t, report.Anomalies.RequiresReview)
	assert.Contains(t, report.Anomalies.Items[1].Description, "$600,000.00")

	assert.Equal(t, 0.0, report.Validation.Accuracy, "high_debt_ratio expects rejection")
	// 0 + .30 + 0 + .15*(1-.3)
	assert.InDelta(t, 0.405, report.TestScore, 1e-9)
	assert.False(t, report.Passed)
	assert.Equal(t, "REVIEW: Decision accuracy below 80%. Review validation rules and stage logic.", report.Recommendations[0])
	assert.True(t, strings.HasPrefix(report.Recommendations[1], "URGENT: EXTREME_DTI_APPROVED - "))
}

func TestNoConsensusAnomaly(t *testing.T) {
	s := strongSubject()
	s.Opinions = []audit.Opinion{
		{Stage: "a", Decision: verdict.Approved, Confidence: 0.9},
		{Stage: "b", Decision: verdict.Conditional, Confidence: 0.9},
		{Stage: "c", Decision: verdict.Rejected, Confidence: 0.9},
		{Stage: "d", Decision: verdict.Outcome("UNKNOWN"), Confidence: 0.9},
	}
	report := newAuditor(memory.NewAuditHistory()).Evaluate(s, nil)

	require.Equal(t, 1, report.Anomalies.Count)
	assert.Equal(t, audit.AnomalyNoConsensus, report.Anomalies.Items[0].Type)
	assert.Equal(t, 0.25, report.Performance.ConsensusStrength)
}

func TestRiskLevels(t *testing.T) {
	high := audit.Indicator{Severity: audit.SeverityHigh}
	medium := audit.Indicator{Severity: audit.SeverityMedium}

	assert.Equal(t, audit.RiskLow, riskLevel(nil))
	assert.Equal(t, audit.RiskLow, riskLevel([]audit.Indicator{medium}))
	assert.Equal(t, audit.RiskMedium, riskLevel([]audit.Indicator{medium, medium}))
	assert.Equal(t, audit.RiskHigh, riskLevel([]audit.Indicator{high, medium, medium}))
	assert.Equal(t, audit.RiskCritical, riskLevel([]audit.Indicator{high, high}))
}

func TestBiasIndicators(t *testing.T) {
	s := Subject{
		ApplicationID: "APP-20260301-BIAS0001",
		Application: application.Application{
			Name: "Low Income User", Income: 45000, LoanAmount: 120000, RepaymentScore: 0.85,
			ExistingLoans: 1, EmploymentYears: 6, CompanyName: "Small Business", CollateralValue: 150000,
		},
		Decision:   verdict.Rejected,
		Confidence: 0.80,
		Reasoning:  "Income level concerns",
	}
	report := newAuditor(memory.NewAuditHistory()).Evaluate(s, nil)

	require.Len(t, report.Bias.Indicators, 2)
	assert.Equal(t, audit.IndicatorIncomeBias, report.Bias.Indicators[0].Type)
	assert.Equal(t, audit.IndicatorExperienceBias, report.Bias.Indicators[1].Type)
	assert.InDelta(t, 75.0, report.Bias.FairnessScore, 1e-9)
	assert.Equal(t, audit.BiasReviewNeeded, report.Bias.Status)
	assert.Contains(t, report.Recommendations, "BIAS_ALERT: Potential bias detected. Review decision for fairness and consistency.")
}

func entry(income, loan, repayment float64, decision verdict.Outcome) audit.Entry {
	return audit.Entry{Income: income, LoanAmount: loan, RepaymentScore: repayment, Decision: decision}
}

func TestConsistencyAgainstSimilarHistory(t *testing.T) {
	a := newAuditor(memory.NewAuditHistory())
	s := strongSubject()
	s.Decision = verdict.Rejected

	history := []audit.Entry{
		entry(118000, 205000, 0.90, verdict.Approved),
		entry(125000, 190000, 0.95, verdict.Approved),
		entry(0, 0, 0, verdict.Approved), // every field skipped, so similar
		entry(60000, 200000, 0.92, verdict.Rejected),
	}
	report := a.Evaluate(s, history)

	assert.Equal(t, 3, report.Bias.SimilarCases)
	require.NotEmpty(t, report.Bias.Indicators)
	last := report.Bias.Indicators[len(report.Bias.Indicators)-1]
	assert.Equal(t, audit.IndicatorInconsistency, last.Type)
	assert.Equal(t, audit.SeverityHigh, last.Severity)
	assert.Equal(t, "Decision differs from 3/3 similar cases", last.Description)
}

func TestConsistencyTieIsNotFlagged(t *testing.T) {
	s := strongSubject()
	history := []audit.Entry{
		entry(120000, 200000, 0.92, verdict.Approved),
		entry(120000, 200000, 0.92, verdict.Rejected),
	}
	report := newAuditor(memory.NewAuditHistory()).Evaluate(s, history)
	assert.Equal(t, 2, report.Bias.SimilarCases)
	assert.Equal(t, 100.0, report.Bias.FairnessScore)
	assert.Equal(t, "Decision consistent with 2 similar case(s)", report.Bias.Consistency)
}

func TestConsistencyOnlyConsultsWindow(t *testing.T) {
	s := strongSubject()
	history := make([]audit.Entry, 0, 25)
	for i := 0; i < 5; i++ {
		history = append(history, entry(120000, 200000, 0.92, verdict.Rejected))
	}
	for i := 0; i < 20; i++ {
		history = append(history, entry(20000, 900000, 0.10, verdict.Rejected))
	}

	report := newAuditor(memory.NewAuditHistory()).Evaluate(s, history)
	assert.Equal(t, 0, report.Bias.SimilarCases)
	assert.Equal(t, "No similar cases found for comparison", report.Bias.Consistency)
}

func TestAuditAppendsToHistory(t *testing.T) {
	ctx := context.Background()
	h := memory.NewAuditHistory()
	a := newAuditor(h)

	report, err := a.Audit(ctx, strongSubject())
	require.NoError(t, err)

	all, err := h.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, report.ID, all[0].AuditID)
	assert.Equal(t, 120000.0, all[0].Income)
	assert.Equal(t, verdict.Approved, all[0].Decision)

	// a contradicting decision on the same profile is now inconsistent
	s := strongSubject()
	s.Decision = verdict.Rejected
	second, err := a.Audit(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Bias.SimilarCases)
	// inconsistency plus the tenured, good-repayment rejection indicator
	assert.InDelta(t, 70.0, second.Bias.FairnessScore, 1e-9)
}

func TestConcurrentAuditsKeepHistoryOrdered(t *testing.T) {
	ctx := context.Background()
	h := memory.NewAuditHistory()
	a := New(h, WithLogger(internal.NewLoggerTo(&strings.Builder{}, internal.LogLevelError)))

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Audit(ctx, strongSubject())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := h.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 30)
	for i, e := range all {
		assert.Equal(t, int64(i+1), e.Seq)
		// each audit saw exactly the entries appended before it, capped by the window
		want := i
		if want > DefaultWindow {
			want = DefaultWindow
		}
		assert.Equal(t, want, e.Report.Bias.SimilarCases)
	}
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	h := memory.NewAuditHistory()
	a := newAuditor(h)

	empty, err := a.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalTests)
	assert.Equal(t, "No tests run yet", empty.Message)

	scores := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	for _, score := range scores {
		_, err := h.Append(ctx, audit.Entry{Report: audit.Report{
			TestScore: score,
			Passed:    score >= 0.70,
			Bias:      audit.BiasCheck{FairnessScore: 90},
			Anomalies: audit.Anomalies{Count: 1},
		}})
		require.NoError(t, err)
	}

	s, err := a.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, s.TotalTests)
	assert.Equal(t, 4, s.PassedTests)
	assert.Equal(t, 6, s.FailedTests)
	assert.InDelta(t, 40.0, s.PassRate, 1e-9)
	assert.InDelta(t, 0.55, s.AverageTestScore, 1e-9)
	assert.InDelta(t, 0.55, s.MedianTestScore, 1e-9)
	assert.InDelta(t, 0.9, s.P90TestScore, 1e-9)
	assert.InDelta(t, 90.0, s.AverageFairness, 1e-9)
	assert.Equal(t, 10, s.TotalAnomalies)
	assert.Equal(t, audit.StatusNeedsAttention, s.Status)

	report, err := a.Report(ctx)
	require.NoError(t, err)
	assert.Contains(t, report, "# Quality Assurance Report")
	assert.Contains(t, report, "- Total Tests Run: 10")
	assert.Contains(t, report, "| P90 Test Score | 0.900 |")
	assert.Contains(t, report, "**System Status: NEEDS_ATTENTION**")
}

func TestSubjectFromStoredMatchesFreshRun(t *testing.T) {
	ctx := context.Background()
	store := memory.NewApplicationStore()
	runner := pipeline.NewRunner(scoring.DefaultParameters(), store,
		pipeline.WithLogger(internal.NewLoggerTo(&strings.Builder{}, internal.LogLevelError)))

	app := application.Application{
		Name: "Alice", Income: 120000, LoanAmount: 250000, ExistingLoans: 1,
		RepaymentScore: 0.95, EmploymentYears: 8, CompanyName: "Microsoft", CollateralValue: 350000,
	}
	rec, err := runner.Evaluate(ctx, app)
	require.NoError(t, err)

	stored, err := store.Get(ctx, rec.ApplicationID)
	require.NoError(t, err)

	fromStore, err := SubjectFromStored(*stored)
	require.NoError(t, err)
	fresh := SubjectFromRecord(rec)

	assert.Equal(t, fresh.Decision, fromStore.Decision)
	assert.Equal(t, fresh.Confidence, fromStore.Confidence)
	assert.Equal(t, fresh.Opinions, fromStore.Opinions)
	assert.Equal(t, fresh.Reasoning, fromStore.Reasoning)
	assert.Len(t, fresh.Opinions, 5)
}

func TestSubjectFromStoredRequiresDecision(t *testing.T) {
	rec := application.NewRecord("APP-1", application.Application{Name: "x"})
	_, err := SubjectFromStored(rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotDecided)
}
