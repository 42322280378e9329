// Package auditor is the quality-assurance layer that audits the pipeline's
// own decisions for rule accuracy, fairness, stage agreement and anomalies.
// It runs outside the approval path and never changes a decision.
package auditor

import (
	"context"
	"fmt"
	"math"
	"time"

	"loanverify/domain/application"
	"loanverify/domain/audit"
	"loanverify/domain/core"
	"loanverify/domain/verdict"
	"loanverify/internal"
	"loanverify/internal/errors"
	"loanverify/internal/narrative"
	"loanverify/ports"

	"github.com/montanaflynn/stats"
)

const (
	// DefaultWindow is how many recent audits the similarity check consults
	DefaultWindow = 20

	similarityTolerance = 0.20
	passThreshold       = 0.70
	sectionThreshold    = 80.0
	goodConfidence      = 0.70

	lowIncome            = 50000.0
	reasonableLoanIncome = 3.0
	tenuredYears         = 5.0
	goodRepayment        = 0.70

	weakReasoningConfidence = 0.95
	weakReasoningLength     = 100
	extremeLoanMultiple     = 10.0
	thinCollateralRatio     = 0.5
)

// QualityAuditor audits decided applications against an injected history
type QualityAuditor struct {
	history ports.AuditHistory
	rules   []Rule
	window  int
	now     func() time.Time
	logger  *internal.Logger
}

// Option configures a QualityAuditor
type Option func(*QualityAuditor)

func WithRules(rules []Rule) Option { return func(a *QualityAuditor) { a.rules = rules } }

func WithWindow(n int) Option { return func(a *QualityAuditor) { a.window = n } }

func WithClock(now func() time.Time) Option { return func(a *QualityAuditor) { a.now = now } }

func WithLogger(l *internal.Logger) Option {
	return func(a *QualityAuditor) { a.logger = l.With("Auditor") }
}

func New(history ports.AuditHistory, opts ...Option) *QualityAuditor {
	a := &QualityAuditor{
		history: history,
		rules:   DefaultRules,
		window:  DefaultWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.window <= 0 {
		a.window = DefaultWindow
	}
	if a.logger == nil {
		a.logger = internal.NewDefaultLogger().With("Auditor")
	}
	return a
}

// Audit evaluates the subject against the recent history and appends the
// result. The read and the append happen under the history's writer lock.
func (a *QualityAuditor) Audit(ctx context.Context, s Subject) (*audit.Report, error) {
	var report audit.Report
	err := a.history.WithLock(ctx, func(ctx context.Context) error {
		recent, err := a.history.Recent(ctx, a.window)
		if err != nil {
			return errors.Wrap(err, "read audit history")
		}
		report = a.Evaluate(s, recent)

		_, err = a.history.Append(ctx, audit.Entry{
			AuditID:        report.ID,
			ApplicationID:  s.ApplicationID,
			Income:         s.Application.Income,
			LoanAmount:     s.Application.LoanAmount,
			RepaymentScore: s.Application.RepaymentScore,
			Decision:       s.Decision,
			Report:         report,
		})
		if err != nil {
			return errors.Wrap(err, "append audit history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("%s audited as %s: score %.3f, fairness %.0f, %d anomalies",
		s.ApplicationID, report.ID, report.TestScore, report.Bias.FairnessScore, report.Anomalies.Count)
	return &report, nil
}

// AuditStored audits a stored, decided application after the fact
func (a *QualityAuditor) AuditStored(ctx context.Context, rec application.Record) (*audit.Report, error) {
	s, err := SubjectFromStored(rec)
	if err != nil {
		return nil, err
	}
	return a.Audit(ctx, s)
}

// Evaluate computes a report against the given prior entries without
// touching the history
func (a *QualityAuditor) Evaluate(s Subject, recent []audit.Entry) audit.Report {
	now := a.now()
	validation := a.validate(s)
	bias := a.checkBias(s, recent)
	performance := analyzePerformance(s.Opinions)
	anomalies := detectAnomalies(s)
	score := testScore(validation, bias, performance, anomalies)

	return audit.Report{
		ID:              core.NewAuditID(now),
		ApplicationID:   s.ApplicationID,
		Applicant:       s.Application.Name,
		Timestamp:       core.NewTimestamp(now),
		Decision:        s.Decision,
		Confidence:      s.Confidence,
		Validation:      validation,
		Bias:            bias,
		Performance:     performance,
		Anomalies:       anomalies,
		TestScore:       score,
		Passed:          score >= passThreshold,
		Recommendations: recommendations(validation, bias, anomalies),
	}
}

func (a *QualityAuditor) validate(s Subject) audit.Validation {
	v := audit.Validation{Checks: make([]audit.RuleCheck, 0)}
	for _, rule := range a.rules {
		if !rule.Applies(s.Application) {
			continue
		}
		v.TotalRules++

		decisionMatch := s.Decision == rule.Expected
		confidenceMatch := !decisionMatch || s.Confidence >= rule.MinConfidence
		passed := decisionMatch && confidenceMatch
		if passed {
			v.PassedRules++
		}
		v.Checks = append(v.Checks, audit.RuleCheck{
			Rule:               rule.Name,
			ExpectedDecision:   rule.Expected,
			ActualDecision:     s.Decision,
			ExpectedConfidence: rule.MinConfidence,
			ActualConfidence:   s.Confidence,
			Passed:             passed,
			Reason:             validationReason(decisionMatch, confidenceMatch),
		})
	}

	v.Accuracy = 100
	if v.TotalRules > 0 {
		v.Accuracy = float64(v.PassedRules) / float64(v.TotalRules) * 100
	}
	v.Status = audit.ValidationPass
	if v.Accuracy < sectionThreshold {
		v.Status = audit.ValidationFail
	}
	return v
}

func (a *QualityAuditor) checkBias(s Subject, recent []audit.Entry) audit.BiasCheck {
	app := s.Application
	score := 1.0
	indicators := make([]audit.Indicator, 0)
	rejected := s.Decision == verdict.Rejected

	if rejected && app.Income < lowIncome && app.LoanToIncome() < reasonableLoanIncome {
		indicators = append(indicators, audit.Indicator{
			Type:        audit.IndicatorIncomeBias,
			Severity:    audit.SeverityMedium,
			Description: "Low income applicant rejected despite reasonable DTI ratio",
		})
		score -= 0.15
	}
	if rejected && app.EmploymentYears >= tenuredYears && app.RepaymentScore > goodRepayment {
		indicators = append(indicators, audit.Indicator{
			Type:        audit.IndicatorExperienceBias,
			Severity:    audit.SeverityLow,
			Description: "Experienced applicant with good repayment rejected",
		})
		score -= 0.10
	}

	similar, differing := consistency(s, a.lastN(recent))
	description := "No similar cases found for comparison"
	if similar > 0 {
		description = fmt.Sprintf("Decision consistent with %d similar case(s)", similar)
	}
	if similar > 0 && float64(differing) > float64(similar)/2 {
		description = fmt.Sprintf("Decision differs from %d/%d similar cases", differing, similar)
		indicators = append(indicators, audit.Indicator{
			Type:        audit.IndicatorInconsistency,
			Severity:    audit.SeverityHigh,
			Description: description,
		})
		score -= 0.20
	}

	fairness := math.Max(0, score*100)
	status := audit.BiasFair
	if fairness < sectionThreshold {
		status = audit.BiasReviewNeeded
	}
	return audit.BiasCheck{
		FairnessScore: fairness,
		Indicators:    indicators,
		BiasDetected:  len(indicators) > 0,
		SimilarCases:  similar,
		Consistency:   description,
		Status:        status,
	}
}

// lastN trims the history to the configured window
func (a *QualityAuditor) lastN(entries []audit.Entry) []audit.Entry {
	if len(entries) > a.window {
		return entries[len(entries)-a.window:]
	}
	return entries
}

// consistency counts similar prior cases and how many of them were decided
// differently
func consistency(s Subject, recent []audit.Entry) (similar, differing int) {
	for _, e := range recent {
		if !isSimilar(s.Application, e) {
			continue
		}
		similar++
		if e.Decision != s.Decision {
			differing++
		}
	}
	return similar, differing
}

// isSimilar compares income, loan amount and repayment score with a 20%
// tolerance relative to the current application. Fields that are zero on
// either side are skipped.
func isSimilar(app application.Application, e audit.Entry) bool {
	pairs := [][2]float64{
		{app.Income, e.Income},
		{app.LoanAmount, e.LoanAmount},
		{app.RepaymentScore, e.RepaymentScore},
	}
	for _, p := range pairs {
		current, prior := p[0], p[1]
		if current > 0 && prior > 0 && math.Abs(current-prior)/current > similarityTolerance {
			return false
		}
	}
	return true
}

func analyzePerformance(opinions []audit.Opinion) audit.Performance {
	perf := audit.Performance{
		StagesAnalyzed: len(opinions),
		Scores:         make(map[string]audit.StageScore, len(opinions)),
	}
	if len(opinions) == 0 {
		return perf
	}

	confidences := make(stats.Float64Data, 0, len(opinions))
	counts := make(map[verdict.Outcome]int)
	for _, o := range opinions {
		rating := audit.PerformanceNeedsReview
		if o.Confidence >= goodConfidence {
			rating = audit.PerformanceGood
		}
		perf.Scores[o.Stage] = audit.StageScore{Decision: o.Decision, Confidence: o.Confidence, Performance: rating}
		confidences = append(confidences, o.Confidence)
		counts[o.Decision]++
	}

	if mean, err := confidences.Mean(); err == nil {
		perf.AverageConfidence = mean
	}
	most := 0
	for _, n := range counts {
		if n > most {
			most = n
		}
	}
	perf.ConsensusStrength = float64(most) / float64(len(opinions))
	return perf
}

func detectAnomalies(s Subject) audit.Anomalies {
	app := s.Application
	items := make([]audit.Indicator, 0)
	approved := s.Decision == verdict.Approved

	if s.Confidence > weakReasoningConfidence && len(s.Reasoning) < weakReasoningLength {
		items = append(items, audit.Indicator{
			Type:        audit.AnomalyConfidentWeakReason,
			Severity:    audit.SeverityMedium,
			Description: "Very high confidence but insufficient reasoning provided",
		})
	}

	if len(s.Opinions) > 3 {
		distinct := make(map[verdict.Outcome]struct{}, len(s.Opinions))
		for _, o := range s.Opinions {
			distinct[o.Decision] = struct{}{}
		}
		if len(distinct) == len(s.Opinions) {
			items = append(items, audit.Indicator{
				Type:        audit.AnomalyNoConsensus,
				Severity:    audit.SeverityHigh,
				Description: "All stages reported different decisions",
			})
		}
	}

	if approved && app.LoanAmount > app.Income*extremeLoanMultiple {
		items = append(items, audit.Indicator{
			Type:     audit.AnomalyExtremeDTIApproved,
			Severity: audit.SeverityHigh,
			Description: fmt.Sprintf("Loan amount %s is >10x income %s but approved",
				narrative.Money(app.LoanAmount), narrative.Money(app.Income)),
		})
	}

	if approved && app.CollateralValue < app.LoanAmount*thinCollateralRatio {
		items = append(items, audit.Indicator{
			Type:        audit.AnomalyInsufficientCollateral,
			Severity:    audit.SeverityMedium,
			Description: "Collateral less than 50% of loan amount",
		})
	}

	return audit.Anomalies{
		Count:          len(items),
		Items:          items,
		RiskLevel:      riskLevel(items),
		RequiresReview: len(items) > 0,
	}
}

func riskLevel(items []audit.Indicator) audit.RiskLevel {
	var high, medium int
	for _, item := range items {
		switch item.Severity {
		case audit.SeverityHigh:
			high++
		case audit.SeverityMedium:
			medium++
		}
	}
	switch {
	case high >= 2:
		return audit.RiskCritical
	case high >= 1:
		return audit.RiskHigh
	case medium >= 2:
		return audit.RiskMedium
	default:
		return audit.RiskLow
	}
}

// testScore weighs accuracy .35, fairness .30, stage confidence .20 and
// anomaly freedom .15, rounded to three decimals
func testScore(v audit.Validation, b audit.BiasCheck, p audit.Performance, an audit.Anomalies) float64 {
	anomalyTerm := math.Max(0, 1-0.1*float64(an.Count))
	total := 0.35*v.Accuracy/100 + 0.30*b.FairnessScore/100 + 0.20*p.AverageConfidence + 0.15*anomalyTerm
	rounded, err := stats.Round(total, 3)
	if err != nil {
		return total
	}
	return rounded
}

func recommendations(v audit.Validation, b audit.BiasCheck, an audit.Anomalies) []string {
	out := make([]string, 0)
	if v.Accuracy < sectionThreshold {
		out = append(out, "REVIEW: Decision accuracy below 80%. Review validation rules and stage logic.")
	}
	if b.FairnessScore < sectionThreshold {
		out = append(out, "BIAS_ALERT: Potential bias detected. Review decision for fairness and consistency.")
	}
	for _, item := range an.Items {
		if item.Severity == audit.SeverityHigh {
			out = append(out, fmt.Sprintf("URGENT: %s - %s", item.Type, item.Description))
		}
	}
	if len(out) == 0 {
		out = append(out, "PASSED: All tests passed. Decision appears valid.")
	}
	return out
}
