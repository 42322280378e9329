package auditor

import (
	"context"
	"fmt"
	"strings"

	"loanverify/domain/audit"
	"loanverify/internal/errors"

	"github.com/montanaflynn/stats"
)

const healthyAverageScore = 0.80

// Statistics aggregates the whole audit history
func (a *QualityAuditor) Statistics(ctx context.Context) (audit.Statistics, error) {
	entries, err := a.history.All(ctx)
	if err != nil {
		return audit.Statistics{}, errors.Wrap(err, "read audit history")
	}
	return Summarize(entries), nil
}

// Summarize computes statistics over audit entries
func Summarize(entries []audit.Entry) audit.Statistics {
	if len(entries) == 0 {
		return audit.Statistics{Message: "No tests run yet"}
	}

	scores := make(stats.Float64Data, 0, len(entries))
	fairness := make(stats.Float64Data, 0, len(entries))
	out := audit.Statistics{TotalTests: len(entries)}
	for _, e := range entries {
		if e.Report.Passed {
			out.PassedTests++
		}
		out.TotalAnomalies += e.Report.Anomalies.Count
		scores = append(scores, e.Report.TestScore)
		fairness = append(fairness, e.Report.Bias.FairnessScore)
	}
	out.FailedTests = out.TotalTests - out.PassedTests
	out.PassRate = float64(out.PassedTests) / float64(out.TotalTests) * 100

	meanScore, _ := scores.Mean()
	meanFairness, _ := fairness.Mean()
	median, _ := scores.Median()
	p90, _ := scores.Percentile(90)

	out.AverageTestScore, _ = stats.Round(meanScore, 3)
	out.AverageFairness, _ = stats.Round(meanFairness, 2)
	out.MedianTestScore, _ = stats.Round(median, 3)
	out.P90TestScore, _ = stats.Round(p90, 3)

	out.Status = audit.StatusNeedsAttention
	if out.AverageTestScore >= healthyAverageScore {
		out.Status = audit.StatusHealthy
	}
	return out
}

// Report renders the statistics as a markdown document
func (a *QualityAuditor) Report(ctx context.Context) (string, error) {
	s, err := a.Statistics(ctx)
	if err != nil {
		return "", err
	}
	return RenderReport(s), nil
}

// RenderReport formats statistics as markdown
func RenderReport(s audit.Statistics) string {
	var b strings.Builder
	b.WriteString("# Quality Assurance Report\n\n")
	if s.TotalTests == 0 {
		b.WriteString(s.Message + "\n")
		return b.String()
	}

	b.WriteString("## Overall Statistics\n\n")
	fmt.Fprintf(&b, "- Total Tests Run: %d\n", s.TotalTests)
	fmt.Fprintf(&b, "- Passed: %d\n", s.PassedTests)
	fmt.Fprintf(&b, "- Failed: %d\n", s.FailedTests)
	fmt.Fprintf(&b, "- Pass Rate: %.1f%%\n\n", s.PassRate)

	b.WriteString("## Performance Metrics\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Average Test Score | %.3f |\n", s.AverageTestScore)
	fmt.Fprintf(&b, "| Median Test Score | %.3f |\n", s.MedianTestScore)
	fmt.Fprintf(&b, "| P90 Test Score | %.3f |\n", s.P90TestScore)
	fmt.Fprintf(&b, "| Average Fairness Score | %.2f%% |\n", s.AverageFairness)
	fmt.Fprintf(&b, "| Anomalies Detected | %d |\n\n", s.TotalAnomalies)

	fmt.Fprintf(&b, "**System Status: %s**\n", s.Status)
	return b.String()
}
