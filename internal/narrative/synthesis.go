package narrative

import (
	"fmt"
	"strings"

	"loanverify/domain/verdict"
)

var findingText = map[verdict.Finding]string{
	verdict.FindingLowRiskConcerningEmployment: "Low credit risk conflicts with concerning employment stability",
	verdict.FindingHighRiskExcellentEmployment: "High credit risk despite excellent employment history warrants investigation",
	verdict.FindingHighRiskInsufficientCollat:  "Critical: High credit risk combined with insufficient collateral",
	verdict.FindingLowRiskHighLTV:              "Low credit risk applicant has high LTV ratio - unusual pattern",
	verdict.FindingAllPassedConcerningDTI:      "All verifications passed but DTI ratio is concerning",
	verdict.FindingAllFailed:                   "All verifications failed - confirms high-risk profile",
}

// Inconsistencies renders critique findings in order
func Inconsistencies(findings []verdict.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, findingText[f])
	}
	return out
}

var recommendationText = map[verdict.AdviceKind]string{
	verdict.AdviceDebtConsolidation:    "Consider debt consolidation before reapplying",
	verdict.AdviceCreditCounseling:     "Recommend credit counseling to improve credit profile",
	verdict.AdviceReapplyAfterTenure:   "Recommend reapplying after 1+ years of employment",
	verdict.AdviceEmploymentDocs:       "Additional employment documentation required",
	verdict.AdviceLargerDownPayment:    "Collateral shortfall of %.0f%% - consider larger down payment",
	verdict.AdviceCosignerOrCollateral: "Consider co-signer or additional collateral",
	verdict.AdviceManualReview:         "Manual review recommended due to identified inconsistencies",
	verdict.AdviceProceedStandard:      "All verifications consistent - proceed with standard approval process",
}

var conditionText = map[verdict.AdviceKind]string{
	verdict.AdviceDebtConsolidation:    "Reduce debt-to-income ratio below 50%",
	verdict.AdviceCreditCounseling:     "Provide additional credit references",
	verdict.AdviceReapplyAfterTenure:   "Provide 1+ year employment verification",
	verdict.AdviceEmploymentDocs:       "Submit additional employment documentation",
	verdict.AdviceIncreaseCollateral:   "Increase collateral by %.0f%%",
	verdict.AdviceCosignerOrCollateral: "Provide co-signer or additional collateral",
	verdict.AdviceManualReview:         "Complete manual review due to identified inconsistencies",
}

func render(table map[verdict.AdviceKind]string, advice []verdict.Advice) []string {
	out := make([]string, 0, len(advice))
	for _, a := range advice {
		text, ok := table[a.Kind]
		if !ok {
			text = string(a.Kind)
		}
		if strings.Contains(text, "%.0f") {
			text = fmt.Sprintf(text, a.Percent)
		}
		out = append(out, text)
	}
	return out
}

// Recommendations renders critique advice
func Recommendations(advice []verdict.Advice) []string {
	return render(recommendationText, advice)
}

// Conditions renders decision conditions
func Conditions(advice []verdict.Advice) []string {
	return render(conditionText, advice)
}

// CritiqueSummary renders the one-paragraph critique summary
func CritiqueSummary(findingCount int, confidence float64, v verdict.Verdicts) string {
	if findingCount > 0 {
		return fmt.Sprintf("Found %d inconsistency(ies) requiring attention. Confidence score: %s. Recommend careful review of highlighted areas.",
			findingCount, Percent(confidence))
	}
	employment := "Concerns"
	if v.Employment.Passed {
		employment = "Verified"
	}
	collateral := "Insufficient"
	if v.Collateral.Passed {
		collateral = "Sufficient"
	}
	return fmt.Sprintf("All agent outputs are consistent and coherent. Confidence score: %s. Credit: %s risk, Employment: %s, Collateral: %s.",
		Percent(confidence), v.Credit.RiskCategory, employment, collateral)
}

var outcomeVerb = map[verdict.Outcome]string{
	verdict.Approved:    "approved",
	verdict.Conditional: "conditionally approved",
	verdict.Rejected:    "rejected",
}

var rationaleText = map[verdict.Outcome]string{
	verdict.Approved: "The applicant demonstrates strong creditworthiness across all verification dimensions. " +
		"Low risk profile (%s) and consistent positive indicators support approval.",
	verdict.Conditional: "The applicant shows potential for approval with moderate risk (%s). " +
		"Conditional approval is granted subject to meeting the following requirements:",
	verdict.Rejected: "The application presents high risk (%s) with multiple verification concerns. " +
		"The applicant is encouraged to address the identified issues and reapply in the future.",
}

// Reasoning concatenates, in order: the decision preamble, each stage
// analysis, the critique summary, the rationale (with numbered conditions
// when conditional) and the numbered critique recommendations
func Reasoning(d verdict.Decision, v verdict.Verdicts, c verdict.CritiqueResult) string {
	var b strings.Builder
	risk := Percent(d.RiskScore)

	fmt.Fprintf(&b, "After comprehensive multi-agent analysis, the loan application has been %s with an overall risk score of %s.",
		outcomeVerb[d.Outcome], risk)
	b.WriteString("\n\nCredit Analysis: " + v.Credit.Analysis)
	b.WriteString("\n\nEmployment Verification: " + v.Employment.Analysis)
	b.WriteString("\n\nCollateral Assessment: " + v.Collateral.Analysis)
	b.WriteString("\n\nQuality Review: " + c.Summary)
	b.WriteString("\n\nDecision Rationale: " + fmt.Sprintf(rationaleText[d.Outcome], risk))
	if d.Outcome == verdict.Conditional {
		b.WriteString(Numbered(d.Conditions))
	}
	if len(c.Recommendations) > 0 {
		b.WriteString("\n\nRecommendations:")
		b.WriteString(Numbered(c.Recommendations))
	}
	return b.String()
}
