package narrative

import "fmt"

// PlanSteps is the fixed verification plan shown to applicants
var PlanSteps = []string{
	"Step 1: Credit History Verification",
	"Step 2: Employment Verification",
	"Step 3: Collateral Assessment",
	"Step 4: Cross-verification and Critique",
	"Step 5: Final Decision Making",
}

// DurationBand is the coarse processing-time estimate
type DurationBand string

const (
	DurationLow    DurationBand = "low"
	DurationMedium DurationBand = "medium"
	DurationHigh   DurationBand = "high"
)

var durationText = map[DurationBand]string{
	DurationLow:    "2-3 minutes",
	DurationMedium: "3-5 minutes",
	DurationHigh:   "5-7 minutes",
}

// Duration renders a duration band
func Duration(b DurationBand) string {
	return durationText[b]
}

func CreditStep(loans int, repayment, income float64) string {
	return fmt.Sprintf("Analyze credit profile: %d existing loans, repayment score %s, income %s", loans, Years(repayment), Money(income))
}

func EmploymentStep(company string, years float64) string {
	return fmt.Sprintf("Verify employment at %s for %s years", company, Years(years))
}

func CollateralStep(collateral, loan float64) string {
	return fmt.Sprintf("Assess collateral value %s against loan amount %s", Money(collateral), Money(loan))
}

const (
	CritiqueStep = "Cross-verify all agent outputs for consistency and accuracy"
	DecisionStep = "Synthesize all verification results into final approval decision"
)

// Greeting acknowledges receipt of an application
func Greeting(applicant, reference string) string {
	return fmt.Sprintf("Dear %s,\n\nThank you for submitting your loan application. "+
		"We have received your request and assigned it the reference number: %s.\n\n"+
		"Your application is now being processed through our verification stages to ensure a comprehensive and fair assessment.\n\n"+
		"You will receive a detailed response shortly.\n\nBest regards,\nLoan Verification Team", applicant, reference)
}
