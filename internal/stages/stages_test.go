package stages

import (
	"context"
	"math"
	"testing"

	"loanverify/domain/application"
	"loanverify/domain/scoring"
	"loanverify/domain/verdict"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioA() application.Application {
	return application.Application{
		Name: "Alice Strong", Income: 120000, LoanAmount: 250000, ExistingLoans: 1,
		RepaymentScore: 0.95, EmploymentYears: 8, CompanyName: "Microsoft", CollateralValue: 350000,
	}
}

func scenarioB() application.Application {
	return application.Application{
		Name: "Bob Weak", Income: 35000, LoanAmount: 200000, ExistingLoans: 5,
		RepaymentScore: 0.45, EmploymentYears: 0.5, CompanyName: "Small Startup", CollateralValue: 80000,
	}
}

type chain struct {
	credit     *CreditStage
	employment *EmploymentStage
	collateral *CollateralStage
	critique   *CritiqueStage
	decision   *DecisionStage
}

func newChain() chain {
	p := scoring.DefaultParameters()
	return chain{
		credit:     NewCreditStage(p),
		employment: NewEmploymentStage(p),
		collateral: NewCollateralStage(p),
		critique:   NewCritiqueStage(p),
		decision:   NewDecisionStage(p),
	}
}

func (c chain) run(t *testing.T, app application.Application) (verdict.Verdicts, verdict.CritiqueResult, verdict.Decision) {
	t.Helper()
	ctx := context.Background()

	credit, err := c.credit.AssessCredit(ctx, app)
	require.NoError(t, err)
	employment, err := c.employment.AssessEmployment(ctx, app)
	require.NoError(t, err)
	collateral, err := c.collateral.AssessCollateral(ctx, app)
	require.NoError(t, err)

	v := verdict.Verdicts{Credit: credit, Employment: employment, Collateral: collateral}
	crit, err := c.critique.Critique(ctx, v)
	require.NoError(t, err)
	d, err := c.decision.Decide(ctx, v, crit)
	require.NoError(t, err)
	return v, crit, d
}

func TestScenarioAApproved(t *testing.T) {
	v, crit, d := newChain().run(t, scenarioA())

	assert.True(t, v.Credit.Passed)
	assert.Equal(t, scoring.RiskLow, v.Credit.RiskCategory)
	assert.True(t, v.Employment.Passed)
	assert.True(t, v.Employment.KnownEmployer)
	assert.Equal(t, scoring.StabilityExcellent, v.Employment.Stability)
	assert.True(t, v.Collateral.Passed)

	assert.Empty(t, crit.Findings)
	assert.InDelta(t, 0.95, crit.ConfidenceScore, 1e-9)
	assert.Equal(t, []string{"All verifications consistent - proceed with standard approval process"}, crit.Recommendations)

	assert.Equal(t, verdict.Approved, d.Outcome)
	assert.LessOrEqual(t, d.RiskScore, 0.3)
	assert.InDelta(t, 0.1+0.0525+0.05+0.05+0.005, d.RiskScore, 1e-9)
	assert.Empty(t, d.Conditions)
}

func TestScenarioBRejected(t *testing.T) {
	v, crit, d := newChain().run(t, scenarioB())

	assert.False(t, v.Credit.Passed)
	assert.Equal(t, scoring.RiskHigh, v.Credit.RiskCategory)
	assert.False(t, v.Collateral.Passed)
	assert.False(t, v.Employment.Passed)
	assert.True(t, v.Employment.EmploymentVerified, "half a year of tenure is still verifiable")
	assert.False(t, v.Employment.KnownEmployer)

	assert.Contains(t, crit.Findings, verdict.FindingHighRiskInsufficientCollat)
	assert.Contains(t, crit.Findings, verdict.FindingAllFailed)
	// 0.95 - 2*0.10 - 3*0.05
	assert.InDelta(t, 0.6, crit.ConfidenceScore, 1e-9)

	assert.Equal(t, verdict.Rejected, d.Outcome)
	assert.Empty(t, d.Conditions)
}

func TestScenarioCZeroCollateral(t *testing.T) {
	app := scenarioA()
	app.CollateralValue = 0
	app.LoanAmount = 150000

	v, err := newChain().collateral.AssessCollateral(context.Background(), app)
	require.NoError(t, err)

	assert.True(t, math.IsInf(v.LoanToValue, 1))
	assert.False(t, v.CollateralSufficient)
	assert.False(t, v.Passed)
	assert.Equal(t, scoring.CoverageInsufficient, v.CoverageTier)
	assert.Contains(t, v.Analysis, "no collateral declared")
}

func TestVerificationStagesAreIdempotent(t *testing.T) {
	c := newChain()
	ctx := context.Background()
	for _, app := range []application.Application{scenarioA(), scenarioB()} {
		c1, _ := c.credit.AssessCredit(ctx, app)
		c2, _ := c.credit.AssessCredit(ctx, app)
		assert.Equal(t, c1, c2)

		e1, _ := c.employment.AssessEmployment(ctx, app)
		e2, _ := c.employment.AssessEmployment(ctx, app)
		assert.Equal(t, e1, e2)

		l1, _ := c.collateral.AssessCollateral(ctx, app)
		l2, _ := c.collateral.AssessCollateral(ctx, app)
		assert.Equal(t, math.Float64bits(l1.EffectiveCoverage), math.Float64bits(l2.EffectiveCoverage))
		assert.Equal(t, l1, l2)
	}
}

func TestCreditPassRequiresModerateDTI(t *testing.T) {
	app := scenarioA()
	app.Income = 40000
	app.LoanAmount = 100000
	app.ExistingLoans = 0
	app.RepaymentScore = 1.0

	v, err := newChain().credit.AssessCredit(context.Background(), app)
	require.NoError(t, err)
	// (0 + 500) / 3333.33 = 0.15
	assert.True(t, v.Passed)

	app.ExistingLoans = 2
	app.LoanAmount = 300000
	v, err = newChain().credit.AssessCredit(context.Background(), app)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v.DebtToIncome, 0.5)
	assert.False(t, v.Passed)
}

func TestEmploymentPassNeedsOneYear(t *testing.T) {
	app := scenarioA()
	app.EmploymentYears = 0.99
	v, err := newChain().employment.AssessEmployment(context.Background(), app)
	require.NoError(t, err)
	assert.True(t, v.EmploymentVerified)
	assert.False(t, v.Passed)
	assert.Equal(t, scoring.StabilityConcerning, v.Stability)

	app.EmploymentYears = 0.4
	v, _ = newChain().employment.AssessEmployment(context.Background(), app)
	assert.False(t, v.EmploymentVerified)
	assert.Contains(t, v.Analysis, "Unable to fully verify employment history")
}

func TestUnknownEmployerStillVerified(t *testing.T) {
	app := scenarioA()
	app.CompanyName = "Corner Bakery"
	v, err := newChain().employment.AssessEmployment(context.Background(), app)
	require.NoError(t, err)

	assert.True(t, v.CompanyVerified)
	assert.False(t, v.KnownEmployer)
	assert.True(t, v.Passed)
	assert.Less(t, v.Confidence, 0.85)
	assert.Equal(t, 3.5, v.CompanyRating)
}

func TestCreditStageRejectsNonFiniteInput(t *testing.T) {
	app := scenarioA()
	app.Income = math.NaN()
	_, err := newChain().credit.AssessCredit(context.Background(), app)
	require.Error(t, err)
}
