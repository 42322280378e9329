package testkit

import (
	"fmt"
	"math/rand"

	"loanverify/domain/application"
)

// Profile selects the shape of a generated applicant
type Profile string

const (
	ProfileStrong   Profile = "strong"
	ProfileModerate Profile = "moderate"
	ProfileWeak     Profile = "weak"
	ProfileEdgeCase Profile = "edge_case"
	ProfileRandom   Profile = "random"
)

// EdgeCase names one boundary scenario of the edge_case profile
type EdgeCase string

const (
	EdgeZeroIncome        EdgeCase = "zero_income"
	EdgeExtremeDTI        EdgeCase = "extreme_dti"
	EdgePerfectScore      EdgeCase = "perfect_score"
	EdgeZeroCollateral    EdgeCase = "zero_collateral"
	EdgeMaximumLoans      EdgeCase = "maximum_loans"
	EdgeMinimalEmployment EdgeCase = "minimal_employment"
)

// EdgeCases lists every edge scenario in selection order
var EdgeCases = []EdgeCase{
	EdgeZeroIncome,
	EdgeExtremeDTI,
	EdgePerfectScore,
	EdgeZeroCollateral,
	EdgeMaximumLoans,
	EdgeMinimalEmployment,
}

// Distribution weights profiles for Batch. Weights need not sum to one.
type Distribution map[Profile]float64

// profileOrder fixes the cumulative walk so a seed always yields the same batch
var profileOrder = []Profile{ProfileStrong, ProfileModerate, ProfileWeak, ProfileEdgeCase, ProfileRandom}

// DefaultDistribution is the mix used when Batch gets no distribution
func DefaultDistribution() Distribution {
	return Distribution{
		ProfileStrong:   0.25,
		ProfileModerate: 0.45,
		ProfileWeak:     0.25,
		ProfileEdgeCase: 0.05,
	}
}

// StressDistribution is the mix used for stress batches
func StressDistribution() Distribution {
	return Distribution{
		ProfileStrong:   0.30,
		ProfileModerate: 0.40,
		ProfileWeak:     0.25,
		ProfileEdgeCase: 0.05,
	}
}

// GeneratorConfig configures synthetic application generation
type GeneratorConfig struct {
	Seed int64
}

// DefaultGeneratorConfig returns a fixed seed so runs are reproducible
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{Seed: 42}
}

// Generator creates synthetic loan applications
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a seeded generator
func NewGenerator(config GeneratorConfig) *Generator {
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Seed returns the seed the generator was built with
func (g *Generator) Seed() int64 {
	return g.config.Seed
}

var companyNames = []string{
	"Tech Corp", "Finance Inc", "Retail Solutions", "Manufacturing Co",
	"Healthcare Systems", "Education Services", "Construction Ltd",
	"Restaurant Group", "Software Innovations", "Consulting Partners",
	"Energy Solutions", "Transportation Services", "Media Network",
	"Biotech Research", "Legal Associates", "Startup Ventures",
}

var firstNames = []string{
	"James", "Mary", "John", "Patricia", "Robert", "Jennifer", "Michael",
	"Linda", "William", "Elizabeth", "David", "Barbara", "Richard",
	"Susan", "Joseph", "Jessica", "Thomas", "Sarah", "Charles", "Karen",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
	"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez",
	"Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin",
}

// Application generates one application of the given profile. Unknown
// profiles fall back to random.
func (g *Generator) Application(profile Profile) application.Application {
	switch profile {
	case ProfileStrong:
		return g.strong()
	case ProfileModerate:
		return g.moderate()
	case ProfileWeak:
		return g.weak()
	case ProfileEdgeCase:
		return g.EdgeCase(EdgeCases[g.rng.Intn(len(EdgeCases))])
	default:
		return g.random()
	}
}

// Batch generates count applications drawn from dist. A nil or empty
// distribution uses DefaultDistribution.
func (g *Generator) Batch(count int, dist Distribution) []application.Application {
	if len(dist) == 0 {
		dist = DefaultDistribution()
	}

	total := 0.0
	for _, p := range profileOrder {
		if w := dist[p]; w > 0 {
			total += w
		}
	}

	apps := make([]application.Application, 0, count)
	for i := 0; i < count; i++ {
		apps = append(apps, g.Application(g.pick(dist, total)))
	}
	return apps
}

// StressBatch generates count applications with the stress mix
func (g *Generator) StressBatch(count int) []application.Application {
	return g.Batch(count, StressDistribution())
}

func (g *Generator) pick(dist Distribution, total float64) Profile {
	if total <= 0 {
		return ProfileRandom
	}
	r := g.rng.Float64()
	cumulative := 0.0
	for _, p := range profileOrder {
		w := dist[p]
		if w <= 0 {
			continue
		}
		cumulative += w / total
		if r <= cumulative {
			return p
		}
	}
	return ProfileRandom
}

func (g *Generator) strong() application.Application {
	return application.Application{
		Name:            g.name(),
		Income:          g.uniform(90000, 180000),
		LoanAmount:      g.uniform(100000, 300000),
		ExistingLoans:   g.intRange(0, 2),
		RepaymentScore:  g.uniform(0.85, 0.98),
		EmploymentYears: g.uniform(5, 20),
		CompanyName:     g.company(),
		CollateralValue: g.uniform(200000, 500000),
	}
}

func (g *Generator) weak() application.Application {
	income := g.uniform(25000, 45000)
	return application.Application{
		Name:            g.name(),
		Income:          income,
		LoanAmount:      g.uniform(income*4, income*8),
		ExistingLoans:   g.intRange(3, 6),
		RepaymentScore:  g.uniform(0.30, 0.55),
		EmploymentYears: g.uniform(0.5, 2.5),
		CompanyName:     g.company(),
		CollateralValue: g.uniform(30000, 80000),
	}
}

func (g *Generator) moderate() application.Application {
	income := g.uniform(50000, 85000)
	return application.Application{
		Name:            g.name(),
		Income:          income,
		LoanAmount:      g.uniform(income*2, income*3.5),
		ExistingLoans:   g.intRange(1, 3),
		RepaymentScore:  g.uniform(0.65, 0.80),
		EmploymentYears: g.uniform(2.5, 7),
		CompanyName:     g.company(),
		CollateralValue: g.uniform(100000, 250000),
	}
}

func (g *Generator) random() application.Application {
	return application.Application{
		Name:            g.name(),
		Income:          g.uniform(25000, 200000),
		LoanAmount:      g.uniform(50000, 500000),
		ExistingLoans:   g.intRange(0, 6),
		RepaymentScore:  g.uniform(0.30, 0.98),
		EmploymentYears: g.uniform(0.5, 25),
		CompanyName:     g.company(),
		CollateralValue: g.uniform(0, 600000),
	}
}

// EdgeCase generates one application for the named boundary scenario.
// zero_income is deliberately invalid and must be rejected by validation.
func (g *Generator) EdgeCase(kind EdgeCase) application.Application {
	switch kind {
	case EdgeZeroIncome:
		return application.Application{
			Name:            g.name(),
			Income:          0,
			LoanAmount:      100000,
			ExistingLoans:   0,
			RepaymentScore:  0.80,
			EmploymentYears: 1,
			CompanyName:     g.company(),
			CollateralValue: 150000,
		}
	case EdgeExtremeDTI:
		income := g.uniform(30000, 50000)
		return application.Application{
			Name:            g.name(),
			Income:          income,
			LoanAmount:      income * g.uniform(10, 20),
			ExistingLoans:   g.intRange(2, 4),
			RepaymentScore:  g.uniform(0.60, 0.75),
			EmploymentYears: g.uniform(2, 5),
			CompanyName:     g.company(),
			CollateralValue: g.uniform(50000, 100000),
		}
	case EdgePerfectScore:
		return application.Application{
			Name:            g.name(),
			Income:          200000,
			LoanAmount:      150000,
			ExistingLoans:   0,
			RepaymentScore:  1.0,
			EmploymentYears: 15,
			CompanyName:     g.company(),
			CollateralValue: 500000,
		}
	case EdgeZeroCollateral:
		return application.Application{
			Name:            g.name(),
			Income:          g.uniform(60000, 90000),
			LoanAmount:      g.uniform(150000, 250000),
			ExistingLoans:   g.intRange(1, 2),
			RepaymentScore:  g.uniform(0.70, 0.85),
			EmploymentYears: g.uniform(3, 8),
			CompanyName:     g.company(),
			CollateralValue: 0,
		}
	case EdgeMaximumLoans:
		return application.Application{
			Name:            g.name(),
			Income:          g.uniform(70000, 100000),
			LoanAmount:      g.uniform(100000, 200000),
			ExistingLoans:   10,
			RepaymentScore:  g.uniform(0.60, 0.75),
			EmploymentYears: g.uniform(5, 10),
			CompanyName:     g.company(),
			CollateralValue: g.uniform(150000, 250000),
		}
	case EdgeMinimalEmployment:
		return application.Application{
			Name:            g.name(),
			Income:          g.uniform(40000, 70000),
			LoanAmount:      g.uniform(100000, 180000),
			ExistingLoans:   g.intRange(1, 3),
			RepaymentScore:  g.uniform(0.65, 0.80),
			EmploymentYears: 0.1,
			CompanyName:     g.company(),
			CollateralValue: g.uniform(120000, 200000),
		}
	default:
		panic(fmt.Sprintf("testkit: unknown edge case %q", kind))
	}
}

// FairnessBatch generates five pairs of near-identical applicants: income,
// loan amount within 5% and repayment within 3% of a shared base.
func (g *Generator) FairnessBatch() []application.Application {
	apps := make([]application.Application, 0, 10)
	for i := 0; i < 5; i++ {
		baseIncome := g.uniform(50000, 100000)
		baseLoan := baseIncome * g.uniform(2.0, 3.5)
		baseRepayment := g.uniform(0.70, 0.85)

		for j := 0; j < 2; j++ {
			apps = append(apps, application.Application{
				Name:            g.name(),
				Income:          baseIncome * g.uniform(0.95, 1.05),
				LoanAmount:      baseLoan * g.uniform(0.95, 1.05),
				ExistingLoans:   g.intRange(1, 3),
				RepaymentScore:  baseRepayment * g.uniform(0.97, 1.03),
				EmploymentYears: g.uniform(3, 7),
				CompanyName:     g.company(),
				CollateralValue: baseLoan * g.uniform(1.1, 1.4),
			})
		}
	}
	return apps
}

// EmployerPair is two applications that differ only in the employer name
type EmployerPair struct {
	Known   application.Application
	Unknown application.Application
}

// EmployerPairs generates n pairs from the moderate profile. The first of
// each pair works at knownEmployer, the second at unknownEmployer; every
// other field is identical.
func (g *Generator) EmployerPairs(n int, knownEmployer, unknownEmployer string) []EmployerPair {
	pairs := make([]EmployerPair, 0, n)
	for i := 0; i < n; i++ {
		base := g.moderate()
		known, unknown := base, base
		known.CompanyName = knownEmployer
		unknown.CompanyName = unknownEmployer
		pairs = append(pairs, EmployerPair{Known: known, Unknown: unknown})
	}
	return pairs
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// intRange is inclusive on both ends
func (g *Generator) intRange(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) name() string {
	return firstNames[g.rng.Intn(len(firstNames))] + " " + lastNames[g.rng.Intn(len(lastNames))]
}

func (g *Generator) company() string {
	return companyNames[g.rng.Intn(len(companyNames))]
}
