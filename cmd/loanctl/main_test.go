package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loanverify/adapters/excel"
	"loanverify/internal/config"
	"loanverify/internal/container"
	"loanverify/internal/pipeline"
	"loanverify/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func memoryContainer(t *testing.T) *container.Container {
	t.Helper()
	cfg := &config.Config{
		Store:    config.StoreConfig{Driver: config.DriverMemory},
		Pipeline: config.PipelineConfig{FailurePolicy: pipeline.PolicyAbort, BatchConcurrency: 4},
		Audit:    config.AuditConfig{OnApply: true, Window: 20},
		LogLevel: "ERROR",
	}
	c, err := container.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--driver", "memory", "--log-level", "ERROR"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSimulateTallies(t *testing.T) {
	c := memoryContainer(t)
	gen := testkit.NewGenerator(testkit.GeneratorConfig{Seed: 11})

	sim, err := simulate(context.Background(), c, gen, 40, testkit.DefaultDistribution(), 3)
	require.NoError(t, err)

	decided := 0
	for _, n := range sim.Decisions {
		decided += n
	}
	assert.Equal(t, 40, decided+sim.Invalid+sim.Failed)
	assert.Zero(t, sim.Failed)
	assert.Equal(t, decided, sim.Audited)
	assert.Equal(t, sim.Audited, sim.Stats.TotalTests)
	assert.Equal(t, 3, sim.Probed)
}

func TestSimulateCountsInvalidInput(t *testing.T) {
	c := memoryContainer(t)
	gen := testkit.NewGenerator(testkit.GeneratorConfig{Seed: 1})

	// edge cases only: zero_income is the one invalid variant
	sim, err := simulate(context.Background(), c, gen, 60, testkit.Distribution{testkit.ProfileEdgeCase: 1}, 0)
	require.NoError(t, err)
	assert.Greater(t, sim.Invalid, 0)
	assert.Zero(t, sim.Probed)
}

func TestSimulateCommandOutput(t *testing.T) {
	out, err := execute(t, "", "simulate", "--count", "15", "--seed", "3", "--fairness-pairs", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Simulated 15 applications (seed 3)")
	assert.Contains(t, out, "OUTCOME")
	assert.Contains(t, out, "Approved")
	assert.Contains(t, out, "Quality audit over")
	assert.Contains(t, out, "Employer fairness probe:")
}

func TestEvaluateCommand(t *testing.T) {
	body := `{"name":"John Doe","income":85000,"loan_amount":200000,"existing_loans":1,
		"repayment_score":0.85,"employment_years":5.5,"company_name":"Tech Corp","collateral_value":250000}`

	out, err := execute(t, body, "evaluate", "--audit")
	require.NoError(t, err)
	require.True(t, gjson.Valid(out), out)

	doc := gjson.Parse(out)
	assert.True(t, doc.Get("application_id").Exists())
	assert.Contains(t, []string{"Approved", "Conditional", "Rejected"}, doc.Get("decision").String())
	assert.True(t, doc.Get("quality_audit.test_id").Exists())
	assert.True(t, doc.Get("agent_summary.credit_history.credit_score").Exists())
}

func TestEvaluateCommandRejectsInvalidInput(t *testing.T) {
	body := `{"name":"","income":0,"loan_amount":1000,"existing_loans":0,
		"repayment_score":0.5,"employment_years":1,"company_name":"X","collateral_value":0}`

	out, err := execute(t, body, "evaluate")
	require.Error(t, err)
	assert.Contains(t, out, "invalid name: is required")
	assert.Contains(t, out, "invalid income: must be greater than 0")
}

func TestUnknownDriverRejected(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--driver", "oracle", "report"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestBatchAndExport(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "applicants.xlsx")
	exported := filepath.Join(dir, "decisions.xlsx")

	apps := testkit.NewGenerator(testkit.DefaultGeneratorConfig()).Batch(6, testkit.Distribution{testkit.ProfileStrong: 1})
	apps = append(apps, testkit.NewGenerator(testkit.DefaultGeneratorConfig()).EdgeCase(testkit.EdgeZeroIncome))
	require.NoError(t, excel.WriteApplications(in, apps))

	out, err := execute(t, "", "batch", "--in", in, "--out", exported)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "INVALID"))
	assert.Contains(t, out, "Exported 6 applications and 6 audits")

	_, err = os.Stat(exported)
	require.NoError(t, err)
}

func TestGenerateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen.xlsx")
	out, err := execute(t, "", "generate", "--count", "5", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 5 applications")

	rows, err := excel.NewDataReader(path).ReadApplications()
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestReportCommandOnEmptyHistory(t *testing.T) {
	out, err := execute(t, "", "report")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Quality Assurance Report"))
}

func TestMigrateNeedsSQLStore(t *testing.T) {
	_, err := execute(t, "", "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a sqlite or postgres store")
}

func TestMigrateSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loans.db")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--driver", "sqlite", "--sqlite-path", path, "--log-level", "ERROR", "migrate"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Schema at version 1.0.0 (sqlite)")
}
