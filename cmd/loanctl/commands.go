package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"loanverify/adapters/excel"
	"loanverify/domain/application"
	"loanverify/domain/audit"
	"loanverify/domain/verdict"
	"loanverify/internal/auditor"
	"loanverify/internal/container"
	"loanverify/internal/errors"
	"loanverify/internal/migration"
	"loanverify/internal/narrative"
	"loanverify/internal/pipeline"
	"loanverify/internal/testkit"

	"github.com/spf13/cobra"
)

var outcomes = []verdict.Outcome{verdict.Approved, verdict.Conditional, verdict.Rejected}

func newEvaluateCmd(flags *storeFlags) *cobra.Command {
	var withAudit bool

	cmd := &cobra.Command{
		Use:   "evaluate [application.json]",
		Short: "Evaluate one application and print the decision record",
		Long: `Evaluate one loan application read from a JSON file, or from stdin when no
file is given, and print the decision record as JSON.

Example: loanctl evaluate applicant.json --audit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open application: %w", err)
				}
				defer f.Close()
				in = f
			}

			var app application.Application
			if err := json.NewDecoder(in).Decode(&app); err != nil {
				return fmt.Errorf("failed to decode application: %w", err)
			}

			c, err := flags.load(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			return runEvaluate(cmd.Context(), c, app, withAudit, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&withAudit, "audit", false, "Run the quality audit and include it in the output")
	return cmd
}

type evaluateOutput struct {
	*pipeline.Record
	QualityAudit *audit.Report `json:"quality_audit,omitempty"`
}

func runEvaluate(ctx context.Context, c *container.Container, app application.Application, withAudit bool, out io.Writer) error {
	rec, err := c.Runner.Evaluate(ctx, app)
	if err != nil {
		if inErr, ok := errors.AsInputError(err); ok {
			for _, v := range inErr.Violations {
				fmt.Fprintf(out, "invalid %s: %s\n", v.Field, v.Reason)
			}
		}
		return err
	}

	result := evaluateOutput{Record: rec}
	if withAudit {
		report, err := c.Auditor.Audit(ctx, auditor.SubjectFromRecord(rec))
		if err != nil {
			return fmt.Errorf("quality audit failed: %w", err)
		}
		result.QualityAudit = report
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func newSimulateCmd(flags *storeFlags) *cobra.Command {
	var (
		count  int
		seed   int64
		stress bool
		pairs  int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a synthetic batch through the pipeline and the quality auditor",
		Long: `Generate a seeded batch of synthetic applicants, evaluate and audit each one,
then print decision counts, invalid-input rejections, audit statistics and an
employer fairness probe.

Example: loanctl simulate --count 100 --seed 7 --stress`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.load(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			gen := testkit.NewGenerator(testkit.GeneratorConfig{Seed: seed})
			dist := testkit.DefaultDistribution()
			if stress {
				dist = testkit.StressDistribution()
			}
			return runSimulate(cmd.Context(), c, gen, count, dist, pairs, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&count, "count", 50, "Number of applications to generate")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().BoolVar(&stress, "stress", false, "Use the stress-test profile mix")
	cmd.Flags().IntVar(&pairs, "fairness-pairs", 5, "Employer fairness probe pairs (0 disables)")
	return cmd
}

// simulation tallies one simulate run
type simulation struct {
	Decisions map[verdict.Outcome]int
	Invalid   int
	Failed    int
	Audited   int
	Stats     audit.Statistics
	// Employer probe pairs whose decisions differ
	Mismatches []testkit.EmployerPair
	Probed     int
}

func runSimulate(ctx context.Context, c *container.Container, gen *testkit.Generator, count int, dist testkit.Distribution, pairs int, out io.Writer) error {
	sim, err := simulate(ctx, c, gen, count, dist, pairs)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Simulated %d applications (seed %d)\n\n", count, gen.Seed())

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OUTCOME\tCOUNT")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%s\t%d\n", o, sim.Decisions[o])
	}
	fmt.Fprintf(tw, "Invalid input\t%d\n", sim.Invalid)
	fmt.Fprintf(tw, "Pipeline failure\t%d\n", sim.Failed)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nQuality audit over %d decisions\n", sim.Audited)
	fmt.Fprintf(out, "  pass rate:        %s\n", narrative.Percent(sim.Stats.PassRate))
	fmt.Fprintf(out, "  avg test score:   %.3f\n", sim.Stats.AverageTestScore)
	fmt.Fprintf(out, "  avg fairness:     %.2f\n", sim.Stats.AverageFairness)
	fmt.Fprintf(out, "  anomalies:        %d\n", sim.Stats.TotalAnomalies)
	if sim.Stats.Status != "" {
		fmt.Fprintf(out, "  status:           %s\n", sim.Stats.Status)
	}

	if sim.Probed > 0 {
		fmt.Fprintf(out, "\nEmployer fairness probe: %d of %d pairs decided differently\n", len(sim.Mismatches), sim.Probed)
		for _, p := range sim.Mismatches {
			fmt.Fprintf(out, "  %s income %s loan %s: %q vs %q\n",
				p.Known.Name, narrative.Money(p.Known.Income), narrative.Money(p.Known.LoanAmount),
				p.Known.CompanyName, p.Unknown.CompanyName)
		}
	}
	return nil
}

func simulate(ctx context.Context, c *container.Container, gen *testkit.Generator, count int, dist testkit.Distribution, pairs int) (*simulation, error) {
	sim := &simulation{Decisions: make(map[verdict.Outcome]int)}

	apps := gen.Batch(count, dist)
	results := c.Runner.EvaluateBatch(ctx, apps, c.Config.Pipeline.BatchConcurrency)

	// Audits run in input order so the similar-case history is reproducible
	for _, res := range results {
		if res.Err != nil {
			if _, ok := errors.AsInputError(res.Err); ok {
				sim.Invalid++
			} else {
				sim.Failed++
			}
			continue
		}
		sim.Decisions[res.Record.Decision]++
		if _, err := c.Auditor.Audit(ctx, auditor.SubjectFromRecord(res.Record)); err != nil {
			return nil, fmt.Errorf("audit of %s failed: %w", res.Record.ApplicationID, err)
		}
		sim.Audited++
	}

	stats, err := c.Auditor.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	sim.Stats = stats

	for _, p := range gen.EmployerPairs(pairs, "Google", "Corner Bakery") {
		known, err := c.Runner.Evaluate(ctx, p.Known)
		if err != nil {
			return nil, err
		}
		unknown, err := c.Runner.Evaluate(ctx, p.Unknown)
		if err != nil {
			return nil, err
		}
		sim.Probed++
		if known.Decision != unknown.Decision {
			sim.Mismatches = append(sim.Mismatches, p)
		}
	}
	return sim, nil
}

func newBatchCmd(flags *storeFlags) *cobra.Command {
	var (
		in          string
		out         string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate every application in a spreadsheet",
		Long: `Read applications from an .xlsx or .csv file with one column per application
field, evaluate the valid rows and print one line per row. With --out the
decisions and their audits are exported to a workbook.

Example: loanctl batch --in applicants.xlsx --out decisions.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.load(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if concurrency <= 0 {
				concurrency = c.Config.Pipeline.BatchConcurrency
			}
			if err := runBatch(cmd.Context(), c, in, concurrency, cmd.OutOrStdout()); err != nil {
				return err
			}
			if out != "" {
				return runExport(cmd.Context(), c, out, 0, cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Input .xlsx or .csv file")
	cmd.Flags().StringVar(&out, "out", "", "Optional .xlsx export of the decisions")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Concurrent evaluations (default from BATCH_CONCURRENCY)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func runBatch(ctx context.Context, c *container.Container, path string, concurrency int, out io.Writer) error {
	rows, err := excel.NewDataReader(path).ReadApplications()
	if err != nil {
		return err
	}

	var (
		apps  []application.Application
		lines []int
	)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tAPPLICANT\tDECISION\tRISK\tDETAIL")
	for _, row := range rows {
		if row.Err != nil {
			fmt.Fprintf(tw, "%d\t%s\tINVALID\t-\t%v\n", row.Line, row.Application.Name, row.Err)
			continue
		}
		apps = append(apps, row.Application)
		lines = append(lines, row.Line)
	}

	for _, res := range c.Runner.EvaluateBatch(ctx, apps, concurrency) {
		app := apps[res.Index]
		line := lines[res.Index]
		switch {
		case res.Err != nil:
			status := "FAILED"
			if _, ok := errors.AsInputError(res.Err); ok {
				status = "INVALID"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t-\t%v\n", line, app.Name, status, res.Err)
		default:
			if _, err := c.Auditor.Audit(ctx, auditor.SubjectFromRecord(res.Record)); err != nil {
				return fmt.Errorf("audit of %s failed: %w", res.Record.ApplicationID, err)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", line, app.Name, res.Record.Decision,
				narrative.Percent(res.Record.RiskScore), res.Record.ApplicationID)
		}
	}
	return tw.Flush()
}

func newGenerateCmd() *cobra.Command {
	var (
		count  int
		seed   int64
		stress bool
		out    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic applicant spreadsheet for the batch command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := testkit.NewGenerator(testkit.GeneratorConfig{Seed: seed})
			dist := testkit.DefaultDistribution()
			if stress {
				dist = testkit.StressDistribution()
			}
			if err := excel.WriteApplications(out, gen.Batch(count, dist)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d applications to %s\n", count, out)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 20, "Number of applications to generate")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().BoolVar(&stress, "stress", false, "Use the stress-test profile mix")
	cmd.Flags().StringVar(&out, "out", "applications.xlsx", "Output .xlsx file")
	return cmd
}

func newExportCmd(flags *storeFlags) *cobra.Command {
	var (
		out   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored decisions and audits to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.load(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			return runExport(cmd.Context(), c, out, limit, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&out, "out", "loan_decisions.xlsx", "Output .xlsx file")
	cmd.Flags().IntVar(&limit, "limit", 0, "Most recent applications to export (0 for all)")
	return cmd
}

func runExport(ctx context.Context, c *container.Container, path string, limit int, out io.Writer) error {
	records, err := c.Store.List(ctx, limit)
	if err != nil {
		return err
	}
	audits, err := c.History.All(ctx)
	if err != nil {
		return err
	}
	if err := excel.ExportWorkbook(path, records, audits); err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d applications and %d audits to %s\n", len(records), len(audits), path)
	return nil
}

func newReportCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the markdown quality-assurance report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.load(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			report, err := c.Auditor.Report(cmd.Context())
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), report)
			return err
		},
	}
}

func newMigrateCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.load(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if c.DB == nil {
				return fmt.Errorf("migrate needs a sqlite or postgres store, got %q", c.Config.Store.Driver)
			}
			runner := migration.NewRunner()
			if err := runner.Run(cmd.Context(), c.DB); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %s (%s)\n", runner.Version(), c.DB.DriverName())
			return nil
		},
	}
}
