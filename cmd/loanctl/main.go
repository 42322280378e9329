package main

import (
	"context"
	"fmt"
	"os"

	"loanverify/internal/config"
	"loanverify/internal/container"
	"loanverify/internal/pipeline"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is fine; the environment still applies
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// storeFlags override the environment configuration for one invocation
type storeFlags struct {
	driver     string
	sqlitePath string
	paramsFile string
	policy     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &storeFlags{}

	rootCmd := &cobra.Command{
		Use:           "loanctl",
		Short:         "loanverify command line: evaluate, simulate and audit loan applications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.driver, "driver", "", "Store driver: memory|sqlite|postgres (default from STORE_DRIVER)")
	pf.StringVar(&flags.sqlitePath, "sqlite-path", "", "SQLite database file (default from SQLITE_PATH)")
	pf.StringVar(&flags.paramsFile, "params", "", "Scoring parameter override file (YAML)")
	pf.StringVar(&flags.policy, "policy", "", "Stage failure policy: abort|degrade")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: ERROR|WARN|INFO|DEBUG|TRACE")

	rootCmd.AddCommand(
		newEvaluateCmd(flags),
		newSimulateCmd(flags),
		newBatchCmd(flags),
		newGenerateCmd(),
		newExportCmd(flags),
		newReportCmd(flags),
		newMigrateCmd(flags),
	)
	return rootCmd
}

// load builds the configuration from the environment, applies the flags
// and opens a container over it
func (f *storeFlags) load(ctx context.Context) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	switch f.driver {
	case "":
	case config.DriverMemory, config.DriverSQLite, config.DriverPostgres:
		cfg.Store.Driver = f.driver
	default:
		return nil, fmt.Errorf("unknown store driver %q", f.driver)
	}
	if f.sqlitePath != "" {
		cfg.Store.SQLitePath = f.sqlitePath
	}
	if f.paramsFile != "" {
		cfg.Scoring.ParamsFile = f.paramsFile
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.policy != "" {
		policy, err := pipeline.ParseFailurePolicy(f.policy)
		if err != nil {
			return nil, err
		}
		cfg.Pipeline.FailurePolicy = policy
	}

	if cfg.Store.Driver == config.DriverPostgres && cfg.Store.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
	}

	return container.New(ctx, cfg)
}
