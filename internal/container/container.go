package container

import (
	"context"
	"fmt"

	"loanverify/adapters/memory"
	"loanverify/adapters/sqlstore"
	"loanverify/domain/scoring"
	"loanverify/internal"
	"loanverify/internal/auditor"
	"loanverify/internal/config"
	"loanverify/internal/pipeline"
	"loanverify/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle.
// It is built once per process and handed to each transport.
type Container struct {
	Config *config.Config
	Logger *internal.Logger
	Params scoring.Parameters

	// Infrastructure, nil for the memory store
	DB *sqlx.DB

	Store   ports.ApplicationStore
	History ports.AuditHistory

	Runner  *pipeline.Runner
	Auditor *auditor.QualityAuditor
}

// New creates a container: it loads the scoring parameters, opens the
// configured store and wires the runner and auditor over it
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
	}

	params, err := config.LoadParameters(cfg.Scoring.ParamsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring parameters: %w", err)
	}
	c.Params = params

	if err := c.initStore(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	c.initServices()

	c.Logger.With("Container").Info("initialized with %s store, %s policy, parameters %s",
		cfg.Store.Driver, cfg.Pipeline.FailurePolicy, params.Fingerprint().Short())
	return c, nil
}

// initStore opens the application store and audit history
func (c *Container) initStore(ctx context.Context) error {
	switch c.Config.Store.Driver {
	case config.DriverSQLite, config.DriverPostgres:
		db, err := sqlstore.Open(ctx, c.Config.Store.Driver, c.Config.Store.DSN())
		if err != nil {
			return err
		}
		c.DB = db
		c.Store = sqlstore.NewApplicationRepository(db)
		c.History = sqlstore.NewAuditRepository(db)
	default:
		c.Store = memory.NewApplicationStore()
		c.History = memory.NewAuditHistory()
	}
	return nil
}

// initServices wires the pipeline runner and quality auditor
func (c *Container) initServices() {
	c.Runner = pipeline.NewRunner(c.Params, c.Store,
		pipeline.WithPolicy(c.Config.Pipeline.FailurePolicy),
		pipeline.WithLogger(c.Logger),
	)
	c.Auditor = auditor.New(c.History,
		auditor.WithWindow(c.Config.Audit.Window),
		auditor.WithLogger(c.Logger),
	)
}

// Close releases the database connection, if any
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
