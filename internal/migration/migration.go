package migration

import (
	"context"
	"fmt"

	"loanverify/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Dialect selects the DDL flavour for a driver
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DialectFor maps a database/sql driver name to its dialect
func DialectFor(driverName string) (Dialect, error) {
	switch driverName {
	case "postgres", "pgx":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", errors.ConfigInvalid(fmt.Sprintf("unsupported database driver %q", driverName))
	}
}

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the application, stage log and audit tables
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all migrations in order. Every statement is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	dialect, err := DialectFor(db.DriverName())
	if err != nil {
		return err
	}
	ddl := schemas[dialect]

	if err := exec(ctx, db, ddl.applications); err != nil {
		return errors.Wrap(err, "failed to create applications table")
	}

	if err := exec(ctx, db, ddl.stageLogs); err != nil {
		return errors.Wrap(err, "failed to create stage_logs table")
	}

	if err := exec(ctx, db, ddl.auditReports); err != nil {
		return errors.Wrap(err, "failed to create audit_reports table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_stage_logs_application ON stage_logs(application_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_reports_application ON audit_reports(application_id)`,
	}
	for _, stmt := range indexes {
		if err := exec(ctx, db, stmt); err != nil {
			return err
		}
	}
	return nil
}

func exec(ctx context.Context, db *sqlx.DB, stmt string) error {
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return errors.DatabaseError("migration statement failed", err)
	}
	return nil
}

type schema struct {
	applications string
	stageLogs    string
	auditReports string
}

// Timestamps are fixed-width UTC text in both dialects so one scan path
// serves both drivers. JSON documents are stored as text.
var schemas = map[Dialect]schema{
	DialectPostgres: {
		applications: `
		CREATE TABLE IF NOT EXISTS applications (
			seq BIGSERIAL PRIMARY KEY,
			id VARCHAR(64) UNIQUE NOT NULL,
			applicant_name TEXT NOT NULL,
			application_data TEXT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			current_stage VARCHAR(32) NOT NULL DEFAULT 'initiated',
			agent_results TEXT NOT NULL DEFAULT '{}',
			final_decision TEXT,
			created_at VARCHAR(40) NOT NULL,
			updated_at VARCHAR(40) NOT NULL
		)`,
		stageLogs: `
		CREATE TABLE IF NOT EXISTS stage_logs (
			seq BIGSERIAL PRIMARY KEY,
			id VARCHAR(64) NOT NULL,
			application_id VARCHAR(64) NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
			stage_name VARCHAR(32) NOT NULL,
			success BOOLEAN NOT NULL,
			data TEXT,
			error TEXT,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at VARCHAR(40) NOT NULL
		)`,
		auditReports: `
		CREATE TABLE IF NOT EXISTS audit_reports (
			seq BIGSERIAL PRIMARY KEY,
			audit_id VARCHAR(64) UNIQUE NOT NULL,
			application_id VARCHAR(64) NOT NULL,
			income DOUBLE PRECISION NOT NULL,
			loan_amount DOUBLE PRECISION NOT NULL,
			repayment_score DOUBLE PRECISION NOT NULL,
			decision VARCHAR(20) NOT NULL,
			report TEXT NOT NULL,
			created_at VARCHAR(40) NOT NULL
		)`,
	},
	DialectSQLite: {
		applications: `
		CREATE TABLE IF NOT EXISTS applications (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			applicant_name TEXT NOT NULL,
			application_data TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			current_stage TEXT NOT NULL DEFAULT 'initiated',
			agent_results TEXT NOT NULL DEFAULT '{}',
			final_decision TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		stageLogs: `
		CREATE TABLE IF NOT EXISTS stage_logs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
			stage_name TEXT NOT NULL,
			success INTEGER NOT NULL,
			data TEXT,
			error TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		auditReports: `
		CREATE TABLE IF NOT EXISTS audit_reports (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			audit_id TEXT UNIQUE NOT NULL,
			application_id TEXT NOT NULL,
			income REAL NOT NULL,
			loan_amount REAL NOT NULL,
			repayment_score REAL NOT NULL,
			decision TEXT NOT NULL,
			report TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	},
}
