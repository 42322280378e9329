// Package sqlstore holds sqlx repositories backing the application store and
// the audit history on postgres or an embedded sqlite file.
package sqlstore

import (
	"context"
	"time"

	"loanverify/domain/core"
	"loanverify/internal/errors"
	"loanverify/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open connects to driver ("postgres" or "sqlite") and runs the migrations.
// An embedded sqlite database is limited to one connection so in-memory
// databases stay shared and writers never contend for the file lock.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	dialect, err := migration.DialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to open database", err)
	}
	if dialect == migration.DialectSQLite {
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, errors.DatabaseError("failed to enable foreign keys", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.DatabaseError("database unreachable", err)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func formatTime(t core.Timestamp) string {
	if t.IsZero() {
		t = core.Now()
	}
	return t.Time().UTC().Format(timeLayout)
}

func parseTime(s string) core.Timestamp {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return core.Timestamp{}
	}
	return core.NewTimestamp(t)
}
