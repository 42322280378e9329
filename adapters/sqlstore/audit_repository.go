package sqlstore

import (
	"context"
	"encoding/json"
	"sync"

	"loanverify/domain/audit"
	"loanverify/domain/core"
	"loanverify/domain/verdict"
	"loanverify/internal/errors"
	"loanverify/ports"

	"github.com/jmoiron/sqlx"
)

// AuditRepository implements ports.AuditHistory over the audit_reports
// table. Sequence order is insertion order. WithLock serializes audits
// within this process only.
type AuditRepository struct {
	db     *sqlx.DB
	writer sync.Mutex
}

// NewAuditRepository creates a history over an opened, migrated database
func NewAuditRepository(db *sqlx.DB) ports.AuditHistory {
	return &AuditRepository{db: db}
}

type auditRow struct {
	Seq            int64   `db:"seq"`
	AuditID        string  `db:"audit_id"`
	ApplicationID  string  `db:"application_id"`
	Income         float64 `db:"income"`
	LoanAmount     float64 `db:"loan_amount"`
	RepaymentScore float64 `db:"repayment_score"`
	Decision       string  `db:"decision"`
	Report         string  `db:"report"`
}

const auditColumns = `seq, audit_id, application_id, income, loan_amount, repayment_score, decision, report`

func (r *AuditRepository) Recent(ctx context.Context, n int) ([]audit.Entry, error) {
	if n < 0 {
		return r.All(ctx)
	}
	var rows []auditRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT `+auditColumns+` FROM (
			SELECT `+auditColumns+` FROM audit_reports ORDER BY seq DESC LIMIT ?
		) recent ORDER BY seq ASC
	`), n)
	if err != nil {
		return nil, errors.DatabaseError("failed to load recent audits", err)
	}
	return entries(rows)
}

func (r *AuditRepository) Append(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	report, err := json.Marshal(entry.Report)
	if err != nil {
		return audit.Entry{}, errors.Wrap(err, "failed to encode audit report")
	}

	var seq int64
	err = r.db.GetContext(ctx, &seq, r.db.Rebind(`
		INSERT INTO audit_reports (audit_id, application_id, income, loan_amount, repayment_score, decision, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING seq
	`), entry.AuditID.String(), entry.ApplicationID.String(), entry.Income, entry.LoanAmount,
		entry.RepaymentScore, string(entry.Decision), string(report), formatTime(entry.Report.Timestamp))
	if err != nil {
		return audit.Entry{}, errors.DatabaseError("failed to append audit", err)
	}
	entry.Seq = seq
	return entry, nil
}

func (r *AuditRepository) All(ctx context.Context) ([]audit.Entry, error) {
	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+auditColumns+` FROM audit_reports ORDER BY seq ASC`); err != nil {
		return nil, errors.DatabaseError("failed to load audits", err)
	}
	return entries(rows)
}

func (r *AuditRepository) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	r.writer.Lock()
	defer r.writer.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func entries(rows []auditRow) ([]audit.Entry, error) {
	out := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		e := audit.Entry{
			Seq:            row.Seq,
			AuditID:        core.AuditID(row.AuditID),
			ApplicationID:  core.ApplicationID(row.ApplicationID),
			Income:         row.Income,
			LoanAmount:     row.LoanAmount,
			RepaymentScore: row.RepaymentScore,
			Decision:       verdict.Outcome(row.Decision),
		}
		if err := json.Unmarshal([]byte(row.Report), &e.Report); err != nil {
			return nil, errors.Wrapf(err, "failed to decode audit %s", row.AuditID)
		}
		out = append(out, e)
	}
	return out, nil
}
