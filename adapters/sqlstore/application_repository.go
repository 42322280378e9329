package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"loanverify/domain/application"
	"loanverify/domain/core"
	"loanverify/domain/stage"
	"loanverify/domain/verdict"
	"loanverify/internal/errors"
	"loanverify/ports"

	"github.com/jmoiron/sqlx"
)

// ApplicationRepository implements ports.ApplicationStore over sqlx
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository creates a repository over an opened, migrated database
func NewApplicationRepository(db *sqlx.DB) ports.ApplicationStore {
	return &ApplicationRepository{db: db}
}

type applicationRow struct {
	ID              string         `db:"id"`
	ApplicantName   string         `db:"applicant_name"`
	ApplicationData string         `db:"application_data"`
	Status          string         `db:"status"`
	CurrentStage    string         `db:"current_stage"`
	StageResults    string         `db:"agent_results"`
	FinalDecision   sql.NullString `db:"final_decision"`
	CreatedAt       string         `db:"created_at"`
	UpdatedAt       string         `db:"updated_at"`
}

type stageLogRow struct {
	ID            string         `db:"id"`
	ApplicationID string         `db:"application_id"`
	StageName     string         `db:"stage_name"`
	Success       bool           `db:"success"`
	Data          sql.NullString `db:"data"`
	Error         sql.NullString `db:"error"`
	Duration      int64          `db:"duration_ms"`
	CreatedAt     string         `db:"created_at"`
}

const selectApplication = `
	SELECT id, applicant_name, application_data, status, current_stage, agent_results, final_decision, created_at, updated_at
	FROM applications`

func (r *ApplicationRepository) Create(ctx context.Context, record application.Record) error {
	data, err := json.Marshal(record.Application)
	if err != nil {
		return errors.Wrap(err, "failed to encode application")
	}
	results := record.StageResults
	if results == nil {
		results = map[stage.StageName]json.RawMessage{}
	}
	resultData, err := json.Marshal(results)
	if err != nil {
		return errors.Wrap(err, "failed to encode stage results")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.GetContext(ctx, &existing, tx.Rebind(`SELECT COUNT(*) FROM applications WHERE id = ?`), record.ID.String()); err != nil {
		return errors.DatabaseError("failed to check application", err)
	}
	if existing > 0 {
		return errors.Wrapf(core.ErrConflict, "application %s", record.ID)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO applications (id, applicant_name, application_data, status, current_stage, agent_results, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), record.ID.String(), record.ApplicantName, string(data), string(record.Status), string(record.CurrentStage),
		string(resultData), formatTime(record.CreatedAt), formatTime(record.UpdatedAt))
	if err != nil {
		return errors.DatabaseError("failed to insert application", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit application", err)
	}
	return nil
}

func (r *ApplicationRepository) UpdateStage(ctx context.Context, id core.ApplicationID, phase stage.Phase) error {
	return r.exec(ctx, id, `UPDATE applications SET current_stage = ?, updated_at = ? WHERE id = ?`,
		string(phase), formatTime(core.Now()), id.String())
}

func (r *ApplicationRepository) SaveStageResult(ctx context.Context, result stage.StageResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.GetContext(ctx, &raw, tx.Rebind(`SELECT agent_results FROM applications WHERE id = ?`), result.ApplicationID.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return notFound(result.ApplicationID)
	}
	if err != nil {
		return errors.DatabaseError("failed to load stage results", err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO stage_logs (id, application_id, stage_name, success, data, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), result.ID.String(), result.ApplicationID.String(), string(result.StageName), result.Success,
		nullString(string(result.Data)), nullString(result.Error), result.Duration, formatTime(result.Timestamp))
	if err != nil {
		return errors.DatabaseError("failed to insert stage log", err)
	}

	if result.Success && len(result.Data) > 0 {
		results := map[stage.StageName]json.RawMessage{}
		if err := json.Unmarshal([]byte(raw), &results); err != nil {
			return errors.Wrap(err, "failed to decode stage results")
		}
		results[result.StageName] = result.Data
		merged, err := json.Marshal(results)
		if err != nil {
			return errors.Wrap(err, "failed to encode stage results")
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE applications SET agent_results = ?, updated_at = ? WHERE id = ?`),
			string(merged), formatTime(core.Now()), result.ApplicationID.String())
		if err != nil {
			return errors.DatabaseError("failed to merge stage result", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit stage result", err)
	}
	return nil
}

func (r *ApplicationRepository) SaveDecision(ctx context.Context, id core.ApplicationID, decision verdict.Decision) error {
	data, err := json.Marshal(decision)
	if err != nil {
		return errors.Wrap(err, "failed to encode decision")
	}
	return r.exec(ctx, id, `
		UPDATE applications SET final_decision = ?, status = ?, current_stage = ?, updated_at = ? WHERE id = ?
	`, string(data), string(stage.StatusCompleted), string(stage.PhaseCompleted), formatTime(core.Now()), id.String())
}

func (r *ApplicationRepository) MarkFailed(ctx context.Context, id core.ApplicationID) error {
	return r.exec(ctx, id, `UPDATE applications SET status = ?, current_stage = ?, updated_at = ? WHERE id = ?`,
		string(stage.StatusFailed), string(stage.PhaseFailed), formatTime(core.Now()), id.String())
}

func (r *ApplicationRepository) Get(ctx context.Context, id core.ApplicationID) (*application.Record, error) {
	var row applicationRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(selectApplication+` WHERE id = ?`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to load application", err)
	}
	rec, err := row.record()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *ApplicationRepository) List(ctx context.Context, limit int) ([]application.Record, error) {
	query := selectApplication + ` ORDER BY seq DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []applicationRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to list applications", err)
	}

	out := make([]application.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *ApplicationRepository) StageLog(ctx context.Context, id core.ApplicationID) ([]stage.StageResult, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT COUNT(*) FROM applications WHERE id = ?`), id.String()); err != nil {
		return nil, errors.DatabaseError("failed to check application", err)
	}
	if exists == 0 {
		return nil, notFound(id)
	}

	var rows []stageLogRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, application_id, stage_name, success, data, error, duration_ms, created_at
		FROM stage_logs WHERE application_id = ? ORDER BY seq ASC
	`), id.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to load stage log", err)
	}

	out := make([]stage.StageResult, 0, len(rows))
	for _, row := range rows {
		res := stage.StageResult{
			ID:            core.ID(row.ID),
			ApplicationID: core.ApplicationID(row.ApplicationID),
			StageName:     stage.StageName(row.StageName),
			Success:       row.Success,
			Error:         row.Error.String,
			Duration:      row.Duration,
			Timestamp:     parseTime(row.CreatedAt),
		}
		if row.Data.Valid && row.Data.String != "" {
			res.Data = json.RawMessage(row.Data.String)
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *ApplicationRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return errors.DatabaseError("database unreachable", err)
	}
	return nil
}

// exec runs an update keyed by id, reporting a missing row as not found
func (r *ApplicationRepository) exec(ctx context.Context, id core.ApplicationID, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return errors.DatabaseError("failed to update application", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.DatabaseError("failed to update application", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (row applicationRow) record() (application.Record, error) {
	rec := application.Record{
		ID:            core.ApplicationID(row.ID),
		ApplicantName: row.ApplicantName,
		Status:        stage.Status(row.Status),
		CurrentStage:  stage.Phase(row.CurrentStage),
		StageResults:  map[stage.StageName]json.RawMessage{},
		CreatedAt:     parseTime(row.CreatedAt),
		UpdatedAt:     parseTime(row.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(row.ApplicationData), &rec.Application); err != nil {
		return rec, errors.Wrapf(err, "failed to decode application %s", row.ID)
	}
	if row.StageResults != "" {
		if err := json.Unmarshal([]byte(row.StageResults), &rec.StageResults); err != nil {
			return rec, errors.Wrapf(err, "failed to decode stage results of %s", row.ID)
		}
	}
	if row.FinalDecision.Valid && row.FinalDecision.String != "" {
		var d verdict.Decision
		if err := json.Unmarshal([]byte(row.FinalDecision.String), &d); err != nil {
			return rec, errors.Wrapf(err, "failed to decode decision of %s", row.ID)
		}
		rec.Decision = &d
	}
	return rec, nil
}

func notFound(id core.ApplicationID) error {
	return errors.NotFound("application", core.NewNotFoundError("application", id.String()))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
