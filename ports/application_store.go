package ports

import (
	"context"

	"loanverify/domain/application"
	"loanverify/domain/core"
	"loanverify/domain/stage"
	"loanverify/domain/verdict"
)

// ApplicationStore is the write-through store the pipeline records its
// progress in. The pipeline never reads its own in-flight state back.
type ApplicationStore interface {
	// Create stores a new record with status pending and stage initiated
	Create(ctx context.Context, record application.Record) error
	UpdateStage(ctx context.Context, id core.ApplicationID, phase stage.Phase) error
	// SaveStageResult appends a stage log row and, when successful, merges its
	// payload into the record's stage results
	SaveStageResult(ctx context.Context, result stage.StageResult) error
	// SaveDecision stores the decision and marks the record completed
	SaveDecision(ctx context.Context, id core.ApplicationID, decision verdict.Decision) error
	MarkFailed(ctx context.Context, id core.ApplicationID) error

	Get(ctx context.Context, id core.ApplicationID) (*application.Record, error)
	// List returns the most recent records first
	List(ctx context.Context, limit int) ([]application.Record, error)
	// StageLog returns the log rows of an application in insertion order
	StageLog(ctx context.Context, id core.ApplicationID) ([]stage.StageResult, error)

	Ping(ctx context.Context) error
}
