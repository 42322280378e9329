package stage

import (
	"encoding/json"

	"loanverify/domain/core"
)

// StageName represents a named stage in the pipeline
type StageName string

// StageKind categorizes stages by function
type StageKind string

const (
	StageKindPlanning     StageKind = "planning"     // verification plan
	StageKindVerification StageKind = "verification" // independent verdicts
	StageKindSynthesis    StageKind = "synthesis"    // critique and decision
	StageKindAudit        StageKind = "audit"        // post-hoc quality checks
)

// Predefined stage names. The values double as store keys and JSON summary keys.
const (
	StagePlanning   StageName = "planning"
	StageCredit     StageName = "credit_history"
	StageEmployment StageName = "employment"
	StageCollateral StageName = "collateral"
	StageCritique   StageName = "critique"
	StageDecision   StageName = "final_decision"
	StageAudit      StageName = "audit"
	StagePipeline   StageName = "pipeline"
)

// VerificationStages are the three mutually independent stages, in reporting order
var VerificationStages = []StageName{StageCredit, StageEmployment, StageCollateral}

// Kind returns the functional category of a stage
func (s StageName) Kind() StageKind {
	switch s {
	case StagePlanning:
		return StageKindPlanning
	case StageCredit, StageEmployment, StageCollateral:
		return StageKindVerification
	case StageAudit:
		return StageKindAudit
	default:
		return StageKindSynthesis
	}
}

func (s StageName) String() string { return string(s) }

// Phase is the coarse position of an application in its lifecycle, stored as
// the record's current stage
type Phase string

const (
	PhaseInitiated     Phase = "initiated"
	PhasePlanning      Phase = "planning"
	PhaseVerification  Phase = "verification"
	PhaseCritique      Phase = "critique"
	PhaseFinalDecision Phase = "final_decision"
	PhaseCompleted     Phase = "completed"
	PhaseFailed        Phase = "failed"
)

// Status is the application record status
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StageResult is one row of an application's stage log
type StageResult struct {
	ID            core.ID            `json:"id" db:"id"`
	ApplicationID core.ApplicationID `json:"application_id" db:"application_id"`
	StageName     StageName          `json:"stage_name" db:"stage_name"`
	Success       bool               `json:"success" db:"success"`
	Data          json.RawMessage    `json:"data,omitempty" db:"data"`
	Error         string             `json:"error,omitempty" db:"error"`
	Duration      int64              `json:"duration_ms" db:"duration_ms"` // milliseconds
	Timestamp     core.Timestamp     `json:"timestamp" db:"-"`
}

// NewStageResult marshals payload into a successful log row
func NewStageResult(appID core.ApplicationID, name StageName, payload interface{}, durationMs int64) (StageResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return StageResult{}, err
	}
	return StageResult{
		ID:            core.NewID(),
		ApplicationID: appID,
		StageName:     name,
		Success:       true,
		Data:          data,
		Duration:      durationMs,
		Timestamp:     core.Now(),
	}, nil
}

// NewFailedStageResult builds a log row for a failed stage
func NewFailedStageResult(appID core.ApplicationID, name StageName, cause error) StageResult {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return StageResult{
		ID:            core.NewID(),
		ApplicationID: appID,
		StageName:     name,
		Success:       false,
		Error:         msg,
		Timestamp:     core.Now(),
	}
}
