package application

import (
	"encoding/json"

	"loanverify/domain/core"
	"loanverify/domain/stage"
	"loanverify/domain/verdict"
)

// Record is the stored state of one application: its input, lifecycle
// position, merged stage payloads and, once decided, the decision
type Record struct {
	ID            core.ApplicationID                  `json:"application_id"`
	ApplicantName string                              `json:"applicant_name"`
	Application   Application                         `json:"application_data"`
	Status        stage.Status                        `json:"status"`
	CurrentStage  stage.Phase                         `json:"current_stage"`
	StageResults  map[stage.StageName]json.RawMessage `json:"agent_results"`
	Decision      *verdict.Decision                   `json:"final_decision,omitempty"`
	CreatedAt     core.Timestamp                      `json:"created_at"`
	UpdatedAt     core.Timestamp                      `json:"updated_at"`
}

// NewRecord builds the pending record created before the first stage runs
func NewRecord(id core.ApplicationID, app Application) Record {
	now := core.Now()
	return Record{
		ID:            id,
		ApplicantName: app.Name,
		Application:   app,
		Status:        stage.StatusPending,
		CurrentStage:  stage.PhaseInitiated,
		StageResults:  make(map[stage.StageName]json.RawMessage),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsDecided reports whether a decision has been stored
func (r Record) IsDecided() bool {
	return r.Status == stage.StatusCompleted && r.Decision != nil
}

// StagePayload decodes the stored payload of one stage into out
func (r Record) StagePayload(name stage.StageName, out interface{}) (bool, error) {
	raw, ok := r.StageResults[name]
	if !ok || len(raw) == 0 {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}
