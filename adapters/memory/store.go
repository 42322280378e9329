package memory

import (
	"context"
	"encoding/json"
	"sync"

	"loanverify/domain/application"
	"loanverify/domain/core"
	"loanverify/domain/stage"
	"loanverify/domain/verdict"
	"loanverify/internal/errors"
)

// ApplicationStore keeps application records and stage logs in process
type ApplicationStore struct {
	mu      sync.RWMutex
	records map[core.ApplicationID]*application.Record
	logs    map[core.ApplicationID][]stage.StageResult
	order   []core.ApplicationID
}

func NewApplicationStore() *ApplicationStore {
	return &ApplicationStore{
		records: make(map[core.ApplicationID]*application.Record),
		logs:    make(map[core.ApplicationID][]stage.StageResult),
	}
}

func (s *ApplicationStore) Create(ctx context.Context, record application.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return errors.Wrapf(core.ErrConflict, "application %s", record.ID)
	}
	rec := cloneRecord(record)
	if rec.StageResults == nil {
		rec.StageResults = make(map[stage.StageName]json.RawMessage)
	}
	s.records[record.ID] = &rec
	s.order = append(s.order, record.ID)
	return nil
}

func (s *ApplicationStore) UpdateStage(ctx context.Context, id core.ApplicationID, phase stage.Phase) error {
	return s.update(id, func(r *application.Record) {
		r.CurrentStage = phase
	})
}

func (s *ApplicationStore) SaveStageResult(ctx context.Context, result stage.StageResult) error {
	return s.update(result.ApplicationID, func(r *application.Record) {
		if result.Success && len(result.Data) > 0 {
			r.StageResults[result.StageName] = append(json.RawMessage(nil), result.Data...)
		}
		s.logs[result.ApplicationID] = append(s.logs[result.ApplicationID], result)
	})
}

func (s *ApplicationStore) SaveDecision(ctx context.Context, id core.ApplicationID, decision verdict.Decision) error {
	return s.update(id, func(r *application.Record) {
		d := decision
		r.Decision = &d
		r.Status = stage.StatusCompleted
		r.CurrentStage = stage.PhaseCompleted
	})
}

func (s *ApplicationStore) MarkFailed(ctx context.Context, id core.ApplicationID) error {
	return s.update(id, func(r *application.Record) {
		r.Status = stage.StatusFailed
		r.CurrentStage = stage.PhaseFailed
	})
}

func (s *ApplicationStore) Get(ctx context.Context, id core.ApplicationID) (*application.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}
	out := cloneRecord(*rec)
	return &out, nil
}

func (s *ApplicationStore) List(ctx context.Context, limit int) ([]application.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]application.Record, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, cloneRecord(*s.records[s.order[i]]))
	}
	return out, nil
}

func (s *ApplicationStore) StageLog(ctx context.Context, id core.ApplicationID) ([]stage.StageResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.records[id]; !ok {
		return nil, notFound(id)
	}
	return append([]stage.StageResult(nil), s.logs[id]...), nil
}

func (s *ApplicationStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *ApplicationStore) update(id core.ApplicationID, fn func(*application.Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return notFound(id)
	}
	fn(rec)
	rec.UpdatedAt = core.Now()
	return nil
}

func notFound(id core.ApplicationID) error {
	return errors.NotFound("application", core.NewNotFoundError("application", id.String()))
}

func cloneRecord(r application.Record) application.Record {
	out := r
	out.StageResults = make(map[stage.StageName]json.RawMessage, len(r.StageResults))
	for k, v := range r.StageResults {
		out.StageResults[k] = append(json.RawMessage(nil), v...)
	}
	if r.Decision != nil {
		d := *r.Decision
		out.Decision = &d
	}
	return out
}
