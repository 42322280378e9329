package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"loanverify/domain/application"
	"loanverify/domain/audit"
	"loanverify/domain/core"
	"loanverify/internal/auditor"
	"loanverify/internal/errors"
	"loanverify/internal/pipeline"

	"github.com/go-chi/chi/v5"
)

const defaultHistoryLimit = 10

// applyResponse is the decision record plus the audit taken right after it
type applyResponse struct {
	*pipeline.Record
	QualityAudit *audit.Report `json:"quality_audit,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "loanverify",
		"status":  "running",
		"policy":  s.runner.Policy(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stages := make(map[string]string, len(stageNames))
	for _, name := range stageNames {
		stages[name.String()] = "ready"
	}

	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check: store unreachable: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"store":  "unreachable",
			"stages": stages,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"store":  "ok",
		"stages": stages,
	})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var app application.Application
	if err := json.NewDecoder(r.Body).Decode(&app); err != nil {
		s.writeError(w, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "malformed application body")))
		return
	}

	rec, err := s.runner.Evaluate(r.Context(), app)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := applyResponse{Record: rec}
	if s.auditOnApply {
		report, err := s.auditor.Audit(r.Context(), auditor.SubjectFromRecord(rec))
		if err != nil {
			// the decision stands without its audit
			s.logger.Warn("%s audit failed: %v", rec.ApplicationID, err)
		} else {
			resp.QualityAudit = report
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, errors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}

	records, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":        len(records),
		"applications": records,
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	rows, err := s.store.StageLog(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"application_id": id,
		"logs":           rows,
	})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := s.auditor.AuditStored(r.Context(), *rec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.auditor.Statistics(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.auditor.Report(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report))
}
