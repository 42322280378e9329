// Package api is the JSON HTTP transport over the pipeline, the application
// store and the quality auditor.
package api

import (
	"net/http"
	"time"

	"loanverify/domain/stage"
	"loanverify/internal"
	"loanverify/internal/auditor"
	"loanverify/internal/pipeline"
	"loanverify/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server holds the handlers' collaborators
type Server struct {
	runner       *pipeline.Runner
	auditor      *auditor.QualityAuditor
	store        ports.ApplicationStore
	auditOnApply bool
	timeout      time.Duration
	logger       *internal.Logger
}

// Option configures a Server
type Option func(*Server)

// WithAuditOnApply runs the quality audit after every successful application
func WithAuditOnApply(on bool) Option { return func(s *Server) { s.auditOnApply = on } }

// WithTimeout bounds every request
func WithTimeout(d time.Duration) Option { return func(s *Server) { s.timeout = d } }

func WithLogger(l *internal.Logger) Option { return func(s *Server) { s.logger = l.With("API") } }

// NewServer creates the transport
func NewServer(runner *pipeline.Runner, qa *auditor.QualityAuditor, store ports.ApplicationStore, opts ...Option) *Server {
	s := &Server{
		runner:       runner,
		auditor:      qa,
		store:        store,
		auditOnApply: true,
		timeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = internal.NewDefaultLogger().With("API")
	}
	return s
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/loan", func(r chi.Router) {
		r.Post("/apply", s.handleApply)
		r.Get("/status/{id}", s.handleStatus)
		r.Get("/history", s.handleHistory)
		r.Get("/{id}/logs", s.handleLogs)
		r.Post("/{id}/audit", s.handleAudit)
	})

	r.Route("/audit", func(r chi.Router) {
		r.Get("/statistics", s.handleStatistics)
		r.Get("/report", s.handleReport)
	})

	return r
}

// stageNames lists every stage the health check reports on
var stageNames = []stage.StageName{
	stage.StagePlanning, stage.StageCredit, stage.StageEmployment,
	stage.StageCollateral, stage.StageCritique, stage.StageDecision,
}
