// Package ui serves the read-only audit dashboard
package ui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"loanverify/internal"
	"loanverify/internal/auditor"
	"loanverify/internal/narrative"
	"loanverify/ports"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html static
var embeddedFiles embed.FS

// Server is the dashboard web server
type Server struct {
	router    *gin.Engine
	auditor   *auditor.QualityAuditor
	store     ports.ApplicationStore
	templates *template.Template
	logger    *internal.Logger
}

// NewServer parses the templates and registers the routes
func NewServer(qa *auditor.QualityAuditor, store ports.ApplicationStore, logger *internal.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"money":   narrative.Money,
		"percent": narrative.Percent,
		"score":   func(v float64) string { return fmt.Sprintf("%.3f", v) },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		router:    gin.New(),
		auditor:   qa,
		store:     store,
		templates: templates,
		logger:    logger.With("Dashboard"),
	}
	if err := s.setupMiddleware(); err != nil {
		return nil, err
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/report", s.handleReport)
	s.router.GET("/applications/:id", s.handleApplication)
	s.router.GET("/api/statistics", s.handleStatistics)
}

// Handler exposes the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}
