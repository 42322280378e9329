package ui

import (
	"net/http"

	"loanverify/domain/core"
	"loanverify/internal/errors"

	"github.com/gin-gonic/gin"
)

const recentApplications = 20

func (s *Server) handleIndex(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := s.auditor.Statistics(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	records, err := s.store.List(ctx, recentApplications)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.renderTemplate(c, "index.html", gin.H{
		"Title":        "Loan Decisions",
		"Stats":        stats,
		"Applications": records,
	})
}

func (s *Server) handleReport(c *gin.Context) {
	report, err := s.auditor.Report(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.renderTemplate(c, "report.html", gin.H{
		"Title":  "Quality Assurance Report",
		"Report": renderMarkdown(report),
	})
}

func (s *Server) handleApplication(c *gin.Context) {
	id, err := core.ParseApplicationID(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid application id")
		return
	}

	rec, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	logs, err := s.store.StageLog(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.renderTemplate(c, "application.html", gin.H{
		"Title":  rec.ID.String(),
		"Record": rec,
		"Logs":   logs,
	})
}

func (s *Server) handleStatistics(c *gin.Context) {
	stats, err := s.auditor.Statistics(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) fail(c *gin.Context, err error) {
	if errors.GetCode(err) == errors.CodeNotFound {
		c.String(http.StatusNotFound, "not found")
		return
	}
	s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.String(http.StatusInternalServerError, "internal error")
}
