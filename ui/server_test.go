package ui

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"loanverify/adapters/memory"
	"loanverify/domain/application"
	"loanverify/domain/scoring"
	"loanverify/internal"
	"loanverify/internal/auditor"
	"loanverify/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newDashboard(t *testing.T) (*Server, *pipeline.Runner, *auditor.QualityAuditor) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := internal.NewLoggerTo(io.Discard, internal.LogLevelError)
	store := memory.NewApplicationStore()
	qa := auditor.New(memory.NewAuditHistory(), auditor.WithLogger(logger))
	runner := pipeline.NewRunner(scoring.DefaultParameters(), store, pipeline.WithLogger(logger))

	s, err := NewServer(qa, store, logger)
	require.NoError(t, err)
	return s, runner, qa
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func evaluate(t *testing.T, runner *pipeline.Runner, qa *auditor.QualityAuditor) *pipeline.Record {
	t.Helper()
	rec, err := runner.Evaluate(context.Background(), application.Application{
		Name: "Erin", Income: 85000, LoanAmount: 200000, ExistingLoans: 2,
		RepaymentScore: 0.7, EmploymentYears: 2, CompanyName: "Small Shop", CollateralValue: 210000,
	})
	require.NoError(t, err)
	_, err = qa.Audit(context.Background(), auditor.SubjectFromRecord(rec))
	require.NoError(t, err)
	return rec
}

func TestIndexEmpty(t *testing.T) {
	s, _, _ := newDashboard(t)

	w := get(t, s, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No tests run yet")
	assert.Contains(t, w.Body.String(), "No applications yet")
	assert.Contains(t, w.Body.String(), "</html>")
}

func TestIndexListsApplications(t *testing.T) {
	s, runner, qa := newDashboard(t)
	rec := evaluate(t, runner, qa)

	w := get(t, s, "/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, rec.ApplicationID.String())
	assert.Contains(t, body, "$200,000.00")
	assert.Contains(t, body, string(rec.Decision))
	assert.NotContains(t, body, "No tests run yet")
}

func TestApplicationDetail(t *testing.T) {
	s, runner, qa := newDashboard(t)
	rec := evaluate(t, runner, qa)

	w := get(t, s, "/applications/"+rec.ApplicationID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Erin")
	assert.Contains(t, w.Body.String(), "final_decision")

	w = get(t, s, "/applications/APP-20260101-DEADBEEF")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportRendersMarkdown(t *testing.T) {
	s, runner, qa := newDashboard(t)
	evaluate(t, runner, qa)

	w := get(t, s, "/report")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Quality Assurance Report</h1>")
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, "<strong>System Status:")
	assert.NotContains(t, body, "## Overall")
}

func TestStatisticsJSON(t *testing.T) {
	s, runner, qa := newDashboard(t)
	evaluate(t, runner, qa)
	evaluate(t, runner, qa)

	w := get(t, s, "/api/statistics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), gjson.Get(w.Body.String(), "total_tests").Int())
}

func TestRenderMarkdownSkipsRawHTML(t *testing.T) {
	out := string(renderMarkdown("# Title\n\n<script>alert(1)</script>\n"))
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.NotContains(t, out, "<script>")
}

func TestStaticStylesheetServed(t *testing.T) {
	s, _, _ := newDashboard(t)

	w := get(t, s, "/static/css/dashboard.css")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ".Rejected")

	assert.Contains(t, get(t, s, "/").Body.String(), `href="/static/css/dashboard.css"`)
}
