package ui

import (
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// setupMiddleware configures recovery, request logging and the embedded
// static assets
func (s *Server) setupMiddleware() error {
	s.router.Use(gin.Recovery(), s.requestLogger())

	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to open embedded static files: %w", err)
	}
	s.router.StaticFS("/static", http.FS(staticFS))
	return nil
}

// requestLogger logs one line per request through the dashboard logger
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		line := "%s %s %d %s"
		args := []interface{}{c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Microsecond)}
		if status >= http.StatusInternalServerError {
			s.logger.Error(line, args...)
			return
		}
		s.logger.Debug(line, args...)
	}
}
