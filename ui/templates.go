package ui

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// renderTemplate executes into a buffer first so a failing template never
// leaves a half-written page
func (s *Server) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		s.logger.Error("template %s: %v", templateName, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "template rendering failed"})
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if _, err := buf.WriteTo(c.Writer); err != nil {
		s.logger.Warn("writing %s: %v", templateName, err)
	}
}

// renderMarkdown converts a markdown document to HTML. The parser keeps
// state, so one is built per call.
func renderMarkdown(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML})
	return template.HTML(markdown.ToHTML([]byte(md), p, r))
}
