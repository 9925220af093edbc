package server

import (
	"bytes"
	"errors"
	"gamewatch/internal/controller"
	"gamewatch/internal/criteria"
	"gamewatch/internal/database"
	"gamewatch/internal/timeutil"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	formatJSON = "json"
	formatText = "text"
)

func (s *Server) healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) onlineHandler(c *gin.Context) {
	c.String(http.StatusOK, s.sc.Online())
}

// readyHandler reports each dependency and fails when any of them is down
func (s *Server) readyHandler(c *gin.Context) {
	checks := s.sc.Checks(c.Request.Context())

	status := http.StatusOK
	body := gin.H{}
	for name, err := range checks {
		if err != nil {
			status = http.StatusServiceUnavailable
			body[name] = err.Error()
			continue
		}
		body[name] = "ok"
	}

	c.JSON(status, gin.H{"ready": status == http.StatusOK, "checks": body})
}

// errorStatus maps controller errors onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, controller.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, controller.ErrInvalidJob),
		errors.Is(err, timeutil.ErrInvalidZone):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// bindCriteria resolves the window query parameters, answering 400 itself
// when they are invalid
func (s *Server) bindCriteria(c *gin.Context) (criteria.Criteria, bool) {
	var q criteria.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return criteria.Criteria{}, false
	}

	resolved, err := criteria.Resolve(q, s.now(), s.config.Report.Timezone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return criteria.Criteria{}, false
	}
	return resolved, true
}

// outputFormat reads ?format, defaulting to json
func outputFormat(c *gin.Context) (string, bool) {
	switch format := c.DefaultQuery("format", formatJSON); format {
	case formatJSON, formatText:
		return format, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or text"})
		return "", false
	}
}

// intQuery parses a non negative integer parameter, returning fallback when
// it is absent
func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, false
	}
	return value, true
}

func writeText(c *gin.Context, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}
