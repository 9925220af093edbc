package server

import (
	"bytes"
	"gamewatch/internal/activity"
	"gamewatch/internal/render"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) instanceActivityHandler(c *gin.Context) {
	format, ok := outputFormat(c)
	if !ok {
		return
	}
	criteria, ok := s.bindCriteria(c)
	if !ok {
		return
	}

	report, err := s.ac.InstanceActivity(c.Request.Context(), criteria)
	if err != nil {
		respondError(c, err)
		return
	}

	if format == formatText {
		writeText(c, func(buf *bytes.Buffer) error {
			return render.Instances(buf, *report, criteria.TZ)
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) playerActivityHandler(c *gin.Context) {
	format, ok := outputFormat(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", s.config.Report.CompactLimit)
	if !ok {
		return
	}
	criteria, ok := s.bindCriteria(c)
	if !ok {
		return
	}

	report, err := s.ac.PlayerActivity(c.Request.Context(), criteria)
	if err != nil {
		respondError(c, err)
		return
	}

	if format == formatText {
		writeText(c, func(buf *bytes.Buffer) error {
			return render.Players(buf, *report, criteria.TZ, limit)
		})
		return
	}

	// JSON keeps the full ranking unless limit is given
	if c.Query("limit") != "" {
		report = compactReport(report, limit)
	}
	c.JSON(http.StatusOK, report)
}

func compactReport(report *activity.PlayerReport, limit int) *activity.PlayerReport {
	compacted := *report
	compacted.Records = make([]activity.InstancePlayers, len(report.Records))
	for i, r := range report.Records {
		r.Players = activity.CompactPlayers(r.Players, limit)
		compacted.Records[i] = r
	}
	return &compacted
}

func (s *Server) chatHandler(c *gin.Context) {
	format, ok := outputFormat(c)
	if !ok {
		return
	}
	criteria, ok := s.bindCriteria(c)
	if !ok {
		return
	}

	rows, err := s.ac.ChatLog(c.Request.Context(), criteria)
	if err != nil {
		respondError(c, err)
		return
	}

	if format == formatText {
		writeText(c, func(buf *bytes.Buffer) error {
			return render.Chat(buf, rows)
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"criteria": criteria, "records": rows})
}
