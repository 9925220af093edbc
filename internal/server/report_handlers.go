package server

import (
	"bytes"
	"gamewatch/internal/database"
	"gamewatch/internal/model"
	"gamewatch/internal/render"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listReportsHandler(c *gin.Context) {
	filter := database.ReportFilter{
		Kind:     model.ReportKind(c.Query("kind")),
		Instance: c.Query("instance"),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report kind"})
		return
	}

	var ok bool
	if filter.Limit, ok = intQuery(c, "limit", 20); !ok {
		return
	}
	if filter.Offset, ok = intQuery(c, "offset", 0); !ok {
		return
	}

	reports, err := s.rc.ListReports(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) getReportHandler(c *gin.Context) {
	format, ok := outputFormat(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", s.config.Report.CompactLimit)
	if !ok {
		return
	}

	report, err := s.rc.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if format == formatText {
		writeText(c, func(buf *bytes.Buffer) error {
			return render.Report(buf, report, limit)
		})
		return
	}
	c.JSON(http.StatusOK, report)
}
