package server

import (
	"errors"
	"gamewatch/internal/model"
	"gamewatch/internal/orchestrator"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JobRequest represents the request for creating a job
type JobRequest struct {
	Type    string                 `json:"type"`
	Payload model.ReportJobPayload `json:"payload"`
}

var jobStatuses = []model.JobStatus{
	model.StatusQueued,
	model.StatusProcessing,
	model.StatusCompleted,
	model.StatusFailed,
	model.StatusCancelled,
}

func isValidJobStatus(status model.JobStatus) bool {
	for _, s := range jobStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s *Server) createJobHandler(c *gin.Context) {
	var req JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "" {
		req.Type = model.JobTypeReport
	}

	job, err := s.jc.CreateJob(c.Request.Context(), req.Type, req.Payload, c.GetHeader("X-Requested-By"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

func (s *Server) getJobHandler(c *gin.Context) {
	job, err := s.jc.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) listJobsHandler(c *gin.Context) {
	status := model.JobStatus(c.Query("status"))
	if status != "" && !isValidJobStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job status"})
		return
	}
	limit, ok := intQuery(c, "limit", 20)
	if !ok {
		return
	}

	jobs, err := s.jc.ListJobs(c.Request.Context(), status, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (s *Server) jobTypesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.jc.GetAvailableJobTypes())
}

func (s *Server) cancelJobHandler(c *gin.Context) {
	err := s.jc.CancelJob(c.Param("type"))
	switch {
	case errors.Is(err, orchestrator.ErrUnknownJobType):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, orchestrator.ErrNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		respondError(c, err)
	default:
		c.JSON(http.StatusAccepted, gin.H{"cancelled": c.Param("type")})
	}
}
