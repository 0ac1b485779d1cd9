package httpapi

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/unify/internal/record"
	"horse.fit/unify/internal/scheduler"
)

type submitReconciliationRequest struct {
	EntityKey  string `json:"entity_key"`
	EntityType string `json:"entity_type"`
}

func (s *Server) handleSubmitReconciliation(c echo.Context) error {
	var req submitReconciliationRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	if strings.TrimSpace(req.EntityKey) == "" {
		return failValidation(c, map[string]string{"entity_key": "is required"})
	}
	entityType, ok := record.ParseEntityType(req.EntityType)
	if !ok {
		return failValidation(c, map[string]string{"entity_type": "must be contact or account"})
	}

	job, coalesced, err := s.scheduler.Submit(entityType, req.EntityKey)
	if err != nil {
		if errors.Is(err, scheduler.ErrShuttingDown) {
			return fail(c, http.StatusServiceUnavailable, "Service is shutting down", nil)
		}
		return failValidation(c, map[string]string{"entity_key": err.Error()})
	}

	return accepted(c, map[string]any{
		"job":       job,
		"coalesced": coalesced,
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	jobID := strings.TrimSpace(c.Param("job_id"))
	if jobID == "" {
		return failValidation(c, map[string]string{"job_id": "is required"})
	}

	job, found := s.scheduler.Get(jobID)
	if !found {
		return failNotFound(c, "Job not found")
	}
	return success(c, map[string]any{"job": job})
}

func (s *Server) handleCancelJob(c echo.Context) error {
	jobID := strings.TrimSpace(c.Param("job_id"))
	if jobID == "" {
		return failValidation(c, map[string]string{"job_id": "is required"})
	}

	job, err := s.scheduler.Cancel(jobID)
	switch {
	case errors.Is(err, scheduler.ErrNotFound):
		return failNotFound(c, "Job not found")
	case errors.Is(err, scheduler.ErrTerminal):
		return fail(c, http.StatusConflict, "Job already finished", map[string]any{"job": job})
	case err != nil:
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("cancel job failed")
		return internalError(c, "Failed to cancel job")
	}

	return success(c, map[string]any{"job": job})
}

func (s *Server) handleListJobs(c echo.Context) error {
	stateFilter := strings.TrimSpace(strings.ToLower(c.QueryParam("state")))

	jobs := s.scheduler.Jobs()
	if stateFilter != "" {
		filtered := jobs[:0]
		for _, job := range jobs {
			if string(job.State) == stateFilter {
				filtered = append(filtered, job)
			}
		}
		jobs = filtered
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	return success(c, map[string]any{
		"items": jobs,
		"count": len(jobs),
	})
}
