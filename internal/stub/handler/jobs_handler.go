package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cuongbtq/workspace-jobs/internal/stub/model"
	"github.com/cuongbtq/workspace-jobs/internal/stub/storage"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ListJobs handles GET /api/2.1/jobs/list
func (h *Handler) ListJobs(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter,
				fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}

	offset, err := DecodePageToken(c.Query("page_token"))
	if err != nil {
		h.logger.Error("Invalid page token", slog.String("error", err.Error()))
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "Invalid page token")
		return
	}

	jobs, hasMore := h.storage.ListJobs(offset, limit)

	resp := workspace.ListJobsResponse{
		Jobs:    make([]workspace.Job, len(jobs)),
		HasMore: hasMore,
	}
	for i, job := range jobs {
		resp.Jobs[i] = toJob(job)
	}
	if hasMore {
		resp.NextPageToken = EncodePageToken(offset + len(jobs))
	}

	c.JSON(http.StatusOK, resp)
}

// GetJob handles GET /api/2.1/jobs/get
func (h *Handler) GetJob(c *gin.Context) {
	jobID, ok := parseID(c.Query("job_id"))
	if !ok {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "job_id must be a positive integer")
		return
	}

	job, err := h.storage.GetJob(jobID)
	if err != nil {
		h.jobError(c, jobID, err)
		return
	}

	c.JSON(http.StatusOK, toJob(job))
}

// CreateJob handles POST /api/2.1/jobs/create
func (h *Handler) CreateJob(c *gin.Context) {
	var settings workspace.JobSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "Invalid request body")
		return
	}
	if msg := validateSettings(settings); msg != "" {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, msg)
		return
	}

	job := h.storage.CreateJob(settings)

	h.logger.Info("Job created",
		slog.Int64("job_id", job.JobID),
		slog.String("name", settings.Name),
	)

	c.JSON(http.StatusOK, workspace.CreateJobResponse{JobID: job.JobID})
}

// ResetJob handles POST /api/2.1/jobs/reset
func (h *Handler) ResetJob(c *gin.Context) {
	var req workspace.ResetJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "Invalid request body")
		return
	}
	if req.JobID <= 0 {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "job_id is required")
		return
	}
	if msg := validateSettings(req.NewSettings); msg != "" {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, msg)
		return
	}

	if err := h.storage.ResetJob(req.JobID, req.NewSettings); err != nil {
		h.jobError(c, req.JobID, err)
		return
	}

	h.logger.Info("Job reset",
		slog.Int64("job_id", req.JobID),
		slog.String("name", req.NewSettings.Name),
	)

	c.JSON(http.StatusOK, gin.H{})
}

// RunNow handles POST /api/2.1/jobs/run-now
func (h *Handler) RunNow(c *gin.Context) {
	var req workspace.RunNowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "Invalid request body")
		return
	}
	if req.JobID <= 0 {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "job_id is required")
		return
	}

	run, err := h.storage.RunNow(req.JobID, req.IdempotencyToken)
	if err != nil {
		h.jobError(c, req.JobID, err)
		return
	}

	h.logger.Info("Run started",
		slog.Int64("job_id", run.JobID),
		slog.Int64("run_id", run.RunID),
	)

	c.JSON(http.StatusOK, workspace.RunNowResponse{
		RunID:       run.RunID,
		NumberInJob: run.NumberInJob,
	})
}

// GetRun handles GET /api/2.1/jobs/runs/get. Every read advances the run one
// step through its lifecycle.
func (h *Handler) GetRun(c *gin.Context) {
	runID, ok := parseID(c.Query("run_id"))
	if !ok {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter, "run_id must be a positive integer")
		return
	}

	run, state, err := h.storage.ReadRun(runID)
	if errors.Is(err, storage.ErrNotFound) {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter,
			fmt.Sprintf("Run %d does not exist.", runID))
		return
	}
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	resp := workspace.Run{
		JobID:       run.JobID,
		RunID:       run.RunID,
		NumberInJob: run.NumberInJob,
		RunPageURL:  fmt.Sprintf("%s/#job/%d/run/%d", h.publicURL, run.JobID, run.RunID),
		State:       state,
		StartTime:   run.StartedAt.UnixMilli(),
	}
	if !run.EndedAt.IsZero() {
		resp.EndTime = run.EndedAt.UnixMilli()
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) jobError(c *gin.Context, jobID int64, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		WriteError(c, http.StatusBadRequest, workspace.ErrorCodeInvalidParameter,
			fmt.Sprintf("Job %d does not exist.", jobID))
		return
	}

	h.logger.Error("Job request failed", slog.Int64("job_id", jobID), slog.String("error", err.Error()))
	c.AbortWithStatus(http.StatusInternalServerError)
}

func validateSettings(s workspace.JobSettings) string {
	keys := make(map[string]bool, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.TaskKey == "" {
			return "task_key is required for every task"
		}
		if keys[t.TaskKey] {
			return fmt.Sprintf("task_key %q is not unique", t.TaskKey)
		}
		keys[t.TaskKey] = true
	}
	if s.MaxConcurrentRuns < 0 {
		return "max_concurrent_runs must not be negative"
	}
	return ""
}

func toJob(job model.Job) workspace.Job {
	return workspace.Job{
		JobID:           job.JobID,
		CreatorUserName: job.CreatorName,
		CreatedTime:     job.CreatedAt.UnixMilli(),
		Settings:        job.Settings,
	}
}
