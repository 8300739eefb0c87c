package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
	"github.com/google/uuid"
)

// Config holds runner dependencies. History and Events are optional.
type Config struct {
	Logger    *slog.Logger
	Artifacts ArtifactStore
	Jobs      JobRepository
	Runs      RunTracker
	Clusters  ClusterLister
	Clock     Clock
	History   RunHistory
	Events    EventPublisher

	// NewToken generates run-now idempotency tokens
	NewToken func() string
}

// Runner drives the upload, upsert, trigger and poll workflow
type Runner struct {
	logger    *slog.Logger
	artifacts ArtifactStore
	jobs      JobRepository
	runs      RunTracker
	clusters  ClusterLister
	clock     Clock
	history   RunHistory
	events    EventPublisher
	newToken  func() string
}

// NewRunner creates a new runner instance
func NewRunner(cfg *Config) *Runner {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}

	newToken := cfg.NewToken
	if newToken == nil {
		newToken = uuid.NewString
	}

	return &Runner{
		logger:    cfg.Logger,
		artifacts: cfg.Artifacts,
		jobs:      cfg.Jobs,
		runs:      cfg.Runs,
		clusters:  cfg.Clusters,
		clock:     clock,
		history:   cfg.History,
		events:    cfg.Events,
		newToken:  newToken,
	}
}

// EnsureJob makes the registry hold exactly def under def.Name. An existing
// job has its settings fully replaced; otherwise a new job is created.
func (r *Runner) EnsureJob(ctx context.Context, def domain.JobDefinition) (int64, error) {
	if def.Name == "" {
		return 0, domain.NewConfigurationError("job.name", "must not be empty")
	}

	existing, err := r.jobs.FindByName(ctx, def.Name)
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		jobID, err := r.jobs.Create(ctx, def)
		if err != nil {
			return 0, fmt.Errorf("failed to create job %q: %w", def.Name, err)
		}

		r.logger.Info("Job created",
			slog.String("job_name", def.Name),
			slog.Int64("job_id", jobID),
		)
		return jobID, nil

	case err != nil:
		return 0, fmt.Errorf("failed to look up job %q: %w", def.Name, err)
	}

	// jobs/list omits task settings, so read the full job before replacing it
	previous, err := r.jobs.Get(ctx, existing.JobID)
	if err != nil {
		return 0, fmt.Errorf("failed to read job %d: %w", existing.JobID, err)
	}
	r.logger.Debug("Replacing job settings",
		slog.Int64("job_id", previous.JobID),
		slog.Int("previous_tasks", len(previous.Definition.Tasks)),
		slog.Int("tasks", len(def.Tasks)),
	)

	if err := r.jobs.Update(ctx, existing.JobID, def); err != nil {
		return 0, fmt.Errorf("failed to update job %d: %w", existing.JobID, err)
	}

	r.logger.Info("Job updated",
		slog.String("job_name", def.Name),
		slog.Int64("job_id", existing.JobID),
	)
	return existing.JobID, nil
}

// TriggerRun starts a run of jobID now, outside of any schedule
func (r *Runner) TriggerRun(ctx context.Context, jobID int64) (domain.RunHandle, error) {
	handle, err := r.runs.RunNow(ctx, jobID, r.newToken())
	if err != nil {
		return domain.RunHandle{}, fmt.Errorf("failed to trigger run of job %d: %w", jobID, err)
	}

	r.logger.Info("Run triggered",
		slog.Int64("job_id", handle.JobID),
		slog.Int64("run_id", handle.RunID),
	)
	return handle, nil
}

// AwaitCompletion polls the run every pollInterval until it reaches a
// terminal state. A timeout of zero waits forever. Non-success results are
// returned as *domain.RunFailedError, an exceeded timeout as
// *domain.RunTimeoutError.
func (r *Runner) AwaitCompletion(ctx context.Context, handle domain.RunHandle, pollInterval, timeout time.Duration) (domain.RunResult, error) {
	if pollInterval <= 0 {
		return domain.RunResult{Handle: handle}, domain.NewConfigurationError("poll_interval", "must be greater than 0")
	}

	start := r.clock.Now()
	var deadline time.Time
	if timeout > 0 {
		deadline = start.Add(timeout)
	}

	result := domain.RunResult{Handle: handle}

	for {
		status, err := r.runs.GetRunStatus(ctx, handle.RunID)
		if err != nil {
			return result, fmt.Errorf("failed to get status of run %d: %w", handle.RunID, err)
		}

		result.Polls++
		result.Status = status
		result.Elapsed = r.clock.Now().Sub(start)
		if result.Handle.RunPageURL == "" {
			result.Handle.RunPageURL = status.PageURL
		}

		if status.Terminal() {
			r.logger.Info("Run finished",
				slog.Int64("run_id", handle.RunID),
				slog.String("life_cycle_state", string(status.LifeCycle)),
				slog.String("result_state", string(status.Result)),
				slog.String("state_message", status.Message),
				slog.String("run_page_url", result.Handle.RunPageURL),
				slog.Duration("elapsed", result.Elapsed),
			)

			if !status.Succeeded() {
				return result, &domain.RunFailedError{Handle: result.Handle, Status: status}
			}
			return result, nil
		}

		r.logger.Info("Run in progress",
			slog.Int64("run_id", handle.RunID),
			slog.String("life_cycle_state", string(status.LifeCycle)),
			slog.String("result_state", string(status.Result)),
			slog.Int("poll", result.Polls),
		)

		wait := pollInterval
		if timeout > 0 {
			remaining := deadline.Sub(r.clock.Now())
			if remaining <= 0 {
				return result, &domain.RunTimeoutError{Handle: result.Handle, Last: status, Timeout: timeout}
			}
			// the last poll lands on the deadline
			wait = min(wait, remaining)
		}

		if err := r.clock.Sleep(ctx, wait); err != nil {
			return result, fmt.Errorf("stopped waiting for run %d: %w", handle.RunID, err)
		}
	}
}
