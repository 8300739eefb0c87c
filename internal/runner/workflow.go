package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
	"github.com/google/uuid"
)

// sinkTimeout bounds history and event writes after the run is over
const sinkTimeout = 10 * time.Second

// Spec describes one invocation of the workflow
type Spec struct {
	JobName           string
	PayloadPath       string // local file uploaded as the task payload
	WorkspacePath     string // upload target in the workspace
	TaskKey           string
	ClusterID         string
	ClusterName       string
	Parameters        []string
	MaxConcurrentRuns int
	TimeoutSeconds    int
	Tags              map[string]string
	PollInterval      time.Duration
	RunTimeout        time.Duration
}

// Definition builds the job settings for s on the resolved cluster and payload
func (s Spec) Definition(clusterID, payloadURI string) domain.JobDefinition {
	taskKey := s.TaskKey
	if taskKey == "" {
		taskKey = domain.DefaultTaskKey
	}

	maxRuns := s.MaxConcurrentRuns
	if maxRuns <= 0 {
		maxRuns = 1
	}

	return domain.JobDefinition{
		Name: s.JobName,
		Tasks: []domain.TaskSpec{{
			TaskKey:    taskKey,
			ClusterID:  clusterID,
			PythonFile: payloadURI,
			Parameters: s.Parameters,
		}},
		MaxConcurrentRuns: maxRuns,
		TimeoutSeconds:    s.TimeoutSeconds,
		Tags:              s.Tags,
	}
}

// Run uploads the payload, resolves the cluster, upserts the job, triggers a
// run and waits for it. An uploaded artifact is left in place when a later
// step fails.
func (r *Runner) Run(ctx context.Context, spec Spec) (domain.RunResult, error) {
	startedAt := r.clock.Now()
	log := r.logger.With(slog.String("job_name", spec.JobName))

	log.Info("Uploading payload",
		slog.String("local_path", spec.PayloadPath),
		slog.String("workspace_path", spec.WorkspacePath),
	)
	uri, err := r.artifacts.Put(ctx, spec.PayloadPath, spec.WorkspacePath)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("failed to upload payload: %w", err)
	}

	clusterID, err := r.ResolveCluster(ctx, spec.ClusterID, spec.ClusterName)
	if err != nil {
		return domain.RunResult{}, err
	}

	jobID, err := r.EnsureJob(ctx, spec.Definition(clusterID, uri))
	if err != nil {
		return domain.RunResult{}, err
	}

	r.logPreviousRun(ctx, spec.JobName)

	handle, err := r.TriggerRun(ctx, jobID)
	if err != nil {
		return domain.RunResult{}, err
	}

	pollInterval := spec.PollInterval
	if pollInterval <= 0 {
		pollInterval = domain.DefaultPollInterval
	}

	result, waitErr := r.AwaitCompletion(ctx, handle, pollInterval, spec.RunTimeout)

	r.report(ctx, &domain.RunRecord{
		JobName:        spec.JobName,
		JobID:          handle.JobID,
		RunID:          handle.RunID,
		ClusterID:      clusterID,
		ArtifactURI:    uri,
		LifeCycleState: string(result.Status.LifeCycle),
		ResultState:    string(result.Status.Result),
		StateMessage:   result.Status.Message,
		Polls:          result.Polls,
		StartedAt:      startedAt,
		FinishedAt:     r.clock.Now(),
	}, result.Handle, waitErr)

	if waitErr != nil {
		return result, waitErr
	}

	log.Info("Job run succeeded",
		slog.Int64("job_id", handle.JobID),
		slog.Int64("run_id", handle.RunID),
		slog.Int("polls", result.Polls),
	)
	return result, nil
}

// logPreviousRun logs the last recorded outcome of jobName, if any
func (r *Runner) logPreviousRun(ctx context.Context, jobName string) {
	if r.history == nil {
		return
	}

	records, err := r.history.ListRuns(ctx, jobName, 1)
	if err != nil {
		r.logger.Warn("Failed to read run history",
			slog.String("job_name", jobName),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(records) == 0 {
		return
	}

	last := records[0]
	r.logger.Info("Previous run",
		slog.String("job_name", jobName),
		slog.Int64("run_id", last.RunID),
		slog.String("result_state", last.ResultState),
		slog.Time("finished_at", last.FinishedAt),
	)
}

// report writes the optional history row and event. Failures are logged only.
func (r *Runner) report(ctx context.Context, record *domain.RunRecord, handle domain.RunHandle, waitErr error) {
	if r.history == nil && r.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	if r.history != nil {
		record.ID = uuid.NewString()
		if err := r.history.RecordRun(ctx, record); err != nil {
			r.logger.Warn("Failed to record run history",
				slog.Int64("run_id", record.RunID),
				slog.String("error", err.Error()),
			)
		}
	}

	if r.events != nil {
		event := domain.RunEvent{
			JobName:        record.JobName,
			JobID:          record.JobID,
			RunID:          record.RunID,
			RunPageURL:     handle.RunPageURL,
			LifeCycleState: record.LifeCycleState,
			ResultState:    record.ResultState,
			Succeeded:      waitErr == nil,
			FinishedAt:     record.FinishedAt,
		}
		if waitErr != nil {
			event.Error = waitErr.Error()
		}

		if err := r.events.PublishRunEvent(ctx, event); err != nil {
			r.logger.Warn("Failed to publish run event",
				slog.Int64("run_id", record.RunID),
				slog.String("error", err.Error()),
			)
		}
	}
}
