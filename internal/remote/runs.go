package remote

import (
	"context"
	"net/url"
	"strconv"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
)

// Runs starts job runs and reads their state
type Runs struct {
	client *workspace.Client
}

// NewRuns creates a new run tracker
func NewRuns(client *workspace.Client) *Runs {
	return &Runs{client: client}
}

// RunNow triggers jobID immediately
func (r *Runs) RunNow(ctx context.Context, jobID int64, idempotencyToken string) (domain.RunHandle, error) {
	var resp workspace.RunNowResponse
	req := workspace.RunNowRequest{JobID: jobID, IdempotencyToken: idempotencyToken}
	if err := r.client.Post(ctx, workspace.APIVersion21, workspace.PathJobsRunNow, req, &resp); err != nil {
		return domain.RunHandle{}, err
	}

	return domain.RunHandle{
		JobID:       jobID,
		RunID:       resp.RunID,
		NumberInJob: resp.NumberInJob,
	}, nil
}

// GetRun returns the raw run
func (r *Runs) GetRun(ctx context.Context, runID int64) (*workspace.Run, error) {
	var resp workspace.Run
	query := url.Values{"run_id": {strconv.FormatInt(runID, 10)}}
	if err := r.client.Get(ctx, workspace.APIVersion21, workspace.PathJobsRunsGet, query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRunStatus returns the current lifecycle and result of runID
func (r *Runs) GetRunStatus(ctx context.Context, runID int64) (domain.RunStatus, error) {
	run, err := r.GetRun(ctx, runID)
	if err != nil {
		return domain.RunStatus{}, err
	}
	status := fromRunState(run.State)
	status.PageURL = run.RunPageURL
	return status, nil
}
