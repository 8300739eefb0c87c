package remote

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
)

// DefaultPageSize is the jobs/list page size; the API caps it at 100
const DefaultPageSize = 100

// Jobs is the job registry backed by the jobs API
type Jobs struct {
	client   *workspace.Client
	pageSize int
}

// NewJobs creates a new job repository
func NewJobs(client *workspace.Client, pageSize int) *Jobs {
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	return &Jobs{client: client, pageSize: pageSize}
}

// FindByName scans every page of jobs/list for an exact, case-sensitive name
// match. The API's own name filter is case-insensitive, so it is not used.
// The first match in listing order wins.
func (j *Jobs) FindByName(ctx context.Context, name string) (*domain.Job, error) {
	pageToken := ""
	for {
		query := url.Values{"limit": {strconv.Itoa(j.pageSize)}}
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var resp workspace.ListJobsResponse
		if err := j.client.Get(ctx, workspace.APIVersion21, workspace.PathJobsList, query, &resp); err != nil {
			return nil, fmt.Errorf("failed to list jobs: %w", err)
		}

		for _, job := range resp.Jobs {
			if job.Settings.Name == name {
				found := fromJob(job)
				return &found, nil
			}
		}

		if !resp.HasMore || resp.NextPageToken == "" {
			return nil, domain.ErrJobNotFound
		}
		pageToken = resp.NextPageToken
	}
}

// Create registers a new job and returns its ID
func (j *Jobs) Create(ctx context.Context, def domain.JobDefinition) (int64, error) {
	var resp workspace.CreateJobResponse
	if err := j.client.Post(ctx, workspace.APIVersion21, workspace.PathJobsCreate, toSettings(def), &resp); err != nil {
		return 0, err
	}
	return resp.JobID, nil
}

// Get reads the full settings of jobID
func (j *Jobs) Get(ctx context.Context, jobID int64) (*domain.Job, error) {
	var resp workspace.Job
	query := url.Values{"job_id": {strconv.FormatInt(jobID, 10)}}
	if err := j.client.Get(ctx, workspace.APIVersion21, workspace.PathJobsGet, query, &resp); err != nil {
		return nil, err
	}

	job := fromJob(resp)
	return &job, nil
}

// Update replaces every setting of jobID with def
func (j *Jobs) Update(ctx context.Context, jobID int64, def domain.JobDefinition) error {
	req := workspace.ResetJobRequest{JobID: jobID, NewSettings: toSettings(def)}
	return j.client.Post(ctx, workspace.APIVersion21, workspace.PathJobsReset, req, nil)
}
