package runner

import (
	"context"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
)

// ArtifactStore uploads a local payload and returns a URI that a task can reference.
// Put always overwrites the target.
type ArtifactStore interface {
	Put(ctx context.Context, localPath, remotePath string) (string, error)
}

// JobRepository is the job registry keyed by job name.
// FindByName returns domain.ErrJobNotFound when no job has the name.
type JobRepository interface {
	FindByName(ctx context.Context, name string) (*domain.Job, error)
	Create(ctx context.Context, def domain.JobDefinition) (int64, error)
	Update(ctx context.Context, jobID int64, def domain.JobDefinition) error
	Get(ctx context.Context, jobID int64) (*domain.Job, error)
}

// RunTracker starts runs and reports their status
type RunTracker interface {
	RunNow(ctx context.Context, jobID int64, idempotencyToken string) (domain.RunHandle, error)
	GetRunStatus(ctx context.Context, runID int64) (domain.RunStatus, error)
}

// ClusterLister looks up compute resources
type ClusterLister interface {
	GetCluster(ctx context.Context, clusterID string) (*domain.Cluster, error)
	ListClusters(ctx context.Context) ([]domain.Cluster, error)
}

// RunHistory persists the outcome of each invocation and reads earlier ones
type RunHistory interface {
	RecordRun(ctx context.Context, record *domain.RunRecord) error
	ListRuns(ctx context.Context, jobName string, limit int) ([]domain.RunRecord, error)
}

// EventPublisher announces the outcome of an invocation
type EventPublisher interface {
	PublishRunEvent(ctx context.Context, event domain.RunEvent) error
}
