package model

import (
	"time"

	"github.com/cuongbtq/workspace-jobs/shared/workspace"
)

// Job is a registered job definition
type Job struct {
	JobID       int64
	Settings    workspace.JobSettings
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResetCount  int
	CreatorName string
}

// Run is a triggered run. Each status read advances Step by one until the
// last entry of Script.
type Run struct {
	RunID            int64
	JobID            int64
	NumberInJob      int64
	IdempotencyToken string
	Script           []workspace.RunState
	Step             int
	StartedAt        time.Time
	EndedAt          time.Time
}

// Object is a file imported into the workspace tree
type Object struct {
	ObjectID  int64
	Path      string
	Content   []byte
	UpdatedAt time.Time
}
