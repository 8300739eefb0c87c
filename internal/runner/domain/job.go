package domain

import "time"

// JobDefinition is the full settings of a job. Name is the natural key used
// for find-or-create; an update replaces every other field.
type JobDefinition struct {
	Name              string
	Tasks             []TaskSpec
	MaxConcurrentRuns int
	TimeoutSeconds    int
	Tags              map[string]string
}

// TaskSpec runs one payload on one compute resource
type TaskSpec struct {
	TaskKey    string
	ClusterID  string
	PythonFile string // URI returned by the artifact store
	Parameters []string
}

// Job is a registry entry
type Job struct {
	JobID      int64
	Definition JobDefinition
}

// Cluster is a compute resource known to the workspace
type Cluster struct {
	ClusterID   string
	ClusterName string
	State       string
}

// RunHandle identifies one triggered run. It is only good for polling.
type RunHandle struct {
	JobID       int64
	RunID       int64
	NumberInJob int64
	RunPageURL  string
}

// RunStatus is one observation of a run
type RunStatus struct {
	LifeCycle LifeCycleState
	Result    ResultState
	Message   string
	PageURL   string
}

// Terminal reports whether the run has finished
func (s RunStatus) Terminal() bool {
	return s.LifeCycle.Terminal()
}

// Succeeded reports whether the run finished with the success result
func (s RunStatus) Succeeded() bool {
	return s.Terminal() && s.Result == ResultSuccess
}

// RunResult is returned by a completed wait
type RunResult struct {
	Handle  RunHandle
	Status  RunStatus
	Polls   int
	Elapsed time.Duration
}

// RunRecord is one row of run history
type RunRecord struct {
	ID             string    `db:"id"`
	JobName        string    `db:"job_name"`
	JobID          int64     `db:"job_id"`
	RunID          int64     `db:"run_id"`
	ClusterID      string    `db:"cluster_id"`
	ArtifactURI    string    `db:"artifact_uri"`
	LifeCycleState string    `db:"life_cycle_state"`
	ResultState    string    `db:"result_state"`
	StateMessage   string    `db:"state_message"`
	Polls          int       `db:"polls"`
	StartedAt      time.Time `db:"started_at"`
	FinishedAt     time.Time `db:"finished_at"`
}

// RunEvent is published when a run reaches a terminal state or the wait is abandoned
type RunEvent struct {
	JobName        string    `json:"job_name"`
	JobID          int64     `json:"job_id"`
	RunID          int64     `json:"run_id"`
	RunPageURL     string    `json:"run_page_url,omitempty"`
	LifeCycleState string    `json:"life_cycle_state"`
	ResultState    string    `json:"result_state,omitempty"`
	Succeeded      bool      `json:"succeeded"`
	Error          string    `json:"error,omitempty"`
	FinishedAt     time.Time `json:"finished_at"`
}
