package workspace

// Endpoint paths, relative to /api/<version>/
const (
	PathWorkspaceMkdirs    = "workspace/mkdirs"
	PathWorkspaceImport    = "workspace/import"
	PathWorkspaceGetStatus = "workspace/get-status"
	PathClustersGet        = "clusters/get"
	PathClustersList       = "clusters/list"
	PathJobsList           = "jobs/list"
	PathJobsGet            = "jobs/get"
	PathJobsCreate         = "jobs/create"
	PathJobsReset          = "jobs/reset"
	PathJobsRunNow         = "jobs/run-now"
	PathJobsRunsGet        = "jobs/runs/get"
)

// Error codes used in error bodies
const (
	ErrorCodeInvalidParameter = "INVALID_PARAMETER_VALUE"
	ErrorCodeNotFound         = "RESOURCE_DOES_NOT_EXIST"
	ErrorCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrorCodeAlreadyExists    = "RESOURCE_ALREADY_EXISTS"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// Workspace objects

type MkdirsRequest struct {
	Path string `json:"path"`
}

type ImportRequest struct {
	Path      string `json:"path"`
	Format    string `json:"format"`
	Language  string `json:"language,omitempty"`
	Content   string `json:"content"` // base64
	Overwrite bool   `json:"overwrite"`
}

type ObjectInfo struct {
	ObjectType string `json:"object_type"`
	Path       string `json:"path"`
	Language   string `json:"language,omitempty"`
	ObjectID   int64  `json:"object_id"`
	Size       int64  `json:"size,omitempty"`
}

// Clusters

type ClusterInfo struct {
	ClusterID    string `json:"cluster_id"`
	ClusterName  string `json:"cluster_name"`
	State        string `json:"state"`
	SparkVersion string `json:"spark_version,omitempty"`
}

type ListClustersResponse struct {
	Clusters []ClusterInfo `json:"clusters"`
}

// Jobs

type SparkPythonTask struct {
	PythonFile string   `json:"python_file"`
	Parameters []string `json:"parameters,omitempty"`
	Source     string   `json:"source,omitempty"`
}

type JobTask struct {
	TaskKey           string           `json:"task_key"`
	ExistingClusterID string           `json:"existing_cluster_id,omitempty"`
	SparkPythonTask   *SparkPythonTask `json:"spark_python_task,omitempty"`
}

type JobSettings struct {
	Name              string            `json:"name"`
	Tasks             []JobTask         `json:"tasks,omitempty"`
	MaxConcurrentRuns int               `json:"max_concurrent_runs,omitempty"`
	TimeoutSeconds    int               `json:"timeout_seconds,omitempty"`
	Tags              map[string]string `json:"tags,omitempty"`
	Format            string            `json:"format,omitempty"`
}

type Job struct {
	JobID           int64       `json:"job_id"`
	CreatorUserName string      `json:"creator_user_name,omitempty"`
	CreatedTime     int64       `json:"created_time,omitempty"`
	Settings        JobSettings `json:"settings"`
}

type ListJobsResponse struct {
	Jobs          []Job  `json:"jobs"`
	HasMore       bool   `json:"has_more"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

type CreateJobResponse struct {
	JobID int64 `json:"job_id"`
}

type ResetJobRequest struct {
	JobID       int64       `json:"job_id"`
	NewSettings JobSettings `json:"new_settings"`
}

// Runs

type RunNowRequest struct {
	JobID            int64  `json:"job_id"`
	IdempotencyToken string `json:"idempotency_token,omitempty"`
}

type RunNowResponse struct {
	RunID       int64 `json:"run_id"`
	NumberInJob int64 `json:"number_in_job"`
}

type RunState struct {
	LifeCycleState string `json:"life_cycle_state"`
	ResultState    string `json:"result_state,omitempty"`
	StateMessage   string `json:"state_message"`
}

type Run struct {
	JobID       int64    `json:"job_id"`
	RunID       int64    `json:"run_id"`
	NumberInJob int64    `json:"number_in_job"`
	RunPageURL  string   `json:"run_page_url"`
	State       RunState `json:"state"`
	StartTime   int64    `json:"start_time"`
	EndTime     int64    `json:"end_time"`
}
