package router

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/cuongbtq/workspace-jobs/internal/stub/handler"
	"github.com/cuongbtq/workspace-jobs/internal/stub/storage"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "dapi-test"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(cfg storage.Config) *gin.Engine {
	return SetupRouter(&handler.Dependencies{
		Logger:    slog.New(slog.DiscardHandler),
		Storage:   storage.NewStorage(cfg),
		Token:     testToken,
		PublicURL: "http://stub.local",
	})
}

func call(t *testing.T, r http.Handler, method, target string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestHealth(t *testing.T) {
	r := newTestRouter(storage.Config{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestAuthMiddleware(t *testing.T) {
	r := newTestRouter(storage.Config{})

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong token", header: "Bearer nope"},
		{name: "wrong scheme", header: "Basic " + testToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/2.0/clusters/list", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body workspace.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, workspace.ErrorCodeUnauthenticated, body.ErrorCode)
		})
	}
}

func TestJobsLifecycle(t *testing.T) {
	r := newTestRouter(storage.Config{PendingPolls: 1, RunningPolls: 1})

	var created workspace.CreateJobResponse
	code := call(t, r, http.MethodPost, "/api/2.1/jobs/create", workspace.JobSettings{
		Name:  "etl",
		Tasks: []workspace.JobTask{{TaskKey: "main"}},
	}, &created)
	require.Equal(t, http.StatusOK, code)
	assert.Positive(t, created.JobID)

	code = call(t, r, http.MethodPost, "/api/2.1/jobs/reset", workspace.ResetJobRequest{
		JobID:       created.JobID,
		NewSettings: workspace.JobSettings{Name: "etl", MaxConcurrentRuns: 2},
	}, nil)
	require.Equal(t, http.StatusOK, code)

	var job workspace.Job
	code = call(t, r, http.MethodGet, "/api/2.1/jobs/get?job_id="+itoa(created.JobID), nil, &job)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, job.Settings.MaxConcurrentRuns)
	assert.Empty(t, job.Settings.Tasks)

	var started workspace.RunNowResponse
	code = call(t, r, http.MethodPost, "/api/2.1/jobs/run-now",
		workspace.RunNowRequest{JobID: created.JobID, IdempotencyToken: "tok"}, &started)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), started.NumberInJob)

	var again workspace.RunNowResponse
	call(t, r, http.MethodPost, "/api/2.1/jobs/run-now",
		workspace.RunNowRequest{JobID: created.JobID, IdempotencyToken: "tok"}, &again)
	assert.Equal(t, started.RunID, again.RunID)

	var states []string
	for i := 0; i < 4; i++ {
		var run workspace.Run
		code = call(t, r, http.MethodGet, "/api/2.1/jobs/runs/get?run_id="+itoa(started.RunID), nil, &run)
		require.Equal(t, http.StatusOK, code)
		states = append(states, run.State.LifeCycleState+"/"+run.State.ResultState)
	}
	assert.Equal(t, []string{"PENDING/", "RUNNING/", "TERMINATED/SUCCESS", "TERMINATED/SUCCESS"}, states)
}

func TestJobsErrors(t *testing.T) {
	r := newTestRouter(storage.Config{})

	tests := []struct {
		name    string
		method  string
		target  string
		body    any
		status  int
		message string
	}{
		{
			name:    "reset unknown job",
			method:  http.MethodPost,
			target:  "/api/2.1/jobs/reset",
			body:    workspace.ResetJobRequest{JobID: 5, NewSettings: workspace.JobSettings{Name: "x"}},
			status:  http.StatusBadRequest,
			message: "Job 5 does not exist.",
		},
		{
			name:    "run unknown job",
			method:  http.MethodPost,
			target:  "/api/2.1/jobs/run-now",
			body:    workspace.RunNowRequest{JobID: 9},
			status:  http.StatusBadRequest,
			message: "Job 9 does not exist.",
		},
		{
			name:    "unknown run",
			method:  http.MethodGet,
			target:  "/api/2.1/jobs/runs/get?run_id=42",
			status:  http.StatusBadRequest,
			message: "Run 42 does not exist.",
		},
		{
			name:    "duplicate task keys",
			method:  http.MethodPost,
			target:  "/api/2.1/jobs/create",
			body:    workspace.JobSettings{Tasks: []workspace.JobTask{{TaskKey: "a"}, {TaskKey: "a"}}},
			status:  http.StatusBadRequest,
			message: `task_key "a" is not unique`,
		},
		{
			name:    "bad page token",
			method:  http.MethodGet,
			target:  "/api/2.1/jobs/list?page_token=%21%21",
			status:  http.StatusBadRequest,
			message: "Invalid page token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body workspace.ErrorResponse
			code := call(t, r, tt.method, tt.target, tt.body, &body)
			assert.Equal(t, tt.status, code)
			assert.Equal(t, workspace.ErrorCodeInvalidParameter, body.ErrorCode)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestListJobs_Pages(t *testing.T) {
	r := newTestRouter(storage.Config{})
	for _, name := range []string{"a", "b", "c"} {
		call(t, r, http.MethodPost, "/api/2.1/jobs/create", workspace.JobSettings{Name: name}, nil)
	}

	var names []string
	target := "/api/2.1/jobs/list?limit=2"
	for pages := 0; ; pages++ {
		require.Less(t, pages, 3)

		var page workspace.ListJobsResponse
		require.Equal(t, http.StatusOK, call(t, r, http.MethodGet, target, nil, &page))
		for _, j := range page.Jobs {
			names = append(names, j.Settings.Name)
		}
		if !page.HasMore {
			assert.Empty(t, page.NextPageToken)
			break
		}
		target = "/api/2.1/jobs/list?limit=2&page_token=" + page.NextPageToken
	}

	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestWorkspaceImport(t *testing.T) {
	r := newTestRouter(storage.Config{})
	content := base64.StdEncoding.EncodeToString([]byte("print('hi')"))

	var errBody workspace.ErrorResponse
	code := call(t, r, http.MethodPost, "/api/2.0/workspace/import", workspace.ImportRequest{
		Path: "/Shared/app/main.py", Format: "AUTO", Content: content, Overwrite: true,
	}, &errBody)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, workspace.ErrorCodeNotFound, errBody.ErrorCode)

	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/2.0/workspace/mkdirs",
		workspace.MkdirsRequest{Path: "/Shared/app"}, nil))

	req := workspace.ImportRequest{Path: "/Shared/app/main.py", Format: "AUTO", Content: content}
	require.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/2.0/workspace/import", req, nil))

	code = call(t, r, http.MethodPost, "/api/2.0/workspace/import", req, &errBody)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, workspace.ErrorCodeAlreadyExists, errBody.ErrorCode)

	req.Overwrite = true
	assert.Equal(t, http.StatusOK, call(t, r, http.MethodPost, "/api/2.0/workspace/import", req, nil))

	var info workspace.ObjectInfo
	require.Equal(t, http.StatusOK, call(t, r, http.MethodGet, "/api/2.0/workspace/get-status?path=/Shared/app/main.py", nil, &info))
	assert.Equal(t, "FILE", info.ObjectType)
	assert.Equal(t, int64(len("print('hi')")), info.Size)
}

func TestClusters(t *testing.T) {
	r := newTestRouter(storage.Config{Clusters: []workspace.ClusterInfo{
		{ClusterID: "0101-aaa", ClusterName: "shared", State: "RUNNING"},
	}})

	var cluster workspace.ClusterInfo
	require.Equal(t, http.StatusOK, call(t, r, http.MethodGet, "/api/2.0/clusters/get?cluster_id=0101-aaa", nil, &cluster))
	assert.Equal(t, "shared", cluster.ClusterName)

	var errBody workspace.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, call(t, r, http.MethodGet, "/api/2.0/clusters/get?cluster_id=nope", nil, &errBody))
	assert.Equal(t, workspace.ErrorCodeInvalidParameter, errBody.ErrorCode)

	var list workspace.ListClustersResponse
	require.Equal(t, http.StatusOK, call(t, r, http.MethodGet, "/api/2.0/clusters/list", nil, &list))
	assert.Len(t, list.Clusters, 1)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newTestRouter(storage.Config{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "caller-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "caller-id", w.Header().Get(RequestIDHeader))
}
