package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuongbtq/workspace-jobs/internal/stub/handler"
	"github.com/cuongbtq/workspace-jobs/internal/stub/router"
	"github.com/cuongbtq/workspace-jobs/internal/stub/storage"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startStub(t *testing.T, cfg storage.Config) *storage.Storage {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewStorage(cfg)
	srv := httptest.NewServer(router.SetupRouter(&handler.Dependencies{
		Logger:  slog.New(slog.DiscardHandler),
		Storage: store,
		Token:   "dapi-cli",
	}))
	t.Cleanup(srv.Close)

	payload := filepath.Join(t.TempDir(), "simple_job.py")
	require.NoError(t, os.WriteFile(payload, []byte("print('Hello World from Databricks!')\n"), 0o644))

	t.Setenv("JOB_RUNNER_CONFIG_PATH", "")
	t.Setenv("DATABRICKS_HOST", srv.URL)
	t.Setenv("DATABRICKS_TOKEN", "dapi-cli")
	t.Setenv("DATABRICKS_CLUSTER_ID", "missing-id")
	t.Setenv("DATABRICKS_CLUSTER_NAME", "jobs-small")
	t.Setenv("JOB_NAME", "Hello World (Python)")
	t.Setenv("JOB_PAYLOAD_PATH", payload)
	t.Setenv("JOB_WORKSPACE_PATH", "/Shared/workspace-jobs/simple_job.py")
	t.Setenv("JOB_POLL_INTERVAL", "5ms")
	t.Setenv("JOB_RUN_TIMEOUT", "")
	t.Setenv("HISTORY_ENABLED", "false")
	t.Setenv("EVENTS_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")

	return store
}

func execute(args ...string) error {
	cmd := newRootCommand()
	// a nil slice makes cobra fall back to os.Args
	cmd.SetArgs(append([]string{}, args...))
	return cmd.ExecuteContext(context.Background())
}

func TestJobRunner_Succeeds(t *testing.T) {
	store := startStub(t, storage.Config{
		Clusters:     []workspace.ClusterInfo{{ClusterID: "0101-bbb", ClusterName: "jobs-small"}},
		PendingPolls: 1,
		RunningPolls: 1,
	})

	require.NoError(t, execute())
	require.NoError(t, execute())

	// the second invocation updates the same job instead of creating another
	assert.Equal(t, []string{"Hello World (Python)"}, store.JobNames())

	jobs, _ := store.ListJobs(0, 10)
	require.Len(t, jobs, 1)
	assert.Equal(t, 1, jobs[0].ResetCount)
	assert.Equal(t, "0101-bbb", jobs[0].Settings.Tasks[0].ExistingClusterID)

	info, err := store.Stat("/Shared/workspace-jobs/simple_job.py")
	require.NoError(t, err)
	assert.Equal(t, "FILE", info.ObjectType)
}

func TestJobRunner_RunFailureExitsWithError(t *testing.T) {
	startStub(t, storage.Config{
		Clusters:    []workspace.ClusterInfo{{ClusterID: "0101-bbb", ClusterName: "jobs-small"}},
		ResultState: "FAILED",
	})

	err := execute()
	assert.True(t, errors.Is(err, errReported))
}

func TestJobRunner_ConfigurationErrors(t *testing.T) {
	startStub(t, storage.Config{})

	t.Run("unknown cluster", func(t *testing.T) {
		assert.True(t, errors.Is(execute(), errReported))
	})

	t.Run("missing token", func(t *testing.T) {
		t.Setenv("DATABRICKS_TOKEN", "")
		assert.True(t, errors.Is(execute(), errReported))
	})

	t.Run("bad poll interval", func(t *testing.T) {
		t.Setenv("JOB_POLL_INTERVAL", "often")
		assert.True(t, errors.Is(execute(), errReported))
	})
}

func TestJobRunner_RejectsArguments(t *testing.T) {
	err := execute("extra")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errReported))
	assert.Contains(t, err.Error(), "unknown command")
}
