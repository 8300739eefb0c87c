package runner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workflowSpec() Spec {
	return Spec{
		JobName:       "Hello World (Python)",
		PayloadPath:   "payloads/hello_world.py",
		WorkspacePath: "/Shared/workspace-jobs/hello_world.py",
		ClusterName:   "jobs-small",
		PollInterval:  5 * time.Second,
	}
}

func TestRun_EndToEnd(t *testing.T) {
	h := newHarness()
	h.clusters.list = []domain.Cluster{{ClusterID: "0101-bbb", ClusterName: "jobs-small"}}
	pageURL := "https://dbc-1234.cloud.databricks.com/#job/101/run/1101"
	h.runs.statuses = []domain.RunStatus{
		{LifeCycle: domain.LifeCyclePending, PageURL: pageURL},
		{LifeCycle: domain.LifeCycleRunning, PageURL: pageURL},
		{LifeCycle: domain.LifeCycleTerminated, Result: domain.ResultSuccess, PageURL: pageURL},
	}

	history := &fakeHistory{}
	publisher := &fakePublisher{}
	h.runner.history = history
	h.runner.events = NewJSONEventPublisher(publisher)

	result, err := h.runner.Run(context.Background(), workflowSpec())
	require.NoError(t, err)

	assert.Equal(t, []string{"payloads/hello_world.py->/Shared/workspace-jobs/hello_world.py"}, h.artifacts.puts)
	require.Len(t, h.jobs.creates, 1)
	created := h.jobs.creates[0]
	assert.Equal(t, "Hello World (Python)", created.Name)
	require.Len(t, created.Tasks, 1)
	assert.Equal(t, "0101-bbb", created.Tasks[0].ClusterID)
	assert.Equal(t, "/Shared/workspace-jobs/hello_world.py", created.Tasks[0].PythonFile)
	assert.Equal(t, domain.DefaultTaskKey, created.Tasks[0].TaskKey)
	assert.Equal(t, 1, created.MaxConcurrentRuns)

	assert.Equal(t, []int64{101}, h.runs.runNow)
	assert.Equal(t, 3, result.Polls)

	require.Len(t, history.records, 1)
	rec := history.records[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(101), rec.JobID)
	assert.Equal(t, "TERMINATED", rec.LifeCycleState)
	assert.Equal(t, "SUCCESS", rec.ResultState)
	assert.Equal(t, 10*time.Second, rec.FinishedAt.Sub(rec.StartedAt))

	require.Len(t, publisher.bodies, 1)
	assert.Equal(t, "application/json", publisher.types[0])
	var event domain.RunEvent
	require.NoError(t, json.Unmarshal(publisher.bodies[0], &event))
	assert.True(t, event.Succeeded)
	assert.Equal(t, int64(1101), event.RunID)
	assert.Equal(t, pageURL, event.RunPageURL)
	assert.Empty(t, event.Error)

	assert.Equal(t, []string{"Hello World (Python)"}, history.lists)
	assert.Empty(t, h.logs.messages(t, "Previous run"))
}

func TestRun_LogsPreviousRun(t *testing.T) {
	h := newHarness()
	h.clusters.list = []domain.Cluster{{ClusterID: "0101-bbb", ClusterName: "jobs-small"}}
	h.runs.statuses = []domain.RunStatus{status(domain.LifeCycleTerminated, domain.ResultSuccess)}
	history := &fakeHistory{}
	h.runner.history = history

	_, err := h.runner.Run(context.Background(), workflowSpec())
	require.NoError(t, err)
	_, err = h.runner.Run(context.Background(), workflowSpec())
	require.NoError(t, err)

	previous := h.logs.messages(t, "Previous run")
	require.Len(t, previous, 1)
	assert.Equal(t, float64(1101), previous[0]["run_id"])
	assert.Equal(t, "SUCCESS", previous[0]["result_state"])

	t.Run("unreadable history does not stop the run", func(t *testing.T) {
		history.listErr = errors.New("db down")

		_, err := h.runner.Run(context.Background(), workflowSpec())
		require.NoError(t, err)
		assert.Len(t, h.logs.messages(t, "Failed to read run history"), 1)
	})
}

func TestRun_SecondInvocationUpdates(t *testing.T) {
	h := newHarness()
	h.clusters.list = []domain.Cluster{{ClusterID: "0101-bbb", ClusterName: "jobs-small"}}
	h.runs.statuses = []domain.RunStatus{status(domain.LifeCycleTerminated, domain.ResultSuccess)}

	_, err := h.runner.Run(context.Background(), workflowSpec())
	require.NoError(t, err)
	_, err = h.runner.Run(context.Background(), workflowSpec())
	require.NoError(t, err)

	assert.Len(t, h.jobs.creates, 1)
	require.Len(t, h.jobs.updates, 1)
	assert.Equal(t, int64(101), h.jobs.updates[0].jobID)
	assert.Equal(t, []int64{101, 101}, h.runs.runNow)
}

func TestRun_FailedRunIsReported(t *testing.T) {
	h := newHarness()
	h.clusters.list = []domain.Cluster{{ClusterID: "0101-bbb", ClusterName: "jobs-small"}}
	h.runs.statuses = []domain.RunStatus{{
		LifeCycle: domain.LifeCycleTerminated,
		Result:    domain.ResultFailed,
		Message:   "Workload failed",
	}}

	history := &fakeHistory{err: errors.New("db down")}
	publisher := &fakePublisher{}
	h.runner.history = history
	h.runner.events = NewJSONEventPublisher(publisher)

	_, err := h.runner.Run(context.Background(), workflowSpec())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRunFailed))
	assert.Contains(t, err.Error(), "Workload failed")

	// a failing sink does not mask the run failure
	assert.Len(t, history.records, 1)
	assert.Len(t, h.logs.messages(t, "Failed to record run history"), 1)

	var event domain.RunEvent
	require.Len(t, publisher.bodies, 1)
	require.NoError(t, json.Unmarshal(publisher.bodies[0], &event))
	assert.False(t, event.Succeeded)
	assert.Equal(t, "FAILED", event.ResultState)
	assert.NotEmpty(t, event.Error)
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	t.Run("upload", func(t *testing.T) {
		h := newHarness()
		h.artifacts.err = errors.New("HTTP 403")

		_, err := h.runner.Run(context.Background(), workflowSpec())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upload payload")
		assert.Zero(t, h.clusters.listings)
		assert.Empty(t, h.jobs.creates)
	})

	t.Run("cluster resolution", func(t *testing.T) {
		h := newHarness()

		_, err := h.runner.Run(context.Background(), workflowSpec())

		var cfgErr *domain.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		// the artifact stays uploaded
		assert.Len(t, h.artifacts.puts, 1)
		assert.Empty(t, h.jobs.creates)
		assert.Empty(t, h.runs.runNow)
	})
}

func TestSpec_Definition(t *testing.T) {
	spec := Spec{
		JobName:           "etl",
		TaskKey:           "main",
		Parameters:        []string{"--date", "2026-01-01"},
		MaxConcurrentRuns: 3,
		TimeoutSeconds:    600,
		Tags:              map[string]string{"owner": "data"},
	}

	def := spec.Definition("c-1", "/Shared/etl.py")
	assert.Equal(t, domain.JobDefinition{
		Name: "etl",
		Tasks: []domain.TaskSpec{{
			TaskKey:    "main",
			ClusterID:  "c-1",
			PythonFile: "/Shared/etl.py",
			Parameters: []string{"--date", "2026-01-01"},
		}},
		MaxConcurrentRuns: 3,
		TimeoutSeconds:    600,
		Tags:              map[string]string{"owner": "data"},
	}, def)
}
