package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
	"github.com/stretchr/testify/require"
)

type fakeArtifacts struct {
	puts []string
	uri  string
	err  error
}

func (f *fakeArtifacts) Put(_ context.Context, localPath, remotePath string) (string, error) {
	f.puts = append(f.puts, localPath+"->"+remotePath)
	if f.err != nil {
		return "", f.err
	}
	if f.uri != "" {
		return f.uri, nil
	}
	return remotePath, nil
}

type updateCall struct {
	jobID int64
	def   domain.JobDefinition
}

type fakeJobs struct {
	jobs    []domain.Job
	nextID  int64
	findErr error
	getErr  error
	gets    []int64
	creates []domain.JobDefinition
	updates []updateCall
}

func (f *fakeJobs) FindByName(_ context.Context, name string) (*domain.Job, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for i := range f.jobs {
		if f.jobs[i].Definition.Name == name {
			return &f.jobs[i], nil
		}
	}
	return nil, domain.ErrJobNotFound
}

func (f *fakeJobs) Create(_ context.Context, def domain.JobDefinition) (int64, error) {
	f.creates = append(f.creates, def)
	f.nextID++
	f.jobs = append(f.jobs, domain.Job{JobID: f.nextID, Definition: def})
	return f.nextID, nil
}

func (f *fakeJobs) Update(_ context.Context, jobID int64, def domain.JobDefinition) error {
	f.updates = append(f.updates, updateCall{jobID: jobID, def: def})
	return nil
}

func (f *fakeJobs) Get(_ context.Context, jobID int64) (*domain.Job, error) {
	f.gets = append(f.gets, jobID)
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.jobs {
		if f.jobs[i].JobID == jobID {
			return &f.jobs[i], nil
		}
	}
	return nil, errors.New("HTTP 400 INVALID_PARAMETER_VALUE")
}

type fakeRuns struct {
	statuses []domain.RunStatus
	polls    int
	runNow   []int64
	tokens   []string
	runErr   error
	pollErr  error
}

func (f *fakeRuns) RunNow(_ context.Context, jobID int64, token string) (domain.RunHandle, error) {
	if f.runErr != nil {
		return domain.RunHandle{}, f.runErr
	}
	f.runNow = append(f.runNow, jobID)
	f.tokens = append(f.tokens, token)
	return domain.RunHandle{JobID: jobID, RunID: 1000 + jobID}, nil
}

func (f *fakeRuns) GetRunStatus(_ context.Context, _ int64) (domain.RunStatus, error) {
	if f.pollErr != nil {
		return domain.RunStatus{}, f.pollErr
	}
	i := f.polls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.polls++
	return f.statuses[i], nil
}

type fakeClusters struct {
	byID     map[string]domain.Cluster
	list     []domain.Cluster
	listErr  error
	probes   []string
	listings int
}

func (f *fakeClusters) GetCluster(_ context.Context, id string) (*domain.Cluster, error) {
	f.probes = append(f.probes, id)
	c, ok := f.byID[id]
	if !ok {
		return nil, errors.New("HTTP 400 INVALID_PARAMETER_VALUE")
	}
	return &c, nil
}

func (f *fakeClusters) ListClusters(_ context.Context) ([]domain.Cluster, error) {
	f.listings++
	return f.list, f.listErr
}

// fakeClock advances only when Sleep is called
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

type fakeHistory struct {
	records []*domain.RunRecord
	err     error
	listErr error
	lists   []string
}

func (f *fakeHistory) RecordRun(_ context.Context, record *domain.RunRecord) error {
	f.records = append(f.records, record)
	return f.err
}

func (f *fakeHistory) ListRuns(_ context.Context, jobName string, limit int) ([]domain.RunRecord, error) {
	f.lists = append(f.lists, jobName)
	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []domain.RunRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].JobName == jobName {
			out = append(out, *f.records[i])
		}
	}
	return out, nil
}

type fakePublisher struct {
	bodies [][]byte
	types  []string
	err    error
}

func (f *fakePublisher) PublishWithRetry(_ context.Context, body []byte, contentType string) error {
	f.bodies = append(f.bodies, body)
	f.types = append(f.types, contentType)
	return f.err
}

// logSink captures JSON log records
type logSink struct {
	buf bytes.Buffer
}

func (s *logSink) logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&s.buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (s *logSink) messages(t *testing.T, msg string) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(s.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == msg {
			out = append(out, entry)
		}
	}
	return out
}

func status(lc domain.LifeCycleState, rs domain.ResultState) domain.RunStatus {
	return domain.RunStatus{LifeCycle: lc, Result: rs}
}
