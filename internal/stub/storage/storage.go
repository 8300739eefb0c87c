package storage

import (
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/workspace-jobs/internal/stub/model"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
)

var (
	// ErrNotFound is returned when a job, run, cluster or object does not exist
	ErrNotFound = errors.New("resource does not exist")

	// ErrAlreadyExists is returned when importing over an object without overwrite
	ErrAlreadyExists = errors.New("resource already exists")
)

// Config seeds the in-memory workspace
type Config struct {
	Clusters     []workspace.ClusterInfo
	PendingPolls int    // status reads that report PENDING
	RunningPolls int    // status reads that report RUNNING
	ResultState  string // terminal result of every run, SUCCESS when empty
	Now          func() time.Time
}

// Storage is an in-memory workspace, safe for concurrent use
type Storage struct {
	mu        sync.Mutex
	cfg       Config
	now       func() time.Time
	nextJobID int64
	nextRunID int64
	nextObjID int64
	jobs      []*model.Job
	runs      map[int64]*model.Run
	objects   map[string]*model.Object
	dirs      map[string]bool
	clusters  []workspace.ClusterInfo
}

// NewStorage creates a new in-memory workspace
func NewStorage(cfg Config) *Storage {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.ResultState == "" {
		cfg.ResultState = "SUCCESS"
	}

	return &Storage{
		cfg:       cfg,
		now:       now,
		nextJobID: 1000,
		nextRunID: 5000,
		runs:      make(map[int64]*model.Run),
		objects:   make(map[string]*model.Object),
		dirs:      map[string]bool{"/": true},
		clusters:  append([]workspace.ClusterInfo(nil), cfg.Clusters...),
	}
}

// Mkdirs creates dir and every missing parent
func (s *Storage) Mkdirs(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for p := path.Clean(dir); ; p = path.Dir(p) {
		s.dirs[p] = true
		if p == "/" || p == "." {
			return
		}
	}
}

// Import stores content at p. The parent directory must exist.
func (s *Storage) Import(p string, content []byte, overwrite bool) (*model.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = path.Clean(p)
	if !s.dirs[path.Dir(p)] {
		return nil, ErrNotFound
	}

	obj, exists := s.objects[p]
	if exists && !overwrite {
		return nil, ErrAlreadyExists
	}
	if !exists {
		s.nextObjID++
		obj = &model.Object{ObjectID: s.nextObjID, Path: p}
		s.objects[p] = obj
	}

	obj.Content = append([]byte(nil), content...)
	obj.UpdatedAt = s.now()

	out := *obj
	return &out, nil
}

// Stat describes the file or directory at p
func (s *Storage) Stat(p string) (workspace.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = path.Clean(p)
	if obj, ok := s.objects[p]; ok {
		return workspace.ObjectInfo{
			ObjectType: "FILE",
			Path:       obj.Path,
			ObjectID:   obj.ObjectID,
			Size:       int64(len(obj.Content)),
		}, nil
	}
	if s.dirs[p] {
		return workspace.ObjectInfo{ObjectType: "DIRECTORY", Path: p}, nil
	}
	return workspace.ObjectInfo{}, ErrNotFound
}

// GetCluster returns the cluster with the given ID
func (s *Storage) GetCluster(clusterID string) (workspace.ClusterInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clusters {
		if c.ClusterID == clusterID {
			return c, nil
		}
	}
	return workspace.ClusterInfo{}, ErrNotFound
}

// ListClusters returns every seeded cluster
func (s *Storage) ListClusters() []workspace.ClusterInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]workspace.ClusterInfo(nil), s.clusters...)
}

// ListJobs returns up to limit jobs starting at offset, in creation order
func (s *Storage) ListJobs(offset, limit int) ([]model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if offset >= len(s.jobs) {
		return nil, false
	}

	end := offset + limit
	if end > len(s.jobs) {
		end = len(s.jobs)
	}

	jobs := make([]model.Job, 0, end-offset)
	for _, j := range s.jobs[offset:end] {
		jobs = append(jobs, *j)
	}
	return jobs, end < len(s.jobs)
}

// GetJob returns the job with the given ID
func (s *Storage) GetJob(jobID int64) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.findJob(jobID)
	if job == nil {
		return model.Job{}, ErrNotFound
	}
	return *job, nil
}

// CreateJob registers settings as a new job. Names are not unique.
func (s *Storage) CreateJob(settings workspace.JobSettings) model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextJobID++
	now := s.now()
	job := &model.Job{
		JobID:       s.nextJobID,
		Settings:    settings,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatorName: "stub@example.com",
	}
	s.jobs = append(s.jobs, job)
	return *job
}

// ResetJob replaces every setting of jobID
func (s *Storage) ResetJob(jobID int64, settings workspace.JobSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.findJob(jobID)
	if job == nil {
		return ErrNotFound
	}

	job.Settings = settings
	job.UpdatedAt = s.now()
	job.ResetCount++
	return nil
}

// RunNow starts a run of jobID. A repeated idempotency token for the same job
// returns the run it started before.
func (s *Storage) RunNow(jobID int64, token string) (model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findJob(jobID) == nil {
		return model.Run{}, ErrNotFound
	}

	var number int64
	for _, r := range s.runs {
		if r.JobID != jobID {
			continue
		}
		if token != "" && r.IdempotencyToken == token {
			return *r, nil
		}
		number++
	}

	s.nextRunID++
	run := &model.Run{
		RunID:            s.nextRunID,
		JobID:            jobID,
		NumberInJob:      number + 1,
		IdempotencyToken: token,
		Script:           s.script(),
		StartedAt:        s.now(),
	}
	s.runs[run.RunID] = run
	return *run, nil
}

// ReadRun returns the run with its current state and moves it one step forward
func (s *Storage) ReadRun(runID int64) (model.Run, workspace.RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return model.Run{}, workspace.RunState{}, ErrNotFound
	}

	state := run.Script[run.Step]
	if run.Step < len(run.Script)-1 {
		run.Step++
	} else if run.EndedAt.IsZero() {
		run.EndedAt = s.now()
	}
	return *run, state, nil
}

// JobNames returns every job name, sorted; used for diagnostics
func (s *Storage) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Settings.Name
	}
	sort.Strings(names)
	return names
}

func (s *Storage) findJob(jobID int64) *model.Job {
	for _, j := range s.jobs {
		if j.JobID == jobID {
			return j
		}
	}
	return nil
}

func (s *Storage) script() []workspace.RunState {
	steps := make([]workspace.RunState, 0, s.cfg.PendingPolls+s.cfg.RunningPolls+1)
	for i := 0; i < s.cfg.PendingPolls; i++ {
		steps = append(steps, workspace.RunState{LifeCycleState: "PENDING", StateMessage: "Waiting for cluster"})
	}
	for i := 0; i < s.cfg.RunningPolls; i++ {
		steps = append(steps, workspace.RunState{LifeCycleState: "RUNNING", StateMessage: "In run"})
	}

	message := ""
	if !strings.EqualFold(s.cfg.ResultState, "SUCCESS") {
		message = "Workload failed, see run output for details"
	}
	return append(steps, workspace.RunState{
		LifeCycleState: "TERMINATED",
		ResultState:    s.cfg.ResultState,
		StateMessage:   message,
	})
}
