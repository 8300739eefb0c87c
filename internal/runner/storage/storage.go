package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
	"github.com/jmoiron/sqlx"
)

const defaultListLimit = 20

var schemas = map[string]string{
	"postgres": `
		CREATE TABLE IF NOT EXISTS job_runs (
			id               TEXT PRIMARY KEY,
			job_name         TEXT NOT NULL,
			job_id           BIGINT NOT NULL,
			run_id           BIGINT NOT NULL,
			cluster_id       TEXT NOT NULL,
			artifact_uri     TEXT NOT NULL,
			life_cycle_state TEXT NOT NULL,
			result_state     TEXT NOT NULL DEFAULT '',
			state_message    TEXT NOT NULL DEFAULT '',
			polls            INTEGER NOT NULL DEFAULT 0,
			started_at       TIMESTAMPTZ NOT NULL,
			finished_at      TIMESTAMPTZ NOT NULL
		)`,
	"sqlite3": `
		CREATE TABLE IF NOT EXISTS job_runs (
			id               TEXT PRIMARY KEY,
			job_name         TEXT NOT NULL,
			job_id           INTEGER NOT NULL,
			run_id           INTEGER NOT NULL,
			cluster_id       TEXT NOT NULL,
			artifact_uri     TEXT NOT NULL,
			life_cycle_state TEXT NOT NULL,
			result_state     TEXT NOT NULL DEFAULT '',
			state_message    TEXT NOT NULL DEFAULT '',
			polls            INTEGER NOT NULL DEFAULT 0,
			started_at       TIMESTAMP NOT NULL,
			finished_at      TIMESTAMP NOT NULL
		)`,
}

// Storage keeps the history of finished runs
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the job_runs table when it is missing
func (s *Storage) Migrate(ctx context.Context) error {
	ddl, ok := schemas[s.db.DriverName()]
	if !ok {
		return fmt.Errorf("no run history schema for driver %q", s.db.DriverName())
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create job_runs table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_job_runs_name_started ON job_runs (job_name, started_at)`); err != nil {
		return fmt.Errorf("failed to create job_runs index: %w", err)
	}

	return nil
}

// RecordRun inserts one history row
func (s *Storage) RecordRun(ctx context.Context, record *domain.RunRecord) error {
	query := s.db.Rebind(`
		INSERT INTO job_runs (
			id, job_name, job_id, run_id, cluster_id, artifact_uri,
			life_cycle_state, result_state, state_message, polls, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.JobName,
		record.JobID,
		record.RunID,
		record.ClusterID,
		record.ArtifactURI,
		record.LifeCycleState,
		record.ResultState,
		record.StateMessage,
		record.Polls,
		record.StartedAt.UTC(),
		record.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %d: %w", record.RunID, err)
	}

	s.logger.Debug("Run recorded",
		slog.String("id", record.ID),
		slog.Int64("run_id", record.RunID),
		slog.String("result_state", record.ResultState),
	)

	return nil
}

// ListRuns returns the newest runs of jobName first. An empty jobName lists
// every job.
func (s *Storage) ListRuns(ctx context.Context, jobName string, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, job_name, job_id, run_id, cluster_id, artifact_uri,
		       life_cycle_state, result_state, state_message, polls, started_at, finished_at
		FROM job_runs`
	args := []any{}
	if jobName != "" {
		query += ` WHERE job_name = ?`
		args = append(args, jobName)
	}
	query += ` ORDER BY started_at DESC, run_id DESC LIMIT ?`
	args = append(args, limit)

	var records []domain.RunRecord
	if err := s.db.SelectContext(ctx, &records, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return records, nil
}
