package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prospecta/leadengine/internal/scrape"
)

// JobStore persists scrape jobs and results in Postgres.
type JobStore struct {
	pool execQuerier
}

// NewJobStore constructs a JobStore over an existing pool.
func NewJobStore(pool execQuerier) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &JobStore{pool: pool}, nil
}

// CreateJob inserts a job row.
func (s *JobStore) CreateJob(ctx context.Context, job scrape.Job) error {
	urls, err := json.Marshal(job.URLs)
	if err != nil {
		return fmt.Errorf("marshal urls: %w", err)
	}
	query := `
INSERT INTO scrape_jobs (id, urls, industry, status, created_at, completed_at, run_ref)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err = s.pool.Exec(ctx, query,
		job.ID, urls, job.Industry, string(job.Status), job.CreatedAt, job.CompletedAt, job.RunRef,
	)
	if err != nil {
		return fmt.Errorf("insert scrape job: %w", err)
	}
	return nil
}

// UpdateJobStatus transitions a job's lifecycle state.
func (s *JobStore) UpdateJobStatus(ctx context.Context, jobID string, status scrape.JobStatus, completedAt *time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scrape_jobs SET status = $2, completed_at = $3 WHERE id = $1`,
		jobID, string(status), completedAt,
	)
	if err != nil {
		return fmt.Errorf("update scrape job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scrape job %s not found", jobID)
	}
	return nil
}

// SaveResults stores the per-URL results for a job, keyed by input index.
func (s *JobStore) SaveResults(ctx context.Context, jobID string, results []scrape.Result) error {
	for i, r := range results {
		encoded, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal result %d: %w", i, err)
		}
		query := `
INSERT INTO scrape_results (job_id, position, result)
VALUES ($1,$2,$3)
ON CONFLICT (job_id, position) DO UPDATE SET result = EXCLUDED.result`
		if _, err := s.pool.Exec(ctx, query, jobID, i, encoded); err != nil {
			return fmt.Errorf("insert result %d: %w", i, err)
		}
	}
	return nil
}

// GetJob fetches a job with its results in input order.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (scrape.Job, error) {
	var (
		job    scrape.Job
		urls   []byte
		status string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, urls, industry, status, created_at, completed_at, run_ref FROM scrape_jobs WHERE id = $1`,
		jobID,
	).Scan(&job.ID, &urls, &job.Industry, &status, &job.CreatedAt, &job.CompletedAt, &job.RunRef)
	if errors.Is(err, pgx.ErrNoRows) {
		return scrape.Job{}, fmt.Errorf("scrape job %s not found", jobID)
	}
	if err != nil {
		return scrape.Job{}, fmt.Errorf("select scrape job: %w", err)
	}
	job.Status = scrape.JobStatus(status)
	if err := json.Unmarshal(urls, &job.URLs); err != nil {
		return scrape.Job{}, fmt.Errorf("unmarshal urls: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT result FROM scrape_results WHERE job_id = $1 ORDER BY position`,
		jobID,
	)
	if err != nil {
		return scrape.Job{}, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var encoded []byte
		if err := rows.Scan(&encoded); err != nil {
			return scrape.Job{}, fmt.Errorf("scan result: %w", err)
		}
		var r scrape.Result
		if err := json.Unmarshal(encoded, &r); err != nil {
			return scrape.Job{}, fmt.Errorf("unmarshal result: %w", err)
		}
		job.Results = append(job.Results, r)
	}
	if err := rows.Err(); err != nil {
		return scrape.Job{}, fmt.Errorf("iterate results: %w", err)
	}
	return job, nil
}

// ActivityLog persists scrape activity entries in Postgres.
type ActivityLog struct {
	pool execQuerier
}

// NewActivityLog constructs an ActivityLog over an existing pool.
func NewActivityLog(pool execQuerier) (*ActivityLog, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ActivityLog{pool: pool}, nil
}

// RecordActivity appends an activity entry.
func (l *ActivityLog) RecordActivity(ctx context.Context, a scrape.Activity) error {
	query := `
INSERT INTO scrape_activity (job_id, url, success, error, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := l.pool.Exec(ctx, query,
		a.JobID, a.URL, a.Success, a.Error, a.Duration.Milliseconds(), a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert scrape activity: %w", err)
	}
	return nil
}
