// Package scrape implements the in-process execution path for the
// web-scraping operation: per-domain rate limiting, batched concurrent
// fetching with retry, and structured content extraction.
package scrape

import (
	"context"
	"time"
)

// JobStatus represents the lifecycle state of a scrape job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is a batch unit of per-URL fetch-and-extract tasks. Results[i] always
// corresponds to the normalized form of URLs[i], regardless of completion
// order. Jobs move pending -> running -> {completed|failed} and are never
// reopened.
type Job struct {
	ID          string     `json:"id"`
	URLs        []string   `json:"urls"`
	Industry    string     `json:"industry,omitempty"`
	Status      JobStatus  `json:"status"`
	Results     []Result   `json:"results"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RunRef      string     `json:"run_ref,omitempty"`
}

// Result is the outcome of one URL's fetch-and-extract task.
type Result struct {
	URL        string        `json:"url"`
	Success    bool          `json:"success"`
	Content    string        `json:"content,omitempty"`
	Metadata   Metadata      `json:"metadata"`
	Structured Structured    `json:"structured"`
	Error      string        `json:"error,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	Duration   time.Duration `json:"duration"`
}

// Metadata holds page-level descriptors pulled from markup and headers.
type Metadata struct {
	Title        string   `json:"title,omitempty"`
	Description  string   `json:"description,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	Language     string   `json:"language,omitempty"`
	LastModified string   `json:"last_modified,omitempty"`
}

// Structured holds entity data mined from the page.
type Structured struct {
	CompanyName    string   `json:"company_name,omitempty"`
	Emails         []string `json:"emails,omitempty"`
	Phones         []string `json:"phones,omitempty"`
	Technologies   []string `json:"technologies,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
}

// Activity is recorded for every fetch attempt, successful or not.
type Activity struct {
	JobID     string        `json:"job_id,omitempty"`
	URL       string        `json:"url"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// JobStore persists jobs and their results.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, completedAt *time.Time) error
	SaveResults(ctx context.Context, jobID string, results []Result) error
	GetJob(ctx context.Context, jobID string) (Job, error)
}

// ActivityLog persists per-URL activity entries for observability.
type ActivityLog interface {
	RecordActivity(ctx context.Context, a Activity) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewID() (string, error)
}
