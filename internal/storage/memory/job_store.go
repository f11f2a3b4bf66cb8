package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prospecta/leadengine/internal/scrape"
)

// JobStore implements scrape.JobStore in memory.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]scrape.Job
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]scrape.Job)}
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job scrape.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus transitions a job's lifecycle state.
func (s *JobStore) UpdateJobStatus(_ context.Context, jobID string, status scrape.JobStatus, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s not found", jobID)
	}
	job.Status = status
	if completedAt != nil {
		ts := *completedAt
		job.CompletedAt = &ts
	}
	s.jobs[jobID] = job
	return nil
}

// SaveResults stores the per-URL results for a job.
func (s *JobStore) SaveResults(_ context.Context, jobID string, results []scrape.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s not found", jobID)
	}
	job.Results = make([]scrape.Result, len(results))
	copy(job.Results, results)
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (scrape.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scrape.Job{}, fmt.Errorf("job %s not found", jobID)
	}
	out := job
	out.Results = make([]scrape.Result, len(job.Results))
	copy(out.Results, job.Results)
	return out, nil
}

// ActivityLog implements scrape.ActivityLog in memory.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []scrape.Activity
}

// NewActivityLog constructs an ActivityLog.
func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

// RecordActivity appends an activity entry.
func (l *ActivityLog) RecordActivity(_ context.Context, a scrape.Activity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, a)
	return nil
}

// Entries returns a copy of every recorded entry, oldest first.
func (l *ActivityLog) Entries() []scrape.Activity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]scrape.Activity, len(l.entries))
	copy(out, l.entries)
	return out
}
