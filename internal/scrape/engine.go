package scrape

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultChunkSize  = 5
	defaultChunkDelay = 2 * time.Second
)

// EngineConfig controls batching and per-domain throttling.
type EngineConfig struct {
	ChunkSize     int
	ChunkDelay    time.Duration
	DomainLimit   int
	DomainWindow  time.Duration
	SweepInterval time.Duration
}

// Engine executes the web-scraping operation: it owns the per-domain rate
// limiter and job orchestration state, so separate instances are fully
// isolated.
type Engine struct {
	fetcher  *Fetcher
	limiter  *DomainLimiter
	jobs     JobStore
	activity ActivityLog
	ids      IDGenerator
	clock    Clock
	cfg      EngineConfig
	logger   *zap.Logger
}

// NewEngine constructs an Engine with its own limiter state.
func NewEngine(
	fetcher *Fetcher,
	jobs JobStore,
	activity ActivityLog,
	ids IDGenerator,
	clock Clock,
	cfg EngineConfig,
	logger *zap.Logger,
) *Engine {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ChunkDelay <= 0 {
		cfg.ChunkDelay = defaultChunkDelay
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultDomainWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		fetcher:  fetcher,
		limiter:  NewDomainLimiter(cfg.DomainLimit, cfg.DomainWindow, clock),
		jobs:     jobs,
		activity: activity,
		ids:      ids,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// StartSweeper launches the periodic stale-domain sweep until the context
// finishes.
func (e *Engine) StartSweeper(ctx context.Context) {
	go e.limiter.Sweep(ctx, e.cfg.SweepInterval)
}

// ScrapeURL fetches and extracts a single URL. Failures are reported in the
// result, never as a fault.
func (e *Engine) ScrapeURL(ctx context.Context, rawURL, industry string) Result {
	return e.scrapeOne(ctx, "", rawURL, industry)
}

// ScrapeBatch runs every URL through the fetch-and-extract pipeline in
// fixed-size concurrent chunks with a pacing delay between chunks.
// Results[i] corresponds to urls[i]; individual URL failures populate that
// result's error and never fail the job. Only orchestration faults (job
// persistence) fail a job.
func (e *Engine) ScrapeBatch(ctx context.Context, urls []string, industry string) (Job, error) {
	// A submitted batch runs to completion even if the caller goes away,
	// so every slot in Results is filled and persisted. Per-URL fetches
	// still time out on their own.
	ctx = context.WithoutCancel(ctx)

	id, err := e.ids.NewID()
	if err != nil {
		return Job{}, fmt.Errorf("generate job id: %w", err)
	}

	job := Job{
		ID:        id,
		URLs:      urls,
		Industry:  industry,
		Status:    JobStatusPending,
		Results:   make([]Result, len(urls)),
		CreatedAt: e.clock.Now(),
	}
	if err := e.jobs.CreateJob(ctx, job); err != nil {
		return Job{}, fmt.Errorf("create scrape job: %w", err)
	}

	job.Status = JobStatusRunning
	if err := e.jobs.UpdateJobStatus(ctx, job.ID, JobStatusRunning, nil); err != nil {
		return e.failJob(ctx, job, fmt.Errorf("mark job running: %w", err))
	}

	e.logger.Info("scrape job started",
		zap.String("job_id", job.ID),
		zap.Int("urls", len(urls)),
		zap.String("industry", industry),
	)

	for offset := 0; offset < len(urls); offset += e.cfg.ChunkSize {
		end := offset + e.cfg.ChunkSize
		if end > len(urls) {
			end = len(urls)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := offset; i < end; i++ {
			idx := i
			g.Go(func() error {
				job.Results[idx] = e.scrapeOne(gctx, job.ID, urls[idx], industry)
				return nil
			})
		}
		// Workers only report per-URL outcomes through Results, never errors.
		_ = g.Wait()

		if end < len(urls) {
			if err := sleepCtx(ctx, e.cfg.ChunkDelay); err != nil {
				break
			}
		}
	}

	if err := e.jobs.SaveResults(ctx, job.ID, job.Results); err != nil {
		return e.failJob(ctx, job, fmt.Errorf("save results: %w", err))
	}

	completed := e.clock.Now()
	job.Status = JobStatusCompleted
	job.CompletedAt = &completed
	if err := e.jobs.UpdateJobStatus(ctx, job.ID, JobStatusCompleted, &completed); err != nil {
		return e.failJob(ctx, job, fmt.Errorf("mark job completed: %w", err))
	}

	e.logger.Info("scrape job completed",
		zap.String("job_id", job.ID),
		zap.Int("succeeded", countSuccesses(job.Results)),
		zap.Int("failed", len(job.Results)-countSuccesses(job.Results)),
	)
	return job, nil
}

func (e *Engine) failJob(ctx context.Context, job Job, cause error) (Job, error) {
	now := e.clock.Now()
	job.Status = JobStatusFailed
	job.CompletedAt = &now
	if err := e.jobs.UpdateJobStatus(ctx, job.ID, JobStatusFailed, &now); err != nil {
		e.logger.Error("mark job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	return job, cause
}

func (e *Engine) scrapeOne(ctx context.Context, jobID, rawURL, industry string) Result {
	start := e.clock.Now()
	result := Result{URL: rawURL, Timestamp: start}

	finish := func(r Result) Result {
		r.Duration = e.clock.Now().Sub(start)
		e.recordActivity(ctx, jobID, r)
		return r
	}

	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		result.Error = err.Error()
		return finish(result)
	}
	result.URL = normalized

	domain := "unknown"
	if u, err := url.Parse(normalized); err == nil {
		domain = u.Hostname()
	}
	if err := e.limiter.Acquire(ctx, domain); err != nil {
		result.Error = fmt.Sprintf("rate limit wait: %v", err)
		return finish(result)
	}

	page, err := e.fetcher.Fetch(ctx, normalized)
	if err != nil {
		result.Error = err.Error()
		return finish(result)
	}

	content, md, sd, err := Extract(page.Body, page.Headers, industry)
	if err != nil {
		result.Error = err.Error()
		return finish(result)
	}

	result.Success = true
	result.Content = content
	result.Metadata = md
	result.Structured = sd
	return finish(result)
}

func (e *Engine) recordActivity(ctx context.Context, jobID string, r Result) {
	a := Activity{
		JobID:     jobID,
		URL:       r.URL,
		Success:   r.Success,
		Error:     r.Error,
		Duration:  r.Duration,
		Timestamp: r.Timestamp,
	}
	if err := e.activity.RecordActivity(ctx, a); err != nil {
		e.logger.Error("record scrape activity",
			zap.String("job_id", jobID),
			zap.String("url", r.URL),
			zap.Error(err),
		)
	}
}

func countSuccesses(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
