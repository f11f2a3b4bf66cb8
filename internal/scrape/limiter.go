package scrape

import (
	"context"
	"sync"
	"time"
)

const (
	defaultDomainLimit  = 60
	defaultDomainWindow = 60 * time.Second
)

type domainWindow struct {
	count   int
	resetAt time.Time
}

// DomainLimiter enforces a fixed-size request window per domain. When a
// domain's window is exhausted the caller blocks until the window resets.
// Increments are serialized under the limiter mutex so two concurrent
// fetches cannot under-count the same window.
type DomainLimiter struct {
	mu      sync.Mutex
	windows map[string]*domainWindow
	limit   int
	window  time.Duration
	clock   Clock
}

// NewDomainLimiter constructs a DomainLimiter. Non-positive limit or window
// fall back to the defaults (60 requests per 60s).
func NewDomainLimiter(limit int, window time.Duration, clock Clock) *DomainLimiter {
	if limit <= 0 {
		limit = defaultDomainLimit
	}
	if window <= 0 {
		window = defaultDomainWindow
	}
	return &DomainLimiter{
		windows: make(map[string]*domainWindow),
		limit:   limit,
		window:  window,
		clock:   clock,
	}
}

// Acquire blocks until the domain has window budget or the context finishes.
func (l *DomainLimiter) Acquire(ctx context.Context, domain string) error {
	for {
		l.mu.Lock()
		now := l.clock.Now()
		w, ok := l.windows[domain]
		if !ok || !now.Before(w.resetAt) {
			l.windows[domain] = &domainWindow{count: 1, resetAt: now.Add(l.window)}
			l.pruneLocked(now)
			l.mu.Unlock()
			return nil
		}
		if w.count < l.limit {
			w.count++
			l.mu.Unlock()
			return nil
		}
		wait := w.resetAt.Sub(now)
		l.mu.Unlock()

		RateLimitWaits.Inc()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		// Window may have been reset or refilled by another caller while we
		// slept, so re-check rather than assume a free slot.
	}
}

// Sweep prunes stale domain entries every interval until the context
// finishes. Entries are also pruned lazily on window rollover.
func (l *DomainLimiter) Sweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultDomainWindow
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			l.pruneLocked(l.clock.Now())
			l.mu.Unlock()
		}
	}
}

func (l *DomainLimiter) pruneLocked(now time.Time) {
	for domain, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, domain)
		}
	}
}
