package scrape

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestDomainLimiter_AllowsUpToLimitImmediately(t *testing.T) {
	t.Parallel()

	l := NewDomainLimiter(3, time.Minute, &manualClock{now: time.Unix(0, 0)})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(ctx, "example.com"))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestDomainLimiter_BlocksUntilWindowReset(t *testing.T) {
	t.Parallel()

	window := 150 * time.Millisecond
	l := NewDomainLimiter(2, window, realClock{})
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "example.com"))
	require.NoError(t, l.Acquire(ctx, "example.com"))

	start := time.Now()
	require.NoError(t, l.Acquire(ctx, "example.com"))
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestDomainLimiter_DomainsAreIndependent(t *testing.T) {
	t.Parallel()

	l := NewDomainLimiter(1, time.Minute, &manualClock{now: time.Unix(0, 0)})
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "a.example.com"))

	// Exhausting one domain must not delay another.
	start := time.Now()
	require.NoError(t, l.Acquire(ctx, "b.example.com"))
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestDomainLimiter_AcquireHonorsContextCancel(t *testing.T) {
	t.Parallel()

	l := NewDomainLimiter(1, time.Hour, realClock{})
	require.NoError(t, l.Acquire(context.Background(), "example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := l.Acquire(ctx, "example.com")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDomainLimiter_WindowResetRestoresBudget(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Unix(0, 0)}
	l := NewDomainLimiter(1, time.Minute, clock)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "example.com"))
	clock.Advance(2 * time.Minute)
	require.NoError(t, l.Acquire(ctx, "example.com"))
}

func TestDomainLimiter_RolloverPrunesStaleDomains(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Unix(0, 0)}
	l := NewDomainLimiter(5, time.Minute, clock)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "old.example.com"))
	clock.Advance(2 * time.Minute)
	require.NoError(t, l.Acquire(ctx, "fresh.example.com"))

	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotContains(t, l.windows, "old.example.com")
	require.Contains(t, l.windows, "fresh.example.com")
}

func TestDomainLimiter_SweepPrunesStaleDomains(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Unix(0, 0)}
	l := NewDomainLimiter(5, time.Minute, clock)
	require.NoError(t, l.Acquire(context.Background(), "example.com"))
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Sweep(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.windows) == 0
	}, time.Second, 10*time.Millisecond)
}
