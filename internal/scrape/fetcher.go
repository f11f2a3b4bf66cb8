package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// userAgents is the fixed rotation pool applied to outgoing fetches.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// FetchError classifies a failed fetch attempt.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient: network errors,
// timeouts, and 5xx responses. Forbidden and not-found responses are
// terminal and short-circuit the retry loop.
func (e *FetchError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusForbidden, http.StatusNotFound:
		return false
	}
	if e.StatusCode >= 500 {
		return true
	}
	if e.StatusCode == 0 {
		// No HTTP response at all: DNS, connect, or timeout failure.
		return true
	}
	return false
}

// Page is the raw outcome of a successful fetch.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// FetcherConfig controls fetch timeout and retry behavior.
type FetcherConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

// Fetcher retrieves pages through a tuned Colly collector with user-agent
// rotation and linear-backoff retry.
type Fetcher struct {
	base   *colly.Collector
	cfg    FetcherConfig
	logger *zap.Logger

	mu      sync.Mutex
	nextUA  int
	sleepFn func(ctx context.Context, d time.Duration) error
}

// NewFetcher constructs a Fetcher.
func NewFetcher(cfg FetcherConfig, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector()
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		base:    base,
		cfg:     cfg,
		logger:  logger,
		sleepFn: sleepCtx,
	}
}

// NormalizeURL standardizes a raw URL before fetching: a missing scheme
// defaults to https and a single trailing slash is dropped.
func NormalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("empty url")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	u.Host = strings.ToLower(u.Host)
	normalized := strings.TrimSuffix(u.String(), "/")
	return normalized, nil
}

// Fetch retrieves a normalized URL, retrying transient failures up to the
// configured attempt budget with linear backoff. Terminal statuses (403,
// 404) return immediately without consuming the remaining budget.
func (f *Fetcher) Fetch(ctx context.Context, normalizedURL string) (Page, error) {
	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		Fetches.Inc()
		page, err := f.fetchOnce(ctx, normalizedURL)
		if err == nil {
			return page, nil
		}
		lastErr = err
		FetchErrors.Inc()

		var fe *FetchError
		if !errors.As(err, &fe) || !fe.Retryable() || attempt == f.cfg.MaxAttempts {
			break
		}
		if ctx.Err() != nil {
			break
		}

		Retries.Inc()
		backoff := time.Duration(attempt) * f.cfg.BackoffBase
		f.logger.Debug("retrying fetch",
			zap.String("url", normalizedURL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
		)
		if err := f.sleepFn(ctx, backoff); err != nil {
			return Page{}, &FetchError{URL: normalizedURL, Err: err}
		}
	}
	return Page{}, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, normalizedURL string) (Page, error) {
	collector := f.base.Clone()
	ua := f.rotateUserAgent()

	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", ua)
	})

	collector.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			for k, v := range *r.Headers {
				cp := make([]string, len(v))
				copy(cp, v)
				headers[k] = cp
			}
		}
		send(fetchResult{page: Page{
			URL:        normalizedURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte{}, r.Body...),
		}})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown fetch error")
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		send(fetchResult{err: &FetchError{URL: normalizedURL, StatusCode: status, Err: err}})
	})

	if err := collector.Visit(normalizedURL); err != nil {
		// Visit surfaces the raw HTTP error for non-2xx responses, but
		// OnError has already sent a classified result with the status
		// code. Prefer it so terminal statuses are not retried as
		// network failures.
		select {
		case res := <-resultCh:
			return res.page, res.err
		default:
			return Page{}, &FetchError{URL: normalizedURL, Err: err}
		}
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, &FetchError{URL: normalizedURL, Err: err}
		}
		return res.page, res.err
	default:
		return Page{}, &FetchError{URL: normalizedURL, Err: errors.New("fetch produced no result")}
	}
}

func (f *Fetcher) rotateUserAgent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ua := userAgents[f.nextUA%len(userAgents)]
	f.nextUA++
	return ua
}

type fetchResult struct {
	page Page
	err  error
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
