package scrape

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fetches tracks the number of fetch attempts dispatched.
	Fetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_scrape_fetches_total",
		Help: "The total number of page fetch attempts.",
	})
	// FetchErrors tracks fetch attempts that resulted in an error.
	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_scrape_fetch_errors_total",
		Help: "The total number of failed page fetch attempts.",
	})
	// Retries tracks transient failures that triggered another attempt.
	Retries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_scrape_retries_total",
		Help: "The total number of fetch retries.",
	})
	// RateLimitWaits tracks blocking waits on an exhausted domain window.
	RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_scrape_rate_limit_waits_total",
		Help: "The total number of waits on an exhausted per-domain window.",
	})
)
