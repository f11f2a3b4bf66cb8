package failover

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Attempts tracks individual provider invocation attempts.
	Attempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_failover_attempts_total",
		Help: "The total number of provider invocation attempts.",
	})
	// Exhausted tracks failover passes where every candidate failed.
	Exhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadengine_failover_exhausted_total",
		Help: "The total number of operations that exhausted all providers.",
	})
)
