// Package metrics registers the Prometheus instruments for the fetch pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalAttempts tracks the number of HTTP attempts dispatched.
	TotalAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staywatch_fetch_attempts_total",
		Help: "The total number of HTTP fetch attempts issued.",
	})
	// TotalSuccesses tracks attempts that returned a status below 300.
	TotalSuccesses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staywatch_fetch_success_total",
		Help: "The total number of successful fetch attempts.",
	})
	// TotalSoftBlocks tracks attempts answered with a status of 300 or above.
	TotalSoftBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staywatch_fetch_soft_blocks_total",
		Help: "The total number of responses interpreted as soft blocks.",
	})
	// TotalTransientFailures tracks attempts that died in transport.
	TotalTransientFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staywatch_fetch_transient_failures_total",
		Help: "The total number of attempts lost to transport-level failures.",
	})
	// TotalExhaustions tracks fetch calls that consumed every attempt.
	TotalExhaustions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staywatch_fetch_exhausted_total",
		Help: "The total number of fetches that exhausted all attempts.",
	})
	// TotalProxyRemovals tracks proxies pruned from the live pool.
	TotalProxyRemovals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staywatch_proxy_removals_total",
		Help: "The total number of proxies removed after a soft block.",
	})
	// TotalPoolRefills tracks how often the live pool was reset to the full set.
	TotalPoolRefills = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staywatch_proxy_pool_refills_total",
		Help: "The total number of times the live proxy pool was refilled.",
	})
)
