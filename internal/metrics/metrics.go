// Package metrics exposes the scanner's Prometheus counters and the
// admin endpoint serving them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_ticks_total",
		Help: "Evaluation ticks executed across all chats.",
	})
	TicksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_ticks_skipped_total",
		Help: "Ticks skipped because the previous one was still running.",
	})
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_cache_hits_total",
		Help: "Snapshot cache hits.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_cache_misses_total",
		Help: "Snapshot cache misses leading to a candle fetch.",
	})
	PairListRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_pairlist_runs_total",
		Help: "Pair list generation runs started.",
	})
	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_signals_total",
		Help: "Signals reported to chats.",
	}, []string{"type"})
	PairErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanner_pair_errors_total",
		Help: "Per-pair evaluation failures that were skipped.",
	})
)
