package controller

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// operationCall is one completed request/response round trip against a
// single controller operation path.
type operationCall struct {
	success bool
	elapsed time.Duration
}

// latencyTracker accumulates per-path success/failure and latency data for
// the lifetime of a Controller, so Close() can log a summary of how the
// controller connection actually behaved. It is deliberately lighter than a
// time-windowed tracker: a Controller's lifetime is the edge client
// process's lifetime, not a long-lived supervised service, so there is no
// "last hour" to prune.
type latencyTracker struct {
	mu    sync.Mutex
	calls map[string][]operationCall
}

func newLatencyTracker() *latencyTracker {
	return &latencyTracker{calls: make(map[string][]operationCall)}
}

func (t *latencyTracker) record(path string, elapsed time.Duration, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[path] = append(t.calls[path], operationCall{success: success, elapsed: elapsed})
}

// operationSummary is the logged shape for one operation path.
type operationSummary struct {
	path        string
	total       int
	successRate float64
	p50, p95    time.Duration
}

// summarize computes one operationSummary per tracked path, sorted by path
// for deterministic log ordering.
func (t *latencyTracker) summarize() []operationSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	summaries := make([]operationSummary, 0, len(t.calls))
	for path, calls := range t.calls {
		if len(calls) == 0 {
			continue
		}
		latencies := make([]time.Duration, len(calls))
		successCount := 0
		for i, c := range calls {
			latencies[i] = c.elapsed
			if c.success {
				successCount++
			}
		}
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		summaries = append(summaries, operationSummary{
			path:        path,
			total:       len(calls),
			successRate: float64(successCount) / float64(len(calls)),
			p50:         percentile(latencies, 0.50),
			p95:         percentile(latencies, 0.95),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].path < summaries[j].path })
	return summaries
}

// logSummary writes one zap.Info line per tracked operation path. Called
// from Close() so a terminated client leaves behind a record of how each
// endpoint actually performed.
func (t *latencyTracker) logSummary(logger *zap.Logger) {
	for _, s := range t.summarize() {
		logger.Info("controller operation summary",
			zap.String("path", s.path),
			zap.Int("calls", s.total),
			zap.Float64("success_rate", s.successRate),
			zap.Duration("p50", s.p50),
			zap.Duration("p95", s.p95),
		)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}
