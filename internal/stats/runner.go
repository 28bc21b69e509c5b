// Package stats aggregates corpus-wide size statistics and rolling
// introspection runner metrics.
package stats

import (
	"sort"
	"sync"
	"time"
)

type runSample struct {
	timestamp  time.Time
	durationMs int64
}

// RunnerSnapshot is a point-in-time aggregate of introspection runs.
// Duration percentiles cover the rolling window; success and failure
// counts are lifetime totals.
type RunnerSnapshot struct {
	Count     int     `json:"count"`
	Successes int64   `json:"successes"`
	Failures  int64   `json:"failures"`
	MinMs     int64   `json:"min_ms"`
	MaxMs     int64   `json:"max_ms"`
	AvgMs     float64 `json:"avg_ms"`
	P50Ms     float64 `json:"p50_ms"`
	P90Ms     float64 `json:"p90_ms"`
	P99Ms     float64 `json:"p99_ms"`
}

// RunnerStats tracks recent introspection run durations within a
// rolling window.
type RunnerStats struct {
	mu        sync.Mutex
	samples   []runSample
	maxAge    time.Duration
	successes int64
	failures  int64
}

func NewRunnerStats(maxAge time.Duration) *RunnerStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &RunnerStats{
		samples: make([]runSample, 0, 256),
		maxAge:  maxAge,
	}
}

func (s *RunnerStats) Record(d time.Duration, ok bool) {
	durationMs := d.Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok {
		s.successes++
	} else {
		s.failures++
	}
	s.pruneLocked(now)
	s.samples = append(s.samples, runSample{
		timestamp:  now,
		durationMs: durationMs,
	})
}

func (s *RunnerStats) Snapshot() RunnerSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	snap := RunnerSnapshot{
		Successes: s.successes,
		Failures:  s.failures,
	}
	if len(s.samples) == 0 {
		return snap
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P90Ms = percentile(values, 90)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *RunnerStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
