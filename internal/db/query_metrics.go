package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fr0stylo/tiletrack/internal/observability"
)

const maxSamplesPerQuery = 512

type queryLatencyStats struct {
	Name  string
	Count int
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

type queryLatencyTracker struct {
	mu      sync.Mutex
	samples map[string][]time.Duration
}

func newQueryLatencyTracker() *queryLatencyTracker {
	return &queryLatencyTracker{samples: make(map[string][]time.Duration)}
}

func (t *queryLatencyTracker) observe(name string, duration time.Duration) {
	if t == nil {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "unknown"
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	window := append(t.samples[name], duration)
	if len(window) > maxSamplesPerQuery {
		window = window[len(window)-maxSamplesPerQuery:]
	}
	t.samples[name] = window
}

func (t *queryLatencyTracker) snapshot() []queryLatencyStats {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stats := make([]queryLatencyStats, 0, len(t.samples))
	for name, window := range t.samples {
		if len(window) == 0 {
			continue
		}
		sorted := make([]time.Duration, len(window))
		copy(sorted, window)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		stats = append(stats, queryLatencyStats{
			Name:  name,
			Count: len(sorted),
			P50:   percentile(sorted, 0.50),
			P95:   percentile(sorted, 0.95),
			Max:   sorted[len(sorted)-1],
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// instrument opens a db span and returns a closer that records latency for the
// named query.
func (c *Database) instrument(ctx context.Context, name, operation string) (context.Context, func()) {
	ctx, span := observability.StartDBSpan(ctx, name, operation)
	start := time.Now()
	return ctx, func() {
		c.tracker.observe(name, time.Since(start))
		span.End()
	}
}
