// Package metrics keeps rolling-window latency aggregates for the outbound
// calls the service makes: document parsing and question answering.
package metrics

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at       time.Time
	duration time.Duration
	failed   bool
}

// Snapshot is a point-in-time aggregate of one series.
type Snapshot struct {
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// Latency tracks call durations within a rolling window.
type Latency struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
	now     func() time.Time
}

func NewLatency(window time.Duration) *Latency {
	if window <= 0 {
		window = time.Hour
	}
	return &Latency{
		samples: make([]sample, 0, 64),
		window:  window,
		now:     time.Now,
	}
}

// Observe records one call. err only marks the sample as a failure.
func (l *Latency) Observe(d time.Duration, err error) {
	if d < 0 {
		d = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)
	l.samples = append(l.samples, sample{at: now, duration: d, failed: err != nil})
}

// Time runs fn and observes its duration and outcome.
func (l *Latency) Time(fn func() error) error {
	start := l.now()
	err := fn()
	l.Observe(l.now().Sub(start), err)
	return err
}

func (l *Latency) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(l.now())
	if len(l.samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, 0, len(l.samples))
	var sum int64
	failures := 0
	for _, s := range l.samples {
		ms := s.duration.Milliseconds()
		values = append(values, ms)
		sum += ms
		if s.failed {
			failures++
		}
	}
	slices.Sort(values)

	return Snapshot{
		Count:    len(values),
		Failures: failures,
		MinMs:    values[0],
		MaxMs:    values[len(values)-1],
		AvgMs:    float64(sum) / float64(len(values)),
		P50Ms:    percentile(values, 50),
		P95Ms:    percentile(values, 95),
		P99Ms:    percentile(values, 99),
	}
}

func (l *Latency) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	l.samples = slices.DeleteFunc(l.samples, func(s sample) bool {
		return s.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*weight
}

// Registry holds the named series reported by the stats endpoint.
type Registry struct {
	Parse *Latency
	QA    *Latency
}

func NewRegistry(window time.Duration) *Registry {
	return &Registry{
		Parse: NewLatency(window),
		QA:    NewLatency(window),
	}
}

// Snapshot returns every series keyed by name.
func (r *Registry) Snapshot() map[string]Snapshot {
	return map[string]Snapshot{
		"parse": r.Parse.Snapshot(),
		"qa":    r.QA.Snapshot(),
	}
}
