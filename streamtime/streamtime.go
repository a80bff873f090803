// Package streamtime estimates the data-plane's notion of "now" — stream
// time — from the timestamps observed flowing through a table, independent
// of wall-clock skew between producer and consumer. Component C5.
package streamtime

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/linuxfood/setab/internal/mono"
	"github.com/linuxfood/setab/metrics"
)

// Window selects which sliding window a query is answered against.
type Window int

const (
	// Fast reacts quickly to recent bursts; default width ~60s.
	Fast Window = iota
	// Slow smooths over a longer horizon; default width ~600s.
	Slow
)

func (w Window) String() string {
	if w == Slow {
		return "slow"
	}
	return "fast"
}

const (
	defaultFastWindow = 60 * time.Second
	defaultSlowWindow = 600 * time.Second
)

type sample struct {
	at    int64 // wall ms this observation was recorded
	delta int64 // observed_ts - wall_now, clamped to +/-maxDelta
}

// Estimator tracks observed-timestamp-vs-wall-clock deltas in two rolling
// windows and answers percentile queries against them. It collapses the
// original two-dimensional (time-sliced x value-bucketed) histogram into a
// single time-pruned sample set: samples older than the slow window are
// dropped on every observation, and a percentile is taken over whatever
// remains inside the queried window. This keeps the percentile exact rather
// than bucket-approximated, at the cost of O(n log n) on read instead of
// O(1); for the sampling rates this is built for, that trade is the right
// one. See DESIGN.md for the full rationale.
type Estimator struct {
	mu         sync.Mutex
	name       string
	maxDeltaMS int64
	pct        float64
	fastMS     int64
	slowMS     int64
	now        mono.Clock
	refNow     int64
	samples    []sample
}

// New builds an Estimator. maxDelta clamps individual observations so a
// single wildly out-of-order row can't dominate the percentile. pct is the
// percentile in (0, 100] used by CurrentDelta/StreamNow (e.g. 50 for
// median, 90 for p90).
func New(maxDelta time.Duration, pct float64) *Estimator {
	return &Estimator{
		maxDeltaMS: maxDelta.Milliseconds(),
		pct:        pct,
		fastMS:     defaultFastWindow.Milliseconds(),
		slowMS:     defaultSlowWindow.Milliseconds(),
		now:        mono.Now,
	}
}

// SetWindows overrides the default Fast/Slow window widths. Mainly useful
// for tests that want a tight window without sleeping for ten minutes.
func (e *Estimator) SetWindows(fast, slow time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fastMS = fast.Milliseconds()
	e.slowMS = slow.Milliseconds()
}

// SetName labels this estimator's stream_delta_ms gauge with name,
// normally the owning table's name. Unset, it reports under the
// empty-string label.
func (e *Estimator) SetName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.name = name
}

// SetClock replaces the wall clock, for deterministic tests.
func (e *Estimator) SetClock(c mono.Clock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = c
}

// AddObservation records an observed row timestamp (ms since epoch).
func (e *Estimator) AddObservation(ts int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.refNow = now

	delta := ts - now
	if delta > e.maxDeltaMS {
		delta = e.maxDeltaMS
	} else if delta < -e.maxDeltaMS {
		delta = -e.maxDeltaMS
	}
	e.samples = append(e.samples, sample{at: now, delta: delta})
	e.pruneLocked(now)
	metrics.StreamDeltaMs.WithLabelValues(e.name).Set(float64(e.percentileLocked(Fast)))
}

func (e *Estimator) pruneLocked(now int64) {
	cutoff := now - e.slowMS
	i := 0
	for ; i < len(e.samples); i++ {
		if e.samples[i].at >= cutoff {
			break
		}
	}
	if i > 0 {
		e.samples = e.samples[i:]
	}
}

func (e *Estimator) windowMS(w Window) int64 {
	if w == Slow {
		return e.slowMS
	}
	return e.fastMS
}

// CurrentDelta returns the configured percentile of (observed_ts - wall_now)
// over the requested window, in milliseconds. Zero when no sample has
// landed inside the window yet.
func (e *Estimator) CurrentDelta(w Window) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.percentileLocked(w)
}

func (e *Estimator) percentileLocked(w Window) int64 {
	cutoff := e.refNow - e.windowMS(w)
	deltas := make([]int64, 0, len(e.samples))
	for _, s := range e.samples {
		if s.at >= cutoff {
			deltas = append(deltas, s.delta)
		}
	}
	if len(deltas) == 0 {
		return 0
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })
	idx := int(math.Ceil(e.pct/100*float64(len(deltas)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(deltas) {
		idx = len(deltas) - 1
	}
	return deltas[idx]
}

// StreamNow returns the estimated stream-time "now": the last observed
// wall-clock reference plus the window's current percentile delta.
func (e *Estimator) StreamNow(w Window) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.samples) == 0 {
		return e.now()
	}
	return e.refNow + e.percentileLocked(w)
}

// SampleCount reports how many samples currently live inside the slow
// window, mostly useful for tests and diagnostics.
func (e *Estimator) SampleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.samples)
}
