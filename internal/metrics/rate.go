package metrics

import (
	"time"

	"github.com/paulbellamy/ratecounter"
)

// RateTracker is observability sugar layered on top of Counters: a
// one-second sliding window of request throughput, used only to
// annotate log lines. It never feeds back into the six published
// counters or any handler decision.
type RateTracker struct {
	counter *ratecounter.RateCounter
}

// NewRateTracker starts a fresh one-second sliding window.
func NewRateTracker() *RateTracker {
	return &RateTracker{counter: ratecounter.NewRateCounter(1 * time.Second)}
}

// Hit records one more request in the current window.
func (r *RateTracker) Hit() {
	r.counter.Incr(1)
}

// RequestsPerSecond returns the current window's rate.
func (r *RateTracker) RequestsPerSecond() int64 {
	return r.counter.Rate()
}
