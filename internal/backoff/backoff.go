// Package backoff implements the escalating spin/yield/sleep wait used
// throughout the core: workers idling on the dispatch token, the driver
// waiting for a range to drain, and the pacing loop spinning to a deadline.
// None of these waits may take a lock, so all of them bottom out here.
package backoff

import (
	"runtime"
	"time"
)

const (
	maxBackoff = 1_000_000 // nanoseconds
)

// Backoff escalates from a tight spin to Gosched to a short sleep the longer
// a caller keeps polling without progress. Reset returns it to the tight
// spin once progress is observed.
type Backoff struct {
	ns int64
}

// Wait performs one escalation step.
func (b *Backoff) Wait() {
	switch {
	case b.ns < 64:
		// tight spin: cheapest, appropriate for near-immediate completions
	case b.ns < 1000:
		runtime.Gosched()
	default:
		time.Sleep(time.Duration(b.ns) * time.Nanosecond)
	}
	next := b.ns * 2
	if next == 0 {
		next = 1
	}
	if next > maxBackoff {
		next = maxBackoff
	}
	b.ns = next
}

// Reset returns the backoff to its initial, tightest-spin state.
func (b *Backoff) Reset() {
	b.ns = 0
}
