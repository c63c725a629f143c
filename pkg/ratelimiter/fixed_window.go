package ratelimiter

import (
	"sync"
	"time"
)

// FixedWindowCounter allows up to limit requests per fixed time window.
// The counter resets when a new window starts.
type FixedWindowCounter struct {
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
	now         func() time.Time
	mutex       sync.Mutex
}

// NewFixedWindowCounter creates a FixedWindowCounter allowing limit
// requests per window.
func NewFixedWindowCounter(limit int, window time.Duration) *FixedWindowCounter {
	return newFixedWindowCounter(limit, window, time.Now)
}

func newFixedWindowCounter(limit int, window time.Duration, now func() time.Time) *FixedWindowCounter {
	return &FixedWindowCounter{
		limit:       limit,
		window:      window,
		windowStart: now(),
		now:         now,
	}
}

// Allow consumes one slot from the current window if any remain.
func (fwc *FixedWindowCounter) Allow() bool {
	fwc.mutex.Lock()
	defer fwc.mutex.Unlock()

	fwc.roll()

	if fwc.count < fwc.limit {
		fwc.count++
		return true
	}
	return false
}

// RetryAfter reports how long until the current window resets. It
// returns zero when a slot is available immediately.
func (fwc *FixedWindowCounter) RetryAfter() time.Duration {
	fwc.mutex.Lock()
	defer fwc.mutex.Unlock()

	fwc.roll()

	if fwc.count < fwc.limit {
		return 0
	}
	remaining := fwc.windowStart.Add(fwc.window).Sub(fwc.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// roll starts a fresh window if the current one has passed. Caller must
// hold the mutex.
func (fwc *FixedWindowCounter) roll() {
	now := fwc.now()
	if now.After(fwc.windowStart.Add(fwc.window)) {
		fwc.windowStart = now
		fwc.count = 0
	}
}
