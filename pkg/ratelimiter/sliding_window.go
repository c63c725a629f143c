package ratelimiter

import (
	"sync"
	"time"
)

// SlidingWindowCounter approximates a sliding window by dividing it
// into buckets. It is more accurate at window boundaries than a fixed
// window counter while using constant memory.
type SlidingWindowCounter struct {
	limit      int
	window     time.Duration
	numBuckets int
	bucketSize time.Duration
	buckets    []int
	current    int
	lastUpdate time.Time
	now        func() time.Time
	mutex      sync.Mutex
}

// NewSlidingWindowCounter creates a SlidingWindowCounter allowing limit
// requests per window, tracked across numBuckets buckets.
func NewSlidingWindowCounter(limit int, window time.Duration, numBuckets int) *SlidingWindowCounter {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	return &SlidingWindowCounter{
		limit:      limit,
		window:     window,
		numBuckets: numBuckets,
		bucketSize: window / time.Duration(numBuckets),
		buckets:    make([]int, numBuckets),
		lastUpdate: time.Now(),
		now:        time.Now,
	}
}

// slide advances the window, clearing buckets that fell out of range.
// Caller must hold the mutex.
func (swc *SlidingWindowCounter) slide() {
	now := swc.now()
	elapsed := now.Sub(swc.lastUpdate)
	steps := int(elapsed / swc.bucketSize)
	if steps <= 0 {
		return
	}

	if steps >= swc.numBuckets {
		for i := range swc.buckets {
			swc.buckets[i] = 0
		}
	} else {
		for i := 1; i <= steps; i++ {
			swc.buckets[(swc.current+i)%swc.numBuckets] = 0
		}
	}
	swc.current = (swc.current + steps) % swc.numBuckets
	swc.lastUpdate = now
}

// Allow counts the request against the current bucket if the window
// total is under the limit.
func (swc *SlidingWindowCounter) Allow() bool {
	swc.mutex.Lock()
	defer swc.mutex.Unlock()

	swc.slide()

	total := 0
	for _, c := range swc.buckets {
		total += c
	}

	if total < swc.limit {
		swc.buckets[swc.current]++
		return true
	}
	return false
}
