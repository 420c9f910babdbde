package testutil

import (
	"context"
	"sync"
	"time"
)

// CountingLimiter allows up to Limit calls per identifier and bucket, with no
// window. A zero Limit allows everything.
type CountingLimiter struct {
	mu     sync.Mutex
	counts map[string]int

	Limit int
	// Err, when set, is returned by Allow.
	Err error
}

// NewCountingLimiter returns a limiter allowing limit calls per key.
func NewCountingLimiter(limit int) *CountingLimiter {
	return &CountingLimiter{counts: make(map[string]int), Limit: limit}
}

func (l *CountingLimiter) Allow(ctx context.Context, identifier, bucket string) (bool, error) {
	if l.Err != nil {
		return false, l.Err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := bucket + ":" + identifier
	l.counts[key]++
	return l.Limit == 0 || l.counts[key] <= l.Limit, nil
}

// Calls returns how many times Allow was called for identifier in bucket.
func (l *CountingLimiter) Calls(identifier, bucket string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[bucket+":"+identifier]
}

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
