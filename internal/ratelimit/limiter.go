// Package ratelimit implements the per-provider request throttle. Each
// provider owns one Limiter; limits reflect vendor cost and data sensitivity.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrLimitExceeded is returned when the sliding window is full. Providers
// surface it as a rate-limit step failure; it is never retried within a call.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Limiter is a sliding-window limiter: it keeps timestamps of calls inside
// the window and rejects once the count reaches the limit. The sliding window
// avoids the boundary burst a fixed window allows.
type Limiter struct {
	mu         sync.Mutex
	timestamps []time.Time
	limit      int
	window     time.Duration
	now        func() time.Time
}

// New creates a limiter allowing limit calls per window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Check records a call if the window has room, or returns ErrLimitExceeded.
func (l *Limiter) Check() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanup(now)

	if len(l.timestamps) >= l.limit {
		return ErrLimitExceeded
	}
	l.timestamps = append(l.timestamps, now)
	return nil
}

// Remaining reports how many calls are left in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanup(l.now())
	return l.limit - len(l.timestamps)
}

// Reset clears the window.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = nil
}

// cleanup removes expired timestamps. Must be called while holding l.mu.
func (l *Limiter) cleanup(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for ; i < len(l.timestamps); i++ {
		if l.timestamps[i].After(cutoff) {
			break
		}
	}
	l.timestamps = l.timestamps[i:]
}
