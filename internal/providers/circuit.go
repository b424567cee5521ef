package providers

import (
	"sync"
	"time"
)

// Breaker short-circuits a vendor after repeated consecutive failures instead
// of retrying it immediately. While open, Allow returns false until the
// cool-down elapses; the first call after that is a probe, and its outcome
// decides whether the circuit closes again.
type Breaker struct {
	mu               sync.Mutex
	open             bool
	failureCount     int
	failureThreshold int
	coolDown         time.Duration
	openedAt         time.Time
	now              func() time.Time
}

const (
	defaultFailureThreshold = 3
	defaultCoolDown         = 30 * time.Second
)

func newBreaker() *Breaker {
	return &Breaker{
		failureThreshold: defaultFailureThreshold,
		coolDown:         defaultCoolDown,
		now:              time.Now,
	}
}

// Allow reports whether a call to the vendor may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	return b.now().Sub(b.openedAt) >= b.coolDown
}

// RecordSuccess closes the circuit and clears the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.failureCount = 0
}

// RecordFailure counts a consecutive failure, opening the circuit at the
// threshold. A failed probe while open restarts the cool-down.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	if b.open {
		b.openedAt = b.now()
		return
	}
	if b.failureCount >= b.failureThreshold {
		b.open = true
		b.openedAt = b.now()
	}
}

// IsOpen reports the current state without consuming a probe.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
