package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	l := New(3, time.Minute)
	require.NoError(t, l.Check())
	require.NoError(t, l.Check())
	require.NoError(t, l.Check())
	assert.ErrorIs(t, l.Check(), ErrLimitExceeded)
	assert.Equal(t, 0, l.Remaining())
}

func TestLimiter_WindowSlides(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l := New(2, time.Minute)
	l.now = func() time.Time { return now }

	require.NoError(t, l.Check())
	now = now.Add(30 * time.Second)
	require.NoError(t, l.Check())
	assert.ErrorIs(t, l.Check(), ErrLimitExceeded)

	// First timestamp expires after 61s; one slot frees up.
	now = now.Add(31 * time.Second)
	require.NoError(t, l.Check())
	assert.ErrorIs(t, l.Check(), ErrLimitExceeded)
}

func TestLimiter_Reset(t *testing.T) {
	l := New(1, time.Minute)
	require.NoError(t, l.Check())
	assert.ErrorIs(t, l.Check(), ErrLimitExceeded)
	l.Reset()
	assert.NoError(t, l.Check())
}

func TestLimiter_ConcurrentChecks(t *testing.T) {
	l := New(50, time.Minute)
	done := make(chan error, 100)
	for range 100 {
		go func() { done <- l.Check() }()
	}
	allowed := 0
	for range 100 {
		if err := <-done; err == nil {
			allowed++
		}
	}
	assert.Equal(t, 50, allowed)
}
