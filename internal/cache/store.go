// Package cache provides the TTL cache in front of enrichment results and
// provider health probes, with a read-through fallback that reports where
// each answer came from.
package cache

import (
	"context"
	"time"
)

// Default TTLs. Enrichment results are expensive and change slowly; health
// probes are cheap and go stale fast.
const (
	DefaultResultTTL = time.Hour
	HealthProbeTTL   = 30 * time.Second
)

// Store is a byte-level TTL cache. Get returns sentinel.ErrNotFound for both
// missing and expired entries; callers cannot distinguish the two, by
// contract. MGet reports misses by omission instead of by error so one cold
// key never fails a batch read.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	MGet(ctx context.Context, keys ...string) (map[string][]byte, error)
	MSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Health(ctx context.Context) error
}
