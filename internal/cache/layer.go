package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lead-enrichment/pkg/platform/sentinel"
)

// FallbackSource reports where a GetWithFallback answer came from.
type FallbackSource string

const (
	// FromCache: cache hit.
	FromCache FallbackSource = "cache"
	// FromDatabase: cache miss, fallback produced the value.
	FromDatabase FallbackSource = "database"
	// FromNone: cache miss and the fallback had nothing.
	FromNone FallbackSource = "none"
	// FromError: cache miss and the fallback itself failed.
	FromError FallbackSource = "error"
)

// FallbackResult pairs a value with its provenance.
type FallbackResult struct {
	Data   []byte
	Source FallbackSource
}

// Layer is the read-through cache used by the enrichment service. Cache
// failures never fail a read: a broken cache degrades to the fallback.
type Layer struct {
	store  Store
	logger *slog.Logger
}

func NewLayer(store Store, logger *slog.Logger) *Layer {
	return &Layer{store: store, logger: logger}
}

// Get returns the cached value or sentinel.ErrNotFound.
func (l *Layer) Get(ctx context.Context, key string) ([]byte, error) {
	return l.store.Get(ctx, key)
}

// Set writes through with the given TTL.
func (l *Layer) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return l.store.Set(ctx, key, value, ttl)
}

// MGet returns the cached values found among keys; misses are absent from
// the map.
func (l *Layer) MGet(ctx context.Context, keys ...string) (map[string][]byte, error) {
	return l.store.MGet(ctx, keys...)
}

// MSet writes through every entry with a shared TTL.
func (l *Layer) MSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	return l.store.MSet(ctx, entries, ttl)
}

// Delete removes a key. Used when enrichment data is deleted for a lead.
func (l *Layer) Delete(ctx context.Context, key string) error {
	return l.store.Delete(ctx, key)
}

// Health probes the backing store.
func (l *Layer) Health(ctx context.Context) error {
	return l.store.Health(ctx)
}

// GetWithFallback reads through the cache. On a miss it invokes fallback and,
// when that yields data, writes it back with the TTL. A failed write-back is
// logged and the data is still served; a failed fallback is reported as
// FromError with no data.
func (l *Layer) GetWithFallback(ctx context.Context, key string, ttl time.Duration, fallback func(context.Context) ([]byte, error)) (FallbackResult, error) {
	cached, err := l.store.Get(ctx, key)
	if err == nil {
		return FallbackResult{Data: cached, Source: FromCache}, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) && l.logger != nil {
		l.logger.WarnContext(ctx, "cache read failed, falling back", "key", key, "error", err)
	}

	data, err := fallback(ctx)
	if err != nil {
		return FallbackResult{Source: FromError}, fmt.Errorf("cache fallback for %q: %w", key, err)
	}
	if data == nil {
		return FallbackResult{Source: FromNone}, nil
	}

	if err := l.store.Set(ctx, key, data, ttl); err != nil && l.logger != nil {
		l.logger.WarnContext(ctx, "cache write-back failed", "key", key, "error", err)
	}
	return FallbackResult{Data: data, Source: FromDatabase}, nil
}
