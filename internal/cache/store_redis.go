package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"lead-enrichment/internal/platform/redis"
	"lead-enrichment/pkg/platform/sentinel"
)

// envelope wraps cached values with an explicit expiry stamp. Redis enforces
// the TTL itself, but the stamp defends against clock drift between the app
// and a replicated Redis, and makes expiry decisions testable.
type envelope struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RedisStore backs the cache with the shared Redis client.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "enrich:",
		now:    time.Now,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// A corrupt entry is as good as a miss; drop it.
		s.client.Del(ctx, s.prefix+key)
		return nil, sentinel.ErrNotFound
	}
	if s.now().After(env.ExpiresAt) {
		s.client.Del(ctx, s.prefix+key)
		return nil, sentinel.ErrNotFound
	}
	return env.Value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	raw, err := json.Marshal(envelope{Value: value, ExpiresAt: s.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// MGet fetches keys in one round trip via Redis MGET. Corrupt or
// drift-expired entries are dropped and reported as misses.
func (s *RedisStore) MGet(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.prefix + key
	}
	values, err := s.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, fmt.Errorf("cache mget: %w", err)
	}

	found := make(map[string][]byte, len(keys))
	now := s.now()
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			s.client.Del(ctx, prefixed[i])
			continue
		}
		if now.After(env.ExpiresAt) {
			s.client.Del(ctx, prefixed[i])
			continue
		}
		found[keys[i]] = env.Value
	}
	return found, nil
}

// MSet writes every entry in one pipelined round trip. Redis MSET carries no
// TTL, so this issues per-key SETs with expiry instead.
func (s *RedisStore) MSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	if len(entries) == 0 {
		return nil
	}

	expiresAt := s.now().Add(ttl)
	_, err := s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for key, value := range entries {
			raw, err := json.Marshal(envelope{Value: value, ExpiresAt: expiresAt})
			if err != nil {
				return fmt.Errorf("cache encode %q: %w", key, err)
			}
			pipe.Set(ctx, s.prefix+key, raw, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache mset: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}
