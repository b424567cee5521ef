package cache

import (
	"context"
	"sync"
	"time"

	"lead-enrichment/pkg/platform/sentinel"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is the in-process fallback when Redis is not configured.
// Expired entries are purged lazily on read; there is no background sweeper.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, sentinel.ErrNotFound
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: stored, expiresAt: s.now().Add(ttl)}
	return nil
}

// MGet returns the live entries among keys; missing and expired keys are
// simply absent from the result.
func (s *MemoryStore) MGet(_ context.Context, keys ...string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := make(map[string][]byte, len(keys))
	now := s.now()
	for _, key := range keys {
		entry, ok := s.entries[key]
		if !ok {
			continue
		}
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			continue
		}
		out := make([]byte, len(entry.value))
		copy(out, entry.value)
		found[key] = out
	}
	return found, nil
}

// MSet stores every entry with the same TTL.
func (s *MemoryStore) MSet(_ context.Context, entries map[string][]byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(ttl)
	for key, value := range entries {
		stored := make([]byte, len(value))
		copy(stored, value)
		s.entries[key] = memoryEntry{value: stored, expiresAt: expiresAt}
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Health(context.Context) error { return nil }

// Len reports live (unexpired) entries, for tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	now := s.now()
	for _, e := range s.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}
