package lead

import (
	"context"
	"sync"
	"time"

	"lead-enrichment/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for tests and development. Copies go in
// and out so callers cannot mutate shared state.
type MemoryStore struct {
	mu    sync.RWMutex
	leads map[string]*Lead
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads: make(map[string]*Lead),
		now:   time.Now,
	}
}

// Seed inserts or replaces a lead. Test helper.
func (s *MemoryStore) Seed(l *Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.leads[l.ID] = &cp
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch Patch) (*Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	patch.Apply(l, s.now())
	cp := *l
	return &cp, nil
}
