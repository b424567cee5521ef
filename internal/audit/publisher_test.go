package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-enrichment/pkg/platform/middleware/metadata"
)

type failingStore struct{}

func (failingStore) Append(context.Context, Event) error { return errors.New("db down") }
func (failingStore) ListByLead(context.Context, string) ([]Event, error) {
	return nil, errors.New("db down")
}

func TestPublisher_StampsFields(t *testing.T) {
	store := NewMemoryStore()
	pub := NewPublisher(store)

	ctx := metadata.WithActor(context.Background(), metadata.Actor{IP: "203.0.113.9"})
	err := pub.Emit(ctx, Event{LeadID: "lead-1", Type: EventConsentGranted})
	require.NoError(t, err)

	events := store.All()
	require.Len(t, events, 1)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.Equal(t, CategoryCompliance, events[0].Category)
	assert.WithinDuration(t, time.Now(), events[0].Timestamp, time.Second)
	assert.Equal(t, "203.0.113.9", events[0].Actor.IP)
}

func TestPublisher_ComplianceFailClosed(t *testing.T) {
	pub := NewPublisher(failingStore{})
	err := pub.Emit(context.Background(), Event{LeadID: "lead-1", Type: EventDataDeleted})
	assert.Error(t, err)
}

func TestPublisher_OperationsFailOpen(t *testing.T) {
	pub := NewPublisher(failingStore{})
	err := pub.Emit(context.Background(), Event{LeadID: "lead-1", Type: EventCacheHit})
	assert.NoError(t, err)
}

func TestPublisher_StreamTee(t *testing.T) {
	store := NewMemoryStore()
	stream := make(chan Event, 1)
	pub := NewPublisher(store, WithStream(stream))

	require.NoError(t, pub.Emit(context.Background(), Event{LeadID: "lead-1", Type: EventCacheHit}))

	select {
	case got := <-stream:
		assert.Equal(t, EventCacheHit, got.Type)
	default:
		t.Fatal("expected event on stream")
	}
}

func TestPublisher_StreamFullDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()
	stream := make(chan Event) // unbuffered, no consumer
	pub := NewPublisher(store, WithStream(stream))

	done := make(chan struct{})
	go func() {
		_ = pub.Emit(context.Background(), Event{LeadID: "lead-1", Type: EventCacheHit})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on full stream")
	}
	assert.Len(t, store.All(), 1)
}

func TestEventType_Category(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventDataDeleted.Category())
	assert.Equal(t, CategorySecurity, EventRateLimitExceeded.Category())
	assert.Equal(t, CategoryOperations, EventCacheHit.Category())
	assert.Equal(t, CategoryOperations, EventType("made_up").Category())
}
