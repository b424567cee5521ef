package lead

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-enrichment/pkg/platform/sentinel"
)

func TestMemoryStore_GetByID(t *testing.T) {
	store := NewMemoryStore()
	store.Seed(&Lead{ID: "lead-1", Email: "ana@example.com", EnrichmentConsent: true})

	got, err := store.GetByID(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)

	_, err = store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	store.Seed(&Lead{ID: "lead-1", FirstName: "Ana"})

	got, err := store.GetByID(context.Background(), "lead-1")
	require.NoError(t, err)
	got.FirstName = "mutated"

	again, err := store.GetByID(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", again.FirstName)
}

func TestMemoryStore_UpdatePatch(t *testing.T) {
	store := NewMemoryStore()
	expires := time.Now().Add(24 * time.Hour)
	store.Seed(&Lead{ID: "lead-1", Email: "ana@example.com"})

	data := json.RawMessage(`{"qualityScore":88}`)
	updated, err := store.Update(context.Background(), "lead-1", Patch{
		EnrichmentConsent: Bool(true),
		ConsentExpiresAt:  TimePtr(expires),
		EnrichmentData:    &data,
		SetEnrichmentData: true,
	})
	require.NoError(t, err)
	assert.True(t, updated.EnrichmentConsent)
	require.NotNil(t, updated.ConsentExpiresAt)
	assert.WithinDuration(t, expires, *updated.ConsentExpiresAt, time.Second)
	assert.JSONEq(t, `{"qualityScore":88}`, string(updated.EnrichmentData))
	assert.Equal(t, "ana@example.com", updated.Email)
}

func TestMemoryStore_UpdateNullsEnrichmentData(t *testing.T) {
	store := NewMemoryStore()
	store.Seed(&Lead{ID: "lead-1", EnrichmentData: json.RawMessage(`{"x":1}`)})

	updated, err := store.Update(context.Background(), "lead-1", Patch{SetEnrichmentData: true})
	require.NoError(t, err)
	assert.Nil(t, updated.EnrichmentData)
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Update(context.Background(), "nope", Patch{})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
