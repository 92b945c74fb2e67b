package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ESCveloc/RBR-sub000/game"
)

// PersistFunc issues the external persistence request for a mutation and
// returns the canonical result. Implementations typically POST to the REST
// collaborator; see RESTClient.
type PersistFunc func(ctx context.Context, mutationID string) (game.StateDelta, error)

// Mutator is the reusable optimistic-update primitive: snapshot the cache,
// apply a speculative overlay, issue persistence, and commit or roll back
// on the outcome. One Mutator serves all actions against a cache.
type Mutator struct {
	cache *Cache
}

// NewMutator creates a mutator over the given cache.
func NewMutator(cache *Cache) *Mutator {
	return &Mutator{cache: cache}
}

// Do runs one optimistic mutation and returns its mutation id.
//
// The speculative overlay makes the UI reflect the intended post-mutation
// state immediately. On persistence success the overlay stays in place
// until the authoritative STATE_DELTA broadcast for this mutation id
// arrives and supersedes it (Cache.Apply). On failure the cache is restored
// to the exact pre-mutation snapshot and the error is returned for the UI
// to surface.
func (m *Mutator) Do(ctx context.Context, gameID, kind string, data json.RawMessage, persist PersistFunc) (string, error) {
	if persist == nil {
		return "", fmt.Errorf("mutation requires a persist function")
	}

	mutationID := uuid.NewString()

	snap := m.cache.snapshot(gameID)
	m.cache.speculate(gameID, mutationID, kind, data)

	if _, err := persist(ctx, mutationID); err != nil {
		m.cache.restore(gameID, snap)
		return "", fmt.Errorf("persist mutation: %w", err)
	}

	return mutationID, nil
}
