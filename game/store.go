package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrEmptyKind    = errors.New("delta kind is required")
)

// Store is the in-memory persistence collaborator backing the REST layer.
// It is the source of truth for versioned game state; the websocket core
// only relays what the Store (or other clients) emit.
type Store struct {
	mu    sync.RWMutex
	games map[string]*Snapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		games: make(map[string]*Snapshot),
	}
}

// Apply persists a mutation against a game, creating the game entry lazily,
// and returns the delta with the authoritative version filled in.
func (s *Store) Apply(gameID string, delta StateDelta) (StateDelta, error) {
	if delta.Kind == "" {
		return StateDelta{}, ErrEmptyKind
	}
	if gameID == "" {
		return StateDelta{}, fmt.Errorf("apply mutation: %w", ErrGameNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.games[gameID]
	if !ok {
		snap = &Snapshot{
			GameID: gameID,
			Fields: make(map[string]json.RawMessage),
		}
		s.games[gameID] = snap
	}

	snap.Version++
	snap.Fields[delta.Kind] = append(json.RawMessage(nil), delta.Data...)

	delta.GameID = gameID
	delta.Version = snap.Version
	return delta, nil
}

// State returns a copy of the game's current snapshot.
func (s *Store) State(gameID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return snap.Clone(), nil
}

// Games returns the number of games with persisted state.
func (s *Store) Games() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}
