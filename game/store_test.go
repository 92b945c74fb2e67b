package game

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStoreApplyBumpsVersion(t *testing.T) {
	store := NewStore()

	first, err := store.Apply("g1", StateDelta{Kind: KindReadiness, Data: json.RawMessage(`{"ready":true}`)})
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("expected version 1, got %d", first.Version)
	}
	if first.GameID != "g1" {
		t.Errorf("expected gameId g1, got %s", first.GameID)
	}

	second, err := store.Apply("g1", StateDelta{Kind: KindPosition, Data: json.RawMessage(`{"x":4}`)})
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if second.Version != 2 {
		t.Errorf("expected version 2, got %d", second.Version)
	}
}

func TestStoreApplyRequiresKind(t *testing.T) {
	store := NewStore()

	_, err := store.Apply("g1", StateDelta{Data: json.RawMessage(`{}`)})
	if !errors.Is(err, ErrEmptyKind) {
		t.Errorf("expected ErrEmptyKind, got %v", err)
	}
}

func TestStoreStateUnknownGame(t *testing.T) {
	store := NewStore()

	_, err := store.State("missing")
	if !errors.Is(err, ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
}

func TestStoreStateIsACopy(t *testing.T) {
	store := NewStore()
	store.Apply("g1", StateDelta{Kind: KindReadiness, Data: json.RawMessage(`{"ready":true}`)})

	snap, err := store.State("g1")
	if err != nil {
		t.Fatalf("State() failed: %v", err)
	}

	// Mutating the returned snapshot must not leak into the store.
	snap.Fields[KindReadiness][2] = 'X'
	snap.Version = 99

	again, _ := store.State("g1")
	if string(again.Fields[KindReadiness]) != `{"ready":true}` {
		t.Errorf("store state was mutated through a returned snapshot: %s", again.Fields[KindReadiness])
	}
	if again.Version != 1 {
		t.Errorf("store version was mutated through a returned snapshot: %d", again.Version)
	}
}

func TestStoreMergesByKind(t *testing.T) {
	store := NewStore()
	store.Apply("g1", StateDelta{Kind: KindReadiness, Data: json.RawMessage(`{"ready":false}`)})
	store.Apply("g1", StateDelta{Kind: KindZonePhase, Data: json.RawMessage(`{"phase":2}`)})
	store.Apply("g1", StateDelta{Kind: KindReadiness, Data: json.RawMessage(`{"ready":true}`)})

	snap, _ := store.State("g1")
	if string(snap.Fields[KindReadiness]) != `{"ready":true}` {
		t.Errorf("latest readiness blob should win, got %s", snap.Fields[KindReadiness])
	}
	if string(snap.Fields[KindZonePhase]) != `{"phase":2}` {
		t.Errorf("zone phase blob lost, got %s", snap.Fields[KindZonePhase])
	}
	if snap.Version != 3 {
		t.Errorf("expected version 3, got %d", snap.Version)
	}
}
