package client

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/ESCveloc/RBR-sub000/game"
)

func seededCache(t *testing.T) *Cache {
	t.Helper()

	cache := NewCache()
	cache.Apply(game.StateDelta{
		GameID: "g1", Kind: game.KindReadiness,
		Data: json.RawMessage(`{"ready":false}`), Version: 1,
	})
	cache.Apply(game.StateDelta{
		GameID: "g1", Kind: game.KindPosition,
		Data: json.RawMessage(`{"x":0,"y":0}`), Version: 2,
	})
	return cache
}

func TestMutatorAppliesSpeculativeImmediately(t *testing.T) {
	cache := seededCache(t)
	mutator := NewMutator(cache)

	var observedMid string
	persist := func(ctx context.Context, mutationID string) (game.StateDelta, error) {
		observedMid = mutationID
		// While the request is in flight, the UI already sees the
		// speculative value.
		snap, _ := cache.Get("g1")
		if string(snap.Fields[game.KindReadiness]) != `{"ready":true}` {
			t.Errorf("speculative overlay not visible during persist: %s", snap.Fields[game.KindReadiness])
		}
		return game.StateDelta{}, nil
	}

	mid, err := mutator.Do(context.Background(), "g1", game.KindReadiness, json.RawMessage(`{"ready":true}`), persist)
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if mid == "" || mid != observedMid {
		t.Errorf("mutation id mismatch: returned %q, persisted %q", mid, observedMid)
	}

	// Success keeps the overlay until the authoritative broadcast lands.
	if cache.Pending("g1") != 1 {
		t.Errorf("expected overlay to survive success, %d pending", cache.Pending("g1"))
	}

	cache.Apply(game.StateDelta{
		GameID: "g1", MutationID: mid,
		Kind: game.KindReadiness, Data: json.RawMessage(`{"ready":true}`), Version: 3,
	})
	if cache.Pending("g1") != 0 {
		t.Errorf("broadcast did not supersede the overlay, %d pending", cache.Pending("g1"))
	}
}

func TestMutatorRollbackRestoresExactSnapshot(t *testing.T) {
	cache := seededCache(t)
	mutator := NewMutator(cache)

	before, _ := cache.Get("g1")

	persistErr := errors.New("server said no")
	persist := func(ctx context.Context, mutationID string) (game.StateDelta, error) {
		return game.StateDelta{}, persistErr
	}

	_, err := mutator.Do(context.Background(), "g1", game.KindPosition, json.RawMessage(`{"x":9,"y":9}`), persist)
	if !errors.Is(err, persistErr) {
		t.Fatalf("expected the persistence error surfaced, got %v", err)
	}

	after, _ := cache.Get("g1")
	if !reflect.DeepEqual(before, after) {
		t.Errorf("rollback is not byte-for-byte:\nbefore: %+v\nafter:  %+v", before, after)
	}
	if cache.Pending("g1") != 0 {
		t.Errorf("rolled-back overlay still pending: %d", cache.Pending("g1"))
	}
}

func TestMutatorRollbackWithConcurrentOverlay(t *testing.T) {
	cache := seededCache(t)
	mutator := NewMutator(cache)

	// An earlier mutation is still awaiting its broadcast.
	cache.speculate("g1", "older", game.KindReadiness, json.RawMessage(`{"ready":true}`))
	before, _ := cache.Get("g1")

	persist := func(ctx context.Context, mutationID string) (game.StateDelta, error) {
		return game.StateDelta{}, errors.New("boom")
	}
	mutator.Do(context.Background(), "g1", game.KindPosition, json.RawMessage(`{"x":1,"y":1}`), persist)

	after, _ := cache.Get("g1")
	if !reflect.DeepEqual(before, after) {
		t.Errorf("rollback disturbed the earlier overlay:\nbefore: %+v\nafter:  %+v", before, after)
	}
	if cache.Pending("g1") != 1 {
		t.Errorf("expected the earlier overlay to survive, %d pending", cache.Pending("g1"))
	}
}

func TestMutatorRequiresPersistFunc(t *testing.T) {
	mutator := NewMutator(NewCache())

	if _, err := mutator.Do(context.Background(), "g1", game.KindReadiness, nil, nil); err == nil {
		t.Error("expected an error without a persist function")
	}
}
