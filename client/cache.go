package client

import (
	"encoding/json"
	"sync"

	"github.com/ESCveloc/RBR-sub000/game"
)

// Cache holds each game's state as last known to this client: the
// authoritative versioned snapshot plus zero or more speculative overlays
// keyed by mutation id. The UI reads effective state through Get.
type Cache struct {
	mu    sync.RWMutex
	games map[string]*cacheEntry
}

type cacheEntry struct {
	version  int64
	fields   map[string]json.RawMessage
	overlays []overlay
}

// overlay is one pending speculative mutation.
type overlay struct {
	mutationID string
	kind       string
	data       json.RawMessage
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{games: make(map[string]*cacheEntry)}
}

// Get returns the effective view of a game: the authoritative snapshot with
// pending overlays applied in issue order. The returned snapshot is a copy.
func (c *Cache) Get(gameID string) (*game.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.games[gameID]
	if !ok {
		return nil, false
	}

	snap := &game.Snapshot{
		GameID:  gameID,
		Version: entry.version,
		Fields:  make(map[string]json.RawMessage, len(entry.fields)),
	}
	for k, v := range entry.fields {
		snap.Fields[k] = append(json.RawMessage(nil), v...)
	}
	for _, ov := range entry.overlays {
		snap.Fields[ov.kind] = append(json.RawMessage(nil), ov.data...)
	}
	return snap, true
}

// Pending returns the number of unconfirmed speculative overlays for a game.
func (c *Cache) Pending(gameID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.games[gameID]; ok {
		return len(entry.overlays)
	}
	return 0
}

// Apply merges an authoritative delta into the base snapshot. If the delta
// confirms a pending mutation, that overlay is removed: the authoritative
// value wins over the speculative one, even when they disagree.
func (c *Cache) Apply(delta game.StateDelta) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entryLocked(delta.GameID)
	if delta.Kind != "" {
		entry.fields[delta.Kind] = append(json.RawMessage(nil), delta.Data...)
	}
	if delta.Version > entry.version {
		entry.version = delta.Version
	}

	if delta.MutationID == "" {
		return
	}
	for i, ov := range entry.overlays {
		if ov.mutationID == delta.MutationID {
			entry.overlays = append(entry.overlays[:i:i], entry.overlays[i+1:]...)
			break
		}
	}
}

// speculate records a pending overlay for an in-flight mutation.
func (c *Cache) speculate(gameID, mutationID, kind string, data json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entryLocked(gameID)
	entry.overlays = append(entry.overlays, overlay{
		mutationID: mutationID,
		kind:       kind,
		data:       append(json.RawMessage(nil), data...),
	})
}

// snapshot deep-copies a game's entire entry (base and overlays) so a
// failed mutation can restore it exactly. Returns nil when the game has no
// entry yet.
func (c *Cache) snapshot(gameID string) *cacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.games[gameID]
	if !ok {
		return nil
	}

	cp := &cacheEntry{
		version:  entry.version,
		fields:   make(map[string]json.RawMessage, len(entry.fields)),
		overlays: make([]overlay, len(entry.overlays)),
	}
	for k, v := range entry.fields {
		cp.fields[k] = append(json.RawMessage(nil), v...)
	}
	for i, ov := range entry.overlays {
		cp.overlays[i] = overlay{
			mutationID: ov.mutationID,
			kind:       ov.kind,
			data:       append(json.RawMessage(nil), ov.data...),
		}
	}
	return cp
}

// restore puts a game's entry back to a snapshot taken before a mutation.
// A nil snapshot means the game had no entry, so the entry is dropped.
func (c *Cache) restore(gameID string, snap *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if snap == nil {
		delete(c.games, gameID)
		return
	}
	c.games[gameID] = snap
}

// entryLocked returns the game's entry, creating it lazily. Caller holds
// c.mu for writing.
func (c *Cache) entryLocked(gameID string) *cacheEntry {
	entry, ok := c.games[gameID]
	if !ok {
		entry = &cacheEntry{fields: make(map[string]json.RawMessage)}
		c.games[gameID] = entry
	}
	return entry
}
