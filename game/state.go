package game

import "encoding/json"

// Delta kinds carried by STATE_DELTA messages. The core does not interpret
// them beyond using Kind as the merge key; they exist so the REST layer and
// clients agree on a vocabulary.
const (
	KindReadiness   = "readiness"
	KindPosition    = "position"
	KindLocation    = "location"
	KindZonePhase   = "zone_phase"
	KindElimination = "elimination"
)

// StateDelta is the payload of a STATE_DELTA envelope in both directions.
// SenderID and SenderName are stamped by the server on relay; any values a
// client puts there are overwritten before the delta reaches the room.
type StateDelta struct {
	GameID     string          `json:"gameId"`
	MutationID string          `json:"mutationId,omitempty"`
	SenderID   int             `json:"senderId,omitempty"`
	SenderName string          `json:"senderName,omitempty"`
	Kind       string          `json:"kind"`
	Data       json.RawMessage `json:"data"`
	Version    int64           `json:"version,omitempty"`
}

// Snapshot is the authoritative view of one game's live state: a version
// counter and the latest blob per delta kind.
type Snapshot struct {
	GameID  string                     `json:"gameId"`
	Version int64                      `json:"version"`
	Fields  map[string]json.RawMessage `json:"fields"`
}

// Clone returns a deep copy so callers can hand snapshots out of a store
// without sharing the underlying buffers.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		GameID:  s.GameID,
		Version: s.Version,
		Fields:  make(map[string]json.RawMessage, len(s.Fields)),
	}
	for k, v := range s.Fields {
		buf := make(json.RawMessage, len(v))
		copy(buf, v)
		out.Fields[k] = buf
	}
	return out
}
