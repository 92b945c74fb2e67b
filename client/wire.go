package client

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/ESCveloc/RBR-sub000/game"
	transport "github.com/ESCveloc/RBR-sub000/transport/websocket"
)

// decodeEnvelope parses an inbound wire frame.
func decodeEnvelope(data []byte) (transport.Envelope, error) {
	var env transport.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return transport.Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return transport.Envelope{}, fmt.Errorf("envelope missing type")
	}
	return env, nil
}

// BindCache subscribes the cache to authoritative STATE_DELTA broadcasts so
// incoming deltas reconcile (and supersede) speculative overlays. The
// returned cancel function unsubscribes; components tearing down must call
// it or the handler outlives them.
func BindCache(m *Manager, cache *Cache) func() {
	return m.Subscribe(transport.TypeStateDelta, func(payload []byte) {
		var delta game.StateDelta
		if err := json.Unmarshal(payload, &delta); err != nil {
			log.Printf("transport: dropping undecodable STATE_DELTA: %v", err)
			return
		}
		cache.Apply(delta)
	})
}
