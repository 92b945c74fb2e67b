// Package websocket implements the realtime synchronization core for game
// events: session-authenticated connections, a room registry keyed by game
// id, a process-wide liveness monitor, and a message router that relays
// state deltas to everyone watching the same game.
//
// Architecture:
//
// Each connection gets a dedicated read goroutine and a write goroutine; all
// room membership lives in an explicit Registry passed by handle to the
// router and the monitor. The registry is the only place that mutates
// membership, which is how the "one room per connection" invariant stays
// enforceable.
//
// Message Protocol:
//
// Frames are JSON envelopes {type, payload}:
//   - JOIN_ROOM    client -> server, payload {roomId}
//   - ROOM_JOINED  server -> client, join acknowledgment
//   - STATE_DELTA  both directions; the server stamps the sender's identity
//     into the payload before fan-out so clients cannot spoof each other
//   - ERROR        server -> client only, payload {message}
//
// Liveness:
//
// Mobile clients drop off without a clean close (device sleep, network
// loss). The Monitor probes every connection on a fixed interval with a
// transport-level ping and terminates connections that miss the response
// grace, which also removes them from their room. Probes never reach the
// router; they are not application messages.
//
// Usage:
//
//	registry := websocket.NewRegistry()
//	monitor := websocket.NewMonitor(registry, 30*time.Second, 10*time.Second)
//	go monitor.Run()
//
//	handler := websocket.NewHandler(registry, monitor, resolver)
//	http.Handle("/ws", handler)
package websocket
