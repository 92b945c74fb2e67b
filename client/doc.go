// Package client implements the device-side half of the realtime sync
// protocol: a reconnecting transport manager with a per-type subscription
// registry, a versioned local cache of game state, and an optimistic
// mutation coordinator with snapshot/apply/rollback semantics.
//
// Transport Manager:
//
// The manager is an explicit finite-state machine
// (DISCONNECTED -> CONNECTING -> OPEN -> RECONNECTING -> ...) owning a
// single reconnect timer, so cancelling reconnection on logout is one
// operation rather than a coordination problem between timers. Actions sent
// before the channel is open (most commonly a room join) are queued and
// flushed when OPEN is entered. Unexpected closes schedule reconnection
// with exponential backoff up to a retry cap; exceeding the cap surfaces
// ErrReconnectExhausted instead of retrying forever.
//
// Optimistic Mutations:
//
// State-changing actions (set ready, claim a starting position) apply a
// speculative overlay to the local cache before the persistence round-trip
// completes, so the UI feels instantaneous on flaky mobile links. If
// persistence fails, the exact pre-mutation snapshot is restored. The
// overlay survives a successful request until the authoritative STATE_DELTA
// broadcast for the same mutation id arrives; authoritative state always
// wins over speculation.
package client
