// Package game holds the wire-level state types shared by the realtime
// server and the client transport: the StateDelta payload relayed through
// game rooms and the in-memory Store that the REST collaborator persists
// mutations into.
//
// The sync core treats game state as opaque, versioned blobs. A StateDelta
// carries a Kind discriminator (readiness, position, zone, elimination) and
// raw JSON data the core never interprets; the Store only merges blobs by
// Kind and bumps a per-game version counter.
package game
