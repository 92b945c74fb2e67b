package websocket

import (
	"log"
	"sync"
)

// Registry maps game ids to the connections currently watching that game.
// Rooms are created lazily on first join and deleted when the last member
// leaves. Membership is the registry's alone to mutate: Join and Leave are
// the only entry points, which keeps the one-room-per-connection invariant
// in a single place.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]map[*Conn]struct{}
	member map[*Conn]string
}

// NewRegistry creates an empty registry. Constructed once at server start
// and handed to the router and monitor; there is no package-level instance.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[*Conn]struct{}),
		member: make(map[*Conn]string),
	}
}

// Join adds the connection to roomID, implicitly leaving any prior room.
// Joining the current room again is a no-op.
func (r *Registry) Join(c *Conn, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.member[c]
	if ok && prev == roomID {
		return
	}
	if ok {
		r.removeLocked(c, prev)
	}

	room := r.rooms[roomID]
	if room == nil {
		room = make(map[*Conn]struct{})
		r.rooms[roomID] = room
	}
	room[c] = struct{}{}
	r.member[c] = roomID

	log.Printf("connection %s (user %d) joined room %s (%d members)",
		c.id, c.identity.UserID, roomID, len(room))
}

// Leave removes the connection from its current room, if any. Always safe
// to call, including repeatedly and on connections that never joined.
func (r *Registry) Leave(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok := r.member[c]
	if !ok {
		return
	}
	r.removeLocked(c, roomID)
}

// removeLocked deletes the membership fact and garbage-collects empty
// rooms. Caller holds r.mu.
func (r *Registry) removeLocked(c *Conn, roomID string) {
	delete(r.member, c)

	room, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(r.rooms, roomID)
		log.Printf("room %s drained, deleted", roomID)
	}
}

// RoomOf returns the connection's current room id, or "" when it has none.
func (r *Registry) RoomOf(c *Conn) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.member[c]
}

// RoomSize returns the membership count of a room; zero for unknown rooms.
func (r *Registry) RoomSize(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[roomID])
}

// Counts returns the number of live rooms and total member connections.
func (r *Registry) Counts() (rooms, conns int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms), len(r.member)
}

// Broadcast fans a frame out to every current member of roomID and returns
// the number of successful deliveries. Members whose send fails are removed
// and force-closed after the fan-out completes, never mid-iteration.
// Broadcasting to an empty or unknown room is a no-op.
func (r *Registry) Broadcast(roomID string, frame []byte) int {
	// The fan-out runs under the room lock so concurrent broadcasts cannot
	// interleave differently across members: every send is non-blocking,
	// which bounds the hold time.
	r.mu.Lock()
	var failed []*Conn
	delivered := 0
	for c := range r.rooms[roomID] {
		if c.trySend(frame) {
			delivered++
		} else {
			failed = append(failed, c)
		}
	}
	r.mu.Unlock()

	for _, c := range failed {
		log.Printf("connection %s (user %d) dropped from room %s: send failed",
			c.id, c.identity.UserID, roomID)
		r.Leave(c)
		c.close()
	}

	return delivered
}
