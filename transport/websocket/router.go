package websocket

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/ESCveloc/RBR-sub000/game"
)

// Router decodes inbound frames into typed commands and dispatches them to
// registry operations. Failures are contained to the offending message: the
// sender gets an ERROR frame and the connection stays open.
type Router struct {
	registry *Registry
}

// NewRouter creates a router over the given registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// Dispatch handles one inbound frame from a connection.
func (rt *Router) Dispatch(c *Conn, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		rt.sendError(c, "malformed message")
		return
	}

	switch env.Type {
	case TypeJoinRoom:
		rt.handleJoin(c, env.Payload)

	case TypeStateDelta:
		rt.handleStateDelta(c, env.Payload)

	default:
		rt.sendError(c, fmt.Sprintf("unknown message type %q", env.Type))
	}
}

// handleJoin moves the connection into the requested room and acknowledges.
func (rt *Router) handleJoin(c *Conn, payload json.RawMessage) {
	var join JoinPayload
	if err := json.Unmarshal(payload, &join); err != nil || join.RoomID == "" {
		rt.sendError(c, "JOIN_ROOM requires a roomId")
		return
	}

	rt.registry.Join(c, join.RoomID)

	ack, err := Encode(TypeRoomJoined, JoinPayload{RoomID: join.RoomID})
	if err != nil {
		log.Printf("encode ROOM_JOINED: %v", err)
		return
	}
	c.trySend(ack)
}

// handleStateDelta relays a game-scoped delta to the sender's current room.
// The sender's identity is stamped server-side; whatever the client put in
// the sender fields is discarded.
func (rt *Router) handleStateDelta(c *Conn, payload json.RawMessage) {
	var delta game.StateDelta
	if err := json.Unmarshal(payload, &delta); err != nil {
		rt.sendError(c, "malformed STATE_DELTA payload")
		return
	}

	roomID := rt.registry.RoomOf(c)
	if roomID == "" {
		rt.sendError(c, "join a room before sending state")
		return
	}

	identity := c.Identity()
	delta.SenderID = identity.UserID
	delta.SenderName = identity.Username
	delta.GameID = roomID

	frame, err := Encode(TypeStateDelta, delta)
	if err != nil {
		log.Printf("encode STATE_DELTA: %v", err)
		rt.sendError(c, "malformed STATE_DELTA payload")
		return
	}

	rt.registry.Broadcast(roomID, frame)
}

// sendError answers the originating connection only; errors are never
// broadcast.
func (rt *Router) sendError(c *Conn, message string) {
	c.trySend(errorFrame(message))
}
