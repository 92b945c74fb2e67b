package websocket

import (
	"encoding/json"
	"fmt"
)

// Envelope message types recognized by the router.
const (
	TypeJoinRoom   = "JOIN_ROOM"
	TypeRoomJoined = "ROOM_JOINED"
	TypeStateDelta = "STATE_DELTA"
	TypeError      = "ERROR"
)

// Envelope is the bidirectional wire frame. Payload stays raw; only the
// router's recognized types are ever decoded further.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload is the payload of JOIN_ROOM and ROOM_JOINED.
type JoinPayload struct {
	RoomID string `json:"roomId"`
}

// ErrorPayload is the payload of ERROR.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Encode marshals a typed payload into a wire frame.
func Encode(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}

	frame, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return frame, nil
}

// errorFrame builds an ERROR envelope. Marshaling a plain string payload
// cannot fail, so the frame is returned directly.
func errorFrame(message string) []byte {
	frame, _ := Encode(TypeError, ErrorPayload{Message: message})
	return frame
}
