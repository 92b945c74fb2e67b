package websocket

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ESCveloc/RBR-sub000/auth"
)

// newBareConn builds a connection without a socket, with the given outbound
// queue capacity. A zero capacity makes every send fail.
func newBareConn(userID int, queue int) *Conn {
	return &Conn{
		id:        uuid.NewString(),
		identity:  auth.Identity{UserID: userID, Username: "tester"},
		send:      make(chan []byte, queue),
		pings:     make(chan struct{}, 1),
		done:      make(chan struct{}),
		closeOnce: make(chan struct{}, 1),
	}
}

func TestRegistryJoinCreatesRoom(t *testing.T) {
	registry := NewRegistry()
	c := newBareConn(1, 8)

	registry.Join(c, "42")

	if got := registry.RoomSize("42"); got != 1 {
		t.Errorf("expected room size 1, got %d", got)
	}
	if got := registry.RoomOf(c); got != "42" {
		t.Errorf("expected room 42, got %q", got)
	}
}

func TestRegistryJoinIdempotent(t *testing.T) {
	registry := NewRegistry()
	c := newBareConn(1, 8)

	registry.Join(c, "42")
	registry.Join(c, "42")

	if got := registry.RoomSize("42"); got != 1 {
		t.Errorf("joining twice changed membership size: %d", got)
	}
}

func TestRegistryJoinSwitchesRooms(t *testing.T) {
	registry := NewRegistry()
	c := newBareConn(1, 8)

	registry.Join(c, "A")
	registry.Join(c, "B")

	if got := registry.RoomSize("A"); got != 0 {
		t.Errorf("connection still counted in room A: %d", got)
	}
	if got := registry.RoomSize("B"); got != 1 {
		t.Errorf("expected membership in room B, got %d", got)
	}
	if got := registry.RoomOf(c); got != "B" {
		t.Errorf("expected room B, got %q", got)
	}
}

func TestRegistryLeave(t *testing.T) {
	registry := NewRegistry()
	c := newBareConn(1, 8)

	registry.Join(c, "42")
	registry.Leave(c)

	if got := registry.RoomSize("42"); got != 0 {
		t.Errorf("expected empty room after leave, got %d", got)
	}
	if rooms, _ := registry.Counts(); rooms != 0 {
		t.Errorf("empty room should be deleted, still have %d rooms", rooms)
	}

	// Leaving again, or leaving a connection that never joined, is safe.
	registry.Leave(c)
	registry.Leave(newBareConn(2, 8))
}

func TestRegistryBroadcastDelivers(t *testing.T) {
	registry := NewRegistry()
	a := newBareConn(1, 8)
	b := newBareConn(2, 8)
	registry.Join(a, "42")
	registry.Join(b, "42")

	frame := []byte(`{"type":"STATE_DELTA"}`)
	if delivered := registry.Broadcast("42", frame); delivered != 2 {
		t.Fatalf("expected 2 deliveries, got %d", delivered)
	}

	for _, c := range []*Conn{a, b} {
		select {
		case got := <-c.send:
			if string(got) != string(frame) {
				t.Errorf("member received %s, want %s", got, frame)
			}
		default:
			t.Errorf("member %d received nothing", c.identity.UserID)
		}
	}
}

func TestRegistryBroadcastRemovesFailingMember(t *testing.T) {
	registry := NewRegistry()
	a := newBareConn(1, 8)
	b := newBareConn(2, 0) // zero-capacity queue: every send fails
	c := newBareConn(3, 8)
	registry.Join(a, "42")
	registry.Join(b, "42")
	registry.Join(c, "42")

	delivered := registry.Broadcast("42", []byte(`x`))

	if delivered != 2 {
		t.Errorf("expected delivery to the 2 healthy members, got %d", delivered)
	}
	if got := registry.RoomSize("42"); got != 2 {
		t.Errorf("failing member should be removed, room size %d", got)
	}
	if registry.RoomOf(b) != "" {
		t.Error("failing member still has room membership")
	}
	select {
	case <-b.done:
	default:
		t.Error("failing member was not closed")
	}
}

func TestRegistryBroadcastEmptyRoomIsNoop(t *testing.T) {
	registry := NewRegistry()

	if delivered := registry.Broadcast("nobody-home", []byte(`x`)); delivered != 0 {
		t.Errorf("expected 0 deliveries, got %d", delivered)
	}
}

func TestRegistryRoomDeletedWhenLastMemberFails(t *testing.T) {
	registry := NewRegistry()
	b := newBareConn(1, 0)
	registry.Join(b, "42")

	registry.Broadcast("42", []byte(`x`))

	if rooms, conns := registry.Counts(); rooms != 0 || conns != 0 {
		t.Errorf("expected empty registry, got %d rooms / %d conns", rooms, conns)
	}
}

func TestRegistryCounts(t *testing.T) {
	registry := NewRegistry()
	registry.Join(newBareConn(1, 8), "A")
	registry.Join(newBareConn(2, 8), "A")
	registry.Join(newBareConn(3, 8), "B")

	rooms, conns := registry.Counts()
	if rooms != 2 || conns != 3 {
		t.Errorf("expected 2 rooms / 3 conns, got %d / %d", rooms, conns)
	}
}
