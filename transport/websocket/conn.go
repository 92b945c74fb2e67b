package websocket

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ESCveloc/RBR-sub000/auth"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound queue depth per connection. A member that falls this far
	// behind is treated as a delivery failure and removed from its room.
	sendQueueSize = 256
)

// Conn is one live channel to one authenticated user. It owns the socket
// and its outbound queue; room membership is owned by the Registry.
type Conn struct {
	id       string
	identity auth.Identity
	sock     *websocket.Conn

	send  chan []byte
	pings chan struct{}
	done  chan struct{}

	closeOnce chan struct{}
}

// newConn wraps an upgraded socket.
func newConn(sock *websocket.Conn, identity auth.Identity) *Conn {
	return &Conn{
		id:        uuid.NewString(),
		identity:  identity,
		sock:      sock,
		send:      make(chan []byte, sendQueueSize),
		pings:     make(chan struct{}, 1),
		done:      make(chan struct{}),
		closeOnce: make(chan struct{}, 1),
	}
}

// ID returns the connection's unique id.
func (c *Conn) ID() string {
	return c.id
}

// Identity returns the resolved user behind this connection.
func (c *Conn) Identity() auth.Identity {
	return c.identity
}

// trySend queues a frame without blocking. It reports false when the
// connection is shut down or the queue is full; callers treat false as a
// delivery failure.
func (c *Conn) trySend(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// requestPing asks the write pump to emit a transport-level ping. A probe
// already in flight is not duplicated.
func (c *Conn) requestPing() {
	select {
	case c.pings <- struct{}{}:
	default:
	}
}

// close tears down the transport exactly once. Safe to call from any
// goroutine, including the monitor on probe timeout.
func (c *Conn) close() {
	select {
	case c.closeOnce <- struct{}{}:
		close(c.done)
		if c.sock != nil {
			c.sock.Close()
		}
	default:
	}
}

// readPump pumps inbound frames into the router until the socket dies, then
// runs the full cleanup path: monitor deregistration, room leave, close.
func (c *Conn) readPump(router *Router, registry *Registry, monitor *Monitor) {
	defer func() {
		monitor.Forget(c)
		registry.Leave(c)
		c.close()
	}()

	c.sock.SetReadLimit(maxMessageSize)
	c.sock.SetPongHandler(func(string) error {
		monitor.MarkAlive(c)
		return nil
	})

	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("connection %s read error: %v", c.id, err)
			}
			return
		}

		// Any inbound traffic proves the peer is alive.
		monitor.MarkAlive(c)

		router.Dispatch(c, data)
	}
}

// writePump serializes all socket writes: queued frames and monitor probes.
func (c *Conn) writePump() {
	defer c.close()

	for {
		select {
		case frame := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-c.pings:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			c.sock.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
