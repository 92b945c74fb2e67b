package client

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	transport "github.com/ESCveloc/RBR-sub000/transport/websocket"
)

var (
	// ErrManagerClosed is returned after a deliberate Close; the manager is
	// terminal and will never reconnect.
	ErrManagerClosed = errors.New("transport manager closed")

	// ErrReconnectExhausted is surfaced when the retry cap is exceeded.
	// Recovery requires explicit user action (a fresh Connect call).
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

// State is the transport manager's connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Handler receives the payload of a dispatched message.
type Handler func(payload []byte)

// Config configures a Manager.
type Config struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	// SessionToken is sent as the session cookie on the handshake.
	SessionToken string

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// BackoffBase and BackoffCap bound the reconnect delay
	// min(base*2^attempt, cap). Defaults: 1s base, 30s cap.
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// MaxRetries caps consecutive reconnect attempts. Default 8.
	MaxRetries int

	// OnError receives user-visible terminal connectivity errors
	// (ErrReconnectExhausted). Optional.
	OnError func(error)
}

type subscription struct {
	id int
	fn Handler
}

// Manager owns one websocket channel to the sync server, reconnecting with
// exponential backoff on unexpected closes and dispatching inbound messages
// to subscribers by message type.
type Manager struct {
	cfg    Config
	dialer *websocket.Dialer

	mu      sync.Mutex
	state   State
	closed  bool
	lastErr error
	sock    *websocket.Conn
	queue   [][]byte
	retries int
	timer   *time.Timer
	backoff *backoff.Backoff

	nextSubID int
	subs      map[string][]subscription

	wmu sync.Mutex
}

// NewManager creates a manager in the DISCONNECTED state.
func NewManager(cfg Config) *Manager {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 8
	}

	return &Manager{
		cfg:    cfg,
		dialer: cfg.Dialer,
		subs:   make(map[string][]subscription),
		backoff: &backoff.Backoff{
			Min:    cfg.BackoffBase,
			Max:    cfg.BackoffCap,
			Factor: 2,
			Jitter: false,
		},
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastErr returns the most recent terminal connectivity error, if any.
func (m *Manager) LastErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Connect opens the channel. A call while already OPEN or CONNECTING is a
// no-op; exactly one live channel exists per manager. After an exhausted
// reconnect sequence, Connect starts over with a fresh attempt budget.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.state == StateOpen || m.state == StateConnecting {
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.lastErr = nil
	m.retries = 0
	m.backoff.Reset()
	m.mu.Unlock()

	go m.dial()
	return nil
}

// Close deliberately shuts the channel down: the reconnect timer is
// cancelled and the manager transitions straight to terminal DISCONNECTED,
// so a reconnect race can never reopen a channel for a user who just
// signed out.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.state = StateDisconnected
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	sock := m.sock
	m.sock = nil
	m.queue = nil
	m.mu.Unlock()

	if sock != nil {
		m.wmu.Lock()
		sock.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "logout"),
			time.Now().Add(time.Second))
		m.wmu.Unlock()
		sock.Close()
	}
}

// Subscribe registers a handler for a message type and returns its cancel
// function. Handlers run on the read loop in registration order; a handler
// panicking does not prevent delivery to the rest.
func (m *Manager) Subscribe(msgType string, fn Handler) func() {
	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.subs[msgType] = append(m.subs[msgType], subscription{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		list := m.subs[msgType]
		for i, sub := range list {
			if sub.id == id {
				m.subs[msgType] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(m.subs[msgType]) == 0 {
			delete(m.subs, msgType)
		}
	}
}

// Send queues or transmits an envelope. While the channel is not open the
// frame is queued and flushed on the next transition to OPEN.
func (m *Manager) Send(msgType string, payload interface{}) error {
	frame, err := transport.Encode(msgType, payload)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.state == StateOpen && m.sock != nil {
		sock := m.sock
		m.mu.Unlock()
		return m.writeFrame(sock, frame)
	}
	m.queue = append(m.queue, frame)
	m.mu.Unlock()
	return nil
}

// JoinRoom requests membership in a game room. Issued before the handshake
// completes, it is queued and flushed once the channel opens.
func (m *Manager) JoinRoom(roomID string) error {
	return m.Send(transport.TypeJoinRoom, transport.JoinPayload{RoomID: roomID})
}

// SendDelta publishes a state delta to the current room. Sender identity is
// stamped by the server; any values set here are overwritten.
func (m *Manager) SendDelta(payload interface{}) error {
	return m.Send(transport.TypeStateDelta, payload)
}

// dial performs one connection attempt.
func (m *Manager) dial() {
	header := http.Header{}
	if m.cfg.SessionToken != "" {
		cookie := &http.Cookie{Name: transport.SessionCookie, Value: m.cfg.SessionToken}
		header.Set("Cookie", cookie.String())
	}

	sock, resp, err := m.dialer.Dial(m.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if err == nil {
			sock.Close()
		}
		return
	}
	if err != nil {
		m.scheduleReconnectLocked(err)
		m.mu.Unlock()
		return
	}

	m.sock = sock
	m.state = StateOpen
	m.retries = 0
	m.backoff.Reset()
	queued := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, frame := range queued {
		if err := m.writeFrame(sock, frame); err != nil {
			log.Printf("flush queued frame: %v", err)
			break
		}
	}

	go m.readLoop(sock)
}

// writeFrame serializes socket writes across Send, queue flush, and close.
func (m *Manager) writeFrame(sock *websocket.Conn, frame []byte) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	sock.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return sock.WriteMessage(websocket.TextMessage, frame)
}

// readLoop dispatches inbound frames until the socket dies.
func (m *Manager) readLoop(sock *websocket.Conn) {
	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			m.handleClosed(err)
			return
		}
		m.dispatch(data)
	}
}

// handleClosed reacts to an unexpected socket close. Deliberate shutdown
// already moved the manager to terminal DISCONNECTED; anything else enters
// the reconnect path.
func (m *Manager) handleClosed(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sock = nil
	if m.closed {
		m.state = StateDisconnected
		return
	}
	m.scheduleReconnectLocked(cause)
}

// scheduleReconnectLocked arms the single reconnect timer, or gives up when
// the retry cap is exceeded. Caller holds m.mu.
func (m *Manager) scheduleReconnectLocked(cause error) {
	if m.retries >= m.cfg.MaxRetries {
		m.state = StateDisconnected
		m.lastErr = fmt.Errorf("%w: last attempt: %v", ErrReconnectExhausted, cause)
		log.Printf("transport: %v", m.lastErr)
		if m.cfg.OnError != nil {
			go m.cfg.OnError(m.lastErr)
		}
		return
	}

	m.retries++
	m.state = StateReconnecting
	delay := m.backoff.Duration()
	log.Printf("transport: connection lost (%v), reconnect %d/%d in %s",
		cause, m.retries, m.cfg.MaxRetries, delay)

	m.timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.closed || m.state != StateReconnecting {
			m.mu.Unlock()
			return
		}
		m.state = StateConnecting
		m.mu.Unlock()
		m.dial()
	})
}

// dispatch fans one inbound envelope out to every subscriber of its type.
func (m *Manager) dispatch(data []byte) {
	env, err := decodeEnvelope(data)
	if err != nil {
		log.Printf("transport: dropping undecodable frame: %v", err)
		return
	}

	m.mu.Lock()
	handlers := make([]Handler, 0, len(m.subs[env.Type]))
	for _, sub := range m.subs[env.Type] {
		handlers = append(handlers, sub.fn)
	}
	m.mu.Unlock()

	for _, fn := range handlers {
		invoke(fn, env.Payload)
	}
}

// invoke isolates subscriber panics so one bad handler cannot starve the
// rest of the registry.
func invoke(fn Handler, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("transport: subscriber panic recovered: %v", r)
		}
	}()
	fn(payload)
}
