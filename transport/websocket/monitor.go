package websocket

import (
	"log"
	"sync"
	"time"
)

// Per-connection probe states.
const (
	stateAlive = iota
	stateProbeSent
)

// Monitor is the process-wide liveness prober. On every interval it sends a
// transport-level ping to each watched connection; a connection that does
// not answer (pong or any other inbound traffic) within the grace window is
// terminated and removed from its room.
//
// Half-open sockets are the dominant failure mode for mobile clients, and a
// blocked ReadMessage never returns on its own. Terminating here closes the
// socket, which unblocks the read pump and runs the normal cleanup path.
type Monitor struct {
	registry *Registry
	interval time.Duration
	grace    time.Duration

	mu    sync.Mutex
	conns map[*Conn]int

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a monitor probing every interval with the given
// response grace. Zero values default to 30s probe / 10s grace.
func NewMonitor(registry *Registry, interval, grace time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}
	return &Monitor{
		registry: registry,
		interval: interval,
		grace:    grace,
		conns:    make(map[*Conn]int),
		stop:     make(chan struct{}),
	}
}

// Watch starts probing a connection.
func (m *Monitor) Watch(c *Conn) {
	m.mu.Lock()
	m.conns[c] = stateAlive
	m.mu.Unlock()
}

// Forget stops probing a connection. Called on every teardown path before
// the socket closes, so a deliberate disconnect can never race a probe into
// referencing a stale connection.
func (m *Monitor) Forget(c *Conn) {
	m.mu.Lock()
	delete(m.conns, c)
	m.mu.Unlock()
}

// MarkAlive records proof of life, resetting an in-flight probe.
func (m *Monitor) MarkAlive(c *Conn) {
	m.mu.Lock()
	if _, ok := m.conns[c]; ok {
		m.conns[c] = stateAlive
	}
	m.mu.Unlock()
}

// Watched returns the number of connections under observation.
func (m *Monitor) Watched() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Run drives the probe loop until Stop is called.
func (m *Monitor) Run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probe()
		case <-m.stop:
			return
		}
	}
}

// Stop halts the probe loop. Pending grace sweeps still run but terminate
// nothing new once connections are forgotten.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// probe sends a ping to every watched connection and schedules the grace
// sweep that terminates the ones that stay silent.
func (m *Monitor) probe() {
	m.mu.Lock()
	targets := make([]*Conn, 0, len(m.conns))
	for c := range m.conns {
		m.conns[c] = stateProbeSent
		targets = append(targets, c)
	}
	m.mu.Unlock()

	for _, c := range targets {
		c.requestPing()
	}

	if len(targets) > 0 {
		time.AfterFunc(m.grace, m.sweep)
	}
}

// sweep terminates every connection whose probe went unanswered.
func (m *Monitor) sweep() {
	m.mu.Lock()
	var dead []*Conn
	for c, state := range m.conns {
		if state == stateProbeSent {
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		delete(m.conns, c)
	}
	m.mu.Unlock()

	for _, c := range dead {
		log.Printf("connection %s (user %d) unresponsive, terminating",
			c.id, c.identity.UserID)
		m.registry.Leave(c)
		c.close()
	}
}
