package websocket

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ESCveloc/RBR-sub000/auth"
)

// SessionCookie is the cookie carrying the session token on the upgrade
// request.
const SessionCookie = "session"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// Handler performs the authenticated websocket handshake. Session
// resolution happens before the upgrade: an unresolvable token is rejected
// with 401 and no Connection is ever created for it.
type Handler struct {
	registry *Registry
	monitor  *Monitor
	router   *Router
	resolver *auth.Resolver
}

// NewHandler wires the handshake to the registry, monitor, and resolver.
func NewHandler(registry *Registry, monitor *Monitor, resolver *auth.Resolver) *Handler {
	return &Handler{
		registry: registry,
		monitor:  monitor,
		router:   NewRouter(registry),
		resolver: resolver,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Resolve(r.Context(), sessionToken(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := newConn(sock, identity)
	h.monitor.Watch(c)

	log.Printf("connection %s opened for user %d (%s)", c.id, identity.UserID, identity.Username)

	go c.writePump()
	go c.readPump(h.router, h.registry, h.monitor)
}

// sessionToken extracts the raw session credential from the handshake.
func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}
