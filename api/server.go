package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ESCveloc/RBR-sub000/game"
	transport "github.com/ESCveloc/RBR-sub000/transport/websocket"
)

// Server exposes the persistence collaborator's REST surface.
type Server struct {
	store    *game.Store
	registry *transport.Registry
	router   *mux.Router
}

// NewServer creates an API server over the store and room registry.
func NewServer(store *game.Store, registry *transport.Registry) *Server {
	s := &Server{
		store:    store,
		registry: registry,
		router:   mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/games/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/games/{id}/mutations", s.handlePostMutation).Methods("POST")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// handleStatus reports room and connection counts plus persisted games.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rooms, conns := s.registry.Counts()
	respondJSON(w, http.StatusOK, map[string]int{
		"rooms":       rooms,
		"connections": conns,
		"games":       s.store.Games(),
	})
}

// handleGetState returns the current authoritative snapshot for a game.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	snap, err := s.store.State(gameID)
	if err != nil {
		if errors.Is(err, game.ErrGameNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// handlePostMutation persists a delta and broadcasts the canonical result
// to every connection in the game's room. The broadcast is what supersedes
// clients' speculative overlays for this mutation id.
func (s *Server) handlePostMutation(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var delta game.StateDelta
	if err := json.NewDecoder(r.Body).Decode(&delta); err != nil {
		respondError(w, http.StatusBadRequest, "invalid mutation body")
		return
	}

	applied, err := s.store.Apply(gameID, delta)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	frame, err := transport.Encode(transport.TypeStateDelta, applied)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.registry.Broadcast(gameID, frame)

	respondJSON(w, http.StatusCreated, applied)
}
