package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/speccam/speccam/relay"
	"github.com/speccam/speccam/transport/websocket"
)

// Server is the operator-facing REST surface. Chat bots and dashboards
// drive the relay through it without holding a telemetry connection.
type Server struct {
	relay  *relay.Coordinator
	hub    *websocket.Hub
	router *mux.Router
}

// NewServer creates an API server bound to the given coordinator and hub.
func NewServer(coordinator *relay.Coordinator, hub *websocket.Hub) *Server {
	s := &Server{
		relay:  coordinator,
		hub:    hub,
		router: mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Camera control
	api.HandleFunc("/swap", s.handleSwap).Methods("POST")
	api.HandleFunc("/spectate", s.handleSpectate).Methods("POST")

	// Observability
	api.HandleFunc("/players", s.handleListPlayers).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")

	// Shared telemetry/control socket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
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

// Camera control handlers

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	s.relay.Swap()

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Swap armed; next qualifying damage event switches the camera",
	})
}

func (s *Server) handleSpectate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name,omitempty"`
		POI  int    `json:"poi,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.POI != 0 {
		label, err := s.relay.SpectatePOI(req.POI)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"target": label,
			"poi":    req.POI,
		})
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Either name or poi is required")
		return
	}

	resolved, ok := s.relay.SpectateName(req.Name)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("No player matching %q", req.Name))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"target": resolved})
}

// Observability handlers

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players := s.relay.Players()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(players),
		"players": players,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"armed":       s.relay.Armed(),
		"players":     len(s.relay.Players()),
		"connections": s.hub.Count(),
	})
}

// WebSocket handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
