// Package httpapi exposes the game engine to client sessions: JSON intents
// for mutations, lock-free queries, and a websocket event feed per room.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/park285/wofa4-engine/internal/game"
	"github.com/park285/wofa4-engine/internal/identity"
	"github.com/park285/wofa4-engine/internal/monitor"
	"github.com/park285/wofa4-engine/internal/msgcat"
	"github.com/park285/wofa4-engine/internal/stats"
)

type Server struct {
	mgr     *game.Manager
	stats   stats.Recorder
	ids     identity.Resolver
	cat     *msgcat.Catalog
	metrics *monitor.Metrics
}

func NewServer(mgr *game.Manager, recorder stats.Recorder, ids identity.Resolver, cat *msgcat.Catalog, metrics *monitor.Metrics) *Server {
	return &Server{mgr: mgr, stats: recorder, ids: ids, cat: cat, metrics: metrics}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/rooms", s.createRoom)
		r.Get("/rooms", s.listRooms)
		r.Route("/rooms/{roomID}", func(r chi.Router) {
			r.Get("/", s.getRoom)
			r.Post("/join", s.joinRoom)
			r.Post("/secret", s.submitSecret)
			r.Post("/guess", s.submitGuess)
			r.Post("/leave", s.leaveGame)
			r.Post("/restart", s.restartGame)
			r.Get("/rounds", s.listRounds)
			r.Get("/events", s.events)
		})
		r.Get("/players/{playerID}/stats", s.playerStats)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

type createRoomRequest struct {
	HostID string `json:"host_id"`
	Name   string `json:"name"`
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.cat, game.ErrInvalidInput)
		return
	}
	hostName := identity.DisplayName(r.Context(), s.ids, req.HostID)
	room, err := s.mgr.CreateRoom(r.Context(), req.HostID, hostName, req.Name)
	if err != nil {
		writeError(w, s.cat, err)
		return
	}
	writeJSON(w, http.StatusCreated, room.Snapshot())
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.mgr.ListWaiting(r.Context())
	if err != nil {
		writeError(w, s.cat, err)
		return
	}
	out := make([]*game.Snapshot, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Snapshot())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.mgr.GetRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, s.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, room.Snapshot())
}

type joinRequest struct {
	GuestID string `json:"guest_id"`
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.cat, game.ErrInvalidInput)
		return
	}
	guestName := identity.DisplayName(r.Context(), s.ids, req.GuestID)
	room, err := s.mgr.JoinRoom(r.Context(), chi.URLParam(r, "roomID"), req.GuestID, guestName)
	if err != nil {
		writeError(w, s.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, room.Snapshot())
}

type secretRequest struct {
	PlayerID string `json:"player_id"`
	Code     string `json:"code"`
}

func (s *Server) submitSecret(w http.ResponseWriter, r *http.Request) {
	var req secretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.cat, game.ErrInvalidInput)
		return
	}
	room, err := s.mgr.SubmitSecret(r.Context(), chi.URLParam(r, "roomID"), req.PlayerID, req.Code)
	if err != nil {
		writeError(w, s.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, room.Snapshot())
}

type guessRequest struct {
	PlayerID string `json:"player_id"`
	Guess    string `json:"guess"`
}

type guessResponse struct {
	Round *game.Round    `json:"round"`
	Room  *game.Snapshot `json:"room"`
}

func (s *Server) submitGuess(w http.ResponseWriter, r *http.Request) {
	var req guessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.cat, game.ErrInvalidInput)
		return
	}
	round, room, err := s.mgr.SubmitGuess(r.Context(), chi.URLParam(r, "roomID"), req.PlayerID, req.Guess)
	if err != nil {
		writeError(w, s.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, guessResponse{Round: round, Room: room.Snapshot()})
}

type leaveRequest struct {
	PlayerID string `json:"player_id"`
}

func (s *Server) leaveGame(w http.ResponseWriter, r *http.Request) {
	var req leaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.cat, game.ErrInvalidInput)
		return
	}
	room, err := s.mgr.LeaveGame(r.Context(), chi.URLParam(r, "roomID"), req.PlayerID)
	if err != nil {
		writeError(w, s.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, room.Snapshot())
}

func (s *Server) restartGame(w http.ResponseWriter, r *http.Request) {
	room, err := s.mgr.RestartGame(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, s.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, room.Snapshot())
}

func (s *Server) listRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := s.mgr.Rounds(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, s.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) playerStats(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	ps, err := s.stats.PlayerStats(r.Context(), playerID)
	if err != nil {
		writeError(w, s.cat, err)
		return
	}
	if ps == nil {
		ps = &stats.PlayerStats{PlayerID: playerID}
	}
	writeJSON(w, http.StatusOK, ps)
}
