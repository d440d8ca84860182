// Package server exposes the odds calculator over HTTP and websocket.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/triplea-game/triplea-sub029/internal/battle"
	"github.com/triplea-game/triplea-sub029/internal/casualty"
	"github.com/triplea-game/triplea-sub029/internal/game"
	"github.com/triplea-game/triplea-sub029/internal/odds"
	"github.com/triplea-game/triplea-sub029/internal/sim"
)

// State is the board the service answers questions about.
type State interface {
	game.Reader
	json.Marshaler
}

type Server struct {
	state         State
	calc          *odds.Calculator
	log           *zap.Logger
	progressEvery int
	upgrader      websocket.Upgrader
}

func New(state State, calc *odds.Calculator, log *zap.Logger, progressEvery int) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if progressEvery < 1 {
		progressEvery = 100
	}
	return &Server{
		state:         state,
		calc:          calc,
		log:           log,
		progressEvery: progressEvery,
		upgrader:      websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/odds", s.handleOdds).Methods(http.MethodPost)
	api.HandleFunc("/odds", s.handleCancel).Methods(http.MethodDelete)
	api.HandleFunc("/odds/batch", s.handleBatch).Methods(http.MethodPost)
	r.HandleFunc("/ws/odds", s.handleWS).Methods(http.MethodGet)
	return r
}

type oddsResponse struct {
	ID uuid.UUID `json:"id"`
	odds.Summary
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	b, err := s.state.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (s *Server) handleOdds(w http.ResponseWriter, r *http.Request) {
	var req odds.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := uuid.New()
	res, err := s.calc.Calculate(r.Context(), req)
	if err != nil {
		s.log.Info("calculation failed", zap.Stringer("id", id), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	s.log.Info("calculation done", zap.Stringer("id", id), zap.String("location", req.Location),
		zap.Int("runs", res.RunCount()), zap.Duration("elapsed", res.Elapsed()))
	writeJSON(w, http.StatusOK, oddsResponse{ID: id, Summary: res.Summary()})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []odds.Request
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := s.calc.CalculateMany(r.Context(), reqs)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	resp := make([]oddsResponse, len(out))
	for i, res := range out {
		resp[i] = oddsResponse{ID: uuid.New(), Summary: res.Summary()}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.calc.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps caller mistakes to 400 and everything else to 500.
func statusFor(err error) int {
	for _, target := range []error{
		sim.ErrUnknownLocation,
		sim.ErrUnitOnBothSides,
		casualty.ErrInvalidOrderOfLosses,
		battle.ErrInvalidRetreat,
	} {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
