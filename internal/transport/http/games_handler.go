package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"trivia-service/internal/domain"
	"trivia-service/internal/game"
)

// GamesHandler creates, inspects and ends games over plain HTTP.
type GamesHandler struct {
	service *game.Service
	logger  *zap.Logger
}

func NewGamesHandler(service *game.Service, logger *zap.Logger) *GamesHandler {
	return &GamesHandler{service: service, logger: logger}
}

type createGameRequest struct {
	Players []domain.PlayerSetup `json:"players"`
}

type leaderboardResponse struct {
	GameID      string          `json:"gameId"`
	Leaderboard []domain.Player `json:"leaderboard"`
}

func (h *GamesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Code: "bad_request", Message: "invalid JSON body"})
		return
	}

	snap, err := h.service.Create(r.Context(), req.Players)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *GamesHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *GamesHandler) End(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	ranked, err := h.service.EndGame(r.Context(), gameID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{GameID: gameID, Leaderboard: ranked})
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorCode maps domain errors onto stable codes for clients.
func errorCode(err error) (string, int) {
	switch {
	case errors.Is(err, domain.ErrGameNotFound):
		return "game_not_found", http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSelection):
		return "invalid_selection", http.StatusBadRequest
	case errors.Is(err, domain.ErrNoActiveQuestion):
		return "no_active_question", http.StatusConflict
	case errors.Is(err, domain.ErrGameOver):
		return "game_over", http.StatusConflict
	case errors.Is(err, domain.ErrNoPlayers), errors.Is(err, domain.ErrEmptyName), errors.Is(err, domain.ErrUnknownCategory):
		return "invalid_setup", http.StatusBadRequest
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "provider_unavailable", http.StatusServiceUnavailable
	}
	return "internal", http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code, status := errorCode(err)
	writeJSON(w, status, errorPayload{Code: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
