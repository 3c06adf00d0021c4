package http

import (
	"net/http"

	"go.uber.org/zap"

	"trivia-service/internal/game"
)

// NewRouter wires the REST and websocket endpoints onto one mux.
func NewRouter(service *game.Service, logger *zap.Logger) *http.ServeMux {
	games := NewGamesHandler(service, logger)
	ws := NewWSHandler(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /games", games.Create)
	mux.HandleFunc("GET /games/{id}", games.Get)
	mux.HandleFunc("DELETE /games/{id}", games.End)
	mux.HandleFunc("GET /ws", ws.ServeWS)
	return mux
}
