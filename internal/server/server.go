// Package server exposes the game backend over HTTP for the KakaoTalk
// bridge client.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"kakao-game-bot/internal/pkg/db"
	"kakao-game-bot/internal/service"
)

// Server is the HTTP API server.
type Server struct {
	game  *service.GameService
	users *service.UserDirectory
	chat  *service.ChatService
	pool  *db.Pool
}

// New creates a new API server.
func New(game *service.GameService, users *service.UserDirectory, chat *service.ChatService, pool *db.Pool) *Server {
	return &Server{
		game:  game,
		users: users,
		chat:  chat,
		pool:  pool,
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/game", func(r chi.Router) {
		r.Post("/rps", s.handlePlayRps)
		r.Get("/event", s.handleCheckEvent)
	})

	r.Route("/user", func(r chi.Router) {
		r.Get("/rankings/{type}", s.handleRankings)
		r.Get("/{kakaoID}", s.handleUserInfo)
	})

	r.Route("/chat", func(r chi.Router) {
		r.Post("/process", s.handleProcessMessage)
		r.Post("/activity", s.handleRecordActivity)
		r.Get("/history", s.handleChatHistory)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}
