package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"kakao-game-bot/internal/game/rps"
	"kakao-game-bot/internal/model"
	"kakao-game-bot/internal/repository"
)

type playRpsRequest struct {
	Sender string `json:"sender"`
	RoomID string `json:"roomId"`
	Choice string `json:"choice"`
}

func (s *Server) handlePlayRps(w http.ResponseWriter, r *http.Request) {
	var req playRpsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Sender == "" || req.RoomID == "" {
		writeError(w, http.StatusBadRequest, "sender and roomId are required")
		return
	}

	choice, err := rps.ParseChoice(req.Choice)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.game.PlayRps(r.Context(), req.Sender, req.RoomID, choice)
	if err != nil {
		log.Error().Err(err).Str("sender", req.Sender).Msg("RPS game failed")
		writeError(w, http.StatusInternalServerError, "게임 처리 중 오류가 발생했습니다")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCheckEvent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.game.CheckEvent())
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	kakaoID := chi.URLParam(r, "kakaoID")

	user, err := s.users.GetUserInfo(r.Context(), kakaoID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "사용자를 찾을 수 없습니다")
			return
		}
		log.Error().Err(err).Str("kakao_id", kakaoID).Msg("Failed to get user info")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": map[string]any{
			"nickname":   user.Nickname,
			"level":      user.Level,
			"experience": user.Experience,
			"points":     user.Points,
			"isAdmin":    user.IsAdmin,
		},
	})
}

type rankingEntry struct {
	Rank       int    `json:"rank"`
	Nickname   string `json:"nickname"`
	Level      int    `json:"level"`
	Experience int64  `json:"experience"`
	Points     int64  `json:"points"`
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	rankingType := chi.URLParam(r, "type")

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.users.Rankings(r.Context(), rankingType, limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidRankingType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("type", rankingType).Msg("Failed to get rankings")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	rankings := make([]rankingEntry, 0, len(entries))
	for i, e := range entries {
		rankings = append(rankings, rankingEntry{
			Rank:       i + 1,
			Nickname:   e.Nickname,
			Level:      e.Level,
			Experience: e.Experience,
			Points:     e.Points,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"type":     rankingType,
		"rankings": rankings,
	})
}

type processMessageRequest struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

func (s *Server) handleProcessMessage(w http.ResponseWriter, r *http.Request) {
	var req processMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RoomID == "" {
		writeError(w, http.StatusBadRequest, "roomId is required")
		return
	}

	msg, err := s.chat.ProcessMessage(r.Context(), req.RoomID, req.Message)
	if err != nil {
		log.Error().Err(err).Str("room_id", req.RoomID).Msg("Failed to process message")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// No URL in the message: the bot stays silent.
	if msg == nil {
		writeJSON(w, http.StatusOK, map[string]any{"summary": nil})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"summary": msg.Summary})
}

type recordActivityRequest struct {
	Sender      string `json:"sender"`
	RoomID      string `json:"roomId"`
	MessageType string `json:"messageType"`
}

func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	var req recordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Sender == "" || req.RoomID == "" {
		writeError(w, http.StatusBadRequest, "sender and roomId are required")
		return
	}

	switch req.MessageType {
	case model.MessageTypeNormal, model.MessageTypeCommand, model.MessageTypeURL:
	default:
		writeError(w, http.StatusBadRequest, "invalid messageType")
		return
	}

	if err := s.chat.RecordActivity(r.Context(), req.Sender, req.RoomID, req.MessageType); err != nil {
		log.Error().Err(err).Str("sender", req.Sender).Msg("Failed to record chat activity")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "roomId is required")
		return
	}

	messages, err := s.chat.GetHistory(r.Context(), roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("Failed to get chat history")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}
