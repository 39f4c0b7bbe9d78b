package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"kakao-game-bot/internal/model"
	"kakao-game-bot/internal/pkg/lock"
	"kakao-game-bot/internal/pkg/summarizer"
	"kakao-game-bot/internal/repository"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

const summaryFailureText = "Failed to generate summary"

// ChatService records chat activity for passive experience and runs the URL
// summarization glue around the external Summarizer.
type ChatService struct {
	pool       *pgxpool.Pool
	users      *repository.UserRepository
	chats      *repository.ChatRepository
	dir        *UserDirectory
	exp        *ExperienceEngine
	locks      *lock.UserLock
	summarizer summarizer.Summarizer

	dailyExpLimit int
	historyLimit  int
}

// NewChatService creates a new ChatService instance.
func NewChatService(
	pool *pgxpool.Pool,
	users *repository.UserRepository,
	chats *repository.ChatRepository,
	dir *UserDirectory,
	exp *ExperienceEngine,
	locks *lock.UserLock,
	sum summarizer.Summarizer,
	dailyExpLimit int,
	historyLimit int,
) *ChatService {
	if dailyExpLimit <= 0 {
		dailyExpLimit = 50
	}
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &ChatService{
		pool:          pool,
		users:         users,
		chats:         chats,
		dir:           dir,
		exp:           exp,
		locks:         locks,
		summarizer:    sum,
		dailyExpLimit: dailyExpLimit,
		historyLimit:  historyLimit,
	}
}

// ProcessMessage extracts a URL from the message and stores it with a
// generated summary. Returns nil when the message carries no URL, meaning
// the bot should not respond. A summarizer failure is recorded as a
// placeholder summary rather than failing the request.
func (s *ChatService) ProcessMessage(ctx context.Context, roomID, message string) (*model.ChatMessage, error) {
	url := urlPattern.FindString(message)
	if url == "" {
		return nil, nil
	}

	summary := summaryFailureText
	if s.summarizer != nil {
		text, err := s.summarizer.Summarize(ctx, url)
		if err != nil {
			log.Error().Err(err).Str("url", url).Msg("Summary generation failed")
		} else {
			summary = text
		}
	}

	msg, err := s.chats.CreateMessage(ctx, roomID, message, &url, &summary)
	if err != nil {
		return nil, err
	}

	log.Info().Str("room_id", roomID).Str("url", url).Msg("Chat message summarized")
	return msg, nil
}

// GetHistory returns the most recent processed messages for a room.
func (s *ChatService) GetHistory(ctx context.Context, roomID string) ([]*model.ChatMessage, error) {
	return s.chats.GetMessages(ctx, roomID, s.historyLimit)
}

// RecordActivity stores one chat activity row for the sender and grants
// 1 experience for a normal message, capped per day. The experience grant
// runs through the same locked transaction path as game plays so a level-up
// triggered by chatting still cascades its reward atomically.
func (s *ChatService) RecordActivity(ctx context.Context, kakaoID, roomID, messageType string) error {
	user, err := s.dir.FindOrCreate(ctx, kakaoID, kakaoID)
	if err != nil {
		return err
	}

	if err := s.chats.CreateActivity(ctx, user.ID, roomID, messageType); err != nil {
		return err
	}

	if messageType != model.MessageTypeNormal {
		return nil
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.chats.CountNormalSince(ctx, user.ID, startOfDay)
	if err != nil {
		return err
	}
	if count > int64(s.dailyExpLimit) {
		return nil
	}

	err = s.locks.WithLock(kakaoID, func() error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		locked, err := s.users.GetForUpdate(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		if _, _, err := s.exp.AddExperience(ctx, tx, locked, 1); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to grant chat experience: %w", err)
	}

	return nil
}
