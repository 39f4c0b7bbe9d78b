package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"kakao-game-bot/internal/model"
	"kakao-game-bot/internal/repository"
)

// UserDirectory resolves user identities and serves profile and ranking
// queries for the chat front-end.
type UserDirectory struct {
	users *repository.UserRepository
}

// NewUserDirectory creates a new UserDirectory instance.
func NewUserDirectory(users *repository.UserRepository) *UserDirectory {
	return &UserDirectory{users: users}
}

// FindOrCreate returns the user for a Kakao ID, creating one with the given
// nickname if absent. A changed nickname is refreshed in place, last write
// wins.
func (d *UserDirectory) FindOrCreate(ctx context.Context, kakaoID, nickname string) (*model.User, error) {
	user, created, err := d.users.GetOrCreate(ctx, kakaoID, nickname)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	if created {
		log.Info().Str("kakao_id", kakaoID).Str("nickname", nickname).Msg("New user created")
		return user, nil
	}

	if nickname != "" && user.Nickname != nickname {
		if err := d.users.UpdateNickname(ctx, user.ID, nickname); err != nil {
			// Non-fatal: the user exists, the stale nickname catches up
			// on the next request.
			log.Warn().Err(err).Str("kakao_id", kakaoID).Msg("Failed to update nickname")
		} else {
			log.Info().
				Str("old", user.Nickname).
				Str("new", nickname).
				Msg("User nickname updated")
			user.Nickname = nickname
		}
	}

	return user, nil
}

// GetUserInfo retrieves a user's profile by Kakao ID.
// Returns repository.ErrUserNotFound if the user does not exist.
func (d *UserDirectory) GetUserInfo(ctx context.Context, kakaoID string) (*model.User, error) {
	return d.users.GetByKakaoID(ctx, kakaoID)
}

// Rankings returns up to limit users ordered by level (then experience) or
// by points.
func (d *UserDirectory) Rankings(ctx context.Context, rankingType string, limit int) ([]*model.RankingEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return d.users.Rankings(ctx, rankingType, limit)
}
