package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"kakao-game-bot/internal/model"
	"kakao-game-bot/internal/repository"
)

// Ledger errors.
var (
	// ErrInsufficientPoints is returned when an update would drive a
	// balance below zero. No change is applied.
	ErrInsufficientPoints = errors.New("insufficient points")
)

// PointLedger applies point balance changes and mirrors each one into the
// append-only point_history ledger. It never opens its own transaction:
// every write goes through the caller's Querier so the balance update and
// its ledger row commit or abort together.
type PointLedger struct {
	users   *repository.UserRepository
	history *repository.PointHistoryRepository
}

// NewPointLedger creates a new PointLedger instance.
func NewPointLedger(
	users *repository.UserRepository,
	history *repository.PointHistoryRepository,
) *PointLedger {
	return &PointLedger{
		users:   users,
		history: history,
	}
}

// UpdatePoints applies delta to the user's balance and appends the matching
// ledger row carrying the resulting balance. The user must have been loaded
// under q's row lock; on success the user's Points field is refreshed in
// place. metadata may be nil, otherwise it is stored as JSON.
func (l *PointLedger) UpdatePoints(ctx context.Context, q repository.Querier, user *model.User, delta int64, reason string, metadata any) (int64, error) {
	newBalance := user.Points + delta
	if newBalance < 0 {
		return 0, fmt.Errorf("%w: balance %d, delta %d", ErrInsufficientPoints, user.Points, delta)
	}

	if err := l.users.SetPoints(ctx, q, user.ID, newBalance); err != nil {
		return 0, fmt.Errorf("failed to update points: %w", err)
	}

	var metaJSON []byte
	if metadata != nil {
		var err error
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal point metadata: %w", err)
		}
	}

	if _, err := l.history.Create(ctx, q, user.ID, delta, reason, newBalance, metaJSON); err != nil {
		return 0, err
	}

	user.Points = newBalance

	log.Info().
		Str("nickname", user.Nickname).
		Int64("delta", delta).
		Str("reason", reason).
		Int64("balance", newBalance).
		Msg("Points updated")

	return newBalance, nil
}
