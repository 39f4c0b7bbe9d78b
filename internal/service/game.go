package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"kakao-game-bot/internal/game/rps"
	"kakao-game-bot/internal/model"
	"kakao-game-bot/internal/pkg/lock"
	"kakao-game-bot/internal/repository"
)

// RpsGameResult is the structured outcome of one rock-paper-scissors play.
type RpsGameResult struct {
	UserChoice   rps.Choice `json:"userChoice"`
	BotChoice    rps.Choice `json:"botChoice"`
	Result       rps.Result `json:"result"`
	Points       int64      `json:"points"`
	Streak       int        `json:"streak"`
	EventMessage string     `json:"eventMessage,omitempty"`
}

// GameService orchestrates a play: it resolves the outcome, computes point
// and experience deltas with the time bonus applied, and commits the game
// record, ledger change and progression advance as one transaction.
type GameService struct {
	pool    *pgxpool.Pool
	users   *repository.UserRepository
	games   *repository.GameHistoryRepository
	dir     *UserDirectory
	ledger  *PointLedger
	exp     *ExperienceEngine
	streaks *StreakTracker
	locks   *lock.UserLock

	// Injected for tests; default to time.Now and rps.RandomChoice.
	now       func() time.Time
	botChoice func() rps.Choice
}

// NewGameService creates a new GameService instance.
func NewGameService(
	pool *pgxpool.Pool,
	users *repository.UserRepository,
	games *repository.GameHistoryRepository,
	dir *UserDirectory,
	ledger *PointLedger,
	exp *ExperienceEngine,
	streaks *StreakTracker,
	locks *lock.UserLock,
) *GameService {
	return &GameService{
		pool:      pool,
		users:     users,
		games:     games,
		dir:       dir,
		ledger:    ledger,
		exp:       exp,
		streaks:   streaks,
		locks:     locks,
		now:       time.Now,
		botChoice: rps.RandomChoice,
	}
}

// PlayRps plays one round of rock-paper-scissors for sender in roomID.
//
// The streak update happens before the transaction and is not reverted if
// the write phase fails; everything else - game record, point change,
// experience and any level-up reward - commits or aborts as a unit. Plays
// by the same user are serialized by the per-user lock plus a row lock on
// the user; different users proceed in parallel.
func (s *GameService) PlayRps(ctx context.Context, sender, roomID string, choice rps.Choice) (*RpsGameResult, error) {
	botChoice := s.botChoice()
	result := rps.Resolve(choice, botChoice)

	base := rps.BasePoints(result)
	bonus := CheckSpecialEvent(s.now())
	finalPoints := ApplyBonus(base, bonus)

	streak := s.streaks.Record(sender, result)

	user, err := s.dir.FindOrCreate(ctx, sender, sender)
	if err != nil {
		return nil, err
	}

	var applied int64
	err = s.locks.WithLock(sender, func() error {
		return s.playTx(ctx, user.ID, roomID, choice, botChoice, result, finalPoints, streak, bonus, &applied)
	})
	if err != nil {
		return nil, fmt.Errorf("rps transaction failed: %w", err)
	}

	evt := log.Info().
		Str("sender", sender).
		Str("room_id", roomID).
		Str("choice", string(choice)).
		Str("bot_choice", string(botChoice)).
		Str("result", string(result)).
		Int64("points", applied).
		Int("streak", streak)
	if bonus.Active {
		evt = evt.Str("event", bonus.Message)
	}
	evt.Msg("RPS game played")

	res := &RpsGameResult{
		UserChoice: choice,
		BotChoice:  botChoice,
		Result:     result,
		Points:     applied,
		Streak:     streak,
	}
	if bonus.Active {
		res.EventMessage = bonus.Message
	}
	return res, nil
}

// playTx runs the atomic write phase. applied receives the point delta that
// was actually committed, which can differ from points when a loss is
// clamped at a zero balance.
func (s *GameService) playTx(ctx context.Context, userID int64, roomID string, choice, botChoice rps.Choice, result rps.Result, points int64, streak int, bonus EventBonus, applied *int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	locked, err := s.users.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return err
	}

	// A loss must not drive the balance negative: clamp the delta before
	// it reaches the ledger. The ledger's own check remains as a backstop.
	delta := points
	if delta < 0 && locked.Points+delta < 0 {
		delta = -locked.Points
	}
	*applied = delta

	details := model.GameDetails{Streak: streak}
	if bonus.Active {
		details.EventMessage = &bonus.Message
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal game details: %w", err)
	}

	if _, err := s.games.Create(ctx, tx, &model.GameHistory{
		UserID:      locked.ID,
		RoomID:      roomID,
		GameType:    model.GameTypeRPS,
		UserChoice:  string(choice),
		BotChoice:   string(botChoice),
		Result:      string(result),
		PointChange: delta,
		Details:     detailsJSON,
	}); err != nil {
		return err
	}

	if delta != 0 {
		reason := model.ReasonGameLose
		if result == rps.Win {
			reason = model.ReasonGameWin
		}
		meta := model.GamePointMetadata{GameType: model.GameTypeRPS, Streak: streak}
		if _, err := s.ledger.UpdatePoints(ctx, tx, locked, delta, reason, meta); err != nil {
			return err
		}
	}

	if _, _, err := s.exp.AddExperience(ctx, tx, locked, rps.ExperienceGain(result)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CheckEvent reports the current time bonus without side effects.
func (s *GameService) CheckEvent() EventBonus {
	return CheckSpecialEvent(s.now())
}
