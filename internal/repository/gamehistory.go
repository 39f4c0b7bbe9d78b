package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"kakao-game-bot/internal/model"
)

// GameHistoryRepository handles game record persistence. Rows are
// append-only: there is no update or delete path.
type GameHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewGameHistoryRepository creates a new GameHistoryRepository instance.
func NewGameHistoryRepository(pool *pgxpool.Pool) *GameHistoryRepository {
	return &GameHistoryRepository{pool: pool}
}

// Create inserts a game record through q so it joins the caller's
// transaction.
func (r *GameHistoryRepository) Create(ctx context.Context, q Querier, record *model.GameHistory) (*model.GameHistory, error) {
	const query = `
		INSERT INTO game_history (user_id, room_id, game_type, user_choice, bot_choice, result, point_change, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`

	err := q.QueryRow(ctx, query,
		record.UserID,
		record.RoomID,
		record.GameType,
		record.UserChoice,
		record.BotChoice,
		record.Result,
		record.PointChange,
		record.Details,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create game history: %w", err)
	}

	return record, nil
}

// GetByUserID retrieves a user's game records, newest first.
func (r *GameHistoryRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.GameHistory, error) {
	const query = `
		SELECT id, user_id, room_id, game_type, user_choice, bot_choice, result, point_change, details, created_at
		FROM game_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get game history: %w", err)
	}
	defer rows.Close()

	var records []*model.GameHistory
	for rows.Next() {
		var rec model.GameHistory
		err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.RoomID,
			&rec.GameType,
			&rec.UserChoice,
			&rec.BotChoice,
			&rec.Result,
			&rec.PointChange,
			&rec.Details,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game history: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game history: %w", err)
	}

	return records, nil
}

// CountByUserID returns how many games a user has played.
func (r *GameHistoryRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM game_history WHERE user_id = $1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count game history: %w", err)
	}

	return count, nil
}
