package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kakao-game-bot/internal/model"
)

// PointHistoryRepository handles the append-only point ledger. Every row
// carries the balance that resulted from its write; the row must be created
// in the same transaction as the users.points update it mirrors.
type PointHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPointHistoryRepository creates a new PointHistoryRepository instance.
func NewPointHistoryRepository(pool *pgxpool.Pool) *PointHistoryRepository {
	return &PointHistoryRepository{pool: pool}
}

// Create appends a ledger row through q so it joins the caller's
// transaction. metadata may be nil.
func (r *PointHistoryRepository) Create(ctx context.Context, q Querier, userID, points int64, reason string, balance int64, metadata []byte) (*model.PointHistory, error) {
	const query = `
		INSERT INTO point_history (user_id, points, reason, balance, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, user_id, points, reason, balance, metadata, created_at
	`

	var entry model.PointHistory
	err := q.QueryRow(ctx, query, userID, points, reason, balance, metadata).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Points,
		&entry.Reason,
		&entry.Balance,
		&entry.Metadata,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create point history: %w", err)
	}

	return &entry, nil
}

// GetByUserID retrieves a user's ledger rows, newest first.
func (r *PointHistoryRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.PointHistory, error) {
	const query = `
		SELECT id, user_id, points, reason, balance, metadata, created_at
		FROM point_history
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get point history: %w", err)
	}
	defer rows.Close()

	var entries []*model.PointHistory
	for rows.Next() {
		var entry model.PointHistory
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Points,
			&entry.Reason,
			&entry.Balance,
			&entry.Metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan point history: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating point history: %w", err)
	}

	return entries, nil
}

// GetLatest retrieves the most recent ledger row for a user, or
// pgx.ErrNoRows wrapped if the user has none.
func (r *PointHistoryRepository) GetLatest(ctx context.Context, userID int64) (*model.PointHistory, error) {
	const query = `
		SELECT id, user_id, points, reason, balance, metadata, created_at
		FROM point_history
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var entry model.PointHistory
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Points,
		&entry.Reason,
		&entry.Balance,
		&entry.Metadata,
		&entry.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no point history for user %d: %w", userID, err)
		}
		return nil, fmt.Errorf("failed to get latest point history: %w", err)
	}

	return &entry, nil
}
