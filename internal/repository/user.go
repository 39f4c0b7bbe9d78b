// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kakao-game-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
)

// Ranking types accepted by Rankings.
const (
	RankingByLevel  = "level"
	RankingByPoints = "points"
)

// ErrInvalidRankingType is returned for an unknown rankings type.
var ErrInvalidRankingType = errors.New("invalid ranking type: must be level or points")

const userColumns = `id, kakao_id, nickname, level, experience, points, is_admin, created_at, updated_at`

// UserRepository handles user identity and progression persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.KakaoID,
		&user.Nickname,
		&user.Level,
		&user.Experience,
		&user.Points,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user with the given Kakao ID and nickname.
// New users start at level 1 with zero experience and zero points.
func (r *UserRepository) Create(ctx context.Context, kakaoID, nickname string) (*model.User, error) {
	const query = `
		INSERT INTO users (kakao_id, nickname, level, experience, points, is_admin, created_at, updated_at)
		VALUES ($1, $2, 1, 0, 0, FALSE, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, kakaoID, nickname))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByKakaoID retrieves a user by their Kakao ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByKakaoID(ctx context.Context, kakaoID string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE kakao_id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, kakaoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetOrCreate retrieves a user by Kakao ID, creating one if it doesn't exist.
// Returns the user and whether it was newly created.
func (r *UserRepository) GetOrCreate(ctx context.Context, kakaoID, nickname string) (*model.User, bool, error) {
	user, err := r.GetByKakaoID(ctx, kakaoID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, err = r.Create(ctx, kakaoID, nickname)
	if err != nil {
		// Handle race condition: another request might have created the user
		user, err = r.GetByKakaoID(ctx, kakaoID)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}

	return user, true, nil
}

// UpdateNickname updates a user's display nickname. Last write wins.
func (r *UserRepository) UpdateNickname(ctx context.Context, id int64, nickname string) error {
	const query = `
		UPDATE users
		SET nickname = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, nickname)
	if err != nil {
		return fmt.Errorf("failed to update nickname: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// GetForUpdate retrieves a user by internal ID with a row-level exclusive
// lock, serializing concurrent point/experience updates for the same user.
// Must run inside the caller's transaction.
func (r *UserRepository) GetForUpdate(ctx context.Context, q Querier, id int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user row: %w", err)
	}

	return user, nil
}

// SetPoints writes a user's points balance. The caller is responsible for
// holding the row lock and for the accompanying point_history row.
func (r *UserRepository) SetPoints(ctx context.Context, q Querier, id int64, points int64) error {
	const query = `
		UPDATE users
		SET points = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := q.Exec(ctx, query, id, points)
	if err != nil {
		return fmt.Errorf("failed to set points: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetProgress writes a user's experience and level together.
func (r *UserRepository) SetProgress(ctx context.Context, q Querier, id int64, experience int64, level int) error {
	const query = `
		UPDATE users
		SET experience = $2, level = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := q.Exec(ctx, query, id, experience, level)
	if err != nil {
		return fmt.Errorf("failed to set progress: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Rankings returns up to limit users ordered by level (then experience) or
// by points, depending on rankingType. Ties break on insertion order via id
// so repeated queries are stable.
func (r *UserRepository) Rankings(ctx context.Context, rankingType string, limit int) ([]*model.RankingEntry, error) {
	var query string
	switch rankingType {
	case RankingByLevel:
		query = `
			SELECT nickname, level, experience, points
			FROM users
			ORDER BY level DESC, experience DESC, id ASC
			LIMIT $1
		`
	case RankingByPoints:
		query = `
			SELECT nickname, level, experience, points
			FROM users
			ORDER BY points DESC, id ASC
			LIMIT $1
		`
	default:
		return nil, ErrInvalidRankingType
	}

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get rankings: %w", err)
	}
	defer rows.Close()

	var entries []*model.RankingEntry
	for rows.Next() {
		var entry model.RankingEntry
		if err := rows.Scan(&entry.Nickname, &entry.Level, &entry.Experience, &entry.Points); err != nil {
			return nil, fmt.Errorf("failed to scan ranking entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rankings: %w", err)
	}

	return entries, nil
}
