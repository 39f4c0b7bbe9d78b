package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"kakao-game-bot/internal/model"
)

// ChatRepository handles chat message and chat activity persistence.
type ChatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository creates a new ChatRepository instance.
func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// CreateMessage stores a processed chat message with its URL and summary.
func (r *ChatRepository) CreateMessage(ctx context.Context, roomID, message string, url, summary *string) (*model.ChatMessage, error) {
	const query = `
		INSERT INTO chat_messages (room_id, message, url, summary, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, room_id, message, url, summary, created_at
	`

	var msg model.ChatMessage
	err := r.pool.QueryRow(ctx, query, roomID, message, url, summary).Scan(
		&msg.ID,
		&msg.RoomID,
		&msg.Message,
		&msg.URL,
		&msg.Summary,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat message: %w", err)
	}

	return &msg, nil
}

// GetMessages retrieves the most recent processed messages for a room.
func (r *ChatRepository) GetMessages(ctx context.Context, roomID string, limit int) ([]*model.ChatMessage, error) {
	const query = `
		SELECT id, room_id, message, url, summary, created_at
		FROM chat_messages
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		err := rows.Scan(&msg.ID, &msg.RoomID, &msg.Message, &msg.URL, &msg.Summary, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}

	return messages, nil
}

// CreateActivity records one chat activity event for a user.
func (r *ChatRepository) CreateActivity(ctx context.Context, userID int64, roomID, messageType string) error {
	const query = `
		INSERT INTO chat_activities (user_id, room_id, message_type, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	if _, err := r.pool.Exec(ctx, query, userID, roomID, messageType); err != nil {
		return fmt.Errorf("failed to create chat activity: %w", err)
	}

	return nil
}

// CountNormalSince counts a user's normal-message activities created at or
// after since. Used to cap passive experience per day.
func (r *ChatRepository) CountNormalSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	const query = `
		SELECT COUNT(*)
		FROM chat_activities
		WHERE user_id = $1 AND message_type = $2 AND created_at >= $3
	`

	var count int64
	err := r.pool.QueryRow(ctx, query, userID, model.MessageTypeNormal, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chat activities: %w", err)
	}

	return count, nil
}
