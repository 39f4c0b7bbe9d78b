// Package model defines the data models for the Kakao game bot.
package model

import "time"

// User represents a KakaoTalk user and their progression state.
type User struct {
	ID         int64     `db:"id"`
	KakaoID    string    `db:"kakao_id"`
	Nickname   string    `db:"nickname"`
	Level      int       `db:"level"`
	Experience int64     `db:"experience"`
	Points     int64     `db:"points"`
	IsAdmin    bool      `db:"is_admin"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// GameHistory records one resolved game. Rows are append-only and never
// mutated after creation.
type GameHistory struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	RoomID      string    `db:"room_id"`
	GameType    string    `db:"game_type"`
	UserChoice  string    `db:"user_choice"`
	BotChoice   string    `db:"bot_choice"`
	Result      string    `db:"result"`
	PointChange int64     `db:"point_change"`
	Details     []byte    `db:"details"`
	CreatedAt   time.Time `db:"created_at"`
}

// PointHistory records one point-ledger mutation. Balance is the user's
// points immediately after the row was committed; the row and the user
// update always land in the same transaction.
type PointHistory struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Points    int64     `db:"points"`
	Reason    string    `db:"reason"`
	Balance   int64     `db:"balance"`
	Metadata  []byte    `db:"metadata"`
	CreatedAt time.Time `db:"created_at"`
}

// ChatMessage records a processed chat message with its extracted URL and
// generated summary, if any.
type ChatMessage struct {
	ID        int64     `db:"id"`
	RoomID    string    `db:"room_id"`
	Message   string    `db:"message"`
	URL       *string   `db:"url"`
	Summary   *string   `db:"summary"`
	CreatedAt time.Time `db:"created_at"`
}

// ChatActivity records one chat message event for passive experience.
type ChatActivity struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	RoomID      string    `db:"room_id"`
	MessageType string    `db:"message_type"`
	CreatedAt   time.Time `db:"created_at"`
}

// RankingEntry is one row of a rankings query.
type RankingEntry struct {
	Nickname   string `db:"nickname"`
	Level      int    `db:"level"`
	Experience int64  `db:"experience"`
	Points     int64  `db:"points"`
}

// Point-ledger reason codes.
const (
	ReasonGameWin  = "game_win"  // Points won from a game
	ReasonGameLose = "game_lose" // Points lost from a game
	ReasonLevelUp  = "level_up"  // Level-up reward
)

// Game types stored in game_history.
const (
	GameTypeRPS = "rps"
)

// Chat message types stored in chat_activities.
const (
	MessageTypeNormal  = "normal"
	MessageTypeCommand = "command"
	MessageTypeURL     = "url"
)

// GameDetails is the details payload attached to a game_history row.
type GameDetails struct {
	Streak       int     `json:"streak"`
	EventMessage *string `json:"event,omitempty"`
}

// GamePointMetadata is the point_history metadata for game_win/game_lose.
type GamePointMetadata struct {
	GameType string `json:"gameType"`
	Streak   int    `json:"streak"`
}

// LevelUpMetadata is the point_history metadata for level_up rewards.
type LevelUpMetadata struct {
	NewLevel int `json:"newLevel"`
}
