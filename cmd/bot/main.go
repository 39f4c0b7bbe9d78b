// Package main is the entry point for the Kakao game bot backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kakao-game-bot/internal/config"
	"kakao-game-bot/internal/pkg/db"
	"kakao-game-bot/internal/pkg/lock"
	"kakao-game-bot/internal/pkg/summarizer"
	"kakao-game-bot/internal/repository"
	"kakao-game-bot/internal/server"
	"kakao-game-bot/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	gameRepo := repository.NewGameHistoryRepository(dbPool.Pool)
	pointRepo := repository.NewPointHistoryRepository(dbPool.Pool)
	chatRepo := repository.NewChatRepository(dbPool.Pool)

	// Services
	userLock := lock.NewUserLock()
	directory := service.NewUserDirectory(userRepo)
	ledger := service.NewPointLedger(userRepo, pointRepo)
	expEngine := service.NewExperienceEngine(userRepo, ledger)
	streaks := service.NewStreakTracker()

	gameService := service.NewGameService(
		dbPool.Pool,
		userRepo,
		gameRepo,
		directory,
		ledger,
		expEngine,
		streaks,
		userLock,
	)

	gemini := summarizer.NewGemini(&cfg.Summarizer)
	chatService := service.NewChatService(
		dbPool.Pool,
		userRepo,
		chatRepo,
		directory,
		expEngine,
		userLock,
		gemini,
		cfg.Chat.DailyExpLimit,
		cfg.Chat.HistoryLimit,
	)

	api := server.New(gameService, directory, chatService, dbPool)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.Handler(),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: users table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			kakao_id TEXT NOT NULL UNIQUE,
			nickname TEXT NOT NULL,
			level INT NOT NULL DEFAULT 1,
			experience BIGINT NOT NULL DEFAULT 0,
			points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_level ON users(level DESC, experience DESC);
		CREATE INDEX IF NOT EXISTS idx_users_points ON users(points DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: game_history table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_history (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			room_id TEXT NOT NULL,
			game_type VARCHAR(50) NOT NULL,
			user_choice VARCHAR(20) NOT NULL,
			bot_choice VARCHAR(20) NOT NULL,
			result VARCHAR(20) NOT NULL,
			point_change BIGINT NOT NULL,
			details JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_game_history_user_time ON game_history(user_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: game_history table created")

	// Migration 3: point_history table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS point_history (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			points BIGINT NOT NULL,
			reason VARCHAR(50) NOT NULL,
			balance BIGINT NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_point_history_user_time ON point_history(user_id, id DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: point_history table created")

	// Migration 4: chat tables
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGSERIAL PRIMARY KEY,
			room_id TEXT NOT NULL,
			message TEXT NOT NULL,
			url TEXT,
			summary TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_chat_messages_room_time ON chat_messages(room_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS chat_activities (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			room_id TEXT NOT NULL,
			message_type VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_chat_activities_user_type_time ON chat_activities(user_id, message_type, created_at);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: chat tables created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
