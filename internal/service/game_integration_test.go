package service

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"kakao-game-bot/internal/game/rps"
	"kakao-game-bot/internal/model"
	"kakao-game-bot/internal/pkg/lock"
	"kakao-game-bot/internal/repository"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
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
		CREATE TABLE IF NOT EXISTS point_history (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			points BIGINT NOT NULL,
			reason VARCHAR(50) NOT NULL,
			balance BIGINT NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGSERIAL PRIMARY KEY,
			room_id TEXT NOT NULL,
			message TEXT NOT NULL,
			url TEXT,
			summary TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS chat_activities (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			room_id TEXT NOT NULL,
			message_type VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// testDeps bundles the repositories and services wired against one pool.
type testDeps struct {
	users  *repository.UserRepository
	games  *repository.GameHistoryRepository
	points *repository.PointHistoryRepository
	svc    *GameService
}

// quietTime is outside every bonus window (minute != 0, hour not 7 or 19).
var quietTime = time.Date(2025, 3, 14, 14, 30, 0, 0, time.UTC)

func newTestDeps(pool *pgxpool.Pool) *testDeps {
	users := repository.NewUserRepository(pool)
	games := repository.NewGameHistoryRepository(pool)
	points := repository.NewPointHistoryRepository(pool)
	dir := NewUserDirectory(users)
	ledger := NewPointLedger(users, points)
	exp := NewExperienceEngine(users, ledger)
	svc := NewGameService(pool, users, games, dir, ledger, exp, NewStreakTracker(), lock.NewUserLock())
	svc.now = func() time.Time { return quietTime }
	return &testDeps{users: users, games: games, points: points, svc: svc}
}

// forceResult rigs the bot choice so the user's rock yields the wanted result.
func forceResult(svc *GameService, result rps.Result) {
	switch result {
	case rps.Win:
		svc.botChoice = func() rps.Choice { return rps.Scissors }
	case rps.Lose:
		svc.botChoice = func() rps.Choice { return rps.Paper }
	default:
		svc.botChoice = func() rps.Choice { return rps.Rock }
	}
}

func TestPlayRps_WinLossProgression(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	d := newTestDeps(pool)
	ctx := context.Background()

	forceResult(d.svc, rps.Win)
	first, err := d.svc.PlayRps(ctx, "player-1", "room-1", rps.Rock)
	require.NoError(t, err)
	assert.Equal(t, rps.Win, first.Result)
	assert.Equal(t, int64(20), first.Points)
	assert.Equal(t, 1, first.Streak)
	assert.Empty(t, first.EventMessage)

	second, err := d.svc.PlayRps(ctx, "player-1", "room-1", rps.Rock)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Streak)

	forceResult(d.svc, rps.Lose)
	third, err := d.svc.PlayRps(ctx, "player-1", "room-1", rps.Rock)
	require.NoError(t, err)
	assert.Equal(t, rps.Lose, third.Result)
	assert.Equal(t, int64(-10), third.Points)
	assert.Equal(t, 0, third.Streak)

	user, err := d.users.GetByKakaoID(ctx, "player-1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), user.Points)
	assert.Equal(t, int64(25), user.Experience)
	assert.Equal(t, 1, user.Level)

	count, err := d.games.CountByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestPlayRps_LevelUpCascade(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	d := newTestDeps(pool)
	ctx := context.Background()

	user, err := d.users.Create(ctx, "player-2", "player-2")
	require.NoError(t, err)
	require.NoError(t, d.users.SetProgress(ctx, pool, user.ID, 95, 1))

	forceResult(d.svc, rps.Win)
	res, err := d.svc.PlayRps(ctx, "player-2", "room-1", rps.Rock)
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Points)

	got, err := d.users.GetByKakaoID(ctx, "player-2")
	require.NoError(t, err)
	assert.Equal(t, int64(105), got.Experience)
	assert.Equal(t, 2, got.Level)
	// 20 from the win plus the 2*100 level-up reward
	assert.Equal(t, int64(220), got.Points)

	entries, err := d.points.GetByUserID(ctx, got.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ReasonLevelUp, entries[0].Reason)
	assert.Equal(t, int64(200), entries[0].Points)
	assert.Equal(t, int64(220), entries[0].Balance)
	assert.Equal(t, model.ReasonGameWin, entries[1].Reason)
	assert.Equal(t, int64(20), entries[1].Balance)
}

func TestPlayRps_LossClampedAtZeroBalance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	d := newTestDeps(pool)
	ctx := context.Background()

	forceResult(d.svc, rps.Lose)
	res, err := d.svc.PlayRps(ctx, "player-3", "room-1", rps.Rock)
	require.NoError(t, err)
	assert.Equal(t, rps.Lose, res.Result)
	assert.Equal(t, int64(0), res.Points)

	user, err := d.users.GetByKakaoID(ctx, "player-3")
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.Points)
	assert.Equal(t, int64(5), user.Experience)

	// The clamped delta is what the game record carries, and no ledger row
	// is written for a zero change.
	records, err := d.games.GetByUserID(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(0), records[0].PointChange)

	entries, err := d.points.GetByUserID(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPlayRps_PartialLossClamp(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	d := newTestDeps(pool)
	ctx := context.Background()

	user, err := d.users.Create(ctx, "player-4", "player-4")
	require.NoError(t, err)
	require.NoError(t, d.users.SetPoints(ctx, pool, user.ID, 4))

	forceResult(d.svc, rps.Lose)
	res, err := d.svc.PlayRps(ctx, "player-4", "room-1", rps.Rock)
	require.NoError(t, err)
	assert.Equal(t, int64(-4), res.Points)

	got, err := d.users.GetByKakaoID(ctx, "player-4")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Points)

	latest, err := d.points.GetLatest(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-4), latest.Points)
	assert.Equal(t, int64(0), latest.Balance)
}

func TestPlayRps_EventBonusApplied(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	d := newTestDeps(pool)
	ctx := context.Background()

	// On-the-hour play doubles the base points.
	d.svc.now = func() time.Time { return time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC) }
	forceResult(d.svc, rps.Win)

	res, err := d.svc.PlayRps(ctx, "player-5", "room-1", rps.Rock)
	require.NoError(t, err)
	assert.Equal(t, int64(40), res.Points)
	assert.NotEmpty(t, res.EventMessage)

	user, err := d.users.GetByKakaoID(ctx, "player-5")
	require.NoError(t, err)
	assert.Equal(t, int64(40), user.Points)
}

func TestPlayRps_BalanceSnapshotMatchesUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	d := newTestDeps(pool)
	ctx := context.Background()

	results := []rps.Result{rps.Win, rps.Win, rps.Lose, rps.Win, rps.Lose}
	for _, r := range results {
		forceResult(d.svc, r)
		_, err := d.svc.PlayRps(ctx, "player-6", "room-1", rps.Rock)
		require.NoError(t, err)
	}

	user, err := d.users.GetByKakaoID(ctx, "player-6")
	require.NoError(t, err)

	latest, err := d.points.GetLatest(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Points, latest.Balance)
}

func TestPlayRps_ConcurrentSameUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	d := newTestDeps(pool)
	ctx := context.Background()
	forceResult(d.svc, rps.Win)

	const plays = 20
	var wg sync.WaitGroup
	errs := make(chan error, plays)
	for i := 0; i < plays; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.svc.PlayRps(ctx, "player-7", "room-1", rps.Rock)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	user, err := d.users.GetByKakaoID(ctx, "player-7")
	require.NoError(t, err)
	// 20 wins at 20 points plus the level 2 reward of 200
	assert.Equal(t, int64(200), user.Experience)
	assert.Equal(t, 2, user.Level)
	assert.Equal(t, int64(600), user.Points)

	latest, err := d.points.GetLatest(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Points, latest.Balance)

	count, err := d.games.CountByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(plays), count)
}

func TestPlayRps_CancelledContextLeavesNoRows(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	d := newTestDeps(pool)
	ctx := context.Background()

	user, err := d.users.Create(ctx, "player-8", "player-8")
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	forceResult(d.svc, rps.Win)
	_, err = d.svc.PlayRps(cancelled, "player-8", "room-1", rps.Rock)
	require.Error(t, err)

	count, err := d.games.CountByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	got, err := d.users.GetByKakaoID(ctx, "player-8")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Points)
	assert.Equal(t, int64(0), got.Experience)
}

func TestUserDirectory_NicknameRefresh(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := repository.NewUserRepository(pool)
	dir := NewUserDirectory(users)
	ctx := context.Background()

	first, err := dir.FindOrCreate(ctx, "player-9", "old-name")
	require.NoError(t, err)
	assert.Equal(t, "old-name", first.Nickname)

	second, err := dir.FindOrCreate(ctx, "player-9", "new-name")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "new-name", second.Nickname)

	got, err := users.GetByKakaoID(ctx, "player-9")
	require.NoError(t, err)
	assert.Equal(t, "new-name", got.Nickname)
}

func TestChatService_DailyExpCap(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := repository.NewUserRepository(pool)
	points := repository.NewPointHistoryRepository(pool)
	chats := repository.NewChatRepository(pool)
	dir := NewUserDirectory(users)
	ledger := NewPointLedger(users, points)
	exp := NewExperienceEngine(users, ledger)
	svc := NewChatService(pool, users, chats, dir, exp, lock.NewUserLock(), nil, 3, 10)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.RecordActivity(ctx, "chatter-1", "room-1", model.MessageTypeNormal))
	}
	// Command messages never grant experience
	require.NoError(t, svc.RecordActivity(ctx, "chatter-1", "room-1", model.MessageTypeCommand))

	user, err := users.GetByKakaoID(ctx, "chatter-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.Experience)
}
