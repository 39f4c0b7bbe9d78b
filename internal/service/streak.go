package service

import (
	"sync"

	"kakao-game-bot/internal/game/rps"
)

// StreakTracker keeps per-user consecutive-win counts in process memory.
// It is intentionally non-durable: streaks reset on restart and are not part
// of the play transaction, so a failed write phase does not roll one back.
// They could be rebuilt by replaying game_history if that ever matters.
type StreakTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewStreakTracker creates an empty StreakTracker.
func NewStreakTracker() *StreakTracker {
	return &StreakTracker{counts: make(map[string]int)}
}

// Record updates the streak for a user key and returns the new value:
// a win increments, a loss resets to zero, a draw leaves it unchanged.
func (s *StreakTracker) Record(userKey string, result rps.Result) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch result {
	case rps.Win:
		s.counts[userKey]++
	case rps.Lose:
		s.counts[userKey] = 0
	}
	return s.counts[userKey]
}

// Current returns the streak for a user key without modifying it.
func (s *StreakTracker) Current(userKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[userKey]
}
