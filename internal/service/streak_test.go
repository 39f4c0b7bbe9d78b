package service

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"kakao-game-bot/internal/game/rps"
)

// TestStreakTracker_Record verifies wins count up, losses reset, draws hold.
func TestStreakTracker_Record(t *testing.T) {
	s := NewStreakTracker()

	assert.Equal(t, 1, s.Record("alice", rps.Win))
	assert.Equal(t, 2, s.Record("alice", rps.Win))
	assert.Equal(t, 3, s.Record("alice", rps.Win))

	// draw keeps the streak
	assert.Equal(t, 3, s.Record("alice", rps.Draw))
	assert.Equal(t, 3, s.Current("alice"))

	// loss resets regardless of prior value
	assert.Equal(t, 0, s.Record("alice", rps.Lose))
	assert.Equal(t, 0, s.Current("alice"))

	// users are independent
	assert.Equal(t, 1, s.Record("bob", rps.Win))
	assert.Equal(t, 0, s.Current("carol"))
}

// TestStreakTracker_DrawOnFreshUser verifies a draw for an unseen user
// returns zero without starting a streak.
func TestStreakTracker_DrawOnFreshUser(t *testing.T) {
	s := NewStreakTracker()
	assert.Equal(t, 0, s.Record("dave", rps.Draw))
	assert.Equal(t, 0, s.Record("dave", rps.Lose))
}

// TestStreakTrackerConcurrency hammers a single key from many goroutines;
// with only wins recorded the count must equal the number of calls.
func TestStreakTrackerConcurrency(t *testing.T) {
	s := NewStreakTracker()
	const workers = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			s.Record("shared", rps.Win)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, s.Current("shared"))
}

// TestStreakSequenceProperty replays a random result sequence and checks the
// tracker against a sequential fold of the same rules.
func TestStreakSequenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		results := rapid.SliceOfN(
			rapid.SampledFrom([]rps.Result{rps.Win, rps.Lose, rps.Draw}),
			1, 50,
		).Draw(t, "results")

		s := NewStreakTracker()
		key := rapid.StringMatching(`[a-z]{3,8}`).Draw(t, "key")

		expected := 0
		for i, r := range results {
			switch r {
			case rps.Win:
				expected++
			case rps.Lose:
				expected = 0
			}

			got := s.Record(key, r)
			if got != expected {
				t.Fatalf("step %d (%s): expected streak %d, got %d", i, r, expected, got)
			}
		}
	})
}

// TestStreakIndependentKeysProperty checks streaks never bleed across users.
func TestStreakIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(2, 8).Draw(t, "numUsers")
		wins := rapid.IntRange(1, 10).Draw(t, "wins")

		s := NewStreakTracker()
		for u := 0; u < numUsers; u++ {
			key := fmt.Sprintf("user-%d", u)
			for i := 0; i < wins+u; i++ {
				s.Record(key, rps.Win)
			}
		}

		for u := 0; u < numUsers; u++ {
			key := fmt.Sprintf("user-%d", u)
			if got := s.Current(key); got != wins+u {
				t.Fatalf("user %d: expected %d, got %d", u, wins+u, got)
			}
		}
	})
}
