package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestLevelForExperience pins the threshold table: 0, 100, 300, 600, 1000.
func TestLevelForExperience(t *testing.T) {
	tests := []struct {
		exp   int64
		level int
	}{
		{0, 1},
		{50, 1},
		{99, 1},
		{100, 2},
		{299, 2},
		{300, 3},
		{599, 3},
		{600, 4},
		{999, 4},
		{1000, 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForExperience(tt.exp), "exp=%d", tt.exp)
	}
}

// TestLevelForExperienceProperty checks the mapping is monotonic and that
// each level's threshold costs exactly level*100 more than the previous.
func TestLevelForExperienceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		exp := rapid.Int64Range(0, 1_000_000).Draw(t, "exp")

		level := LevelForExperience(exp)
		if level < 1 {
			t.Fatalf("level must be >= 1, got %d for exp %d", level, exp)
		}

		// Monotonic: more experience never lowers the level.
		more := rapid.Int64Range(0, 10_000).Draw(t, "more")
		if LevelForExperience(exp+more) < level {
			t.Fatalf("level decreased: exp %d -> %d", exp, exp+more)
		}

		// The stored level must be reproducible from the threshold sums.
		var threshold int64
		for l := 1; l < level; l++ {
			threshold += int64(l) * 100
		}
		if exp < threshold {
			t.Fatalf("exp %d below threshold %d for level %d", exp, threshold, level)
		}
		next := threshold + int64(level)*100
		if exp >= next {
			t.Fatalf("exp %d should already be past level %d (next threshold %d)", exp, level, next)
		}
	})
}
