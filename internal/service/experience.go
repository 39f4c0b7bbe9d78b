package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"kakao-game-bot/internal/model"
	"kakao-game-bot/internal/repository"
)

// Points granted per level gained on level-up.
const levelRewardPerLevel = 100

// LevelForExperience derives the level for a cumulative experience total.
// Advancing past level n costs an additional n*100 experience, so the
// thresholds run 0, 100, 300, 600, 1000, ...
func LevelForExperience(exp int64) int {
	level := 1
	threshold := int64(0)
	for {
		threshold += int64(level) * 100
		if exp < threshold {
			return level
		}
		level++
	}
}

// ExperienceEngine advances a user's experience and level, cascading the
// level-up point reward through the ledger. Like the ledger it writes only
// through the caller's Querier so the experience change, level change and
// reward are one atomic unit.
type ExperienceEngine struct {
	users  *repository.UserRepository
	ledger *PointLedger
}

// NewExperienceEngine creates a new ExperienceEngine instance.
func NewExperienceEngine(users *repository.UserRepository, ledger *PointLedger) *ExperienceEngine {
	return &ExperienceEngine{
		users:  users,
		ledger: ledger,
	}
}

// AddExperience adds exp to the user, recomputes the level from the new
// total, and on a level increase grants newLevel*100 points with reason
// level_up. The user must have been loaded under q's row lock; Experience,
// Level and Points are refreshed in place. Returns whether the level rose
// and the resulting level.
func (e *ExperienceEngine) AddExperience(ctx context.Context, q repository.Querier, user *model.User, exp int64) (bool, int, error) {
	newExp := user.Experience + exp
	newLevel := LevelForExperience(newExp)
	leveledUp := newLevel > user.Level

	if err := e.users.SetProgress(ctx, q, user.ID, newExp, newLevel); err != nil {
		return false, 0, fmt.Errorf("failed to add experience: %w", err)
	}

	oldLevel := user.Level
	user.Experience = newExp
	user.Level = newLevel

	if leveledUp {
		reward := int64(newLevel) * levelRewardPerLevel
		if _, err := e.ledger.UpdatePoints(ctx, q, user, reward, model.ReasonLevelUp, model.LevelUpMetadata{NewLevel: newLevel}); err != nil {
			return false, 0, fmt.Errorf("failed to grant level-up reward: %w", err)
		}

		log.Info().
			Str("nickname", user.Nickname).
			Int("old_level", oldLevel).
			Int("new_level", newLevel).
			Int64("reward", reward).
			Msg("Level up")
	}

	return leveledUp, newLevel, nil
}
