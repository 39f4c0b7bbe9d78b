// Package rps implements rock-paper-scissors outcome resolution.
package rps

import (
	"errors"
	"math/rand"
)

// Choice is one of the three RPS hands.
type Choice string

// Result is the outcome of a game from the user's point of view.
type Result string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
)

const (
	Win  Result = "win"
	Lose Result = "lose"
	Draw Result = "draw"
)

// ErrInvalidChoice is returned when a choice string is not rock, paper or scissors.
var ErrInvalidChoice = errors.New("invalid choice: must be rock, paper or scissors")

// beats maps each choice to the choice it defeats:
// rock > scissors, scissors > paper, paper > rock.
var beats = map[Choice]Choice{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// Base point deltas per result.
const (
	WinPoints  int64 = 20
	LosePoints int64 = -10
	DrawPoints int64 = 0
)

var choices = []Choice{Rock, Paper, Scissors}

// ParseChoice validates and converts a choice string.
func ParseChoice(s string) (Choice, error) {
	switch Choice(s) {
	case Rock, Paper, Scissors:
		return Choice(s), nil
	default:
		return "", ErrInvalidChoice
	}
}

// RandomChoice draws the bot's hand uniformly at random.
func RandomChoice() Choice {
	return choices[rand.Intn(len(choices))]
}

// Resolve determines the game result for the user. It is a pure function
// of the two hands so tests can drive the bot's choice explicitly.
func Resolve(user, bot Choice) Result {
	if user == bot {
		return Draw
	}
	if beats[user] == bot {
		return Win
	}
	return Lose
}

// BasePoints returns the pre-bonus point delta for a result.
func BasePoints(result Result) int64 {
	switch result {
	case Win:
		return WinPoints
	case Lose:
		return LosePoints
	default:
		return DrawPoints
	}
}

// ExperienceGain returns the experience awarded for a result.
func ExperienceGain(result Result) int64 {
	if result == Win {
		return 10
	}
	return 5
}
