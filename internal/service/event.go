// Package service provides business logic implementations.
package service

import "time"

// Event bonus multipliers and messages.
const (
	onTheHourMultiplier = 2.0
	luckyHourMultiplier = 1.5

	onTheHourMessage = "🎰 정각 이벤트! 포인트 2배!"
	luckyHourMessage = "🍀 행운의 시간! 포인트 1.5배!"
)

// Lucky hours of the day (07:00 and 19:00).
var luckyHours = map[int]bool{7: true, 19: true}

// EventBonus describes a time-based point bonus.
type EventBonus struct {
	Active     bool    `json:"isEvent"`
	Multiplier float64 `json:"multiplier"`
	Message    string  `json:"message,omitempty"`
}

// CheckSpecialEvent evaluates the time-based bonus for the given wall-clock
// time. On-the-hour takes priority over the lucky hour. Pure function: all
// calls within the same minute yield identical results.
func CheckSpecialEvent(now time.Time) EventBonus {
	if now.Minute() == 0 {
		return EventBonus{Active: true, Multiplier: onTheHourMultiplier, Message: onTheHourMessage}
	}
	if luckyHours[now.Hour()] {
		return EventBonus{Active: true, Multiplier: luckyHourMultiplier, Message: luckyHourMessage}
	}
	return EventBonus{Active: false, Multiplier: 1.0}
}

// ApplyBonus multiplies a point delta by the bonus multiplier, truncating
// toward zero. A zero delta stays zero regardless of the bonus.
func ApplyBonus(points int64, bonus EventBonus) int64 {
	if !bonus.Active {
		return points
	}
	return int64(float64(points) * bonus.Multiplier)
}
