package mission

import (
	"fmt"
	"math"
	"time"
)

// Clock is the mission clock of an event that has a firm launch instant.
type Clock struct {
	Seconds int64  `json:"seconds"`
	Label   string `json:"label"`
}

// MissionTime returns the signed seconds elapsed since T-0.
// Negative before launch, positive after.
func MissionTime(now, scheduledAt time.Time) float64 {
	return now.Sub(scheduledAt).Seconds()
}

// Elapsed is MissionTime rounded down to a whole second, so any instant
// before T-0 stays on the negative side of the clock.
func Elapsed(now, scheduledAt time.Time) int64 {
	return int64(math.Floor(MissionTime(now, scheduledAt)))
}

// FormatMissionTime renders seconds as T+HH:MM:SS or T-HH:MM:SS.
// Hours are not wrapped at 24.
func FormatMissionTime(seconds int64) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("T%s%02d:%02d:%02d", sign, h, m, s)
}

// ClockAt derives the mission clock for an event. It reports false when the
// event has no scheduled instant, in which case no clock applies.
func ClockAt(now time.Time, scheduledAt *time.Time) (Clock, bool) {
	if scheduledAt == nil || scheduledAt.IsZero() {
		return Clock{}, false
	}
	seconds := Elapsed(now, *scheduledAt)
	return Clock{Seconds: seconds, Label: FormatMissionTime(seconds)}, true
}
