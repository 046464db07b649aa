package conversation

import (
	"time"
)

// maxStreakDays bounds the backward walk.
const maxStreakDays = 365

// CurrentStreak counts consecutive calendar days in loc, ending today, that have at least one message.
// A day without messages ends the streak, so a quiet today yields zero.
func CurrentStreak(messages []Message, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	active := make(map[string]struct{}, len(messages))
	for _, m := range messages {
		if m.CreatedAt.IsZero() {
			continue
		}
		active[m.CreatedAt.In(loc).Format(time.DateOnly)] = struct{}{}
	}

	today := now.In(loc)
	dayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	streak := 0
	for i := 0; i < maxStreakDays; i++ {
		day := dayStart.AddDate(0, 0, -i)
		if _, ok := active[day.Format(time.DateOnly)]; !ok {
			break
		}
		streak++
	}
	return streak
}
