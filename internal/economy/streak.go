package economy

import (
	"sort"
	"time"

	"github.com/roach88/grove/internal/event"
)

// Streak is a watering streak measured in 6 AM-anchored days.
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// WateringStreak derives the current and longest runs of consecutive days
// with at least one sprout_watered event. The current run counts back from
// the day containing now; a day without water ends it, today included.
// Events after now are ignored.
func WateringStreak(events []event.Event, now time.Time) Streak {
	loc := now.Location()
	days := make(map[time.Time]struct{})
	for _, e := range events {
		if e.Type() != event.TypeSproutWatered || e.Timestamp.After(now) {
			continue
		}
		days[dayKey(e.Timestamp.In(loc))] = struct{}{}
	}
	if len(days) == 0 {
		return Streak{}
	}

	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var s Streak
	run := 0
	for i, d := range sorted {
		if i > 0 && sorted[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		s.Longest = max(s.Longest, run)
	}

	for d := dayKey(now); ; d = d.AddDate(0, 0, -1) {
		if _, ok := days[d]; !ok {
			break
		}
		s.Current++
	}
	return s
}

// dayKey identifies a game day by its calendar date at UTC midnight, which
// keeps day arithmetic free of DST shifts.
func dayKey(t time.Time) time.Time {
	y, m, d := gameDay(t)
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
