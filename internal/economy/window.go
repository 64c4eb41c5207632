package economy

import (
	"time"

	"github.com/roach88/grove/internal/event"
)

const (
	// ResetHour is the local hour at which a new day (and, on Monday, a new week) begins.
	ResetHour = 6

	// WaterDailyCapacity is the number of waterings allowed per day.
	WaterDailyCapacity = 3

	// SunWeeklyCapacity is the number of sun reflections allowed per week.
	SunWeeklyCapacity = 1
)

// DayStart returns the most recent reset boundary at or before t, in t's location.
func DayStart(t time.Time) time.Time {
	y, m, d := gameDay(t)
	return time.Date(y, m, d, ResetHour, 0, 0, 0, t.Location())
}

// NextDayStart returns the first reset boundary strictly after t.
func NextDayStart(t time.Time) time.Time {
	y, m, d := gameDay(t)
	return time.Date(y, m, d+1, ResetHour, 0, 0, 0, t.Location())
}

// WeekStart returns the most recent Monday reset boundary at or before t.
func WeekStart(t time.Time) time.Time {
	y, m, d := gameDay(t)
	day := time.Date(y, m, d, ResetHour, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return time.Date(y, m, d-offset, ResetHour, 0, 0, 0, t.Location())
}

// gameDay returns the calendar date whose 6 AM boundary opens the day containing t.
func gameDay(t time.Time) (int, time.Month, int) {
	y, m, d := t.Date()
	if t.Hour() < ResetHour {
		y, m, d = time.Date(y, m, d-1, 0, 0, 0, 0, time.UTC).Date()
	}
	return y, m, d
}

// WaterUsed counts sprout_watered events in the day containing now.
func WaterUsed(events []event.Event, now time.Time) int {
	return countBetween(events, event.TypeSproutWatered, DayStart(now), NextDayStart(now))
}

// WaterAvailable is the number of waterings left today.
func WaterAvailable(events []event.Event, now time.Time) int {
	return max(0, WaterDailyCapacity-WaterUsed(events, now))
}

// SunUsed counts sun_shone events in the week containing now.
func SunUsed(events []event.Event, now time.Time) int {
	start := WeekStart(now)
	y, m, d := start.Date()
	end := time.Date(y, m, d+7, ResetHour, 0, 0, 0, now.Location())
	return countBetween(events, event.TypeSunShone, start, end)
}

// SunAvailable is the number of sun reflections left this week.
func SunAvailable(events []event.Event, now time.Time) int {
	return max(0, SunWeeklyCapacity-SunUsed(events, now))
}

func countBetween(events []event.Event, typ event.Type, from, to time.Time) int {
	n := 0
	for _, e := range events {
		if e.Type() != typ {
			continue
		}
		if !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			n++
		}
	}
	return n
}
