// Package history turns the event log into soil time series for charts.
package history

import (
	"fmt"
	"time"

	"github.com/roach88/grove/internal/economy"
	"github.com/roach88/grove/internal/event"
	"github.com/roach88/grove/internal/state"
)

// Sample is the soil level right after a soil-affecting event.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Capacity  float64   `json:"capacity"`
	Available float64   `json:"available"`
}

// RawSoilHistory replays events in the same order as state.Derive and emits
// one sample per event that can change soil. Leaf and edit events emit none.
func RawSoilHistory(events []event.Event) []Sample {
	s := state.NewSnapshot()
	var samples []Sample
	for _, e := range state.Prepare(events) {
		state.Apply(s, e)
		if !e.TouchesSoil() {
			continue
		}
		samples = append(samples, Sample{
			Timestamp: e.Timestamp,
			Capacity:  s.SoilCapacity,
			Available: s.SoilAvailable,
		})
	}
	return samples
}

// Range is a chart time window.
type Range string

const (
	RangeDay        Range = "1d"
	RangeWeek       Range = "1w"
	RangeMonth      Range = "1m"
	RangeQuarter    Range = "3m"
	RangeHalfYear   Range = "6m"
	RangeYearToDate Range = "ytd"
	RangeAll        Range = "all"
)

// Ranges lists every supported window, narrowest first.
var Ranges = []Range{RangeDay, RangeWeek, RangeMonth, RangeQuarter, RangeHalfYear, RangeYearToDate, RangeAll}

// ParseRange validates a range name.
func ParseRange(s string) (Range, error) {
	for _, r := range Ranges {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown history range %q (want one of 1d, 1w, 1m, 3m, 6m, ytd, all)", s)
}

const (
	day         = 24 * time.Hour
	semimonthly = 15 * day
	allBuckets  = 24
)

// WindowStart returns the left edge of the window ending at now. Year to
// date starts at midnight on January 1 in now's location. The "all" window
// starts at the first sample, or at now when there is none.
func WindowStart(r Range, now time.Time, history []Sample) time.Time {
	switch r {
	case RangeDay:
		return now.Add(-day)
	case RangeWeek:
		return now.Add(-7 * day)
	case RangeMonth:
		return now.AddDate(0, -1, 0)
	case RangeQuarter:
		return now.AddDate(0, -3, 0)
	case RangeHalfYear:
		return now.AddDate(0, -6, 0)
	case RangeYearToDate:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		if len(history) == 0 || history[0].Timestamp.After(now) {
			return now
		}
		return history[0].Timestamp
	}
}

// BucketWidth returns the bucket size for r over [start, now]. The "all"
// window adapts to roughly 24 buckets, never narrower than one hour.
func BucketWidth(r Range, start, now time.Time) time.Duration {
	switch r {
	case RangeDay:
		return time.Hour
	case RangeWeek:
		return 6 * time.Hour
	case RangeMonth:
		return day
	case RangeQuarter:
		return 7 * day
	case RangeHalfYear, RangeYearToDate:
		return semimonthly
	default:
		return max(now.Sub(start)/allBuckets, time.Hour)
	}
}

// Point is one chart bucket, stamped with its right edge.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Capacity  float64   `json:"capacity"`
	Available float64   `json:"available"`
}

// Bucket partitions the window for r ending at now into fixed-width buckets
// and gives each the last known soil level at or before its right edge. The
// final bucket is cut short at now. Buckets before the first sample carry
// the starting capacity. history must be in replay order, as produced by
// RawSoilHistory.
func Bucket(history []Sample, r Range, now time.Time) []Point {
	start := WindowStart(r, now, history)
	width := BucketWidth(r, start, now)

	current := Sample{Capacity: economy.StartingCapacity, Available: economy.StartingCapacity}
	next := 0

	var points []Point
	for edge := start.Add(width); ; edge = edge.Add(width) {
		last := !edge.Before(now)
		if last {
			edge = now
		}
		for next < len(history) && !history[next].Timestamp.After(edge) {
			current = history[next]
			next++
		}
		points = append(points, Point{Timestamp: edge, Capacity: current.Capacity, Available: current.Available})
		if last {
			return points
		}
	}
}
