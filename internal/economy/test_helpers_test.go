package economy

import (
	"time"

	"github.com/roach88/grove/internal/event"
)

// est is a fixed local zone so boundary tests do not depend on the host TZ.
var est = time.FixedZone("EST", -5*60*60)

func local(day, hour, minute int) time.Time {
	return time.Date(2026, time.January, day, hour, minute, 0, 0, est)
}

func water(ts time.Time) event.Event {
	return event.New(ts, event.SproutWatered{SproutID: "s1", Content: "check-in"})
}

func sun(ts time.Time) event.Event {
	return event.New(ts, event.SunShone{TwigID: "t1", TwigLabel: "Health", Content: "week"})
}
