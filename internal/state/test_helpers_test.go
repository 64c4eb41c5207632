package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/grove/internal/economy"
	"github.com/roach88/grove/internal/event"
)

var t0 = time.Date(2026, time.January, 5, 7, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time {
	return t0.Add(d)
}

func plant(ts time.Time, id, twig string, cost float64) event.Event {
	return event.New(ts, event.SproutPlanted{
		SproutID:    id,
		TwigID:      twig,
		Title:       "sprout " + id,
		Season:      event.Season1M,
		Environment: event.EnvFirm,
		SoilCost:    cost,
	})
}

func water(ts time.Time, id string) event.Event {
	return event.New(ts, event.SproutWatered{SproutID: id, Content: "check-in"})
}

func harvest(ts time.Time, id string, result int, gained float64) event.Event {
	return event.New(ts, event.SproutHarvested{SproutID: id, Result: result, CapacityGained: gained})
}

func uproot(ts time.Time, id string, returned float64) event.Event {
	return event.New(ts, event.SproutUprooted{SproutID: id, SoilReturned: returned})
}

func sun(ts time.Time, twig string) event.Event {
	return event.New(ts, event.SunShone{TwigID: twig, TwigLabel: "label " + twig, Content: "reflection"})
}

func leaf(ts time.Time, id, twig string) event.Event {
	return event.New(ts, event.LeafCreated{LeafID: id, TwigID: twig, Name: "leaf " + id})
}

func ptr(s string) *string {
	return &s
}

// requireSoilBounds checks the clamping invariant after every prefix of the log.
func requireSoilBounds(t *testing.T, events []event.Event) {
	t.Helper()

	s := NewSnapshot()
	for _, e := range Prepare(events) {
		Apply(s, e)
		require.GreaterOrEqual(t, s.SoilAvailable, 0.0)
		require.LessOrEqual(t, s.SoilAvailable, s.SoilCapacity)
		require.LessOrEqual(t, s.SoilCapacity, economy.MaxCapacity)
		require.GreaterOrEqual(t, s.SoilCapacity, economy.StartingCapacity)
	}
}

func fingerprint(t *testing.T, events []event.Event) string {
	t.Helper()

	fp, err := Derive(events).Fingerprint()
	require.NoError(t, err)
	return fp
}
