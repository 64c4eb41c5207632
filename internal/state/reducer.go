package state

import (
	"bytes"
	"cmp"
	"encoding/json"
	"math"
	"slices"

	"github.com/roach88/grove/internal/economy"
	"github.com/roach88/grove/internal/event"
)

// typeRank breaks timestamp ties so that causes replay before effects:
// a leaf before the sprouts planted into it, a plant before its waterings.
var typeRank = map[event.Type]int{
	event.TypeLeafCreated:     0,
	event.TypeSproutPlanted:   1,
	event.TypeSproutEdited:    2,
	event.TypeSproutWatered:   3,
	event.TypeSunShone:        4,
	event.TypeSproutHarvested: 5,
	event.TypeSproutUprooted:  6,
}

type keyed struct {
	ev   event.Event
	key  string
	rank int
}

// Prepare returns the replay sequence for events: invalid events dropped,
// the rest ordered by timestamp, then type rank, then identity key, then
// encoded form, with later duplicates of an identity key removed. The
// order is total, so the result does not depend on the input order.
func Prepare(events []event.Event) []event.Event {
	items := make([]keyed, 0, len(events))
	for _, e := range events {
		if !event.IsValid(e) {
			continue
		}
		items = append(items, keyed{ev: e, key: event.Key(e), rank: typeRank[e.Type()]})
	}

	slices.SortStableFunc(items, compareKeyed)

	seen := make(map[string]struct{}, len(items))
	out := make([]event.Event, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.key]; dup {
			continue
		}
		seen[it.key] = struct{}{}
		out = append(out, it.ev)
	}
	return out
}

func compareKeyed(a, b keyed) int {
	if c := a.ev.Timestamp.Compare(b.ev.Timestamp); c != 0 {
		return c
	}
	if c := cmp.Compare(a.rank, b.rank); c != 0 {
		return c
	}
	if c := cmp.Compare(a.key, b.key); c != 0 {
		return c
	}
	// Same key at the same instant: pick a winner by content.
	ab, _ := json.Marshal(a.ev)
	bb, _ := json.Marshal(b.ev)
	return bytes.Compare(ab, bb)
}

// Derive replays events into a snapshot. Malformed events are dropped, never
// reported.
func Derive(events []event.Event) *Snapshot {
	s := NewSnapshot()
	for _, e := range Prepare(events) {
		Apply(s, e)
	}
	BuildIndexes(s)
	return s
}

// Apply folds a single prepared event into s and re-clamps available soil.
// Indexes are not touched; call BuildIndexes once the fold is complete.
func Apply(s *Snapshot, e event.Event) {
	switch p := e.Payload.(type) {
	case event.LeafCreated:
		if _, ok := s.Leaves[p.LeafID]; !ok {
			s.leafOrder = append(s.leafOrder, p.LeafID)
		}
		s.Leaves[p.LeafID] = &Leaf{ID: p.LeafID, TwigID: p.TwigID, Name: p.Name, CreatedAt: e.Timestamp}

	case event.SproutPlanted:
		if _, ok := s.Sprouts[p.SproutID]; !ok {
			s.sproutOrder = append(s.sproutOrder, p.SproutID)
		}
		s.Sprouts[p.SproutID] = &Sprout{
			ID:            p.SproutID,
			TwigID:        p.TwigID,
			Title:         p.Title,
			Season:        p.Season,
			Environment:   p.Environment,
			SoilCost:      p.SoilCost,
			State:         StateActive,
			PlantedAt:     e.Timestamp,
			LeafID:        p.LeafID,
			BloomWither:   p.BloomWither,
			BloomBudding:  p.BloomBudding,
			BloomFlourish: p.BloomFlourish,
			WaterEntries:  []WaterEntry{},
		}
		s.SoilAvailable = math.Max(0, s.SoilAvailable-p.SoilCost)

	case event.SproutWatered:
		sp, ok := s.Sprouts[p.SproutID]
		if !ok {
			break
		}
		sp.WaterEntries = append(sp.WaterEntries, WaterEntry{
			Timestamp: e.Timestamp,
			Content:   p.Content,
			Prompt:    p.Prompt,
		})
		if sp.State == StateActive {
			s.SoilAvailable += economy.WaterRecovery
		}

	case event.SproutHarvested:
		// Capacity and soil are credited even when the sprout is already
		// terminal or unknown; only the sprout's own fields are guarded.
		s.SoilCapacity = math.Min(economy.MaxCapacity, s.SoilCapacity+p.CapacityGained)
		sp, ok := s.Sprouts[p.SproutID]
		if !ok {
			break
		}
		if sp.State == StateActive {
			sp.State = StateCompleted
			sp.Result = p.Result
			sp.Reflection = p.Reflection
			sp.CapacityGained = p.CapacityGained
			sp.HarvestedAt = e.Timestamp
		}
		s.SoilAvailable += sp.SoilCost

	case event.SproutUprooted:
		if sp, ok := s.Sprouts[p.SproutID]; ok && sp.State == StateActive {
			sp.State = StateUprooted
			sp.UprootedAt = e.Timestamp
		}
		s.SoilAvailable += p.SoilReturned

	case event.SproutEdited:
		sp, ok := s.Sprouts[p.SproutID]
		if !ok {
			break
		}
		mergeString(&sp.Title, p.Title)
		mergeString(&sp.LeafID, p.LeafID)
		mergeString(&sp.BloomWither, p.BloomWither)
		mergeString(&sp.BloomBudding, p.BloomBudding)
		mergeString(&sp.BloomFlourish, p.BloomFlourish)

	case event.SunShone:
		s.SunEntries = append(s.SunEntries, SunEntry{
			Timestamp: e.Timestamp,
			TwigID:    p.TwigID,
			TwigLabel: p.TwigLabel,
			Content:   p.Content,
			Prompt:    p.Prompt,
		})
		s.SoilAvailable += economy.SunRecovery
	}

	s.SoilAvailable = economy.Clamp(s.SoilAvailable, s.SoilCapacity)
}

func mergeString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
