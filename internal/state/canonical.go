package state

import (
	"time"

	"github.com/roach88/grove/internal/canonical"
	"github.com/roach88/grove/internal/event"
)

// MarshalCanonical encodes the snapshot as canonical JSON. Two replays of
// the same event multiset produce identical bytes.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	return canonical.Marshal(s.canonicalMap())
}

// Fingerprint returns a domain-separated hash of the canonical encoding.
func (s *Snapshot) Fingerprint() (string, error) {
	return canonical.Fingerprint(canonical.DomainSnapshot, s.canonicalMap())
}

func (s *Snapshot) canonicalMap() map[string]any {
	sprouts := make(map[string]any, len(s.Sprouts))
	for id, sp := range s.Sprouts {
		sprouts[id] = sproutMap(sp)
	}

	leaves := make(map[string]any, len(s.Leaves))
	for id, l := range s.Leaves {
		leaves[id] = map[string]any{
			"id":         l.ID,
			"twig_id":    l.TwigID,
			"name":       l.Name,
			"created_at": stamp(l.CreatedAt),
		}
	}

	sun := make([]any, len(s.SunEntries))
	for i, entry := range s.SunEntries {
		m := map[string]any{
			"timestamp":  stamp(entry.Timestamp),
			"twig_id":    entry.TwigID,
			"twig_label": entry.TwigLabel,
			"content":    entry.Content,
		}
		if entry.Prompt != "" {
			m["prompt"] = entry.Prompt
		}
		sun[i] = m
	}

	return map[string]any{
		"soil_capacity":  s.SoilCapacity,
		"soil_available": s.SoilAvailable,
		"sprouts":        sprouts,
		"leaves":         leaves,
		"sun_entries":    sun,
		"indexes": map[string]any{
			"sprouts_by_twig":        groupsMap(s.Indexes.SproutsByTwig),
			"active_sprouts_by_twig": groupsMap(s.Indexes.ActiveSproutsByTwig),
			"sprouts_by_leaf":        groupsMap(s.Indexes.SproutsByLeaf),
			"leaves_by_twig":         groupsMap(s.Indexes.LeavesByTwig),
		},
	}
}

func sproutMap(sp *Sprout) map[string]any {
	water := make([]any, len(sp.WaterEntries))
	for i, w := range sp.WaterEntries {
		m := map[string]any{
			"timestamp": stamp(w.Timestamp),
			"content":   w.Content,
		}
		if w.Prompt != "" {
			m["prompt"] = w.Prompt
		}
		water[i] = m
	}

	m := map[string]any{
		"id":            sp.ID,
		"twig_id":       sp.TwigID,
		"title":         sp.Title,
		"season":        string(sp.Season),
		"environment":   string(sp.Environment),
		"soil_cost":     sp.SoilCost,
		"state":         string(sp.State),
		"planted_at":    stamp(sp.PlantedAt),
		"water_entries": water,
	}
	optional := map[string]string{
		"leaf_id":        sp.LeafID,
		"bloom_wither":   sp.BloomWither,
		"bloom_budding":  sp.BloomBudding,
		"bloom_flourish": sp.BloomFlourish,
	}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}

	switch sp.State {
	case StateCompleted:
		m["result"] = sp.Result
		m["capacity_gained"] = sp.CapacityGained
		m["harvested_at"] = stamp(sp.HarvestedAt)
		if sp.Reflection != "" {
			m["reflection"] = sp.Reflection
		}
	case StateUprooted:
		m["uprooted_at"] = stamp(sp.UprootedAt)
	}
	return m
}

func groupsMap(groups map[string][]string) map[string]any {
	out := make(map[string]any, len(groups))
	for k, ids := range groups {
		out[k] = ids
	}
	return out
}

func stamp(t time.Time) string {
	return event.FormatTimestamp(t)
}
