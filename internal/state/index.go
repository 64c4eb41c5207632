package state

import "sort"

// Indexes are lookup tables over a snapshot's entities, keyed by id and
// holding ids in planting (or creation) order.
type Indexes struct {
	SproutsByTwig       map[string][]string `json:"sproutsByTwig"`
	ActiveSproutsByTwig map[string][]string `json:"activeSproutsByTwig"`
	SproutsByLeaf       map[string][]string `json:"sproutsByLeaf"`
	LeavesByTwig        map[string][]string `json:"leavesByTwig"`
}

func emptyIndexes() Indexes {
	return Indexes{
		SproutsByTwig:       make(map[string][]string),
		ActiveSproutsByTwig: make(map[string][]string),
		SproutsByLeaf:       make(map[string][]string),
		LeavesByTwig:        make(map[string][]string),
	}
}

func (ix Indexes) clone() Indexes {
	return Indexes{
		SproutsByTwig:       cloneGroups(ix.SproutsByTwig),
		ActiveSproutsByTwig: cloneGroups(ix.ActiveSproutsByTwig),
		SproutsByLeaf:       cloneGroups(ix.SproutsByLeaf),
		LeavesByTwig:        cloneGroups(ix.LeavesByTwig),
	}
}

func cloneGroups(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// BuildIndexes recomputes s.Indexes from the snapshot's entities.
func BuildIndexes(s *Snapshot) {
	ix := emptyIndexes()
	for _, id := range s.sproutOrder {
		sp, ok := s.Sprouts[id]
		if !ok {
			continue
		}
		ix.SproutsByTwig[sp.TwigID] = append(ix.SproutsByTwig[sp.TwigID], id)
		if sp.State == StateActive {
			ix.ActiveSproutsByTwig[sp.TwigID] = append(ix.ActiveSproutsByTwig[sp.TwigID], id)
		}
		if sp.LeafID != "" {
			ix.SproutsByLeaf[sp.LeafID] = append(ix.SproutsByLeaf[sp.LeafID], id)
		}
	}
	for _, id := range s.leafOrder {
		l, ok := s.Leaves[id]
		if !ok {
			continue
		}
		ix.LeavesByTwig[l.TwigID] = append(ix.LeavesByTwig[l.TwigID], id)
	}
	s.Indexes = ix
}

// Twigs returns every twig that has a sprout or a leaf, sorted.
func (s *Snapshot) Twigs() []string {
	seen := make(map[string]bool, len(s.Indexes.SproutsByTwig)+len(s.Indexes.LeavesByTwig))
	var out []string
	for _, m := range []map[string][]string{s.Indexes.SproutsByTwig, s.Indexes.LeavesByTwig} {
		for id := range m {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	sort.Strings(out)
	return out
}

// SproutsForTwig returns every sprout on a twig. An unknown twig yields an
// empty slice.
func (s *Snapshot) SproutsForTwig(twigID string) []Sprout {
	return s.sprouts(s.Indexes.SproutsByTwig[twigID])
}

// ActiveSproutsForTwig returns the twig's sprouts that are still active.
func (s *Snapshot) ActiveSproutsForTwig(twigID string) []Sprout {
	return s.sprouts(s.Indexes.ActiveSproutsByTwig[twigID])
}

// SproutsForLeaf returns the sprouts grouped under a leaf.
func (s *Snapshot) SproutsForLeaf(leafID string) []Sprout {
	return s.sprouts(s.Indexes.SproutsByLeaf[leafID])
}

// LeavesForTwig returns the leaves created on a twig.
func (s *Snapshot) LeavesForTwig(twigID string) []Leaf {
	ids := s.Indexes.LeavesByTwig[twigID]
	out := make([]Leaf, 0, len(ids))
	for _, id := range ids {
		if l, ok := s.Leaves[id]; ok {
			out = append(out, *l)
		}
	}
	return out
}

func (s *Snapshot) sprouts(ids []string) []Sprout {
	out := make([]Sprout, 0, len(ids))
	for _, id := range ids {
		if sp, ok := s.Sprouts[id]; ok {
			cp := *sp
			cp.WaterEntries = append([]WaterEntry{}, sp.WaterEntries...)
			out = append(out, cp)
		}
	}
	return out
}
