package state

import (
	"time"

	"github.com/roach88/grove/internal/economy"
	"github.com/roach88/grove/internal/event"
)

// SproutState is a sprout's lifecycle position. Transitions are one-way:
// active to completed, or active to uprooted.
type SproutState string

const (
	StateActive    SproutState = "active"
	StateCompleted SproutState = "completed"
	StateUprooted  SproutState = "uprooted"
)

// WaterEntry is one check-in on a sprout.
type WaterEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
	Prompt    string    `json:"prompt,omitempty"`
}

// Sprout is a goal with a lifecycle and a soil cost.
type Sprout struct {
	ID            string            `json:"id"`
	TwigID        string            `json:"twigId"`
	Title         string            `json:"title"`
	Season        event.Season      `json:"season"`
	Environment   event.Environment `json:"environment"`
	SoilCost      float64           `json:"soilCost"`
	State         SproutState       `json:"state"`
	PlantedAt     time.Time         `json:"plantedAt"`
	LeafID        string            `json:"leafId,omitempty"`
	BloomWither   string            `json:"bloomWither,omitempty"`
	BloomBudding  string            `json:"bloomBudding,omitempty"`
	BloomFlourish string            `json:"bloomFlourish,omitempty"`
	WaterEntries  []WaterEntry      `json:"waterEntries"`

	// Set once the sprout is completed.
	Result         int       `json:"result,omitempty"`
	Reflection     string    `json:"reflection,omitempty"`
	CapacityGained float64   `json:"capacityGained,omitempty"`
	HarvestedAt    time.Time `json:"harvestedAt,omitzero"`

	UprootedAt time.Time `json:"uprootedAt,omitzero"`
}

// Leaf groups related sprouts on a twig. It has no resource effect.
type Leaf struct {
	ID        string    `json:"id"`
	TwigID    string    `json:"twigId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// SunEntry is a weekly reflection. Entries are never mutated.
type SunEntry struct {
	Timestamp time.Time `json:"timestamp"`
	TwigID    string    `json:"twigId"`
	TwigLabel string    `json:"twigLabel"`
	Content   string    `json:"content"`
	Prompt    string    `json:"prompt,omitempty"`
}

// Snapshot is the derived state of a garden.
type Snapshot struct {
	SoilCapacity  float64            `json:"soilCapacity"`
	SoilAvailable float64            `json:"soilAvailable"`
	Sprouts       map[string]*Sprout `json:"sprouts"`
	Leaves        map[string]*Leaf   `json:"leaves"`
	SunEntries    []SunEntry         `json:"sunEntries"`
	Indexes       Indexes            `json:"indexes"`

	// Insertion order, so index slices come out in planting order.
	sproutOrder []string
	leafOrder   []string
}

// NewSnapshot returns the default garden.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		SoilCapacity:  economy.StartingCapacity,
		SoilAvailable: economy.StartingCapacity,
		Sprouts:       make(map[string]*Sprout),
		Leaves:        make(map[string]*Leaf),
		SunEntries:    []SunEntry{},
		Indexes:       emptyIndexes(),
	}
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		SoilCapacity:  s.SoilCapacity,
		SoilAvailable: s.SoilAvailable,
		Sprouts:       make(map[string]*Sprout, len(s.Sprouts)),
		Leaves:        make(map[string]*Leaf, len(s.Leaves)),
		SunEntries:    append([]SunEntry{}, s.SunEntries...),
		Indexes:       s.Indexes.clone(),
		sproutOrder:   append([]string(nil), s.sproutOrder...),
		leafOrder:     append([]string(nil), s.leafOrder...),
	}
	for id, sp := range s.Sprouts {
		cp := *sp
		cp.WaterEntries = append([]WaterEntry{}, sp.WaterEntries...)
		c.Sprouts[id] = &cp
	}
	for id, l := range s.Leaves {
		cp := *l
		c.Leaves[id] = &cp
	}
	return c
}

// ActiveCount returns the number of sprouts still in the active state.
func (s *Snapshot) ActiveCount() int {
	n := 0
	for _, sp := range s.Sprouts {
		if sp.State == StateActive {
			n++
		}
	}
	return n
}
