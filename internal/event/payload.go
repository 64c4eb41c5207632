package event

// Payload is implemented by the seven event variants and nothing else.
type Payload interface {
	eventType() Type
	entityID() string
}

// LeafCreated introduces a named grouping of sprouts on a twig.
type LeafCreated struct {
	LeafID string `json:"leafId" validate:"required"`
	TwigID string `json:"twigId" validate:"required"`
	Name   string `json:"name"`
}

// SproutPlanted starts a sprout and spends its soil cost.
type SproutPlanted struct {
	SproutID      string      `json:"sproutId" validate:"required"`
	TwigID        string      `json:"twigId" validate:"required"`
	Title         string      `json:"title"`
	Season        Season      `json:"season" validate:"required,oneof=2w 1m 3m 6m 1y"`
	Environment   Environment `json:"environment" validate:"required,oneof=fertile firm barren"`
	SoilCost      float64     `json:"soilCost" validate:"gte=0"`
	LeafID        string      `json:"leafId,omitempty"`
	BloomWither   string      `json:"bloomWither,omitempty"`
	BloomBudding  string      `json:"bloomBudding,omitempty"`
	BloomFlourish string      `json:"bloomFlourish,omitempty"`
}

// SproutWatered records a daily check-in on a sprout.
type SproutWatered struct {
	SproutID string `json:"sproutId" validate:"required"`
	Content  string `json:"content"`
	Prompt   string `json:"prompt,omitempty"`
}

// SproutHarvested completes a sprout. CapacityGained is computed by the
// client at harvest time and replayed verbatim.
type SproutHarvested struct {
	SproutID       string  `json:"sproutId" validate:"required"`
	Result         int     `json:"result" validate:"min=1,max=5"`
	Reflection     string  `json:"reflection,omitempty"`
	CapacityGained float64 `json:"capacityGained" validate:"gte=0"`
}

// SproutUprooted abandons a sprout and returns part of its soil.
type SproutUprooted struct {
	SproutID     string  `json:"sproutId" validate:"required"`
	SoilReturned float64 `json:"soilReturned" validate:"gte=0"`
}

// SproutEdited is a sparse update: nil fields are left untouched.
type SproutEdited struct {
	SproutID      string  `json:"sproutId" validate:"required"`
	Title         *string `json:"title,omitempty"`
	LeafID        *string `json:"leafId,omitempty"`
	BloomWither   *string `json:"bloomWither,omitempty"`
	BloomBudding  *string `json:"bloomBudding,omitempty"`
	BloomFlourish *string `json:"bloomFlourish,omitempty"`
}

// SunShone records a weekly reflection on a twig.
type SunShone struct {
	TwigID    string `json:"twigId" validate:"required"`
	TwigLabel string `json:"twigLabel"`
	Content   string `json:"content"`
	Prompt    string `json:"prompt,omitempty"`
}

func (LeafCreated) eventType() Type     { return TypeLeafCreated }
func (SproutPlanted) eventType() Type   { return TypeSproutPlanted }
func (SproutWatered) eventType() Type   { return TypeSproutWatered }
func (SproutHarvested) eventType() Type { return TypeSproutHarvested }
func (SproutUprooted) eventType() Type  { return TypeSproutUprooted }
func (SproutEdited) eventType() Type    { return TypeSproutEdited }
func (SunShone) eventType() Type        { return TypeSunShone }

func (p LeafCreated) entityID() string     { return p.LeafID }
func (p SproutPlanted) entityID() string   { return p.SproutID }
func (p SproutWatered) entityID() string   { return p.SproutID }
func (p SproutHarvested) entityID() string { return p.SproutID }
func (p SproutUprooted) entityID() string  { return p.SproutID }
func (p SproutEdited) entityID() string    { return p.SproutID }
func (p SunShone) entityID() string        { return p.TwigID }
