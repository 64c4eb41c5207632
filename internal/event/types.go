package event

// Type is the wire tag of an event variant.
type Type string

const (
	TypeLeafCreated     Type = "leaf_created"
	TypeSproutPlanted   Type = "sprout_planted"
	TypeSproutWatered   Type = "sprout_watered"
	TypeSproutHarvested Type = "sprout_harvested"
	TypeSproutUprooted  Type = "sprout_uprooted"
	TypeSproutEdited    Type = "sprout_edited"
	TypeSunShone        Type = "sun_shone"
)

// Types lists every known variant in declaration order.
var Types = []Type{
	TypeLeafCreated,
	TypeSproutPlanted,
	TypeSproutWatered,
	TypeSproutHarvested,
	TypeSproutUprooted,
	TypeSproutEdited,
	TypeSunShone,
}

// Valid reports whether t names a known variant.
func (t Type) Valid() bool {
	_, ok := decoders[t]
	return ok
}

// Season is a sprout's target duration.
type Season string

const (
	Season2W Season = "2w"
	Season1M Season = "1m"
	Season3M Season = "3m"
	Season6M Season = "6m"
	Season1Y Season = "1y"
)

// Seasons lists the closed season enum, shortest first.
var Seasons = []Season{Season2W, Season1M, Season3M, Season6M, Season1Y}

// Valid reports whether s is one of the closed season values.
func (s Season) Valid() bool {
	for _, v := range Seasons {
		if v == s {
			return true
		}
	}
	return false
}

// Environment is a sprout's difficulty tier.
type Environment string

const (
	EnvFertile Environment = "fertile"
	EnvFirm    Environment = "firm"
	EnvBarren  Environment = "barren"
)

// Environments lists the closed environment enum, easiest first.
var Environments = []Environment{EnvFertile, EnvFirm, EnvBarren}

// Valid reports whether e is one of the closed environment values.
func (e Environment) Valid() bool {
	for _, v := range Environments {
		if v == e {
			return true
		}
	}
	return false
}
