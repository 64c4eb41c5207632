package economy

import (
	"math"

	"github.com/roach88/grove/internal/event"
)

const (
	// StartingCapacity is the soil capacity and availability of a new garden.
	StartingCapacity = 10.0

	// MaxCapacity is the ceiling soil capacity approaches but never exceeds.
	MaxCapacity = 120.0

	// WaterRecovery is the soil returned by watering an active sprout.
	WaterRecovery = 0.05

	// SunRecovery is the soil returned by one sun reflection.
	SunRecovery = 0.35

	// UprootRefundRate is the share of a sprout's soil cost returned when
	// it is uprooted.
	UprootRefundRate = 0.25
)

var plantingCosts = map[event.Season]map[event.Environment]float64{
	event.Season2W: {event.EnvFertile: 2, event.EnvFirm: 3, event.EnvBarren: 4},
	event.Season1M: {event.EnvFertile: 3, event.EnvFirm: 5, event.EnvBarren: 6},
	event.Season3M: {event.EnvFertile: 5, event.EnvFirm: 8, event.EnvBarren: 10},
	event.Season6M: {event.EnvFertile: 8, event.EnvFirm: 12, event.EnvBarren: 16},
	event.Season1Y: {event.EnvFertile: 12, event.EnvFirm: 18, event.EnvBarren: 24},
}

// PlantingCost returns the soil a new sprout costs, or 0 for an unknown
// season or environment.
func PlantingCost(season event.Season, env event.Environment) float64 {
	return plantingCosts[season][env]
}

// UprootRefund returns the soil an uprooted sprout gives back.
func UprootRefund(soilCost float64) float64 {
	return math.Max(0, soilCost) * UprootRefundRate
}

var seasonBase = map[event.Season]float64{
	event.Season2W: 0.26,
	event.Season1M: 0.56,
	event.Season3M: 1.95,
	event.Season6M: 4.16,
	event.Season1Y: 8.84,
}

var envMultiplier = map[event.Environment]float64{
	event.EnvFertile: 1.1,
	event.EnvFirm:    1.75,
	event.EnvBarren:  2.4,
}

var resultMultiplier = map[int]float64{
	1: 0.4,
	2: 0.55,
	3: 0.7,
	4: 0.85,
	5: 1.0,
}

// defaultResultMultiplier applies to any result outside 1..5.
const defaultResultMultiplier = 0.7

// CapacityReward computes the capacity a harvest grants. The reward shrinks
// as capacityBefore approaches MaxCapacity and is exactly 0 at or above it.
func CapacityReward(season event.Season, env event.Environment, result int, capacityBefore float64) float64 {
	rm, ok := resultMultiplier[result]
	if !ok {
		rm = defaultResultMultiplier
	}
	return seasonBase[season] * envMultiplier[env] * rm * diminishing(capacityBefore)
}

func diminishing(capacity float64) float64 {
	if capacity >= MaxCapacity {
		return 0
	}
	headroom := 1 - capacity/MaxCapacity
	if headroom <= 0 {
		return 0
	}
	return math.Pow(headroom, 1.5)
}

// Clamp bounds available soil to [0, capacity].
func Clamp(available, capacity float64) float64 {
	return math.Max(0, math.Min(available, capacity))
}
