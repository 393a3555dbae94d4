// Package fatigue scores schedule load per (team, game): trailing game
// density, travel distance between consecutive sites, back-to-backs, and a
// rest-recovery discount, combined into a bounded fatigue index and tier.
package fatigue

import (
	"fmt"
	"math"
)

// Tier buckets the fatigue index for presentation.
type Tier string

const (
	TierLow      Tier = "Low"
	TierElevated Tier = "Elevated"
	TierHigh     Tier = "High"
	TierCritical Tier = "Critical"
)

// DensityStep is one rung of a monotone step curve: counts up to and
// including UpTo score Score. The final step of a curve acts as catch-all.
type DensityStep struct {
	UpTo  int     `yaml:"up_to"`
	Score float64 `yaml:"score"`
}

// Config holds every fatigue tunable. Defaults carry the calibrated
// reference constants; all of them are exposed through the pipeline config
// file so the curves can be re-tuned without a rebuild.
type Config struct {
	Density7Steps  []DensityStep `yaml:"density_7d_steps"`
	Density14Steps []DensityStep `yaml:"density_14d_steps"`
	Density7Weight float64       `yaml:"density_7d_weight"`

	B2BBonus     float64 `yaml:"b2b_bonus"`
	TravelWeight float64 `yaml:"travel_weight"`
	ComboBonus   float64 `yaml:"combo_bonus"`

	TravelShortMiles  float64 `yaml:"travel_short_miles"`
	TravelMediumMiles float64 `yaml:"travel_medium_miles"`
	UnknownTravelLoad int     `yaml:"unknown_travel_load"`

	// DefaultRestDays stands in for days-since-last-game when a team has
	// no history (season opener): long enough rest to be a low baseline.
	DefaultRestDays int `yaml:"default_rest_days"`

	MaxIndex float64 `yaml:"max_index"`

	TierElevatedMin float64 `yaml:"tier_elevated_min"`
	TierHighMin     float64 `yaml:"tier_high_min"`
	TierCriticalMin float64 `yaml:"tier_critical_min"`
}

// DefaultConfig returns the calibrated reference constants
// (b2b_bonus=8, travel_weight=4, combo_bonus=6).
func DefaultConfig() Config {
	return Config{
		Density7Steps: []DensityStep{
			{UpTo: 2, Score: 10},
			{UpTo: 3, Score: 40},
			{UpTo: 4, Score: 75},
			{UpTo: math.MaxInt32, Score: 95},
		},
		Density14Steps: []DensityStep{
			{UpTo: 4, Score: 10},
			{UpTo: 5, Score: 35},
			{UpTo: 6, Score: 55},
			{UpTo: 7, Score: 75},
			{UpTo: math.MaxInt32, Score: 95},
		},
		Density7Weight: 0.65,

		B2BBonus:     8,
		TravelWeight: 4,
		ComboBonus:   6,

		TravelShortMiles:  300,
		TravelMediumMiles: 800,
		UnknownTravelLoad: 1,

		DefaultRestDays: 5,
		MaxIndex:        100,

		TierElevatedMin: 30,
		TierHighMin:     50,
		TierCriticalMin: 70,
	}
}

// Validate rejects configurations that would break the engine's bounds or
// the monotonicity of the density curves.
func (c Config) Validate() error {
	if c.Density7Weight < 0 || c.Density7Weight > 1 {
		return fmt.Errorf("density_7d_weight %.2f out of [0,1]", c.Density7Weight)
	}
	if c.MaxIndex <= 0 {
		return fmt.Errorf("max_index must be positive, got %.1f", c.MaxIndex)
	}
	for _, curve := range [][]DensityStep{c.Density7Steps, c.Density14Steps} {
		if len(curve) == 0 {
			return fmt.Errorf("density step curve is empty")
		}
		for i := 1; i < len(curve); i++ {
			if curve[i].UpTo <= curve[i-1].UpTo {
				return fmt.Errorf("density step breakpoints must increase")
			}
			if curve[i].Score < curve[i-1].Score {
				return fmt.Errorf("density step scores must be non-decreasing")
			}
		}
	}
	if !(c.TierElevatedMin < c.TierHighMin && c.TierHighMin < c.TierCriticalMin) {
		return fmt.Errorf("fatigue tier thresholds must be strictly increasing")
	}
	return nil
}

func stepScore(curve []DensityStep, count int) float64 {
	for _, s := range curve {
		if count <= s.UpTo {
			return s.Score
		}
	}
	return curve[len(curve)-1].Score
}

// Density7Score maps a trailing 7-day game count onto the density curve.
func (c Config) Density7Score(gamesLast7 int) float64 {
	return stepScore(c.Density7Steps, gamesLast7)
}

// Density14Score maps a trailing 14-day game count onto the density curve.
func (c Config) Density14Score(gamesLast14 int) float64 {
	return stepScore(c.Density14Steps, gamesLast14)
}

// DensityScore blends the 7- and 14-day curves.
func (c Config) DensityScore(gamesLast7, gamesLast14 int) float64 {
	blend := c.Density7Weight*c.Density7Score(gamesLast7) +
		(1-c.Density7Weight)*c.Density14Score(gamesLast14)
	return math.Round(blend*10) / 10
}

// RecoveryOffset models the benefit of rest days as a penalty multiplier
// discount: none on a back-to-back, flattening toward 0.5 at five or more
// days so long layoffs are not over-rewarded.
func RecoveryOffset(daysSinceLastGame int) float64 {
	switch {
	case daysSinceLastGame <= 1:
		return 0.00
	case daysSinceLastGame == 2:
		return 0.10
	case daysSinceLastGame == 3:
		return 0.22
	case daysSinceLastGame == 4:
		return 0.35
	default:
		return 0.50
	}
}

// Index combines density, travel, and rest into the fatigue index,
// clamped to [0, MaxIndex].
func (c Config) Index(densityScore float64, daysSinceLastGame, travelLoad int) float64 {
	b2b := daysSinceLastGame == 1

	raw := densityScore + float64(travelLoad)*c.TravelWeight
	if b2b {
		raw += c.B2BBonus
		if travelLoad >= 2 {
			raw += c.ComboBonus
		}
	}

	idx := raw * (1 - RecoveryOffset(daysSinceLastGame))
	idx = math.Round(idx*10) / 10

	if idx < 0 {
		return 0
	}
	if idx > c.MaxIndex {
		return c.MaxIndex
	}
	return idx
}

// TierFor buckets an index value.
func (c Config) TierFor(index float64) Tier {
	switch {
	case index < c.TierElevatedMin:
		return TierLow
	case index < c.TierHighMin:
		return TierElevated
	case index < c.TierCriticalMin:
		return TierHigh
	default:
		return TierCritical
	}
}
