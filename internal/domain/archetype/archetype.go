// Package archetype is the pure classification layer on top of the CVV and
// momentum outputs: per-(team, game) style archetypes and per-game
// environment labels. It holds no state and never feeds numbers back into
// the pipeline.
package archetype

import (
	"fmt"
)

// Archetype labels. Outcome truth is a hard veto layer: the win rate alone
// decides the winner/loser tier, and PvE or consistency can only modulate
// style within a tier.
const (
	Forming             = "Forming"
	MethodicalContender = "Methodical Contender"
	StreakyWinner       = "Streaky Winner"
	ConsistentlyBad     = "Consistently Bad"
	VolatileStruggler   = "Volatile Struggler"
	KnownQuantity       = "Known Quantity"
	HighCeilingTeam     = "High-Ceiling Team"
	HighVarianceTeam    = "High-Variance Team"
)

// Direction labels, orthogonal to archetypes and purely descriptive.
const (
	ConvincingWins  = "Convincing Wins"
	HeavyLosses     = "Heavy Losses"
	ResilientLosses = "Resilient Losses"
	MixedResults    = "Mixed Results"
)

// Config holds the classification thresholds.
type Config struct {
	// WinnerWR and LoserWR bound the clear-outcome tiers. They must
	// straddle 0.50 so the veto contract holds: a sub-.500 team can never
	// be labeled a winner archetype, nor an above-.500 team a bad one.
	WinnerWR float64 `yaml:"winner_win_rate"`
	LoserWR  float64 `yaml:"loser_win_rate"`

	HighConsistency float64 `yaml:"high_consistency"`

	// StylePvEAbs is the |avg PvE| above which a middle-tier team reads
	// as high-ceiling rather than merely high-variance.
	StylePvEAbs float64 `yaml:"style_pve_abs"`

	// ResilientLossConsistency marks middle-tier teams whose losses are
	// tightly clustered.
	ResilientLossConsistency float64 `yaml:"resilient_loss_consistency"`
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		WinnerWR:                 0.65,
		LoserWR:                  0.35,
		HighConsistency:          0.60,
		StylePvEAbs:              2.5,
		ResilientLossConsistency: 0.70,
	}
}

// Validate enforces the veto contract structurally.
func (c Config) Validate() error {
	if c.WinnerWR < 0.50 {
		return fmt.Errorf("winner_win_rate %.2f below 0.50 breaks the outcome veto", c.WinnerWR)
	}
	if c.LoserWR > 0.50 {
		return fmt.Errorf("loser_win_rate %.2f above 0.50 breaks the outcome veto", c.LoserWR)
	}
	if c.LoserWR >= c.WinnerWR {
		return fmt.Errorf("loser_win_rate must be below winner_win_rate")
	}
	return nil
}

// Inputs are the per-row fields the classifier reads. Nil means the
// upstream stage could not compute the value yet.
type Inputs struct {
	WinRateWindow   *float64
	Consistency     *float64
	ConsistencyLoss *float64
	AvgPvEWindow    *float64
}

// Classify assigns the style archetype. Missing win rate or consistency
// means the team is still forming, not that it is average.
func (c Config) Classify(in Inputs) string {
	if in.WinRateWindow == nil || in.Consistency == nil {
		return Forming
	}
	wr := *in.WinRateWindow
	cons := *in.Consistency

	switch {
	case wr >= c.WinnerWR:
		if cons >= c.HighConsistency {
			return MethodicalContender
		}
		return StreakyWinner

	case wr <= c.LoserWR:
		if cons >= c.HighConsistency {
			return ConsistentlyBad
		}
		return VolatileStruggler
	}

	// Middle tier: not winners or losers by results.
	if cons >= c.HighConsistency {
		return KnownQuantity
	}
	if in.AvgPvEWindow != nil && abs(*in.AvgPvEWindow) >= c.StylePvEAbs {
		return HighCeilingTeam
	}
	return HighVarianceTeam
}

// Direction assigns the descriptive outcome-shape label.
func (c Config) Direction(in Inputs) string {
	if in.WinRateWindow == nil {
		return Forming
	}
	wr := *in.WinRateWindow

	switch {
	case wr >= c.WinnerWR:
		return ConvincingWins
	case wr <= c.LoserWR:
		return HeavyLosses
	}
	if in.ConsistencyLoss != nil && *in.ConsistencyLoss >= c.ResilientLossConsistency {
		return ResilientLosses
	}
	return MixedResults
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
