// Package expectation models the expected scoring margin for a (team, game)
// from recent opponent-adjusted form, a home-court adjustment, and a
// fatigue penalty, bounded so one hot month can never compound into an
// implausible expectation.
package expectation

import (
	"fmt"
	"math"
)

// Bound modes for the expected margin.
const (
	BoundTanh  = "tanh"
	BoundClamp = "clamp"
)

// Config holds the expectation model tunables.
type Config struct {
	// WindowGames is the trailing per-team window feeding form and win
	// rates. Strictly prior games only; zero-margin rows are excluded.
	WindowGames int `yaml:"window_games"`

	HomeAdvantage float64 `yaml:"home_advantage"`
	FatigueWeight float64 `yaml:"fatigue_weight"`

	// UseWinDiff adds a win-rate differential term scaled by WinDiffScale.
	UseWinDiff   bool    `yaml:"use_win_diff"`
	WinDiffScale float64 `yaml:"win_diff_scale"`

	// OpponentFormK controls how strongly an opponent's own form scales a
	// past margin: factor = clamp((opp_form+K)/K, 0.5, 1.5).
	OpponentFormK float64 `yaml:"opponent_form_k"`

	// BoundMode selects the runaway-expectation guard: "tanh" applies
	// MaxMargin*tanh(raw/MaxMargin); "clamp" hard-clamps to ±ClampMargin.
	BoundMode   string  `yaml:"bound_mode"`
	MaxMargin   float64 `yaml:"max_margin"`
	ClampMargin float64 `yaml:"clamp_margin"`
}

// DefaultConfig returns the reference constants of the most recent model
// iteration: 15-game window, home advantage 4.5, fatigue weight 3.0, tanh
// bound at 12.
func DefaultConfig() Config {
	return Config{
		WindowGames:   15,
		HomeAdvantage: 4.5,
		FatigueWeight: 3.0,
		UseWinDiff:    true,
		WinDiffScale:  6.0,
		OpponentFormK: 10.0,
		BoundMode:     BoundTanh,
		MaxMargin:     12.0,
		ClampMargin:   25.0,
	}
}

// Validate rejects configurations the model cannot run with.
func (c Config) Validate() error {
	if c.WindowGames < 1 {
		return fmt.Errorf("window_games must be at least 1, got %d", c.WindowGames)
	}
	switch c.BoundMode {
	case BoundTanh:
		if c.MaxMargin <= 0 {
			return fmt.Errorf("max_margin must be positive for tanh bound, got %.1f", c.MaxMargin)
		}
	case BoundClamp:
		if c.ClampMargin <= 0 {
			return fmt.Errorf("clamp_margin must be positive for clamp bound, got %.1f", c.ClampMargin)
		}
	default:
		return fmt.Errorf("unknown bound_mode %q", c.BoundMode)
	}
	if c.OpponentFormK <= 0 {
		return fmt.Errorf("opponent_form_k must be positive, got %.1f", c.OpponentFormK)
	}
	return nil
}

// Breakdown carries the expected margin and its components. Components are
// always present; the caller records them so the expectation can be audited
// game by game.
type Breakdown struct {
	BaseFormDiff float64
	WinDiff      float64
	HomeAwayAdj  float64
	FatigueAdj   float64
	Expected     float64
}

// Bound applies the configured runaway guard to a raw expectation.
func (c Config) Bound(raw float64) float64 {
	switch c.BoundMode {
	case BoundClamp:
		return clamp(raw, -c.ClampMargin, c.ClampMargin)
	default:
		return c.MaxMargin * math.Tanh(raw/c.MaxMargin)
	}
}

// HomeAwayAdj returns the fixed home-court term for the given side.
func (c Config) HomeAwayAdj(isHome bool) float64 {
	if isHome {
		return c.HomeAdvantage
	}
	return -c.HomeAdvantage
}

// FatigueAdj converts a 0-100 fatigue index into a negative margin term.
func (c Config) FatigueAdj(fatigueIndex float64) float64 {
	normalized := clamp(fatigueIndex/100.0, 0, 1)
	return -normalized * c.FatigueWeight
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
