// Package consistency derives the consistency-vs-volatility view: rolling
// population standard deviation of PvE mapped to a bounded consistency
// score, with win-only and loss-only sub-views and a rolling win rate.
package consistency

import (
	"fmt"
	"math"

	"github.com/signalnoise/nbasignal/internal/domain/table"
)

// Labels assigned to the consistency score.
const (
	LabelInsufficient   = "Insufficient"
	LabelForming        = "Forming"
	LabelVeryVolatile   = "Very Volatile"
	LabelVolatile       = "Volatile"
	LabelConsistent     = "Consistent"
	LabelVeryConsistent = "Very Consistent"
)

// Config holds the CVV tunables.
type Config struct {
	Window int `yaml:"window"`

	// VolScale divides volatility in consistency = 1/(1+vol/scale).
	// Typical PvE std is 5-20 points, so the reference scale keeps the
	// score in a smooth usable band.
	VolScale float64 `yaml:"vol_scale"`

	// MinSubsample is the minimum number of values in a win/loss
	// sub-window before its consistency is reported; below it a lone
	// game would read as perfect consistency.
	MinSubsample int `yaml:"min_subsample"`

	// MinGamesForLabel gates the descriptive label: younger samples are
	// "Forming" regardless of score.
	MinGamesForLabel int `yaml:"min_games_for_label"`

	VeryConsistentMin float64 `yaml:"very_consistent_min"`
	ConsistentMin     float64 `yaml:"consistent_min"`
	VolatileMin       float64 `yaml:"volatile_min"`
}

// DefaultConfig returns the most recent iteration's constants:
// window 10, vol scale 15.
func DefaultConfig() Config {
	return Config{
		Window:            10,
		VolScale:          15.0,
		MinSubsample:      3,
		MinGamesForLabel:  10,
		VeryConsistentMin: 0.65,
		ConsistentMin:     0.50,
		VolatileMin:       0.35,
	}
}

// Validate rejects unusable CVV configurations.
func (c Config) Validate() error {
	if c.Window < 2 {
		return fmt.Errorf("window must be at least 2, got %d", c.Window)
	}
	if c.VolScale <= 0 {
		return fmt.Errorf("vol_scale must be positive, got %.1f", c.VolScale)
	}
	if c.MinSubsample < 2 {
		return fmt.Errorf("min_subsample must be at least 2, got %d", c.MinSubsample)
	}
	if !(c.VolatileMin < c.ConsistentMin && c.ConsistentMin < c.VeryConsistentMin) {
		return fmt.Errorf("consistency label thresholds must be strictly increasing")
	}
	return nil
}

// Consistency maps a volatility value to the bounded (0,1] score.
func (c Config) Consistency(vol float64) float64 {
	return math.Round(1.0/(1.0+vol/c.VolScale)*1000) / 1000
}

// Label buckets a consistency score, gated by sample size. The games gate
// wins over a missing score: a young sample is "Forming" even while the
// window has not filled yet, and only a mature sample with no score reads
// "Insufficient".
func (c Config) Label(consistency *float64, gamesPlayed int) string {
	if gamesPlayed < c.MinGamesForLabel {
		return LabelForming
	}
	if consistency == nil {
		return LabelInsufficient
	}
	switch v := *consistency; {
	case v >= c.VeryConsistentMin:
		return LabelVeryConsistent
	case v >= c.ConsistentMin:
		return LabelConsistent
	case v >= c.VolatileMin:
		return LabelVolatile
	default:
		return LabelVeryVolatile
	}
}

// Engine fills the CVV column group on a metric table.
type Engine struct {
	cfg Config
}

// NewEngine creates a CVV engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Apply computes the CVV columns per team, in place. The window slides over
// the team's PvE sequence with running sums, one pass per team.
func (e *Engine) Apply(rows []table.Row) {
	for _, idx := range table.GroupByTeam(rows) {
		e.applyTeam(rows, idx)
	}
}

type windowEntry struct {
	pve    float64
	margin float64
}

func (e *Engine) applyTeam(rows []table.Row, idx []int) {
	w := e.cfg.Window
	window := make([]windowEntry, 0, w)
	gamesPlayed := 0

	for _, i := range idx {
		row := &rows[i]
		gamesPlayed++
		row.GamesPlayed = gamesPlayed

		if row.PvE == nil {
			row.ConsistencyLabel = e.cfg.Label(nil, gamesPlayed)
			continue
		}

		window = append(window, windowEntry{pve: *row.PvE, margin: row.ActualMargin()})
		if len(window) > w {
			window = window[1:]
		}

		row.GamesInWindow = len(window)

		var sum float64
		wins, losses := 0, 0
		winPvE := make([]float64, 0, len(window))
		lossPvE := make([]float64, 0, len(window))
		for _, en := range window {
			sum += en.pve
			if en.margin > 0 {
				wins++
				winPvE = append(winPvE, en.pve)
			} else if en.margin < 0 {
				losses++
				lossPvE = append(lossPvE, en.pve)
			}
		}

		row.WinsWindow = wins
		row.LossesWindow = losses
		row.AvgPvEWindow = table.Ptr(round2(sum / float64(len(window))))
		if wins+losses > 0 {
			row.WinRateWindow = table.Ptr(round3(float64(wins) / float64(wins+losses)))
		}

		if len(window) == w {
			vol := round2(popStd(pveValues(window)))
			row.PvEVolatility = table.Ptr(vol)
			row.Consistency = table.Ptr(e.cfg.Consistency(vol))
		}
		if len(winPvE) >= e.cfg.MinSubsample {
			row.ConsistencyWin = table.Ptr(e.cfg.Consistency(round2(popStd(winPvE))))
		}
		if len(lossPvE) >= e.cfg.MinSubsample {
			row.ConsistencyLoss = table.Ptr(e.cfg.Consistency(round2(popStd(lossPvE))))
		}

		row.ConsistencyLabel = e.cfg.Label(row.Consistency, gamesPlayed)
	}
}

func pveValues(window []windowEntry) []float64 {
	out := make([]float64, len(window))
	for i, en := range window {
		out[i] = en.pve
	}
	return out
}

func popStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
