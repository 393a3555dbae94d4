// Package pve computes performance versus expectation: the actual scoring
// margin minus the modeled expected margin, with a dampening policy that
// keeps losses from masquerading as large positive surprises.
package pve

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/signalnoise/nbasignal/internal/domain/table"
)

// Config holds the dampening policy tunables.
type Config struct {
	// LossCap is the most positive PvE a loss may register.
	LossCap float64 `yaml:"loss_cap"`

	// BlowoutMargin and BlowoutFactor shrink signal from heavy losses:
	// actual margins at or below BlowoutMargin are scaled by BlowoutFactor.
	BlowoutMargin float64 `yaml:"blowout_margin"`
	BlowoutFactor float64 `yaml:"blowout_factor"`

	// WeakWinRate and WeakFactor suppress "lost by less than usual" noise
	// from teams that are simply bad: a trailing win rate below WeakWinRate
	// scales the loss PvE by WeakFactor.
	WeakWinRate    float64 `yaml:"weak_win_rate"`
	WeakFactor     float64 `yaml:"weak_factor"`
	WinRateWindow  int     `yaml:"win_rate_window"`
}

// DefaultConfig returns the documented dampening constants.
func DefaultConfig() Config {
	return Config{
		LossCap:       5.0,
		BlowoutMargin: -15.0,
		BlowoutFactor: 0.25,
		WeakWinRate:   0.40,
		WeakFactor:    0.30,
		WinRateWindow: 30,
	}
}

// Validate rejects nonsensical dampening policies.
func (c Config) Validate() error {
	if c.BlowoutMargin >= 0 {
		return fmt.Errorf("blowout_margin must be negative, got %.1f", c.BlowoutMargin)
	}
	if c.BlowoutFactor < 0 || c.BlowoutFactor > 1 {
		return fmt.Errorf("blowout_factor %.2f out of [0,1]", c.BlowoutFactor)
	}
	if c.WeakFactor < 0 || c.WeakFactor > 1 {
		return fmt.Errorf("weak_factor %.2f out of [0,1]", c.WeakFactor)
	}
	if c.WinRateWindow < 1 {
		return fmt.Errorf("win_rate_window must be at least 1, got %d", c.WinRateWindow)
	}
	return nil
}

// Dampen applies the loss-side policy to a raw PvE value. Wins pass
// through unchanged; the policy only exists because "lost by 3 instead of
// the expected 10" means something different for a contender and a tanker.
func (c Config) Dampen(rawPvE, actualMargin, trailingWinRate float64) float64 {
	if actualMargin >= 0 {
		return rawPvE
	}

	v := math.Min(rawPvE, c.LossCap)
	if actualMargin <= c.BlowoutMargin {
		v *= c.BlowoutFactor
	}
	if trailingWinRate < c.WeakWinRate {
		v *= c.WeakFactor
	}
	return v
}

// Engine fills the PvE column on a metric table.
type Engine struct {
	cfg Config
}

// NewEngine creates a PvE engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Apply computes dampened PvE for every row with an expected margin, in
// place. Zero-margin rows keep a nil PvE and therefore never reach any
// downstream statistic.
func (e *Engine) Apply(rows []table.Row) {
	trail := buildWinTrails(rows)

	for i := range rows {
		row := &rows[i]
		if row.ZeroMargin() || row.ExpectedMargin == nil {
			continue
		}

		actual := row.ActualMargin()
		raw := actual - *row.ExpectedMargin

		wr := 1.0 // no history: do not punish as a weak team
		if h := trail[row.TeamID]; h != nil {
			if r, ok := h.rateBefore(row.GameDate, e.cfg.WinRateWindow); ok {
				wr = r
			}
		}

		row.PvE = table.Ptr(math.Round(e.cfg.Dampen(raw, actual, wr)*100) / 100)
	}
}

// winTrail is a team's chronological win/loss record with prefix counts.
type winTrail struct {
	dates    []time.Time
	prefWins []int
}

func buildWinTrails(rows []table.Row) map[int64]*winTrail {
	trails := make(map[int64]*winTrail)
	for _, idx := range table.GroupByTeam(rows) {
		for _, i := range idx {
			r := rows[i]
			if r.ZeroMargin() {
				continue
			}
			h := trails[r.TeamID]
			if h == nil {
				h = &winTrail{prefWins: []int{0}}
				trails[r.TeamID] = h
			}
			h.dates = append(h.dates, r.GameDate)
			wins := h.prefWins[len(h.prefWins)-1]
			if r.Win() {
				wins++
			}
			h.prefWins = append(h.prefWins, wins)
		}
	}
	return trails
}

func (h *winTrail) rateBefore(date time.Time, n int) (rate float64, ok bool) {
	hi := sort.Search(len(h.dates), func(i int) bool {
		return !h.dates[i].Before(date)
	})
	lo := hi - n
	if lo < 0 {
		lo = 0
	}
	if hi == lo {
		return 0, false
	}
	return float64(h.prefWins[hi]-h.prefWins[lo]) / float64(hi-lo), true
}
