// Package momentum computes the Rolling Performance Momentum Index: a
// recency-weighted mean of dampened PvE over a trailing window, penalized
// by within-window volatility so a noisy hot streak scores below a steady
// one.
//
// This is the canonical momentum policy. A win/loss-asymmetric dual-window
// variant without the volatility penalty existed in earlier model
// iterations and was rejected; mixing the two silently is the failure mode
// this package is written to avoid.
package momentum

import (
	"fmt"
	"math"

	"github.com/signalnoise/nbasignal/internal/domain/table"
)

// Config holds the momentum window sizes and volatility penalty scale.
type Config struct {
	Window      int `yaml:"window"`
	ShortWindow int `yaml:"short_window"`
	LongWindow  int `yaml:"long_window"`

	// VolPenaltyScale divides the window std in the penalty
	// 1/(1+std/scale): larger values soften the penalty.
	VolPenaltyScale float64 `yaml:"vol_penalty_scale"`
}

// DefaultConfig returns the reference windows: primary 5, short 3, long 8.
func DefaultConfig() Config {
	return Config{
		Window:          5,
		ShortWindow:     3,
		LongWindow:      8,
		VolPenaltyScale: 10.0,
	}
}

// Validate rejects unusable window shapes.
func (c Config) Validate() error {
	if c.Window < 2 {
		return fmt.Errorf("window must be at least 2, got %d", c.Window)
	}
	if c.ShortWindow < 2 || c.LongWindow <= c.ShortWindow {
		return fmt.Errorf("short/long windows must satisfy 2 <= short < long, got %d/%d",
			c.ShortWindow, c.LongWindow)
	}
	if c.VolPenaltyScale <= 0 {
		return fmt.Errorf("vol_penalty_scale must be positive, got %.1f", c.VolPenaltyScale)
	}
	return nil
}

// Score computes the momentum value for one full window, oldest value
// first: linear-ramp weights 1..N so recent games dominate, then the
// volatility penalty.
func (c Config) Score(window []float64) float64 {
	var weighted, weightSum float64
	for i, v := range window {
		w := float64(i + 1)
		weighted += v * w
		weightSum += w
	}
	mean := weighted / weightSum

	penalty := 1.0 / (1.0 + popStd(window)/c.VolPenaltyScale)
	return math.Round(mean*penalty*100) / 100
}

// Engine fills the momentum column group on a metric table.
type Engine struct {
	cfg Config
}

// NewEngine creates a momentum engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Apply computes RPMI columns per team, in place. Rows without PvE (ties,
// or rows upstream of the PvE stage) are skipped entirely, and a window
// with insufficient history yields nil, never a placeholder number.
func (e *Engine) Apply(rows []table.Row) {
	for _, idx := range table.GroupByTeam(rows) {
		e.applyTeam(rows, idx)
	}
}

func (e *Engine) applyTeam(rows []table.Row, idx []int) {
	primary := newRing(e.cfg.Window)
	short := newRing(e.cfg.ShortWindow)
	long := newRing(e.cfg.LongWindow)

	var prevRPMI *float64

	for _, i := range idx {
		row := &rows[i]
		if row.PvE == nil {
			continue
		}

		primary.push(*row.PvE)
		short.push(*row.PvE)
		long.push(*row.PvE)

		if primary.full() {
			rpmi := e.cfg.Score(primary.values())
			row.RPMI = table.Ptr(rpmi)
			if prevRPMI != nil {
				row.RPMIDelta = table.Ptr(math.Round((rpmi-*prevRPMI)*100) / 100)
			}
			prevRPMI = row.RPMI
		}
		if short.full() {
			row.RPMIShort = table.Ptr(e.cfg.Score(short.values()))
		}
		if long.full() {
			row.RPMILong = table.Ptr(e.cfg.Score(long.values()))
		}
		if row.RPMIShort != nil && row.RPMILong != nil {
			row.RPMIAccel = table.Ptr(math.Round((*row.RPMIShort-*row.RPMILong)*100) / 100)
		}
	}
}

// ring is a fixed-size sliding window over a team's PvE sequence.
type ring struct {
	buf  []float64
	size int
	n    int
	head int
}

func newRing(size int) *ring {
	return &ring{buf: make([]float64, size), size: size}
}

func (r *ring) push(v float64) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % r.size
	if r.n < r.size {
		r.n++
	}
}

func (r *ring) full() bool { return r.n == r.size }

// values returns the window oldest first.
func (r *ring) values() []float64 {
	out := make([]float64, 0, r.n)
	start := (r.head - r.n + r.size) % r.size
	for i := 0; i < r.n; i++ {
		out = append(out, r.buf[(start+i)%r.size])
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
