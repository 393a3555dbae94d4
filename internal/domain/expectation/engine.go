package expectation

import (
	"math"

	"github.com/signalnoise/nbasignal/internal/domain/facts"
	"github.com/signalnoise/nbasignal/internal/domain/table"
)

// Engine fills the expectation column group on a metric table.
type Engine struct {
	cfg Config
}

// NewEngine creates an expectation engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Apply computes the expected margin breakdown for every row, in place.
// When neither side has any window history the form terms fall back to
// zero and the home/fatigue terms still apply; a season opener is a valid
// input, not an error.
func (e *Engine) Apply(rows []table.Row) {
	histories := buildHistories(rows)

	for i := range rows {
		row := &rows[i]
		b := e.breakdownFor(row, histories)

		row.BaseFormDiff = table.Ptr(round2(b.BaseFormDiff))
		row.WinDiff = table.Ptr(round2(b.WinDiff))
		row.HomeAwayAdj = table.Ptr(round2(b.HomeAwayAdj))
		row.FatigueAdj = table.Ptr(round2(b.FatigueAdj))
		row.ExpectedMargin = table.Ptr(round2(b.Expected))
	}
}

func (e *Engine) breakdownFor(row *table.Row, histories map[int64]*teamHistory) Breakdown {
	n := e.cfg.WindowGames

	teamForm := 0.0
	if h := histories[row.TeamID]; h != nil {
		if f, ok := h.adjustedFormBefore(row.GameDate, n, histories, e.cfg.OpponentFormK); ok {
			teamForm = f
		}
	}
	oppForm := 0.0
	if h := histories[row.OpponentID]; h != nil {
		if f, ok := h.adjustedFormBefore(row.GameDate, n, histories, e.cfg.OpponentFormK); ok {
			oppForm = f
		}
	}

	b := Breakdown{
		BaseFormDiff: teamForm - oppForm,
		HomeAwayAdj:  e.cfg.HomeAwayAdj(row.HomeAway == facts.Home),
		FatigueAdj:   e.cfg.FatigueAdj(row.FatigueIndex),
	}

	if e.cfg.UseWinDiff {
		teamWR := 0.5
		if h := histories[row.TeamID]; h != nil {
			if wr, ok := h.winRateBefore(row.GameDate, n); ok {
				teamWR = wr
			}
		}
		oppWR := 0.5
		if h := histories[row.OpponentID]; h != nil {
			if wr, ok := h.winRateBefore(row.GameDate, n); ok {
				oppWR = wr
			}
		}
		b.WinDiff = (teamWR - oppWR) * e.cfg.WinDiffScale
	}

	raw := b.BaseFormDiff + b.WinDiff + b.HomeAwayAdj + b.FatigueAdj
	b.Expected = e.cfg.Bound(raw)
	return b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
