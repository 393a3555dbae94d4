package fatigue

import (
	"time"

	"github.com/signalnoise/nbasignal/internal/domain/table"
)

// Engine fills the fatigue column group on a metric table.
type Engine struct {
	cfg Config
}

// NewEngine creates a fatigue engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Apply computes fatigue columns for every row, in place. Rows must already
// be chronologically consistent per team; each team's history is walked
// oldest to newest with a sliding 14-day window so the whole pass is O(n).
func (e *Engine) Apply(rows []table.Row) {
	for _, idx := range table.GroupByTeam(rows) {
		e.applyTeam(rows, idx)
	}
}

func (e *Engine) applyTeam(rows []table.Row, idx []int) {
	// Sliding window of prior game dates within the trailing 14 days.
	window := make([]time.Time, 0, 16)

	var prevDate time.Time
	var prevCity string
	hasPrev := false

	for _, i := range idx {
		row := &rows[i]
		day := dateOnly(row.GameDate)

		cut14 := day.AddDate(0, 0, -14)
		cut7 := day.AddDate(0, 0, -7)
		for len(window) > 0 && window[0].Before(cut14) {
			window = window[1:]
		}

		g14 := 0
		g7 := 0
		for _, d := range window {
			if d.Before(day) {
				g14++
				if !d.Before(cut7) {
					g7++
				}
			}
		}

		daysSince := e.cfg.DefaultRestDays
		travel := Travel{Load: 0, Known: true}
		if hasPrev {
			daysSince = int(day.Sub(dateOnly(prevDate)).Hours() / 24)
			travel = e.cfg.TravelBetween(prevCity, row.VenueCity)
		}

		density := e.cfg.DensityScore(g7, g14)
		index := e.cfg.Index(density, daysSince, travel.Load)

		row.GamesLast7 = g7
		row.GamesLast14 = g14
		row.DensityScore = density
		row.DaysSinceLast = daysSince
		row.TravelKnown = travel.Known
		row.TravelLoad = travel.Load
		if travel.Known && travel.Load > 0 {
			row.TravelMiles = table.Ptr(travel.Miles)
		}
		row.FatigueIndex = index
		row.FatigueTier = string(e.cfg.TierFor(index))

		window = append(window, day)
		prevDate = row.GameDate
		prevCity = row.VenueCity
		hasPrev = true
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
