package expectation

import (
	"sort"
	"time"

	"github.com/signalnoise/nbasignal/internal/domain/table"
)

// teamHistory is one team's chronological non-zero-margin games with prefix
// aggregates, so any trailing window strictly before a date resolves in
// O(log n) instead of re-slicing the table per row.
type teamHistory struct {
	dates     []time.Time
	margins   []float64
	opponents []int64

	prefMargin []float64
	prefWins   []int
}

// buildHistories indexes the table by team. Zero-margin rows never enter a
// window: they carry no signal and would bias the averages.
func buildHistories(rows []table.Row) map[int64]*teamHistory {
	hs := make(map[int64]*teamHistory)
	for _, idx := range table.GroupByTeam(rows) {
		for _, i := range idx {
			r := rows[i]
			if r.ZeroMargin() {
				continue
			}
			h := hs[r.TeamID]
			if h == nil {
				h = &teamHistory{}
				hs[r.TeamID] = h
			}
			h.dates = append(h.dates, r.GameDate)
			h.margins = append(h.margins, r.ActualMargin())
			h.opponents = append(h.opponents, r.OpponentID)
		}
	}
	for _, h := range hs {
		h.prefMargin = make([]float64, len(h.margins)+1)
		h.prefWins = make([]int, len(h.margins)+1)
		for i, m := range h.margins {
			h.prefMargin[i+1] = h.prefMargin[i] + m
			wins := h.prefWins[i]
			if m > 0 {
				wins++
			}
			h.prefWins[i+1] = wins
		}
	}
	return hs
}

// countBefore returns how many of the team's games fall strictly before
// date. Same-day games are excluded: the window must never see the current
// game or a future one.
func (h *teamHistory) countBefore(date time.Time) int {
	return sort.Search(len(h.dates), func(i int) bool {
		return !h.dates[i].Before(date)
	})
}

// meanMarginBefore is the raw mean margin over the trailing window of up to
// n games strictly before date. ok is false when the window is empty.
func (h *teamHistory) meanMarginBefore(date time.Time, n int) (mean float64, ok bool) {
	hi := h.countBefore(date)
	lo := hi - n
	if lo < 0 {
		lo = 0
	}
	if hi == lo {
		return 0, false
	}
	return (h.prefMargin[hi] - h.prefMargin[lo]) / float64(hi-lo), true
}

// winRateBefore is the win rate over the same trailing window.
func (h *teamHistory) winRateBefore(date time.Time, n int) (rate float64, ok bool) {
	hi := h.countBefore(date)
	lo := hi - n
	if lo < 0 {
		lo = 0
	}
	if hi == lo {
		return 0, false
	}
	return float64(h.prefWins[hi]-h.prefWins[lo]) / float64(hi-lo), true
}

// adjustedFormBefore is the opponent-strength adjusted mean margin over the
// trailing window: each past margin is scaled by how good the opponent was
// at that time, so beating contenders counts more than beating tankers.
func (h *teamHistory) adjustedFormBefore(date time.Time, n int, all map[int64]*teamHistory, k float64) (form float64, ok bool) {
	hi := h.countBefore(date)
	lo := hi - n
	if lo < 0 {
		lo = 0
	}
	if hi == lo {
		return 0, false
	}

	var sum float64
	for i := lo; i < hi; i++ {
		factor := 1.0
		if opp := all[h.opponents[i]]; opp != nil {
			if oppForm, haveForm := opp.meanMarginBefore(h.dates[i], n); haveForm {
				factor = clamp((oppForm+k)/k, 0.5, 1.5)
			}
		}
		sum += h.margins[i] * factor
	}
	return sum / float64(hi-lo), true
}
