// Package table holds the widening per-(team, game) metric table that the
// pipeline stages fill in, one column group per stage. Derived fields are
// pointers: nil means "not yet computable" (insufficient history), which is
// distinct from zero and must stay distinct all the way to serialization.
package table

import (
	"sort"

	"github.com/signalnoise/nbasignal/internal/domain/facts"
)

// Row is one (team, game) with every derived column the pipeline produces.
type Row struct {
	facts.Fact

	// Fatigue engine.
	GamesLast7    int
	GamesLast14   int
	DensityScore  float64
	DaysSinceLast int
	TravelMiles   *float64
	TravelKnown   bool
	TravelLoad    int
	FatigueIndex  float64
	FatigueTier   string

	// Expectation model.
	BaseFormDiff   *float64
	WinDiff        *float64
	HomeAwayAdj    *float64
	FatigueAdj     *float64
	ExpectedMargin *float64

	// Performance vs expectation. Nil on zero-margin rows, which are
	// excluded from everything downstream.
	PvE *float64

	// Momentum (RPMI).
	RPMI      *float64
	RPMIDelta *float64
	RPMIShort *float64
	RPMILong  *float64
	RPMIAccel *float64

	// Consistency / volatility (CVV).
	PvEVolatility    *float64
	Consistency      *float64
	ConsistencyWin   *float64
	ConsistencyLoss  *float64
	GamesPlayed      int
	GamesInWindow    int
	AvgPvEWindow     *float64
	WinsWindow       int
	LossesWindow     int
	WinRateWindow    *float64
	ConsistencyLabel string

	// Classification layer.
	Archetype      string
	DirectionLabel string
}

// FromFacts seeds a table from a chronologically sorted fact slice.
func FromFacts(fs []facts.Fact) []Row {
	rows := make([]Row, len(fs))
	for i, f := range fs {
		rows[i] = Row{Fact: f}
	}
	return rows
}

// SortChronological orders rows by date, game id, home-before-away.
func SortChronological(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].GameDate.Equal(rows[j].GameDate) {
			return rows[i].GameDate.Before(rows[j].GameDate)
		}
		if rows[i].GameID != rows[j].GameID {
			return rows[i].GameID < rows[j].GameID
		}
		return rows[i].HomeAway == facts.Home && rows[j].HomeAway == facts.Away
	})
}

// GroupByTeam returns per-team row indices in chronological order. Indices
// rather than copies, so stages can write columns back in place.
func GroupByTeam(rows []Row) map[int64][]int {
	groups := make(map[int64][]int)
	for i := range rows {
		groups[rows[i].TeamID] = append(groups[rows[i].TeamID], i)
	}
	for _, idx := range groups {
		sort.SliceStable(idx, func(a, b int) bool {
			ra, rb := rows[idx[a]], rows[idx[b]]
			if !ra.GameDate.Equal(rb.GameDate) {
				return ra.GameDate.Before(rb.GameDate)
			}
			return ra.GameID < rb.GameID
		})
	}
	return groups
}

// GroupByGame returns row indices keyed by game id.
func GroupByGame(rows []Row) map[int64][]int {
	groups := make(map[int64][]int)
	for i := range rows {
		groups[rows[i].GameID] = append(groups[rows[i].GameID], i)
	}
	return groups
}

// Ptr returns a pointer to v. Stage code uses it when publishing a
// computed column value.
func Ptr(v float64) *float64 { return &v }
