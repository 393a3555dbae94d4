package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/signalnoise/nbasignal/internal/domain/facts"
	"github.com/signalnoise/nbasignal/internal/domain/table"
)

// Lens is one renderable matchup view, ready for Compose.
type Lens struct {
	Mode      Mode
	BoardName string
	Header    string
	Body      string
}

// DailyLenses builds a lens per game on the given date. Pregame lenses read
// each team's latest row strictly before the game, so no same-day
// information leaks into a preview; postgame lenses read the game's own rows.
func DailyLenses(rows []table.Row, day time.Time, postgame bool) ([]Lens, error) {
	y, m, d := day.Date()
	sameDay := func(t time.Time) bool {
		ty, tm, td := t.Date()
		return ty == y && tm == m && td == d
	}

	type pair struct{ home, away *table.Row }
	games := make(map[int64]*pair)
	var order []int64
	for i := range rows {
		r := &rows[i]
		if !sameDay(r.GameDate) {
			continue
		}
		p, ok := games[r.GameID]
		if !ok {
			p = &pair{}
			games[r.GameID] = p
			order = append(order, r.GameID)
		}
		if r.HomeAway == facts.Home {
			p.home = r
		} else {
			p.away = r
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	var lenses []Lens
	for _, gameID := range order {
		p := games[gameID]
		if p.home == nil || p.away == nil {
			continue
		}

		if postgame {
			lenses = append(lenses, Lens{
				Mode:      ModePostgame,
				BoardName: fmt.Sprintf("game-%d", gameID),
				Header:    fmt.Sprintf("%s @ %s", p.away.TeamName, p.home.TeamName),
				Body:      PostgameLens(p.home, p.away),
			})
			continue
		}

		homePrior := latestBefore(rows, p.home.TeamID, day)
		awayPrior := latestBefore(rows, p.away.TeamID, day)
		if homePrior == nil || awayPrior == nil {
			continue
		}
		homeW, homeL := seasonRecord(rows, p.home.TeamID, day)
		awayW, awayL := seasonRecord(rows, p.away.TeamID, day)

		lenses = append(lenses, Lens{
			Mode:      ModePregame,
			BoardName: fmt.Sprintf("game-%d", gameID),
			Header:    fmt.Sprintf("%s @ %s", p.away.TeamName, p.home.TeamName),
			Body: PregameLens(homePrior, awayPrior,
				fmt.Sprintf("%d-%d", homeW, homeL),
				fmt.Sprintf("%d-%d", awayW, awayL)),
		})
	}
	return lenses, nil
}

// latestBefore returns the team's most recent row strictly before day.
func latestBefore(rows []table.Row, teamID int64, day time.Time) *table.Row {
	var best *table.Row
	for i := range rows {
		r := &rows[i]
		if r.TeamID != teamID || !r.GameDate.Before(day) {
			continue
		}
		if best == nil || r.GameDate.After(best.GameDate) {
			best = r
		}
	}
	return best
}

// seasonRecord counts wins and losses strictly before day. Ties count for
// neither side.
func seasonRecord(rows []table.Row, teamID int64, day time.Time) (wins, losses int) {
	for i := range rows {
		r := &rows[i]
		if r.TeamID != teamID || !r.GameDate.Before(day) || r.ZeroMargin() {
			continue
		}
		if r.Win() {
			wins++
		} else {
			losses++
		}
	}
	return wins, losses
}
