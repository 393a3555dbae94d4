package facts

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// BuildResult carries the normalized fact table plus per-game integrity
// exclusions. Integrity problems never fail the build; the offending games
// are dropped and reported so the caller can log or alert.
type BuildResult struct {
	Facts    []Fact
	Excluded []IntegrityError
}

// IntegrityError describes a game dropped during fact-table construction.
type IntegrityError struct {
	GameID int64
	Reason string
}

func (e IntegrityError) Error() string {
	return "game integrity violation: " + e.Reason
}

// Build normalizes raw game records into one fact per (team, game).
//
// The builder tolerates the provider's quirks: duplicate records are deduped
// by game id keep-latest, incomplete games are skipped, and the output is
// re-sorted chronologically regardless of arrival order. The two facts of a
// game are constructed as mirror images, so the mirror invariant holds for
// every pair it emits.
func Build(records []GameRecord) BuildResult {
	var res BuildResult

	// Dedupe keep-latest: later records for the same game id replace
	// earlier ones (score corrections arrive as re-sends).
	byID := make(map[int64]GameRecord, len(records))
	order := make([]int64, 0, len(records))
	for _, g := range records {
		if _, seen := byID[g.ID]; !seen {
			order = append(order, g.ID)
		}
		byID[g.ID] = g
	}

	for _, id := range order {
		g := byID[id]
		if !g.Completed() {
			continue
		}
		if g.HomeTeam.ID == g.AwayTeam.ID {
			res.Excluded = append(res.Excluded, IntegrityError{
				GameID: g.ID,
				Reason: "home and away team ids are equal",
			})
			continue
		}

		venue := g.HomeTeam.City
		res.Facts = append(res.Facts,
			Fact{
				GameID:         g.ID,
				GameDate:       g.Date.UTC(),
				TeamID:         g.HomeTeam.ID,
				TeamName:       g.HomeTeam.Name,
				OpponentID:     g.AwayTeam.ID,
				OpponentName:   g.AwayTeam.Name,
				HomeAway:       Home,
				TeamPoints:     *g.HomeScore,
				OpponentPoints: *g.AwayScore,
				VenueCity:      venue,
			},
			Fact{
				GameID:         g.ID,
				GameDate:       g.Date.UTC(),
				TeamID:         g.AwayTeam.ID,
				TeamName:       g.AwayTeam.Name,
				OpponentID:     g.HomeTeam.ID,
				OpponentName:   g.HomeTeam.Name,
				HomeAway:       Away,
				TeamPoints:     *g.AwayScore,
				OpponentPoints: *g.HomeScore,
				VenueCity:      venue,
			},
		)
	}

	SortChronological(res.Facts)

	for _, ex := range res.Excluded {
		log.Warn().Int64("game_id", ex.GameID).Str("reason", ex.Reason).
			Msg("game excluded from fact table")
	}

	return res
}

// ValidateMirrors checks the mirror invariant over an already-built table:
// exactly two facts per game id, with mirrored point fields. Violating games
// are returned; the caller decides whether to drop them.
func ValidateMirrors(rows []Fact) []IntegrityError {
	byGame := make(map[int64][]Fact)
	for _, f := range rows {
		byGame[f.GameID] = append(byGame[f.GameID], f)
	}

	var errs []IntegrityError
	for id, pair := range byGame {
		if len(pair) != 2 {
			errs = append(errs, IntegrityError{GameID: id, Reason: "game does not have exactly two team rows"})
			continue
		}
		a, b := pair[0], pair[1]
		if a.TeamPoints != b.OpponentPoints || a.OpponentPoints != b.TeamPoints {
			errs = append(errs, IntegrityError{GameID: id, Reason: "team rows are not mirror images"})
		}
	}
	return errs
}

// ToRecords reconstructs game records from the home-side facts of a table,
// so a persisted fact table can be re-fed through the builder. The away
// team's own city is not stored in facts and is not needed downstream; the
// venue city rides on the home team.
func ToRecords(rows []Fact) []GameRecord {
	var out []GameRecord
	for _, f := range rows {
		if f.HomeAway != Home {
			continue
		}
		homeScore, awayScore := f.TeamPoints, f.OpponentPoints
		out = append(out, GameRecord{
			ID:   f.GameID,
			Date: f.GameDate,
			HomeTeam: Team{
				ID:   f.TeamID,
				Name: f.TeamName,
				City: f.VenueCity,
			},
			AwayTeam: Team{
				ID:   f.OpponentID,
				Name: f.OpponentName,
			},
			HomeScore: &homeScore,
			AwayScore: &awayScore,
		})
	}
	return out
}

// SortChronological orders facts by date, then game id, then home before
// away. Every rolling computation downstream depends on this ordering.
func SortChronological(rows []Fact) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].GameDate.Equal(rows[j].GameDate) {
			return rows[i].GameDate.Before(rows[j].GameDate)
		}
		if rows[i].GameID != rows[j].GameID {
			return rows[i].GameID < rows[j].GameID
		}
		return rows[i].HomeAway == Home && rows[j].HomeAway == Away
	})
}
