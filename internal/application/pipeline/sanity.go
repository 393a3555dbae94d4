package pipeline

import (
	"fmt"
	"math"

	"github.com/signalnoise/nbasignal/internal/domain/table"
)

// Finding is one sanity-check violation on a finished table.
type Finding struct {
	Check  string
	GameID int64
	TeamID int64
	Detail string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s (game=%d team=%d): %s", f.Check, f.GameID, f.TeamID, f.Detail)
}

const sanityEps = 0.05

// SanityCheck re-verifies the structural invariants of a finished metric
// table: two rows per game, mirrored margins, the PvE identity, and fatigue
// bounds. It returns findings rather than failing, so an operator can run
// it over historical outputs.
func SanityCheck(rows []table.Row, maxFatigue float64) []Finding {
	var findings []Finding

	byGame := table.GroupByGame(rows)
	for gameID, idx := range byGame {
		if len(idx) != 2 {
			findings = append(findings, Finding{
				Check:  "rows_per_game",
				GameID: gameID,
				Detail: fmt.Sprintf("expected 2 rows, found %d", len(idx)),
			})
			continue
		}
		a, b := rows[idx[0]], rows[idx[1]]
		if sum := a.ActualMargin() + b.ActualMargin(); math.Abs(sum) > sanityEps {
			findings = append(findings, Finding{
				Check:  "margin_symmetry",
				GameID: gameID,
				Detail: fmt.Sprintf("actual margins sum to %.2f", sum),
			})
		}
	}

	for i := range rows {
		r := &rows[i]

		if r.FatigueIndex < 0 || r.FatigueIndex > maxFatigue {
			findings = append(findings, Finding{
				Check:  "fatigue_bounds",
				GameID: r.GameID,
				TeamID: r.TeamID,
				Detail: fmt.Sprintf("fatigue_index %.1f out of [0,%.0f]", r.FatigueIndex, maxFatigue),
			})
		}
		if r.GamesLast7 > 7 || r.GamesLast14 > 14 {
			findings = append(findings, Finding{
				Check:  "density_counts",
				GameID: r.GameID,
				TeamID: r.TeamID,
				Detail: fmt.Sprintf("games_last_7=%d games_last_14=%d", r.GamesLast7, r.GamesLast14),
			})
		}

		// PvE identity holds only where dampening did not fire: wins, and
		// losses neither capped nor scaled. Check the undampened side.
		if r.PvE != nil && r.ExpectedMargin != nil && r.ActualMargin() > 0 {
			want := r.ActualMargin() - *r.ExpectedMargin
			if math.Abs(*r.PvE-want) > sanityEps {
				findings = append(findings, Finding{
					Check:  "pve_identity",
					GameID: r.GameID,
					TeamID: r.TeamID,
					Detail: fmt.Sprintf("pve %.2f != actual-expected %.2f", *r.PvE, want),
				})
			}
		}

		if r.ZeroMargin() && r.PvE != nil {
			findings = append(findings, Finding{
				Check:  "zero_margin_exclusion",
				GameID: r.GameID,
				TeamID: r.TeamID,
				Detail: "zero-margin row carries a PvE value",
			})
		}
	}

	return findings
}
