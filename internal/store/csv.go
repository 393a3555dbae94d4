// Package store persists the fact and metric tables. Column names are a
// public contract consumed by downstream board renderers; renaming one
// requires a coordinated change.
package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/signalnoise/nbasignal/internal/domain/archetype"
	"github.com/signalnoise/nbasignal/internal/domain/facts"
	"github.com/signalnoise/nbasignal/internal/domain/table"
)

const dateLayout = "2006-01-02"

// FactColumns is the fact-table CSV header.
var FactColumns = []string{
	"game_id", "game_date", "team_id", "team_name",
	"opponent_id", "opponent_name", "home_away",
	"team_points", "opponent_points", "venue_city",
}

// MetricColumns is the derived metric-table CSV header, in stage order.
var MetricColumns = []string{
	"game_id", "game_date", "team_id", "team_name",
	"opponent_id", "opponent_name", "home_away",
	"team_points", "opponent_points", "venue_city",
	"actual_margin",
	"games_last_7", "games_last_14", "density_score",
	"days_since_last_game", "travel_miles", "travel_known", "travel_load",
	"fatigue_index", "fatigue_tier",
	"base_form_diff", "win_diff", "home_away_adj", "fatigue_adj",
	"expected_margin", "pve",
	"rpmi", "rpmi_delta", "rpmi_short", "rpmi_long", "rpmi_accel",
	"pve_volatility", "consistency", "consistency_win", "consistency_loss",
	"games_played", "games_in_window", "avg_pve_window",
	"wins_window", "losses_window", "win_rate_window", "consistency_label",
	"archetype", "direction_label",
}

// EnvironmentColumns is the game-environment CSV header.
var EnvironmentColumns = []string{
	"game_id", "game_date", "matchup",
	"noise_score", "environment_label", "drivers",
	"fatigue_home", "fatigue_away", "fatigue_risk_avg",
	"vol_home", "vol_away", "vol_risk_avg",
	"asymmetry_score",
	"expected_margin_home", "expected_margin_away",
	"games_played_home", "games_played_away", "maturity_ok",
}

// WriteFactsCSV writes the fact table atomically.
func WriteFactsCSV(path string, rows []facts.Fact) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(FactColumns); err != nil {
		return err
	}
	for _, f := range rows {
		rec := []string{
			strconv.FormatInt(f.GameID, 10),
			f.GameDate.Format(dateLayout),
			strconv.FormatInt(f.TeamID, 10),
			f.TeamName,
			strconv.FormatInt(f.OpponentID, 10),
			f.OpponentName,
			string(f.HomeAway),
			strconv.Itoa(f.TeamPoints),
			strconv.Itoa(f.OpponentPoints),
			f.VenueCity,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// ReadFactsCSV loads a fact table written by WriteFactsCSV.
func ReadFactsCSV(path string) ([]facts.Fact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fact table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read fact table %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := indexColumns(records[0])
	for _, name := range FactColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("fact table %s: header missing column %q", path, name)
		}
	}
	var out []facts.Fact
	for line, rec := range records[1:] {
		get := func(name string) string { return rec[col[name]] }

		gameID, err := strconv.ParseInt(get("game_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fact table line %d: bad game_id: %w", line+2, err)
		}
		teamID, err := strconv.ParseInt(get("team_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fact table line %d: bad team_id: %w", line+2, err)
		}
		oppID, err := strconv.ParseInt(get("opponent_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fact table line %d: bad opponent_id: %w", line+2, err)
		}
		date, err := time.ParseInLocation(dateLayout, get("game_date"), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("fact table line %d: bad game_date: %w", line+2, err)
		}
		teamPts, err := strconv.Atoi(get("team_points"))
		if err != nil {
			return nil, fmt.Errorf("fact table line %d: bad team_points: %w", line+2, err)
		}
		oppPts, err := strconv.Atoi(get("opponent_points"))
		if err != nil {
			return nil, fmt.Errorf("fact table line %d: bad opponent_points: %w", line+2, err)
		}

		out = append(out, facts.Fact{
			GameID:         gameID,
			GameDate:       date,
			TeamID:         teamID,
			TeamName:       get("team_name"),
			OpponentID:     oppID,
			OpponentName:   get("opponent_name"),
			HomeAway:       facts.HomeAway(get("home_away")),
			TeamPoints:     teamPts,
			OpponentPoints: oppPts,
			VenueCity:      get("venue_city"),
		})
	}

	facts.SortChronological(out)
	return out, nil
}

// WriteMetricsCSV writes the full derived table atomically. Missing values
// serialize as empty cells, preserving the missing-vs-zero distinction.
func WriteMetricsCSV(path string, rows []table.Row) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(MetricColumns); err != nil {
		return err
	}
	for i := range rows {
		r := &rows[i]
		rec := []string{
			strconv.FormatInt(r.GameID, 10),
			r.GameDate.Format(dateLayout),
			strconv.FormatInt(r.TeamID, 10),
			r.TeamName,
			strconv.FormatInt(r.OpponentID, 10),
			r.OpponentName,
			string(r.HomeAway),
			strconv.Itoa(r.TeamPoints),
			strconv.Itoa(r.OpponentPoints),
			r.VenueCity,
			formatFloat(r.ActualMargin()),
			strconv.Itoa(r.GamesLast7),
			strconv.Itoa(r.GamesLast14),
			formatFloat(r.DensityScore),
			strconv.Itoa(r.DaysSinceLast),
			formatOptional(r.TravelMiles),
			strconv.FormatBool(r.TravelKnown),
			strconv.Itoa(r.TravelLoad),
			formatFloat(r.FatigueIndex),
			r.FatigueTier,
			formatOptional(r.BaseFormDiff),
			formatOptional(r.WinDiff),
			formatOptional(r.HomeAwayAdj),
			formatOptional(r.FatigueAdj),
			formatOptional(r.ExpectedMargin),
			formatOptional(r.PvE),
			formatOptional(r.RPMI),
			formatOptional(r.RPMIDelta),
			formatOptional(r.RPMIShort),
			formatOptional(r.RPMILong),
			formatOptional(r.RPMIAccel),
			formatOptional(r.PvEVolatility),
			formatOptional(r.Consistency),
			formatOptional(r.ConsistencyWin),
			formatOptional(r.ConsistencyLoss),
			strconv.Itoa(r.GamesPlayed),
			strconv.Itoa(r.GamesInWindow),
			formatOptional(r.AvgPvEWindow),
			strconv.Itoa(r.WinsWindow),
			strconv.Itoa(r.LossesWindow),
			formatOptional(r.WinRateWindow),
			r.ConsistencyLabel,
			r.Archetype,
			r.DirectionLabel,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// WriteEnvironmentsCSV writes the per-game environment table atomically.
func WriteEnvironmentsCSV(path string, envs []archetype.GameEnvironment) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(EnvironmentColumns); err != nil {
		return err
	}
	for i := range envs {
		e := &envs[i]
		rec := []string{
			strconv.FormatInt(e.GameID, 10),
			e.GameDate.Format(dateLayout),
			e.Matchup,
			formatOptional(e.NoiseScore),
			e.Label,
			e.Drivers,
			formatFloat(e.FatigueHome),
			formatFloat(e.FatigueAway),
			formatOptional(e.FatigueRiskAvg),
			formatOptional(e.VolHome),
			formatOptional(e.VolAway),
			formatOptional(e.VolRiskAvg),
			formatOptional(e.AsymmetryScore),
			formatOptional(e.ExpectedMarginHome),
			formatOptional(e.ExpectedMarginAway),
			strconv.Itoa(e.GamesPlayedHome),
			strconv.Itoa(e.GamesPlayedAway),
			strconv.FormatBool(e.Mature),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
