package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/signalnoise/nbasignal/internal/domain/facts"
	"github.com/signalnoise/nbasignal/internal/domain/table"
)

// MetricRow is the flat scan target for team_game_metrics. Derived columns
// map to sql.Null* so that missing stays missing across a round trip.
type MetricRow struct {
	GameID         int64     `db:"game_id"`
	GameDate       time.Time `db:"game_date"`
	TeamID         int64     `db:"team_id"`
	TeamName       string    `db:"team_name"`
	OpponentID     int64     `db:"opponent_id"`
	OpponentName   string    `db:"opponent_name"`
	HomeAway       string    `db:"home_away"`
	TeamPoints     int       `db:"team_points"`
	OpponentPoints int       `db:"opponent_points"`
	VenueCity      string    `db:"venue_city"`

	GamesLast7    int             `db:"games_last_7"`
	GamesLast14   int             `db:"games_last_14"`
	DensityScore  float64         `db:"density_score"`
	DaysSinceLast int             `db:"days_since_last_game"`
	TravelMiles   sql.NullFloat64 `db:"travel_miles"`
	TravelKnown   bool            `db:"travel_known"`
	TravelLoad    int             `db:"travel_load"`
	FatigueIndex  float64         `db:"fatigue_index"`
	FatigueTier   string          `db:"fatigue_tier"`

	BaseFormDiff   sql.NullFloat64 `db:"base_form_diff"`
	WinDiff        sql.NullFloat64 `db:"win_diff"`
	HomeAwayAdj    sql.NullFloat64 `db:"home_away_adj"`
	FatigueAdj     sql.NullFloat64 `db:"fatigue_adj"`
	ExpectedMargin sql.NullFloat64 `db:"expected_margin"`
	PvE            sql.NullFloat64 `db:"pve"`

	RPMI      sql.NullFloat64 `db:"rpmi"`
	RPMIDelta sql.NullFloat64 `db:"rpmi_delta"`
	RPMIShort sql.NullFloat64 `db:"rpmi_short"`
	RPMILong  sql.NullFloat64 `db:"rpmi_long"`
	RPMIAccel sql.NullFloat64 `db:"rpmi_accel"`

	PvEVolatility    sql.NullFloat64 `db:"pve_volatility"`
	Consistency      sql.NullFloat64 `db:"consistency"`
	ConsistencyWin   sql.NullFloat64 `db:"consistency_win"`
	ConsistencyLoss  sql.NullFloat64 `db:"consistency_loss"`
	GamesPlayed      int             `db:"games_played"`
	GamesInWindow    int             `db:"games_in_window"`
	AvgPvEWindow     sql.NullFloat64 `db:"avg_pve_window"`
	WinsWindow       int             `db:"wins_window"`
	LossesWindow     int             `db:"losses_window"`
	WinRateWindow    sql.NullFloat64 `db:"win_rate_window"`
	ConsistencyLabel string          `db:"consistency_label"`

	Archetype      string `db:"archetype"`
	DirectionLabel string `db:"direction_label"`

	RunID string `db:"run_id"`
}

// PostgresStore persists facts and metric rows in PostgreSQL.
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresStore wraps an open sqlx handle.
func NewPostgresStore(db *sqlx.DB, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresStore{db: db, timeout: timeout}
}

// OpenPostgres connects and pings within the timeout.
func OpenPostgres(ctx context.Context, dsn string, timeout time.Duration) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db, timeout), nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

// UpsertFacts writes game facts, replacing rows for games seen before.
// The provider re-serves corrected scores for a few days after a game.
func (s *PostgresStore) UpsertFacts(ctx context.Context, rows []facts.Fact) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout*time.Duration(len(rows)/500+1))
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin facts upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO game_facts (
			game_id, game_date, team_id, team_name,
			opponent_id, opponent_name, home_away,
			team_points, opponent_points, venue_city
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (game_id, team_id) DO UPDATE SET
			team_points = EXCLUDED.team_points,
			opponent_points = EXCLUDED.opponent_points,
			venue_city = EXCLUDED.venue_city`)
	if err != nil {
		return fmt.Errorf("prepare facts upsert: %w", err)
	}
	defer stmt.Close()

	for _, f := range rows {
		_, err := stmt.ExecContext(ctx,
			f.GameID, f.GameDate, f.TeamID, f.TeamName,
			f.OpponentID, f.OpponentName, string(f.HomeAway),
			f.TeamPoints, f.OpponentPoints, f.VenueCity)
		if err != nil {
			return fmt.Errorf("upsert fact game=%d team=%d: %w", f.GameID, f.TeamID, err)
		}
	}

	return tx.Commit()
}

// InsertMetrics bulk-inserts a finished run's metric rows tagged with its
// run id.
func (s *PostgresStore) InsertMetrics(ctx context.Context, runID string, rows []table.Row) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout*time.Duration(len(rows)/500+1))
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metrics insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO team_game_metrics (
			run_id, game_id, game_date, team_id, team_name,
			opponent_id, opponent_name, home_away, team_points, opponent_points, venue_city,
			games_last_7, games_last_14, density_score, days_since_last_game,
			travel_miles, travel_known, travel_load, fatigue_index, fatigue_tier,
			base_form_diff, win_diff, home_away_adj, fatigue_adj, expected_margin, pve,
			rpmi, rpmi_delta, rpmi_short, rpmi_long, rpmi_accel,
			pve_volatility, consistency, consistency_win, consistency_loss,
			games_played, games_in_window, avg_pve_window,
			wins_window, losses_window, win_rate_window, consistency_label,
			archetype, direction_label
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26,
			$27, $28, $29, $30, $31,
			$32, $33, $34, $35, $36, $37, $38, $39, $40, $41, $42,
			$43, $44
		)`)
	if err != nil {
		return fmt.Errorf("prepare metrics insert: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		r := &rows[i]
		_, err := stmt.ExecContext(ctx,
			runID, r.GameID, r.GameDate, r.TeamID, r.TeamName,
			r.OpponentID, r.OpponentName, string(r.HomeAway), r.TeamPoints, r.OpponentPoints, r.VenueCity,
			r.GamesLast7, r.GamesLast14, r.DensityScore, r.DaysSinceLast,
			nullable(r.TravelMiles), r.TravelKnown, r.TravelLoad, r.FatigueIndex, r.FatigueTier,
			nullable(r.BaseFormDiff), nullable(r.WinDiff), nullable(r.HomeAwayAdj), nullable(r.FatigueAdj),
			nullable(r.ExpectedMargin), nullable(r.PvE),
			nullable(r.RPMI), nullable(r.RPMIDelta), nullable(r.RPMIShort), nullable(r.RPMILong), nullable(r.RPMIAccel),
			nullable(r.PvEVolatility), nullable(r.Consistency), nullable(r.ConsistencyWin), nullable(r.ConsistencyLoss),
			r.GamesPlayed, r.GamesInWindow, nullable(r.AvgPvEWindow),
			r.WinsWindow, r.LossesWindow, nullable(r.WinRateWindow), r.ConsistencyLabel,
			r.Archetype, r.DirectionLabel)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return fmt.Errorf("duplicate metric row game=%d team=%d: %w", r.GameID, r.TeamID, err)
			}
			return fmt.Errorf("insert metric row game=%d team=%d: %w", r.GameID, r.TeamID, err)
		}
	}

	return tx.Commit()
}

// ListMetricsByTeam retrieves a team's metric rows within a date range,
// newest first.
func (s *PostgresStore) ListMetricsByTeam(ctx context.Context, runID string, teamID int64, from, to time.Time, limit int) ([]MetricRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT run_id, game_id, game_date, team_id, team_name,
		       opponent_id, opponent_name, home_away, team_points, opponent_points, venue_city,
		       games_last_7, games_last_14, density_score, days_since_last_game,
		       travel_miles, travel_known, travel_load, fatigue_index, fatigue_tier,
		       base_form_diff, win_diff, home_away_adj, fatigue_adj, expected_margin, pve,
		       rpmi, rpmi_delta, rpmi_short, rpmi_long, rpmi_accel,
		       pve_volatility, consistency, consistency_win, consistency_loss,
		       games_played, games_in_window, avg_pve_window,
		       wins_window, losses_window, win_rate_window, consistency_label,
		       archetype, direction_label
		FROM team_game_metrics
		WHERE run_id = $1 AND team_id = $2 AND game_date >= $3 AND game_date <= $4
		ORDER BY game_date DESC, game_id DESC
		LIMIT $5`

	var out []MetricRow
	if err := s.db.SelectContext(ctx, &out, query, runID, teamID, from, to, limit); err != nil {
		return nil, fmt.Errorf("list metrics team=%d: %w", teamID, err)
	}
	return out, nil
}

// LatestRunID returns the run id of the most recent pipeline run stored.
func (s *PostgresStore) LatestRunID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var runID string
	err := s.db.GetContext(ctx, &runID, `
		SELECT run_id FROM team_game_metrics
		ORDER BY game_date DESC, game_id DESC
		LIMIT 1`)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest run id: %w", err)
	}
	return runID, nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
