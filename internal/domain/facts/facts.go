package facts

import (
	"time"
)

// HomeAway marks which side of a game a fact row describes.
type HomeAway string

const (
	Home HomeAway = "H"
	Away HomeAway = "A"
)

// Team identifies one side of a game as delivered by the ingestion provider.
type Team struct {
	ID   int64
	Name string
	City string
}

// GameRecord is one completed (or pending) game as delivered by ingestion.
// Scores are pointers because the provider reports scheduled games with
// scores absent; a game is completed only when both are present.
type GameRecord struct {
	ID        int64
	Date      time.Time
	HomeTeam  Team
	AwayTeam  Team
	HomeScore *int
	AwayScore *int
}

// Completed reports whether both scores are present.
func (g GameRecord) Completed() bool {
	return g.HomeScore != nil && g.AwayScore != nil
}

// Fact is one row per (team, game): a single team's view of a completed game.
type Fact struct {
	GameID         int64
	GameDate       time.Time
	TeamID         int64
	TeamName       string
	OpponentID     int64
	OpponentName   string
	HomeAway       HomeAway
	TeamPoints     int
	OpponentPoints int

	// VenueCity is the home team's city, the site both facts of a game share.
	VenueCity string
}

// ActualMargin is team points minus opponent points.
func (f Fact) ActualMargin() float64 {
	return float64(f.TeamPoints - f.OpponentPoints)
}

// ZeroMargin reports a tie. Ties are not valid NBA results and are kept in
// the fact table for schedule-density purposes only; every PvE-derived
// statistic excludes them.
func (f Fact) ZeroMargin() bool {
	return f.TeamPoints == f.OpponentPoints
}

// Win reports a positive margin.
func (f Fact) Win() bool {
	return f.TeamPoints > f.OpponentPoints
}
