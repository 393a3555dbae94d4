package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnoise/nbasignal/internal/config"
	"github.com/signalnoise/nbasignal/internal/domain/facts"
)

var cities = map[int64]string{
	1: "Boston", 2: "Miami", 3: "Denver", 4: "Portland",
}

var names = map[int64]string{
	1: "Boston Celtics", 2: "Miami Heat", 3: "Denver Nuggets", 4: "Portland Trail Blazers",
}

func game(id int64, d int, homeID, awayID int64, margin int) facts.GameRecord {
	home := 100 + margin
	away := 100
	return facts.GameRecord{
		ID:        id,
		Date:      time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d),
		HomeTeam:  facts.Team{ID: homeID, Name: names[homeID], City: cities[homeID]},
		AwayTeam:  facts.Team{ID: awayID, Name: names[awayID], City: cities[awayID]},
		HomeScore: &home,
		AwayScore: &away,
	}
}

// synthSeason builds a deterministic 30-game schedule for four teams: two
// games every other day, alternating home courts, with varied margins.
func synthSeason() []facts.GameRecord {
	var out []facts.GameRecord
	id := int64(1)
	for round := 0; round < 15; round++ {
		d := round * 2
		margin := (round*5+3)%13 - 6
		if margin == 0 {
			margin = 3
		}
		if round%2 == 0 {
			out = append(out, game(id, d, 1, 2, margin), game(id+1, d, 3, 4, -margin))
		} else {
			out = append(out, game(id, d, 2, 1, margin), game(id+1, d, 4, 3, -margin))
		}
		id += 2
	}
	return out
}

func TestRunFullSeason(t *testing.T) {
	p := New(config.Default())
	res, err := p.Run(synthSeason())
	require.NoError(t, err)

	require.Len(t, res.Rows, 60, "30 games produce 60 team rows")
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.Excluded)

	for i := range res.Rows {
		r := &res.Rows[i]
		require.NotEmpty(t, r.FatigueTier, "row %d missing fatigue", i)
		require.NotNil(t, r.ExpectedMargin, "row %d missing expectation", i)
		require.NotEmpty(t, r.ConsistencyLabel, "row %d missing consistency label", i)
		require.NotEmpty(t, r.Archetype, "row %d missing archetype", i)
		if !r.ZeroMargin() {
			require.NotNil(t, r.PvE, "row %d missing pve", i)
		}
	}

	// Momentum needs five PvE games; the back half of each team's season
	// must carry values.
	last := res.Rows[len(res.Rows)-1]
	assert.NotNil(t, last.RPMI)
	assert.NotNil(t, last.Consistency, "10-game window filled by season end")

	require.Len(t, res.Environments, 30)
	for _, stage := range []string{"facts", "fatigue", "expectation", "pve", "momentum", "consistency", "classification", "environment"} {
		_, ok := res.StageDurations[stage]
		assert.True(t, ok, "missing stage duration for %s", stage)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	p := New(config.Default())
	a, err := p.Run(synthSeason())
	require.NoError(t, err)
	b, err := p.Run(synthSeason())
	require.NoError(t, err)

	require.Equal(t, len(a.Rows), len(b.Rows))
	for i := range a.Rows {
		assert.Equal(t, a.Rows[i].FatigueIndex, b.Rows[i].FatigueIndex, "row %d", i)
		assert.Equal(t, *a.Rows[i].ExpectedMargin, *b.Rows[i].ExpectedMargin, "row %d", i)
	}
}

func TestRunNoLookAhead(t *testing.T) {
	season := synthSeason()
	p := New(config.Default())

	full, err := p.Run(season)
	require.NoError(t, err)
	partial, err := p.Run(season[:20])
	require.NoError(t, err)

	// Rows are chronologically sorted, so the partial table is a prefix of
	// the full one. Every already-computed value must be identical.
	require.Len(t, partial.Rows, 40)
	for i := range partial.Rows {
		pr, fr := partial.Rows[i], full.Rows[i]
		require.Equal(t, fr.GameID, pr.GameID, "row order diverged at %d", i)
		assert.Equal(t, fr.FatigueIndex, pr.FatigueIndex, "row %d", i)
		assert.Equal(t, *fr.ExpectedMargin, *pr.ExpectedMargin, "row %d", i)
		if fr.PvE != nil {
			require.NotNil(t, pr.PvE, "row %d", i)
			assert.Equal(t, *fr.PvE, *pr.PvE, "row %d", i)
		}
		if fr.RPMI != nil {
			require.NotNil(t, pr.RPMI, "row %d", i)
			assert.Equal(t, *fr.RPMI, *pr.RPMI, "row %d", i)
		}
		if fr.Consistency != nil {
			require.NotNil(t, pr.Consistency, "row %d", i)
			assert.Equal(t, *fr.Consistency, *pr.Consistency, "row %d", i)
		}
	}
}

func TestRunEmptyInput(t *testing.T) {
	p := New(config.Default())
	res, err := p.Run(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Empty(t, res.Environments)
}

func TestRunFailsWhenNothingSurvivesIntegrity(t *testing.T) {
	incomplete := game(1, 0, 1, 2, 5)
	incomplete.HomeScore = nil

	p := New(config.Default())
	_, err := p.Run([]facts.GameRecord{incomplete})
	require.Error(t, err)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "facts", stageErr.Stage)
	assert.True(t, errors.Is(err, ErrEmptyStageOutput))
}

func TestRunMirrorInvariantHolds(t *testing.T) {
	p := New(config.Default())
	res, err := p.Run(synthSeason())
	require.NoError(t, err)

	var fs []facts.Fact
	for i := range res.Rows {
		fs = append(fs, res.Rows[i].Fact)
	}
	assert.Empty(t, facts.ValidateMirrors(fs))
}
