package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnoise/nbasignal/internal/domain/archetype"
	"github.com/signalnoise/nbasignal/internal/domain/facts"
	"github.com/signalnoise/nbasignal/internal/domain/table"
)

var boardDay = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

func boardRow(teamID int64, name string, d time.Time) table.Row {
	return table.Row{Fact: facts.Fact{
		GameID:   teamID * 100,
		GameDate: d,
		TeamID:   teamID,
		TeamName: name,
		HomeAway: facts.Home,
	}}
}

func TestFatigueBoardOrdersByIndex(t *testing.T) {
	fresh := boardRow(1, "Boston Celtics", boardDay)
	fresh.FatigueIndex = 12
	fresh.FatigueTier = "Low"

	gassed := boardRow(2, "Miami Heat", boardDay)
	gassed.FatigueIndex = 88
	gassed.FatigueTier = "Critical"

	out := FatigueBoard([]table.Row{fresh, gassed}, boardDay)

	require.Contains(t, out, "fatigue board")
	miami := strings.Index(out, "Miami Heat")
	boston := strings.Index(out, "Boston Celtics")
	require.NotEqual(t, -1, miami)
	require.NotEqual(t, -1, boston)
	assert.Less(t, miami, boston, "most fatigued team lists first")
	assert.Contains(t, out, "🔴 Miami Heat — Critical")
	assert.Contains(t, out, "🟢 Boston Celtics — Low")
}

func TestBoardsEmptySlate(t *testing.T) {
	rows := []table.Row{boardRow(1, "Boston Celtics", boardDay.AddDate(0, 0, -1))}

	assert.Equal(t, "No games tonight.", FatigueBoard(rows, boardDay))
	assert.Equal(t, "No games tonight.", MomentumBoard(rows, boardDay))
	assert.Equal(t, "No games tonight.", EnvironmentBoard(nil, boardDay))
}

func TestMomentumBoardLabels(t *testing.T) {
	hot := boardRow(1, "Boston Celtics", boardDay)
	hot.RPMI = table.Ptr(6.2)

	cold := boardRow(2, "Miami Heat", boardDay)
	cold.RPMI = table.Ptr(-4.0)

	fresh := boardRow(3, "Denver Nuggets", boardDay)

	out := MomentumBoard([]table.Row{cold, fresh, hot}, boardDay)

	assert.Contains(t, out, "🟢 Boston Celtics — Strong")
	assert.Contains(t, out, "🔴 Miami Heat — Fading")
	assert.Contains(t, out, "⚪ Denver Nuggets — Unknown")

	boston := strings.Index(out, "Boston Celtics")
	denver := strings.Index(out, "Denver Nuggets")
	assert.Less(t, boston, denver, "teams without momentum sort last")
}

func TestConsistencyBoardUsesLatestRowPerTeam(t *testing.T) {
	old := boardRow(1, "Boston Celtics", boardDay.AddDate(0, 0, -5))
	old.Consistency = table.Ptr(0.30)

	latest := boardRow(1, "Boston Celtics", boardDay)
	latest.Consistency = table.Ptr(0.70)

	forming := boardRow(2, "Miami Heat", boardDay)

	out := ConsistencyBoard([]table.Row{old, latest, forming})

	assert.Contains(t, out, "🟢 Boston Celtics — Very Consistent")
	assert.NotContains(t, out, "Miami Heat", "teams without a reading are omitted")
}

func TestEnvironmentBoardOrdersByNoise(t *testing.T) {
	quiet := archetype.GameEnvironment{
		GameID: 1, GameDate: boardDay,
		Matchup: "Miami Heat @ Boston Celtics",
		Label:   archetype.EnvClean, Drivers: "stable conditions",
		NoiseScore: table.Ptr(0.2),
	}
	loud := archetype.GameEnvironment{
		GameID: 2, GameDate: boardDay,
		Matchup: "Denver Nuggets @ Portland Trail Blazers",
		Label:   archetype.EnvNoisy, Drivers: "high fatigue load",
		NoiseScore: table.Ptr(0.8),
	}

	out := EnvironmentBoard([]archetype.GameEnvironment{quiet, loud}, boardDay)

	assert.Less(t, strings.Index(out, "Denver"), strings.Index(out, "Miami"))
	assert.Contains(t, out, "🔴")
	assert.Contains(t, out, "🟢")
	assert.Contains(t, out, "stable conditions")
}
