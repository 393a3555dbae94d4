package pve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnoise/nbasignal/internal/domain/facts"
	"github.com/signalnoise/nbasignal/internal/domain/table"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidateRejectsBadPolicies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlowoutMargin = 5
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.WeakFactor = 1.5
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.WinRateWindow = 0
	require.Error(t, cfg.Validate())
}

func TestDampen(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name            string
		raw, margin, wr float64
		want            float64
	}{
		{"win passes through", 12.0, 10, 0.9, 12.0},
		{"negative win pve passes through", -7.0, 2, 0.1, -7.0},
		{"loss capped at +5", 8.0, -3, 0.8, 5.0},
		{"loss below cap untouched", 3.0, -3, 0.8, 3.0},
		{"blowout scaled", 3.0, -20, 0.8, 0.75},
		{"weak team scaled", 4.0, -3, 0.3, 1.2},
		{"cap then blowout then weak", 8.0, -20, 0.2, 0.375},
		{"negative loss pve keeps sign", -6.0, -8, 0.8, -6.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cfg.Dampen(tt.raw, tt.margin, tt.wr), 1e-9)
		})
	}
}

func pveRow(gameID int64, d int, teamID int64, teamPts, oppPts int, expected float64) table.Row {
	r := table.Row{Fact: facts.Fact{
		GameID:         gameID,
		GameDate:       time.Date(2025, 11, d, 0, 0, 0, 0, time.UTC),
		TeamID:         teamID,
		OpponentID:     99,
		HomeAway:       facts.Home,
		TeamPoints:     teamPts,
		OpponentPoints: oppPts,
	}}
	r.ExpectedMargin = table.Ptr(expected)
	return r
}

func TestApplyWinIdentity(t *testing.T) {
	rows := []table.Row{pveRow(1, 1, 10, 110, 100, 4.0)}

	NewEngine(DefaultConfig()).Apply(rows)

	require.NotNil(t, rows[0].PvE)
	assert.Equal(t, 6.0, *rows[0].PvE, "win pve is actual minus expected, undampened")
}

func TestApplySkipsZeroMargin(t *testing.T) {
	rows := []table.Row{pveRow(1, 1, 10, 100, 100, 4.0)}

	NewEngine(DefaultConfig()).Apply(rows)

	assert.Nil(t, rows[0].PvE, "ties never get a PvE value")
}

func TestApplySkipsMissingExpectation(t *testing.T) {
	rows := []table.Row{pveRow(1, 1, 10, 110, 100, 0)}
	rows[0].ExpectedMargin = nil

	NewEngine(DefaultConfig()).Apply(rows)

	assert.Nil(t, rows[0].PvE)
}

func TestApplyNoHistoryIsNotWeak(t *testing.T) {
	// First game of the season, a narrow loss against a -10 expectation:
	// raw +7 caps to +5 and must NOT be weak-scaled, because an empty
	// record is unknown, not bad.
	rows := []table.Row{pveRow(1, 1, 10, 100, 103, -10.0)}

	NewEngine(DefaultConfig()).Apply(rows)

	require.NotNil(t, rows[0].PvE)
	assert.Equal(t, 5.0, *rows[0].PvE)
}

func TestApplyWeakTeamDampening(t *testing.T) {
	// Ten straight losses, then another narrow loss beating a -10 spread.
	rows := make([]table.Row, 0, 11)
	for d := 1; d <= 10; d++ {
		rows = append(rows, pveRow(int64(d), d, 10, 90, 100, 0))
	}
	rows = append(rows, pveRow(11, 12, 10, 100, 103, -10.0))

	NewEngine(DefaultConfig()).Apply(rows)

	last := rows[len(rows)-1]
	require.NotNil(t, last.PvE)
	// cap(+7 -> +5), win rate 0.0 < 0.40 so x0.30.
	assert.InDelta(t, 1.5, *last.PvE, 1e-9)
}

func TestApplyBlowoutDampening(t *testing.T) {
	rows := []table.Row{pveRow(1, 1, 10, 80, 100, -22.0)}

	NewEngine(DefaultConfig()).Apply(rows)

	require.NotNil(t, rows[0].PvE)
	// raw = -20 - (-22) = +2, blowout scale x0.25 = 0.5; no weak scaling
	// with an empty record.
	assert.InDelta(t, 0.5, *rows[0].PvE, 1e-9)
}
