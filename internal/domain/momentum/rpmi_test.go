package momentum

import (
	"math"
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

func TestConfigValidateRejectsBadWindows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Window = 1
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LongWindow = cfg.ShortWindow
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.VolPenaltyScale = 0
	require.Error(t, cfg.Validate())
}

func TestScoreSteadyWindow(t *testing.T) {
	cfg := DefaultConfig()
	// Zero variance: penalty is 1, the score is the value itself.
	assert.Equal(t, 5.0, cfg.Score([]float64{5, 5, 5, 5, 5}))
}

func TestScoreRecencyWeighting(t *testing.T) {
	cfg := DefaultConfig()

	rising := cfg.Score([]float64{0, 0, 0, 0, 10})
	fading := cfg.Score([]float64{10, 0, 0, 0, 0})
	assert.Greater(t, rising, fading, "recent games must dominate")
}

func TestScoreVolatilityPenalty(t *testing.T) {
	cfg := DefaultConfig()

	steady := cfg.Score([]float64{4, 4, 4, 4, 4})
	// Same recency-weighted mean, wildly different spread.
	noisy := cfg.Score([]float64{12, -4, 12, -4, 8})
	assert.Greater(t, steady, noisy, "a noisy streak must score below a steady one")
}

func TestScoreKnownValue(t *testing.T) {
	cfg := DefaultConfig()

	// Weighted mean of [1..5] with ramp weights = 55/15; popStd = sqrt(2).
	want := (55.0 / 15.0) / (1 + math.Sqrt2/10)
	want = math.Round(want*100) / 100
	assert.Equal(t, want, cfg.Score([]float64{1, 2, 3, 4, 5}))
}

func momRow(gameID int64, d int, pve float64, tie bool) table.Row {
	teamPts, oppPts := 100, 95
	if tie {
		teamPts, oppPts = 100, 100
	}
	r := table.Row{Fact: facts.Fact{
		GameID:         gameID,
		GameDate:       time.Date(2025, 11, d, 0, 0, 0, 0, time.UTC),
		TeamID:         1,
		TeamPoints:     teamPts,
		OpponentPoints: oppPts,
	}}
	if !tie {
		r.PvE = table.Ptr(pve)
	}
	return r
}

func TestApplyWindowFill(t *testing.T) {
	cfg := DefaultConfig()
	pves := []float64{3, -2, 5, 1, 4, 6, -1, 2}
	rows := make([]table.Row, 0, len(pves))
	for i, v := range pves {
		rows = append(rows, momRow(int64(i+1), i+1, v, false))
	}

	NewEngine(cfg).Apply(rows)

	for i := 0; i < 4; i++ {
		assert.Nil(t, rows[i].RPMI, "row %d has under 5 PvE games", i)
	}
	require.NotNil(t, rows[4].RPMI)
	assert.Nil(t, rows[4].RPMIDelta, "first computed value has no predecessor")
	require.NotNil(t, rows[5].RPMI)
	require.NotNil(t, rows[5].RPMIDelta)
	assert.InDelta(t, *rows[5].RPMI-*rows[4].RPMI, *rows[5].RPMIDelta, 0.011)

	// Short window fills at 3 games, long at 8; accel needs both.
	assert.Nil(t, rows[1].RPMIShort)
	require.NotNil(t, rows[2].RPMIShort)
	assert.Nil(t, rows[6].RPMILong)
	require.NotNil(t, rows[7].RPMILong)
	require.NotNil(t, rows[7].RPMIAccel)
	assert.InDelta(t, *rows[7].RPMIShort-*rows[7].RPMILong, *rows[7].RPMIAccel, 0.011)
}

func TestApplySkipsTies(t *testing.T) {
	cfg := DefaultConfig()
	rows := []table.Row{
		momRow(1, 1, 3, false),
		momRow(2, 2, 0, true), // tie: no PvE, must not consume a window slot
		momRow(3, 3, -2, false),
		momRow(4, 4, 5, false),
		momRow(5, 5, 1, false),
		momRow(6, 6, 4, false),
	}

	NewEngine(cfg).Apply(rows)

	assert.Nil(t, rows[1].RPMI)
	assert.Nil(t, rows[4].RPMI, "only 4 PvE games so far")
	require.NotNil(t, rows[5].RPMI, "5th PvE game fills the window")
}

func TestApplyNoLookAhead(t *testing.T) {
	cfg := DefaultConfig()
	pves := []float64{3, -2, 5, 1, 4, 6, -1, 2, 7, -3}
	full := make([]table.Row, 0, len(pves))
	for i, v := range pves {
		full = append(full, momRow(int64(i+1), i+1, v, false))
	}
	prefix := make([]table.Row, 6)
	copy(prefix, full[:6])

	NewEngine(cfg).Apply(full)
	NewEngine(cfg).Apply(prefix)

	for i := range prefix {
		if full[i].RPMI == nil {
			assert.Nil(t, prefix[i].RPMI, "row %d", i)
			continue
		}
		require.NotNil(t, prefix[i].RPMI, "row %d", i)
		assert.Equal(t, *full[i].RPMI, *prefix[i].RPMI, "row %d", i)
	}
}
