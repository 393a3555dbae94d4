package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadPartialOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	doc := `
fatigue:
  b2b_bonus: 12
momentum:
  window: 7
store:
  data_dir: /var/lib/nbasignal
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Named keys override.
	assert.Equal(t, 12.0, cfg.Fatigue.B2BBonus)
	assert.Equal(t, 7, cfg.Momentum.Window)
	assert.Equal(t, "/var/lib/nbasignal", cfg.Store.DataDir)

	// Everything else keeps the defaults.
	def := Default()
	assert.Equal(t, def.Fatigue.TravelWeight, cfg.Fatigue.TravelWeight)
	assert.Equal(t, def.Expectation.HomeAdvantage, cfg.Expectation.HomeAdvantage)
	assert.Equal(t, def.Consistency.Window, cfg.Consistency.Window)
	assert.Equal(t, def.Ingest.PerPage, cfg.Ingest.PerPage)
}

func TestLoadRejectsInvalidStageConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	doc := `
archetype:
  winner_win_rate: 0.30
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archetype")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fatigue: ["), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateIngestBounds(t *testing.T) {
	cfg := Default()
	cfg.Ingest.PerPage = 500
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Ingest.RequestsPerSec = 0
	require.Error(t, cfg.Validate())
}
