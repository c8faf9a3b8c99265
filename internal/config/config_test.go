package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FRONTIER_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultSimulationCount, cfg.SimulationCount)
	assert.Equal(t, DefaultRiskFreeRate, cfg.RiskFreeRate)
	assert.Equal(t, DefaultAnnualization, cfg.Annualization)
	assert.Equal(t, DefaultLookbackDays, cfg.LookbackDays)
	assert.Equal(t, 0.0, cfg.WeightMin)
	assert.Equal(t, 1.0, cfg.WeightMax)
	assert.Nil(t, cfg.Seed)
	assert.Nil(t, cfg.Universe)
	assert.Empty(t, cfg.RunSchedule)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FRONTIER_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9999")
	t.Setenv("UNIVERSE", "AAA, BBB ,CCC")
	t.Setenv("SIM_COUNT", "500")
	t.Setenv("SIM_SEED", "12345")
	t.Setenv("RISK_FREE_RATE", "0.03")
	t.Setenv("RUN_SCHEDULE", "0 18 * * 1-5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, cfg.Universe)
	assert.Equal(t, 500, cfg.SimulationCount)
	require.NotNil(t, cfg.Seed)
	assert.EqualValues(t, 12345, *cfg.Seed)
	assert.Equal(t, 0.03, cfg.RiskFreeRate)
	assert.Equal(t, "0 18 * * 1-5", cfg.RunSchedule)
}

func TestLoadInvalidSeed(t *testing.T) {
	t.Setenv("FRONTIER_DATA_DIR", t.TempDir())
	t.Setenv("SIM_SEED", "not-a-number")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadInvalidBounds(t *testing.T) {
	t.Setenv("FRONTIER_DATA_DIR", t.TempDir())
	t.Setenv("WEIGHT_MIN", "0.9")
	t.Setenv("WEIGHT_MAX", "0.1")

	_, err := Load()
	require.Error(t, err)
}

func TestDatabasePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FRONTIER_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.HistoryDBPath(), "history.db")
	assert.Contains(t, cfg.ResultsDBPath(), "results.db")
}
