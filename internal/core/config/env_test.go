package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PYINSIGHT_ANALYSIS_WORKERS", "7")
	t.Setenv("PYINSIGHT_ANALYSIS_INCLUDE_TESTS", "TRUE")
	t.Setenv("PYINSIGHT_RANKING_DOC_BONUS", "0.25")
	t.Setenv("PYINSIGHT_SERVER_ADDRESS", ":9999")
	t.Setenv("PYINSIGHT_HISTORY_ENABLED", "true")
	t.Setenv("PYINSIGHT_ANALYSIS_TOP_N", "not-a-number")

	cfg := &Config{}
	ApplyEnvOverrides(cfg)
	applyDefaults(cfg)

	assert.Equal(t, 7, cfg.Analysis.Workers)
	assert.True(t, cfg.Analysis.IncludeTests)
	assert.InDelta(t, 0.25, Weight(cfg.Ranking.DocBonus), 1e-9)
	assert.InDelta(t, DefaultInDegreeWeight, Weight(cfg.Ranking.InDegreeWeight), 1e-9)
	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 10, cfg.Analysis.TopN)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[analysis]\nworkers = 2\n")
	t.Setenv("PYINSIGHT_ANALYSIS_WORKERS", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Analysis.Workers)
}

func TestLoad_EnvRejectsNonFiniteWeight(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("PYINSIGHT_RANKING_IN_DEGREE_WEIGHT", "NaN")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ranking.in_degree_weight must be a finite number")
}
