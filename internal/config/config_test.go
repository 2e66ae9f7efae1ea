package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Generation.MaxOccurrences)
	assert.Equal(t, 90, cfg.Extender.LookaheadDays)
	assert.Equal(t, 2, cfg.Extender.ExtendYears)
	assert.Equal(t, 4, cfg.Extender.LongCycleExtendYears)
	assert.Equal(t, 50, cfg.Extender.BatchSize)
	assert.Equal(t, "@daily", cfg.Extender.CronSpec)
}

func TestLoad_SparseFileKeepsFloors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskcycle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extender:\n  lookahead_days: 30\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Extender.LookaheadDays)
	assert.Equal(t, 2, cfg.Extender.ExtendYears, "unset fields fall back to defaults")
	assert.Equal(t, 1000, cfg.Generation.MaxOccurrences)
}

func TestLoad_EnvOverridesDBPath(t *testing.T) {
	t.Setenv("TASKCYCLE_DB", "/tmp/override.db")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
}

func TestLoad_BadYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n\t-"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
