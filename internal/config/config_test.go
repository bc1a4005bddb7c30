package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/features"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultRunConfig_Valid(t *testing.T) {
	run := DefaultRunConfig()
	require.NoError(t, run.Validate())
	assert.Equal(t, 5.0, run.CutoffDistance)
	assert.Equal(t, "900-65535", run.ThresholdRange())
	assert.Equal(t, "1-100", run.SizeRange())
	assert.Equal(t, features.IndexBruteForce, run.IndexKind())
}

func TestRunConfig_Validate(t *testing.T) {
	neg := -1.0
	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"inverted thresholds", func(r *RunConfig) { r.ThresholdLower, r.ThresholdUpper = 10, 5 }},
		{"unknown auto method", func(r *RunConfig) { r.AutoThresholdMethod = "Magic" }},
		{"zero min size", func(r *RunConfig) { r.ParticleSizeMin = 0 }},
		{"inverted sizes", func(r *RunConfig) { r.ParticleSizeMin, r.ParticleSizeMax = 20, 10 }},
		{"zero cutoff", func(r *RunConfig) { r.CutoffDistance = 0 }},
		{"negative tie fraction", func(r *RunConfig) { r.TieFraction = -0.5 }},
		{"negative tie tolerance", func(r *RunConfig) { r.TieTolerance = &neg }},
		{"no workers", func(r *RunConfig) { r.Workers = 0 }},
		{"unknown index", func(r *RunConfig) { r.Index = "octree" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := DefaultRunConfig()
			tt.mutate(&run)
			err := run.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, features.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestRunConfig_AutoThresholdSkipsRangeCheck(t *testing.T) {
	run := DefaultRunConfig()
	run.ThresholdLower, run.ThresholdUpper = 10, 5
	run.AutoThresholdMethod = "otsu"
	require.NoError(t, run.Validate())
	assert.Equal(t, "otsu", run.ThresholdRange())
}

func TestRunConfig_ResolveTieTolerance(t *testing.T) {
	run := DefaultRunConfig()
	assert.InDelta(t, 0.1, run.ResolveTieTolerance(0.2, 0.4), 1e-12)

	run.TieFraction = 1
	assert.InDelta(t, 0.2, run.ResolveTieTolerance(0.2, 0.4), 1e-12)

	explicit := 0.75
	run.TieTolerance = &explicit
	assert.Equal(t, 0.75, run.ResolveTieTolerance(0.2, 0.4))
}

func TestLoadRunProfile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.toml", `
cutoff_distance = 3.5
tie_fraction = 1.0
auto_threshold_method = "Li"
display_measurements = true
index = "kdtree"
workers = 4
`)

	run, err := LoadRunProfile(path, DefaultRunConfig())
	require.NoError(t, err)
	assert.Equal(t, 3.5, run.CutoffDistance)
	assert.Equal(t, 1.0, run.TieFraction)
	assert.Equal(t, "Li", run.AutoThresholdMethod)
	assert.True(t, run.DisplayMeasurements)
	assert.Equal(t, features.IndexKDTree, run.IndexKind())
	assert.Equal(t, 4, run.Workers)
	// untouched keys keep defaults
	assert.Equal(t, 100.0, run.ParticleSizeMax)
	require.NoError(t, run.Validate())
}

func TestLoadRunProfile_UnknownKey(t *testing.T) {
	path := writeFile(t, t.TempDir(), "run.toml", "snap_to = 4\n")
	_, err := LoadRunProfile(path, DefaultRunConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snap_to")
}

func TestLoadRunProfile_Missing(t *testing.T) {
	_, err := LoadRunProfile(filepath.Join(t.TempDir(), "absent.toml"), DefaultRunConfig())
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	profile := writeFile(t, dir, "run.toml", "cutoff_distance = 7\n")
	envFile := writeFile(t, dir, "test.env",
		EnvLogLevel+"=debug\n"+EnvDatabase+"="+filepath.Join(dir, "history.db")+"\n"+EnvProfile+"="+profile+"\n")

	for _, key := range []string{EnvLogLevel, EnvDatabase, EnvProfile} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.DatabasePath)
	assert.Equal(t, 7.0, cfg.Run.CutoffDistance)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	for _, key := range []string{EnvLogLevel, EnvDatabase, EnvProfile} {
		t.Setenv(key, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRunConfig(), cfg.Run)
}
