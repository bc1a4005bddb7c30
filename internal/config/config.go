// Package config loads process settings from the environment and run
// parameters from an optional TOML profile.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/features"
)

// Environment variables read by Load.
const (
	EnvLogLevel = "SKELETON_TAGGER_LOG_LEVEL"
	EnvDatabase = "SKELETON_TAGGER_DB"
	EnvProfile  = "SKELETON_TAGGER_PROFILE"
)

// Config holds process-level settings.
type Config struct {
	// LogLevel is "debug" or anything else for normal output.
	LogLevel string

	// DatabasePath is the SQLite file used for report history. Empty keeps
	// history in memory.
	DatabasePath string

	// ProfilePath is a TOML file with RunConfig overrides. Empty uses defaults.
	ProfilePath string

	// Run holds the defaults applied to every classification run.
	Run RunConfig
}

// Load reads envFile (ignored when missing; "" means ".env"), then the
// environment, then the run profile named by SKELETON_TAGGER_PROFILE.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		LogLevel:     os.Getenv(EnvLogLevel),
		DatabasePath: os.Getenv(EnvDatabase),
		ProfilePath:  os.Getenv(EnvProfile),
		Run:          DefaultRunConfig(),
	}

	if cfg.ProfilePath != "" {
		run, err := LoadRunProfile(cfg.ProfilePath, cfg.Run)
		if err != nil {
			return nil, err
		}
		cfg.Run = run
	}

	return cfg, nil
}

// RunConfig is the parameter set of one classification run. The threshold and
// size fields configure the external particle locator; they are validated and
// echoed in the report row but not used by the classifier.
type RunConfig struct {
	ThresholdLower      float64 `toml:"threshold_lower" json:"threshold_lower"`
	ThresholdUpper      float64 `toml:"threshold_upper" json:"threshold_upper"`
	AutoThresholdMethod string  `toml:"auto_threshold_method" json:"auto_threshold_method,omitempty"`
	ParticleSizeMin     float64 `toml:"particle_size_min" json:"particle_size_min"`
	ParticleSizeMax     float64 `toml:"particle_size_max" json:"particle_size_max"`

	// CutoffDistance is the maximum "snap to" distance in calibrated units.
	CutoffDistance float64 `toml:"cutoff_distance" json:"cutoff_distance"`

	// TieFraction scales the smallest pixel dimension into the tie tolerance.
	TieFraction float64 `toml:"tie_fraction" json:"tie_fraction"`

	// TieTolerance, when set, overrides TieFraction.
	TieTolerance *float64 `toml:"tie_tolerance" json:"tie_tolerance,omitempty"`

	DisplayMeasurements bool `toml:"display_measurements" json:"display_measurements"`

	// Index is "brute" or "kdtree".
	Index string `toml:"index" json:"index"`

	Workers int `toml:"workers" json:"workers"`
}

// DefaultRunConfig returns the stock run parameters.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		ThresholdLower:  900,
		ThresholdUpper:  65535,
		ParticleSizeMin: 1.5,
		ParticleSizeMax: 100,
		CutoffDistance:  5,
		TieFraction:     0.5,
		Index:           "brute",
		Workers:         1,
	}
}

// LoadRunProfile decodes a TOML profile on top of base. Keys missing from the
// file keep their base value.
func LoadRunProfile(path string, base RunConfig) (RunConfig, error) {
	run := base
	md, err := toml.DecodeFile(path, &run)
	if err != nil {
		return base, fmt.Errorf("failed to read run profile %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return base, fmt.Errorf("run profile %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return run, nil
}

// AutoThresholdMethods lists the automatic threshold methods a particle
// locator may be asked to use.
var AutoThresholdMethods = []string{
	"Default", "Huang", "Intermodes", "IsoData", "Li", "MaxEntropy", "Mean",
	"MinError", "Minimum", "Moments", "Otsu", "Percentile", "RenyiEntropy",
	"Shanbhag", "Triangle", "Yen",
}

// Validate checks the run parameters. Failures wrap features.ErrInvalidInput.
func (r RunConfig) Validate() error {
	invalid := func(format string, v ...interface{}) error {
		return fmt.Errorf("%w: %s", features.ErrInvalidInput, fmt.Sprintf(format, v...))
	}

	if r.AutoThresholdMethod != "" {
		if !knownMethod(r.AutoThresholdMethod) {
			return invalid("unknown auto threshold method %q", r.AutoThresholdMethod)
		}
	} else if r.ThresholdLower > r.ThresholdUpper {
		return invalid("threshold range %v-%v is inverted", r.ThresholdLower, r.ThresholdUpper)
	}
	if !(r.ParticleSizeMin > 0) || !(r.ParticleSizeMax > 0) {
		return invalid("particle sizes must be positive, got %v-%v", r.ParticleSizeMin, r.ParticleSizeMax)
	}
	if r.ParticleSizeMin > r.ParticleSizeMax {
		return invalid("particle size range %v-%v is inverted", r.ParticleSizeMin, r.ParticleSizeMax)
	}
	if !(r.CutoffDistance > 0) || math.IsInf(r.CutoffDistance, 1) {
		return invalid("cutoff distance must be positive, got %v", r.CutoffDistance)
	}
	if !(r.TieFraction >= 0) {
		return invalid("tie fraction must be >= 0, got %v", r.TieFraction)
	}
	if r.TieTolerance != nil && !(*r.TieTolerance >= 0) {
		return invalid("tie tolerance must be >= 0, got %v", *r.TieTolerance)
	}
	if r.Workers < 1 {
		return invalid("workers must be >= 1, got %d", r.Workers)
	}
	if _, err := features.ParseIndexKind(r.Index); err != nil {
		return invalid("%v", err)
	}
	return nil
}

// IndexKind returns the parsed Index. Call Validate first.
func (r RunConfig) IndexKind() features.IndexKind {
	kind, _ := features.ParseIndexKind(r.Index)
	return kind
}

// ResolveTieTolerance returns TieTolerance when set, otherwise TieFraction
// applied to the given pixel dimensions.
func (r RunConfig) ResolveTieTolerance(pixelWidth, pixelHeight float64) float64 {
	if r.TieTolerance != nil {
		return *r.TieTolerance
	}
	return features.TieTolerance(pixelWidth, pixelHeight, r.TieFraction)
}

// ThresholdRange formats the threshold setting for report rows.
func (r RunConfig) ThresholdRange() string {
	if r.AutoThresholdMethod != "" {
		return r.AutoThresholdMethod
	}
	return fmt.Sprintf("%d-%d", int(r.ThresholdLower), int(r.ThresholdUpper))
}

// SizeRange formats the particle size range for report rows.
func (r RunConfig) SizeRange() string {
	return fmt.Sprintf("%d-%d", int(r.ParticleSizeMin), int(r.ParticleSizeMax))
}

func knownMethod(name string) bool {
	for _, m := range AutoThresholdMethods {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}
