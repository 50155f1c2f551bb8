// Package config holds the process-wide configuration. It is loaded once in
// main and threaded explicitly into each component; nothing here is global
// state.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/wardrive/apmapper/internal/estimate"
	"github.com/wardrive/apmapper/internal/timeline"
)

// Duration wraps time.Duration so YAML values like "30s" decode naturally.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full configuration for one batch run.
type Config struct {
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`

	// Workers caps the number of session pairs parsed in parallel.
	// Zero means one worker per CPU.
	Workers int `yaml:"workers" validate:"gte=0"`

	Sync struct {
		// Tolerance is the maximum time gap between an observation and a
		// GPS fix for the fix to count.
		Tolerance Duration `yaml:"tolerance"`
	} `yaml:"sync"`

	Aggregate struct {
		CollapseDuplicates bool `yaml:"collapse_duplicates"`
	} `yaml:"aggregate"`

	Estimator struct {
		Method           string  `yaml:"method" validate:"omitempty,oneof=centroid trilateration"`
		MinSpacingMeters float64 `yaml:"min_spacing_meters" validate:"gte=0"`
	} `yaml:"estimator"`

	Filter struct {
		Enabled         bool `yaml:"enabled"`
		MinObservations int  `yaml:"min_observations" validate:"gte=0"`
		RequirePassword bool `yaml:"require_password"`
	} `yaml:"filter"`

	Potfile struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"potfile"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	var cfg Config
	cfg.LogLevel = "info"
	cfg.Workers = runtime.NumCPU()
	cfg.Sync.Tolerance = Duration(timeline.DefaultTolerance)
	cfg.Estimator.Method = string(estimate.MethodCentroid)
	cfg.Estimator.MinSpacingMeters = estimate.DefaultMinSpacingMeters
	cfg.Filter.MinObservations = 3
	cfg.Potfile.Enabled = true
	return cfg
}

// Load reads a YAML configuration file over the defaults and validates the
// result.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
