// Package config loads dispatchd configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/oriumgames/dispatch"
)

// Config holds the runtime settings of the demo simulation.
type Config struct {
	// TickRate is the interval between ticks.
	TickRate time.Duration `yaml:"tick_rate" env:"TICK_RATE"`

	// Ticks stops the run after this many ticks. Zero runs until interrupted.
	Ticks uint64 `yaml:"ticks" env:"TICKS"`

	// Workers bounds parallel systems per group. Zero uses GOMAXPROCS.
	Workers int `yaml:"workers" env:"WORKERS"`

	// FailurePolicy is "retire" or "halt".
	FailurePolicy string `yaml:"failure_policy" env:"FAILURE_POLICY"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// Bodies is the number of simulated bodies.
	Bodies int `yaml:"bodies" env:"BODIES"`
}

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DISPATCH_"

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TickRate:      50 * time.Millisecond,
		Ticks:         100,
		FailurePolicy: "retire",
		LogLevel:      "info",
		Bodies:        8,
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the runner cannot use.
func (c Config) Validate() error {
	var errs []error
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate must be positive, got %v", c.TickRate))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.Bodies < 0 {
		errs = append(errs, fmt.Errorf("bodies must not be negative, got %d", c.Bodies))
	}
	if _, err := dispatch.ParseFailurePolicy(c.FailurePolicy); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Policy returns the parsed failure policy.
func (c Config) Policy() dispatch.FailurePolicy {
	p, _ := dispatch.ParseFailurePolicy(c.FailurePolicy)
	return p
}

// Level returns the parsed log level.
func (c Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
}
