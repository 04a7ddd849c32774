package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/dispatch"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dispatchd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
tick_rate: 10ms
ticks: 5
workers: 2
failure_policy: halt
log_level: debug
bodies: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.TickRate)
	assert.Equal(t, uint64(5), cfg.Ticks)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, dispatch.Halt, cfg.Policy())
	assert.Equal(t, 3, cfg.Bodies)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, "ticks: 5\nworkers: 2\n")
	t.Setenv("DISPATCH_TICKS", "42")
	t.Setenv("DISPATCH_TICK_RATE", "1s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.Ticks)
	assert.Equal(t, time.Second, cfg.TickRate)
	assert.Equal(t, 2, cfg.Workers, "values not set in env keep the file value")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick rate", func(c *Config) { c.TickRate = 0 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"negative bodies", func(c *Config) { c.Bodies = -1 }},
		{"bad policy", func(c *Config) { c.FailurePolicy = "explode" }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
