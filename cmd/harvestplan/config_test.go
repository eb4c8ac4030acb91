package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, filepath.Join("data", "harvestplan.db"), cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2, cfg.Planner.ReflowSweepFactor)
	assert.True(t, cfg.Report.Color)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
server:
  host: "127.0.0.1"
  port: 9000
  read_timeout: 60s
  write_timeout: 60s
  shutdown_timeout: 15s

database:
  dsn: "/tmp/test.db"

log:
  level: "debug"
  format: "text"

planner:
  reflow_sweep_factor: 5

report:
  color: false
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/tmp/test.db", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Planner.ReflowSweepFactor)
	assert.False(t, cfg.Report.Color)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("HARVESTPLAN_SERVER_HOST", "192.168.1.1")
	t.Setenv("HARVESTPLAN_SERVER_PORT", "3000")
	t.Setenv("HARVESTPLAN_DATABASE_DSN", "/custom/path.db")
	t.Setenv("HARVESTPLAN_LOG_LEVEL", "warn")
	t.Setenv("HARVESTPLAN_LOG_FORMAT", "text")
	t.Setenv("HARVESTPLAN_PLANNER_REFLOW_SWEEP_FACTOR", "3")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/custom/path.db", cfg.Database.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Planner.ReflowSweepFactor)
}

func TestLoadConfig_DataDirDerivesDSN(t *testing.T) {
	clearEnv(t)

	t.Setenv("HARVESTPLAN_DATA_DIR", "/var/lib/harvestplan")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/harvestplan/harvestplan.db", cfg.Database.DSN)
}

func TestLoadConfig_ExplicitDSNOverridesDataDir(t *testing.T) {
	clearEnv(t)

	t.Setenv("HARVESTPLAN_DATA_DIR", "/var/lib/harvestplan")
	t.Setenv("HARVESTPLAN_DATABASE_DSN", "/custom/path.db")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "/custom/path.db", cfg.Database.DSN)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

// =============================================================================
// Config Validation Tests
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{DSN: ":memory:"},
			Planner:  PlannerConfig{ReflowSweepFactor: 2},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"sweep factor zero", func(c *Config) { c.Planner.ReflowSweepFactor = 0 }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfig_Address(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
	}

	assert.Equal(t, "localhost:8080", cfg.Server.Address())
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "text", "unknown"} {
		logger := SetupLogger(&Config{Log: LogConfig{Level: "info", Format: format}})
		assert.NotNil(t, logger, format)
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{Log: LogConfig{Level: "warn", Format: "text"}}, &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{Log: LogConfig{Level: "invalid", Format: "json"}}, &buf)

	logger.Debug("hidden")
	logger.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"HARVESTPLAN_SERVER_HOST",
		"HARVESTPLAN_SERVER_PORT",
		"HARVESTPLAN_DATABASE_DSN",
		"HARVESTPLAN_DATA_DIR",
		"HARVESTPLAN_LOG_LEVEL",
		"HARVESTPLAN_LOG_FORMAT",
		"HARVESTPLAN_PLANNER_REFLOW_SWEEP_FACTOR",
		"HARVESTPLAN_REPORT_COLOR",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
