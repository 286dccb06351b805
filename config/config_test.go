package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "leave.db", cfg.Database.Path)
	assert.False(t, cfg.Engine.EnforceCarryoverCap)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  allowed_origins: ["https://hr.example.com"]
database:
  driver: postgres
  url: postgres://leave@localhost/leave
  max_conns: 4
engine:
  enforce_carryover_cap: true
scheduler:
  interval: 30m
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://hr.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, int32(4), cfg.Database.MaxConns)
	assert.True(t, cfg.Engine.EnforceCarryoverCap)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
	// Unset keys keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LEAVE_SERVER_PORT", "7070")
	t.Setenv("LEAVE_LOGGER_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:    ServerConfig{Port: 8080},
			Database:  DatabaseConfig{Driver: "sqlite", Path: "leave.db"},
			Scheduler: SchedulerConfig{Enabled: true, Interval: time.Hour},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, false},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, false},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, false},
		{"postgres without url", func(c *Config) { c.Database.Driver = "postgres" }, false},
		{"postgres with url", func(c *Config) { c.Database.Driver = "postgres"; c.Database.URL = "postgres://x" }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, false},
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }, false},
		{"disabled scheduler ignores interval", func(c *Config) { c.Scheduler.Enabled = false; c.Scheduler.Interval = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "leave.log")

	logger, err := NewLogger(LoggerConfig{Level: "not-a-level", OutputPath: path, Format: "json"})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
