package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "LOG_LEVEL", "LOG_PRETTY", "SESSION_TTL", "SWEEP_SCHEDULE", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "recovery.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "@every 1m", cfg.SweepSchedule)
	assert.Equal(t, DefaultCORSOrigins, cfg.CORSOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("SWEEP_SCHEDULE", "*/30 * * * * *")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DatabasePath)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_OverrideBeforeValidate(t *testing.T) {
	// GIVEN: An out of range port in the environment
	t.Setenv("PORT", "70000")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("SWEEP_SCHEDULE", "")

	// WHEN: Loading
	cfg, err := Load()

	// THEN: Loading succeeds and only Validate rejects the port
	require.NoError(t, err)
	assert.Equal(t, 70000, cfg.Port)
	assert.Error(t, cfg.Validate())

	// AND: A command-line override makes it valid
	cfg.Port = 8080
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Port: 8080, DatabasePath: "x.db", LogLevel: "info", SessionTTL: time.Minute, SweepSchedule: "@every 1m"}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"port":     func(c *Config) { c.Port = 70000 },
		"db path":  func(c *Config) { c.DatabasePath = "" },
		"ttl":      func(c *Config) { c.SessionTTL = 0 },
		"level":    func(c *Config) { c.LogLevel = "verbose" },
		"schedule": func(c *Config) { c.SweepSchedule = "every minute" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
