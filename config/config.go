/*
Package config loads server configuration from the environment.

SOURCES (later wins):
  1. Defaults below
  2. .env file in the working directory, if present
  3. Process environment
  4. Command-line flags (applied by cmd/server)

VARIABLES:
  PORT            HTTP port (default: 8080)
  DB_PATH         SQLite database path (default: recovery.db)
  LOG_LEVEL       debug, info, warn, error (default: info)
  LOG_PRETTY      Console output instead of JSON (default: false)
  SESSION_TTL     Idle time before a handling session is discarded (default: 30m)
  SWEEP_SCHEDULE  Cron schedule of the session sweeper (default: @every 1m)
  CORS_ORIGINS    Comma-separated allowed origins
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	Port          int
	DatabasePath  string
	LogLevel      string
	LogPretty     bool
	SessionTTL    time.Duration
	SweepSchedule string
	CORSOrigins   []string
}

// DefaultCORSOrigins are the local frontend dev servers.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// Load reads configuration from environment variables. It does not validate:
// callers apply their overrides first and then call Validate.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnvAsInt("PORT", 8080),
		DatabasePath:  getEnv("DB_PATH", "recovery.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getEnvAsBool("LOG_PRETTY", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@every 1m"),
		CORSOrigins:   getEnvAsList("CORS_ORIGINS", DefaultCORSOrigins),
	}

	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	if _, err := ScheduleParser.Parse(c.SweepSchedule); err != nil {
		return fmt.Errorf("SWEEP_SCHEDULE %q: %w", c.SweepSchedule, err)
	}
	return nil
}

// ScheduleParser accepts the same specs as a cron.New(cron.WithSeconds()) scheduler.
var ScheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
