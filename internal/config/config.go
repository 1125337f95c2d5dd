// Package config provides configuration management for the OnAir server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the server.
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL string

	// Station configuration
	StationName     string
	StationTimezone string // IANA name, e.g. "Europe/London"; empty = host local time

	// Hardware mixer configuration
	MixerEnabled      bool
	MixerScanInterval time.Duration // 0 disables periodic rescans

	// Realtime configuration
	WSBufferSize int // per-subscriber pubsub buffer

	// CORS configuration
	CORSOrigin string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "4000"),
		Env:  getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "file:./onair.db"),

		// Station
		StationName:     getEnv("STATION_NAME", "OnAir"),
		StationTimezone: getEnv("STATION_TIMEZONE", ""),

		// Hardware mixer
		MixerEnabled:      getEnvBool("MIXER_ENABLED", true),
		MixerScanInterval: time.Duration(getEnvInt("MIXER_SCAN_INTERVAL", 0)) * time.Second,

		// Realtime
		WSBufferSize: getEnvInt("WS_BUFFER_SIZE", 16),

		// CORS
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves the station timezone, falling back to host local time.
func (c *Config) Location() *time.Location {
	if c.StationTimezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.StationTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
