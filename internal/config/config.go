// Package config reads engine configuration from environment
// variables with sensible offline defaults.
package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Policies PolicyConfig
	Intel    IntelConfig
	Scoring  ScoringConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig

	// ScansPerMinute caps scan throughput; 0 disables the limiter.
	ScansPerMinute int
}

// PolicyConfig holds organization policy settings.
type PolicyConfig struct {
	Directory    string
	CedarFile    string
	WatchChanges bool
}

// IntelConfig holds threat-intel bundle settings.
type IntelConfig struct {
	BundlePath string
	SigningKey string
}

// ScoringConfig holds scoring data file locations. Empty paths fall
// back to the compiled-in defaults.
type ScoringConfig struct {
	BrandDBPath      string
	ModelWeightsPath string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level     string // debug, info, warn, error
	AuditFile string
}

// MetricsConfig holds metrics exposition settings.
type MetricsConfig struct {
	Enabled  bool
	Port     int
	Endpoint string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Policies: PolicyConfig{
			Directory:    getEnv("POLICY_DIR", "configs/policies"),
			CedarFile:    getEnv("CEDAR_POLICY_FILE", ""),
			WatchChanges: getEnvBool("POLICY_WATCH_CHANGES", true),
		},
		Intel: IntelConfig{
			BundlePath: getEnv("INTEL_BUNDLE_PATH", ""),
			SigningKey: getEnv("INTEL_SIGNING_KEY", ""),
		},
		Scoring: ScoringConfig{
			BrandDBPath:      getEnv("BRAND_DB_PATH", ""),
			ModelWeightsPath: getEnv("MODEL_WEIGHTS_PATH", ""),
		},
		Logging: LoggingConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			AuditFile: getEnv("AUDIT_LOG_FILE", ""),
		},
		Metrics: MetricsConfig{
			Enabled:  getEnvBool("METRICS_ENABLED", false),
			Port:     getEnvInt("METRICS_PORT", 9090),
			Endpoint: getEnv("METRICS_ENDPOINT", "/metrics"),
		},
		ScansPerMinute: getEnvInt("SCANS_PER_MINUTE", 0),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
