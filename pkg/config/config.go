// Package config provides configuration management for the ledger engine.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	// DBPath is the SQLite database file path.
	DBPath string
	// TenantID is the default tenant used by the CLI when --tenant is not
	// given. Engine calls always receive an explicit tenant id.
	TenantID string
	// Installments overrides the default installment count for recurring
	// transactions. Zero keeps the engine default.
	Installments int
	Debug        bool
}

// Load loads configuration from environment variables.
// It automatically loads .env from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	installments, err := parseIntEnv("LEDGER_INSTALLMENTS", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_INSTALLMENTS: %w", err)
	}

	config := &Config{
		DBPath:       getEnvOrDefault("LEDGER_DB_PATH", "./ledger.db"),
		TenantID:     os.Getenv("LEDGER_TENANT_ID"),
		Installments: installments,
		Debug:        os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate checks that the named fields are set. Supported names:
// "dbPath", "tenantId".
func (c *Config) Validate(required ...string) error {
	var missing []string

	for _, name := range required {
		var value string
		switch name {
		case "dbPath":
			value = c.DBPath
		case "tenantId":
			value = c.TenantID
		}
		if value == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}
