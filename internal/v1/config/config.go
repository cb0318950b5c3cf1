package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration
type Config struct {
	// Server
	Port          string
	AllowedOrigin string

	// Optional variables with defaults
	GoEnv    string
	LogLevel string

	// Optional integrations
	OtelCollectorAddr string
	WordBankPath      string
}

// DefaultPort is used when PORT is unset.
const DefaultPort = "5000"

// DefaultAllowedOrigin is used when ALLOWED_ORIGIN is unset.
const DefaultAllowedOrigin = "http://localhost:3000"

// ValidateEnv validates all environment variables and returns a Config object.
// Returns an error naming every invalid variable at once rather than failing
// on the first.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	// PORT (valid port number, defaults to 5000)
	cfg.Port = getEnvOrDefault("PORT", DefaultPort)
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	// ALLOWED_ORIGIN (single origin with scheme and host)
	cfg.AllowedOrigin = getEnvOrDefault("ALLOWED_ORIGIN", DefaultAllowedOrigin)
	if !isValidOrigin(cfg.AllowedOrigin) {
		errs = append(errs, fmt.Sprintf("ALLOWED_ORIGIN must be an absolute origin like 'https://example.com' (got '%s')", cfg.AllowedOrigin))
	}

	// Optional: GO_ENV (defaults to "production")
	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Optional: OTEL_COLLECTOR_ADDR enables tracing when set
	cfg.OtelCollectorAddr = os.Getenv("OTEL_COLLECTOR_ADDR")
	if cfg.OtelCollectorAddr != "" && !isValidHostPort(cfg.OtelCollectorAddr) {
		errs = append(errs, fmt.Sprintf("OTEL_COLLECTOR_ADDR must be in format 'host:port' (got '%s')", cfg.OtelCollectorAddr))
	}

	// Optional: WORD_BANK_PATH overrides the embedded word list
	cfg.WordBankPath = os.Getenv("WORD_BANK_PATH")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return cfg, nil
}

// Development reports whether the server runs with development defaults
// (console logging, gin debug mode).
func (c *Config) Development() bool {
	return c.GoEnv == "development"
}

// isValidOrigin checks that an origin string parses to a URL with a scheme
// and host and no path beyond "/".
func isValidOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	return u.Path == "" || u.Path == "/"
}

// isValidHostPort checks if a string is in the format "host:port"
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	return parts[0] != ""
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
