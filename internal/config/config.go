package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config holds all connection and server settings resolved from the
// environment. The PG_* keys mirror the warehouse credential set; the
// remaining fields configure the HTTP server.
type Config struct {
	// Warehouse connection
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Schema   string
	// QuoteTable is the quotes table identifier, already quoted for
	// safe interpolation into query text.
	QuoteTable string

	// HTTP Server
	HTTPPort string

	// Logging
	LogLevel string
}

// Load resolves configuration from environment variables, applying
// defaults for the optional keys. Call Validate before using the result.
func Load() *Config {
	return &Config{
		Host:       getEnv("PG_HOST", ""),
		Port:       getEnvInt("PG_PORT", 5432),
		Database:   getEnv("PG_DB", ""),
		User:       getEnv("PG_USER", ""),
		Password:   getEnv("PG_PWD", ""),
		Schema:     QuoteIdent(getEnv("PG_SCHEMA", "csv")),
		QuoteTable: QuoteIdent(getEnv("PG_TBL_ORC", "orcamentos_anon")),

		HTTPPort: getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks that every required connection parameter is present.
// Missing keys are reported together so a misconfigured deployment
// fails once with the full list instead of key by key.
func (c *Config) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "PG_HOST")
	}
	if c.Database == "" {
		missing = append(missing, "PG_DB")
	}
	if c.User == "" {
		missing = append(missing, "PG_USER")
	}
	if c.Password == "" {
		missing = append(missing, "PG_PWD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	var errors []string
	if c.Port < 1 || c.Port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid PG_PORT %d: must be between 1 and 65535", c.Port))
	}
	if port, err := strconv.Atoi(c.HTTPPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.HTTPPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// DSN builds the PostgreSQL connection string. url.URL handles the
// userinfo escaping, which differs from query escaping for characters
// like space and plus.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	return u.String()
}

// QuoteIdent returns ident wrapped in double quotes unless it is
// already a plain lowercase identifier or already quoted. Embedded
// quotes are doubled. The value still comes from trusted configuration;
// quoting only guards against case folding and special characters in
// table names, not against untrusted input.
func QuoteIdent(ident string) string {
	if len(ident) >= 2 && strings.HasPrefix(ident, `"`) && strings.HasSuffix(ident, `"`) {
		return ident
	}
	if isPlainIdent(ident) {
		return ident
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
