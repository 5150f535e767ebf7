// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Context field names shared by all components.
const (
	FieldURLHash  = "url_hash"
	FieldToken    = "token"
	FieldOffset   = "offset"
	FieldCount    = "count"
	FieldTotal    = "total"
	FieldBackend  = "backend"
	FieldDuration = "duration"

	FieldErrorClass = "error_class"
)

// ResultSet returns a child of logger carrying the url hash and token of a
// stored result set.
func ResultSet(logger zerolog.Logger, urlHash, token string) *zerolog.Logger {
	l := logger.With().
		Str(FieldURLHash, urlHash).
		Str(FieldToken, token).
		Logger()
	return &l
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Page cache reads (url_hash, token, offset, count)
//   - Follow-up page requests
//   - Client page fetches
//
// Info: Normal operation events
//   - Pagination initiated (token, total)
//   - Cleanup sweeps that deleted rows
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Unknown or expired token (falls through to a normal listing)
//   - Retry attempts
//   - Cleanup disabled
//
// Error: Error conditions requiring attention
//   - Page cache backend failures
//   - Listing failures after the response started
//   - Failed requests (after retries)
//
// Context Fields:
//   - url_hash: Hash of the request key
//   - token: Result set token
//   - offset: First record index of a page
//   - count: Page size
//   - total: Number of records in a result set
//   - backend: Page cache backend (sql, redis)
//   - duration: Operation duration
//   - error_class: Error classification (client, server, rate_limit, network)
