// Package logger builds the structured slog loggers used by resourcemcp.
//
// Logs always go to stderr by default: the stdio transport owns stdout for
// protocol framing.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format names accepted in configuration
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds configuration options for the logger
type Config struct {
	Level       slog.Level
	Format      string
	Output      io.Writer
	DefaultTags map[string]any
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:       slog.LevelInfo,
		Format:      FormatText,
		Output:      os.Stderr,
		DefaultTags: map[string]any{"service": "resourcemcp"},
	}
}

// New creates a new logger with the given configuration
func New(config *Config) *slog.Logger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level}
	var handler slog.Handler
	if strings.EqualFold(config.Format, FormatJSON) {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	for k, v := range config.DefaultTags {
		logger = logger.With(k, v)
	}
	return logger
}

// NewFromStrings builds a logger from the level and format names used in
// configuration files.
func NewFromStrings(level, format string, out io.Writer) *slog.Logger {
	config := DefaultConfig()
	config.Level = ParseLevel(level)
	if format != "" {
		config.Format = format
	}
	if out != nil {
		config.Output = out
	}
	return New(config)
}

// ParseLevel converts a string level to a slog.Level. Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a logger tagged with the component name.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", component)
}

// SetDefault installs logger as the process-wide slog default.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
