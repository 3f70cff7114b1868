package observability

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every entry written by NewLogger.
const ServiceName = "paper-enrichment-service"

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string

	// Format is json, or console/pretty for human-readable output.
	Format string

	// Output is stdout, stderr or a file path opened for appending.
	Output string

	// AddSource adds source file and line number to log entries.
	AddSource bool

	// TimeFormat is the timestamp layout. Empty means RFC3339.
	TimeFormat string
}

// NewLogger creates the process logger. An output file that cannot be opened falls
// back to stderr and the failure is logged as the first entry.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	output, openErr := openOutput(cfg.Output)

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	}

	ctx := zerolog.New(output).With().Timestamp().Str("service", ServiceName)
	if cfg.AddSource {
		ctx = ctx.Caller()
	}

	level := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	logger := ctx.Logger().Level(level)

	if openErr != nil {
		logger.Warn().Err(openErr).Str("output", cfg.Output).Msg("falling back to stderr")
	}
	return logger
}

// ParseLevel converts a level name to a zerolog.Level. Unknown or empty names yield
// info; "warning" is accepted as warn.
func ParseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	parsed, err := zerolog.ParseLevel(name)
	if err != nil || name == "" || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stderr, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
