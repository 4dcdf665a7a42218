// Package logging configures the structured logger
// used across the topdown module.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Configure sets up the global slog logger with the given level and format.
//
// Formats:
//   - "json": structured JSON output, for batch/production runs.
//   - "text": human-readable text, for interactive use.
//
// If output is nil, os.Stderr is used.
func Configure(level slog.Level, format string, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// ParseLevel converts a level name to a slog.Level.
// Unrecognized names default to slog.LevelInfo.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
