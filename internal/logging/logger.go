// Package logging builds the server's structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a slog.Logger writing to w (os.Stderr in production, a
// buffer in tests) at the given level ("debug", "info", "warn", "error")
// in either "json" or "text" format. An unrecognized level falls back to
// info rather than erroring, so a typo in STORMKV_LOG degrades gracefully
// instead of refusing to start the server.
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// NewFromEnv is the convenience constructor cmd/stormkvd uses: it reads
// STORMKV_LOG for the level (config/flags still set the format) and writes
// to stderr.
func NewFromEnv(format string) *slog.Logger {
	level := os.Getenv("STORMKV_LOG")
	if level == "" {
		level = "info"
	}
	return New(level, format, os.Stderr)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
