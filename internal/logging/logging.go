// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/abhisek/riskbot/internal/config"
)

// ParseLevel maps a config level name to a slog level. Unknown names map to
// Info and ok is false.
func ParseLevel(name string) (level slog.Level, ok bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New returns a logger writing to stderr.
func New(cfg config.LogConfig, env string) *slog.Logger {
	return NewWithWriter(os.Stderr, cfg, env)
}

// NewWithWriter returns a tint logger in dev or for the text format, and a
// JSON logger with source positions otherwise.
func NewWithWriter(w io.Writer, cfg config.LogConfig, env string) *slog.Logger {
	level, ok := ParseLevel(cfg.Level)

	var handler slog.Handler
	if strings.EqualFold(env, "dev") || strings.EqualFold(cfg.Format, "text") {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}

	logger := slog.New(handler)
	if !ok {
		logger.Warn("unknown log level, defaulting to info", slog.String("level", cfg.Level))
	}
	return logger
}
