package infra

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process-wide slog logger from the configured level
// and installs it as the default. Unknown levels fall back to info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return logger
}

// Recover logs a panic with its stack location and re-panics. Deferred at the
// top of every long-lived goroutine so a crash is journaled before the
// process dies.
func Recover(scope string) {
	if r := recover(); r != nil {
		slog.Error("PANIC",
			slog.String("scope", scope),
			slog.Any("cause", r))
		panic(r)
	}
}
