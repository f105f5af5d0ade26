// Package log configures the process-wide structured logger shared by the
// probeflow binaries.
package log

import (
	"log/slog"
	"os"
)

// moduleKey is the attribute carrying the subsystem name (executor, loader,
// storage, api) on every record.
const moduleKey = "module"

// Setup installs a text handler on stderr at the given level. Unknown level
// names fall back to info.
func Setup(logLevel string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule derives a logger tagged with the subsystem name.
func WithModule(module string) *slog.Logger {
	return slog.With(moduleKey, module)
}
