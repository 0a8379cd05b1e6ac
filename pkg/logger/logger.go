// Package logger wraps slog with the bridge's level/format/output
// conventions so every package logs through the same handler.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Logger embeds *slog.Logger so callers get Info/Warn/Error/Debug directly.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration read from config.LoggingConfig.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text", "json"
	Output string // "stdout", "file"
	File   string // path to log file, required when Output == "file"
}

var globalLogger *Logger

// New builds a Logger for one process's lifetime; aawgbridge calls this
// once at startup with the loaded config.Bundle.Logging.
func New(config Config) *Logger {
	var level slog.Level
	switch strings.ToLower(config.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	writer := os.Stdout
	if config.Output == "file" && config.File != "" {
		f, err := os.OpenFile(config.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			writer = f
		} else {
			fmt.Fprintf(os.Stderr, "logger: open %q failed, falling back to stdout: %v\n", config.File, err)
		}
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	l := &Logger{Logger: slog.New(handler).With("component", "aawgbridge")}

	if globalLogger == nil {
		globalLogger = l
	}

	return l
}

// Global returns the process-wide logger, defaulting to info/text/stdout
// if New hasn't been called yet.
func Global() *Logger {
	if globalLogger == nil {
		return New(Config{Level: "info", Format: "text"})
	}
	return globalLogger
}

// SetGlobal replaces the process-wide logger, mainly for tests.
func SetGlobal(l *Logger) {
	globalLogger = l
}
