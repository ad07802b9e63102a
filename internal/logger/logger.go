// Package logger builds the structured logger shared by the binaries.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init creates a JSON logger for service writing to stderr and installs it as
// the slog default.
func Init(service string, level slog.Level) *slog.Logger {
	l := New(os.Stderr, service, level)
	slog.SetDefault(l)
	return l
}

// New builds the same logger on an arbitrary writer.
func New(w io.Writer, service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("service", service))
}

// ParseLevel maps debug|info|warn|error to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
