package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNew_WritesServiceField(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(&buf, "octosync", slog.LevelInfo)
	l.Debug("hidden")
	l.Info("hello", slog.Int("n", 1))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if got, want := line["service"], "octosync"; got != want {
		t.Fatalf("service=%v want %v", got, want)
	}
	if got, want := line["msg"], "hello"; got != want {
		t.Fatalf("msg=%v want %v", got, want)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{"": slog.LevelInfo, "DEBUG": slog.LevelDebug, "warn": slog.LevelWarn, "error": slog.LevelError} {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
}
