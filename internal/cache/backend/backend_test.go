package backend

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/milad/octosync/internal/config"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, tc := range []struct {
		backend  string
		location string
	}{
		{"file", filepath.Join(dir, "cache.json")},
		{"sqlite", "sqlite:" + filepath.Join(dir, "cache.db")},
	} {
		path := strings.TrimPrefix(tc.location, "sqlite:")
		c, closeCache, err := Open(config.Cache{Backend: tc.backend, Path: path}, nil)
		if err != nil {
			t.Fatalf("%s: Open: %v", tc.backend, err)
		}
		if got := c.Location(); got != tc.location {
			t.Fatalf("%s: location=%q want %q", tc.backend, got, tc.location)
		}
		if _, err := c.Load(); err != nil {
			t.Fatalf("%s: Load: %v", tc.backend, err)
		}
		closeCache()
	}

	if _, _, err := Open(config.Cache{Backend: "s3"}, nil); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
