package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/milad/octosync/internal/cache"
	"github.com/milad/octosync/internal/config"
	"github.com/milad/octosync/internal/domain"
	"github.com/milad/octosync/internal/syncer"
)

var discard = slog.New(slog.DiscardHandler)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Cache:          config.Cache{Backend: "file", Path: filepath.Join(t.TempDir(), "consumption_data.json")},
		Lookback:       time.Hour,
		SyncInterval:   time.Hour,
		ReloadInterval: time.Hour,
	}
}

func TestImportThenExport(t *testing.T) {
	cfg := testConfig(t)
	in := filepath.Join(t.TempDir(), "in.csv")
	csv := "interval_start,interval_end,consumption\n" +
		"2022-06-01T08:00:00Z,2022-06-01T08:30:00Z,1\n" +
		"2022-06-01T08:30:00Z,2022-06-01T09:00:00Z,2\n"
	if err := os.WriteFile(in, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := runImport(ctx, cfg, discard, []string{"-type", "gas", "-in", in}); err != nil {
		t.Fatalf("import: %v", err)
	}
	store, err := cache.NewFileCache(cfg.Cache.Path, nil).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := store.Len(domain.Gas), 2; got != want {
		t.Fatalf("gas=%d want %d", got, want)
	}

	out := filepath.Join(t.TempDir(), "out.csv")
	if err := runExport(ctx, cfg, discard, []string{"-type", "gas", "-o", out}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), csv; got != want {
		t.Fatalf("export:\n%s\nwant:\n%s", got, want)
	}
}

func TestImport_OverlapFailsAndLeavesCache(t *testing.T) {
	cfg := testConfig(t)
	in := filepath.Join(t.TempDir(), "in.csv")
	csv := "interval_start,interval_end,consumption\n" +
		"2022-06-01T08:00:00Z,2022-06-01T08:30:00Z,1\n" +
		"2022-06-01T08:15:00Z,2022-06-01T08:45:00Z,2\n"
	if err := os.WriteFile(in, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	err := runImport(context.Background(), cfg, discard, []string{"-in", in})
	if !errors.Is(err, cache.ErrInvalidReading) {
		t.Fatalf("err=%v want ErrInvalidReading", err)
	}
	store, err := cache.NewFileCache(cfg.Cache.Path, nil).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := store.Len(domain.Electricity); got != 0 {
		t.Fatalf("electricity=%d want 0", got)
	}
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printReport(&buf, syncer.Report{
		RunID: "run-1",
		Types: []syncer.TypeReport{
			{Type: domain.Electricity, UpToDate: true},
			{Type: domain.Gas, NotConfigured: true},
		},
	})
	out := buf.String()
	for _, want := range []string{"sync run-1", "up to date", "not configured"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}
