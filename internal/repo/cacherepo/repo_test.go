package cacherepo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/milad/octosync/internal/cache"
	"github.com/milad/octosync/internal/domain"
)

var base = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

func reading(n int, kwh float64) domain.Reading {
	start := base.Add(time.Duration(n) * 30 * time.Minute)
	return domain.Reading{Type: domain.Electricity, IntervalStart: start, IntervalEnd: start.Add(30 * time.Minute), Consumption: kwh}
}

func TestRepo_ListFiltersByTimeRange(t *testing.T) {
	t.Parallel()

	s := cache.NewStore()
	if _, err := s.Merge(domain.Electricity, []domain.Reading{reading(0, 1), reading(1, 2), reading(2, 3)}); err != nil {
		t.Fatal(err)
	}
	r := New(s)

	start := base.Add(30 * time.Minute)
	end := base.Add(time.Hour)
	out, err := r.List(context.Background(), domain.Electricity, &start, &end)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got, want := len(out), 1; got != want {
		t.Fatalf("len(out)=%d want %d", got, want)
	}
	if got, want := out[0].Consumption, 2.0; got != want {
		t.Fatalf("out[0].Consumption=%v want %v", got, want)
	}

	gas, err := r.List(context.Background(), domain.Gas, nil, nil)
	if err != nil {
		t.Fatalf("List gas: %v", err)
	}
	if len(gas) != 0 {
		t.Fatalf("len(gas)=%d want 0", len(gas))
	}
}

func TestRepo_Latest(t *testing.T) {
	t.Parallel()

	s := cache.NewStore()
	r := New(s)
	if _, ok, err := r.Latest(context.Background(), domain.Electricity); err != nil || ok {
		t.Fatalf("Latest on empty store: ok=%v err=%v", ok, err)
	}
	if _, err := s.Merge(domain.Electricity, []domain.Reading{reading(0, 1), reading(5, 6)}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := r.Latest(context.Background(), domain.Electricity)
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if got.Consumption != 6 {
		t.Fatalf("latest=%+v", got)
	}
}

func TestRepo_ReloadPicksUpNewSnapshotAndKeepsOldOnError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	fc := cache.NewFileCache(path, nil)
	r, err := Open(fc, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	s := cache.NewStore()
	if _, err := s.Merge(domain.Electricity, []domain.Reading{reading(0, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := fc.Flush(s); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	out, _ := r.List(context.Background(), domain.Electricity, nil, nil)
	if got, want := len(out), 1; got != want {
		t.Fatalf("len(out)=%d want %d", got, want)
	}

	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(context.Background()); !errors.Is(err, cache.ErrCorruptCache) {
		t.Fatalf("err=%v want ErrCorruptCache", err)
	}
	out, _ = r.List(context.Background(), domain.Electricity, nil, nil)
	if got, want := len(out), 1; got != want {
		t.Fatalf("after failed reload len(out)=%d want %d", got, want)
	}
}
