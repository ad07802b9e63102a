package rediscache

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/milad/octosync/internal/cache"
	"github.com/milad/octosync/internal/domain"
)

// Requires a disposable Redis; set OCTOSYNC_TEST_REDIS_ADDR to run.
func TestCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("OCTOSYNC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("OCTOSYNC_TEST_REDIS_ADDR not set")
	}

	c, err := New(Config{Addr: addr, Prefix: "octosync-test-" + uuid.NewString()}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Flush(cache.NewStore())
		_ = c.Close()
	})

	base := time.Date(2022, 6, 1, 8, 0, 0, 0, time.UTC)
	s := cache.NewStore()
	_, err = s.Merge(domain.Electricity, []domain.Reading{
		{Type: domain.Electricity, IntervalStart: base, IntervalEnd: base.Add(30 * time.Minute), Consumption: 1},
		{Type: domain.Electricity, IntervalStart: base.Add(30 * time.Minute), IntervalEnd: base.Add(time.Hour), Consumption: 2},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if err := c.Flush(s); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	loaded, err := c.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Equal(s) {
		t.Fatalf("round trip mismatch")
	}
}
