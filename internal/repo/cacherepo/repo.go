// Package cacherepo serves a ReadingRepository from a snapshot of a
// ReadingCache that can be swapped for a fresh one while requests are in
// flight.
package cacherepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/milad/octosync/internal/cache"
	"github.com/milad/octosync/internal/domain"
	"github.com/milad/octosync/internal/metrics"
	"github.com/milad/octosync/internal/repo"
)

var _ repo.ReadingRepository = (*Repo)(nil)

type Repo struct {
	source cache.ReadingCache
	store  atomic.Pointer[cache.Store]
	log    *slog.Logger
}

// Open loads source once. Call Reload to pick up later syncs.
func Open(source cache.ReadingCache, logger *slog.Logger) (*Repo, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Repo{source: source, log: logger}
	if err := r.Reload(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

// New serves a fixed store; Reload on it is an error.
func New(s *cache.Store) *Repo {
	r := &Repo{log: slog.New(slog.DiscardHandler)}
	r.store.Store(s)
	return r
}

// Reload replaces the snapshot with a fresh Load of the source. On failure
// the previous snapshot stays in place.
func (r *Repo) Reload(ctx context.Context) error {
	if r.source == nil {
		return errors.New("cacherepo: no source to reload from")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := r.source.Load()
	if err != nil {
		return fmt.Errorf("reload %s: %w", r.source.Location(), err)
	}
	r.store.Store(s)
	for _, t := range domain.EnergyTypes {
		metrics.SetCachedReadings(t.String(), s.Len(t))
	}
	r.log.Info("cache snapshot reloaded",
		slog.String("location", r.source.Location()),
		slog.Int("electricity", s.Len(domain.Electricity)),
		slog.Int("gas", s.Len(domain.Gas)),
	)
	return nil
}

func (r *Repo) List(ctx context.Context, t domain.EnergyType, startInclusive *time.Time, endExclusive *time.Time) ([]domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.store.Load().Range(t, startInclusive, endExclusive), nil
}

func (r *Repo) Latest(ctx context.Context, t domain.EnergyType) (domain.Reading, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reading{}, false, err
	}
	got, ok := r.store.Load().MostRecent(t)
	return got, ok, nil
}
