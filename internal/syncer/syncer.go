// Package syncer brings the local reading cache up to date with the remote
// API: load, plan, fetch, merge, flush.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/milad/octosync/internal/cache"
	"github.com/milad/octosync/internal/domain"
	"github.com/milad/octosync/internal/metrics"
	"github.com/milad/octosync/internal/octopus"
)

// ErrFetch wraps any failure reported by the Fetcher.
var ErrFetch = errors.New("fetch failed")

// Fetcher is the remote side. *octopus.Client implements it.
type Fetcher interface {
	Configured(t domain.EnergyType) bool
	FetchPages(ctx context.Context, t domain.EnergyType, rng domain.TimeRange, fn octopus.PageFunc) error
}

type Options struct {
	Lookback time.Duration
	// SkipOnFetchError turns a fetch failure into a warning: whatever was
	// merged is still flushed and Run returns no error.
	SkipOnFetchError bool
	Now              func() time.Time
}

type Syncer struct {
	cache   cache.ReadingCache
	fetcher Fetcher
	planner cache.Planner
	opts    Options
	log     *slog.Logger
}

func New(c cache.ReadingCache, f Fetcher, opts Options, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Syncer{
		cache:   c,
		fetcher: f,
		planner: cache.Planner{Lookback: opts.Lookback},
		opts:    opts,
		log:     logger,
	}
}

// TypeReport describes what happened to one energy type during a run.
type TypeReport struct {
	Type domain.EnergyType
	// Range is zero when the type was up to date or not configured.
	Range         domain.TimeRange
	UpToDate      bool
	NotConfigured bool
	Pages         int
	DroppedPages  int
	cache.MergeReport
	Err error
}

// Report summarises one run.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Types    []TypeReport
	Flushed  bool
}

// Inserted is the number of new readings across all types.
func (r Report) Inserted() int {
	n := 0
	for _, t := range r.Types {
		n += t.Inserted
	}
	return n
}

// Run performs one sync. Cache load and flush failures are always returned.
// A fetch failure is returned wrapped in ErrFetch unless SkipOnFetchError is
// set; either way the pages merged before it are flushed.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	rep := Report{RunID: uuid.NewString(), Started: s.opts.Now()}
	log := s.log.With(slog.String("run_id", rep.RunID))
	result := "error"
	defer func() {
		rep.Duration = time.Since(rep.Started)
		metrics.ObserveSyncRun(result, rep.Duration)
	}()

	store, err := s.cache.Load()
	if err != nil {
		log.Error("loading cache", slog.String("location", s.cache.Location()), slog.Any("err", err))
		return rep, err
	}
	log.Info("cache loaded",
		slog.String("location", s.cache.Location()),
		slog.Int("electricity", store.Len(domain.Electricity)),
		slog.Int("gas", store.Len(domain.Gas)),
	)

	var fetchErr error
	for _, t := range domain.EnergyTypes {
		if ctx.Err() != nil {
			fetchErr = errors.Join(fetchErr, ctx.Err())
			break
		}
		tr := s.syncType(ctx, log, store, t)
		rep.Types = append(rep.Types, tr)
		if tr.Err != nil {
			fetchErr = errors.Join(fetchErr, tr.Err)
		}
	}

	if rep.Inserted() > 0 {
		if err := s.cache.Flush(store); err != nil {
			log.Error("flushing cache", slog.String("location", s.cache.Location()), slog.Any("err", err))
			return rep, err
		}
		rep.Flushed = true
	}
	for _, t := range domain.EnergyTypes {
		metrics.SetCachedReadings(t.String(), store.Len(t))
	}

	if fetchErr != nil {
		if s.opts.SkipOnFetchError {
			result = "skipped"
			log.Warn("fetch failed; keeping cache as is", slog.Any("err", fetchErr))
			return rep, nil
		}
		return rep, fmt.Errorf("%w: %w", ErrFetch, fetchErr)
	}
	result = "ok"
	log.Info("sync complete", slog.Int("inserted", rep.Inserted()), slog.Bool("flushed", rep.Flushed))
	return rep, nil
}

func (s *Syncer) syncType(ctx context.Context, log *slog.Logger, store *cache.Store, t domain.EnergyType) TypeReport {
	tr := TypeReport{Type: t}
	log = log.With(slog.String("energy_type", t.String()))

	if !s.fetcher.Configured(t) {
		tr.NotConfigured = true
		log.Debug("meter not configured, skipping")
		return tr
	}

	rng, err := s.planner.PlanFor(s.opts.Now(), store, t)
	if errors.Is(err, cache.ErrNothingToFetch) {
		tr.UpToDate = true
		log.Info("up to date")
		return tr
	}
	tr.Range = rng
	log.Info("planned fetch", slog.String("range", rng.String()))

	err = s.fetcher.FetchPages(ctx, t, rng, func(page []domain.Reading) error {
		tr.Pages++
		mr, err := store.Merge(t, page)
		metrics.ObserveMerge(t.String(), mr.Inserted, mr.Duplicate, mr.Rejected)
		tr.MergeReport = tr.MergeReport.Add(mr)
		if err != nil {
			// Only this page is lost; the next sync plans past whatever did merge.
			tr.DroppedPages++
			log.Warn("dropping page", slog.Int("page", tr.Pages), slog.Any("err", err))
		}
		return nil
	})
	if err != nil {
		tr.Err = fmt.Errorf("%s: %w", t, err)
		log.Error("fetch failed", slog.Int("pages", tr.Pages), slog.Any("err", err))
	}
	return tr
}
