package cache

import (
	"time"

	"github.com/milad/octosync/internal/domain"
)

// DefaultLookback bounds the first sync of an empty cache.
const DefaultLookback = 365 * 24 * time.Hour

// Planner decides what is missing from the cache. It does no I/O.
type Planner struct {
	// Lookback is how far back a sync reaches when nothing is cached yet.
	Lookback time.Duration
}

// Plan returns the range to request for a type whose newest cached reading
// is mostRecent (nil when the cache holds none). It returns ErrNothingToFetch
// when the cache already reaches now.
func (p Planner) Plan(now time.Time, mostRecent *domain.Reading) (domain.TimeRange, error) {
	if mostRecent == nil {
		lookback := p.Lookback
		if lookback <= 0 {
			lookback = DefaultLookback
		}
		return domain.TimeRange{Start: now.Add(-lookback), End: now}, nil
	}

	rng := domain.TimeRange{Start: mostRecent.IntervalEnd, End: now}
	if rng.Empty() {
		return domain.TimeRange{}, ErrNothingToFetch
	}
	return rng, nil
}

// PlanFor is Plan driven by the store's newest reading of type t.
func (p Planner) PlanFor(now time.Time, s *Store, t domain.EnergyType) (domain.TimeRange, error) {
	if r, ok := s.MostRecent(t); ok {
		return p.Plan(now, &r)
	}
	return p.Plan(now, nil)
}
