package cache

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/milad/octosync/internal/domain"
)

// MergeReport counts the outcome of a Merge call.
type MergeReport struct {
	Inserted  int
	Duplicate int
	Rejected  int
}

func (r MergeReport) Add(o MergeReport) MergeReport {
	return MergeReport{
		Inserted:  r.Inserted + o.Inserted,
		Duplicate: r.Duplicate + o.Duplicate,
		Rejected:  r.Rejected + o.Rejected,
	}
}

// Store holds the cached readings: one sequence per energy type, sorted
// ascending by IntervalStart, with no two intervals overlapping. It only
// grows, and only through Merge.
//
// Store is safe for concurrent use, though a sync run drives it from a single
// goroutine.
type Store struct {
	mu       sync.RWMutex
	readings map[domain.EnergyType][]domain.Reading
}

func NewStore() *Store {
	return &Store{readings: make(map[domain.EnergyType][]domain.Reading, len(domain.EnergyTypes))}
}

// Merge validates readings and inserts those not already present. The batch
// is all-or-nothing: if any reading is rejected the store is unchanged and
// the returned error is an *InvalidReadingError.
//
// A reading whose interval is identical to a stored one is a duplicate and
// keeps the stored consumption. A reading that overlaps a stored (or batch)
// interval without matching it is rejected.
func (s *Store) Merge(t domain.EnergyType, readings []domain.Reading) (MergeReport, error) {
	if !t.Valid() {
		return MergeReport{}, fmt.Errorf("%w: unknown energy type %v", ErrInvalidReading, t)
	}
	if len(readings) == 0 {
		return MergeReport{}, nil
	}

	var rejected []Rejection
	candidates := make([]domain.Reading, 0, len(readings))
	for _, r := range readings {
		if r.Type != t {
			rejected = append(rejected, Rejection{Reading: r, Reason: fmt.Sprintf("energy type %v does not match %v", r.Type, t)})
			continue
		}
		if err := r.Validate(); err != nil {
			rejected = append(rejected, Rejection{Reading: r, Reason: err.Error()})
			continue
		}
		candidates = append(candidates, r)
	}
	slices.SortStableFunc(candidates, func(a, b domain.Reading) int {
		return a.IntervalStart.Compare(b.IntervalStart)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.readings[t]
	var (
		report MergeReport
		fresh  = make([]domain.Reading, 0, len(candidates))
	)
	for _, c := range candidates {
		// Against the batch accepted so far. Candidates are sorted, so only
		// the last accepted one can collide.
		if n := len(fresh); n > 0 {
			last := fresh[n-1]
			if last.SameIdentity(c) {
				report.Duplicate++
				continue
			}
			if last.Overlaps(c) {
				rejected = append(rejected, Rejection{Reading: c, Reason: "overlaps another reading in the batch"})
				continue
			}
		}

		dup, conflict := collides(existing, c)
		switch {
		case dup:
			report.Duplicate++
		case conflict:
			rejected = append(rejected, Rejection{Reading: c, Reason: "overlaps a cached reading"})
		default:
			fresh = append(fresh, c)
		}
	}

	if len(rejected) > 0 {
		return MergeReport{Rejected: len(rejected)}, &InvalidReadingError{Type: t, Rejected: rejected}
	}
	if len(fresh) > 0 {
		s.readings[t] = mergeSorted(existing, fresh)
	}
	report.Inserted = len(fresh)
	return report, nil
}

// collides checks c against a sorted, non-overlapping sequence.
func collides(sorted []domain.Reading, c domain.Reading) (duplicate, conflict bool) {
	i := sort.Search(len(sorted), func(i int) bool { return !sorted[i].IntervalStart.Before(c.IntervalStart) })
	if i < len(sorted) {
		if sorted[i].SameIdentity(c) {
			return true, false
		}
		if sorted[i].Overlaps(c) {
			return false, true
		}
	}
	if i > 0 && sorted[i-1].Overlaps(c) {
		return false, true
	}
	return false, false
}

func mergeSorted(a, b []domain.Reading) []domain.Reading {
	out := make([]domain.Reading, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if b[j].IntervalStart.Before(a[i].IntervalStart) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// MostRecent returns the reading with the greatest IntervalStart.
func (s *Store) MostRecent(t domain.EnergyType) (domain.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := s.readings[t]
	if len(rs) == 0 {
		return domain.Reading{}, false
	}
	return rs[len(rs)-1], true
}

// Earliest returns the reading with the smallest IntervalStart.
func (s *Store) Earliest(t domain.EnergyType) (domain.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := s.readings[t]
	if len(rs) == 0 {
		return domain.Reading{}, false
	}
	return rs[0], true
}

func (s *Store) Len(t domain.EnergyType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings[t])
}

// All walks the readings of t in ascending order. Each call to the returned
// sequence starts from the beginning; it sees the store as it was when All
// was called.
func (s *Store) All(t domain.EnergyType) iter.Seq[domain.Reading] {
	s.mu.RLock()
	// Merge never mutates a published slice in place, so holding on to the
	// header is enough for a stable view.
	rs := s.readings[t]
	s.mu.RUnlock()

	return func(yield func(domain.Reading) bool) {
		for _, r := range rs {
			if !yield(r) {
				return
			}
		}
	}
}

// Range returns a copy of the readings whose IntervalStart lies in
// [start, end). A nil bound is open.
func (s *Store) Range(t domain.EnergyType, start, end *time.Time) []domain.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs := s.readings[t]
	if start != nil {
		from := *start
		i := sort.Search(len(rs), func(i int) bool { return !rs[i].IntervalStart.Before(from) })
		rs = rs[i:]
	}
	if end != nil {
		to := *end
		j := sort.Search(len(rs), func(i int) bool { return !rs[i].IntervalStart.Before(to) })
		rs = rs[:j]
	}
	return append([]domain.Reading(nil), rs...)
}

// Equal reports whether both stores hold the same readings in the same order.
func (s *Store) Equal(o *Store) bool {
	for _, t := range domain.EnergyTypes {
		a, b := slices.Collect(s.All(t)), slices.Collect(o.All(t))
		if !slices.EqualFunc(a, b, domain.Reading.Equal) {
			return false
		}
	}
	return true
}
