package cache

import (
	"errors"
	"fmt"
	"strings"

	"github.com/milad/octosync/internal/domain"
)

var (
	// ErrInvalidReading is returned by Merge when a batch contains a malformed
	// reading or one that overlaps another reading without sharing its identity.
	ErrInvalidReading = errors.New("invalid reading")
	// ErrCorruptCache is returned by Load when a non-empty cache cannot be
	// parsed. The file is left in place for manual inspection.
	ErrCorruptCache = errors.New("corrupt cache")
	// ErrIO wraps filesystem and backend failures.
	ErrIO = errors.New("cache io failure")
	// ErrNothingToFetch is the planner's "already up to date" answer.
	ErrNothingToFetch = errors.New("nothing to fetch")
)

// Rejection describes one reading refused by Merge.
type Rejection struct {
	Reading domain.Reading
	Reason  string
}

// InvalidReadingError lists every rejected reading of a failed merge.
type InvalidReadingError struct {
	Type     domain.EnergyType
	Rejected []Rejection
}

func (e *InvalidReadingError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d %s reading(s) rejected", ErrInvalidReading, len(e.Rejected), e.Type)
	for i, r := range e.Rejected {
		if i == 3 {
			fmt.Fprintf(&b, "; and %d more", len(e.Rejected)-i)
			break
		}
		fmt.Fprintf(&b, "; [%s, %s): %s",
			r.Reading.IntervalStart.Format("2006-01-02T15:04:05Z07:00"),
			r.Reading.IntervalEnd.Format("2006-01-02T15:04:05Z07:00"),
			r.Reason,
		)
	}
	return b.String()
}

func (e *InvalidReadingError) Unwrap() error { return ErrInvalidReading }

// CorruptCacheError names the snapshot that failed to parse.
type CorruptCacheError struct {
	Path string
	Err  error
}

func (e *CorruptCacheError) Error() string {
	return fmt.Sprintf("%s %q: %v (inspect or delete the file)", ErrCorruptCache, e.Path, e.Err)
}

func (e *CorruptCacheError) Unwrap() []error { return []error{ErrCorruptCache, e.Err} }

func ioFailure(op, path string, err error) error {
	return fmt.Errorf("%w: %s %q: %w", ErrIO, op, path, err)
}
