package repo

import (
	"context"
	"time"

	"github.com/milad/octosync/internal/domain"
)

// ReadingRepository provides read access to cached consumption readings.
type ReadingRepository interface {
	// List returns readings of type t in ascending order, optionally filtered
	// by interval start in [start, end). The returned slice is the caller's.
	List(ctx context.Context, t domain.EnergyType, startInclusive *time.Time, endExclusive *time.Time) ([]domain.Reading, error)
	// Latest returns the newest reading of type t; ok is false when there is none.
	Latest(ctx context.Context, t domain.EnergyType) (r domain.Reading, ok bool, err error)
}
