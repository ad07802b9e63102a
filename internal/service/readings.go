package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/milad/octosync/internal/domain"
	"github.com/milad/octosync/internal/repo"
)

var (
	ErrInvalidTimeRange  = errors.New("invalid time range")
	ErrInvalidPagination = errors.New("invalid pagination")
	ErrInvalidEnergyType = errors.New("invalid energy type")
	ErrNotFound          = errors.New("no readings")
)

const (
	// MaxUnpagedRange is a guardrail against accidentally returning huge responses
	// when pagination is not used.
	MaxUnpagedRange = 31 * 24 * time.Hour
	MaxPageSize     = 5_000
)

type ListReadingsPageResult struct {
	Readings      []domain.Reading
	NextPageToken string
}

type ReadingService struct {
	repo repo.ReadingRepository
}

func NewReadingService(r repo.ReadingRepository) *ReadingService {
	return &ReadingService{repo: r}
}

func (s *ReadingService) ListReadings(ctx context.Context, t domain.EnergyType, startInclusive *time.Time, endExclusive *time.Time) ([]domain.Reading, error) {
	res, err := s.ListReadingsPage(ctx, t, startInclusive, endExclusive, 0, "")
	return res.Readings, err
}

func (s *ReadingService) ListReadingsPage(
	ctx context.Context,
	t domain.EnergyType,
	startInclusive *time.Time,
	endExclusive *time.Time,
	pageSize int,
	pageToken string,
) (ListReadingsPageResult, error) {
	if !t.Valid() {
		return ListReadingsPageResult{}, fmt.Errorf("%w: %v", ErrInvalidEnergyType, t)
	}
	if startInclusive != nil && endExclusive != nil {
		if !startInclusive.Before(*endExclusive) {
			return ListReadingsPageResult{}, fmt.Errorf("%w: start must be before end", ErrInvalidTimeRange)
		}
		if pageSize <= 0 && endExclusive.Sub(*startInclusive) > MaxUnpagedRange {
			return ListReadingsPageResult{}, fmt.Errorf("%w: range too large without pagination (max %s)", ErrInvalidTimeRange, MaxUnpagedRange)
		}
	}

	offset, err := parseOffsetToken(pageSize, pageToken)
	if err != nil {
		return ListReadingsPageResult{}, err
	}
	if pageSize < 0 {
		return ListReadingsPageResult{}, fmt.Errorf("%w: page_size must be >= 0", ErrInvalidPagination)
	}
	if pageSize > MaxPageSize {
		return ListReadingsPageResult{}, fmt.Errorf("%w: page_size too large (max %d)", ErrInvalidPagination, MaxPageSize)
	}

	readings, err := s.repo.List(ctx, t, startInclusive, endExclusive)
	if err != nil {
		return ListReadingsPageResult{}, err
	}
	if offset > len(readings) {
		return ListReadingsPageResult{}, fmt.Errorf("%w: page_token out of range", ErrInvalidPagination)
	}

	if pageSize == 0 {
		return ListReadingsPageResult{Readings: readings}, nil
	}
	if offset == len(readings) {
		return ListReadingsPageResult{}, nil
	}

	end := min(offset+pageSize, len(readings))
	next := ""
	if end < len(readings) {
		next = strconv.Itoa(end)
	}
	return ListReadingsPageResult{
		Readings:      readings[offset:end],
		NextPageToken: next,
	}, nil
}

// LatestReading returns the newest cached reading of type t, or ErrNotFound.
func (s *ReadingService) LatestReading(ctx context.Context, t domain.EnergyType) (domain.Reading, error) {
	if !t.Valid() {
		return domain.Reading{}, fmt.Errorf("%w: %v", ErrInvalidEnergyType, t)
	}
	r, ok, err := s.repo.Latest(ctx, t)
	if err != nil {
		return domain.Reading{}, err
	}
	if !ok {
		return domain.Reading{}, fmt.Errorf("%w: no %s readings cached", ErrNotFound, t)
	}
	return r, nil
}

func parseOffsetToken(pageSize int, pageToken string) (int, error) {
	if pageToken == "" {
		return 0, nil
	}
	if pageSize <= 0 {
		return 0, fmt.Errorf("%w: page_token requires page_size", ErrInvalidPagination)
	}
	n, err := strconv.Atoi(pageToken)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid page_token", ErrInvalidPagination)
	}
	return n, nil
}
