package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/milad/octosync/internal/domain"
)

func TestPlanner_NothingToFetchWhenCaughtUp(t *testing.T) {
	t.Parallel()

	r := halfHour(domain.Electricity, 0, 1)
	now := r.IntervalEnd

	_, err := Planner{}.Plan(now, &r)
	if !errors.Is(err, ErrNothingToFetch) {
		t.Fatalf("err=%v want ErrNothingToFetch", err)
	}
	_, err = Planner{}.Plan(now.Add(-time.Minute), &r)
	if !errors.Is(err, ErrNothingToFetch) {
		t.Fatalf("inverted range: err=%v want ErrNothingToFetch", err)
	}
}

func TestPlanner_FetchesFromMostRecentEnd(t *testing.T) {
	t.Parallel()

	r := halfHour(domain.Electricity, 0, 1)
	now := r.IntervalEnd.Add(time.Hour)

	got, err := Planner{}.Plan(now, &r)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := domain.TimeRange{Start: r.IntervalEnd, End: now}
	if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
		t.Fatalf("Plan=%v want %v", got, want)
	}
}

func TestPlanner_EmptyCacheUsesLookback(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := Planner{Lookback: 48 * time.Hour}.Plan(now, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !got.Start.Equal(now.Add(-48*time.Hour)) || !got.End.Equal(now) {
		t.Fatalf("Plan=%v", got)
	}

	got, err = Planner{}.Plan(now, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got, want := got.Duration(), DefaultLookback; got != want {
		t.Fatalf("default lookback=%v want %v", got, want)
	}
}

func TestPlanner_PlanFor(t *testing.T) {
	t.Parallel()

	s := NewStore()
	mustMerge(t, s, domain.Gas, halfHour(domain.Gas, 0, 1), halfHour(domain.Gas, 1, 1))
	now := base.Add(2 * time.Hour)

	got, err := Planner{}.PlanFor(now, s, domain.Gas)
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if !got.Start.Equal(base.Add(time.Hour)) {
		t.Fatalf("start=%v want %v", got.Start, base.Add(time.Hour))
	}

	elec, err := Planner{Lookback: time.Hour}.PlanFor(now, s, domain.Electricity)
	if err != nil {
		t.Fatalf("PlanFor: %v", err)
	}
	if got, want := elec.Duration(), time.Hour; got != want {
		t.Fatalf("electricity range=%v want lookback %v", got, want)
	}
}
