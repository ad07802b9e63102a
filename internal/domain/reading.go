package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// EnergyType identifies the meter a reading came from. Readings of different
// types never share identity space.
type EnergyType int

const (
	Electricity EnergyType = iota + 1
	Gas
)

// EnergyTypes lists every supported energy type in a stable order.
var EnergyTypes = []EnergyType{Electricity, Gas}

func (t EnergyType) String() string {
	switch t {
	case Electricity:
		return "electricity"
	case Gas:
		return "gas"
	default:
		return fmt.Sprintf("EnergyType(%d)", int(t))
	}
}

func (t EnergyType) Valid() bool {
	return t == Electricity || t == Gas
}

// ParseEnergyType accepts "electricity"/"gas" (case-insensitive), plus the
// short forms "elec" and "e"/"g".
func ParseEnergyType(s string) (EnergyType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "electricity", "elec", "e":
		return Electricity, nil
	case "gas", "g":
		return Gas, nil
	default:
		return 0, fmt.Errorf("unknown energy type %q", s)
	}
}

// Reading is a single interval measurement. It is a value type; copies are
// independent.
type Reading struct {
	Type          EnergyType
	IntervalStart time.Time
	IntervalEnd   time.Time
	Consumption   float64
}

var (
	errEmptyInterval       = errors.New("interval_start must be before interval_end")
	errNegativeConsumption = errors.New("consumption must be a finite, non-negative number")
	errUnknownType         = errors.New("unknown energy type")
)

// Validate checks the reading's own invariants. Overlap with other readings
// is the store's concern.
func (r Reading) Validate() error {
	if !r.Type.Valid() {
		return errUnknownType
	}
	if r.IntervalStart.IsZero() || r.IntervalEnd.IsZero() {
		return errors.New("interval bounds are required")
	}
	if !r.IntervalStart.Before(r.IntervalEnd) {
		return errEmptyInterval
	}
	if math.IsNaN(r.Consumption) || math.IsInf(r.Consumption, 0) || r.Consumption < 0 {
		return errNegativeConsumption
	}
	return nil
}

// SameIdentity reports whether both readings describe the same interval of
// the same energy type. Instants are compared, not wall clocks, so offsets
// do not matter.
func (r Reading) SameIdentity(o Reading) bool {
	return r.Type == o.Type && r.IntervalStart.Equal(o.IntervalStart) && r.IntervalEnd.Equal(o.IntervalEnd)
}

// Overlaps reports whether the half-open intervals of r and o intersect.
func (r Reading) Overlaps(o Reading) bool {
	return r.IntervalStart.Before(o.IntervalEnd) && o.IntervalStart.Before(r.IntervalEnd)
}

// Equal is SameIdentity plus equal consumption.
func (r Reading) Equal(o Reading) bool {
	return r.SameIdentity(o) && r.Consumption == o.Consumption
}

func (r Reading) Duration() time.Duration {
	return r.IntervalEnd.Sub(r.IntervalStart)
}

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (tr TimeRange) Empty() bool {
	return !tr.Start.Before(tr.End)
}

func (tr TimeRange) Duration() time.Duration {
	if tr.Empty() {
		return 0
	}
	return tr.End.Sub(tr.Start)
}

func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

func (tr TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", tr.Start.Format(time.RFC3339), tr.End.Format(time.RFC3339))
}
