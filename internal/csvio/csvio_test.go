package csvio

import (
	"bytes"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/milad/octosync/internal/domain"
)

func TestParseReadingsCSV_OK(t *testing.T) {
	t.Parallel()

	csv := strings.NewReader(strings.TrimSpace(`
interval_start,interval_end,consumption
2022-06-01T08:00:00+01:00,2022-06-01T08:30:00+01:00,0.212
2022-06-01T08:30:00+01:00,2022-06-01T09:00:00+01:00,0.198
`))

	readings, err := ParseReadingsCSV(csv, domain.Gas)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := len(readings), 2; got != want {
		t.Fatalf("len(readings)=%d want %d", got, want)
	}
	if got, want := readings[0].Type, domain.Gas; got != want {
		t.Fatalf("type=%v want %v", got, want)
	}
	if _, offset := readings[0].IntervalStart.Zone(); offset != 3600 {
		t.Fatalf("offset=%d want 3600", offset)
	}
	if got, want := readings[0].Consumption, 0.212; got != want {
		t.Fatalf("consumption[0]=%v want %v", got, want)
	}
}

func TestParseReadingsCSV_SkipsInvalidRows(t *testing.T) {
	t.Parallel()

	csv := strings.NewReader(strings.TrimSpace(`
interval_start,interval_end,consumption
2022-06-01T08:00:00Z,2022-06-01T08:30:00Z,1.5
2022-06-01T08:30:00Z,2022-06-01T09:00:00Z,NaN
not-a-time,2022-06-01T09:30:00Z,12.0
2022-06-01T09:30:00Z,2022-06-01T10:00:00Z
2022-06-01T10:00:00Z,2022-06-01T10:30:00Z,0.75
`))

	readings, err := ParseReadingsCSV(csv, domain.Electricity)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if got, want := len(readings), 2; got != want {
		t.Fatalf("len(readings)=%d want %d", got, want)
	}
}

func TestParseReadingsCSV_RejectsHeader(t *testing.T) {
	t.Parallel()

	if _, err := ParseReadingsCSV(strings.NewReader("time,value\n"), domain.Electricity); err == nil {
		t.Fatalf("expected header error")
	}
}

func TestWriteThenParse(t *testing.T) {
	t.Parallel()

	start := time.Date(2022, 6, 1, 8, 0, 0, 0, time.FixedZone("", 3600))
	in := []domain.Reading{
		{Type: domain.Electricity, IntervalStart: start, IntervalEnd: start.Add(30 * time.Minute), Consumption: 1},
		{Type: domain.Electricity, IntervalStart: start.Add(30 * time.Minute), IntervalEnd: start.Add(time.Hour), Consumption: 0.125},
	}

	var buf bytes.Buffer
	n, err := WriteReadingsCSV(&buf, slices.Values(in))
	if err != nil {
		t.Fatalf("WriteReadingsCSV: %v", err)
	}
	if got, want := n, 2; got != want {
		t.Fatalf("rows=%d want %d", got, want)
	}
	if !strings.HasPrefix(buf.String(), "interval_start,interval_end,consumption\n2022-06-01T08:00:00+01:00,") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}

	out, err := ParseReadingsCSV(&buf, domain.Electricity)
	if err != nil {
		t.Fatalf("ParseReadingsCSV: %v", err)
	}
	if !slices.EqualFunc(in, out, domain.Reading.Equal) {
		t.Fatalf("round trip mismatch:\n in=%v\nout=%v", in, out)
	}
}
