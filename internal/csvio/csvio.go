// Package csvio reads and writes readings as CSV.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/milad/octosync/internal/domain"
)

var header = []string{"interval_start", "interval_end", "consumption"}

// ParseReadingsCSV parses readings of type t from the provided CSV reader.
//
// Expected header: interval_start,interval_end,consumption
//
// Timestamps are RFC 3339 and keep their offset. Invalid rows are skipped and
// returned as a joined error (errors.Join).
func ParseReadingsCSV(r io.Reader, t domain.EnergyType) ([]domain.Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // be permissive; validate ourselves
	cr.TrimLeadingSpace = true

	got, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !headerMatches(got) {
		return nil, fmt.Errorf("unexpected header %q (want %q)", strings.Join(got, ","), strings.Join(header, ","))
	}

	var (
		readings []domain.Reading
		rowErrs  []error
		rowNum   = 1 // header
	)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("row %d: read: %w", rowNum, err))
			continue
		}
		if len(row) < 3 {
			rowErrs = append(rowErrs, fmt.Errorf("row %d: expected 3 columns, got %d", rowNum, len(row)))
			continue
		}

		start, err := time.Parse(time.RFC3339, strings.TrimSpace(row[0]))
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("row %d: parse interval_start %q: %w", rowNum, row[0], err))
			continue
		}
		end, err := time.Parse(time.RFC3339, strings.TrimSpace(row[1]))
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("row %d: parse interval_end %q: %w", rowNum, row[1], err))
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("row %d: parse consumption %q: %w", rowNum, row[2], err))
			continue
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			rowErrs = append(rowErrs, fmt.Errorf("row %d: invalid consumption %v", rowNum, f))
			continue
		}

		readings = append(readings, domain.Reading{
			Type:          t,
			IntervalStart: start,
			IntervalEnd:   end,
			Consumption:   f,
		})
	}

	if readings == nil {
		readings = []domain.Reading{}
	}
	return readings, errors.Join(rowErrs...)
}

func headerMatches(got []string) bool {
	if len(got) < len(header) {
		return false
	}
	for i, want := range header {
		if strings.ToLower(strings.TrimSpace(got[i])) != want {
			return false
		}
	}
	return true
}

// WriteReadingsCSV writes the header followed by one row per reading and
// returns the number of rows written.
func WriteReadingsCSV(w io.Writer, readings iter.Seq[domain.Reading]) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	n := 0
	for r := range readings {
		row := []string{
			r.IntervalStart.Format(time.RFC3339),
			r.IntervalEnd.Format(time.RFC3339),
			strconv.FormatFloat(r.Consumption, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return n, err
		}
		n++
	}
	cw.Flush()
	return n, cw.Error()
}
