package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/milad/octosync/internal/domain"
)

var _ ReadingCache = (*FileCache)(nil)

// FileCache stores the whole Store as one JSON document:
//
//	{"electricity_records": [...], "gas_records": [...]}
//
// where each record is {"consumption", "interval_start", "interval_end"}.
// Unknown fields are ignored.
type FileCache struct {
	path string
	log  *slog.Logger
}

// NewFileCache returns a cache at path. logger may be nil.
func NewFileCache(path string, logger *slog.Logger) *FileCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileCache{path: path, log: logger.With(slog.String("cache_path", path))}
}

func (c *FileCache) Location() string { return c.path }

// Document is the on-disk layout shared by every backend that serialises
// whole snapshots.
type Document struct {
	Electricity []Record `json:"electricity_records"`
	Gas         []Record `json:"gas_records"`
}

// Record is one serialised reading. Pointers let decoding tell a missing
// field from a zero value.
type Record struct {
	Consumption   *float64   `json:"consumption"`
	IntervalStart *time.Time `json:"interval_start"`
	IntervalEnd   *time.Time `json:"interval_end"`
}

// Load reads the snapshot. A missing file is created (with its parent
// directories) and, like an empty file, yields an empty store.
func (c *FileCache) Load() (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return nil, ioFailure("create cache directory for", c.path, err)
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		c.log.Info("no cache yet, creating an empty one")
		s := NewStore()
		if err := c.Flush(s); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, ioFailure("read", c.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		c.log.Info("cache file is empty")
		return NewStore(), nil
	}

	s, err := Decode(data)
	if err != nil {
		c.log.Error("cache file is corrupt", slog.Any("error", err))
		return nil, &CorruptCacheError{Path: c.path, Err: err}
	}
	c.log.Debug("loaded cache",
		slog.Int("electricity_records", s.Len(domain.Electricity)),
		slog.Int("gas_records", s.Len(domain.Gas)),
	)
	return s, nil
}

// Flush atomically replaces the file with the contents of s: the document is
// written to a temporary file in the same directory, synced, then renamed
// over the target. On any error the temporary file is removed and the
// previous snapshot stays as it was.
func (c *FileCache) Flush(s *Store) (err error) {
	data, err := Encode(s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioFailure("create cache directory for", c.path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return ioFailure("create temporary file for", c.path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return ioFailure("write", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return ioFailure("sync", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return ioFailure("close", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return ioFailure("chmod", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), c.path); err != nil {
		return ioFailure("replace", c.path, err)
	}

	c.log.Info("flushed cache",
		slog.Int("bytes", len(data)),
		slog.Int("electricity_records", s.Len(domain.Electricity)),
		slog.Int("gas_records", s.Len(domain.Gas)),
	)
	return nil
}

// Encode serialises s as a Document.
func Encode(s *Store) ([]byte, error) {
	doc := Document{
		Electricity: toRecords(s, domain.Electricity),
		Gas:         toRecords(s, domain.Gas),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode cache: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a Document and rebuilds the store, enforcing the same
// invariants Merge does.
func Decode(data []byte) (*Store, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, key := range []string{"electricity_records", "gas_records"} {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("missing %q collection", key)
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	s := NewStore()
	for t, records := range map[domain.EnergyType][]Record{
		domain.Electricity: doc.Electricity,
		domain.Gas:         doc.Gas,
	} {
		readings, err := FromRecords(t, records)
		if err != nil {
			return nil, err
		}
		if _, err := s.Merge(t, readings); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func toRecords(s *Store, t domain.EnergyType) []Record {
	out := make([]Record, 0, s.Len(t))
	for r := range s.All(t) {
		out = append(out, ToRecord(r))
	}
	return out
}

func ToRecord(r domain.Reading) Record {
	return Record{
		Consumption:   &r.Consumption,
		IntervalStart: &r.IntervalStart,
		IntervalEnd:   &r.IntervalEnd,
	}
}

// FromRecords converts records of type t, failing on the first one with a
// missing field.
func FromRecords(t domain.EnergyType, records []Record) ([]domain.Reading, error) {
	out := make([]domain.Reading, 0, len(records))
	for i, rec := range records {
		r, err := rec.Reading(t)
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w", t, i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (rec Record) Reading(t domain.EnergyType) (domain.Reading, error) {
	switch {
	case rec.Consumption == nil:
		return domain.Reading{}, errors.New("missing consumption")
	case rec.IntervalStart == nil:
		return domain.Reading{}, errors.New("missing interval_start")
	case rec.IntervalEnd == nil:
		return domain.Reading{}, errors.New("missing interval_end")
	}
	return domain.Reading{
		Type:          t,
		IntervalStart: *rec.IntervalStart,
		IntervalEnd:   *rec.IntervalEnd,
		Consumption:   *rec.Consumption,
	}, nil
}
