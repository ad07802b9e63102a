// Package influx pushes cached readings into InfluxDB 2.x.
package influx

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/milad/octosync/internal/domain"
)

const (
	Measurement      = "consumption"
	DefaultBatchSize = 500
)

type Config struct {
	URL       string
	Token     string
	Org       string
	Bucket    string
	BatchSize int
}

// Writer writes readings as points in batches through the blocking write API.
type Writer struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	cfg    Config
	log    *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Writer, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("influx: url, org and bucket are required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Writer{
		client: client,
		write:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		cfg:    cfg,
		log:    logger,
	}, nil
}

// Ping checks the server is reachable before a long export.
func (w *Writer) Ping(ctx context.Context) error {
	ok, err := w.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influx ping %s: %w", w.cfg.URL, err)
	}
	if !ok {
		return fmt.Errorf("influx ping %s: server not ready", w.cfg.URL)
	}
	return nil
}

// WriteReadings writes every reading and returns how many were written.
// Points already written stay written if a later batch fails; re-running is
// safe because a point's identity is its tag set and timestamp.
func (w *Writer) WriteReadings(ctx context.Context, readings iter.Seq[domain.Reading]) (int, error) {
	batch := make([]*write.Point, 0, w.cfg.BatchSize)
	written := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.write.WritePoint(ctx, batch...); err != nil {
			return fmt.Errorf("influx write to %s/%s: %w", w.cfg.Org, w.cfg.Bucket, err)
		}
		written += len(batch)
		w.log.Debug("influx batch written", slog.Int("points", len(batch)), slog.Int("total", written))
		batch = batch[:0]
		return nil
	}

	for r := range readings {
		batch = append(batch, Point(r))
		if len(batch) == w.cfg.BatchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	w.log.Info("influx export complete", slog.String("bucket", w.cfg.Bucket), slog.Int("points", written))
	return written, nil
}

func (w *Writer) Close() {
	w.client.Close()
}

// Point maps a reading to measurement "consumption" tagged by energy type,
// timestamped at the interval start.
func Point(r domain.Reading) *write.Point {
	return influxdb2.NewPoint(
		Measurement,
		map[string]string{"energy_type": r.Type.String()},
		map[string]interface{}{
			"consumption":      r.Consumption,
			"interval_seconds": int64(r.Duration() / time.Second),
		},
		r.IntervalStart,
	)
}
