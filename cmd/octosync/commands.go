package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/milad/octosync/internal/cache"
	"github.com/milad/octosync/internal/cache/backend"
	"github.com/milad/octosync/internal/config"
	"github.com/milad/octosync/internal/csvio"
	"github.com/milad/octosync/internal/domain"
	"github.com/milad/octosync/internal/export/influx"
	"github.com/milad/octosync/internal/scheduler"
	"github.com/milad/octosync/internal/syncer"
)

func syncFlags(name string, cfg *config.Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	credentialFlags(fs, cfg)
	cacheFlags(fs, cfg)
	fs.DurationVar(&cfg.Lookback, "lookback", cfg.Lookback, "history fetched when the cache is empty (SYNC_LOOKBACK)")
	fs.BoolVar(&cfg.SkipOnFetchError, "skip-on-fetch-error", cfg.SkipOnFetchError, "keep the cache as is when the API fails (SKIP_SYNC_ON_FETCH_ERROR)")
	return fs
}

func newSyncer(cfg *config.Config, c cache.ReadingCache, l *slog.Logger) *syncer.Syncer {
	return syncer.New(c, newFetcher(cfg, l), syncer.Options{
		Lookback:         cfg.Lookback,
		SkipOnFetchError: cfg.SkipOnFetchError,
	}, l)
}

func runSync(ctx context.Context, cfg *config.Config, l *slog.Logger, args []string) error {
	fs := syncFlags("sync", cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.ValidateForSync(); err != nil {
		return err
	}

	c, closeCache, err := backend.Open(cfg.Cache, l)
	if err != nil {
		return err
	}
	defer closeCache()

	rep, err := newSyncer(cfg, c, l).Run(ctx)
	printReport(os.Stdout, rep)
	return err
}

func runWatch(ctx context.Context, cfg *config.Config, l *slog.Logger, args []string) error {
	fs := syncFlags("watch", cfg)
	fs.DurationVar(&cfg.SyncInterval, "interval", cfg.SyncInterval, "time between syncs (SYNC_INTERVAL)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.ValidateForSync(); err != nil {
		return err
	}

	c, closeCache, err := backend.Open(cfg.Cache, l)
	if err != nil {
		return err
	}
	defer closeCache()

	s := newSyncer(cfg, c, l)
	sched := scheduler.New("sync", cfg.SyncInterval, func(ctx context.Context) error {
		rep, err := s.Run(ctx)
		printReport(os.Stdout, rep)
		return err
	}, l)
	if err := sched.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	sched.Stop()
	return nil
}

func runStatus(ctx context.Context, cfg *config.Config, l *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	cacheFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c, closeCache, err := backend.Open(cfg.Cache, l)
	if err != nil {
		return err
	}
	defer closeCache()
	store, err := c.Load()
	if err != nil {
		return err
	}

	fmt.Printf("cache: %s\n", c.Location())
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tREADINGS\tFIRST INTERVAL\tLAST INTERVAL")
	for _, t := range domain.EnergyTypes {
		first, last := "-", "-"
		if r, ok := store.Earliest(t); ok {
			first = r.IntervalStart.Format(time.RFC3339)
		}
		if r, ok := store.MostRecent(t); ok {
			last = r.IntervalEnd.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t, store.Len(t), first, last)
	}
	return tw.Flush()
}

func runExport(ctx context.Context, cfg *config.Config, l *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cacheFlags(fs, cfg)
	var (
		format   = fs.String("format", "csv", "csv or influx")
		typeName = fs.String("type", "", "electricity or gas (csv defaults to electricity, influx to both)")
		out      = fs.String("o", "-", "csv output file, - for stdout")
		startStr = fs.String("start", "", "only intervals starting at or after this RFC3339 time")
		endStr   = fs.String("end", "", "only intervals starting before this RFC3339 time")
	)
	fs.StringVar(&cfg.Influx.URL, "influx-url", cfg.Influx.URL, "InfluxDB URL (INFLUX_URL)")
	fs.StringVar(&cfg.Influx.Bucket, "influx-bucket", cfg.Influx.Bucket, "InfluxDB bucket (INFLUX_BUCKET)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	start, err := parseTimeFlag("start", *startStr)
	if err != nil {
		return err
	}
	end, err := parseTimeFlag("end", *endStr)
	if err != nil {
		return err
	}

	c, closeCache, err := backend.Open(cfg.Cache, l)
	if err != nil {
		return err
	}
	defer closeCache()
	store, err := c.Load()
	if err != nil {
		return err
	}

	switch *format {
	case "csv":
		t := domain.Electricity
		if *typeName != "" {
			if t, err = domain.ParseEnergyType(*typeName); err != nil {
				return err
			}
		}
		return exportCSV(*out, store.Range(t, start, end))
	case "influx":
		types := domain.EnergyTypes
		if *typeName != "" {
			t, err := domain.ParseEnergyType(*typeName)
			if err != nil {
				return err
			}
			types = []domain.EnergyType{t}
		}
		return exportInflux(ctx, cfg, l, store, types, start, end)
	default:
		return fmt.Errorf("unknown format %q (want csv or influx)", *format)
	}
}

func exportCSV(path string, readings []domain.Reading) (err error) {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	n, err := csvio.WriteReadingsCSV(w, slices.Values(readings))
	if err != nil {
		return err
	}
	if path != "-" {
		fmt.Printf("wrote %d readings to %s\n", n, path)
	}
	return nil
}

func exportInflux(ctx context.Context, cfg *config.Config, l *slog.Logger, store *cache.Store, types []domain.EnergyType, start, end *time.Time) error {
	w, err := influx.New(influx.Config{
		URL:    cfg.Influx.URL,
		Token:  cfg.Influx.Token,
		Org:    cfg.Influx.Org,
		Bucket: cfg.Influx.Bucket,
	}, l)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Ping(ctx); err != nil {
		return err
	}
	for _, t := range types {
		n, err := w.WriteReadings(ctx, slices.Values(store.Range(t, start, end)))
		if err != nil {
			return err
		}
		fmt.Printf("%s: wrote %d points to %s\n", t, n, cfg.Influx.Bucket)
	}
	return nil
}

func runImport(ctx context.Context, cfg *config.Config, l *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	cacheFlags(fs, cfg)
	var (
		typeName = fs.String("type", "electricity", "energy type of the rows: electricity or gas")
		in       = fs.String("in", "", "CSV file with header interval_start,interval_end,consumption")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}
	t, err := domain.ParseEnergyType(*typeName)
	if err != nil {
		return err
	}

	f, err := os.Open(*in)
	if err != nil {
		return err
	}
	defer f.Close()
	readings, parseErr := csvio.ParseReadingsCSV(f, t)
	if len(readings) == 0 && parseErr != nil {
		return fmt.Errorf("parse %s: %w", *in, parseErr)
	}
	if parseErr != nil {
		l.Warn("skipped invalid rows", slog.String("file", *in), slog.Any("err", parseErr))
	}

	c, closeCache, err := backend.Open(cfg.Cache, l)
	if err != nil {
		return err
	}
	defer closeCache()
	store, err := c.Load()
	if err != nil {
		return err
	}
	rep, err := store.Merge(t, readings)
	if err != nil {
		return err
	}
	if rep.Inserted > 0 {
		if err := c.Flush(store); err != nil {
			return err
		}
	}
	fmt.Printf("%s: %d inserted, %d duplicate\n", t, rep.Inserted, rep.Duplicate)
	return nil
}

func parseTimeFlag(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid -%s: %w", name, err)
	}
	return &t, nil
}

func printReport(w io.Writer, rep syncer.Report) {
	fmt.Fprintf(w, "sync %s (%s)\n", rep.RunID, rep.Duration.Truncate(time.Millisecond))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tRANGE\tPAGES\tINSERTED\tDUPLICATE\tREJECTED\tDROPPED PAGES\tERROR")
	for _, t := range rep.Types {
		rng := t.Range.String()
		switch {
		case t.NotConfigured:
			rng = "not configured"
		case t.UpToDate:
			rng = "up to date"
		}
		errText := "-"
		if t.Err != nil {
			errText = t.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			t.Type, rng, t.Pages, t.Inserted, t.Duplicate, t.Rejected, t.DroppedPages, errText)
	}
	_ = tw.Flush()
}
