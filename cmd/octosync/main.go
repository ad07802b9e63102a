package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/milad/octosync/internal/config"
	"github.com/milad/octosync/internal/logger"
)

const usage = `usage: octosync <command> [flags]

commands:
  sync     fetch new readings into the cache
  watch    sync every SYNC_INTERVAL until interrupted
  status   print what the cache holds
  export   write cached readings as CSV or to InfluxDB
  import   merge readings from a CSV file into the cache

Run 'octosync <command> -h' for the flags of a command.
`

type command func(ctx context.Context, cfg *config.Config, l *slog.Logger, args []string) error

var commands = map[string]command{
	"sync":   runSync,
	"watch":  runWatch,
	"status": runStatus,
	"export": runExport,
	"import": runImport,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		if name == "-h" || name == "--help" || name == "help" {
			fmt.Fprint(os.Stdout, usage)
			return
		}
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	l := logger.Init("octosync", level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, cfg, l, os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		stop()
		log.Fatalf("%s: %v", name, err)
	}
}

// credentialFlags registers the account, credential and meter overrides on fs,
// defaulting to the loaded configuration.
func credentialFlags(fs *flag.FlagSet, cfg *config.Config) {
	o := &cfg.Octopus
	fs.StringVar(&o.APIKey, "api-key", o.APIKey, "Octopus API key (OCTOPUS_API_KEY)")
	fs.StringVar(&o.AccountNumber, "account", o.AccountNumber, "Octopus account number (OCTOPUS_ACCOUNT_NUMBER)")
	fs.StringVar(&o.ElectricityMPAN, "mpan", o.ElectricityMPAN, "electricity meter point (ELECTRICITY_MPAN)")
	fs.StringVar(&o.ElectricitySerial, "electricity-serial", o.ElectricitySerial, "electricity meter serial (ELECTRICITY_SERIAL)")
	fs.StringVar(&o.GasMPRN, "mprn", o.GasMPRN, "gas meter point (GAS_MPRN)")
	fs.StringVar(&o.GasSerial, "gas-serial", o.GasSerial, "gas meter serial (GAS_SERIAL)")
}

// cacheFlags registers the cache backend overrides on fs.
func cacheFlags(fs *flag.FlagSet, cfg *config.Config) {
	c := &cfg.Cache
	fs.StringVar(&c.Backend, "cache-backend", c.Backend, "cache backend: file, sqlite or redis (CACHE_BACKEND)")
	fs.StringVar(&c.Path, "cache", c.Path, "cache file path for the file and sqlite backends (CACHE_PATH)")
}
