package main

import (
	"log/slog"

	"github.com/milad/octosync/internal/config"
	"github.com/milad/octosync/internal/octopus"
)

func newFetcher(cfg *config.Config, l *slog.Logger) *octopus.Client {
	o := cfg.Octopus
	return octopus.New(octopus.Config{
		BaseURL:     o.BaseURL,
		APIKey:      o.APIKey,
		Electricity: octopus.Meter{PointID: o.ElectricityMPAN, Serial: o.ElectricitySerial},
		Gas:         octopus.Meter{PointID: o.GasMPRN, Serial: o.GasSerial},
		PageSize:    o.PageSize,
		MinInterval: o.MinInterval,
		MaxRetries:  o.MaxRetries,
	}, l)
}
