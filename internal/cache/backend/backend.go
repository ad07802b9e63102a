// Package backend opens the ReadingCache selected by configuration.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/milad/octosync/internal/cache"
	"github.com/milad/octosync/internal/cache/rediscache"
	"github.com/milad/octosync/internal/cache/sqlitecache"
	"github.com/milad/octosync/internal/config"
)

// Open returns the configured backend and a function releasing it.
func Open(cfg config.Cache, logger *slog.Logger) (cache.ReadingCache, func(), error) {
	switch cfg.Backend {
	case "", "file":
		return cache.NewFileCache(cfg.Path, logger), func() {}, nil
	case "sqlite":
		c, err := sqlitecache.Open(cfg.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	case "redis":
		c, err := rediscache.New(rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
