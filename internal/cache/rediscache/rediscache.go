// Package rediscache persists the reading cache in Redis sorted sets, one per
// energy type, scored by interval start.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/milad/octosync/internal/cache"
	"github.com/milad/octosync/internal/domain"

	goredis "github.com/go-redis/redis/v8"
)

const opTimeout = 30 * time.Second

var _ cache.ReadingCache = (*Cache)(nil)

// Config configures the Redis connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	Prefix   string // key prefix, default "octosync"
}

// Cache stores each reading as a JSON member of "<prefix>:<type>_records".
type Cache struct {
	client *goredis.Client
	prefix string
	log    *slog.Logger
}

// New connects to Redis and pings it.
func New(cfg Config, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "octosync"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %w", cache.ErrIO, cfg.Addr, err)
	}

	logger.Debug("connected to redis", slog.String("addr", cfg.Addr))
	return &Cache{client: client, prefix: cfg.Prefix, log: logger}, nil
}

func (c *Cache) key(t domain.EnergyType) string {
	return c.prefix + ":" + t.String() + "_records"
}

func (c *Cache) Location() string {
	return "redis:" + c.client.Options().Addr + "/" + c.prefix
}

func (c *Cache) Load() (*cache.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	s := cache.NewStore()
	for _, t := range domain.EnergyTypes {
		members, err := c.client.ZRange(ctx, c.key(t), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: redis zrange %s: %w", cache.ErrIO, c.key(t), err)
		}

		records := make([]cache.Record, 0, len(members))
		for _, m := range members {
			var rec cache.Record
			if err := json.Unmarshal([]byte(m), &rec); err != nil {
				return nil, &cache.CorruptCacheError{Path: c.Location(), Err: err}
			}
			records = append(records, rec)
		}
		readings, err := cache.FromRecords(t, records)
		if err != nil {
			return nil, &cache.CorruptCacheError{Path: c.Location(), Err: err}
		}
		if _, err := s.Merge(t, readings); err != nil {
			return nil, &cache.CorruptCacheError{Path: c.Location(), Err: err}
		}
	}
	return s, nil
}

// Flush rewrites both sorted sets inside one MULTI/EXEC, so readers never see
// a half-written snapshot.
func (c *Cache) Flush(s *cache.Store) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	members := make(map[domain.EnergyType][]*goredis.Z, len(domain.EnergyTypes))
	for _, t := range domain.EnergyTypes {
		for r := range s.All(t) {
			data, err := json.Marshal(cache.ToRecord(r))
			if err != nil {
				return fmt.Errorf("encode reading: %w", err)
			}
			members[t] = append(members[t], &goredis.Z{
				Score:  float64(r.IntervalStart.Unix()),
				Member: string(data),
			})
		}
	}

	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, t := range domain.EnergyTypes {
			pipe.Del(ctx, c.key(t))
			if len(members[t]) > 0 {
				pipe.ZAdd(ctx, c.key(t), members[t]...)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: redis flush: %w", cache.ErrIO, err)
	}

	c.log.Info("flushed cache",
		slog.String("location", c.Location()),
		slog.Int("electricity_records", len(members[domain.Electricity])),
		slog.Int("gas_records", len(members[domain.Gas])),
	)
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
