// Package octopus fetches half-hourly consumption from the Octopus Energy
// REST API.
package octopus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/milad/octosync/internal/domain"
	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL     = "https://api.octopus.energy/v1"
	DefaultPageSize    = 1000
	MaxPageSize        = 25_000
	DefaultMinInterval = 500 * time.Millisecond
)

var (
	// ErrUnauthorized means the API key was refused (401/403).
	ErrUnauthorized = errors.New("octopus: unauthorized")
	// ErrUnavailable covers transport failures, 429/5xx after retries and an
	// open circuit breaker.
	ErrUnavailable = errors.New("octopus: unavailable")
	// ErrBadResponse means the API answered with something we cannot use.
	ErrBadResponse = errors.New("octopus: bad response")
	// ErrNotConfigured means the meter for an energy type has no identifiers.
	ErrNotConfigured = errors.New("octopus: meter not configured")
)

// Meter identifies one meter: MPAN (electricity) or MPRN (gas) plus serial.
type Meter struct {
	PointID string
	Serial  string
}

func (m Meter) configured() bool { return m.PointID != "" && m.Serial != "" }

// Config configures a Client.
type Config struct {
	BaseURL     string
	APIKey      string
	Electricity Meter
	Gas         Meter

	PageSize    int
	MinInterval time.Duration // minimum spacing between requests

	MaxRetries     int
	RetryWait      time.Duration
	RetryMaxWait   time.Duration
	RequestTimeout time.Duration

	HTTPClient *http.Client
}

// Client is the remote fetcher. It is safe for concurrent use; requests are
// serialised by the rate limiter.
type Client struct {
	cfg     Config
	http    *resty.Client
	circuit *gobreaker.CircuitBreaker
	log     *slog.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// New builds a client. logger may be nil.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageSize > MaxPageSize {
		cfg.PageSize = MaxPageSize
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}
	if cfg.RetryMaxWait <= 0 {
		cfg.RetryMaxWait = 30 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.APIKey, "").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "octosync").
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return shouldRetry(r.StatusCode())
		}).
		SetRetryAfter(retryAfter)

	c := &Client{cfg: cfg, http: rc, log: logger}
	c.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "octopus",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// Only outages count against the breaker; a bad key is not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return c
}

func shouldRetry(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusInternalServerError ||
		status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusGatewayTimeout
}

// retryAfter honours a Retry-After header given in seconds. Zero lets resty
// fall back to its jittered exponential backoff.
func retryAfter(_ *resty.Client, r *resty.Response) (time.Duration, error) {
	if r == nil {
		return 0, nil
	}
	if v := r.Header().Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second, nil
		}
	}
	return 0, nil
}

func (c *Client) meterPath(t domain.EnergyType) (string, error) {
	switch t {
	case domain.Electricity:
		if !c.cfg.Electricity.configured() {
			return "", fmt.Errorf("%w: electricity MPAN/serial", ErrNotConfigured)
		}
		return fmt.Sprintf("/electricity-meter-points/%s/meters/%s/consumption/", c.cfg.Electricity.PointID, c.cfg.Electricity.Serial), nil
	case domain.Gas:
		if !c.cfg.Gas.configured() {
			return "", fmt.Errorf("%w: gas MPRN/serial", ErrNotConfigured)
		}
		return fmt.Sprintf("/gas-meter-points/%s/meters/%s/consumption/", c.cfg.Gas.PointID, c.cfg.Gas.Serial), nil
	default:
		return "", fmt.Errorf("%w: energy type %v", ErrNotConfigured, t)
	}
}

// Configured reports whether the meter for t has identifiers.
func (c *Client) Configured(t domain.EnergyType) bool {
	_, err := c.meterPath(t)
	return err == nil
}

// waitTurn enforces MinInterval between requests.
func (c *Client) waitTurn(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastCall.IsZero() && c.cfg.MinInterval > 0 {
		if wait := c.cfg.MinInterval - time.Since(c.lastCall); wait > 0 {
			c.log.Debug("rate limiting", slog.Int64("sleep_ms", wait.Milliseconds()))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	c.lastCall = time.Now()
	return nil
}
