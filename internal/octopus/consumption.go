package octopus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/milad/octosync/internal/domain"
	"github.com/milad/octosync/internal/metrics"
	"github.com/sony/gobreaker"
)

// consumptionPage is one page of the consumption endpoint.
type consumptionPage struct {
	Count    int              `json:"count"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
	Results  []consumptionRow `json:"results"`
}

type consumptionRow struct {
	Consumption   *float64   `json:"consumption"`
	IntervalStart *time.Time `json:"interval_start"`
	IntervalEnd   *time.Time `json:"interval_end"`
}

// PageFunc receives each page of readings in ascending order. Returning an
// error stops the fetch and is returned unchanged.
type PageFunc func(page []domain.Reading) error

// FetchPages requests readings of type t whose intervals fall inside rng,
// following pagination, and hands each page to fn.
func (c *Client) FetchPages(ctx context.Context, t domain.EnergyType, rng domain.TimeRange, fn PageFunc) error {
	path, err := c.meterPath(t)
	if err != nil {
		return err
	}

	params := map[string]string{
		"period_from": rng.Start.UTC().Format(time.RFC3339),
		"period_to":   rng.End.UTC().Format(time.RFC3339),
		"page_size":   strconv.Itoa(c.cfg.PageSize),
		"order_by":    "period",
	}

	url := path
	for page := 1; ; page++ {
		// After the first page the API hands us an absolute "next" URL that
		// already carries every query parameter.
		var query map[string]string
		if page == 1 {
			query = params
		}

		body, err := c.getPage(ctx, t, url, query)
		if err != nil {
			return err
		}
		if page == 1 {
			c.log.Info("fetching consumption",
				slog.String("energy_type", t.String()),
				slog.String("range", rng.String()),
				slog.Int("total_records", body.Count),
			)
		}

		readings, err := body.readings(t)
		if err != nil {
			return err
		}
		c.log.Debug("retrieved page",
			slog.String("energy_type", t.String()),
			slog.Int("page", page),
			slog.Int("records", len(readings)),
		)
		if len(readings) > 0 {
			if err := fn(readings); err != nil {
				return err
			}
		}

		if body.Next == nil || *body.Next == "" {
			return nil
		}
		url = *body.Next
	}
}

// Fetch collects every page of FetchPages.
func (c *Client) Fetch(ctx context.Context, t domain.EnergyType, rng domain.TimeRange) ([]domain.Reading, error) {
	var out []domain.Reading
	err := c.FetchPages(ctx, t, rng, func(page []domain.Reading) error {
		out = append(out, page...)
		return nil
	})
	return out, err
}

func (c *Client) getPage(ctx context.Context, t domain.EnergyType, url string, query map[string]string) (*consumptionPage, error) {
	if err := c.waitTurn(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := c.circuit.Execute(func() (interface{}, error) {
		req := c.http.R().SetContext(ctx)
		if query != nil {
			req.SetQueryParams(query)
		}
		resp, err := req.Get(url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.ObserveRemoteRequest(t.String(), "transport_error", time.Since(start))
			return nil, fmt.Errorf("%w: GET %s: %v", ErrUnavailable, url, err)
		}
		metrics.ObserveRemoteRequest(t.String(), strconv.Itoa(resp.StatusCode()), time.Since(start))
		if err := classify(resp); err != nil {
			return nil, err
		}
		var body consumptionPage
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrBadResponse, url, err)
		}
		return &body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return result.(*consumptionPage), nil
}

func classify(resp *resty.Response) error {
	switch code := resp.StatusCode(); {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, code)
	case shouldRetry(code):
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrBadResponse, code, truncate(resp.Body(), 200))
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

func (p *consumptionPage) readings(t domain.EnergyType) ([]domain.Reading, error) {
	out := make([]domain.Reading, 0, len(p.Results))
	for i, row := range p.Results {
		if row.Consumption == nil || row.IntervalStart == nil || row.IntervalEnd == nil {
			return nil, fmt.Errorf("%w: result %d is missing a field", ErrBadResponse, i)
		}
		out = append(out, domain.Reading{
			Type:          t,
			IntervalStart: *row.IntervalStart,
			IntervalEnd:   *row.IntervalEnd,
			Consumption:   *row.Consumption,
		})
	}
	return out, nil
}
