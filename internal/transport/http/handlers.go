// Package httpserver is the JSON gateway in front of the readings gRPC
// service.
package httpserver

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/milad/octosync/internal/api/readingsv1"
	"github.com/milad/octosync/internal/domain"
	"github.com/milad/octosync/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const upstreamTimeout = 5 * time.Second

type Server struct {
	client  ReadingsClient
	handler http.Handler
}

func New(client ReadingsClient) *Server {
	s := &Server{client: client}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/readings", getOnly(s.handleListReadings))
	mux.HandleFunc("/api/readings/latest", getOnly(s.handleLatestReading))
	mux.HandleFunc("/healthz", getOnly(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", s.handleIndex)
	s.handler = instrument(mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// apiError is a client error found before any upstream call.
type apiError struct {
	status  int
	code    string
	message string
}

func badRequest(msg string) *apiError {
	return &apiError{status: http.StatusBadRequest, code: "invalid_argument", message: msg}
}

// listRequest builds the upstream request from the query string: `type`
// (default electricity), optional RFC3339 `start`/`end` bounding interval
// start as [start, end), and optional `page_size`/`page_token`.
func listRequest(q url.Values) (*readingsv1.ListReadingsRequest, *apiError) {
	energyType, err := energyTypeParam(q)
	if err != nil {
		return nil, badRequest("invalid type")
	}
	req := &readingsv1.ListReadingsRequest{EnergyType: energyType}

	start, err := parseOptionalRFC3339(q.Get("start"))
	if err != nil {
		return nil, badRequest("invalid start")
	}
	end, err := parseOptionalRFC3339(q.Get("end"))
	if err != nil {
		return nil, badRequest("invalid end")
	}
	if start != nil && end != nil && !start.Before(*end) {
		return nil, badRequest("invalid range: start must be before end")
	}
	if start != nil {
		req.Start = timestamppb.New(*start)
	}
	if end != nil {
		req.End = timestamppb.New(*end)
	}

	if v := q.Get("page_size"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, badRequest("invalid page_size")
		}
		if n < 0 {
			return nil, badRequest("page_size must be >= 0")
		}
		req.PageSize = int32(n)
	}
	req.PageToken = q.Get("page_token")
	if req.PageToken != "" && req.PageSize == 0 {
		return nil, badRequest("page_token requires page_size")
	}
	return req, nil
}

func energyTypeParam(q url.Values) (string, error) {
	v := q.Get("type")
	if v == "" {
		return readingsv1.EnergyTypeElectricity, nil
	}
	t, err := domain.ParseEnergyType(v)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	req, apiErr := listRequest(r.URL.Query())
	if apiErr != nil {
		writeAPIError(w, apiErr.status, apiErr.code, apiErr.message)
		return
	}

	resp, err := callUpstream(r.Context(), "ListReadings", func(ctx context.Context) (*readingsv1.ListReadingsResponse, error) {
		return s.client.ListReadings(ctx, req)
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	out := make([]readingJSON, 0, len(resp.GetReadings()))
	for _, rd := range resp.GetReadings() {
		j, ok := toReadingJSON(rd)
		if !ok {
			writeAPIError(w, http.StatusBadGateway, "upstream_error", "upstream returned invalid reading")
			return
		}
		out = append(out, j)
	}
	_ = writeJSON(w, http.StatusOK, listReadingsResponseJSON{Readings: out, NextPageToken: resp.GetNextPageToken()})
}

// handleLatestReading returns the newest cached reading of one energy type.
func (s *Server) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	energyType, err := energyTypeParam(r.URL.Query())
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", "invalid type")
		return
	}

	resp, err := callUpstream(r.Context(), "LatestReading", func(ctx context.Context) (*readingsv1.LatestReadingResponse, error) {
		return s.client.LatestReading(ctx, &readingsv1.LatestReadingRequest{EnergyType: energyType})
	})
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	j, ok := toReadingJSON(resp.GetReading())
	if !ok {
		writeAPIError(w, http.StatusBadGateway, "upstream_error", "upstream returned invalid reading")
		return
	}
	_ = writeJSON(w, http.StatusOK, j)
}

// callUpstream bounds the call and records its outcome.
func callUpstream[T any](ctx context.Context, rpc string, call func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()
	start := time.Now()
	resp, err := call(ctx)
	metrics.ObserveUpstreamCall(rpc, status.Code(err).String(), time.Since(start))
	return resp, err
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.InvalidArgument:
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", st.Message())
	case codes.NotFound:
		writeAPIError(w, http.StatusNotFound, "not_found", st.Message())
	case codes.DeadlineExceeded:
		writeAPIError(w, http.StatusGatewayTimeout, "upstream_timeout", "upstream timeout")
	default:
		writeAPIError(w, http.StatusBadGateway, "upstream_error", "upstream error")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		notFoundOrError(w, r, http.StatusNotFound, "not_found", "not found")
		return
	}
	getOnly(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})(w, r)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	_ = writeJSON(w, status, apiErrorJSON{
		Code:      code,
		Message:   message,
		RequestID: w.Header().Get(requestIDHeader),
	})
}
