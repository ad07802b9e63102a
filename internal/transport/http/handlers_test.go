package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/milad/octosync/internal/api/readingsv1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type fakeClient struct {
	resp   *readingsv1.ListReadingsResponse
	latest *readingsv1.LatestReadingResponse
	err    error
	req    *readingsv1.ListReadingsRequest
}

func (f *fakeClient) ListReadings(ctx context.Context, in *readingsv1.ListReadingsRequest, _ ...grpc.CallOption) (*readingsv1.ListReadingsResponse, error) {
	f.req = in
	return f.resp, f.err
}

func (f *fakeClient) LatestReading(ctx context.Context, in *readingsv1.LatestReadingRequest, _ ...grpc.CallOption) (*readingsv1.LatestReadingResponse, error) {
	return f.latest, f.err
}

func protoReading(start time.Time, kwh float64) *readingsv1.Reading {
	return &readingsv1.Reading{
		EnergyType:    readingsv1.EnergyTypeElectricity,
		IntervalStart: timestamppb.New(start),
		IntervalEnd:   timestamppb.New(start.Add(30 * time.Minute)),
		Consumption:   kwh,
	}
}

func serve(srv *Server, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestHTTP_ListReadings_OK_PreservesOrder(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(30 * time.Minute)

	fc := &fakeClient{
		resp: &readingsv1.ListReadingsResponse{
			Readings: []*readingsv1.Reading{protoReading(t0, 1.1), protoReading(t1, 2.2)},
		},
	}
	rr := serve(New(fc), "/api/readings?type=gas&page_size=2")

	if got, want := rr.Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d, body=%s", got, want, rr.Body.String())
	}
	if got, want := fc.req.GetEnergyType(), "gas"; got != want {
		t.Fatalf("energy type=%q want %q", got, want)
	}
	if got, want := fc.req.GetPageSize(), int32(2); got != want {
		t.Fatalf("page size=%d want %d", got, want)
	}

	var got listReadingsResponseJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Readings) != 2 {
		t.Fatalf("len=%d want 2", len(got.Readings))
	}
	if got.Readings[0].IntervalStart != formatTime(t0) || got.Readings[1].IntervalStart != formatTime(t1) {
		t.Fatalf("unexpected order or time formatting: %#v", got.Readings)
	}
}

func TestHTTP_ListReadings_DefaultsToElectricity(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{resp: &readingsv1.ListReadingsResponse{}}
	if got, want := serve(New(fc), "/api/readings").Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d", got, want)
	}
	if got, want := fc.req.GetEnergyType(), "electricity"; got != want {
		t.Fatalf("energy type=%q want %q", got, want)
	}
}

func TestHTTP_ListReadings_BadRequests(t *testing.T) {
	t.Parallel()

	for _, target := range []string{
		"/api/readings?start=not-a-time",
		"/api/readings?type=water",
		"/api/readings?page_token=10",
		"/api/readings?page_size=-1",
		"/api/readings?start=2019-01-01T01:00:00Z&end=2019-01-01T00:00:00Z",
	} {
		if got, want := serve(New(&fakeClient{}), target).Code, http.StatusBadRequest; got != want {
			t.Fatalf("%s: status=%d want %d", target, got, want)
		}
	}
}

func TestHTTP_MapsUpstreamErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		target string
		want   int
	}{
		{status.Error(codes.InvalidArgument, "bad range"), "/api/readings", http.StatusBadRequest},
		{status.Error(codes.Unavailable, "nope"), "/api/readings", http.StatusBadGateway},
		{status.Error(codes.DeadlineExceeded, "slow"), "/api/readings", http.StatusGatewayTimeout},
		{status.Error(codes.NotFound, "no gas readings cached"), "/api/readings/latest?type=gas", http.StatusNotFound},
	}
	for _, tc := range cases {
		if got := serve(New(&fakeClient{err: tc.err}), tc.target).Code; got != tc.want {
			t.Fatalf("%v: status=%d want %d", tc.err, got, tc.want)
		}
	}
}

func TestHTTP_LatestReading(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2022, 6, 1, 8, 0, 0, 0, time.UTC)
	fc := &fakeClient{latest: &readingsv1.LatestReadingResponse{Reading: protoReading(t0, 1)}}
	rr := serve(New(fc), "/api/readings/latest")
	if got, want := rr.Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d, body=%s", got, want, rr.Body.String())
	}
	var got readingJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.IntervalEnd != "2022-06-01T08:30:00Z" || got.Consumption != 1 {
		t.Fatalf("unexpected reading %#v", got)
	}

	fc.latest = &readingsv1.LatestReadingResponse{}
	if got, want := serve(New(fc), "/api/readings/latest").Code, http.StatusBadGateway; got != want {
		t.Fatalf("empty upstream reading: status=%d want %d", got, want)
	}
}

func TestHTTP_Index(t *testing.T) {
	t.Parallel()

	rr := serve(New(&fakeClient{}), "/")
	if got, want := rr.Code, http.StatusOK; got != want {
		t.Fatalf("status=%d want %d", got, want)
	}
	if ct := rr.Header().Get("Content-Type"); ct == "" {
		t.Fatalf("expected content-type")
	}
	if body := rr.Body.String(); body == "" {
		t.Fatalf("expected body")
	}

	if got, want := serve(New(&fakeClient{}), "/api/nope").Code, http.StatusNotFound; got != want {
		t.Fatalf("unknown api path: status=%d want %d", got, want)
	}
}

func TestHTTP_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	New(&fakeClient{}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/readings", nil))
	if got, want := rr.Code, http.StatusMethodNotAllowed; got != want {
		t.Fatalf("status=%d want %d", got, want)
	}
	if got, want := rr.Header().Get("Allow"), http.MethodGet; got != want {
		t.Fatalf("Allow=%q want %q", got, want)
	}
	var body apiErrorJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Code != "method_not_allowed" || body.RequestID == "" {
		t.Fatalf("unexpected error body %#v", body)
	}
}

func TestHTTP_KeepsCallerRequestID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc123")
	rr := httptest.NewRecorder()
	New(&fakeClient{}).ServeHTTP(rr, req)
	if got, want := rr.Header().Get("X-Request-Id"), "abc123"; got != want {
		t.Fatalf("request id=%q want %q", got, want)
	}
}
