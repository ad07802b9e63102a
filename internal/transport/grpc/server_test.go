package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/milad/octosync/internal/api/readingsv1"
	"github.com/milad/octosync/internal/cache"
	"github.com/milad/octosync/internal/domain"
	"github.com/milad/octosync/internal/repo/cacherepo"
	"github.com/milad/octosync/internal/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/timestamppb"
)

var base = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

func halfHour(n int, kwh float64) domain.Reading {
	start := base.Add(time.Duration(n) * 30 * time.Minute)
	return domain.Reading{Type: domain.Electricity, IntervalStart: start, IntervalEnd: start.Add(30 * time.Minute), Consumption: kwh}
}

func newClient(t *testing.T, readings ...domain.Reading) readingsv1.ReadingServiceClient {
	t.Helper()

	s := cache.NewStore()
	if _, err := s.Merge(domain.Electricity, readings); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	srv := New(service.NewReadingService(cacherepo.New(s)))

	const bufSize = 1024 * 1024
	lis := bufconn.Listen(bufSize)

	g := grpc.NewServer()
	readingsv1.RegisterReadingServiceServer(g, srv)
	go func() { _ = g.Serve(lis) }()
	t.Cleanup(g.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return readingsv1.NewReadingServiceClient(conn)
}

func TestServer_ListReadings_PreservesOrder(t *testing.T) {
	t.Parallel()

	client := newClient(t, halfHour(1, 2), halfHour(0, 1), halfHour(2, 3))

	resp, err := client.ListReadings(context.Background(), &readingsv1.ListReadingsRequest{EnergyType: "electricity"})
	if err != nil {
		t.Fatalf("ListReadings: %v", err)
	}
	if got, want := len(resp.Readings), 3; got != want {
		t.Fatalf("len(readings)=%d want %d", got, want)
	}
	for i := 1; i < len(resp.Readings); i++ {
		prev, cur := resp.Readings[i-1].IntervalStart.AsTime(), resp.Readings[i].IntervalStart.AsTime()
		if !prev.Before(cur) {
			t.Fatalf("expected strict ascending starts, got %v then %v", prev, cur)
		}
	}
}

func TestServer_ListReadings_FiltersRange(t *testing.T) {
	t.Parallel()

	client := newClient(t, halfHour(0, 1), halfHour(1, 2), halfHour(2, 3))

	resp, err := client.ListReadings(context.Background(), &readingsv1.ListReadingsRequest{
		EnergyType: "electricity",
		Start:      timestamppb.New(base.Add(30 * time.Minute)),
		End:        timestamppb.New(base.Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("ListReadings: %v", err)
	}
	if got, want := len(resp.Readings), 1; got != want {
		t.Fatalf("len(readings)=%d want %d", got, want)
	}
	if got, want := resp.Readings[0].Consumption, 2.0; got != want {
		t.Fatalf("consumption=%v want %v", got, want)
	}
}

func TestServer_StatusCodes(t *testing.T) {
	t.Parallel()

	client := newClient(t, halfHour(0, 1))
	ctx := context.Background()

	_, err := client.ListReadings(ctx, &readingsv1.ListReadingsRequest{EnergyType: "water"})
	if got, want := status.Code(err), codes.InvalidArgument; got != want {
		t.Fatalf("unknown energy type: code=%v want %v", got, want)
	}

	_, err = client.ListReadings(ctx, &readingsv1.ListReadingsRequest{EnergyType: "electricity", PageToken: "3"})
	if got, want := status.Code(err), codes.InvalidArgument; got != want {
		t.Fatalf("token without page size: code=%v want %v", got, want)
	}

	_, err = client.LatestReading(ctx, &readingsv1.LatestReadingRequest{EnergyType: "gas"})
	if got, want := status.Code(err), codes.NotFound; got != want {
		t.Fatalf("latest gas: code=%v want %v", got, want)
	}

	resp, err := client.LatestReading(ctx, &readingsv1.LatestReadingRequest{EnergyType: "electricity"})
	if err != nil {
		t.Fatalf("LatestReading: %v", err)
	}
	if got, want := resp.GetReading().GetEnergyType(), "electricity"; got != want {
		t.Fatalf("energy_type=%q want %q", got, want)
	}
}
