package httpserver

import (
	"context"
	"time"

	"github.com/milad/octosync/internal/api/readingsv1"
	"google.golang.org/grpc"
)

// ReadingsClient is the small subset of the gRPC client we need, to keep tests simple.
type ReadingsClient interface {
	ListReadings(ctx context.Context, in *readingsv1.ListReadingsRequest, opts ...grpc.CallOption) (*readingsv1.ListReadingsResponse, error)
	LatestReading(ctx context.Context, in *readingsv1.LatestReadingRequest, opts ...grpc.CallOption) (*readingsv1.LatestReadingResponse, error)
}

func parseOptionalRFC3339(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		// allow nano timestamps too (RFC3339Nano is a superset)
		t2, err2 := time.Parse(time.RFC3339Nano, v)
		if err2 != nil {
			return nil, err
		}
		t = t2
	}
	tt := t.UTC()
	return &tt, nil
}
