package grpcserver

import (
	"context"
	"errors"
	"time"

	"github.com/milad/octosync/internal/api/readingsv1"
	"github.com/milad/octosync/internal/domain"
	"github.com/milad/octosync/internal/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type Server struct {
	readingsv1.UnimplementedReadingServiceServer
	svc *service.ReadingService
}

func New(svc *service.ReadingService) *Server {
	return &Server{svc: svc}
}

func (s *Server) ListReadings(ctx context.Context, req *readingsv1.ListReadingsRequest) (*readingsv1.ListReadingsResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	t, err := domain.ParseEnergyType(req.GetEnergyType())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	start, end, err := fromProtoRange(req.GetStart(), req.GetEnd())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.svc.ListReadingsPage(ctx, t, start, end, int(req.GetPageSize()), req.GetPageToken())
	if err != nil {
		return nil, toStatus(err)
	}

	out := make([]*readingsv1.Reading, 0, len(res.Readings))
	for _, r := range res.Readings {
		out = append(out, toProtoReading(r))
	}
	return &readingsv1.ListReadingsResponse{
		Readings:      out,
		NextPageToken: res.NextPageToken,
	}, nil
}

func (s *Server) LatestReading(ctx context.Context, req *readingsv1.LatestReadingRequest) (*readingsv1.LatestReadingResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	t, err := domain.ParseEnergyType(req.GetEnergyType())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	r, err := s.svc.LatestReading(ctx, t)
	if err != nil {
		return nil, toStatus(err)
	}
	return &readingsv1.LatestReadingResponse{Reading: toProtoReading(r)}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrInvalidPagination),
		errors.Is(err, service.ErrInvalidEnergyType):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func toProtoReading(r domain.Reading) *readingsv1.Reading {
	return &readingsv1.Reading{
		EnergyType:    r.Type.String(),
		IntervalStart: timestamppb.New(r.IntervalStart),
		IntervalEnd:   timestamppb.New(r.IntervalEnd),
		Consumption:   r.Consumption,
	}
}

func fromProtoRange(start, end *timestamppb.Timestamp) (*time.Time, *time.Time, error) {
	var (
		s *time.Time
		e *time.Time
	)
	if start != nil {
		if err := start.CheckValid(); err != nil {
			return nil, nil, err
		}
		t := start.AsTime().UTC()
		s = &t
	}
	if end != nil {
		if err := end.CheckValid(); err != nil {
			return nil, nil, err
		}
		t := end.AsTime().UTC()
		e = &t
	}
	return s, e, nil
}
