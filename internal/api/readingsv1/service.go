package readingsv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "octosync.readings.v1.ReadingService"

	ListReadingsFullMethodName  = "/" + ServiceName + "/ListReadings"
	LatestReadingFullMethodName = "/" + ServiceName + "/LatestReading"
)

// ReadingServiceClient is the client API for ReadingService.
type ReadingServiceClient interface {
	ListReadings(ctx context.Context, in *ListReadingsRequest, opts ...grpc.CallOption) (*ListReadingsResponse, error)
	LatestReading(ctx context.Context, in *LatestReadingRequest, opts ...grpc.CallOption) (*LatestReadingResponse, error)
}

type readingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewReadingServiceClient(cc grpc.ClientConnInterface) ReadingServiceClient {
	return &readingServiceClient{cc: cc}
}

func (c *readingServiceClient) ListReadings(ctx context.Context, in *ListReadingsRequest, opts ...grpc.CallOption) (*ListReadingsResponse, error) {
	out := new(ListReadingsResponse)
	if err := c.cc.Invoke(ctx, ListReadingsFullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *readingServiceClient) LatestReading(ctx context.Context, in *LatestReadingRequest, opts ...grpc.CallOption) (*LatestReadingResponse, error) {
	out := new(LatestReadingResponse)
	if err := c.cc.Invoke(ctx, LatestReadingFullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

// ReadingServiceServer is the server API for ReadingService. Implementations
// should embed UnimplementedReadingServiceServer.
type ReadingServiceServer interface {
	ListReadings(context.Context, *ListReadingsRequest) (*ListReadingsResponse, error)
	LatestReading(context.Context, *LatestReadingRequest) (*LatestReadingResponse, error)
}

type UnimplementedReadingServiceServer struct{}

func (UnimplementedReadingServiceServer) ListReadings(context.Context, *ListReadingsRequest) (*ListReadingsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListReadings not implemented")
}

func (UnimplementedReadingServiceServer) LatestReading(context.Context, *LatestReadingRequest) (*LatestReadingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LatestReading not implemented")
}

func RegisterReadingServiceServer(s grpc.ServiceRegistrar, srv ReadingServiceServer) {
	s.RegisterService(&ReadingService_ServiceDesc, srv)
}

func _ReadingService_ListReadings_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListReadingsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReadingServiceServer).ListReadings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListReadingsFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReadingServiceServer).ListReadings(ctx, req.(*ListReadingsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ReadingService_LatestReading_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LatestReadingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReadingServiceServer).LatestReading(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LatestReadingFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReadingServiceServer).LatestReading(ctx, req.(*LatestReadingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ReadingService_ServiceDesc is the grpc.ServiceDesc for ReadingService.
var ReadingService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReadingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListReadings", Handler: _ReadingService_ListReadings_Handler},
		{MethodName: "LatestReading", Handler: _ReadingService_LatestReading_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "octosync/readings/v1",
}
