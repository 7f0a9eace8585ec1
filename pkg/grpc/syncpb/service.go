package syncpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "primestream.sync.v1.SyncService"

const (
	SyncService_SyncPopular_FullMethodName = "/" + ServiceName + "/SyncPopular"
	SyncService_SyncByYear_FullMethodName  = "/" + ServiceName + "/SyncByYear"
	SyncService_Refresh_FullMethodName     = "/" + ServiceName + "/Refresh"
	SyncService_BulkImport_FullMethodName  = "/" + ServiceName + "/BulkImport"
)

type SyncServiceServer interface {
	SyncPopular(context.Context, *SyncPopularRequest) (*SyncResponse, error)
	SyncByYear(context.Context, *SyncByYearRequest) (*SyncResponse, error)
	Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error)
	BulkImport(*BulkImportRequest, SyncService_BulkImportServer) error
}

// UnimplementedSyncServiceServer can be embedded for forward compatibility.
type UnimplementedSyncServiceServer struct{}

func (UnimplementedSyncServiceServer) SyncPopular(context.Context, *SyncPopularRequest) (*SyncResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SyncPopular not implemented")
}

func (UnimplementedSyncServiceServer) SyncByYear(context.Context, *SyncByYearRequest) (*SyncResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SyncByYear not implemented")
}

func (UnimplementedSyncServiceServer) Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
}

func (UnimplementedSyncServiceServer) BulkImport(*BulkImportRequest, SyncService_BulkImportServer) error {
	return status.Error(codes.Unimplemented, "method BulkImport not implemented")
}

type SyncService_BulkImportServer interface {
	Send(*ImportProgress) error
	grpc.ServerStream
}

type syncServiceBulkImportServer struct {
	grpc.ServerStream
}

func (x *syncServiceBulkImportServer) Send(m *ImportProgress) error {
	return x.ServerStream.SendMsg(m)
}

func RegisterSyncServiceServer(s grpc.ServiceRegistrar, srv SyncServiceServer) {
	s.RegisterService(&SyncService_ServiceDesc, srv)
}

func _SyncService_SyncPopular_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SyncPopularRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SyncServiceServer).SyncPopular(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SyncService_SyncPopular_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SyncServiceServer).SyncPopular(ctx, req.(*SyncPopularRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SyncService_SyncByYear_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SyncByYearRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SyncServiceServer).SyncByYear(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SyncService_SyncByYear_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SyncServiceServer).SyncByYear(ctx, req.(*SyncByYearRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SyncService_Refresh_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RefreshRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SyncServiceServer).Refresh(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SyncService_Refresh_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SyncServiceServer).Refresh(ctx, req.(*RefreshRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SyncService_BulkImport_Handler(srv any, stream grpc.ServerStream) error {
	m := new(BulkImportRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(SyncServiceServer).BulkImport(m, &syncServiceBulkImportServer{stream})
}

var SyncService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SyncPopular", Handler: _SyncService_SyncPopular_Handler},
		{MethodName: "SyncByYear", Handler: _SyncService_SyncByYear_Handler},
		{MethodName: "Refresh", Handler: _SyncService_Refresh_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "BulkImport", Handler: _SyncService_BulkImport_Handler, ServerStreams: true},
	},
	Metadata: "primestream/sync/v1/sync.proto",
}
