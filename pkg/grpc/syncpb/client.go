package syncpb

import (
	"context"

	"google.golang.org/grpc"
)

type SyncServiceClient interface {
	SyncPopular(ctx context.Context, in *SyncPopularRequest, opts ...grpc.CallOption) (*SyncResponse, error)
	SyncByYear(ctx context.Context, in *SyncByYearRequest, opts ...grpc.CallOption) (*SyncResponse, error)
	Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error)
	BulkImport(ctx context.Context, in *BulkImportRequest, opts ...grpc.CallOption) (SyncService_BulkImportClient, error)
}

type syncServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSyncServiceClient(cc grpc.ClientConnInterface) SyncServiceClient {
	return &syncServiceClient{cc: cc}
}

// withCodec puts the JSON subtype first so callers can still override it.
func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *syncServiceClient) SyncPopular(ctx context.Context, in *SyncPopularRequest, opts ...grpc.CallOption) (*SyncResponse, error) {
	out := new(SyncResponse)
	if err := c.cc.Invoke(ctx, SyncService_SyncPopular_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *syncServiceClient) SyncByYear(ctx context.Context, in *SyncByYearRequest, opts ...grpc.CallOption) (*SyncResponse, error) {
	out := new(SyncResponse)
	if err := c.cc.Invoke(ctx, SyncService_SyncByYear_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *syncServiceClient) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error) {
	out := new(RefreshResponse)
	if err := c.cc.Invoke(ctx, SyncService_Refresh_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

type SyncService_BulkImportClient interface {
	Recv() (*ImportProgress, error)
	grpc.ClientStream
}

type syncServiceBulkImportClient struct {
	grpc.ClientStream
}

func (x *syncServiceBulkImportClient) Recv() (*ImportProgress, error) {
	m := new(ImportProgress)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *syncServiceClient) BulkImport(ctx context.Context, in *BulkImportRequest, opts ...grpc.CallOption) (SyncService_BulkImportClient, error) {
	stream, err := c.cc.NewStream(ctx, &SyncService_ServiceDesc.Streams[0], SyncService_BulkImport_FullMethodName, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &syncServiceBulkImportClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
