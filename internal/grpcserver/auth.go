package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/octacordshop/PrimeStream/internal/auth"
)

// Authenticator checks the "authorization: Bearer <jwt>" metadata the same
// way the admin HTTP middleware does.
type Authenticator struct {
	Tokens auth.TokenService
	Repo   *auth.Repo
}

func (a Authenticator) check(ctx context.Context) error {
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}
	}
	if _, err := auth.Verify(ctx, a.Tokens, a.Repo, header); err != nil {
		if auth.IsAuthError(err) {
			return status.Error(codes.Unauthenticated, err.Error())
		}
		return status.Error(codes.Internal, "auth lookup failed")
	}
	return nil
}

func (a Authenticator) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := a.check(ctx); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func (a Authenticator) Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := a.check(ss.Context()); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

// BearerToken returns call credentials carrying token on every RPC.
func BearerToken(token string) grpc.CallOption {
	return grpc.PerRPCCredsCallOption{Creds: bearer(token)}
}

type bearer string

func (b bearer) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + string(b)}, nil
}

func (bearer) RequireTransportSecurity() bool { return false }
