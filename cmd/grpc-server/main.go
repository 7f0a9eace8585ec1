package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/octacordshop/PrimeStream/internal/app"
	"github.com/octacordshop/PrimeStream/internal/grpcserver"
	"github.com/octacordshop/PrimeStream/pkg/grpc/syncpb"
	"github.com/octacordshop/PrimeStream/pkg/utils"
)

func main() {
	configFile := flag.String("config", "", "config file")
	noAuth := flag.Bool("insecure-no-auth", false, "skip operator token checks (local use only)")
	flag.Parse()

	cfg, err := utils.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logCloser, err := utils.SetupLogging(cfg.Logging)
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	defer logCloser.Close()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.BootstrapOperator(ctx); err != nil {
		log.Fatalf("bootstrap operator: %v", err)
	}

	listener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatalf("grpc listen failed: %v", err)
	}

	svc := grpcserver.NewServer(a.Engine, a.Importer)
	svc.Observer = a.Imports.Observe

	var opts []grpc.ServerOption
	if !*noAuth {
		authn := grpcserver.Authenticator{Tokens: a.Tokens, Repo: a.Operators}
		opts = append(opts, grpc.UnaryInterceptor(authn.Unary()), grpc.StreamInterceptor(authn.Stream()))
	}
	grpcServer := grpc.NewServer(opts...)
	syncpb.RegisterSyncServiceServer(grpcServer, svc)

	go func() {
		<-ctx.Done()
		log.Println("shutting down gRPC server")
		grpcServer.GracefulStop()
	}()

	log.Printf("gRPC server listening on %s", cfg.Server.GRPCAddr)
	if err := grpcServer.Serve(listener); err != nil {
		log.Fatalf("grpc server stopped: %v", err)
	}
}
