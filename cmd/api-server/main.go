package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc"

	"github.com/octacordshop/PrimeStream/internal/app"
	"github.com/octacordshop/PrimeStream/internal/auth"
	"github.com/octacordshop/PrimeStream/internal/cache"
	"github.com/octacordshop/PrimeStream/internal/catalog"
	"github.com/octacordshop/PrimeStream/internal/hub"
	"github.com/octacordshop/PrimeStream/pkg/utils"
)

func main() {
	configFile := flag.String("config", "", "config file (default: ./config.yaml or ~/.primestream/config.yaml)")
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

	if cfg.Auth.JWTSecret == utils.DevJWTSecret {
		log.Println("[auth] WARNING: using the development JWT secret; set PRIMESTREAM_AUTH_JWT_SECRET")
	}

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

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/ws", hub.WSHandler(a.Hub, a.Imports))
	tcpSrv := hub.NewServer(cfg.Server.TCPAddr, a.Hub)
	tcpSrv.Runs = a.Imports

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Database.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := a.Hub.Stats()
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := a.DB.PingContext(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		st, err := a.Catalog.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"db":            cfg.Database.Path,
			"cache_backend": cfg.Cache.Backend,
			"catalog":       st,
			"feed":          a.Hub.Stats(),
			"imports":       len(a.Imports.List()),
		})
	})

	// Catalog (public)
	catalog.NewHandler(a.Catalog).RegisterRoutes(router.Group("/catalog"))

	// Operator auth
	auth.NewHandler(a.Operators, a.Tokens).RegisterRoutes(router.Group("/auth"))

	// Admin (protected)
	protected := router.Group("/admin")
	protected.Use(auth.RequireOperator(a.Tokens, a.Operators))
	a.AdminHandler(ctx).RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg conc.WaitGroup

	wg.Go(func() {
		if err := tcpSrv.Run(ctx); err != nil {
			errCh <- err
		}
	})

	wg.Go(func() {
		log.Printf("HTTP API server listening on %s", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	})

	wg.Go(func() {
		cache.RunJanitor(ctx, a.Cache, cfg.Cache.MaxAge, cfg.Cache.PruneInterval, log.Default())
	})

	select {
	case <-ctx.Done():
		log.Printf("shutdown signal received")
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}
	stop()

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")

	// ctx is done, so running imports stop after their current year
	a.Imports.Wait()
	log.Println("imports stopped")
}
