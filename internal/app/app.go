// Package app builds the object graph shared by the binaries from a loaded
// utils.Config.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/octacordshop/PrimeStream/internal/admin"
	"github.com/octacordshop/PrimeStream/internal/auth"
	"github.com/octacordshop/PrimeStream/internal/cache"
	"github.com/octacordshop/PrimeStream/internal/catalog"
	"github.com/octacordshop/PrimeStream/internal/catalogsync"
	"github.com/octacordshop/PrimeStream/internal/hub"
	"github.com/octacordshop/PrimeStream/internal/importer"
	"github.com/octacordshop/PrimeStream/internal/playback"
	"github.com/octacordshop/PrimeStream/internal/tmdb"
	"github.com/octacordshop/PrimeStream/pkg/database"
	"github.com/octacordshop/PrimeStream/pkg/utils"
)

type App struct {
	Config *utils.Config
	DB     *sql.DB

	Cache     cache.Store
	Catalog   *catalog.Repo
	Operators *auth.Repo
	Tokens    auth.TokenService

	Provider *tmdb.Client
	Prober   *playback.Prober
	Engine   *catalogsync.Engine
	Importer *importer.Orchestrator
	Imports  *importer.Tracker
	Hub      *hub.Hub

	closers []io.Closer
}

// New opens and migrates the database, picks the cache backend and wires
// the sync pipeline. Close releases everything New opened.
func New(cfg *utils.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	db, err := database.Open(database.Config{Path: cfg.Database.Path})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a := &App{Config: cfg, DB: db}
	a.closers = append(a.closers, db)

	if err := database.Migrate(db); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	switch cfg.Cache.Backend {
	case "bolt":
		bs, err := cache.OpenBoltStore(cfg.Cache.BoltPath)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Cache = bs
		a.closers = append(a.closers, bs)
	default:
		a.Cache = cache.NewSQLiteStore(db)
	}

	a.Catalog = catalog.NewRepo(db)
	a.Operators = auth.NewRepo(db)
	a.Tokens = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)

	a.Provider = tmdb.NewClient(tmdb.Config{
		BaseURL:           cfg.Provider.BaseURL,
		APIKey:            cfg.Provider.APIKey,
		ImageBaseURL:      cfg.Provider.ImageBaseURL,
		Language:          cfg.Provider.Language,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		Burst:             cfg.Provider.Burst,
		Timeout:           cfg.Provider.Timeout,
		PopularTTL:        cfg.Provider.PopularTTL,
		DiscoverTTL:       cfg.Provider.DiscoverTTL,
	}, a.Cache)
	a.Prober = playback.NewProber(playback.Config{
		MovieTemplate:   cfg.Playback.MovieTemplate,
		EpisodeTemplate: cfg.Playback.EpisodeTemplate,
		Timeout:         cfg.Playback.Timeout,
		UserAgent:       cfg.Playback.UserAgent,
	})
	a.Engine = catalogsync.NewEngine(a.Provider, a.Prober, a.Catalog)
	a.Importer = importer.NewOrchestrator(a.Engine, a.Provider, importer.Config{
		PacingDelay:       cfg.Import.PacingDelay,
		BackoffDelay:      cfg.Import.BackoffDelay,
		PreflightAttempts: cfg.Import.PreflightAttempts,
		PreflightDelay:    cfg.Import.PreflightDelay,
	})
	a.Imports = importer.NewTracker(cfg.Import.HistorySize)
	a.Hub = hub.New()
	return a, nil
}

// SetLogger points every component at l.
func (a *App) SetLogger(l *log.Logger) {
	a.Provider.Logger = l
	a.Prober.Logger = l
	a.Engine.Logger = l
	a.Importer.Logger = l
	a.Hub.Logger = l
}

// BootstrapOperator creates the configured admin account when missing.
func (a *App) BootstrapOperator(ctx context.Context) error {
	c := a.Config.Auth
	created, err := auth.Bootstrap(ctx, a.Operators, c.AdminUsername, c.AdminEmail, c.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		log.Printf("[auth] created operator %q", c.AdminUsername)
	}
	return nil
}

// AdminHandler returns the operator HTTP handler; background imports run on
// runCtx.
func (a *App) AdminHandler(runCtx context.Context) *admin.Handler {
	return &admin.Handler{
		Engine:      a.Engine,
		Importer:    a.Importer,
		Imports:     a.Imports,
		Catalog:     a.Catalog,
		Cache:       a.Cache,
		Hub:         a.Hub,
		Logger:      log.Default(),
		CacheMaxAge: a.Config.Cache.MaxAge,
		RunContext:  runCtx,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
