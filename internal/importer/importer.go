// Package importer drives year-by-year bulk imports through the sync engine.
//
// A run walks the requested years in ascending order, one SyncByYear call
// per year. A failing year is counted and followed by a longer backoff; it
// never aborts the run. Progress is a per-run value handed to an Observer
// after every year and returned when the run ends.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/octacordshop/PrimeStream/internal/catalogsync"
	"github.com/octacordshop/PrimeStream/pkg/models"
)

const (
	MinYear = 1900
	// ConfirmAbove is the largest range (in years) that runs without
	// explicit confirmation.
	ConfirmAbove = 5
)

var (
	ErrInvalidRange         = errors.New("invalid year range")
	ErrInvalidKind          = models.ErrInvalidKind
	ErrConfirmationRequired = errors.New("ranges longer than 5 years require confirmation")
)

type Request struct {
	RunID     string      `json:"run_id,omitempty"`
	Kind      models.Kind `json:"kind"`
	StartYear int         `json:"start_year"`
	EndYear   int         `json:"end_year"`
	Confirmed bool        `json:"confirm"`
}

func (r Request) Years() int { return r.EndYear - r.StartYear + 1 }

// Validate checks kind and range against now, then the confirmation gate.
func Validate(req Request, now time.Time) error {
	if !req.Kind.Valid() {
		return ErrInvalidKind
	}
	switch {
	case req.StartYear < MinYear:
		return fmt.Errorf("%w: start year %d is before %d", ErrInvalidRange, req.StartYear, MinYear)
	case req.StartYear > req.EndYear:
		return fmt.Errorf("%w: start year %d is after end year %d", ErrInvalidRange, req.StartYear, req.EndYear)
	case req.EndYear > now.Year():
		return fmt.Errorf("%w: end year %d is in the future", ErrInvalidRange, req.EndYear)
	}
	if req.Years() > ConfirmAbove && !req.Confirmed {
		return ErrConfirmationRequired
	}
	return nil
}

type YearSyncer interface {
	SyncByYear(ctx context.Context, kind models.Kind, year, page int) (catalogsync.Result, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Observer receives a copy of the run's progress.
type Observer func(Progress)

type Config struct {
	PacingDelay       time.Duration
	BackoffDelay      time.Duration
	PreflightAttempts uint
	PreflightDelay    time.Duration
}

func DefaultConfig() Config {
	return Config{
		PacingDelay:       2 * time.Second,
		BackoffDelay:      5 * time.Second,
		PreflightAttempts: 3,
		PreflightDelay:    time.Second,
	}
}

type Orchestrator struct {
	Syncer YearSyncer
	Pinger Pinger
	Logger *log.Logger
	Now    func() time.Time

	PacingDelay       time.Duration
	BackoffDelay      time.Duration
	PreflightAttempts uint
	PreflightDelay    time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(syncer YearSyncer, pinger Pinger, cfg Config) *Orchestrator {
	if cfg.PreflightAttempts == 0 {
		cfg.PreflightAttempts = 3
	}
	return &Orchestrator{
		Syncer:            syncer,
		Pinger:            pinger,
		Logger:            log.Default(),
		Now:               time.Now,
		PacingDelay:       cfg.PacingDelay,
		BackoffDelay:      cfg.BackoffDelay,
		PreflightAttempts: cfg.PreflightAttempts,
		PreflightDelay:    cfg.PreflightDelay,
		sleep:             sleepCtx,
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

// BulkImport validates req, checks the provider answers, then syncs page 1
// of every year in the range. The returned Progress is the final snapshot;
// the error is non-nil only when the run could not start or ctx ended it.
func (o *Orchestrator) BulkImport(ctx context.Context, req Request, obs Observer) (Progress, error) {
	if err := Validate(req, o.now()); err != nil {
		return Progress{Kind: req.Kind, StartYear: req.StartYear, EndYear: req.EndYear}, err
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	return o.run(ctx, req, o.now(), obs)
}

// run executes a request that already passed Validate.
func (o *Orchestrator) run(ctx context.Context, req Request, startedAt time.Time, obs Observer) (Progress, error) {
	notify := func(p Progress) {
		if obs != nil {
			obs(p)
		}
	}

	p := Progress{
		RunID:      req.RunID,
		Kind:       req.Kind,
		StartYear:  req.StartYear,
		EndYear:    req.EndYear,
		TotalYears: req.Years(),
		IsRunning:  true,
		StartedAt:  startedAt,
	}
	notify(p)

	if err := o.preflight(ctx); err != nil {
		err = fmt.Errorf("preflight: %w", err)
		p.finish(o.now(), err)
		o.logf("[import] %s: not started: %v", p.RunID, err)
		notify(p)
		return p, err
	}

	o.logf("[import] %s: %s %d-%d (%d years)", p.RunID, p.Kind, p.StartYear, p.EndYear, p.TotalYears)

	for year := req.StartYear; year <= req.EndYear; year++ {
		if err := ctx.Err(); err != nil {
			p.finish(o.now(), err)
			notify(p)
			return p, err
		}
		p.CurrentYear = year

		res, err := o.Syncer.SyncByYear(ctx, req.Kind, year, 1)
		p.YearsDone++
		p.ProcessedCount += res.Added
		p.UpdatedCount += res.Updated
		p.UnavailableCount += res.Unavailable
		p.ItemErrorCount += res.Errors

		delay := o.PacingDelay
		if err != nil {
			p.ErrorCount++
			p.LastError = err.Error()
			delay = o.BackoffDelay
			o.logf("[import] %s: year %d failed: %v", p.RunID, year, err)
		} else {
			o.logf("[import] %s: year %d: %s", p.RunID, year, res)
		}
		notify(p)

		if year < req.EndYear {
			if err := o.wait(ctx, delay); err != nil {
				p.finish(o.now(), err)
				notify(p)
				return p, err
			}
		}
	}

	p.finish(o.now(), nil)
	o.logf("[import] %s: done: %s", p.RunID, p)
	notify(p)
	return p, nil
}

func (o *Orchestrator) preflight(ctx context.Context) error {
	if o.Pinger == nil {
		return nil
	}
	attempts := o.PreflightAttempts
	if attempts == 0 {
		attempts = 3
	}
	return retry.Do(
		func() error { return o.Pinger.Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(o.PreflightDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			o.logf("[import] preflight attempt %d/%d failed: %v", n+1, attempts, err)
		}),
	)
}

func (o *Orchestrator) wait(ctx context.Context, d time.Duration) error {
	if o.sleep == nil {
		return sleepCtx(ctx, d)
	}
	return o.sleep(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
