// Package catalogsync turns provider listings into catalog rows.
//
// Each discovered title goes through the same sequence: resolve detail,
// probe playback, upsert, and for series expand every season into episodes.
// Titles, seasons and episodes are handled strictly in order, one at a time.
// Failures of a single title are counted and logged; they never stop a page.
package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/octacordshop/PrimeStream/internal/playback"
	"github.com/octacordshop/PrimeStream/internal/tmdb"
	"github.com/octacordshop/PrimeStream/pkg/models"
)

// DefaultFeaturedThreshold marks popular imports rated above it as featured
// when they are first created.
const DefaultFeaturedThreshold = 7.5

var ErrInvalidPage = errors.New("page must be >= 1")

type MetadataSource interface {
	DiscoverByYear(ctx context.Context, kind models.Kind, year, page int) (*tmdb.ListPage, error)
	Popular(ctx context.Context, kind models.Kind, page int) (*tmdb.ListPage, error)
	TitleDetail(ctx context.Context, kind models.Kind, providerID int) (*tmdb.TitleDetail, error)
	SeasonDetail(ctx context.Context, providerID, season int) (*tmdb.SeasonDetail, error)
}

type Prober interface {
	Probe(ctx context.Context, t playback.Target) bool
}

// Gateway persists items and episodes. Upserts report whether a row was
// created.
type Gateway interface {
	UpsertItem(ctx context.Context, it *models.CatalogItem) (bool, error)
	UpsertEpisode(ctx context.Context, e *models.Episode) (bool, error)
}

type Engine struct {
	Source MetadataSource
	Prober Prober
	Store  Gateway
	Logger *log.Logger

	FeaturedThreshold float64
}

func NewEngine(src MetadataSource, prober Prober, store Gateway) *Engine {
	return &Engine{
		Source:            src,
		Prober:            prober,
		Store:             store,
		Logger:            log.Default(),
		FeaturedThreshold: DefaultFeaturedThreshold,
	}
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

// SyncPopular processes one page of the provider's popular listing. Newly
// created titles rated above FeaturedThreshold start out featured.
func (e *Engine) SyncPopular(ctx context.Context, kind models.Kind, page int) (Result, error) {
	res := Result{Kind: kind, Page: page}
	if err := checkArgs(kind, page); err != nil {
		return res, err
	}

	list, err := e.Source.Popular(ctx, kind, page)
	if err != nil {
		return res, fmt.Errorf("discover popular %s page %d: %w", kind, page, err)
	}
	err = e.processPage(ctx, kind, list, true, &res)
	e.logf("[sync] popular %s page=%d: %s", kind, page, res)
	return res, err
}

// SyncByYear processes one page of titles released (or first aired) in year.
func (e *Engine) SyncByYear(ctx context.Context, kind models.Kind, year, page int) (Result, error) {
	res := Result{Kind: kind, Page: page, Year: year}
	if err := checkArgs(kind, page); err != nil {
		return res, err
	}

	list, err := e.Source.DiscoverByYear(ctx, kind, year, page)
	if err != nil {
		return res, fmt.Errorf("discover %s year %d page %d: %w", kind, year, page, err)
	}
	err = e.processPage(ctx, kind, list, false, &res)
	e.logf("[sync] %s year=%d page=%d: %s", kind, year, page, res)
	return res, err
}

// Refresh walks popular pages 1..pages for movies, then series. A discovery
// failure stops the remaining pages of that kind only; counts gathered so far
// are returned alongside the joined errors.
func (e *Engine) Refresh(ctx context.Context, pages int) (RefreshResult, error) {
	out := RefreshResult{
		Pages:   pages,
		Movies:  Result{Kind: models.KindMovie},
		TVShows: Result{Kind: models.KindSeries},
	}
	if pages < 1 {
		return out, ErrInvalidPage
	}

	var errs []error
	for _, acc := range []*Result{&out.Movies, &out.TVShows} {
		for p := 1; p <= pages; p++ {
			if err := ctx.Err(); err != nil {
				return out, errors.Join(append(errs, err)...)
			}
			r, err := e.SyncPopular(ctx, acc.Kind, p)
			acc.add(r)
			acc.Page = p
			if err != nil {
				acc.Errors++
				errs = append(errs, err)
				e.logf("[sync] refresh %s stopped at page %d: %v", acc.Kind, p, err)
				break
			}
		}
	}

	e.logf("[sync] refresh pages=%d movies: %s", pages, out.Movies)
	e.logf("[sync] refresh pages=%d tv: %s", pages, out.TVShows)
	return out, errors.Join(errs...)
}

func checkArgs(kind models.Kind, page int) error {
	if !kind.Valid() {
		return models.ErrInvalidKind
	}
	if page < 1 {
		return ErrInvalidPage
	}
	return nil
}

// processPage runs every listed title through ProcessTitle. A cached page is
// processed exactly like a fresh one. Only cancellation stops it early.
func (e *Engine) processPage(ctx context.Context, kind models.Kind, list *tmdb.ListPage, featureOnCreate bool, res *Result) error {
	res.Total = len(list.Results)
	res.FromCache = list.FromCache

	for _, entry := range list.Results {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch e.ProcessTitle(ctx, kind, entry.ProviderID, featureOnCreate, &res.Episodes) {
		case OutcomeAdded:
			res.Added++
		case OutcomeUpdated:
			res.Updated++
		case OutcomeUnavailable:
			res.Unavailable++
		case OutcomeNoExternalID:
			res.Unavailable++
			res.NoExternalID++
		case OutcomeError:
			res.Errors++
		}
	}
	return nil
}

// ProcessTitle resolves, probes and upserts one provider title. Episode
// counters for series are accumulated into eps.
func (e *Engine) ProcessTitle(ctx context.Context, kind models.Kind, providerID int, featureOnCreate bool, eps *EpisodeCounts) Outcome {
	detail, err := e.Source.TitleDetail(ctx, kind, providerID)
	if err != nil {
		e.logf("[sync] %s %d: detail failed: %v", kind, providerID, err)
		return OutcomeError
	}
	if detail.ExternalID == "" {
		e.logf("[sync] %s %d %q: skipped, no external id", kind, providerID, detail.Title)
		return OutcomeNoExternalID
	}

	target := playback.Target{ExternalID: detail.ExternalID}
	if kind == models.KindSeries {
		target.Season, target.Episode = 1, 1
	}
	if !e.Prober.Probe(ctx, target) {
		return OutcomeUnavailable
	}

	item := itemFromDetail(detail)
	item.IsVisible = true
	item.IsFeatured = featureOnCreate && detail.Rating > e.FeaturedThreshold

	created, err := e.Store.UpsertItem(ctx, item)
	if err != nil {
		e.logf("[sync] %s %s: save failed: %v", kind, detail.ExternalID, err)
		return OutcomeError
	}

	if kind == models.KindSeries && detail.SeasonCount > 0 {
		e.expandSeries(ctx, item, providerID, detail.SeasonCount, eps)
	}

	if created {
		return OutcomeAdded
	}
	return OutcomeUpdated
}

func (e *Engine) expandSeries(ctx context.Context, series *models.CatalogItem, providerID, seasons int, eps *EpisodeCounts) {
	if eps == nil {
		eps = &EpisodeCounts{}
	}
	for s := 1; s <= seasons; s++ {
		if ctx.Err() != nil {
			return
		}
		season, err := e.Source.SeasonDetail(ctx, providerID, s)
		if err != nil {
			eps.Errors++
			e.logf("[sync] %s season %d: detail failed: %v", series.ExternalID, s, err)
			continue
		}

		for _, ep := range season.Episodes {
			if ctx.Err() != nil {
				return
			}
			if !e.Prober.Probe(ctx, playback.Target{ExternalID: series.ExternalID, Season: s, Episode: ep.EpisodeNumber}) {
				eps.Unavailable++
				continue
			}

			row := &models.Episode{
				SeriesID:      series.ID,
				Season:        s,
				EpisodeNumber: ep.EpisodeNumber,
				Title:         ep.Title,
				Synopsis:      ep.Overview,
				StillURL:      ep.StillURL,
				Runtime:       ep.Runtime,
				AirDate:       ep.AirDate,
			}
			if ep.ProviderID > 0 {
				row.ExternalID = strconv.Itoa(ep.ProviderID)
			}

			created, err := e.Store.UpsertEpisode(ctx, row)
			switch {
			case err != nil:
				eps.Errors++
				e.logf("[sync] %s S%02dE%02d: save failed: %v", series.ExternalID, s, ep.EpisodeNumber, err)
			case created:
				eps.Added++
			default:
				eps.Updated++
			}
		}
	}
}

func itemFromDetail(d *tmdb.TitleDetail) *models.CatalogItem {
	it := &models.CatalogItem{
		Kind:        d.Kind,
		Title:       d.Title,
		ExternalID:  d.ExternalID,
		Year:        d.Year,
		PosterURL:   d.PosterURL,
		Synopsis:    d.Overview,
		Rating:      d.Rating,
		Genres:      d.Genres,
		Director:    d.Director,
		Cast:        d.Cast,
		Runtime:     d.Runtime,
		SeasonCount: d.SeasonCount,
	}
	if d.ProviderID > 0 {
		it.SecondaryExternalID = strconv.Itoa(d.ProviderID)
	}
	return it
}
