package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octacordshop/PrimeStream/pkg/database"
	"github.com/octacordshop/PrimeStream/pkg/models"
)

func newTestRepo(t *testing.T) (*Repo, *time.Time) {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRepo(db)
	r.Now = func() time.Time { return now }
	return r, &now
}

func movie(externalID, title string) *models.CatalogItem {
	return &models.CatalogItem{
		Kind:       models.KindMovie,
		Title:      title,
		ExternalID: externalID,
		Year:       "2010",
		Rating:     8.1,
		Genres:     []string{"Action", "Drama"},
		Cast:       []string{"A", "B"},
		Director:   "Dir",
		IsVisible:  true,
	}
}

func TestCreateAndGet(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	it := movie("tt1", "Inception")
	require.NoError(t, r.Create(ctx, it))
	assert.NotZero(t, it.ID)

	got, err := r.GetByExternalID(ctx, models.KindMovie, "tt1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, it.ID, got.ID)
	assert.Equal(t, []string{"Action", "Drama"}, got.Genres)
	assert.Equal(t, []string{"A", "B"}, got.Cast)
	assert.True(t, got.IsVisible)
	assert.False(t, got.IsFeatured)

	// same external id under another kind is a different title
	none, err := r.GetByExternalID(ctx, models.KindSeries, "tt1")
	require.NoError(t, err)
	assert.Nil(t, none)

	assert.Error(t, r.Create(ctx, movie("tt1", "Dup")))
}

func TestUpsertItemKeepsFlags(t *testing.T) {
	r, now := newTestRepo(t)
	ctx := context.Background()

	first := movie("tt1000000", "Old Title")
	first.IsFeatured = true
	created, err := r.UpsertItem(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = r.SetFlags(ctx, first.ID, nil, boolPtr(false))
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	again := movie("tt1000000", "New Title")
	again.IsVisible = true
	created, err = r.UpsertItem(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.True(t, again.IsFeatured)
	assert.False(t, again.IsVisible)

	got, err := r.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.True(t, got.IsFeatured)
	assert.False(t, got.IsVisible)
	assert.True(t, got.LastUpdated.After(got.CreatedAt))

	n, err := r.Count(ctx, ListQuery{Kind: models.KindMovie, IncludeHidden: true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConcurrentUpsertsCreateOneRow(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		creates int
		errs    []error
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := r.UpsertItem(ctx, movie("tt42", "Race"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if created {
				creates++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 1, creates)
	n, err := r.Count(ctx, ListQuery{IncludeHidden: true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpsertRejectsMissingExternalID(t *testing.T) {
	r, _ := newTestRepo(t)
	_, err := r.UpsertItem(context.Background(), movie("", "Nameless"))
	assert.Error(t, err)

	it := movie("tt1", "Bad Kind")
	it.Kind = "anime"
	_, err = r.UpsertItem(context.Background(), it)
	assert.ErrorIs(t, err, models.ErrInvalidKind)
}

func TestEpisodes(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	series := &models.CatalogItem{Kind: models.KindSeries, Title: "Show", ExternalID: "tt9", SeasonCount: 2, IsVisible: true}
	_, err := r.UpsertItem(ctx, series)
	require.NoError(t, err)

	for _, e := range []models.Episode{
		{SeriesID: series.ID, Season: 2, EpisodeNumber: 1, Title: "S2E1"},
		{SeriesID: series.ID, Season: 1, EpisodeNumber: 2, Title: "S1E2"},
		{SeriesID: series.ID, Season: 1, EpisodeNumber: 1, Title: "S1E1"},
	} {
		e := e
		created, err := r.UpsertEpisode(ctx, &e)
		require.NoError(t, err)
		assert.True(t, created)
	}

	renamed := models.Episode{SeriesID: series.ID, Season: 1, EpisodeNumber: 1, Title: "Pilot"}
	created, err := r.UpsertEpisode(ctx, &renamed)
	require.NoError(t, err)
	assert.False(t, created)

	all, err := r.ListEpisodes(ctx, series.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Pilot", all[0].Title)
	assert.Equal(t, "S1E2", all[1].Title)
	assert.Equal(t, "S2E1", all[2].Title)

	s1, err := r.ListEpisodes(ctx, series.ID, 1)
	require.NoError(t, err)
	assert.Len(t, s1, 2)

	got, err := r.GetEpisode(ctx, series.ID, 2, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	got.Title = "Renamed"
	require.NoError(t, r.UpdateEpisode(ctx, got))

	_, err = r.UpsertEpisode(ctx, &models.Episode{SeriesID: series.ID, Season: 0, EpisodeNumber: 1})
	assert.Error(t, err)

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Series: 1, Episodes: 3}, stats)
}

func TestListFilters(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	a := movie("tt1", "Alpha")
	a.Genres = []string{"Comedy"}
	b := movie("tt2", "Beta")
	b.IsFeatured = true
	c := movie("tt3", "Gamma")
	c.IsVisible = false
	s := &models.CatalogItem{Kind: models.KindSeries, Title: "Show", ExternalID: "tt4", Year: "2019-", IsVisible: true}
	for _, it := range []*models.CatalogItem{a, b, c, s} {
		_, err := r.UpsertItem(ctx, it)
		require.NoError(t, err)
	}

	items, err := r.List(ctx, ListQuery{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Beta", items[0].Title)

	items, err = r.List(ctx, ListQuery{Genres: []string{"comedy"}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Alpha", items[0].Title)

	items, err = r.List(ctx, ListQuery{Kind: models.KindSeries, Year: "2019"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	n, err := r.Count(ctx, ListQuery{FeaturedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.Count(ctx, ListQuery{Q: "gam", IncludeHidden: true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSetFlagsMissing(t *testing.T) {
	r, _ := newTestRepo(t)
	got, err := r.SetFlags(context.Background(), 999, boolPtr(true), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertItemRollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO catalog_items").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	r := NewRepo(db)
	_, err = r.UpsertItem(context.Background(), movie("tt1", "X"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertItemBeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	r := NewRepo(db)
	_, err = r.UpsertItem(context.Background(), movie("tt1", "X"))
	assert.ErrorContains(t, err, "begin tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByExternalIDQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM catalog_items").WillReturnError(errors.New("boom"))

	r := NewRepo(db)
	got, err := r.GetByExternalID(context.Background(), models.KindMovie, "tt1")
	assert.Nil(t, got)
	assert.ErrorContains(t, err, "boom")
}

func boolPtr(b bool) *bool { return &b }
