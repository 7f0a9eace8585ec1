package tmdb

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

type memCache struct {
	mu      sync.Mutex
	entries map[string]*models.CacheEntry
	now     func() time.Time
	getErr  error
}

func newMemCache(now func() time.Time) *memCache {
	return &memCache{entries: map[string]*models.CacheEntry{}, now: now}
}

func (m *memCache) Get(_ context.Context, sig string) (*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.entries[sig], nil
}

func (m *memCache) Put(_ context.Context, sig string, payload []byte) (*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &models.CacheEntry{Signature: sig, Payload: payload, LastUpdated: m.now()}
	m.entries[sig] = e
	return e, nil
}

type fixture struct {
	srv    *httptest.Server
	client *Client
	cache  *memCache
	clock  time.Time
	hits   map[string]*int32
}

func newFixture(t *testing.T, routes map[string]http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{
		clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		hits:  map[string]*int32{},
	}
	mux := http.NewServeMux()
	for path, h := range routes {
		n := new(int32)
		f.hits[path] = n
		h := h
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(n, 1)
			h(w, r)
		})
	}
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	now := func() time.Time { return f.clock }
	f.cache = newMemCache(now)
	f.client = NewClient(Config{
		BaseURL:      f.srv.URL,
		APIKey:       "secret",
		ImageBaseURL: "https://img.test/t/p",
		PopularTTL:   time.Hour,
		DiscoverTTL:  24 * time.Hour,
	}, f.cache)
	f.client.Now = now
	f.client.Logger = log.New(io.Discard, "", 0)
	return f
}

func (f *fixture) count(path string) int {
	return int(atomic.LoadInt32(f.hits[path]))
}

func writeJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

const moviePage = `{"page":1,"total_pages":3,"total_results":2,"results":[
	{"id":42,"title":"Answer","release_date":"2020-04-01","vote_average":8.1,"poster_path":"/a.jpg"},
	{"id":43,"title":"Question","release_date":"2020-05-01","vote_average":6.0}
]}`

func TestDiscoverByYearReadsThroughCache(t *testing.T) {
	var gotQuery string
	f := newFixture(t, map[string]http.HandlerFunc{
		"/discover/movie": func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			writeJSON(moviePage)(w, r)
		},
	})
	ctx := context.Background()

	page, err := f.client.DiscoverByYear(ctx, models.KindMovie, 2020, 1)
	require.NoError(t, err)
	assert.False(t, page.FromCache)
	require.Len(t, page.Results, 2)
	assert.Equal(t, 42, page.Results[0].ProviderID)
	assert.Equal(t, "2020", page.Results[0].Year)
	assert.Contains(t, gotQuery, "primary_release_year=2020")
	assert.Contains(t, gotQuery, "sort_by=popularity.desc")
	assert.Contains(t, gotQuery, "api_key=secret")

	f.clock = f.clock.Add(24*time.Hour - time.Second)
	page, err = f.client.DiscoverByYear(ctx, models.KindMovie, 2020, 1)
	require.NoError(t, err)
	assert.True(t, page.FromCache)
	assert.Len(t, page.Results, 2)
	assert.Equal(t, 1, f.count("/discover/movie"))

	f.clock = f.clock.Add(time.Second)
	page, err = f.client.DiscoverByYear(ctx, models.KindMovie, 2020, 1)
	require.NoError(t, err)
	assert.False(t, page.FromCache)
	assert.Equal(t, 2, f.count("/discover/movie"))

	for sig := range f.cache.entries {
		assert.NotContains(t, sig, "secret")
		assert.True(t, strings.HasPrefix(sig, "tmdb:discover/movie?"), sig)
	}
}

func TestDiscoverSeriesUsesAirDateParam(t *testing.T) {
	var gotQuery string
	f := newFixture(t, map[string]http.HandlerFunc{
		"/discover/tv": func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			writeJSON(`{"page":2,"results":[{"id":7,"name":"Show","first_air_date":"2019-01-01"}]}`)(w, r)
		},
	})

	page, err := f.client.DiscoverByYear(context.Background(), models.KindSeries, 2019, 2)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "first_air_date_year=2019")
	assert.Contains(t, gotQuery, "page=2")
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Show", page.Results[0].Title)
}

func TestPopularUsesShortTTL(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"/movie/popular": writeJSON(moviePage),
	})
	ctx := context.Background()

	_, err := f.client.Popular(ctx, models.KindMovie, 1)
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Hour)
	page, err := f.client.Popular(ctx, models.KindMovie, 1)
	require.NoError(t, err)
	assert.False(t, page.FromCache)
	assert.Equal(t, 2, f.count("/movie/popular"))
}

func TestNon2xxIsUnavailable(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"/movie/popular": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		},
	})

	_, err := f.client.Popular(context.Background(), models.KindMovie, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))

	var ue *UnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusTooManyRequests, ue.StatusCode)
	assert.Empty(t, f.cache.entries)
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	f.srv.Close()

	err := f.client.Ping(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMalformedListIsRejectedAndNotCached(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"/discover/movie": writeJSON(`{"page":1,"results":[{"title":"no id"}]}`),
		"/movie/popular":  writeJSON(`{"status_message":"odd"}`),
	})
	ctx := context.Background()

	_, err := f.client.DiscoverByYear(ctx, models.KindMovie, 2020, 1)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	_, err = f.client.Popular(ctx, models.KindMovie, 1)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Empty(t, f.cache.entries)
}

func TestCacheErrorPropagates(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"/movie/popular": writeJSON(moviePage),
	})
	f.cache.getErr = errors.New("disk gone")

	_, err := f.client.Popular(context.Background(), models.KindMovie, 1)
	assert.EqualError(t, err, "disk gone")
	assert.Equal(t, 0, f.count("/movie/popular"))
}

func TestInvalidKindRejected(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.client.Popular(context.Background(), models.Kind("anime"), 1)
	assert.ErrorIs(t, err, models.ErrInvalidKind)
}

func TestMovieDetail(t *testing.T) {
	var gotQuery string
	f := newFixture(t, map[string]http.HandlerFunc{
		"/movie/42": func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			writeJSON(`{
				"id":42,"title":"Answer","imdb_id":"tt1000000","release_date":"2010-07-16",
				"overview":"plot","poster_path":"/p.jpg","vote_average":8.4,"runtime":148,
				"genres":[{"id":1,"name":"Action"},{"id":2,"name":"Science Fiction"}],
				"credits":{
					"cast":[
						{"name":"F","order":5},{"name":"A","order":0},{"name":"C","order":2},
						{"name":"B","order":1},{"name":"E","order":4},{"name":"D","order":3}
					],
					"crew":[{"name":"Writer","job":"Screenplay"},{"name":"Dir","job":"Director"}]
				}
			}`)(w, r)
		},
	})

	d, err := f.client.TitleDetail(context.Background(), models.KindMovie, 42)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "append_to_response=credits%2Cexternal_ids")
	assert.Equal(t, "tt1000000", d.ExternalID)
	assert.Equal(t, "2010", d.Year)
	assert.Equal(t, "Dir", d.Director)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, d.Cast)
	assert.Equal(t, []string{"Action", "Science Fiction"}, d.Genres)
	assert.Equal(t, 148, d.Runtime)
	assert.Equal(t, "https://img.test/t/p/w500/p.jpg", d.PosterURL)
	assert.Equal(t, 1, f.count("/movie/42"))
}

func TestSeriesDetail(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"/tv/7": writeJSON(`{
			"id":7,"name":"Show","first_air_date":"2008-01-20","last_air_date":"2013-09-29",
			"status":"Ended","in_production":false,"number_of_seasons":5,"episode_run_time":[47],
			"created_by":[{"name":"Creator"}],
			"external_ids":{"imdb_id":"tt0903747"}
		}`),
		"/tv/8": writeJSON(`{"id":8,"name":"No Mapping","first_air_date":"2019-01-01","in_production":true,
			"external_ids":{"imdb_id":null}}`),
	})
	ctx := context.Background()

	d, err := f.client.TitleDetail(ctx, models.KindSeries, 7)
	require.NoError(t, err)
	assert.Equal(t, "tt0903747", d.ExternalID)
	assert.Equal(t, "2008-2013", d.Year)
	assert.Equal(t, 5, d.SeasonCount)
	assert.Equal(t, 47, d.Runtime)
	assert.Equal(t, "Creator", d.Director)

	d, err = f.client.TitleDetail(ctx, models.KindSeries, 8)
	require.NoError(t, err)
	assert.Empty(t, d.ExternalID)
	assert.Equal(t, "2019-", d.Year)
}

func TestDetailWithoutTitleIsMalformed(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"/movie/1": writeJSON(`{"id":1}`),
	})
	_, err := f.client.TitleDetail(context.Background(), models.KindMovie, 1)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestSeasonDetail(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"/tv/7/season/1": writeJSON(`{"season_number":1,"episodes":[
			{"id":100,"episode_number":1,"name":"Pilot","air_date":"2008-01-20","still_path":"/s.jpg","runtime":58},
			{"id":101,"episode_number":2,"name":""}
		]}`),
		"/tv/7/season/2": writeJSON(`{"season_number":2,"episodes":[{"id":200,"name":"no number"}]}`),
	})
	ctx := context.Background()

	s, err := f.client.SeasonDetail(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.SeasonNumber)
	require.Len(t, s.Episodes, 2)
	assert.Equal(t, "Pilot", s.Episodes[0].Title)
	assert.Equal(t, 58, s.Episodes[0].Runtime)
	assert.Equal(t, "https://img.test/t/p/w300/s.jpg", s.Episodes[0].StillURL)
	assert.Equal(t, "Episode 2", s.Episodes[1].Title)

	_, err = f.client.SeasonDetail(ctx, 7, 2)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestPing(t *testing.T) {
	f := newFixture(t, map[string]http.HandlerFunc{
		"/configuration": writeJSON(`{"images":{}}`),
	})
	require.NoError(t, f.client.Ping(context.Background()))
	assert.Equal(t, 1, f.count("/configuration"))
}

func TestSeriesYears(t *testing.T) {
	cases := []struct {
		first, last, status string
		running             bool
		want                string
	}{
		{"2008-01-20", "2013-09-29", "Ended", false, "2008-2013"},
		{"2019-03-01", "2024-01-01", "Returning Series", false, "2019-"},
		{"2019-03-01", "", "", true, "2019-"},
		{"2019-03-01", "2019-11-01", "Ended", false, "2019"},
		{"", "2019-11-01", "Ended", false, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, seriesYears(c.first, c.last, c.status, c.running), c)
	}
}
