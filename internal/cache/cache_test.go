package cache

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octacordshop/PrimeStream/pkg/database"
	"github.com/octacordshop/PrimeStream/pkg/models"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newSQLiteStore(t *testing.T, c *clock) *SQLiteStore {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "cache.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	s := NewSQLiteStore(db)
	s.Now = c.Now
	return s
}

func newBoltStore(t *testing.T, c *clock) *BoltStore {
	t.Helper()
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "cache.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.Now = c.Now
	return s
}

func TestStores(t *testing.T) {
	backends := map[string]func(*testing.T, *clock) Store{
		"sqlite": func(t *testing.T, c *clock) Store { return newSQLiteStore(t, c) },
		"bolt":   func(t *testing.T, c *clock) Store { return newBoltStore(t, c) },
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
			s := open(t, c)

			got, err := s.Get(ctx, "tmdb:discover/movie?page=1")
			require.NoError(t, err)
			assert.Nil(t, got, "missing signature should be absent, not an error")

			first, err := s.Put(ctx, "tmdb:discover/movie?page=1", []byte(`{"page":1}`))
			require.NoError(t, err)
			assert.True(t, first.LastUpdated.Equal(c.t))

			c.t = c.t.Add(time.Hour)
			_, err = s.Put(ctx, "tmdb:discover/movie?page=1", []byte(`{"page":1,"v":2}`))
			require.NoError(t, err)

			got, err = s.Get(ctx, "tmdb:discover/movie?page=1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, `{"page":1,"v":2}`, string(got.Payload))
			assert.True(t, got.LastUpdated.Equal(c.t), "put must overwrite the timestamp")

			_, err = s.Put(ctx, "tmdb:discover/tv?page=1", []byte(`{}`))
			require.NoError(t, err)

			n, err := s.Prune(ctx, c.t.Add(time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			got, err = s.Get(ctx, "tmdb:discover/tv?page=1")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestPruneKeepsRecentEntries(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	s := newSQLiteStore(t, c)

	_, err := s.Put(ctx, "old", []byte("a"))
	require.NoError(t, err)
	c.t = c.t.Add(48 * time.Hour)
	_, err = s.Put(ctx, "new", []byte("b"))
	require.NoError(t, err)

	n, err := s.Prune(ctx, c.t.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	kept, err := s.Get(ctx, "new")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestFreshBoundary(t *testing.T) {
	written := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e := &models.CacheEntry{Signature: "x", LastUpdated: written}

	for _, ttl := range []time.Duration{time.Hour, 24 * time.Hour} {
		assert.True(t, Fresh(e, ttl, written.Add(ttl-1)), "age d-1 must be fresh")
		assert.False(t, Fresh(e, ttl, written.Add(ttl)), "age d must be stale")
	}

	assert.False(t, Fresh(nil, time.Hour, written))
	assert.False(t, Fresh(e, 0, written))
}

func TestFreshAfterRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2025, 6, 1, 8, 30, 15, 123456789, time.UTC)}
	s := newSQLiteStore(t, c)

	_, err := s.Put(ctx, "sig", []byte("x"))
	require.NoError(t, err)
	got, err := s.Get(ctx, "sig")
	require.NoError(t, err)

	assert.True(t, Fresh(got, time.Hour, c.t.Add(time.Hour-time.Nanosecond)))
	assert.False(t, Fresh(got, time.Hour, c.t.Add(time.Hour)))
}

func TestSignatureSortsParams(t *testing.T) {
	a := Signature("TMDB", "discover/movie", url.Values{"year": {"2020"}, "page": {"1"}})
	b := Signature("tmdb", "discover/movie", url.Values{"page": {"1"}, "year": {"2020"}})
	assert.Equal(t, a, b)
	assert.Equal(t, "tmdb:discover/movie?page=1&year=2020", a)
	assert.Equal(t, "tmdb:configuration", Signature("tmdb", "configuration", nil))
}
