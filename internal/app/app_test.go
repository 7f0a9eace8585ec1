package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octacordshop/PrimeStream/internal/cache"
	"github.com/octacordshop/PrimeStream/pkg/utils"
)

func testConfig(t *testing.T, backend string) *utils.Config {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := utils.LoadConfig("")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.Database.Path = filepath.Join(dir, "catalog.db")
	cfg.Cache.Backend = backend
	cfg.Cache.BoltPath = filepath.Join(dir, "cache.bolt")
	cfg.Auth.AdminUsername = "admin"
	cfg.Auth.AdminEmail = "admin@example.com"
	cfg.Auth.AdminPassword = "correct-horse"
	return cfg
}

func TestNewWiresBackends(t *testing.T) {
	for _, backend := range []string{"sqlite", "bolt"} {
		t.Run(backend, func(t *testing.T) {
			a, err := New(testConfig(t, backend))
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Close() })

			switch backend {
			case "bolt":
				assert.IsType(t, &cache.BoltStore{}, a.Cache)
			default:
				assert.IsType(t, &cache.SQLiteStore{}, a.Cache)
			}
			assert.Same(t, a.Cache, a.Provider.Cache)

			ctx := context.Background()
			_, err = a.Cache.Put(ctx, "tmdb:/movie/popular?page=1", []byte(`{}`))
			require.NoError(t, err)
			e, err := a.Cache.Get(ctx, "tmdb:/movie/popular?page=1")
			require.NoError(t, err)
			assert.NotNil(t, e)
		})
	}
}

func TestBootstrapOperator(t *testing.T) {
	a, err := New(testConfig(t, "sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	ctx := context.Background()

	require.NoError(t, a.BootstrapOperator(ctx))
	require.NoError(t, a.BootstrapOperator(ctx))
	n, err := a.Operators.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	h := a.AdminHandler(ctx)
	assert.Same(t, a.Imports, h.Imports)
	assert.Equal(t, a.Config.Cache.MaxAge, h.CacheMaxAge)
}

func TestCloseIsSafeTwice(t *testing.T) {
	a, err := New(testConfig(t, "bolt"))
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

// chdir changes the working directory for the rest of the test and restores
// it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
