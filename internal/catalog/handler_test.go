package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Repo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo, _ := newTestRepo(t)
	r := gin.New()
	NewHandler(repo).RegisterRoutes(r.Group("/catalog"))
	return r, repo
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestBrowseList(t *testing.T) {
	r, repo := newTestRouter(t)
	ctx := context.Background()
	_, err := repo.UpsertItem(ctx, movie("tt1", "Alpha"))
	require.NoError(t, err)
	_, err = repo.UpsertItem(ctx, &models.CatalogItem{Kind: models.KindSeries, Title: "Show", ExternalID: "tt2", IsVisible: true})
	require.NoError(t, err)

	w := get(r, "/catalog?kind=series")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Total int                  `json:"total"`
		Items []models.CatalogItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Show", body.Items[0].Title)

	w = get(r, "/catalog?kind=anime")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBrowseDetailHidesInvisible(t *testing.T) {
	r, repo := newTestRouter(t)
	ctx := context.Background()
	hidden := movie("tt1", "Hidden")
	hidden.IsVisible = false
	_, err := repo.UpsertItem(ctx, hidden)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, get(r, "/catalog/"+strconv.FormatInt(hidden.ID, 10)).Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/catalog/12345").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/catalog/abc").Code)
}

func TestBrowseEpisodes(t *testing.T) {
	r, repo := newTestRouter(t)
	ctx := context.Background()

	series := &models.CatalogItem{Kind: models.KindSeries, Title: "Show", ExternalID: "tt9", IsVisible: true}
	_, err := repo.UpsertItem(ctx, series)
	require.NoError(t, err)
	for _, n := range []int{1, 2} {
		_, err := repo.UpsertEpisode(ctx, &models.Episode{SeriesID: series.ID, Season: 1, EpisodeNumber: n, Title: "E"})
		require.NoError(t, err)
	}
	film := movie("tt1", "Film")
	_, err = repo.UpsertItem(ctx, film)
	require.NoError(t, err)

	w := get(r, "/catalog/"+strconv.FormatInt(series.ID, 10)+"/episodes?season=1")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Episodes []models.Episode `json:"episodes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Episodes, 2)

	assert.Equal(t, http.StatusBadRequest, get(r, "/catalog/"+strconv.FormatInt(film.ID, 10)+"/episodes").Code)
}
