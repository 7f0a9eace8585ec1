package catalog

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

func TestCSVRoundTrip(t *testing.T) {
	src, _ := newTestRepo(t)
	ctx := context.Background()

	m := movie("tt0111161", "The Shawshank Redemption")
	m.Synopsis = "Two men, one prison,\nmany years."
	m.IsFeatured = true
	_, err := src.UpsertItem(ctx, m)
	require.NoError(t, err)

	hidden := &models.CatalogItem{
		Kind: models.KindSeries, Title: "Hidden Show", ExternalID: "tt0903747",
		Year: "2008-2013", SeasonCount: 5, Genres: []string{"Crime"}, IsVisible: false,
	}
	_, err = src.UpsertItem(ctx, hidden)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := src.ExportCSV(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst, _ := newTestRepo(t)
	st, err := dst.ImportCSV(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, CSVImportStats{Created: 2}, st)

	got, err := dst.GetByExternalID(ctx, models.KindMovie, "tt0111161")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.Synopsis, got.Synopsis)
	assert.Equal(t, []string{"Action", "Drama"}, got.Genres)
	assert.Equal(t, []string{"A", "B"}, got.Cast)
	assert.InDelta(t, 8.1, got.Rating, 1e-9)
	assert.True(t, got.IsFeatured)

	show, err := dst.GetByExternalID(ctx, models.KindSeries, "tt0903747")
	require.NoError(t, err)
	require.NotNil(t, show)
	assert.False(t, show.IsVisible)
	assert.Equal(t, 5, show.SeasonCount)

	// re-import updates in place and re-applies flags
	_, err = dst.SetFlags(ctx, show.ID, nil, boolPtr(true))
	require.NoError(t, err)
	st, err = dst.ImportCSV(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, CSVImportStats{Updated: 2}, st)
	show, err = dst.GetByExternalID(ctx, models.KindSeries, "tt0903747")
	require.NoError(t, err)
	assert.False(t, show.IsVisible)
}

func TestImportCSVSkipsAndRejects(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	in := "kind,external_id,title\nanime,tt1,X\nmovie,,Y\nmovie,tt2,Z\n"
	st, err := r.ImportCSV(ctx, strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, CSVImportStats{Created: 1, Skipped: 2}, st)

	_, err = r.ImportCSV(ctx, strings.NewReader("kind,external_id,rating\nmovie,tt3,high\n"))
	assert.ErrorContains(t, err, "line 2: rating")
}
