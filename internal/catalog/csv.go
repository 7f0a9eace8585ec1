package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

var csvHeader = []string{
	"kind", "external_id", "secondary_external_id", "title", "year", "rating", "genres",
	"director", "cast", "runtime", "season_count", "poster_url", "synopsis",
	"is_featured", "is_visible",
}

// list cells (genres, cast) are joined with this separator
const listSep = "|"

// ExportCSV writes every catalog row, hidden ones included, and returns the
// number of rows written.
func (r *Repo) ExportCSV(ctx context.Context, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return 0, err
	}

	n := 0
	q := ListQuery{IncludeHidden: true, Limit: 100}
	for {
		items, err := r.List(ctx, q)
		if err != nil {
			return n, err
		}
		for _, it := range items {
			if err := w.Write([]string{
				string(it.Kind),
				it.ExternalID,
				it.SecondaryExternalID,
				it.Title,
				it.Year,
				strconv.FormatFloat(it.Rating, 'f', -1, 64),
				strings.Join(it.Genres, listSep),
				it.Director,
				strings.Join(it.Cast, listSep),
				strconv.Itoa(it.Runtime),
				strconv.Itoa(it.SeasonCount),
				it.PosterURL,
				it.Synopsis,
				strconv.FormatBool(it.IsFeatured),
				strconv.FormatBool(it.IsVisible),
			}); err != nil {
				return n, err
			}
			n++
		}
		if len(items) < q.Limit {
			break
		}
		q.Offset += len(items)
	}

	w.Flush()
	return n, w.Error()
}

type CSVImportStats struct {
	Created int
	Updated int
	Skipped int
}

// ImportCSV upserts rows produced by ExportCSV. Rows without kind or
// external id are skipped; curation flags in the file win over stored ones.
func (r *Repo) ImportCSV(ctx context.Context, in io.Reader) (CSVImportStats, error) {
	var st CSVImportStats
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return st, fmt.Errorf("read header: %w", err)
	}

	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, err
		}
		line++
		if len(row) == 0 {
			continue
		}

		kind, err := models.ParseKind(valueAt(header, row, "kind"))
		ext := valueAt(header, row, "external_id")
		if err != nil || ext == "" {
			st.Skipped++
			continue
		}

		it := &models.CatalogItem{
			Kind:                kind,
			ExternalID:          ext,
			SecondaryExternalID: valueAt(header, row, "secondary_external_id"),
			Title:               valueAt(header, row, "title"),
			Year:                valueAt(header, row, "year"),
			Genres:              splitList(valueAt(header, row, "genres")),
			Director:            valueAt(header, row, "director"),
			Cast:                splitList(valueAt(header, row, "cast")),
			PosterURL:           valueAt(header, row, "poster_url"),
			Synopsis:            valueAt(header, row, "synopsis"),
			IsVisible:           true,
		}
		if it.Rating, err = parseFloat(valueAt(header, row, "rating")); err != nil {
			return st, fmt.Errorf("line %d: rating: %w", line, err)
		}
		if it.Runtime, err = parseInt(valueAt(header, row, "runtime")); err != nil {
			return st, fmt.Errorf("line %d: runtime: %w", line, err)
		}
		if it.SeasonCount, err = parseInt(valueAt(header, row, "season_count")); err != nil {
			return st, fmt.Errorf("line %d: season_count: %w", line, err)
		}
		featured := valueAt(header, row, "is_featured") == "true"
		visible := valueAt(header, row, "is_visible") != "false"
		it.IsFeatured, it.IsVisible = featured, visible

		created, err := r.UpsertItem(ctx, it)
		if err != nil {
			return st, fmt.Errorf("line %d: %w", line, err)
		}
		if created {
			st.Created++
			continue
		}
		if _, err := r.SetFlags(ctx, it.ID, &featured, &visible); err != nil {
			return st, fmt.Errorf("line %d: %w", line, err)
		}
		st.Updated++
	}
	return st, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, listSep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}
