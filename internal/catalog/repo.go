// Package catalog is the persistence gateway for catalog items and episodes,
// plus the public read-only browse handlers over them.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

type Repo struct {
	DB  *sql.DB
	Now func() time.Time
}

type ListQuery struct {
	Q             string // keyword search in title/director
	Kind          models.Kind
	Genres        []string // any-match
	Year          string   // prefix match, so "2019" also finds "2019-"
	FeaturedOnly  bool
	IncludeHidden bool
	Limit         int
	Offset        int
}

// Stats is a snapshot of table sizes for the debug endpoint.
type Stats struct {
	Movies   int `json:"movies"`
	Series   int `json:"series"`
	Episodes int `json:"episodes"`
	Featured int `json:"featured"`
	Hidden   int `json:"hidden"`
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db, Now: time.Now}
}

func (r *Repo) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

const itemColumns = `id, kind, title, external_id, secondary_external_id, year, poster_url, synopsis,
	rating, genres, director, cast_members, runtime, season_count, is_featured, is_visible,
	created_at, last_updated`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*models.CatalogItem, error) {
	var (
		it          models.CatalogItem
		kind        string
		secondary   sql.NullString
		year        sql.NullString
		posterURL   sql.NullString
		synopsis    sql.NullString
		genresJSON  string
		director    sql.NullString
		castJSON    string
		runtime     sql.NullInt64
		seasonCount sql.NullInt64
	)
	if err := s.Scan(
		&it.ID, &kind, &it.Title, &it.ExternalID, &secondary, &year, &posterURL, &synopsis,
		&it.Rating, &genresJSON, &director, &castJSON, &runtime, &seasonCount,
		&it.IsFeatured, &it.IsVisible, &it.CreatedAt, &it.LastUpdated,
	); err != nil {
		return nil, err
	}

	it.Kind = models.Kind(kind)
	it.SecondaryExternalID = secondary.String
	it.Year = year.String
	it.PosterURL = posterURL.String
	it.Synopsis = synopsis.String
	it.Director = director.String
	if runtime.Valid {
		it.Runtime = int(runtime.Int64)
	}
	if seasonCount.Valid {
		it.SeasonCount = int(seasonCount.Int64)
	}
	_ = json.Unmarshal([]byte(genresJSON), &it.Genres)
	_ = json.Unmarshal([]byte(castJSON), &it.Cast)
	if it.Genres == nil {
		it.Genres = []string{}
	}
	return &it, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.CatalogItem, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM catalog_items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return it, nil
}

// GetByExternalID returns (nil, nil) when no row of kind carries externalID.
func (r *Repo) GetByExternalID(ctx context.Context, kind models.Kind, externalID string) (*models.CatalogItem, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM catalog_items
		WHERE kind = ? AND external_id = ?
	`, string(kind), externalID)
	it, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByExternalID: %w", err)
	}
	return it, nil
}

func encodeLists(it *models.CatalogItem) (string, string, error) {
	genres := it.Genres
	if genres == nil {
		genres = []string{}
	}
	cast := it.Cast
	if cast == nil {
		cast = []string{}
	}
	g, err := json.Marshal(genres)
	if err != nil {
		return "", "", fmt.Errorf("marshal genres for %s: %w", it.ExternalID, err)
	}
	c, err := json.Marshal(cast)
	if err != nil {
		return "", "", fmt.Errorf("marshal cast for %s: %w", it.ExternalID, err)
	}
	return string(g), string(c), nil
}

func validateItem(it *models.CatalogItem) error {
	if !it.Kind.Valid() {
		return models.ErrInvalidKind
	}
	if strings.TrimSpace(it.ExternalID) == "" {
		return fmt.Errorf("catalog item %q: external id required", it.Title)
	}
	return nil
}

// Create inserts a new row and fills in ID and timestamps. A duplicate
// (kind, external_id) fails with the driver's constraint error.
func (r *Repo) Create(ctx context.Context, it *models.CatalogItem) error {
	if err := validateItem(it); err != nil {
		return err
	}
	genres, cast, err := encodeLists(it)
	if err != nil {
		return err
	}
	now := r.now()

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO catalog_items (kind, title, external_id, secondary_external_id, year, poster_url,
			synopsis, rating, genres, director, cast_members, runtime, season_count, is_featured,
			is_visible, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(it.Kind), it.Title, it.ExternalID, it.SecondaryExternalID, it.Year, it.PosterURL,
		it.Synopsis, it.Rating, genres, it.Director, cast, it.Runtime, it.SeasonCount, it.IsFeatured,
		it.IsVisible, now, now)
	if err != nil {
		return fmt.Errorf("insert catalog item %s: %w", it.ExternalID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	it.ID = id
	it.CreatedAt = now
	it.LastUpdated = now
	return nil
}

// Update rewrites the provider-sourced fields of the row with it.ID.
// IsFeatured, IsVisible and CreatedAt are never touched.
func (r *Repo) Update(ctx context.Context, it *models.CatalogItem) error {
	genres, cast, err := encodeLists(it)
	if err != nil {
		return err
	}
	now := r.now()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE catalog_items SET
			title = ?, secondary_external_id = ?, year = ?, poster_url = ?, synopsis = ?,
			rating = ?, genres = ?, director = ?, cast_members = ?, runtime = ?,
			season_count = ?, last_updated = ?
		WHERE id = ?
	`, it.Title, it.SecondaryExternalID, it.Year, it.PosterURL, it.Synopsis,
		it.Rating, genres, it.Director, cast, it.Runtime,
		it.SeasonCount, now, it.ID)
	if err != nil {
		return fmt.Errorf("update catalog item %d: %w", it.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update catalog item %d: %w", it.ID, sql.ErrNoRows)
	}
	it.LastUpdated = now
	return nil
}

// UpsertItem inserts it or, when (kind, external_id) already exists, updates
// the provider-sourced fields. Both steps run in one transaction so
// concurrent syncs of the same title cannot produce two rows. On return
// it mirrors the stored row's id, flags and timestamps.
func (r *Repo) UpsertItem(ctx context.Context, it *models.CatalogItem) (created bool, err error) {
	if err := validateItem(it); err != nil {
		return false, err
	}
	genres, cast, err := encodeLists(it)
	if err != nil {
		return false, err
	}
	now := r.now()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_items (kind, title, external_id, secondary_external_id, year, poster_url,
			synopsis, rating, genres, director, cast_members, runtime, season_count, is_featured,
			is_visible, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, external_id) DO NOTHING
	`, string(it.Kind), it.Title, it.ExternalID, it.SecondaryExternalID, it.Year, it.PosterURL,
		it.Synopsis, it.Rating, genres, it.Director, cast, it.Runtime, it.SeasonCount, it.IsFeatured,
		it.IsVisible, now, now)
	if err != nil {
		return false, fmt.Errorf("insert catalog item %s: %w", it.ExternalID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if inserted == 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE catalog_items SET
				title = ?, secondary_external_id = ?, year = ?, poster_url = ?, synopsis = ?,
				rating = ?, genres = ?, director = ?, cast_members = ?, runtime = ?,
				season_count = ?, last_updated = ?
			WHERE kind = ? AND external_id = ?
		`, it.Title, it.SecondaryExternalID, it.Year, it.PosterURL, it.Synopsis,
			it.Rating, genres, it.Director, cast, it.Runtime,
			it.SeasonCount, now, string(it.Kind), it.ExternalID); err != nil {
			return false, fmt.Errorf("update catalog item %s: %w", it.ExternalID, err)
		}
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, is_featured, is_visible, created_at
		FROM catalog_items
		WHERE kind = ? AND external_id = ?
	`, string(it.Kind), it.ExternalID)
	if err := row.Scan(&it.ID, &it.IsFeatured, &it.IsVisible, &it.CreatedAt); err != nil {
		return false, fmt.Errorf("reload catalog item %s: %w", it.ExternalID, err)
	}
	it.LastUpdated = now

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return inserted > 0, nil
}

// SetFlags changes curation flags; nil leaves a flag as is. Returns
// (nil, nil) when id does not exist.
func (r *Repo) SetFlags(ctx context.Context, id int64, featured, visible *bool) (*models.CatalogItem, error) {
	var f, v sql.NullBool
	if featured != nil {
		f = sql.NullBool{Bool: *featured, Valid: true}
	}
	if visible != nil {
		v = sql.NullBool{Bool: *visible, Valid: true}
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE catalog_items SET
			is_featured = COALESCE(?, is_featured),
			is_visible = COALESCE(?, is_visible)
		WHERE id = ?
	`, f, v, id)
	if err != nil {
		return nil, fmt.Errorf("set flags %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	row := r.DB.QueryRowContext(ctx, sqlStr, args...)
	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.CatalogItem, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.CatalogItem, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	row := r.DB.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = 'movie' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'tv' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_featured THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_visible THEN 0 ELSE 1 END), 0),
			(SELECT COUNT(*) FROM episodes)
		FROM catalog_items
	`)
	if err := row.Scan(&s.Movies, &s.Series, &s.Featured, &s.Hidden, &s.Episodes); err != nil {
		return Stats{}, fmt.Errorf("stats scan: %w", err)
	}
	return s, nil
}

// buildListSQL builds either COUNT(*) or SELECT list.
// genres filter is "any-match" by doing LIKE searches inside stored JSON text.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `SELECT ` + itemColumns + ` FROM catalog_items`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM catalog_items`
	}

	var where []string
	var args []any

	if !q.IncludeHidden {
		where = append(where, "is_visible = 1")
	}
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if q.FeaturedOnly {
		where = append(where, "is_featured = 1")
	}
	if y := strings.TrimSpace(q.Year); y != "" {
		where = append(where, "year LIKE ?")
		args = append(args, y+"%")
	}
	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(director) LIKE ?)")
		kw = "%" + strings.ToLower(kw) + "%"
		args = append(args, kw, kw)
	}

	if len(q.Genres) > 0 {
		var genreOr []string
		for _, g := range q.Genres {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			genreOr = append(genreOr, "LOWER(genres) LIKE ?")
			args = append(args, `%`+strings.ToLower(g)+`%`)
		}
		if len(genreOr) > 0 {
			where = append(where, "("+strings.Join(genreOr, " OR ")+")")
		}
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY is_featured DESC, rating DESC, title ASC, id ASC"
		sqlStr += " LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}
