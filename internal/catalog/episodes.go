package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

const episodeColumns = `id, series_id, season, episode_number, title, external_id, synopsis,
	still_url, runtime, air_date, created_at, last_updated`

func scanEpisode(s scanner) (*models.Episode, error) {
	var (
		e          models.Episode
		externalID sql.NullString
		synopsis   sql.NullString
		stillURL   sql.NullString
		runtime    sql.NullInt64
		airDate    sql.NullString
	)
	if err := s.Scan(
		&e.ID, &e.SeriesID, &e.Season, &e.EpisodeNumber, &e.Title, &externalID, &synopsis,
		&stillURL, &runtime, &airDate, &e.CreatedAt, &e.LastUpdated,
	); err != nil {
		return nil, err
	}
	e.ExternalID = externalID.String
	e.Synopsis = synopsis.String
	e.StillURL = stillURL.String
	e.AirDate = airDate.String
	if runtime.Valid {
		e.Runtime = int(runtime.Int64)
	}
	return &e, nil
}

func validateEpisode(e *models.Episode) error {
	if e.SeriesID <= 0 {
		return fmt.Errorf("episode: series id required")
	}
	if e.Season <= 0 || e.EpisodeNumber <= 0 {
		return fmt.Errorf("episode S%02dE%02d: season and episode must be positive", e.Season, e.EpisodeNumber)
	}
	return nil
}

// GetEpisode returns (nil, nil) when the episode is not stored.
func (r *Repo) GetEpisode(ctx context.Context, seriesID int64, season, episode int) (*models.Episode, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+episodeColumns+`
		FROM episodes
		WHERE series_id = ? AND season = ? AND episode_number = ?
	`, seriesID, season, episode)
	e, err := scanEpisode(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getEpisode: %w", err)
	}
	return e, nil
}

func (r *Repo) CreateEpisode(ctx context.Context, e *models.Episode) error {
	if err := validateEpisode(e); err != nil {
		return err
	}
	now := r.now()

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO episodes (series_id, season, episode_number, title, external_id, synopsis,
			still_url, runtime, air_date, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.SeriesID, e.Season, e.EpisodeNumber, e.Title, e.ExternalID, e.Synopsis,
		e.StillURL, e.Runtime, e.AirDate, now, now)
	if err != nil {
		return fmt.Errorf("insert episode %d S%02dE%02d: %w", e.SeriesID, e.Season, e.EpisodeNumber, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	e.CreatedAt = now
	e.LastUpdated = now
	return nil
}

func (r *Repo) UpdateEpisode(ctx context.Context, e *models.Episode) error {
	now := r.now()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE episodes SET
			title = ?, external_id = ?, synopsis = ?, still_url = ?, runtime = ?,
			air_date = ?, last_updated = ?
		WHERE id = ?
	`, e.Title, e.ExternalID, e.Synopsis, e.StillURL, e.Runtime, e.AirDate, now, e.ID)
	if err != nil {
		return fmt.Errorf("update episode %d: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update episode %d: %w", e.ID, sql.ErrNoRows)
	}
	e.LastUpdated = now
	return nil
}

// UpsertEpisode is UpsertItem for episodes, keyed by
// (series_id, season, episode_number).
func (r *Repo) UpsertEpisode(ctx context.Context, e *models.Episode) (created bool, err error) {
	if err := validateEpisode(e); err != nil {
		return false, err
	}
	now := r.now()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO episodes (series_id, season, episode_number, title, external_id, synopsis,
			still_url, runtime, air_date, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(series_id, season, episode_number) DO NOTHING
	`, e.SeriesID, e.Season, e.EpisodeNumber, e.Title, e.ExternalID, e.Synopsis,
		e.StillURL, e.Runtime, e.AirDate, now, now)
	if err != nil {
		return false, fmt.Errorf("insert episode %d S%02dE%02d: %w", e.SeriesID, e.Season, e.EpisodeNumber, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if inserted == 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE episodes SET
				title = ?, external_id = ?, synopsis = ?, still_url = ?, runtime = ?,
				air_date = ?, last_updated = ?
			WHERE series_id = ? AND season = ? AND episode_number = ?
		`, e.Title, e.ExternalID, e.Synopsis, e.StillURL, e.Runtime,
			e.AirDate, now, e.SeriesID, e.Season, e.EpisodeNumber); err != nil {
			return false, fmt.Errorf("update episode %d S%02dE%02d: %w", e.SeriesID, e.Season, e.EpisodeNumber, err)
		}
	}

	row := tx.QueryRowContext(ctx, `
		SELECT id, created_at
		FROM episodes
		WHERE series_id = ? AND season = ? AND episode_number = ?
	`, e.SeriesID, e.Season, e.EpisodeNumber)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return false, fmt.Errorf("reload episode: %w", err)
	}
	e.LastUpdated = now

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return inserted > 0, nil
}

// ListEpisodes returns a series' episodes ordered by season then number.
// season <= 0 lists every season.
func (r *Repo) ListEpisodes(ctx context.Context, seriesID int64, season int) ([]models.Episode, error) {
	sqlStr := `SELECT ` + episodeColumns + ` FROM episodes WHERE series_id = ?`
	args := []any{seriesID}
	if season > 0 {
		sqlStr += ` AND season = ?`
		args = append(args, season)
	}
	sqlStr += ` ORDER BY season ASC, episode_number ASC`

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list episodes query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Episode, 0)
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("list episodes scan: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
