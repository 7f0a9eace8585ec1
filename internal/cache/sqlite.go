package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

// SQLiteStore keeps entries in the cache_entries table next to the catalog.
type SQLiteStore struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{DB: db, Now: time.Now}
}

func (s *SQLiteStore) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *SQLiteStore) Get(ctx context.Context, signature string) (*models.CacheEntry, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT signature, payload, last_updated
		FROM cache_entries
		WHERE signature = ?
	`, signature)

	var e models.CacheEntry
	if err := row.Scan(&e.Signature, &e.Payload, &e.LastUpdated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return &e, nil
}

func (s *SQLiteStore) Put(ctx context.Context, signature string, payload []byte) (*models.CacheEntry, error) {
	e := models.CacheEntry{
		Signature:   signature,
		Payload:     payload,
		LastUpdated: s.now(),
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO cache_entries (signature, payload, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT(signature) DO UPDATE SET
			payload = excluded.payload,
			last_updated = excluded.last_updated
	`, e.Signature, e.Payload, e.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("put cache entry: %w", err)
	}
	return &e, nil
}

func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM cache_entries
		WHERE last_updated < ?
	`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
