package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

var bucketName = []byte("cache_entries")

// BoltStore is the single-file alternative to the SQLite table, useful when
// the cache should live on different storage than the catalog.
type BoltStore struct {
	db  *bolt.DB
	Now func() time.Time
}

type boltRecord struct {
	Payload     []byte    `json:"payload"`
	LastUpdated time.Time `json:"last_updated"`
}

func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}
	return &BoltStore{db: db, Now: time.Now}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *BoltStore) Get(_ context.Context, signature string) (*models.CacheEntry, error) {
	var entry *models.CacheEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(signature))
		if raw == nil {
			return nil
		}
		var rec boltRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode %q: %w", signature, err)
		}
		entry = &models.CacheEntry{
			Signature:   signature,
			Payload:     rec.Payload,
			LastUpdated: rec.LastUpdated,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return entry, nil
}

func (s *BoltStore) Put(_ context.Context, signature string, payload []byte) (*models.CacheEntry, error) {
	rec := boltRecord{Payload: payload, LastUpdated: s.now()}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(signature), raw)
	})
	if err != nil {
		return nil, fmt.Errorf("put cache entry: %w", err)
	}
	return &models.CacheEntry{
		Signature:   signature,
		Payload:     payload,
		LastUpdated: rec.LastUpdated,
	}, nil
}

func (s *BoltStore) Prune(_ context.Context, olderThan time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)

		// collect first: deleting under a live cursor skips keys
		var stale [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil || rec.LastUpdated.Before(olderThan) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return removed, nil
}
