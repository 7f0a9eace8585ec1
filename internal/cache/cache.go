// Package cache memoizes upstream responses keyed by a canonical request
// signature.
//
// Stores never expire anything on their own: a cached entry only records when
// it was written. Callers compare that timestamp against the TTL they care
// about (see Fresh). Pruning old rows is an explicit operation.
package cache

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/octacordshop/PrimeStream/pkg/models"
)

// Store is implemented by the SQLite and bbolt backends.
type Store interface {
	// Get returns (nil, nil) when no entry exists for signature.
	Get(ctx context.Context, signature string) (*models.CacheEntry, error)
	// Put overwrites payload and timestamp when the signature already exists.
	Put(ctx context.Context, signature string, payload []byte) (*models.CacheEntry, error)
	// Prune deletes entries last written before olderThan.
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

// Signature builds the canonical key for an upstream call:
//
//	provider:endpoint?a=1&b=2
//
// Parameters are sorted by key so equivalent calls collide. Credentials must
// not be passed in params.
func Signature(provider, endpoint string, params url.Values) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(provider)))
	b.WriteByte(':')
	b.WriteString(strings.TrimSpace(endpoint))
	if enc := params.Encode(); enc != "" {
		b.WriteByte('?')
		b.WriteString(enc)
	}
	return b.String()
}

// Fresh reports whether e was written less than ttl before now.
func Fresh(e *models.CacheEntry, ttl time.Duration, now time.Time) bool {
	if e == nil || ttl <= 0 {
		return false
	}
	return now.Sub(e.LastUpdated) < ttl
}
