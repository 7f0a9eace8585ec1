package models

import "time"

// CacheEntry memoizes one upstream response. It carries no TTL; callers
// decide freshness against their own window.
type CacheEntry struct {
	Signature   string    `json:"signature"`
	Payload     []byte    `json:"payload"`
	LastUpdated time.Time `json:"last_updated"`
}
