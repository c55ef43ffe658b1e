package model

import "time"

// CacheEntry is a persisted key-value record with lazy TTL expiry. The
// value is an opaque payload, optionally gzip-compressed by the cache
// layer; Type tags the entry for introspection and bulk clearing.
type CacheEntry struct {
	Key        string    `json:"key"`
	Value      []byte    `json:"value"`
	Type       string    `json:"type"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}
