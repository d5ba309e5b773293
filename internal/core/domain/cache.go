package domain

import "time"

// CacheEntry is one serialized result held by a cache tier. Each tier owns
// its own copy of Value.
type CacheEntry struct {
	Key      string
	Value    []byte
	StoredAt time.Time
	TTL      time.Duration
}

// ExpiresAt reports when the entry stops being served.
func (e CacheEntry) ExpiresAt() time.Time {
	return e.StoredAt.Add(e.TTL)
}
