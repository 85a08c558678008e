package cache

import "time"

// Entry is a cached payload with its freshness window. Entries are owned
// exclusively by the Store: overwritten on refresh, deleted on sweep or
// manual clear.
type Entry[V any] struct {
	// Payload is the cached value.
	Payload V

	// CreatedAt is when the entry was stored.
	CreatedAt time.Time

	// ExpiresAt is when the entry becomes stale.
	ExpiresAt time.Time
}

// IsExpired returns true if the entry is stale at the given instant.
func (e Entry[V]) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Age returns how long ago the entry was stored.
func (e Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// TTL returns the time until expiration, 0 if already expired.
func (e Entry[V]) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
