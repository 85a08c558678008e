package cache

import "fmt"

// Key identifies one calendar month's event query. It is a pure function of
// (year, month): two requests for the same month always map to the same
// cache entry.
type Key struct {
	Year  int
	Month int
}

// String generates the canonical cache key string.
//
// Example:
//
//	events_2024_2
func (k Key) String() string {
	return fmt.Sprintf("events_%d_%d", k.Year, k.Month)
}
