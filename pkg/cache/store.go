// Package cache provides the in-process TTL cache for enriched event
// payloads. Entries live for a fixed TTL, reads never return stale data, and
// a periodic sweep reclaims expired entries during idle periods. The cache is
// process-lifetime only; losing it on restart is an accepted property.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eventline/events-proxy/pkg/logging"
)

// DefaultSweepInterval is how often the background sweep runs.
const DefaultSweepInterval = 10 * time.Minute

// Store is a concurrency-safe key-value store with per-entry expiry. Reads
// use lazy expiry: a stale entry behaves as absent regardless of whether the
// sweep has removed it yet. A Store is an explicitly owned instance with a
// documented lifetime (construction to Stop), not a package-level singleton,
// so tests get isolation via fresh instances.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]

	now    func() time.Time
	logger zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a Store and starts its background sweep. A sweepInterval of 0
// or less disables the sweep (reads still never return stale data).
func New[V any](sweepInterval time.Duration) *Store[V] {
	return NewWithClock[V](sweepInterval, time.Now)
}

// NewWithClock creates a Store with an injectable clock. Tests advance the
// clock instead of sleeping.
func NewWithClock[V any](sweepInterval time.Duration, now func() time.Time) *Store[V] {
	s := &Store[V]{
		entries: make(map[string]Entry[V]),
		now:     now,
		logger:  logging.NewLogger("cache"),
		stop:    make(chan struct{}),
	}

	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}

	return s
}

// Get returns the entry for key only while it is fresh. A stale or absent
// entry returns ok=false.
func (s *Store[V]) Get(key Key) (Entry[V], bool) {
	s.mu.RLock()
	entry, exists := s.entries[key.String()]
	s.mu.RUnlock()

	if !exists || entry.IsExpired(s.now()) {
		CacheMisses.Inc()
		return Entry[V]{}, false
	}

	CacheHits.Inc()
	return entry, true
}

// Put stores payload under key with the given TTL, overwriting any existing
// entry.
func (s *Store[V]) Put(key Key, payload V, ttl time.Duration) {
	now := s.now()

	s.mu.Lock()
	s.entries[key.String()] = Entry[V]{
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	size := len(s.entries)
	s.mu.Unlock()

	CacheEntries.Set(float64(size))

	s.logger.Debug().
		Str("cache_key", key.String()).
		Dur("ttl", ttl).
		Msg("Cached payload")
}

// Clear removes all entries and returns the count removed.
func (s *Store[V]) Clear() int {
	s.mu.Lock()
	cleared := len(s.entries)
	s.entries = make(map[string]Entry[V])
	s.mu.Unlock()

	CacheEntries.Set(0)
	CacheClears.Inc()

	s.logger.Info().Int("cleared", cleared).Msg("Cache cleared")
	return cleared
}

// SweepExpired removes all entries with expiry at or before now and returns
// the count removed. The sweep only bounds memory; read correctness never
// depends on it.
func (s *Store[V]) SweepExpired() int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for key, entry := range s.entries {
		if entry.IsExpired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	size := len(s.entries)
	s.mu.Unlock()

	if removed > 0 {
		CacheSweepRemoved.Add(float64(removed))
		s.logger.Debug().Int("removed", removed).Msg("Swept expired entries")
	}
	CacheEntries.Set(float64(size))

	return removed
}

// Len returns the number of stored entries, expired or not.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns the stored keys in sorted order.
func (s *Store[V]) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Stop terminates the background sweep. Safe to call more than once.
func (s *Store[V]) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// sweepLoop runs SweepExpired on a fixed interval until Stop.
func (s *Store[V]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepExpired()
		case <-s.stop:
			return
		}
	}
}
