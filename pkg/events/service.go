// Package events provides the month query service: request validation,
// cache lookup, upstream fetch, local month filtering and enrichment.
package events

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/eventline/events-proxy/pkg/cache"
	"github.com/eventline/events-proxy/pkg/enrich"
	"github.com/eventline/events-proxy/pkg/fetcher"
	"github.com/eventline/events-proxy/pkg/logging"
)

// DefaultTTL is how long an assembled month payload stays fresh.
const DefaultTTL = 5 * time.Minute

// Validation bounds for requests.
const (
	MinMonth = 1
	MaxMonth = 12
	MinYear  = 2000
	MaxYear  = 2100
)

// Event is an opaque upstream event object, passed through except for date
// filtering and the attached ticket_info.
type Event = enrich.Event

// Getter performs a retrying GET against an upstream URL.
type Getter interface {
	Get(ctx context.Context, url string, opts fetcher.RequestOptions) ([]byte, error)
}

// Enricher attaches ticket_info to every event in a batch.
type Enricher interface {
	Enrich(ctx context.Context, events []Event, header http.Header) []Event
}

// Config holds the service configuration.
type Config struct {
	// BaseURL is the upstream API root, e.g. "https://www.eventbriteapi.com/v3".
	BaseURL string

	// OrganizationID selects whose events are listed.
	OrganizationID string

	// Token is the upstream bearer token. Its absence is a
	// ConfigurationError on first use, never a retryable condition.
	Token string

	// CacheTTL is the payload freshness window. Zero means DefaultTTL.
	CacheTTL time.Duration

	// Retry is the primary query retry budget. Zero attempts means
	// fetcher.DefaultRetryConfig.
	Retry fetcher.RetryConfig
}

// Result is an assembled month of enriched events plus cache provenance.
type Result struct {
	// Events is the enriched event list for the requested month.
	Events []Event

	// FromCache is true when the payload was served without touching
	// upstream.
	FromCache bool

	// CacheAge is how long ago a cached payload was stored. Zero for fresh
	// results.
	CacheAge time.Duration
}

// Service answers month queries. Per-request flow: validate, cache check,
// and on miss fetch upstream, filter to the exact month, enrich, store.
type Service struct {
	getter   Getter
	enricher Enricher
	store    *cache.Store[[]Event]
	config   Config
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a Service around the given collaborators. The cache
// store's lifetime is owned by the caller (stop it on shutdown).
func NewService(getter Getter, enricher Enricher, store *cache.Store[[]Event], cfg Config) *Service {
	return NewServiceWithClock(getter, enricher, store, cfg, time.Now)
}

// NewServiceWithClock is NewService with an injectable clock for tests.
func NewServiceWithClock(getter Getter, enricher Enricher, store *cache.Store[[]Event], cfg Config, now func() time.Time) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultTTL
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = fetcher.DefaultRetryConfig()
	}

	return &Service{
		getter:   getter,
		enricher: enricher,
		store:    store,
		config:   cfg,
		logger:   logging.NewLogger("events"),
		now:      now,
	}
}

// GetEvents returns the enriched events of one calendar month. It fails with
// *ValidationError on bad input, *ConfigurationError when the upstream token
// is absent, and propagates *fetcher.FetchError when the primary query
// fails. Enrichment failures never fail the request. Cancellation of ctx does
// not abort the upstream flow; a started fetch runs to completion and its
// result is cached.
func (s *Service) GetEvents(ctx context.Context, monthRaw, yearRaw string) (*Result, error) {
	month, err := parseBounded("month", monthRaw, MinMonth, MaxMonth)
	if err != nil {
		return nil, err
	}
	year, err := parseBounded("year", yearRaw, MinYear, MaxYear)
	if err != nil {
		return nil, err
	}

	if s.config.Token == "" {
		return nil, &ConfigurationError{Message: "upstream token is not set"}
	}

	key := cache.Key{Year: year, Month: month}
	if entry, ok := s.store.Get(key); ok {
		s.logger.Debug().
			Str("cache_key", key.String()).
			Bool("cache_hit", true).
			Msg("Serving cached month")
		return &Result{
			Events:    entry.Payload,
			FromCache: true,
			CacheAge:  entry.Age(s.now()),
		}, nil
	}

	rng := MonthRange(year, month)
	s.logger.Debug().
		Str("cache_key", key.String()).
		Time("range_start", rng.Start).
		Time("range_end", rng.End).
		Msg("Cache miss, querying upstream")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.config.Token)

	// The upstream flow is detached from the caller's cancellation: a
	// disconnected caller must not abort an in-flight fetch, since its result
	// is cached for the next caller. The per-attempt HTTP timeout stays the
	// only bound.
	upstreamCtx := context.WithoutCancel(ctx)

	body, err := s.getter.Get(upstreamCtx, s.eventsURL(), fetcher.RequestOptions{
		Header: header,
		Retry:  s.config.Retry,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Events []Event `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode upstream events: %w", err)
	}

	filtered := filterByMonth(payload.Events, year, month)
	s.logger.Info().
		Str("cache_key", key.String()).
		Int("upstream_count", len(payload.Events)).
		Int("month_count", len(filtered)).
		Msg("Filtered upstream events to requested month")

	enriched := s.enricher.Enrich(upstreamCtx, filtered, header)

	s.store.Put(key, enriched, s.config.CacheTTL)

	return &Result{Events: enriched, FromCache: false}, nil
}

// ClearCache empties the month cache and returns the number of entries
// removed.
func (s *Service) ClearCache() int {
	return s.store.Clear()
}

// CacheStatus describes the cache for read-only introspection.
type CacheStatus struct {
	Size       int      `json:"size"`
	Keys       []string `json:"keys"`
	TTLSeconds int      `json:"ttlSeconds"`
}

// Status returns current cache size, live keys and the configured TTL.
func (s *Service) Status() CacheStatus {
	return CacheStatus{
		Size:       s.store.Len(),
		Keys:       s.store.Keys(),
		TTLSeconds: int(s.config.CacheTTL.Seconds()),
	}
}

// eventsURL builds the primary upstream query: current and future events of
// the organization, ascending by start time, venues expanded.
func (s *Service) eventsURL() string {
	return fmt.Sprintf(
		"%s/organizations/%s/events/?order_by=start_asc&time_filter=current_future&expand=venue",
		s.config.BaseURL, s.config.OrganizationID,
	)
}

// filterByMonth keeps events whose UTC start falls in exactly the requested
// year and month. Events without a parseable start timestamp are dropped.
func filterByMonth(events []Event, year, month int) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		start, ok := eventStartUTC(ev)
		if !ok {
			continue
		}
		if start.Year() == year && int(start.Month()) == month {
			out = append(out, ev)
		}
	}
	return out
}

// eventStartUTC extracts the "start.utc" ISO-8601 timestamp of an event.
func eventStartUTC(ev Event) (time.Time, bool) {
	start, ok := ev["start"].(map[string]any)
	if !ok {
		return time.Time{}, false
	}
	utc, ok := start["utc"].(string)
	if !ok {
		return time.Time{}, false
	}

	ts, err := time.Parse(time.RFC3339, utc)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// parseBounded parses an integer request parameter within [min, max].
func parseBounded(field, raw string, min, max int) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be an integer between %d and %d", min, max),
		}
	}
	if value < min || value > max {
		return 0, &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %d and %d", min, max),
		}
	}
	return value, nil
}
