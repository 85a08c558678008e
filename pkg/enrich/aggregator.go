// Package enrich provides the per-event ticket enrichment aggregator: a
// bounded fan-out/fan-in over independent ticket-class lookups where the
// failure of one event never discards the others.
package enrich

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/eventline/events-proxy/pkg/fetcher"
	"github.com/eventline/events-proxy/pkg/logging"
)

var enrichmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "proxy_enrichments_total",
	Help: "Total per-event enrichment outcomes by status",
}, []string{"status"})

// unavailableReason marks an event whose ticket lookup failed.
const unavailableReason = "ticket information unavailable"

// Event is an opaque upstream event object. The aggregator reads only "id"
// and attaches "ticket_info"; all other fields pass through untouched.
type Event = map[string]any

// Getter performs a retrying GET against an upstream URL.
type Getter interface {
	Get(ctx context.Context, url string, opts fetcher.RequestOptions) ([]byte, error)
}

// Config holds aggregator configuration.
type Config struct {
	// BaseURL is the upstream API root, e.g. "https://www.eventbriteapi.com/v3".
	BaseURL string

	// MaxConcurrency bounds parallel ticket lookups.
	MaxConcurrency int

	// Retry is the per-event retry budget, lower than the primary query's.
	Retry fetcher.RetryConfig

	// DefaultCurrency fills the currency field when the upstream payload has
	// none or the lookup failed.
	DefaultCurrency string
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:         baseURL,
		MaxConcurrency:  5,
		Retry:           fetcher.EnrichmentRetryConfig(),
		DefaultCurrency: "USD",
	}
}

// Aggregator fans out ticket-class lookups per event and merges the derived
// TicketInfo into each one.
type Aggregator struct {
	getter Getter
	config Config
	logger zerolog.Logger
}

// NewAggregator creates an Aggregator using the given fetcher.
func NewAggregator(getter Getter, cfg Config) *Aggregator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 5
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = fetcher.EnrichmentRetryConfig()
	}

	return &Aggregator{
		getter: getter,
		config: cfg,
		logger: logging.NewLogger("enrich"),
	}
}

// Enrich attaches ticket_info to every event. It never fails as a whole:
// the output always has one element per input element, in input order, and a
// failed lookup degrades that event's TicketInfo instead of aborting the
// batch. Lookups for distinct events run concurrently; Enrich returns once
// all have settled.
func (a *Aggregator) Enrich(ctx context.Context, events []Event, header http.Header) []Event {
	results := make([]Event, len(events))
	sem := make(chan struct{}, a.config.MaxConcurrency)

	var wg sync.WaitGroup
	for i, event := range events {
		wg.Add(1)
		go func(idx int, ev Event) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = a.enrichOne(ctx, ev, header)
		}(i, event)
	}
	wg.Wait()

	return results
}

// enrichOne looks up ticket classes for a single event and attaches the
// derived or degraded TicketInfo.
func (a *Aggregator) enrichOne(ctx context.Context, event Event, header http.Header) Event {
	id, ok := event["id"].(string)
	if !ok || id == "" {
		a.logger.Warn().Msg("Event missing id, skipping ticket lookup")
		return withTicketInfo(event, degradedTicketInfo(a.config.DefaultCurrency, unavailableReason))
	}

	url := fmt.Sprintf("%s/events/%s/ticket_classes/", a.config.BaseURL, id)
	body, err := a.getter.Get(ctx, url, fetcher.RequestOptions{
		Header: header,
		Retry:  a.config.Retry,
	})
	if err != nil {
		enrichmentsTotal.WithLabelValues("degraded").Inc()
		a.logger.Warn().
			Err(err).
			Str("event_id", id).
			Msg("Ticket lookup failed, attaching degraded ticket info")
		return withTicketInfo(event, degradedTicketInfo(a.config.DefaultCurrency, unavailableReason))
	}

	var payload struct {
		TicketClasses []TicketClass `json:"ticket_classes"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		enrichmentsTotal.WithLabelValues("degraded").Inc()
		a.logger.Warn().
			Err(err).
			Str("event_id", id).
			Msg("Ticket payload decode failed, attaching degraded ticket info")
		return withTicketInfo(event, degradedTicketInfo(a.config.DefaultCurrency, unavailableReason))
	}

	enrichmentsTotal.WithLabelValues("success").Inc()
	return withTicketInfo(event, DeriveTicketInfo(payload.TicketClasses, a.config.DefaultCurrency))
}

// withTicketInfo attaches info to the event under "ticket_info".
func withTicketInfo(event Event, info TicketInfo) Event {
	event["ticket_info"] = info
	return event
}
