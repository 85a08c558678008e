// Command events-proxy serves cached, enriched month queries against a
// third-party event-listing API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/eventline/events-proxy/internal/config"
	"github.com/eventline/events-proxy/internal/server"
	"github.com/eventline/events-proxy/pkg/cache"
	"github.com/eventline/events-proxy/pkg/enrich"
	"github.com/eventline/events-proxy/pkg/events"
	"github.com/eventline/events-proxy/pkg/fetcher"
	"github.com/eventline/events-proxy/pkg/logging"
)

func main() {
	cfg := config.Load()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	if cfg.Upstream.Token == "" {
		logger.Warn().Msg("UPSTREAM_TOKEN is not set, event queries will fail until configured")
	}

	httpFetcher := fetcher.New(cfg.Upstream.Timeout)

	aggregator := enrich.NewAggregator(httpFetcher, enrich.Config{
		BaseURL:         cfg.Upstream.BaseURL,
		MaxConcurrency:  5,
		Retry:           fetcher.EnrichmentRetryConfig(),
		DefaultCurrency: cfg.Upstream.DefaultCurrency,
	})

	store := cache.New[[]events.Event](cfg.Cache.SweepInterval)
	defer store.Stop()

	service := events.NewService(httpFetcher, aggregator, store, events.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		OrganizationID: cfg.Upstream.OrganizationID,
		Token:          cfg.Upstream.Token,
		CacheTTL:       cfg.Cache.TTL,
	})

	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, service)

	// Serve until SIGINT/SIGTERM, then drain in-flight requests.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}
}
