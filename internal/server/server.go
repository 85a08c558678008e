// Package server provides the inbound HTTP surface of the events proxy:
// routing, CORS, structured error responses and graceful shutdown.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eventline/events-proxy/pkg/events"
	"github.com/eventline/events-proxy/pkg/logging"
)

// EventService is the core the HTTP surface relays to.
type EventService interface {
	GetEvents(ctx context.Context, monthRaw, yearRaw string) (*events.Result, error)
	ClearCache() int
	Status() events.CacheStatus
}

// Config holds the HTTP server configuration.
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AllowedOrigins configures CORS for the web frontend. Empty allows any
	// origin (the API is read-only and unauthenticated on the inbound side).
	AllowedOrigins []string
}

// Server wires the event service into an http.Server.
type Server struct {
	httpServer *http.Server
	service    EventService
	logger     zerolog.Logger
}

// New creates a Server around the given service.
func New(cfg Config, service EventService) *Server {
	s := &Server{
		service: service,
		logger:  logging.NewLogger("server"),
	}

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.routes(cfg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// routes builds the chi router with middleware and all endpoints.
func (s *Server) routes(cfg Config) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.handleGetEvents)
		r.Post("/cache/clear", s.handleClearCache)
		r.Get("/cache/status", s.handleCacheStatus)
	})
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// requestLogger logs one line per request with timing.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting events proxy")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down events proxy")
	return s.httpServer.Shutdown(ctx)
}
