// Package fetcher provides the retrying upstream HTTP fetcher with bounded
// exponential backoff and closed error classification.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/eventline/events-proxy/pkg/logging"
)

// Prometheus metrics for upstream requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_upstream_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proxy_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// maxErrorBodyBytes bounds how much of an error response body is kept for
// the error message.
const maxErrorBodyBytes = 512

// DefaultTimeout is the per-attempt request timeout.
const DefaultTimeout = 15 * time.Second

// RequestOptions configures a single logical fetch. Each call site supplies
// its own headers and retry budget.
type RequestOptions struct {
	// Header is added to every attempt (e.g. Authorization).
	Header http.Header

	// Retry is the backoff budget for this call site.
	Retry RetryConfig
}

// Fetcher performs GET requests against upstream endpoints with per-attempt
// timeout, error classification and exponential backoff. A Fetcher holds no
// per-request mutable state and is safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a Fetcher with the given per-attempt timeout. A zero timeout
// falls back to DefaultTimeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewLogger("fetcher"),
	}
}

// Get performs a single logical GET with retries and returns the response
// body. On exhaustion or a fatal response it returns a *FetchError, wrapped
// in ErrRetryExhausted when the retry budget was consumed.
func (f *Fetcher) Get(ctx context.Context, rawURL string, opts RequestOptions) ([]byte, error) {
	endpoint := endpointLabel(rawURL)

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	var body []byte
	err := retryWithBackoff(ctx, opts.Retry, func() error {
		var attemptErr error
		body, attemptErr = f.attempt(ctx, rawURL, endpoint, opts.Header)
		return attemptErr
	}, classifyFetchErr)

	if err != nil {
		return nil, err
	}
	return body, nil
}

// attempt executes one HTTP GET and converts any failure into a *FetchError.
func (f *Fetcher) attempt(ctx context.Context, rawURL, endpoint string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{
			Class:   ClassFatal,
			Message: "create request",
			Err:     err,
		}
	}

	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		class := Classify(0, err)
		errorsTotal.WithLabelValues(string(class)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		f.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Upstream request failed")
		return nil, &FetchError{
			Class:   class,
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		class := Classify(resp.StatusCode, nil)
		errorsTotal.WithLabelValues(string(class)).Inc()
		requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		f.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Upstream error response")

		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    responseMessage(resp.Status, snippet),
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		class := Classify(0, err)
		errorsTotal.WithLabelValues(string(class)).Inc()
		return nil, &FetchError{
			Class:   class,
			Message: "read response body",
			Err:     err,
		}
	}

	requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	return data, nil
}

// classifyFetchErr extracts the class from a *FetchError for the retry loop.
func classifyFetchErr(err error) ErrorClass {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ClassUnknown
}

// responseMessage builds an error message from the HTTP status line and an
// optional body snippet.
func responseMessage(status string, snippet []byte) string {
	if len(snippet) == 0 {
		return status
	}
	return fmt.Sprintf("%s: %s", status, snippet)
}

// endpointLabel reduces a URL to its path for metric labels, keeping
// cardinality bounded.
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	return u.Path
}
