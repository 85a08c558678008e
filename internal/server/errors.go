package server

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/eventline/events-proxy/pkg/events"
	"github.com/eventline/events-proxy/pkg/fetcher"
)

// errorBody is the structured error response. Callers never see a raw stack
// trace, only a kind plus a human message.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeError maps a classified service error onto an HTTP response.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, detail, retryAfter := classifyForCaller(err)

	if retryAfter != "" {
		w.Header().Set("Retry-After", retryAfter)
	}
	writeJSON(w, status, errorBody{Error: detail})

	s.logger.Warn().
		Err(err).
		Int("status", status).
		Str("kind", detail.Kind).
		Msg("Request failed")
}

// classifyForCaller turns the error taxonomy into a caller-visible status
// and structured detail.
func classifyForCaller(err error) (int, errorDetail, string) {
	var validationErr *events.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, errorDetail{
			Kind:    "validation",
			Message: validationErr.Message,
			Field:   validationErr.Field,
		}, ""
	}

	var configErr *events.ConfigurationError
	if errors.As(err, &configErr) {
		return http.StatusInternalServerError, errorDetail{
			Kind:    "configuration",
			Message: configErr.Message,
		}, ""
	}

	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		switch {
		case fetchErr.StatusCode == http.StatusUnauthorized,
			fetchErr.StatusCode == http.StatusForbidden:
			return http.StatusBadGateway, errorDetail{
				Kind:    "auth",
				Message: "upstream rejected the configured credentials",
			}, ""

		case fetchErr.StatusCode == http.StatusTooManyRequests:
			return http.StatusTooManyRequests, errorDetail{
				Kind:    "rate_limit",
				Message: "upstream rate limit hit, try again later",
			}, fetchErr.RetryAfter

		case errors.Is(err, fetcher.ErrRetryExhausted) && fetchErr.StatusCode == 0:
			return http.StatusGatewayTimeout, errorDetail{
				Kind:    "timeout",
				Message: "upstream did not respond within the retry budget",
			}, ""

		case errors.Is(err, fetcher.ErrRetryExhausted):
			return http.StatusServiceUnavailable, errorDetail{
				Kind:    "upstream_unavailable",
				Message: "upstream unavailable, retry attempts exhausted",
			}, ""

		default:
			return http.StatusBadGateway, errorDetail{
				Kind:    "upstream",
				Message: "unexpected upstream failure",
			}, ""
		}
	}

	return http.StatusInternalServerError, errorDetail{
		Kind:    "internal",
		Message: "internal error",
	}, ""
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
