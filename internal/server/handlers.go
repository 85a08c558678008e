package server

import (
	"net/http"
)

// eventsResponse is the inbound API payload for a month query.
type eventsResponse struct {
	Data            any  `json:"data"`
	FromCache       bool `json:"fromCache"`
	CacheAgeSeconds *int `json:"cacheAgeSeconds,omitempty"`
}

// handleGetEvents serves GET /api/events?month=&year=.
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	year := r.URL.Query().Get("year")

	result, err := s.service.GetEvents(r.Context(), month, year)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := eventsResponse{
		Data:      result.Events,
		FromCache: result.FromCache,
	}
	if result.FromCache {
		age := int(result.CacheAge.Seconds())
		resp.CacheAgeSeconds = &age
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleClearCache serves POST /api/cache/clear.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	cleared := s.service.ClearCache()
	writeJSON(w, http.StatusOK, map[string]int{"clearedCount": cleared})
}

// handleCacheStatus serves GET /api/cache/status, read-only.
func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

// handleHealth serves GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
