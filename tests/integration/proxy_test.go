package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventline/events-proxy/internal/server"
	"github.com/eventline/events-proxy/internal/testutil"
	"github.com/eventline/events-proxy/pkg/cache"
	"github.com/eventline/events-proxy/pkg/enrich"
	"github.com/eventline/events-proxy/pkg/events"
	"github.com/eventline/events-proxy/pkg/fetcher"
)

const orgID = "org-integration"

// buildStack wires the full proxy the way main does, pointed at a mock
// upstream: fetcher, enrichment aggregator, cache store, service, server.
func buildStack(t *testing.T) (*testutil.MockUpstream, http.Handler) {
	t.Helper()

	mock := testutil.NewMockUpstream()
	t.Cleanup(mock.Close)

	f := fetcher.New(5 * time.Second)

	agg := enrich.NewAggregator(f, enrich.Config{
		BaseURL:         mock.URL(),
		MaxConcurrency:  4,
		Retry:           fetcher.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond},
		DefaultCurrency: "USD",
	})

	store := cache.New[[]events.Event](0)
	t.Cleanup(store.Stop)

	service := events.NewService(f, agg, store, events.Config{
		BaseURL:        mock.URL(),
		OrganizationID: orgID,
		Token:          "integration-token",
		CacheTTL:       time.Minute,
		Retry:          fetcher.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond},
	})

	srv := server.New(server.Config{Port: "0"}, service)
	return mock, srv.Handler()
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

type apiResponse struct {
	Data            []map[string]any `json:"data"`
	FromCache       bool             `json:"fromCache"`
	CacheAgeSeconds *int             `json:"cacheAgeSeconds"`
}

func decodeAPI(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

// TestFullRequestFlow tests the complete month query: upstream fetch, month
// filter, per-event enrichment, cache store, then a cache hit.
func TestFullRequestFlow(t *testing.T) {
	mock, handler := buildStack(t)

	mock.SetEventsResponse(orgID, testutil.JSONOK(testutil.EventsBody(
		testutil.EventJSON("jan", "2024-01-15T10:00:00Z"),
		testutil.EventJSON("feb1", "2024-02-01T00:00:00Z"),
		testutil.EventJSON("feb2", "2024-02-29T12:00:00Z"),
	)))
	mock.SetTicketClassesResponse("feb1", testutil.JSONOK(testutil.TicketClassesBody(
		testutil.PaidTicketClass("$162.17 MXN", 16217, "MXN", 100, 20),
	)))
	mock.SetTicketClassesResponse("feb2", testutil.JSONOK(testutil.TicketClassesBody()))

	w := get(t, handler, "/api/events?month=2&year=2024")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	resp := decodeAPI(t, w)
	if resp.FromCache {
		t.Error("First request should not come from cache")
	}
	if len(resp.Data) != 2 {
		t.Fatalf("Events = %d, want 2 (January event filtered out)", len(resp.Data))
	}
	if resp.Data[0]["id"] != "feb1" || resp.Data[1]["id"] != "feb2" {
		t.Errorf("Event order = %v, %v, want feb1, feb2", resp.Data[0]["id"], resp.Data[1]["id"])
	}

	info, ok := resp.Data[0]["ticket_info"].(map[string]any)
	if !ok {
		t.Fatal("feb1 should carry ticket_info")
	}
	if price := info["base_price"].(float64); price != 162.17 {
		t.Errorf("base_price = %v, want 162.17", price)
	}
	if info["currency"] != "MXN" {
		t.Errorf("currency = %v, want MXN", info["currency"])
	}

	// feb2 has no ticket classes: free with zero capacity, not degraded.
	info2 := resp.Data[1]["ticket_info"].(map[string]any)
	if isFree := info2["is_free"].(bool); !isFree {
		t.Error("feb2 should be free")
	}
	if info2["unavailable_reason"] != nil {
		t.Errorf("feb2 should not be degraded, got reason %v", info2["unavailable_reason"])
	}

	// Second request is served from cache without touching upstream.
	upstreamBefore := mock.RequestCount()

	w2 := get(t, handler, "/api/events?month=2&year=2024")
	if w2.Code != http.StatusOK {
		t.Fatalf("Cached request status = %d, want %d", w2.Code, http.StatusOK)
	}

	resp2 := decodeAPI(t, w2)
	if !resp2.FromCache {
		t.Error("Second request should come from cache")
	}
	if resp2.CacheAgeSeconds == nil {
		t.Error("Cached response should carry cacheAgeSeconds")
	}
	if mock.RequestCount() != upstreamBefore {
		t.Errorf("Upstream requests = %d, want %d (cache hit)", mock.RequestCount(), upstreamBefore)
	}
}

// TestEnrichmentFailureIsolation tests that one failing ticket lookup
// degrades only its own event while the request still succeeds.
func TestEnrichmentFailureIsolation(t *testing.T) {
	mock, handler := buildStack(t)

	mock.SetEventsResponse(orgID, testutil.JSONOK(testutil.EventsBody(
		testutil.EventJSON("e1", "2024-02-05T10:00:00Z"),
		testutil.EventJSON("e2", "2024-02-10T10:00:00Z"),
		testutil.EventJSON("e3", "2024-02-15T10:00:00Z"),
	)))
	ok := testutil.JSONOK(testutil.TicketClassesBody(
		testutil.PaidTicketClass("$20.00 USD", 2000, "USD", 50, 10),
	))
	mock.SetTicketClassesResponse("e1", ok)
	mock.SetTicketClassesResponse("e2", testutil.MockResponse{StatusCode: http.StatusServiceUnavailable})
	mock.SetTicketClassesResponse("e3", ok)

	w := get(t, handler, "/api/events?month=2&year=2024")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (enrichment failures must not fail the request)", w.Code, http.StatusOK)
	}

	resp := decodeAPI(t, w)
	if len(resp.Data) != 3 {
		t.Fatalf("Events = %d, want 3", len(resp.Data))
	}

	for _, idx := range []int{0, 2} {
		info := resp.Data[idx]["ticket_info"].(map[string]any)
		if info["base_price"] == nil {
			t.Errorf("Event %d should be fully enriched", idx)
		}
	}

	degraded := resp.Data[1]["ticket_info"].(map[string]any)
	if degraded["base_price"] != nil {
		t.Error("Degraded event should have null base_price")
	}
	if degraded["unavailable_reason"] != "ticket information unavailable" {
		t.Errorf("unavailable_reason = %v, want the degraded sentinel", degraded["unavailable_reason"])
	}
}

// TestTransientUpstreamFailureRecovers tests that the primary query retries
// through transient 5xx responses.
func TestTransientUpstreamFailureRecovers(t *testing.T) {
	mock, handler := buildStack(t)

	mock.SetHandler(testutil.EventsPath(orgID), testutil.FailNTimes(2, http.StatusServiceUnavailable,
		testutil.JSONOK(testutil.EventsBody(
			testutil.EventJSON("e1", "2024-02-05T10:00:00Z"),
		)),
	))
	mock.SetTicketClassesResponse("e1", testutil.JSONOK(testutil.TicketClassesBody()))

	w := get(t, handler, "/api/events?month=2&year=2024")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d after retries, body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if got := mock.PathCount(testutil.EventsPath(orgID)); got != 3 {
		t.Errorf("Upstream attempts = %d, want 3 (2 failures + 1 success)", got)
	}
}

// TestPersistentUpstreamFailureSurfaces tests the caller-visible error after
// the retry budget is exhausted.
func TestPersistentUpstreamFailureSurfaces(t *testing.T) {
	mock, handler := buildStack(t)
	mock.SetEventsResponse(orgID, testutil.MockResponse{StatusCode: http.StatusServiceUnavailable})

	w := get(t, handler, "/api/events?month=2&year=2024")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var body struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if body.Error.Kind != "upstream_unavailable" {
		t.Errorf("Error kind = %q, want upstream_unavailable", body.Error.Kind)
	}
	if got := mock.PathCount(testutil.EventsPath(orgID)); got != 3 {
		t.Errorf("Upstream attempts = %d, want 3 (full retry budget)", got)
	}
}

// TestCacheClearForcesRefetch tests the clear endpoint and the subsequent
// upstream round trip.
func TestCacheClearForcesRefetch(t *testing.T) {
	mock, handler := buildStack(t)

	mock.SetEventsResponse(orgID, testutil.JSONOK(testutil.EventsBody(
		testutil.EventJSON("e1", "2024-02-05T10:00:00Z"),
	)))
	mock.SetTicketClassesResponse("e1", testutil.JSONOK(testutil.TicketClassesBody()))

	if w := get(t, handler, "/api/events?month=2&year=2024"); w.Code != http.StatusOK {
		t.Fatalf("Seed request status = %d, want %d", w.Code, http.StatusOK)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cache/clear", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Clear status = %d, want %d", w.Code, http.StatusOK)
	}

	var cleared map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &cleared); err != nil {
		t.Fatalf("Failed to decode clear response: %v", err)
	}
	if cleared["clearedCount"] != 1 {
		t.Errorf("clearedCount = %d, want 1", cleared["clearedCount"])
	}

	before := mock.PathCount(testutil.EventsPath(orgID))
	resp := decodeAPI(t, get(t, handler, "/api/events?month=2&year=2024"))
	if resp.FromCache {
		t.Error("Post-clear request should not come from cache")
	}
	if got := mock.PathCount(testutil.EventsPath(orgID)); got != before+1 {
		t.Errorf("Upstream requests = %d, want %d (refetch after clear)", got, before+1)
	}
}

// TestValidationRejectedBeforeUpstream tests that bad parameters never reach
// the upstream API.
func TestValidationRejectedBeforeUpstream(t *testing.T) {
	mock, handler := buildStack(t)

	w := get(t, handler, "/api/events?month=13&year=2024")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("Upstream requests = %d, want 0", mock.RequestCount())
	}
}
