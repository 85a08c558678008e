// Package testutil provides testing utilities for the events proxy.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock upstream endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockUpstream is a configurable mock of the third-party event API.
type MockUpstream struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	counts   map[string]int
	total    int

	// LastAuthorization captures the Authorization header of the most
	// recent request.
	LastAuthorization string
}

// NewMockUpstream creates a new mock upstream server.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		handlers: make(map[string]http.HandlerFunc),
		counts:   make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.total++
		mock.counts[r.URL.Path]++
		mock.LastAuthorization = r.Header.Get("Authorization")
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL, usable as the upstream base URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a path.
func (m *MockUpstream) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockUpstream) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetEventsResponse configures the organization events endpoint.
func (m *MockUpstream) SetEventsResponse(orgID string, resp MockResponse) {
	m.SetResponse(EventsPath(orgID), resp)
}

// SetTicketClassesResponse configures the ticket-classes endpoint for an
// event.
func (m *MockUpstream) SetTicketClassesResponse(eventID string, resp MockResponse) {
	m.SetResponse(TicketClassesPath(eventID), resp)
}

// RequestCount returns the total number of requests received.
func (m *MockUpstream) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

// PathCount returns the number of requests received on one path.
func (m *MockUpstream) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[path]
}

// Reset clears request tracking.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = 0
	m.counts = make(map[string]int)
	m.LastAuthorization = ""
}

// EventsPath returns the organization events endpoint path.
func EventsPath(orgID string) string {
	return fmt.Sprintf("/organizations/%s/events/", orgID)
}

// TicketClassesPath returns the ticket-classes endpoint path for an event.
func TicketClassesPath(eventID string) string {
	return fmt.Sprintf("/events/%s/ticket_classes/", eventID)
}

// JSONOK creates a 200 response carrying a JSON body.
func JSONOK(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// EventsBody builds an events payload from raw event JSON objects.
func EventsBody(events ...string) string {
	out := `{"pagination":{"has_more_items":false},"events":[`
	for i, ev := range events {
		if i > 0 {
			out += ","
		}
		out += ev
	}
	return out + `]}`
}

// EventJSON builds one upstream event object.
func EventJSON(id, startUTC string) string {
	return fmt.Sprintf(
		`{"id":%q,"name":{"text":"Event %s"},"start":{"utc":%q,"timezone":"UTC"},"status":"live"}`,
		id, id, startUTC,
	)
}

// TicketClassesBody builds a ticket-classes payload from raw class JSON
// objects.
func TicketClassesBody(classes ...string) string {
	out := `{"ticket_classes":[`
	for i, tc := range classes {
		if i > 0 {
			out += ","
		}
		out += tc
	}
	return out + `]}`
}

// PaidTicketClass builds one paid, visible, on-sale ticket class.
func PaidTicketClass(display string, value int64, currency string, total, sold int) string {
	return fmt.Sprintf(
		`{"hidden":false,"free":false,"on_sale_status":"AVAILABLE","cost":{"display":%q,"currency":%q,"value":%d},"quantity_total":%d,"quantity_sold":%d}`,
		display, currency, value, total, sold,
	)
}

// FailNTimes returns a handler that responds with failStatus for the first n
// requests and then delegates to ok.
func FailNTimes(n int, failStatus int, ok MockResponse) http.HandlerFunc {
	var mu sync.Mutex
	failures := 0

	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		shouldFail := failures < n
		if shouldFail {
			failures++
		}
		mu.Unlock()

		if shouldFail {
			w.WriteHeader(failStatus)
			w.Write([]byte(`{"error":"injected failure"}`))
			return
		}

		for key, value := range ok.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(ok.StatusCode)
		w.Write([]byte(ok.Body))
	}
}
