// Package testutil provides testing utilities for the table-scroll client.
package testutil

import (
	"encoding/base64"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockTable is a table server that pages rows the way the real one does:
// HTML <tr> fragments with X-Has-More-Pages and X-Paging-State headers.
type MockTable struct {
	server   *httptest.Server
	mu       sync.RWMutex
	tables   map[string][][]string
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	failures []int
	delay    time.Duration

	// Tracking
	RequestCount      int
	Queries           []url.Values
	LastRequestHeader http.Header
}

// NewMockTable creates a new mock table server.
func NewMockTable() *MockTable {
	mock := &MockTable{
		tables:   make(map[string][][]string),
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Queries = append(mock.Queries, r.URL.Query())
		mock.LastRequestHeader = r.Header.Clone()

		var failStatus int
		if len(mock.failures) > 0 {
			failStatus = mock.failures[0]
			mock.failures = mock.failures[1:]
		}
		delay := mock.delay
		handler, exists := mock.handlers[r.URL.EscapedPath()]
		mock.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		if failStatus != 0 {
			http.Error(w, http.StatusText(failStatus), failStatus)
			return
		}

		if exists {
			handler(w, r)
			return
		}

		mock.tableHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockTable) URL() string {
	return m.server.URL
}

// ViewURL returns the page address of a table view.
func (m *MockTable) ViewURL(keyspace, table string) string {
	return m.server.URL + "/view/" + url.PathEscape(keyspace) + "/" + url.PathEscape(table)
}

// Close shuts down the mock server.
func (m *MockTable) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockTable) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Queries = nil
	m.LastRequestHeader = nil
}

// AddTable registers a table with the given rows.
func (m *MockTable) AddTable(keyspace, table string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[tablePath(keyspace, table)] = rows
}

// AddGeneratedTable registers a table of n rows with an id and a name column.
func (m *MockTable) AddGeneratedTable(keyspace, table string, n int) {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{strconv.Itoa(i + 1), fmt.Sprintf("row-%04d", i+1)}
	}
	m.AddTable(keyspace, table, rows)
}

// FailNext makes the next len(statuses) requests fail with the given
// statuses, in order.
func (m *MockTable) FailNext(statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, statuses...)
}

// SetDelay delays every response.
func (m *MockTable) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetHandler sets a custom handler for an escaped path.
func (m *MockTable) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for an escaped path.
func (m *MockTable) SetResponse(path string, resp MockResponse) {
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

// GetRequestCount returns the number of requests made to the server.
func (m *MockTable) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetQueries returns a copy of every request's query parameters.
func (m *MockTable) GetQueries() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.Queries))
	copy(out, m.Queries)
	return out
}

// EncodePagingState returns the token the mock issues for a row offset.
// Standard base64 is used so tokens carry '+', '/' and '='.
func EncodePagingState(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte("offset:" + strconv.Itoa(offset) + ";"))
}

func decodePagingState(token string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSuffix(strings.TrimPrefix(string(raw), "offset:"), ";")
	return strconv.Atoi(s)
}

// tableHandler serves pages of registered tables.
func (m *MockTable) tableHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	rows, ok := m.tables[r.URL.EscapedPath()]
	m.mu.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}

	offset := 0
	if token := r.URL.Query().Get("paging_state"); token != "" {
		offset, err = decodePagingState(token)
		if err != nil || offset < 0 || offset > len(rows) {
			http.Error(w, "invalid paging_state", http.StatusBadRequest)
			return
		}
	}

	end := min(offset+limit, len(rows))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if end < len(rows) {
		w.Header().Set("X-Has-More-Pages", "true")
		w.Header().Set("X-Paging-State", EncodePagingState(end))
	} else {
		w.Header().Set("X-Has-More-Pages", "false")
	}
	w.WriteHeader(http.StatusOK)

	var b strings.Builder
	for _, row := range rows[offset:end] {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>\n")
	}
	w.Write([]byte(b.String()))
}

func tablePath(keyspace, table string) string {
	return "/view/" + url.PathEscape(keyspace) + "/" + url.PathEscape(table)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "Internal server error",
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
	}
}

// NewPageResponse creates a 200 response carrying a row fragment and paging
// headers. An empty token omits X-Paging-State; an empty hasMore omits
// X-Has-More-Pages.
func NewPageResponse(fragment, hasMore, token string) MockResponse {
	headers := map[string]string{"Content-Type": "text/html; charset=utf-8"}
	if hasMore != "" {
		headers["X-Has-More-Pages"] = hasMore
	}
	if token != "" {
		headers["X-Paging-State"] = token
	}
	return MockResponse{StatusCode: http.StatusOK, Body: fragment, Headers: headers}
}
