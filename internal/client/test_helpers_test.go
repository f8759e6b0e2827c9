package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// recordedRequest is a request seen by a fakeAPI.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]interface{}
	Header http.Header
}

// fakeAPI serves canned responses keyed by "METHOD /path" and records every
// request it receives.
type fakeAPI struct {
	t        *testing.T
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []recordedRequest
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	return &fakeAPI{t: t, routes: make(map[string]http.HandlerFunc)}
}

func (f *fakeAPI) handle(method, path string, handler http.HandlerFunc) {
	f.routes[method+" "+path] = handler
}

func (f *fakeAPI) respond(method, path string, status int, body interface{}) {
	f.handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	})
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	}

	data, _ := io.ReadAll(r.Body)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	handler, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ResourceNotFound", "detail": "Not found"})
		return
	}

	handler(w, r)
}

func (f *fakeAPI) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeAPI) RequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.requests)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// testPoll keeps export polling fast in tests.
var testPoll = polar.PollOptions{
	Interval:      time.Millisecond,
	MaxInterval:   5 * time.Millisecond,
	BackoffFactor: 2,
	Timeout:       2 * time.Second,
}

// newTestClient starts api and returns a client pointed at it with retries
// disabled.
func newTestClient(t *testing.T, api *fakeAPI, mutate ...func(*polar.Config)) *Client {
	t.Helper()

	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	config := &polar.Config{
		APIEndpoint:    server.URL,
		AccessToken:    "test-token",
		RetryMax:       -1,
		ExportDefaults: testPoll,
	}

	for _, fn := range mutate {
		fn(config)
	}

	client, err := New(config)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

// paged serves total generated items with offset pagination, honoring the
// page and limit parameters.
func paged(total int, item func(i int) interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 {
			limit = 10
		}

		maxPage := (total + limit - 1) / limit

		items := []interface{}{}
		for i := (page - 1) * limit; i < total && i < page*limit; i++ {
			items = append(items, item(i))
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"items": items,
			"pagination": map[string]interface{}{
				"total_count": total,
				"max_page":    maxPage,
			},
		})
	}
}

func productJSON(i int) interface{} {
	return map[string]interface{}{
		"id":              fmt.Sprintf("prod-%d", i),
		"name":            fmt.Sprintf("Product %d", i),
		"created_at":      "2024-01-01T00:00:00Z",
		"is_recurring":    false,
		"is_archived":     false,
		"organization_id": "org-1",
		"prices":          []interface{}{},
	}
}

func readyExport(id string) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"status":       "ready",
		"format":       "csv",
		"export_url":   "https://files.example.com/" + id + ".csv",
		"size":         2048,
		"record_count": 25,
	}
}

func pendingExport(id, status string) map[string]interface{} {
	return map[string]interface{}{"id": id, "status": status, "format": "csv"}
}

// getOperationTest is a table entry for a single-resource GET.
type getOperationTest struct {
	Name         string
	ID           string
	ExpectedPath string
	StatusCode   int
	Response     interface{}
	WantErr      error
}

// runGetTests exercises get against every entry. Entries with an empty ID
// must fail before any request is made.
func runGetTests[T any](t *testing.T, tests []getOperationTest, get func(*Client) func(context.Context, string) (*T, error)) {
	t.Helper()

	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			api := newFakeAPI(t)
			if tc.ExpectedPath != "" {
				api.respond(http.MethodGet, tc.ExpectedPath, tc.StatusCode, tc.Response)
			}

			client := newTestClient(t, api)

			result, err := get(client)(context.Background(), tc.ID)

			if tc.WantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.WantErr)
				assert.Nil(t, result)

				if tc.ExpectedPath == "" {
					assert.Zero(t, api.RequestCount())
				}

				return
			}

			require.NoError(t, err)
			require.NotNil(t, result)

			requests := api.Requests()
			require.Len(t, requests, 1)
			assert.Equal(t, tc.ExpectedPath, requests[0].Path)
		})
	}
}
