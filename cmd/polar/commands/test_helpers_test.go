package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// setupCLI resets viper and points the CLI at a throwaway config file and,
// when apiURL is set, at a test server. It returns the config file path.
func setupCLI(t *testing.T, apiURL string) string {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yml")
	viper.Set("config", path)

	if apiURL != "" {
		viper.Set("api", apiURL)
	}

	return path
}

// executeCommand runs the polar command with args and returns its output.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand("1.2.3", "abc123", "2024-01-01")

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

type apiRequest struct {
	Method        string
	Path          string
	Query         map[string][]string
	Authorization string
	Body          map[string]interface{}
}

// fakePolar is a minimal API server keyed by "METHOD /path".
type fakePolar struct {
	server   *httptest.Server
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []apiRequest
}

func newFakePolar(t *testing.T) *fakePolar {
	t.Helper()

	f := &fakePolar{routes: make(map[string]http.HandlerFunc)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakePolar) URL() string {
	return f.server.URL
}

func (f *fakePolar) respond(method, path string, status int, body interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.routes[method+" "+path] = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	}
}

func (f *fakePolar) Requests() []apiRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]apiRequest(nil), f.requests...)
}

func (f *fakePolar) serve(w http.ResponseWriter, r *http.Request) {
	recorded := apiRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.Query(),
		Authorization: r.Header.Get("Authorization"),
	}

	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&recorded.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, recorded)
	handler, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ResourceNotFound", "detail": "Not found"})

		return
	}

	handler(w, r)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func productFixture(id, name string) map[string]interface{} {
	return map[string]interface{}{
		"id":                 id,
		"created_at":         "2024-01-01T00:00:00Z",
		"name":               name,
		"is_recurring":       true,
		"is_archived":        false,
		"recurring_interval": "month",
		"organization_id":    "org-1",
		"prices": []map[string]interface{}{
			{
				"id":             "price-" + id,
				"created_at":     "2024-01-01T00:00:00Z",
				"product_id":     id,
				"type":           "recurring",
				"amount_type":    "fixed",
				"price_amount":   1500,
				"price_currency": "usd",
				"is_archived":    false,
			},
		},
	}
}

func listFixture(total int, items ...interface{}) map[string]interface{} {
	return map[string]interface{}{
		"items":      items,
		"pagination": map[string]interface{}{"total_count": total, "max_page": 1},
	}
}
