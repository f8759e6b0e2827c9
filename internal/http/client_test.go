package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/polar-client/internal/auth"
	polarhttp "github.com/fivetwenty-io/polar-client/internal/http"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockTokenManager for testing.
type MockTokenManager struct {
	token     string
	refreshed string
	err       error
	refreshes int
}

func (m *MockTokenManager) GetToken(ctx context.Context) (string, error) {
	return m.token, m.err
}

func (m *MockTokenManager) RefreshToken(ctx context.Context) error {
	m.refreshes++
	if m.refreshed != "" {
		m.token = m.refreshed
	}

	return nil
}

func (m *MockTokenManager) SetToken(token string, expiresAt time.Time) {
	m.token = token
}

// MockLogger for testing.
type MockLogger struct {
	logs []map[string]interface{}
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "debug", "msg": msg, "fields": fields})
}

func (l *MockLogger) Info(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "info", "msg": msg, "fields": fields})
}

func (l *MockLogger) Warn(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "warn", "msg": msg, "fields": fields})
}

func (l *MockLogger) Error(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "error", "msg": msg, "fields": fields})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/v1/products/prod-1", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, "polar-client-go", request.Header.Get("User-Agent"))

			response := map[string]string{"id": "prod-1", "name": "Pro plan"}
			_ = json.NewEncoder(writer).Encode(response)
		}))
		defer server.Close()

		tokenManager := &MockTokenManager{token: "test-token"}
		client := polarhttp.NewClient(server.URL, tokenManager)

		req := &polarhttp.Request{
			Method: "GET",
			Path:   "/v1/products/prod-1",
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result map[string]string

		err = json.Unmarshal(resp.Body, &result)
		require.NoError(t, err)
		assert.Equal(t, "prod-1", result["id"])
		assert.Equal(t, "Pro plan", result["name"])
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/v1/products", request.URL.Path)
			assert.Equal(t, "page=2", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := polarhttp.NewClient(server.URL, nil)

		req := &polarhttp.Request{
			Method: "GET",
			Path:   "/v1/products",
			Query:  url.Values{"page": []string{"2"}},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "Pro plan", body["name"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := polarhttp.NewClient(server.URL, nil)

		req := &polarhttp.Request{
			Method: "POST",
			Path:   "/v1/products",
			Body:   map[string]string{"name": "Pro plan"},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"error":"ResourceNotFound","detail":"Product not found"}`))
		}))
		defer server.Close()

		client := polarhttp.NewClient(server.URL, nil)

		req := &polarhttp.Request{
			Method: "GET",
			Path:   "/v1/products/invalid",
		}

		resp, err := client.Do(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, 404, resp.StatusCode)

		apiErr := &polar.APIError{}
		ok := errors.As(err, &apiErr)
		require.True(t, ok)
		assert.Equal(t, "ResourceNotFound", apiErr.Type)
		assert.Equal(t, "Product not found", apiErr.Detail)
		require.ErrorIs(t, err, polar.ErrTransport)
		assert.True(t, polar.IsNotFound(err))
	})

	t.Run("validation error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = writer.Write([]byte(`{"error":"RequestValidationError","detail":[{"loc":["body","name"],"msg":"Field required","type":"missing"}]}`))
		}))
		defer server.Close()

		client := polarhttp.NewClient(server.URL, nil)

		_, err := client.Post(context.Background(), "/v1/products", map[string]string{})
		require.Error(t, err)

		apiErr := &polar.APIError{}
		require.ErrorAs(t, err, &apiErr)
		require.Len(t, apiErr.Validation, 1)
		assert.Equal(t, "Field required", apiErr.Validation[0].Msg)
		assert.True(t, polar.IsValidationError(err))
	})

	t.Run("non JSON error body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusForbidden)
			_, _ = writer.Write([]byte("forbidden"))
		}))
		defer server.Close()

		client := polarhttp.NewClient(server.URL, nil)

		_, err := client.Get(context.Background(), "/v1/orders", nil)
		require.Error(t, err)
		assert.True(t, polar.IsForbidden(err))
		assert.Contains(t, err.Error(), "forbidden")
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := polarhttp.NewClient(server.URL, nil)

		req := &polarhttp.Request{
			Method: "GET",
			Path:   "/v1/products",
			Headers: map[string]string{
				"X-Custom-Header": "custom-value",
			},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := polarhttp.NewClient(server.URL, nil, polarhttp.WithLogger(logger), polarhttp.WithDebug(true))

		req := &polarhttp.Request{
			Method: "GET",
			Path:   "/v1/products",
		}

		_, err := client.Do(context.Background(), req)
		require.NoError(t, err)

		// Should have logged request and response
		assert.Len(t, logger.logs, 2)
		assert.Equal(t, "HTTP Request", logger.logs[0]["msg"])
		assert.Equal(t, "HTTP Response", logger.logs[1]["msg"])
	})

	t.Run("refreshes token once on unauthorized", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if request.Header.Get("Authorization") != "Bearer fresh" {
				writer.WriteHeader(http.StatusUnauthorized)
				return
			}

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		tokenManager := &MockTokenManager{token: "stale", refreshed: "fresh"}
		client := polarhttp.NewClient(server.URL, tokenManager)

		resp, err := client.Get(context.Background(), "/v1/customers", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 1, tokenManager.refreshes)
	})

	t.Run("does not resend when the token is unchanged", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requests.Add(1)
			writer.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		tokenManager := &MockTokenManager{token: "revoked"}
		client := polarhttp.NewClient(server.URL, tokenManager)

		_, err := client.Get(context.Background(), "/v1/customers", nil)
		require.Error(t, err)
		assert.True(t, polar.IsUnauthorized(err))
		assert.Equal(t, 1, tokenManager.refreshes)
		assert.Equal(t, int32(1), requests.Load())
	})

	t.Run("static token is sent once", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requests.Add(1)
			writer.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := polarhttp.NewClient(server.URL, auth.NewStaticTokenManager("polar_oat_revoked"))

		_, err := client.Post(context.Background(), "/v1/orders/export", map[string]string{"format": "csv"})
		require.Error(t, err)
		assert.True(t, polar.IsUnauthorized(err))
		assert.Equal(t, int32(1), requests.Load())
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*polarhttp.Client, context.Context) (*polarhttp.Response, error)
	}{
		{
			name:   "GET",
			method: "GET",
			fn: func(c *polarhttp.Client, ctx context.Context) (*polarhttp.Response, error) {
				return c.Get(ctx, "/test", nil)
			},
		},
		{
			name:   "POST",
			method: "POST",
			fn: func(c *polarhttp.Client, ctx context.Context) (*polarhttp.Response, error) {
				return c.Post(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PUT",
			method: "PUT",
			fn: func(c *polarhttp.Client, ctx context.Context) (*polarhttp.Response, error) {
				return c.Put(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PATCH",
			method: "PATCH",
			fn: func(c *polarhttp.Client, ctx context.Context) (*polarhttp.Response, error) {
				return c.Patch(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "DELETE",
			method: "DELETE",
			fn: func(c *polarhttp.Client, ctx context.Context) (*polarhttp.Response, error) {
				return c.Delete(ctx, "/test")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := polarhttp.NewClient(server.URL, nil)

			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := polarhttp.NewClient(server.URL, nil, polarhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("retries on rate limiting", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 2 {
				writer.WriteHeader(http.StatusTooManyRequests)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := polarhttp.NewClient(server.URL, nil, polarhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)

			writer.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := polarhttp.NewClient(server.URL, nil, polarhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load()) // Should not retry
	})

	t.Run("returns last server error after exhausting retries", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := polarhttp.NewClient(server.URL, nil, polarhttp.WithRetryConfig(2, time.Millisecond, 5*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.ErrorIs(t, err, polar.ErrTransport)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})
}

func TestClient_Request(t *testing.T) {
	t.Parallel()

	t.Run("returns body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "is_archived=false", request.URL.RawQuery)
			_, _ = writer.Write([]byte(`{"items":[]}`))
		}))
		defer server.Close()

		var transport polar.Transport = polarhttp.NewClient(server.URL, nil)

		body, err := transport.Request(context.Background(), http.MethodGet, "/v1/products", url.Values{"is_archived": {"false"}}, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"items":[]}`, string(body))
	})

	t.Run("wraps network failures", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {}))
		baseURL := server.URL
		server.Close()

		client := polarhttp.NewClient(baseURL, nil, polarhttp.WithRetryConfig(0, time.Millisecond, time.Millisecond))

		_, err := client.Request(context.Background(), http.MethodGet, "/v1/products", nil, nil)
		require.ErrorIs(t, err, polar.ErrTransport)

		transportErr := &polar.TransportError{}
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "/v1/products", transportErr.Path)
		assert.Zero(t, transportErr.StatusCode)
	})

	t.Run("honours cancelled context", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := polarhttp.NewClient(server.URL, nil)

		_, err := client.Request(ctx, http.MethodGet, "/v1/products", nil, nil)
		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, err, polar.ErrTransport)
	})
}

func TestClient_Interceptors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "abc", request.Header.Get("X-Trace"))
		assert.NotEmpty(t, request.Header.Get(polar.IdempotencyKeyHeader))
		writer.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	collector := polar.NewMetricsCollector(nil)

	chain := polar.NewInterceptorChain()
	chain.AddRequestInterceptor(polar.HeaderInterceptor(map[string]string{"X-Trace": "abc"}))
	chain.AddRequestInterceptor(polar.IdempotencyInterceptor())
	chain.AddRequestInterceptor(polar.MetricsRequestInterceptor(collector))
	chain.AddResponseInterceptor(polar.MetricsResponseInterceptor(collector))

	client := polarhttp.NewClient(server.URL, nil, polarhttp.WithInterceptors(chain))

	_, err := client.Post(context.Background(), "/v1/customers", map[string]string{"email": "a@example.com"})
	require.NoError(t, err)

	metrics := collector.GetMetrics("POST /v1/customers")
	require.NotNil(t, metrics)
	assert.Equal(t, int64(1), metrics.TotalRequests)
	assert.Equal(t, int64(0), metrics.TotalErrors)
}

func TestClient_CircuitBreakerIgnoresClientErrors(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusNotFound)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	breaker := polar.NewCircuitBreaker(&polar.CircuitBreakerConfig{Threshold: 3, Timeout: time.Minute, SuccessThreshold: 1})

	chain := polar.NewInterceptorChain()
	chain.AddRequestInterceptor(polar.CircuitBreakerRequestInterceptor(breaker))
	chain.AddResponseInterceptor(polar.CircuitBreakerResponseInterceptor(breaker))

	client := polarhttp.NewClient(server.URL, nil,
		polarhttp.WithInterceptors(chain),
		polarhttp.WithRetryConfig(0, time.Millisecond, time.Millisecond))

	for range 5 {
		_, err := client.Get(context.Background(), "/v1/products/missing", nil)
		require.Error(t, err)
		assert.True(t, polar.IsNotFound(err))
	}

	assert.Equal(t, polar.CircuitClosed, breaker.State())

	status.Store(http.StatusServiceUnavailable)

	for range 3 {
		_, err := client.Get(context.Background(), "/v1/products", nil)
		require.Error(t, err)
	}

	assert.Equal(t, polar.CircuitOpen, breaker.State())

	_, err := client.Get(context.Background(), "/v1/products", nil)
	require.ErrorIs(t, err, polar.ErrCircuitBreakerOpen)
}

func TestClient_Cache(t *testing.T) {
	t.Parallel()

	t.Run("serves repeated GET from cache", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			hits.Add(1)
			_, _ = writer.Write([]byte(`{"id":"prod-1"}`))
		}))
		defer server.Close()

		manager := polar.NewCacheManager(polar.NewMemoryCache(10), nil)
		client := polarhttp.NewClient(server.URL, nil, polarhttp.WithCache(manager, nil))

		for range 3 {
			resp, err := client.Get(context.Background(), "/v1/products/prod-1", nil)
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"prod-1"}`, string(resp.Body))
		}

		assert.Equal(t, int32(1), hits.Load())
		assert.Equal(t, int64(2), manager.GetStats().Hits)
	})

	t.Run("never caches export status", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			hits.Add(1)
			_, _ = writer.Write([]byte(`{"id":"exp-1","status":"pending"}`))
		}))
		defer server.Close()

		manager := polar.NewCacheManager(nil, nil)
		client := polarhttp.NewClient(server.URL, nil, polarhttp.WithCache(manager, nil))

		for range 2 {
			_, err := client.Get(context.Background(), "/v1/exports/exp-1", nil)
			require.NoError(t, err)
		}

		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("mutations invalidate cached reads", func(t *testing.T) {
		t.Parallel()

		var gets atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if request.Method == http.MethodGet {
				gets.Add(1)
			}

			_, _ = writer.Write([]byte(`{}`))
		}))
		defer server.Close()

		manager := polar.NewCacheManager(nil, nil)
		client := polarhttp.NewClient(server.URL, nil, polarhttp.WithCache(manager, nil))
		ctx := context.Background()

		_, err := client.Get(ctx, "/v1/products/prod-1", nil)
		require.NoError(t, err)

		_, err = client.Patch(ctx, "/v1/products/prod-1", map[string]bool{"is_archived": true})
		require.NoError(t, err)

		_, err = client.Get(ctx, "/v1/products/prod-1", nil)
		require.NoError(t, err)

		assert.Equal(t, int32(2), gets.Load())
	})
}
