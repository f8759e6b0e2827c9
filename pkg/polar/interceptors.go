package polar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// IdempotencyKeyHeader carries the idempotency key of mutating requests.
const IdempotencyKeyHeader = "Idempotency-Key"

// Request represents an HTTP request that can be intercepted.
type Request struct {
	Method   string
	Path     string
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// Response represents an HTTP response that can be intercepted.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// RequestInterceptor is called before a request is sent.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor is called after a response is received.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain manages a chain of interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates a new interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestInterceptors:  make([]RequestInterceptor, 0),
		responseInterceptors: make([]ResponseInterceptor, 0),
	}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// ExecuteRequestInterceptors runs all request interceptors.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// LoggingInterceptor logs requests.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		logger.Debug("API Request", map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
		})

		return nil
	}
}

// LoggingResponseInterceptor logs responses.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		fields := map[string]interface{}{
			"method":      req.Method,
			"path":        req.Path,
			"status_code": resp.StatusCode,
		}

		if resp.Error != nil {
			fields["error"] = resp.Error
			logger.Error("API Response Error", fields)
		} else {
			logger.Debug("API Response", fields)
		}

		return nil
	}
}

// HeaderInterceptor adds custom headers to requests.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		for key, value := range headers {
			req.Headers.Set(key, value)
		}

		return nil
	}
}

// RateLimitInterceptor blocks until the limiter admits the request or ctx is done.
func RateLimitInterceptor(requestsPerSecond float64, burst int) RequestInterceptor {
	if burst < 1 {
		burst = 1
	}

	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)

	return func(ctx context.Context, req *Request) error {
		err := limiter.Wait(ctx)
		if err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		return nil
	}
}

// IdempotencyInterceptor stamps POST and PATCH requests with a random
// Idempotency-Key unless one is already present. Retries of the same request
// reuse the key.
func IdempotencyInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Method != http.MethodPost && req.Method != http.MethodPatch {
			return nil
		}

		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		if req.Headers.Get(IdempotencyKeyHeader) == "" {
			req.Headers.Set(IdempotencyKeyHeader, uuid.NewString())
		}

		return nil
	}
}

// Circuit breaker states.
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half-open"
)

// CircuitBreakerConfig tunes a CircuitBreaker.
type CircuitBreakerConfig struct {
	Threshold        int           // Number of failures before opening
	Timeout          time.Duration // Time before trying again
	SuccessThreshold int           // Number of successes to close
}

// CircuitBreaker stops sending requests after repeated server failures.
type CircuitBreaker struct {
	mu          sync.Mutex
	config      CircuitBreakerConfig
	failures    int
	successes   int
	state       string
	lastFailure time.Time
}

// NewCircuitBreaker creates a closed circuit breaker. A nil config opens
// after 5 failures, retries after 30s and closes after 2 successes.
func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	cfg := CircuitBreakerConfig{Threshold: 5, Timeout: 30 * time.Second, SuccessThreshold: 2}
	if config != nil {
		cfg = *config
	}

	return &CircuitBreaker{config: cfg, state: CircuitClosed}
}

// State returns the current state.
func (b *CircuitBreaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// CircuitBreakerRequestInterceptor rejects requests while the circuit is open.
func CircuitBreakerRequestInterceptor(breaker *CircuitBreaker) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		breaker.mu.Lock()
		defer breaker.mu.Unlock()

		if breaker.state == CircuitOpen {
			if time.Since(breaker.lastFailure) <= breaker.config.Timeout {
				return ErrCircuitBreakerOpen
			}

			breaker.state = CircuitHalfOpen
			breaker.successes = 0
		}

		return nil
	}
}

// CircuitBreakerResponseInterceptor records the outcome of each request. Only
// connection failures and 5xx responses count as failures; a 4xx response
// means the server is answering and counts as a success.
func CircuitBreakerResponseInterceptor(breaker *CircuitBreaker) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		breaker.mu.Lock()
		defer breaker.mu.Unlock()

		if isServerFailure(resp) {
			breaker.failures++
			breaker.lastFailure = time.Now()

			if breaker.state == CircuitHalfOpen || breaker.failures >= breaker.config.Threshold {
				breaker.state = CircuitOpen
			}

			return nil
		}

		if breaker.state == CircuitHalfOpen {
			breaker.successes++
			if breaker.successes >= breaker.config.SuccessThreshold {
				breaker.state = CircuitClosed
				breaker.failures = 0
			}

			return nil
		}

		breaker.failures = 0

		return nil
	}
}

func isServerFailure(resp *Response) bool {
	if resp.StatusCode >= http.StatusInternalServerError {
		return true
	}

	if resp.StatusCode > 0 {
		return false
	}

	var transportErr *TransportError
	if errors.As(resp.Error, &transportErr) && transportErr.StatusCode > 0 {
		return transportErr.StatusCode >= http.StatusInternalServerError
	}

	return resp.Error != nil
}
