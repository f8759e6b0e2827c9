package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/fivetwenty-io/polar-client/internal/auth"
	"github.com/fivetwenty-io/polar-client/internal/constants"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// Request describes a single API call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers map[string]string
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client sends requests to the Polar API with retries, authentication,
// interceptors and optional response caching. It implements polar.Transport.
type Client struct {
	baseURL        string
	httpClient     *retryablehttp.Client
	tokenManager   auth.TokenManager
	logger         polar.Logger
	debug          bool
	userAgent      string
	interceptors   *polar.InterceptorChain
	cache          *polar.CacheManager
	cachePolicy    *polar.CachingPolicy
	tracerProvider trace.TracerProvider
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger polar.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug logs every request and response.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRetryConfig tunes retries of 5xx, 429 and connection errors.
func WithRetryConfig(retryMax int, retryWaitMin, retryWaitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = retryWaitMin
		c.httpClient.RetryWaitMax = retryWaitMax
	}
}

// WithTimeout bounds a single HTTP attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.HTTPClient.Timeout = timeout
		}
	}
}

// WithInterceptors runs chain around every request.
func WithInterceptors(chain *polar.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithCache caches GET responses selected by policy. A nil policy uses
// polar.DefaultCachingPolicy.
func WithCache(manager *polar.CacheManager, policy *polar.CachingPolicy) Option {
	return func(c *Client) {
		if policy == nil {
			policy = polar.DefaultCachingPolicy()
		}

		c.cache = manager
		c.cachePolicy = policy
	}
}

// WithTracerProvider traces outgoing requests with OpenTelemetry.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracerProvider = tp
	}
}

// NewClient creates a client for baseURL. tokenManager may be nil for
// unauthenticated requests.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   retryClient,
		tokenManager: tokenManager,
		logger:       polar.NopLogger{},
		userAgent:    constants.DefaultUserAgent,
		interceptors: polar.NewInterceptorChain(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.logger == nil {
		client.logger = polar.NopLogger{}
	}

	if client.interceptors == nil {
		client.interceptors = polar.NewInterceptorChain()
	}

	if _, ok := client.logger.(polar.NopLogger); !ok {
		retryClient.Logger = &leveledLogger{logger: client.logger}
	}

	if client.tracerProvider != nil {
		base := retryClient.HTTPClient.Transport
		retryClient.HTTPClient.Transport = otelhttp.NewTransport(base, otelhttp.WithTracerProvider(client.tracerProvider))
	}

	return client
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req. For HTTP error statuses the response is returned together with
// a *polar.TransportError wrapping the parsed *polar.APIError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var body []byte

	if req.Body != nil {
		encoded, err := polar.Encode(req.Body)
		if err != nil {
			return nil, err
		}

		body = encoded
	}

	ireq := &polar.Request{
		Method:   req.Method,
		Path:     req.Path,
		Headers:  make(http.Header),
		Body:     body,
		Metadata: make(map[string]interface{}),
	}

	for k, v := range req.Headers {
		ireq.Headers.Set(k, v)
	}

	err := c.interceptors.ExecuteRequestInterceptors(ctx, ireq)
	if err != nil {
		return nil, err
	}

	cacheKey, cacheable := c.cacheKey(req)
	if cacheable {
		data, cacheErr := c.cache.Get(ctx, cacheKey)
		if cacheErr == nil {
			c.logger.Debug("Cache hit", map[string]interface{}{"method": req.Method, "path": req.Path})

			return &Response{StatusCode: http.StatusOK, Headers: make(http.Header), Body: data}, nil
		}
	}

	resp, err := c.send(ctx, req, ireq, body)
	if err == nil && resp.StatusCode == http.StatusUnauthorized && c.refreshToken(ctx) {
		resp, err = c.send(ctx, req, ireq, body)
	}

	iresp := &polar.Response{Error: err}
	if resp != nil {
		iresp.StatusCode = resp.StatusCode
		iresp.Headers = resp.Headers
		iresp.Body = resp.Body
	}

	if err == nil && resp.StatusCode >= http.StatusBadRequest {
		err = c.statusError(req, resp)
		iresp.Error = err
	}

	interceptErr := c.interceptors.ExecuteResponseInterceptors(ctx, ireq, iresp)
	if err != nil {
		return resp, err
	}

	if interceptErr != nil {
		return resp, interceptErr
	}

	c.updateCache(ctx, req, resp, cacheKey, cacheable)

	return resp, nil
}

// refreshToken asks the token manager for a new token and reports whether the
// token actually changed. Resending with the rejected token is pointless.
func (c *Client) refreshToken(ctx context.Context) bool {
	if c.tokenManager == nil {
		return false
	}

	previous, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return false
	}

	if refreshErr := c.tokenManager.RefreshToken(ctx); refreshErr != nil {
		c.logger.Debug("Token refresh skipped", map[string]interface{}{"error": refreshErr.Error()})
		return false
	}

	current, err := c.tokenManager.GetToken(ctx)

	return err == nil && current != previous
}

// Request implements polar.Transport.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	resp, err := c.Do(ctx, &Request{Method: method, Path: path, Query: query, Body: body})
	if err != nil {
		transportErr := &polar.TransportError{}
		if errors.As(err, &transportErr) {
			return nil, err
		}

		return nil, &polar.TransportError{Method: method, Path: path, Err: err}
	}

	return resp.Body, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post sends a POST request.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put sends a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch sends a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

func (c *Client) send(ctx context.Context, req *Request, ireq *polar.Request, body []byte) (*Response, error) {
	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.tokenManager != nil {
		token, tokenErr := c.tokenManager.GetToken(ctx)
		if tokenErr != nil {
			return nil, fmt.Errorf("failed to get access token: %w", tokenErr)
		}

		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	for k, values := range ireq.Headers {
		for _, v := range values {
			httpReq.Header.Set(k, v)
		}
	}

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
		})
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":   req.Method,
			"url":      fullURL,
			"status":   httpResp.StatusCode,
			"duration": time.Since(start).String(),
			"bytes":    len(respBody),
		})
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

func (c *Client) statusError(req *Request, resp *Response) error {
	apiErr, err := polar.ParseAPIError(resp.StatusCode, resp.Body)
	if err != nil || (apiErr.Type == "" && apiErr.Detail == "" && len(apiErr.Validation) == 0) {
		apiErr = &polar.APIError{
			StatusCode: resp.StatusCode,
			Detail:     strings.TrimSpace(string(resp.Body)),
		}
	}

	return &polar.TransportError{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: resp.StatusCode,
		Err:        apiErr,
	}
}

func (c *Client) cacheKey(req *Request) (string, bool) {
	if c.cache == nil || !c.cachePolicy.ShouldCache(req.Method, req.Path, http.StatusOK) {
		return "", false
	}

	return c.cache.GetCacheKey(req.Method, req.Path, req.Query), true
}

func (c *Client) updateCache(ctx context.Context, req *Request, resp *Response, key string, cacheable bool) {
	if c.cache == nil {
		return
	}

	if cacheable && c.cachePolicy.ShouldCache(req.Method, req.Path, resp.StatusCode) {
		err := c.cache.SetWithETag(ctx, key, resp.Body, resp.Headers.Get("ETag"), 0)
		if err != nil {
			c.logger.Warn("Failed to cache response", map[string]interface{}{"path": req.Path, "error": err})
		}

		return
	}

	if req.Method != http.MethodGet {
		err := c.cache.Invalidate(ctx)
		if err != nil {
			c.logger.Warn("Failed to invalidate cache", map[string]interface{}{"path": req.Path, "error": err})
		}
	}
}

// leveledLogger forwards retry warnings and errors to a polar.Logger. Per
// attempt debug output is dropped.
type leveledLogger struct {
	logger polar.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Info(string, ...interface{}) {}

func (l *leveledLogger) Debug(string, ...interface{}) {}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
