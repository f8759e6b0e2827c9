package client

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/polar-client/internal/auth"
	"github.com/fivetwenty-io/polar-client/internal/constants"
	"github.com/fivetwenty-io/polar-client/internal/http"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// Client implements the polar.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       polar.Logger
	metrics      *polar.MetricsCollector
	cache        polar.Cache
	cacheManager *polar.CacheManager

	// Resource clients
	products      *ProductsClient
	subscriptions *SubscriptionsClient
	customers     *CustomersClient
	orders        *OrdersClient
	exports       *ExportsClient
}

// New creates a client authenticated with config.AccessToken. An empty token
// sends unauthenticated requests.
func New(config *polar.Config) (*Client, error) {
	if config == nil {
		return nil, polar.ErrConfigRequired
	}

	var tokenManager auth.TokenManager
	if config.AccessToken != "" {
		tokenManager = auth.NewStaticTokenManager(config.AccessToken)
	}

	return NewWithTokenManager(config, tokenManager)
}

// NewWithTokenManager creates a client that takes its tokens from
// tokenManager.
func NewWithTokenManager(config *polar.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config == nil {
		return nil, polar.ErrConfigRequired
	}

	baseURL, err := resolveEndpoint(config)
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = polar.NopLogger{}
	}

	client := &Client{
		tokenManager: tokenManager,
		baseURL:      baseURL,
		logger:       logger,
	}

	httpOpts := createHTTPClientOptions(config, logger)

	chain := client.buildInterceptors(config)
	httpOpts = append(httpOpts, http.WithInterceptors(chain))

	if config.Cache != nil {
		cacheOpt, err := client.buildCache(config.Cache)
		if err != nil {
			return nil, err
		}

		httpOpts = append(httpOpts, cacheOpt)
	}

	client.httpClient = http.NewClient(baseURL, tokenManager, httpOpts...)

	client.initializeResourceClients(config)

	return client, nil
}

func resolveEndpoint(config *polar.Config) (string, error) {
	if config.APIEndpoint != "" {
		return strings.TrimSuffix(config.APIEndpoint, "/"), nil
	}

	baseURL, err := config.Server.URL()
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, config.Server)
	}

	return baseURL, nil
}

func createHTTPClientOptions(config *polar.Config, logger polar.Logger) []http.Option {
	httpOpts := []http.Option{
		http.WithLogger(logger),
		http.WithDebug(config.Debug),
		http.WithUserAgent(config.UserAgent),
		http.WithTimeout(config.HTTPTimeout),
	}

	if config.RetryMax != 0 || config.RetryWaitMin > 0 || config.RetryWaitMax > 0 {
		retryMax := config.RetryMax
		switch {
		case retryMax == 0:
			retryMax = constants.DefaultRetryMax
		case retryMax < 0:
			retryMax = 0
		}

		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = max(config.RetryWaitMax, retryWaitMin)
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(retryMax, retryWaitMin, retryWaitMax))
	}

	if config.TracerProvider != nil {
		httpOpts = append(httpOpts, http.WithTracerProvider(config.TracerProvider))
	}

	return httpOpts
}

// buildInterceptors assembles the built-in interceptors followed by the
// caller's own.
func (c *Client) buildInterceptors(config *polar.Config) *polar.InterceptorChain {
	chain := polar.NewInterceptorChain()
	chain.AddRequestInterceptor(polar.IdempotencyInterceptor())

	if config.RateLimit != nil && config.RateLimit.RequestsPerSecond > 0 {
		chain.AddRequestInterceptor(polar.RateLimitInterceptor(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst))
	}

	if config.Metrics != nil {
		c.metrics = polar.NewMetricsCollector(config.Metrics)
		chain.AddRequestInterceptor(polar.MetricsRequestInterceptor(c.metrics))
		chain.AddResponseInterceptor(polar.MetricsResponseInterceptor(c.metrics))
	}

	if config.Interceptors != nil {
		chain.AddRequestInterceptor(config.Interceptors.ExecuteRequestInterceptors)
		chain.AddResponseInterceptor(config.Interceptors.ExecuteResponseInterceptors)
	}

	return chain
}

func (c *Client) buildCache(config *polar.CacheConfig) (http.Option, error) {
	cache, err := polar.NewCacheFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("creating response cache: %w", err)
	}

	options := config.Options
	if options == nil {
		options = polar.DefaultCacheOptions()
	}

	c.cache = cache
	c.cacheManager = polar.NewCacheManager(cache, options)

	return http.WithCache(c.cacheManager, config.Policy), nil
}

func (c *Client) initializeResourceClients(config *polar.Config) {
	deps := &resourceDeps{
		transport:    c.httpClient,
		pagination:   config.Pagination,
		exports:      polar.NewExportOrchestrator(c.httpClient, c.logger),
		pollDefaults: mergePollOptions(polar.DefaultPollOptions(), config.ExportDefaults),
		logger:       c.logger,
	}

	c.products = newProductsClient(deps)
	c.subscriptions = newSubscriptionsClient(deps)
	c.customers = newCustomersClient(deps)
	c.orders = newOrdersClient(deps)
	c.exports = newExportsClient(deps)
}

// BaseURL returns the API base URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetTokenManager returns the token manager, or nil for unauthenticated
// clients.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// Metrics returns the request metrics collector, or nil when metrics are
// disabled.
func (c *Client) Metrics() *polar.MetricsCollector {
	return c.metrics
}

// CacheStats returns response cache statistics. ok is false when caching is
// disabled.
func (c *Client) CacheStats() (stats polar.CacheStats, ok bool) {
	if c.cacheManager == nil {
		return polar.CacheStats{}, false
	}

	return c.cacheManager.GetStats(), true
}

// Close releases the response cache: NATS connections the client opened and
// the memory cache's background sweep.
func (c *Client) Close() {
	if closer, ok := c.cache.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Products implements polar.Client.Products.
func (c *Client) Products() polar.ProductsClient {
	return c.products
}

// Subscriptions implements polar.Client.Subscriptions.
func (c *Client) Subscriptions() polar.SubscriptionsClient {
	return c.subscriptions
}

// Customers implements polar.Client.Customers.
func (c *Client) Customers() polar.CustomersClient {
	return c.customers
}

// Orders implements polar.Client.Orders.
func (c *Client) Orders() polar.OrdersClient {
	return c.orders
}

// Exports implements polar.Client.Exports.
func (c *Client) Exports() polar.ExportsClient {
	return c.exports
}
