package polar

import (
	"context"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/fivetwenty-io/polar-client/internal/constants"
)

// Server selects a hosted API environment.
type Server string

const (
	ServerProduction Server = constants.ServerProduction
	ServerSandbox    Server = constants.ServerSandbox
)

// URL returns the base URL of the server.
func (s Server) URL() (string, error) {
	switch s {
	case ServerProduction, "":
		return constants.ProductionAPIEndpoint, nil
	case ServerSandbox:
		return constants.SandboxAPIEndpoint, nil
	default:
		return "", ErrUnknownServer
	}
}

// Transport sends one request and returns the raw response body. Non-2xx
// responses and network failures are returned as errors.
type Transport interface {
	Request(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error)
}

// Client provides access to every resource client.
type Client interface {
	Products() ProductsClient
	Subscriptions() SubscriptionsClient
	Customers() CustomersClient
	Orders() OrdersClient
	Exports() ExportsClient
	// Close releases connections held by the response cache.
	Close()
}

// RateLimitConfig enables client-side throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Config represents client configuration for building a polar.Client.
//
// APIEndpoint takes precedence over Server. Per-request deadlines should be
// set through the context passed to client methods; retries of transient
// failures (5xx, 429 and connection errors) are tuned with RetryMax,
// RetryWaitMin and RetryWaitMax.
type Config struct {
	// Server picks the production or sandbox API when APIEndpoint is empty.
	Server Server
	// APIEndpoint overrides the server URL (e.g., a local mock). polarclient.New
	// trims a trailing slash and adds "https://" if no scheme is present.
	APIEndpoint string
	// AccessToken is an organization access token sent as a Bearer token.
	AccessToken string

	// RetryMax: maximum number of retries for transient failures. If 0, a
	// sensible default is used by the client; negative disables retries.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
	// HTTPTimeout bounds a single HTTP attempt.
	HTTPTimeout time.Duration

	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer and helpers.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string

	// Pagination overrides the list protocol; zero fields keep the defaults.
	Pagination PaginationConfig
	// Cache enables response caching of GET requests when set.
	Cache *CacheConfig
	// RateLimit enables client-side throttling when set.
	RateLimit *RateLimitConfig
	// Interceptors run around every HTTP request after the built-in ones.
	Interceptors *InterceptorChain
	// Metrics registers request metrics with the given registerer when set.
	Metrics prometheus.Registerer
	// TracerProvider traces outgoing requests when set.
	TracerProvider trace.TracerProvider
	// ExportDefaults seeds PollOptions of exports; zero fields keep the defaults.
	ExportDefaults PollOptions
}
