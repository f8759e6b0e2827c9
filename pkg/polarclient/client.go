package polarclient

import (
	"fmt"
	"os"
	"strings"

	"github.com/fivetwenty-io/polar-client/internal/client"
	"github.com/fivetwenty-io/polar-client/internal/constants"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// New creates a new Polar API client. When config.AccessToken is empty the
// token is read from POLAR_ACCESS_TOKEN.
func New(config *polar.Config) (polar.Client, error) {
	if config == nil {
		return nil, polar.ErrConfigRequired
	}

	cfg := *config
	cfg.APIEndpoint = NormalizeEndpoint(cfg.APIEndpoint)

	if cfg.AccessToken == "" {
		cfg.AccessToken = strings.TrimSpace(os.Getenv(constants.EnvAccessToken))
	}

	c, err := client.New(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NormalizeEndpoint trims surrounding space and a trailing slash, and
// defaults the scheme to https. An empty endpoint stays empty.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return ""
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// NewWithToken creates a production client with an access token.
func NewWithToken(token string) (polar.Client, error) {
	return New(&polar.Config{
		Server:      polar.ServerProduction,
		AccessToken: token,
	})
}

// NewSandbox creates a sandbox client with an access token.
func NewSandbox(token string) (polar.Client, error) {
	return New(&polar.Config{
		Server:      polar.ServerSandbox,
		AccessToken: token,
	})
}

// NewWithEndpoint creates a client for a custom API endpoint.
func NewWithEndpoint(endpoint, token string) (polar.Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, polar.ErrAPIEndpointRequired
	}

	return New(&polar.Config{
		APIEndpoint: endpoint,
		AccessToken: token,
	})
}
