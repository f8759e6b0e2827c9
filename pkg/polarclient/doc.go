// Package polarclient provides the primary entry point for constructing a
// Polar API client that implements the polar.Client interface.
//
// It layers configuration, HTTP transport, authentication, caching and
// metrics on top of the resource interfaces and types defined in the polar
// package. Most applications import polarclient to build a client and then
// use the returned polar.Client to reach resource clients such as Products()
// or Subscriptions().
//
// # Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/polar-client/pkg/polar"
//	  "github.com/fivetwenty-io/polar-client/pkg/polarclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Production API with an organization access token.
//	  cli, err := polarclient.NewWithToken("polar_oat_...")
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  // Or the sandbox, with the token read from POLAR_ACCESS_TOKEN.
//	  cli, err = polarclient.New(&polar.Config{Server: polar.ServerSandbox})
//
//	  products, err := cli.Products().List(ctx, cli.Products().Query().WithPageSize(20), 0)
//	  if err != nil { log.Fatal(err) }
//	  _ = products
//	}
//
// # Endpoints
//
// APIEndpoint overrides the server selection, for example to target a local
// mock. A missing scheme defaults to https and a trailing slash is removed.
//
// # Caching and metrics
//
//	cli, err := polarclient.New(&polar.Config{
//	  AccessToken: token,
//	  Cache:       &polar.CacheConfig{Type: polar.CacheTypeMemory},
//	  Metrics:     prometheus.DefaultRegisterer,
//	  RateLimit:   &polar.RateLimitConfig{RequestsPerSecond: 5, Burst: 10},
//	})
package polarclient
