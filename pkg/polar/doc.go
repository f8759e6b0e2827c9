// Package polar provides types, interfaces, and helpers for working with the
// Polar billing API.
//
// # Overview
//
// The polar package defines the domain types (Product, ProductPrice,
// Subscription, Customer, Order, ExportJob), the resource client interfaces
// (ProductsClient, SubscriptionsClient, ...) and the query, pagination and
// export machinery they share. A concrete implementation is provided by the
// polarclient package, which wires configuration, transport and
// authentication.
//
// # Getting a client
//
//	cli, err := polarclient.New(&polar.Config{
//	  Server:      polar.ServerSandbox,
//	  AccessToken: os.Getenv("POLAR_ACCESS_TOKEN"),
//	})
//	if err != nil { log.Fatal(err) }
//
// # Queries
//
// QueryBuilder is a value: every With* call returns a new builder and leaves
// the receiver untouched, so a base query can be shared and refined.
// Validation errors are recorded on the builder and reported by Err, Build,
// and any listing or export that uses it, before a request is sent. Products,
// subscriptions, and customers return typed builders with helpers for their
// common filters; any Querier is accepted by List, Stream, and Export.
//
//	base := cli.Products().Query().WithActive(true)
//	cheap := base.WithRange(polar.FieldAmount, nil, 1000).WithPageSize(50)
//	recent := base.WithSort(polar.FieldCreatedAt, false)
//
// # Pagination
//
// List returns the first page's metadata together with up to limit items;
// Stream yields items lazily and fetches a page only when the consumer needs
// it:
//
//	for product, err := range cli.Products().Stream(ctx, recent, 25) {
//	  if err != nil { return err }
//	  fmt.Println(product.Name)
//	}
//
// # Exports
//
// Export submits a server-side export and polls it until it is ready or has
// failed. A job still running when the timeout elapses is reported as a
// *TimeoutError carrying the last observed state.
//
// # Errors
//
// Errors fall in four categories matched with errors.Is: ErrInvalidArgument,
// ErrTransport, ErrDeserialization and ErrTimeout. API error bodies are
// available as *APIError through errors.As; IsNotFound and friends branch on
// common status codes.
//
// # Interceptors and caching
//
// Requests pass through an InterceptorChain (logging, headers, rate limiting,
// idempotency keys, metrics, circuit breaking). GET responses can be cached in
// memory or in a NATS JetStream key-value bucket; export status is never
// cached.
package polar
