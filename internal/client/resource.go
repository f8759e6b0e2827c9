package client

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// resourceDeps are shared by every resource client of a Client.
type resourceDeps struct {
	transport    polar.Transport
	pagination   polar.PaginationConfig
	exports      *polar.ExportOrchestrator
	pollDefaults polar.PollOptions
	logger       polar.Logger
}

// ResourceClient lists, streams and exports the collection at path.
type ResourceClient[T any] struct {
	deps      *resourceDeps
	path      string
	paginator *polar.Paginator[T]
}

func newResourceClient[T any](deps *resourceDeps, path string) *ResourceClient[T] {
	return &ResourceClient[T]{
		deps:      deps,
		path:      path,
		paginator: polar.NewPaginator[T](deps.transport, deps.pagination, deps.logger),
	}
}

// Path returns the collection path.
func (r *ResourceClient[T]) Path() string {
	return r.path
}

// Query returns an empty query for this resource.
func (r *ResourceClient[T]) Query() polar.QueryBuilder {
	return polar.NewQuery()
}

// List returns the first page's metadata. With limit > 0 items are collected
// across pages until limit items were read or the listing ends; with limit == 0
// only the first page's items are returned.
func (r *ResourceClient[T]) List(ctx context.Context, query polar.Querier, limit int) (*polar.ListResult[T], error) {
	if limit < 0 {
		return nil, &polar.InvalidArgumentError{Field: "limit", Value: limit, Reason: "must not be negative"}
	}

	compiled, err := polar.CompileQuery(query)
	if err != nil {
		return nil, err
	}

	if limit == 0 {
		page, err := r.paginator.FetchPage(ctx, r.path, compiled, "")
		if err != nil {
			return nil, err
		}

		return &polar.ListResult[T]{Items: nonNil(page.Items), Pagination: page.Info()}, nil
	}

	it := r.paginator.Iterator(ctx, r.path, compiled, limit)

	items, err := it.All()
	if err != nil {
		return nil, err
	}

	result := &polar.ListResult[T]{Items: nonNil(items)}
	if first := it.FirstPage(); first != nil {
		result.Pagination = *first
	}

	return result, nil
}

// Stream yields items lazily, at most limit when limit > 0. An invalid query
// is reported as the first and only element.
func (r *ResourceClient[T]) Stream(ctx context.Context, query polar.Querier, limit int) iter.Seq2[T, error] {
	compiled, err := polar.CompileQuery(query)
	if err == nil && limit < 0 {
		err = &polar.InvalidArgumentError{Field: "limit", Value: limit, Reason: "must not be negative"}
	}

	if err != nil {
		return func(yield func(T, error) bool) {
			var zero T

			yield(zero, err)
		}
	}

	return r.paginator.Stream(ctx, r.path, compiled, limit)
}

// Export submits an export of the collection and waits for it to finish.
func (r *ResourceClient[T]) Export(ctx context.Context, opts *polar.ExportOptions) (*polar.ExportJob, error) {
	return exportCollection(ctx, r.deps, r.path, opts)
}

func exportCollection(ctx context.Context, deps *resourceDeps, path string, opts *polar.ExportOptions) (*polar.ExportJob, error) {
	if opts == nil {
		opts = &polar.ExportOptions{}
	}

	compiled, err := polar.CompileQuery(opts.Query)
	if err != nil {
		return nil, err
	}

	job, err := deps.exports.Submit(ctx, path, compiled, opts.Format)
	if err != nil {
		return nil, fmt.Errorf("submitting export of %s: %w", path, err)
	}

	job, err = deps.exports.AwaitCompletion(ctx, job, mergePollOptions(deps.pollDefaults, opts.Poll))
	if err != nil {
		return nil, fmt.Errorf("awaiting export of %s: %w", path, err)
	}

	return job, nil
}

// mergePollOptions overlays the non-zero fields of override on base.
func mergePollOptions(base, override polar.PollOptions) polar.PollOptions {
	if override.Interval > 0 {
		base.Interval = override.Interval
	}

	if override.MaxInterval > 0 {
		base.MaxInterval = override.MaxInterval
	}

	if override.BackoffFactor != 0 {
		base.BackoffFactor = override.BackoffFactor
	}

	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}

	return base
}

// getResource fetches path and decodes it into a T.
func getResource[T any](ctx context.Context, deps *resourceDeps, path, what string) (*T, error) {
	return sendResource[T](ctx, deps, http.MethodGet, path, nil, what)
}

// sendResource performs a request whose response body is a single T.
func sendResource[T any](ctx context.Context, deps *resourceDeps, method, path string, body any, what string) (*T, error) {
	data, err := deps.transport.Request(ctx, method, path, nil, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation(method, what), err)
	}

	value, err := polar.Decode[T](data, what)
	if err != nil {
		return nil, err
	}

	return &value, nil
}

func operation(method, what string) string {
	switch method {
	case http.MethodGet:
		return "getting " + what
	case http.MethodPost:
		return "creating " + what
	case http.MethodPatch, http.MethodPut:
		return "updating " + what
	case http.MethodDelete:
		return "deleting " + what
	default:
		return strings.ToLower(method) + " " + what
	}
}

// resourcePath joins a collection path and an id, rejecting empty ids before
// any request is made.
func resourcePath(collection, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", &polar.InvalidArgumentError{Field: "id", Value: id, Reason: "id is required"}
	}

	return collection + "/" + url.PathEscape(id), nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
