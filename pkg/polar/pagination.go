package polar

import (
	"context"
	"iter"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/fivetwenty-io/polar-client/internal/constants"
)

// PaginationMode selects how continuation tokens are produced.
type PaginationMode string

const (
	// PaginationModeOffset walks 1-based page numbers.
	PaginationModeOffset PaginationMode = "offset"
	// PaginationModeCursor follows opaque server cursors.
	PaginationModeCursor PaginationMode = "cursor"
)

// PaginationConfig describes the list protocol of an endpoint family.
type PaginationConfig struct {
	Mode        PaginationMode
	PageParam   string
	CursorParam string
	LimitParam  string
	// DefaultPageSize is requested when the query sets no page size.
	DefaultPageSize int
}

// DefaultPaginationConfig returns the offset protocol used by the API.
func DefaultPaginationConfig() PaginationConfig {
	return PaginationConfig{
		Mode:            PaginationModeOffset,
		PageParam:       constants.ParamPage,
		CursorParam:     constants.ParamCursor,
		LimitParam:      constants.ParamLimit,
		DefaultPageSize: constants.DefaultPageSize,
	}
}

func (c PaginationConfig) withDefaults() PaginationConfig {
	def := DefaultPaginationConfig()

	if c.Mode == "" {
		c.Mode = def.Mode
	}

	if c.PageParam == "" {
		c.PageParam = def.PageParam
	}

	if c.CursorParam == "" {
		c.CursorParam = def.CursorParam
	}

	if c.LimitParam == "" {
		c.LimitParam = def.LimitParam
	}

	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = def.DefaultPageSize
	}

	return c
}

// PaginationMeta is the pagination member of a list response.
type PaginationMeta struct {
	TotalCount *int    `json:"total_count,omitempty" yaml:"total_count,omitempty"`
	MaxPage    int     `json:"max_page,omitempty"    yaml:"max_page,omitempty"`
	NextCursor *string `json:"next_cursor,omitempty" yaml:"next_cursor,omitempty"`
}

// ListResponse is the list envelope returned by the API.
type ListResponse[T any] struct {
	Items      []T            `json:"items"      yaml:"items"`
	Pagination PaginationMeta `json:"pagination" yaml:"pagination"`
}

// Page is one fetched page. Next is the continuation token and is empty when
// HasMore is false.
type Page[T any] struct {
	Items      []T
	Next       string
	TotalCount *int
	HasMore    bool
	PageSize   int
}

// PageInfo is the metadata of a page, without its items.
type PageInfo struct {
	TotalCount *int   `json:"total_count,omitempty" yaml:"total_count,omitempty"`
	HasMore    bool   `json:"has_more"              yaml:"has_more"`
	Next       string `json:"next,omitempty"        yaml:"next,omitempty"`
	PageSize   int    `json:"page_size"             yaml:"page_size"`
}

// Info returns the page metadata.
func (p *Page[T]) Info() PageInfo {
	return PageInfo{TotalCount: p.TotalCount, HasMore: p.HasMore, Next: p.Next, PageSize: p.PageSize}
}

// PageFetcher fetches a single page. An empty token requests the first page.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, path string, query CompiledQuery, token string) (*Page[T], error)
}

// Paginator fetches pages of T from a list endpoint over a Transport.
type Paginator[T any] struct {
	transport Transport
	config    PaginationConfig
	logger    Logger
}

// NewPaginator creates a paginator. A nil logger discards output.
func NewPaginator[T any](transport Transport, config PaginationConfig, logger Logger) *Paginator[T] {
	return &Paginator[T]{
		transport: transport,
		config:    config.withDefaults(),
		logger:    loggerOrNop(logger),
	}
}

// DefaultPageSize is the page size requested when a query sets none.
func (p *Paginator[T]) DefaultPageSize() int {
	return p.config.DefaultPageSize
}

// FetchPage performs exactly one transport call and decodes the envelope.
//
// In offset mode HasMore follows max_page when the response carries it.
// Without max_page a page is assumed to have a successor when it is full, so
// a listing whose last page is exactly full costs one extra request that
// returns no items.
func (p *Paginator[T]) FetchPage(ctx context.Context, path string, query CompiledQuery, token string) (*Page[T], error) {
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = p.config.DefaultPageSize
	}

	values := query.FilterValues()
	values.Set(p.config.LimitParam, strconv.Itoa(pageSize))

	page := constants.FirstPage

	switch p.config.Mode {
	case PaginationModeCursor:
		if token != "" {
			values.Set(p.config.CursorParam, token)
		}
	default:
		if token != "" {
			n, err := strconv.Atoi(token)
			if err != nil || n < constants.FirstPage {
				return nil, invalidArgument("page", token, "continuation token is not a page number")
			}

			page = n
		}

		values.Set(p.config.PageParam, strconv.Itoa(page))
	}

	p.logger.Debug("Fetching page", map[string]interface{}{
		"path":  path,
		"token": token,
		"limit": pageSize,
	})

	data, err := p.transport.Request(ctx, http.MethodGet, path, values, nil)
	if err != nil {
		return nil, asTransportError(http.MethodGet, path, err)
	}

	resp, err := Decode[ListResponse[T]](data, "list response "+path)
	if err != nil {
		return nil, err
	}

	if resp.Items == nil {
		return nil, &DeserializationError{Target: "list response " + path, Err: ErrMissingItems}
	}

	result := &Page[T]{
		Items:      resp.Items,
		TotalCount: resp.Pagination.TotalCount,
		PageSize:   pageSize,
	}

	switch p.config.Mode {
	case PaginationModeCursor:
		if c := resp.Pagination.NextCursor; c != nil && *c != "" {
			result.HasMore = true
			result.Next = *c
		}
	default:
		if resp.Pagination.MaxPage > 0 {
			result.HasMore = page < resp.Pagination.MaxPage
		} else {
			result.HasMore = len(resp.Items) > 0 && len(resp.Items) >= pageSize
		}

		if result.HasMore {
			result.Next = strconv.Itoa(page + 1)
		}
	}

	return result, nil
}

// Iterator returns a lazy iterator over the endpoint. limit caps the number of
// items produced; zero means unbounded.
func (p *Paginator[T]) Iterator(ctx context.Context, path string, query CompiledQuery, limit int) *PaginationIterator[T] {
	return NewPaginationIterator[T](ctx, p, path, query, limit)
}

// Stream returns a single-use sequence over the endpoint. Pages are fetched
// only when the consumer needs the next item and never more than one at a
// time. A second range over the same sequence yields ErrIteratorConsumed.
func (p *Paginator[T]) Stream(ctx context.Context, path string, query CompiledQuery, limit int) iter.Seq2[T, error] {
	return NewPaginationIterator[T](ctx, p, path, query, limit).Seq()
}

// Pages returns a single-use sequence of whole pages.
func (p *Paginator[T]) Pages(ctx context.Context, path string, query CompiledQuery) iter.Seq2[*Page[T], error] {
	return pages[T](ctx, p, path, query, 0)
}

// PaginationIterator yields items one at a time, fetching pages on demand.
// Errors are reported by Next, after the items already fetched.
type PaginationIterator[T any] struct {
	ctx     context.Context
	fetcher PageFetcher[T]
	path    string
	query   CompiledQuery
	limit   int

	buffer   []T
	index    int
	next     string
	started  bool
	hasMore  bool
	yielded  int
	first    *PageInfo
	err      error
	failed   bool
	consumed atomic.Bool
}

// NewPaginationIterator creates an iterator. No page is fetched until HasNext
// or Next is called. When limit is below the page size, the page size is
// reduced to limit. A query without a page size uses the fetcher's
// DefaultPageSize when it has one.
func NewPaginationIterator[T any](ctx context.Context, fetcher PageFetcher[T], path string, query CompiledQuery, limit int) *PaginationIterator[T] {
	if limit < 0 {
		limit = 0
	}

	effective := query.PageSize
	if effective <= 0 {
		effective = defaultPageSize(fetcher)
	}

	if limit > 0 && limit < effective {
		query.PageSize = limit
	}

	return &PaginationIterator[T]{
		ctx:     ctx,
		fetcher: fetcher,
		path:    path,
		query:   query,
		limit:   limit,
	}
}

func defaultPageSize(fetcher any) int {
	if sized, ok := fetcher.(interface{ DefaultPageSize() int }); ok {
		if n := sized.DefaultPageSize(); n > 0 {
			return n
		}
	}

	return constants.DefaultPageSize
}

// HasNext reports whether Next will return an item or an error.
func (it *PaginationIterator[T]) HasNext() bool {
	if it.failed {
		return false
	}

	if it.err != nil {
		return true
	}

	if it.limit > 0 && it.yielded >= it.limit {
		return false
	}

	for it.index >= len(it.buffer) {
		if it.started && !it.hasMore {
			return false
		}

		err := it.fetch()
		if err != nil {
			it.err = err
			return true
		}
	}

	return true
}

// Next returns the next item.
func (it *PaginationIterator[T]) Next() (T, error) {
	var zero T

	if !it.HasNext() {
		return zero, ErrNoMoreItems
	}

	if it.err != nil {
		it.failed = true
		return zero, it.err
	}

	item := it.buffer[it.index]
	it.index++
	it.yielded++

	return item, nil
}

// All drains the iterator.
func (it *PaginationIterator[T]) All() ([]T, error) {
	var out []T

	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return out, err
		}

		out = append(out, item)
	}

	return out, nil
}

// ForEach calls fn for every remaining item, stopping at the first error.
func (it *PaginationIterator[T]) ForEach(fn func(T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

// FirstPage returns the metadata of the first fetched page, or nil before any
// fetch.
func (it *PaginationIterator[T]) FirstPage() *PageInfo {
	return it.first
}

// Seq adapts the iterator to a range-over-func sequence. The sequence can be
// ranged once.
func (it *PaginationIterator[T]) Seq() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if !it.consumed.CompareAndSwap(false, true) {
			var zero T

			yield(zero, ErrIteratorConsumed)

			return
		}

		for it.HasNext() {
			item, err := it.Next()
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

func (it *PaginationIterator[T]) fetch() error {
	err := it.ctx.Err()
	if err != nil {
		return err
	}

	page, err := it.fetcher.FetchPage(it.ctx, it.path, it.query, it.next)
	if err != nil {
		return err
	}

	if it.first == nil {
		info := page.Info()
		it.first = &info
	}

	it.started = true
	it.buffer = page.Items
	it.index = 0
	it.hasMore = page.HasMore && page.Next != ""
	it.next = page.Next

	return nil
}

// PaginationOptions bounds FetchAllPages.
type PaginationOptions struct {
	// PageSize overrides the query page size when positive.
	PageSize int
	// MaxPages stops after that many pages when positive.
	MaxPages int
}

// FetchAllPages collects items from every page, honouring options.
func FetchAllPages[T any](ctx context.Context, fetcher PageFetcher[T], path string, query CompiledQuery, options *PaginationOptions) ([]T, error) {
	maxPages := 0

	if options != nil {
		if options.PageSize > 0 {
			if options.PageSize > MaxPageSize {
				return nil, invalidArgument("page_size", options.PageSize, "exceeds maximum page size")
			}

			query.PageSize = options.PageSize
		}

		maxPages = options.MaxPages
	}

	var all []T

	for page, err := range pages[T](ctx, fetcher, path, query, maxPages) {
		if err != nil {
			return all, err
		}

		all = append(all, page.Items...)
	}

	return all, nil
}

func pages[T any](ctx context.Context, fetcher PageFetcher[T], path string, query CompiledQuery, maxPages int) iter.Seq2[*Page[T], error] {
	var consumed atomic.Bool

	return func(yield func(*Page[T], error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			yield(nil, ErrIteratorConsumed)
			return
		}

		token := ""

		for count := 0; maxPages <= 0 || count < maxPages; count++ {
			err := ctx.Err()
			if err != nil {
				yield(nil, err)
				return
			}

			page, err := fetcher.FetchPage(ctx, path, query, token)
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(page, nil) || !page.HasMore || page.Next == "" {
				return
			}

			token = page.Next
		}
	}
}
