package polar

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/polar-client/internal/constants"
	"github.com/shopspring/decimal"
)

// MaxPageSize is the largest page size accepted by WithPageSize.
const MaxPageSize = constants.MaxPageSize

// SortSpec orders a listing by a single field.
type SortSpec struct {
	Field     string
	Ascending bool
}

// String renders the sort the way the API expects: "field" or "-field".
func (s SortSpec) String() string {
	if s.Ascending {
		return s.Field
	}

	return "-" + s.Field
}

// QueryBuilder accumulates filters, sort order and page size. Every With*
// method returns a new builder; earlier builders are never modified and may be
// extended independently. The first validation failure is kept and reported
// by Err and Build.
type QueryBuilder struct {
	filter   FilterExpression
	sort     *SortSpec
	pageSize int
	err      error
}

// Querier is anything that compiles to a query: a QueryBuilder or one of the
// resource specific builders such as ProductsQuery.
type Querier interface {
	Build() (CompiledQuery, error)
}

// CompileQuery builds q. A nil q selects everything.
func CompileQuery(q Querier) (CompiledQuery, error) {
	if q == nil {
		return CompiledQuery{}, nil
	}

	return q.Build()
}

// NewQuery returns an empty builder. The zero QueryBuilder is equivalent.
func NewQuery() QueryBuilder {
	return QueryBuilder{}
}

// Where adds an arbitrary predicate.
func (q QueryBuilder) Where(field string, op FilterOperator, value any) QueryBuilder {
	if q.err != nil {
		return q
	}

	filter, err := q.filter.Add(field, op, value)
	if err != nil {
		q.err = err
		return q
	}

	q.filter = filter

	return q
}

// WithField adds an equality predicate.
func (q QueryBuilder) WithField(field string, value any) QueryBuilder {
	return q.Where(field, OpEq, value)
}

// WithIn adds a membership predicate. values must be a non-empty slice or array.
func (q QueryBuilder) WithIn(field string, values any) QueryBuilder {
	return q.Where(field, OpIn, values)
}

// WithRange adds inclusive bounds on field. Either bound may be nil, but not
// both. When both are given they must be comparable and gte must not exceed lte.
func (q QueryBuilder) WithRange(field string, gte, lte any) QueryBuilder {
	if q.err != nil {
		return q
	}

	if gte == nil && lte == nil {
		q.err = invalidArgument(field, nil, "range requires at least one bound")
		return q
	}

	for _, bound := range []any{gte, lte} {
		if isNonFinite(bound) {
			q.err = invalidArgument(field, bound, "range bound must be a finite number")
			return q
		}
	}

	if gte != nil && lte != nil {
		cmp, ok := compareBounds(gte, lte)
		if !ok {
			q.err = invalidArgument(field, [2]any{gte, lte}, fmt.Sprintf("range bounds %T and %T are not comparable", gte, lte))
			return q
		}

		if cmp > 0 {
			q.err = invalidArgument(field, [2]any{gte, lte}, "lower bound is greater than upper bound")
			return q
		}
	}

	if gte != nil {
		q = q.Where(field, OpGte, gte)
	}

	if lte != nil {
		q = q.Where(field, OpLte, lte)
	}

	return q
}

// WithSort orders results by field.
func (q QueryBuilder) WithSort(field string, ascending bool) QueryBuilder {
	if q.err != nil {
		return q
	}

	if strings.TrimSpace(field) == "" {
		q.err = invalidArgument("sorting", field, "sort field is required")
		return q
	}

	q.sort = &SortSpec{Field: field, Ascending: ascending}

	return q
}

// WithPageSize sets the number of items requested per page, 1 to MaxPageSize.
func (q QueryBuilder) WithPageSize(n int) QueryBuilder {
	if q.err != nil {
		return q
	}

	if n < 1 || n > MaxPageSize {
		q.err = invalidArgument("page_size", n, fmt.Sprintf("must be between 1 and %d", MaxPageSize))
		return q
	}

	q.pageSize = n

	return q
}

// Err returns the first validation error recorded by the builder.
func (q QueryBuilder) Err() error {
	return q.err
}

// Build compiles the builder. It fails with the recorded validation error, if any.
func (q QueryBuilder) Build() (CompiledQuery, error) {
	if q.err != nil {
		return CompiledQuery{}, q.err
	}

	compiled := CompiledQuery{
		Filter:   q.filter,
		PageSize: q.pageSize,
	}

	if q.sort != nil {
		sort := *q.sort
		compiled.Sort = &sort
	}

	return compiled, nil
}

// CompiledQuery is the validated, transport ready form of a QueryBuilder.
// PageSize is zero when the server default applies.
type CompiledQuery struct {
	Filter   FilterExpression
	Sort     *SortSpec
	PageSize int
}

// FilterValues returns the filter and sort parameters, without paging.
func (c CompiledQuery) FilterValues() url.Values {
	values := c.Filter.ToQueryParameters()

	if c.Sort != nil {
		values.Set(constants.ParamSorting, c.Sort.String())
	}

	return values
}

// ToValues returns every query parameter, including the page size when set.
func (c CompiledQuery) ToValues() url.Values {
	values := c.FilterValues()

	if c.PageSize > 0 {
		values.Set(constants.ParamLimit, strconv.Itoa(c.PageSize))
	}

	return values
}

// Encode returns a deterministic query string: filters in application order,
// then sorting, then limit.
func (c CompiledQuery) Encode() string {
	parts := make([]string, 0, 3)

	if s := c.Filter.Encode(); s != "" {
		parts = append(parts, s)
	}

	if c.Sort != nil {
		parts = append(parts, constants.ParamSorting+"="+url.QueryEscape(c.Sort.String()))
	}

	if c.PageSize > 0 {
		parts = append(parts, constants.ParamLimit+"="+strconv.Itoa(c.PageSize))
	}

	return strings.Join(parts, "&")
}

// compareBounds orders two range bounds. Numbers compare exactly as decimals,
// times chronologically and strings lexically.
func compareBounds(a, b any) (int, bool) {
	if da, ok := toDecimal(a); ok {
		db, ok := toDecimal(b)
		if !ok {
			return 0, false
		}

		return da.Cmp(db), true
	}

	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}

		return ta.Compare(tb), true
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.String && rb.Kind() == reflect.String {
		return strings.Compare(ra.String(), rb.String()), true
	}

	return 0, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	if d, ok := v.(decimal.Decimal); ok {
		return d, true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.RequireFromString(strconv.FormatUint(rv.Uint(), 10)), true
	case reflect.Float32:
		if !isFinite(rv.Float()) {
			return decimal.Decimal{}, false
		}

		return decimal.NewFromFloat32(float32(rv.Float())), true
	case reflect.Float64:
		if !isFinite(rv.Float()) {
			return decimal.Decimal{}, false
		}

		return decimal.NewFromFloat(rv.Float()), true
	default:
		return decimal.Decimal{}, false
	}
}
