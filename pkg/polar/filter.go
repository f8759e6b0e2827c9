package polar

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FilterOperator is the comparison applied by a predicate.
type FilterOperator string

// Supported filter operators.
const (
	OpEq  FilterOperator = "eq"
	OpIn  FilterOperator = "in"
	OpGte FilterOperator = "gte"
	OpLte FilterOperator = "lte"
)

// Valid reports whether the operator is supported.
func (o FilterOperator) Valid() bool {
	switch o {
	case OpEq, OpIn, OpGte, OpLte:
		return true
	default:
		return false
	}
}

// Predicate is a single field/operator/value constraint. Values holds one
// entry for scalar operators and one entry per element for OpIn.
type Predicate struct {
	Field    string
	Operator FilterOperator
	Values   []string
}

// Key returns the query parameter name the predicate serialises under.
func (p Predicate) Key() string {
	switch p.Operator {
	case OpGte, OpLte:
		return p.Field + "[" + string(p.Operator) + "]"
	default:
		return p.Field
	}
}

// FilterExpression is an immutable, ordered set of predicates. The zero value
// is an empty expression. Predicates on the same field are additive: values of
// repeated OpIn predicates are OR'd within the field, distinct fields are AND'd.
type FilterExpression struct {
	predicates []Predicate
}

// Add returns a new expression with the predicate appended. The receiver is
// left untouched.
func (f FilterExpression) Add(field string, op FilterOperator, value any) (FilterExpression, error) {
	if strings.TrimSpace(field) == "" {
		return f, invalidArgument(field, value, "field name is required")
	}

	if !op.Valid() {
		return f, invalidArgument(field, op, "unsupported operator")
	}

	var (
		values []string
		err    error
	)

	if op == OpIn {
		values, err = formatSequence(field, value)
	} else {
		values, err = formatOperand(field, op, value)
	}

	if err != nil {
		return f, err
	}

	next := make([]Predicate, len(f.predicates), len(f.predicates)+1)
	copy(next, f.predicates)
	next = append(next, Predicate{Field: field, Operator: op, Values: values})

	return FilterExpression{predicates: next}, nil
}

// Len returns the number of predicates.
func (f FilterExpression) Len() int {
	return len(f.predicates)
}

// Predicates returns a copy of the predicates in application order.
func (f FilterExpression) Predicates() []Predicate {
	out := make([]Predicate, len(f.predicates))
	for i, p := range f.predicates {
		out[i] = Predicate{
			Field:    p.Field,
			Operator: p.Operator,
			Values:   append([]string(nil), p.Values...),
		}
	}

	return out
}

// ToQueryParameters serialises the expression to transport parameters. Values
// under the same key keep application order.
func (f FilterExpression) ToQueryParameters() url.Values {
	values := url.Values{}

	for _, p := range f.predicates {
		key := p.Key()
		for _, v := range p.Values {
			values.Add(key, v)
		}
	}

	return values
}

// Encode returns a deterministic query string that preserves predicate order.
func (f FilterExpression) Encode() string {
	var b strings.Builder

	for _, p := range f.predicates {
		key := url.QueryEscape(p.Key())
		for _, v := range p.Values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}

			b.WriteString(key)
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}

	return b.String()
}

func formatOperand(field string, op FilterOperator, value any) ([]string, error) {
	if isSequence(value) {
		return nil, invalidArgument(field, value, fmt.Sprintf("operator %s requires a scalar value", op))
	}

	s, ok := formatScalar(value)
	if !ok {
		return nil, invalidArgument(field, value, unsupportedReason("value", value))
	}

	return []string{s}, nil
}

func formatSequence(field string, value any) ([]string, error) {
	if !isSequence(value) {
		return nil, invalidArgument(field, value, "operator in requires a sequence value")
	}

	rv := reflect.ValueOf(value)
	if rv.Len() == 0 {
		return nil, invalidArgument(field, value, "operator in requires at least one value")
	}

	out := make([]string, 0, rv.Len())

	for i := range rv.Len() {
		elem := rv.Index(i).Interface()

		s, ok := formatScalar(elem)
		if !ok {
			return nil, invalidArgument(field, elem, unsupportedReason("element", elem))
		}

		out = append(out, s)
	}

	return out, nil
}

func isSequence(value any) bool {
	if value == nil {
		return false
	}

	kind := reflect.TypeOf(value).Kind()

	return kind == reflect.Slice || kind == reflect.Array
}

func formatScalar(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case decimal.Decimal:
		return v.String(), true
	case time.Time:
		return v.UTC().Format(time.RFC3339), true
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		if !isFinite(rv.Float()) {
			return "", false
		}

		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		if !isFinite(rv.Float()) {
			return "", false
		}

		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}

	if s, ok := value.(fmt.Stringer); ok {
		return s.String(), true
	}

	return "", false
}

func unsupportedReason(what string, value any) string {
	if isNonFinite(value) {
		return what + " must be a finite number"
	}

	return fmt.Sprintf("unsupported %s type %T", what, value)
}

// isNonFinite reports whether value is a NaN or infinite float.
func isNonFinite(value any) bool {
	if value == nil {
		return false
	}

	rv := reflect.ValueOf(value)
	if k := rv.Kind(); k != reflect.Float32 && k != reflect.Float64 {
		return false
	}

	return !isFinite(rv.Float())
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
