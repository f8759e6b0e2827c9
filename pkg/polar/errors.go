package polar

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Error categories. Every typed error below matches exactly one of them with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTransport       = errors.New("transport error")
	ErrDeserialization = errors.New("deserialization error")
	ErrTimeout         = errors.New("timeout")
)

// Common static errors that can be wrapped with context.
var (
	ErrIteratorConsumed    = errors.New("iterator already consumed")
	ErrNoMoreItems         = errors.New("no more items")
	ErrConfigRequired      = errors.New("config is required")
	ErrAPIEndpointRequired = errors.New("API endpoint is required")
	ErrUnknownServer       = errors.New("unknown server")
	ErrCacheMiss           = errors.New("key not found")
	ErrCacheEntryExpired   = errors.New("entry expired")
	ErrEmptyBody           = errors.New("empty response body")
	ErrMissingItems        = errors.New("list response has no items member")
	ErrMissingJobID        = errors.New("export job has no id")
	ErrIncompleteJob       = errors.New("export job is missing terminal fields")
	ErrUnknownJobStatus    = errors.New("unknown export job status")
	ErrCircuitBreakerOpen  = errors.New("circuit breaker is open")
)

// InvalidArgumentError reports a malformed filter, query, or export parameter.
// It is produced by local validation and never reaches the transport.
type InvalidArgumentError struct {
	Field  string
	Value  any
	Reason string
}

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid argument: %s (value: %v)", e.Reason, e.Value)
	}

	return fmt.Sprintf("invalid argument %q: %s (value: %v)", e.Field, e.Reason, e.Value)
}

// Is matches ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalidArgument(field string, value any, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Field: field, Value: value, Reason: reason}
}

// TransportError wraps a network or HTTP level failure. The cause is passed
// through untouched and is reachable with errors.As (for example *APIError).
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Method, e.Path, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s %s failed: %v", e.Method, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// asTransportError wraps err in a *TransportError unless it already is one.
func asTransportError(method, path string, err error) error {
	transportErr := &TransportError{}
	if errors.As(err, &transportErr) {
		return err
	}

	return &TransportError{Method: method, Path: path, Err: err}
}

// DeserializationError reports a response body that does not fit the expected shape.
type DeserializationError struct {
	Target string
	Err    error
}

// Error implements the error interface.
func (e *DeserializationError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Target, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DeserializationError) Unwrap() error {
	return e.Err
}

// Is matches ErrDeserialization.
func (e *DeserializationError) Is(target error) bool {
	return target == ErrDeserialization
}

// TimeoutError is returned when an export does not reach a terminal state in time.
// Job holds the last observed, non-terminal state so polling can be resumed.
type TimeoutError struct {
	JobID   string
	Elapsed time.Duration
	Job     *ExportJob
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	status := "unknown"
	if e.Job != nil {
		status = string(e.Job.Status)
	}

	return fmt.Sprintf("export %s still %s after %s", e.JobID, status, e.Elapsed.Round(time.Millisecond))
}

// Is matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ValidationError is a single entry of a 422 response.
type ValidationError struct {
	Loc  []interface{} `json:"loc"  yaml:"loc"`
	Msg  string        `json:"msg"  yaml:"msg"`
	Type string        `json:"type" yaml:"type"`
}

// APIError represents an error body returned by the API.
type APIError struct {
	StatusCode int               `json:"-"                yaml:"-"`
	Type       string            `json:"error,omitempty"  yaml:"error,omitempty"`
	Detail     string            `json:"-"                yaml:"detail,omitempty"`
	Validation []ValidationError `json:"-"                yaml:"validation,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	title := e.Type
	if title == "" {
		title = http.StatusText(e.StatusCode)
	}

	detail := e.Detail
	if detail == "" && len(e.Validation) > 0 {
		msgs := make([]string, 0, len(e.Validation))
		for _, v := range e.Validation {
			msgs = append(msgs, fmt.Sprintf("%v: %s", v.Loc, v.Msg))
		}

		detail = strings.Join(msgs, "; ")
	}

	return fmt.Sprintf("%s: %s (status: %d)", title, detail, e.StatusCode)
}

// ParseAPIError parses an error body. The detail member is either a string or
// a list of validation errors.
func ParseAPIError(statusCode int, data []byte) (*APIError, error) {
	var raw struct {
		Error  string              `json:"error"`
		Detail jsoniter.RawMessage `json:"detail"`
	}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal API error: %w", err)
	}

	apiErr := &APIError{StatusCode: statusCode, Type: raw.Error}

	if len(raw.Detail) > 0 {
		var detail string
		if json.Unmarshal(raw.Detail, &detail) == nil {
			apiErr.Detail = detail
		} else {
			_ = json.Unmarshal(raw.Detail, &apiErr.Validation)
		}
	}

	return apiErr, nil
}

func statusOf(err error) int {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}

	transportErr := &TransportError{}
	if errors.As(err, &transportErr) {
		return transportErr.StatusCode
	}

	return 0
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return statusOf(err) == http.StatusForbidden
}

// IsRateLimited checks if the error is a rate limit error.
func IsRateLimited(err error) bool {
	return statusOf(err) == http.StatusTooManyRequests
}

// IsValidationError checks if the API rejected the request payload.
func IsValidationError(err error) bool {
	return statusOf(err) == http.StatusUnprocessableEntity
}
