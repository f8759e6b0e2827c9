package polar_test

import (
	"context"
	"net/url"
	"sync"
)

type recordedCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// fakeTransport answers requests from a handler and records every call.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []recordedCall
	handler func(call recordedCall) ([]byte, error)
}

func (f *fakeTransport) Request(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	call := recordedCall{Method: method, Path: path, Query: query, Body: body}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return f.handler(call)
}

func (f *fakeTransport) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]recordedCall(nil), f.calls...)
}

func (f *fakeTransport) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

// scriptedTransport replays bodies in order and repeats the last one.
func scriptedTransport(bodies ...string) *fakeTransport {
	var (
		mu   sync.Mutex
		next int
	)

	return &fakeTransport{handler: func(recordedCall) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()

		body := bodies[min(next, len(bodies)-1)]
		next++

		return []byte(body), nil
	}}
}
