package docqa_test

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	docqa "github.com/JohnPlummer/jp-go-docqa"
)

// mockTransport implements ResilientClient for testing.
type mockTransport struct {
	executeFunc func(ctx context.Context, req *docqa.Request) (*docqa.Response, error)
	callCount   atomic.Int32

	mu       sync.Mutex
	requests []*docqa.Request
}

func (m *mockTransport) Execute(ctx context.Context, req *docqa.Request) (*docqa.Response, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.executeFunc == nil {
		return jsonResponse(http.StatusOK, `{}`), nil
	}
	return m.executeFunc(ctx, req)
}

func (m *mockTransport) getCallCount() int {
	return int(m.callCount.Load())
}

func (m *mockTransport) lastRequest() *docqa.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func (m *mockTransport) allRequests() []*docqa.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*docqa.Request(nil), m.requests...)
}

// sequence returns the responses in order, repeating the last one.
func sequence(steps ...func() (*docqa.Response, error)) func(context.Context, *docqa.Request) (*docqa.Response, error) {
	var i atomic.Int32
	return func(context.Context, *docqa.Request) (*docqa.Response, error) {
		n := int(i.Add(1)) - 1
		if n >= len(steps) {
			n = len(steps) - 1
		}
		return steps[n]()
	}
}

func respond(status int, body string) func() (*docqa.Response, error) {
	return func() (*docqa.Response, error) {
		return jsonResponse(status, body), nil
	}
}

func failWith(err error) func() (*docqa.Response, error) {
	return func() (*docqa.Response, error) {
		return nil, err
	}
}

func jsonResponse(status int, body string) *docqa.Response {
	return &docqa.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Quiet during tests
	}))
}
