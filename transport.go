package docqa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// defaultMaxBodyBytes bounds how much of a response body the transport buffers.
const defaultMaxBodyBytes = 10 << 20

// Request describes a single API call. It is not modified by the executor; every
// attempt sends a clone so a transport that consumes the body cannot affect retries.
type Request struct {
	URL    string
	Method string
	Header http.Header
	Body   []byte
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	clone := &Request{
		URL:    r.URL,
		Method: r.Method,
		Header: r.Header.Clone(),
	}
	if r.Body != nil {
		clone.Body = append([]byte(nil), r.Body...)
	}
	return clone
}

// Response is a fully buffered HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// StatusText returns the reason phrase of the response, e.g. "Not Found".
// It prefers the text sent by the server and falls back to the standard phrase.
func (r *Response) StatusText() string {
	text := strings.TrimSpace(strings.TrimPrefix(r.Status, strconv.Itoa(r.StatusCode)))
	if text == "" {
		text = http.StatusText(r.StatusCode)
	}
	return text
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HTTPTransport sends requests with an *http.Client.
// It returns an error only when no response was received; every HTTP status, including
// 5xx, is returned as a *Response so the executor can apply its status policy.
type HTTPTransport struct {
	client       *http.Client
	maxBodyBytes int64
}

// NewHTTPTransport creates a transport around client.
// A nil client gets a default client with a 30 second timeout.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{
		client:       client,
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

// Execute implements ResilientClient[*Request, *Response].
func (t *HTTPTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", req.Method, err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		// url.Error repeats the full URL, including any auth query parameter.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("%s %s: %w", req.Method, redactURL(req.URL), err)
	}
	defer httpResp.Body.Close()

	// A body that cannot be read in full is left truncated; the executor treats it
	// as an unreadable payload after the status code has been inspected.
	data, _ := io.ReadAll(io.LimitReader(httpResp.Body, t.maxBodyBytes))

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// redactURL strips the query string, which may carry the auth token on uploads.
func redactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
