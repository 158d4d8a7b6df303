// Package docqa is a client for the document question-answering API.
// It uploads PDF documents, asks questions against an uploaded document and wraps every
// call in a bounded-retry executor that classifies failures for direct user display.
// Errors integrate with jp-go-errors so callers can use the same sentinels as other services.
package docqa

import (
	"context"
)

// ResilientClient defines a generic interface for executing a single request.
// Type parameters Req and Resp can be any types; the Executor consumes a
// ResilientClient[*Request, *Response] as its network transport, and decorators such as
// CircuitBreaker implement the same interface so they can be stacked in front of it.
//
// Example:
//
//	transport := docqa.NewHTTPTransport(&http.Client{Timeout: 30 * time.Second})
//	guarded := docqa.NewCircuitBreaker(transport, docqa.WithTimeout(time.Minute))
//
//	executor := docqa.NewExecutor(
//	    guarded,
//	    docqa.WithMaxAttempts(3),
//	    docqa.WithInitialDelay(time.Second),
//	)
type ResilientClient[Req, Resp any] interface {
	// Execute performs a request and returns a response or error.
	// The context should be used to control timeouts and cancellation.
	Execute(ctx context.Context, req Req) (Resp, error)
}
