package docqa

import (
	"context"
	"errors"

	pkgerrors "github.com/JohnPlummer/jp-go-errors"
)

// Sentinel errors matched by errors.Is against a *Failure.
// Quota and circuit errors reuse the jp-go-errors sentinels so callers that already
// handle those do not need a docqa-specific branch.
var (
	ErrNetwork       = errors.New("network error")
	ErrServer        = errors.New("server error")
	ErrGateway       = errors.New("gateway error")
	ErrQuotaExceeded = pkgerrors.ErrRateLimited
	ErrNotFound      = errors.New("not found")
	ErrAuth          = errors.New("authentication failed")
	ErrCircuitOpen   = pkgerrors.ErrCircuitOpen
	ErrUnknown       = errors.New("unknown error")
)

// CircuitBreakerErrorClassifier determines whether an error should trip the circuit breaker.
// Implement this interface to customize circuit breaker behavior.
type CircuitBreakerErrorClassifier interface {
	// ShouldTripCircuit returns true if the error represents a failure serious enough
	// to open the circuit breaker and stop requests temporarily.
	ShouldTripCircuit(err error) bool
}

// HTTPStatusClassifier provides HTTP status code-based classification.
// RetryableStatuses drives the executor's backoff policy and CircuitTripStatuses drives
// the circuit breaker.
type HTTPStatusClassifier struct {
	// RetryableStatuses lists HTTP status codes that are retried with backoff.
	// Defaults to 500, 502, 503, 504 if nil. 429 is deliberately absent: quota
	// exhaustion does not clear within a backoff window.
	RetryableStatuses []int

	// CircuitTripStatuses lists HTTP status codes that count as breaker failures.
	// Defaults to 500, 502, 503, 504 if nil.
	CircuitTripStatuses []int
}

// HTTPError represents an error with an associated HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// NewHTTPStatusClassifier creates a new HTTPStatusClassifier with default status code mappings.
func NewHTTPStatusClassifier() *HTTPStatusClassifier {
	return &HTTPStatusClassifier{
		RetryableStatuses:   []int{500, 502, 503, 504},
		CircuitTripStatuses: []int{500, 502, 503, 504},
	}
}

// IsRetryableStatus reports whether a response with this status should be retried.
func (c *HTTPStatusClassifier) IsRetryableStatus(statusCode int) bool {
	return containsStatus(c.getRetryableStatuses(), statusCode)
}

// ShouldTripStatus reports whether a response with this status counts as a breaker failure.
func (c *HTTPStatusClassifier) ShouldTripStatus(statusCode int) bool {
	return containsStatus(c.getCircuitTripStatuses(), statusCode)
}

// ShouldTripCircuit implements CircuitBreakerErrorClassifier.
// Transport errors trip the circuit; rate limits, timeouts and caller cancellation do not.
func (c *HTTPStatusClassifier) ShouldTripCircuit(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, pkgerrors.ErrRateLimited) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	statusCode := extractStatusCode(err)
	if statusCode == 0 {
		// No response at all: connection refused, DNS failure, client timeout.
		return true
	}

	return c.ShouldTripStatus(statusCode)
}

func (c *HTTPStatusClassifier) getRetryableStatuses() []int {
	if c.RetryableStatuses != nil {
		return c.RetryableStatuses
	}
	return []int{500, 502, 503, 504}
}

func (c *HTTPStatusClassifier) getCircuitTripStatuses() []int {
	if c.CircuitTripStatuses != nil {
		return c.CircuitTripStatuses
	}
	return []int{500, 502, 503, 504}
}

// extractStatusCode attempts to extract an HTTP status code from an error chain.
func extractStatusCode(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	return 0
}

func containsStatus(statuses []int, status int) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// DefaultCircuitBreakerErrorClassifier trips on transport failures and 5xx responses,
// but not on 4xx responses, which say nothing about the health of the service.
func DefaultCircuitBreakerErrorClassifier() CircuitBreakerErrorClassifier {
	return NewHTTPStatusClassifier()
}

// StatusCodeError wraps an error with an HTTP status code.
type StatusCodeError struct {
	Err  error
	Code int
}

// Error implements the error interface.
func (e *StatusCodeError) Error() string {
	return e.Err.Error()
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *StatusCodeError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code.
func (e *StatusCodeError) StatusCode() int {
	return e.Code
}

// NewStatusCodeError creates a new StatusCodeError.
func NewStatusCodeError(statusCode int, err error) error {
	return &StatusCodeError{
		Code: statusCode,
		Err:  err,
	}
}
