package docqa

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies a failed request for the caller.
type ErrorKind string

const (
	// KindNetworkError means no response was received on any attempt.
	KindNetworkError ErrorKind = "NETWORK_ERROR"

	// KindServerError is a 500 that persisted through every attempt.
	KindServerError ErrorKind = "SERVER_ERROR"

	// KindGatewayError is a 502, 503 or 504 that persisted through every attempt.
	KindGatewayError ErrorKind = "GATEWAY_ERROR"

	// KindQuotaExceeded is a 429. Never retried.
	KindQuotaExceeded ErrorKind = "QUOTA_EXCEEDED"

	// KindNotFound is a 404. Never retried.
	KindNotFound ErrorKind = "NOT_FOUND"

	// KindAuthFailure is a 401 or a missing/expired token. The caller must re-authenticate.
	KindAuthFailure ErrorKind = "AUTH_FAILURE"

	// KindCircuitOpen means the circuit breaker rejected the request without sending it.
	KindCircuitOpen ErrorKind = "CIRCUIT_OPEN"

	// KindUnknown covers every other failure; the upstream message is forwarded verbatim.
	KindUnknown ErrorKind = "UNKNOWN_ERROR"
)

// sentinel returns the errors.Is target for the kind.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindNetworkError:
		return ErrNetwork
	case KindServerError:
		return ErrServer
	case KindGatewayError:
		return ErrGateway
	case KindQuotaExceeded:
		return ErrQuotaExceeded
	case KindNotFound:
		return ErrNotFound
	case KindAuthFailure:
		return ErrAuth
	case KindCircuitOpen:
		return ErrCircuitOpen
	default:
		return ErrUnknown
	}
}

// Failure is a classified request failure. Message is always suitable for direct display.
// A *Failure is also an error: errors.Is matches the kind's sentinel and the cause.
type Failure struct {
	Kind ErrorKind

	// Message is user-facing copy.
	Message string

	// HTTPStatus is the status code of the last response, or 0 if none was received.
	HTTPStatus int

	// ErrorType is the upstream error_type tag, if the backend supplied one.
	ErrorType string

	// Cause is the underlying transport error, if any.
	Cause error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.HTTPStatus != 0 {
		return fmt.Sprintf("%s (status %d): %s", f.Kind, f.HTTPStatus, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// StatusCode implements HTTPError.
func (f *Failure) StatusCode() int {
	return f.HTTPStatus
}

// Unwrap exposes the kind sentinel and the cause to errors.Is and errors.As.
func (f *Failure) Unwrap() []error {
	if f.Cause == nil {
		return []error{f.Kind.sentinel()}
	}
	return []error{f.Kind.sentinel(), f.Cause}
}

// Outcome is the terminal result of an attempt sequence: exactly one of a success
// payload or a Failure. The zero Outcome is not valid; use the executor's result.
type Outcome struct {
	payload json.RawMessage
	failure *Failure
}

func succeed(payload json.RawMessage) Outcome {
	if payload == nil {
		payload = json.RawMessage("null")
	}
	return Outcome{payload: payload}
}

func fail(f *Failure) Outcome {
	if f == nil {
		f = &Failure{Kind: KindUnknown, Message: messageFor(KindUnknown, "")}
	}
	return Outcome{failure: f}
}

// NewFailureOutcome builds a failed Outcome outside the executor, for example when a
// request is rejected locally before anything is sent.
func NewFailureOutcome(kind ErrorKind, message string) Outcome {
	if message == "" {
		message = messageFor(kind, "")
	}
	return fail(&Failure{Kind: kind, Message: message})
}

// IsSuccess reports whether the outcome carries a payload.
func (o Outcome) IsSuccess() bool {
	return o.failure == nil && o.payload != nil
}

// Payload returns the parsed response body of a successful outcome, or nil.
func (o Outcome) Payload() json.RawMessage {
	if !o.IsSuccess() {
		return nil
	}
	return o.payload
}

// Failure returns the classified failure, or nil on success.
func (o Outcome) Failure() *Failure {
	if o.failure != nil {
		return o.failure
	}
	if o.payload == nil {
		// Zero Outcome; report it rather than pretending it succeeded.
		return &Failure{Kind: KindUnknown, Message: messageFor(KindUnknown, "")}
	}
	return nil
}

// Err returns the failure as an error, or nil on success.
func (o Outcome) Err() error {
	if f := o.Failure(); f != nil {
		return f
	}
	return nil
}

// Decode unmarshals a successful payload into v.
func (o Outcome) Decode(v any) error {
	if f := o.Failure(); f != nil {
		return f
	}
	if err := json.Unmarshal(o.payload, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// Kind returns the failure kind, or "" on success.
func (o Outcome) Kind() ErrorKind {
	if f := o.Failure(); f != nil {
		return f.Kind
	}
	return ""
}

// AsFailure extracts a *Failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
