package docqa

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/JohnPlummer/jp-go-errors"
	"github.com/sony/gobreaker/v2"
)

// State is a state of the executor's attempt loop.
type State int

const (
	// StateAttempting sends one request through the transport.
	StateAttempting State = iota

	// StateBackingOff waits before the next attempt.
	StateBackingOff

	// StateResolved holds the terminal Outcome.
	StateResolved
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateBackingOff:
		return "backing-off"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Transition is the result of evaluating one attempt.
// When Next is StateResolved, Outcome is terminal. When Next is StateBackingOff,
// Outcome is the failure observed so far, returned if no further attempt happens.
type Transition struct {
	Next    State
	Outcome Outcome
}

// errorBody is the JSON body the backend sends with non-2xx responses.
type errorBody struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

var statusPolicy = NewHTTPStatusClassifier()

// Step decides what follows attempt (0-indexed) given what the transport returned.
// It does no I/O and never sleeps, so the retry policy can be tested without timers.
//
// Order of evaluation: transport error, 429, retryable 5xx, 401, 404, other non-2xx, 2xx.
func Step(attempt, maxAttempts int, resp *Response, err error) Transition {
	lastAttempt := attempt >= maxAttempts-1

	if err == nil && resp == nil {
		err = errors.New("transport returned no response")
	}

	if err != nil {
		if isCircuitRejection(err) {
			return resolve(&Failure{
				Kind:    KindCircuitOpen,
				Message: messageFor(KindCircuitOpen, ""),
				Cause:   err,
			})
		}
		f := &Failure{
			Kind:    KindNetworkError,
			Message: messageFor(KindNetworkError, ""),
			Cause:   err,
		}
		if lastAttempt {
			return resolve(f)
		}
		return backOff(f)
	}

	payload, parseErr := parsePayload(resp.Body)
	upstream := parseErrorBody(payload)

	switch code := resp.StatusCode; {
	case code == http.StatusTooManyRequests:
		return resolve(&Failure{
			Kind:       KindQuotaExceeded,
			Message:    messageFor(KindQuotaExceeded, ""),
			HTTPStatus: code,
			ErrorType:  upstream.ErrorType,
		})

	case statusPolicy.IsRetryableStatus(code):
		kind := KindGatewayError
		if code == http.StatusInternalServerError {
			kind = KindServerError
		}
		f := &Failure{
			Kind:       kind,
			Message:    messageFor(kind, ""),
			HTTPStatus: code,
			ErrorType:  upstream.ErrorType,
			Cause:      upstreamCause(upstream),
		}
		if lastAttempt {
			return resolve(f)
		}
		return backOff(f)

	case code == http.StatusUnauthorized:
		return resolve(&Failure{
			Kind:       KindAuthFailure,
			Message:    messageFor(KindAuthFailure, ""),
			HTTPStatus: code,
			ErrorType:  upstream.ErrorType,
			Cause:      upstreamCause(upstream),
		})

	case code == http.StatusNotFound:
		return resolve(&Failure{
			Kind:       KindNotFound,
			Message:    messageFor(KindNotFound, ""),
			HTTPStatus: code,
			ErrorType:  upstream.ErrorType,
			Cause:      upstreamCause(upstream),
		})

	case !resp.OK():
		// The backend may report quota exhaustion through error_type on a non-429 status.
		if upstream.ErrorType == string(KindQuotaExceeded) {
			return resolve(&Failure{
				Kind:       KindQuotaExceeded,
				Message:    messageFor(KindQuotaExceeded, ""),
				HTTPStatus: code,
				ErrorType:  upstream.ErrorType,
				Cause:      upstreamCause(upstream),
			})
		}
		message := upstream.Error
		if message == "" {
			message = fmt.Sprintf("HTTP %d: %s", code, resp.StatusText())
		}
		return resolve(&Failure{
			Kind:       KindUnknown,
			Message:    messageFor(KindUnknown, message),
			HTTPStatus: code,
			ErrorType:  upstream.ErrorType,
		})
	}

	if parseErr != nil {
		return resolve(&Failure{
			Kind:       KindUnknown,
			Message:    "The server returned an unreadable response. Please try again.",
			HTTPStatus: resp.StatusCode,
			Cause:      parseErr,
		})
	}
	return Transition{Next: StateResolved, Outcome: succeed(payload)}
}

func resolve(f *Failure) Transition {
	return Transition{Next: StateResolved, Outcome: fail(f)}
}

func backOff(f *Failure) Transition {
	return Transition{Next: StateBackingOff, Outcome: fail(f)}
}

func parsePayload(body []byte) (json.RawMessage, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("response body is not valid JSON (%d bytes)", len(body))
	}
	return json.RawMessage(body), nil
}

// parseErrorBody extracts error and error_type; anything that is not a JSON object
// yields an empty errorBody.
func parseErrorBody(payload json.RawMessage) errorBody {
	var body errorBody
	if payload == nil {
		return body
	}
	_ = json.Unmarshal(payload, &body)
	return body
}

func upstreamCause(body errorBody) error {
	if body.Error == "" {
		return nil
	}
	return errors.New(body.Error)
}

func isCircuitRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) ||
		errors.Is(err, pkgerrors.ErrCircuitOpen) ||
		errors.Is(err, pkgerrors.ErrCircuitHalfOpen)
}
