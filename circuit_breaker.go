package docqa

import (
	"context"
	"errors"
	"log/slog"

	jperrors "github.com/JohnPlummer/jp-go-errors"
	"github.com/sony/gobreaker/v2"
)

// errTrippingStatus marks a response that the breaker counts as a failure. It never
// leaves Execute: the response itself is handed to the executor.
var errTrippingStatus = errors.New("response status counts as breaker failure")

// CircuitBreaker is a transport decorator that stops sending requests after repeated
// transport failures or 5xx responses. When open it rejects requests immediately and
// the executor resolves them to KindCircuitOpen without retrying.
type CircuitBreaker struct {
	transport  ResilientClient[*Request, *Response]
	cb         *gobreaker.CircuitBreaker[*Response]
	logger     *slog.Logger
	classifier CircuitBreakerErrorClassifier
}

// NewCircuitBreaker wraps transport.
//
// Example:
//
//	guarded := docqa.NewCircuitBreaker(
//	    docqa.NewHTTPTransport(nil),
//	    docqa.WithMaxRequests(1),
//	    docqa.WithTimeout(60*time.Second),
//	)
func NewCircuitBreaker(
	transport ResilientClient[*Request, *Response],
	opts ...CircuitBreakerOption,
) *CircuitBreaker {
	config := DefaultCircuitBreakerConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.ErrorClassifier == nil {
		config.ErrorClassifier = DefaultCircuitBreakerErrorClassifier()
	}
	if config.ReadyToTrip == nil {
		config.ReadyToTrip = DefaultCircuitBreakerConfig().ReadyToTrip
	}

	classifier := config.ErrorClassifier

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return config.ReadyToTrip(convertCounts(counts))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			config.Logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())

			if config.OnStateChange != nil {
				config.OnStateChange(name, convertGobreakerState(from), convertGobreakerState(to))
			}
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !classifier.ShouldTripCircuit(err)
		},
	}

	return &CircuitBreaker{
		transport:  transport,
		cb:         gobreaker.NewCircuitBreaker[*Response](settings),
		logger:     config.Logger,
		classifier: classifier,
	}
}

// Execute implements ResilientClient[*Request, *Response].
// Breaker rejections are wrapped with jperrors types:
//   - gobreaker.ErrOpenState becomes a jperrors circuit breaker error in state "open"
//   - gobreaker.ErrTooManyRequests becomes one in state "half-open"
func (b *CircuitBreaker) Execute(ctx context.Context, req *Request) (*Response, error) {
	var observed *Response

	_, err := b.cb.Execute(func() (*Response, error) {
		resp, err := b.transport.Execute(ctx, req)
		if err != nil {
			return nil, err
		}
		observed = resp
		if b.classifier.ShouldTripCircuit(NewStatusCodeError(resp.StatusCode, errTrippingStatus)) {
			return resp, NewStatusCodeError(resp.StatusCode, errTrippingStatus)
		}
		return resp, nil
	})

	switch {
	case err == nil:
		return observed, nil
	case errors.Is(err, errTrippingStatus):
		return observed, nil
	case errors.Is(err, gobreaker.ErrOpenState):
		counts := b.cb.Counts()
		b.logger.Warn("circuit breaker is open, request rejected",
			"state", b.cb.State().String(),
			"consecutive_failures", counts.ConsecutiveFailures)
		return nil, jperrors.NewCircuitBreakerError(
			"request rejected",
			"execute",
			"open",
			jperrors.WithCause(err),
			jperrors.WithCounts(toCircuitCounts(counts)),
		)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		counts := b.cb.Counts()
		b.logger.Debug("circuit breaker in half-open state, too many requests")
		return nil, jperrors.NewCircuitBreakerError(
			"too many requests in half-open state",
			"execute",
			"half-open",
			jperrors.WithCause(err),
			jperrors.WithCounts(toCircuitCounts(counts)),
		)
	default:
		b.logger.Debug("transport failed through circuit breaker",
			"error", err,
			"should_trip", b.classifier.ShouldTripCircuit(err))
		return nil, err
	}
}

// State returns the current state of the circuit breaker.
func (b *CircuitBreaker) State() CircuitBreakerState {
	return convertGobreakerState(b.cb.State())
}

// Counts returns the current counts of the circuit breaker.
func (b *CircuitBreaker) Counts() CircuitBreakerCounts {
	return convertCounts(b.cb.Counts())
}

// Health returns the health status of the circuit breaker.
func (b *CircuitBreaker) Health() HealthStatus {
	state := b.State()
	counts := b.Counts()

	return HealthStatus{
		// Half-open is degraded but operational.
		Healthy:              state != StateOpen,
		State:                state.String(),
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
	}
}

func convertCounts(counts gobreaker.Counts) CircuitBreakerCounts {
	return CircuitBreakerCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

func toCircuitCounts(counts gobreaker.Counts) jperrors.CircuitCounts {
	return jperrors.CircuitCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

// convertGobreakerState converts gobreaker.State to our CircuitBreakerState.
func convertGobreakerState(state gobreaker.State) CircuitBreakerState {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}
