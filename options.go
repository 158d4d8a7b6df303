package docqa

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Sleeper waits for d or until ctx is done, returning ctx.Err() in the latter case.
// Tests inject a recording Sleeper so backoff can be asserted without real delays.
type Sleeper func(ctx context.Context, d time.Duration) error

// ExecutorConfig holds executor configuration options.
type ExecutorConfig struct {
	// Logger for attempt and outcome logging.
	// Default: slog.Default()
	Logger *slog.Logger

	// Sleeper performs the backoff wait.
	// Default: a context-aware timer
	Sleeper Sleeper

	// Metrics records attempts, outcomes and backoff delays. Nil disables metrics.
	Metrics *Metrics

	// RateLimiter, if set, is waited on before every attempt.
	RateLimiter *rate.Limiter

	// InitialDelay is the delay after the first failed attempt. The delay after
	// attempt k (0-indexed) is InitialDelay * 2^k, without jitter or cap.
	// Default: 1 second
	InitialDelay time.Duration

	// MaxAttempts is the maximum number of attempts (including the initial request).
	// Default: 3
	MaxAttempts int
}

// ExecutorOption is a functional option for configuring the executor.
type ExecutorOption func(*ExecutorConfig)

// WithMaxAttempts sets the attempt budget. Values <= 0 make every call fail without
// touching the network.
//
// Example:
//
//	docqa.WithMaxAttempts(5) // Try up to 5 times total
func WithMaxAttempts(attempts int) ExecutorOption {
	return func(c *ExecutorConfig) {
		c.MaxAttempts = attempts
	}
}

// WithInitialDelay sets the first backoff delay; later delays double.
//
// Example:
//
//	docqa.WithInitialDelay(500 * time.Millisecond) // 500ms, 1s, 2s, ...
func WithInitialDelay(delay time.Duration) ExecutorOption {
	return func(c *ExecutorConfig) {
		c.InitialDelay = delay
	}
}

// WithSleeper replaces the backoff wait.
func WithSleeper(sleeper Sleeper) ExecutorOption {
	return func(c *ExecutorConfig) {
		c.Sleeper = sleeper
	}
}

// WithLogger sets a custom logger for executor operations.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	docqa.WithLogger(logger)
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(c *ExecutorConfig) {
		c.Logger = logger
	}
}

// WithMetrics records executor activity in Prometheus collectors.
func WithMetrics(m *Metrics) ExecutorOption {
	return func(c *ExecutorConfig) {
		c.Metrics = m
	}
}

// WithRateLimiter throttles attempts on the client side.
//
// Example:
//
//	docqa.WithRateLimiter(rate.NewLimiter(rate.Limit(2), 1)) // 2 attempts per second
func WithRateLimiter(limiter *rate.Limiter) ExecutorOption {
	return func(c *ExecutorConfig) {
		c.RateLimiter = limiter
	}
}

// DefaultExecutorConfig returns executor configuration with the documented defaults.
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Sleeper:      sleepContext,
		Logger:       slog.Default(),
	}
}

// sleepContext is the default Sleeper.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CircuitBreakerConfig holds circuit breaker configuration options.
type CircuitBreakerConfig struct {
	// ReadyToTrip is called with a copy of counts whenever a request fails in the closed state.
	// If ReadyToTrip returns true, the circuit breaker will be placed into the open state.
	// Default: trips after 5 requests with a 60% failure rate
	ReadyToTrip func(counts CircuitBreakerCounts) bool

	// ErrorClassifier determines which errors should trip the circuit breaker.
	// Default: HTTPStatusClassifier
	ErrorClassifier CircuitBreakerErrorClassifier

	// OnStateChange is called whenever the circuit breaker changes state.
	OnStateChange func(name string, from, to CircuitBreakerState)

	// Logger for circuit breaker operations.
	// Default: slog.Default()
	Logger *slog.Logger

	// Name identifies the breaker in logs.
	// Default: "docqa-api"
	Name string

	// Interval is the cyclic period of the closed state for the circuit breaker
	// to clear the internal counts. If 0, never clears.
	// Default: 60 seconds
	Interval time.Duration

	// Timeout is the period of the open state, after which the state becomes half-open.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRequests is the maximum number of requests allowed to pass through
	// when the circuit breaker is in the half-open state.
	// Default: 1
	MaxRequests uint32
}

// CircuitBreakerOption is a functional option for configuring circuit breaker behavior.
type CircuitBreakerOption func(*CircuitBreakerConfig)

// CircuitBreakerCounts holds the internal counts of the circuit breaker.
type CircuitBreakerCounts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// CircuitBreakerState represents the state of the circuit breaker.
type CircuitBreakerState int

const (
	// StateClosed means the circuit is closed and requests flow normally.
	StateClosed CircuitBreakerState = iota

	// StateHalfOpen means the circuit is testing if the service has recovered.
	StateHalfOpen

	// StateOpen means the circuit is open and requests are rejected immediately.
	StateOpen
)

// String returns the string representation of the circuit breaker state.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// WithBreakerName sets the name reported in logs and state change callbacks.
func WithBreakerName(name string) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Name = name
	}
}

// WithMaxRequests sets the maximum number of requests in half-open state.
func WithMaxRequests(maxRequests uint32) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.MaxRequests = maxRequests
	}
}

// WithInterval sets the interval for clearing counts in closed state.
func WithInterval(interval time.Duration) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Interval = interval
	}
}

// WithTimeout sets the timeout for staying in open state.
//
// Example:
//
//	docqa.WithTimeout(60 * time.Second)
func WithTimeout(timeout time.Duration) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Timeout = timeout
	}
}

// WithReadyToTrip sets a custom function to determine when to trip the circuit.
//
// Example:
//
//	docqa.WithReadyToTrip(func(counts docqa.CircuitBreakerCounts) bool {
//	    return counts.ConsecutiveFailures >= 3
//	})
func WithReadyToTrip(fn func(counts CircuitBreakerCounts) bool) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.ReadyToTrip = fn
	}
}

// WithCircuitBreakerErrorClassifier sets a custom error classifier for circuit breaker decisions.
func WithCircuitBreakerErrorClassifier(classifier CircuitBreakerErrorClassifier) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.ErrorClassifier = classifier
	}
}

// WithStateChangeHandler sets a callback for circuit breaker state changes.
func WithStateChangeHandler(fn func(name string, from, to CircuitBreakerState)) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.OnStateChange = fn
	}
}

// WithCircuitBreakerLogger sets a custom logger for circuit breaker operations.
func WithCircuitBreakerLogger(logger *slog.Logger) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Logger = logger
	}
}

// DefaultCircuitBreakerConfig returns circuit breaker configuration with sensible defaults.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:        "docqa-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts CircuitBreakerCounts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		ErrorClassifier: DefaultCircuitBreakerErrorClassifier(),
		Logger:          slog.Default(),
	}
}
