package docqa

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// Executor sends a Request through a transport, retrying transient failures with
// exponential backoff, and resolves every call to an Outcome.
//
// The executor keeps no per-call state outside Execute and is safe for concurrent use
// by independent requests; only the statistics are shared, behind a mutex.
type Executor struct {
	transport ResilientClient[*Request, *Response]
	config    *ExecutorConfig
	logger    *slog.Logger
	stats     *executorStats
}

// executorStats tracks executor statistics.
type executorStats struct {
	mu              sync.RWMutex
	totalAttempts   int64
	totalRetries    int64
	totalSuccesses  int64
	totalFailures   int64
	lastAttemptTime time.Time
	lastFailure     *Failure
}

// NewExecutor creates an executor over transport.
//
// Example:
//
//	executor := docqa.NewExecutor(
//	    docqa.NewHTTPTransport(nil),
//	    docqa.WithMaxAttempts(3),
//	    docqa.WithLogger(logger),
//	)
func NewExecutor(transport ResilientClient[*Request, *Response], opts ...ExecutorOption) *Executor {
	config := DefaultExecutorConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Sleeper == nil {
		config.Sleeper = sleepContext
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = time.Second
	}

	return &Executor{
		transport: transport,
		config:    config,
		logger:    config.Logger,
		stats:     &executorStats{},
	}
}

// Execute runs the attempt loop for req and never returns an error: transport and
// status failures are classified into the returned Outcome.
func (e *Executor) Execute(ctx context.Context, req *Request) Outcome {
	maxAttempts := e.config.MaxAttempts
	if maxAttempts <= 0 {
		return e.finish(fail(&Failure{
			Kind:    KindUnknown,
			Message: "Request was not sent: the retry budget allows no attempts.",
		}), 0)
	}

	backoff := e.newBackoff(maxAttempts)
	state := StateAttempting
	attempt, calls := 0, 0
	var last Outcome

	for {
		switch state {
		case StateAttempting:
			if err := e.beforeAttempt(ctx); err != nil {
				e.logger.Warn("request abandoned before attempt",
					"attempt", attempt,
					"error", err)
				if attempt == 0 {
					last = fail(&Failure{
						Kind:    KindNetworkError,
						Message: messageFor(KindNetworkError, ""),
						Cause:   err,
					})
				}
				state = StateResolved
				continue
			}

			e.recordAttempt(attempt)
			calls++
			resp, err := e.transport.Execute(ctx, req.Clone())
			t := Step(attempt, maxAttempts, resp, err)
			e.config.Metrics.observeAttempt(t)

			if t.Next == StateBackingOff {
				f := t.Outcome.Failure()
				e.logger.Debug("attempt failed, backing off",
					"attempt", attempt,
					"max_attempts", maxAttempts,
					"kind", f.Kind,
					"status", f.HTTPStatus,
					"error", f.Cause)
			}
			state, last = t.Next, t.Outcome

		case StateBackingOff:
			delay, stop := backoff.Next()
			if stop {
				state = StateResolved
				continue
			}
			e.config.Metrics.observeBackoff(delay)
			if err := e.config.Sleeper(ctx, delay); err != nil {
				e.logger.Warn("backoff interrupted",
					"attempt", attempt,
					"delay", delay,
					"error", err)
				state = StateResolved
				continue
			}
			attempt++
			state = StateAttempting

		case StateResolved:
			return e.finish(last, calls)
		}
	}
}

// beforeAttempt checks the caller's context and waits on the rate limiter.
func (e *Executor) beforeAttempt(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.config.RateLimiter != nil {
		return e.config.RateLimiter.Wait(ctx)
	}
	return nil
}

// newBackoff returns a fresh delay sequence: InitialDelay * 2^k for the k-th retry.
// go-retry's Do is not used because its loop cannot express the non-retryable
// short-circuits as states; only the backoff arithmetic is shared.
func (e *Executor) newBackoff(maxAttempts int) retry.Backoff {
	maxRetries := maxAttempts - 1
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retry.WithMaxRetries(
		uint64(maxRetries), // #nosec G115 - bounds checked above
		retry.NewExponential(e.config.InitialDelay),
	)
}

func (e *Executor) recordAttempt(attempt int) {
	e.stats.mu.Lock()
	e.stats.totalAttempts++
	if attempt > 0 {
		e.stats.totalRetries++
	}
	e.stats.lastAttemptTime = time.Now()
	e.stats.mu.Unlock()
}

func (e *Executor) finish(outcome Outcome, attempts int) Outcome {
	e.config.Metrics.observeOutcome(outcome)

	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()

	if f := outcome.Failure(); f != nil {
		e.stats.totalFailures++
		e.stats.lastFailure = f
		e.logger.Warn("request failed",
			"kind", f.Kind,
			"status", f.HTTPStatus,
			"error_type", f.ErrorType,
			"attempts", attempts)
		return outcome
	}

	e.stats.totalSuccesses++
	if attempts > 1 {
		e.logger.Info("request succeeded after retry",
			"attempts", attempts)
	}
	return outcome
}

// ExecutorStats holds statistics about executor operations.
type ExecutorStats struct {
	// TotalAttempts is the total number of transport calls (including initial and retries)
	TotalAttempts int64

	// TotalRetries is the number of transport calls after the first one of a request
	TotalRetries int64

	// TotalSuccesses is the number of requests resolved to a success
	TotalSuccesses int64

	// TotalFailures is the number of requests resolved to a failure
	TotalFailures int64

	// LastAttemptTime is the time of the last transport call
	LastAttemptTime time.Time

	// LastFailure is the most recent failure (if any)
	LastFailure *Failure
}

// Stats returns a snapshot of the executor statistics. It is safe for concurrent use.
func (e *Executor) Stats() ExecutorStats {
	e.stats.mu.RLock()
	defer e.stats.mu.RUnlock()

	return ExecutorStats{
		TotalAttempts:   e.stats.totalAttempts,
		TotalRetries:    e.stats.totalRetries,
		TotalSuccesses:  e.stats.totalSuccesses,
		TotalFailures:   e.stats.totalFailures,
		LastAttemptTime: e.stats.lastAttemptTime,
		LastFailure:     e.stats.lastFailure,
	}
}
