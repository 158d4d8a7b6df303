package docqa

// HealthStatus reports the state of the API circuit breaker and the executor.
type HealthStatus struct {
	// Healthy is false only while the circuit is open.
	Healthy bool `json:"healthy"`

	// State is the breaker state ("closed", "half-open", "open").
	State string `json:"state"`

	// Requests is the total number of requests in the current interval.
	Requests uint32 `json:"requests"`

	// TotalSuccesses is the total number of successful requests.
	TotalSuccesses uint32 `json:"total_successes"`

	// TotalFailures is the total number of failed requests.
	TotalFailures uint32 `json:"total_failures"`

	// ConsecutiveFailures is the number of consecutive failures.
	ConsecutiveFailures uint32 `json:"consecutive_failures"`

	// ConsecutiveSuccesses is the number of consecutive successes.
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`

	// LastFailureKind is the kind of the executor's most recent failure, if any.
	LastFailureKind ErrorKind `json:"last_failure_kind,omitempty"`
}

// Health combines breaker health (if b is non-nil) with the executor's last failure.
// Without a breaker the executor is reported as closed and healthy.
func (e *Executor) Health(b *CircuitBreaker) HealthStatus {
	status := HealthStatus{Healthy: true, State: StateClosed.String()}
	if b != nil {
		status = b.Health()
	}
	if f := e.Stats().LastFailure; f != nil {
		status.LastFailureKind = f.Kind
	}
	return status
}
