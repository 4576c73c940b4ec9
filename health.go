package apicall

// HealthStatus reports the circuit breaker in front of the backend.
type HealthStatus struct {
	// Healthy is true for closed and half-open states, false for open state.
	Healthy bool `json:"healthy"`

	// Status is a short description of the state ("closed", "half-open", "open").
	Status string `json:"status"`

	// State is the string representation of the circuit breaker state.
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
}

// BusyStatus is a snapshot of a Coordinator.
type BusyStatus struct {
	// Label is the text shown by the indicator, empty while hidden.
	Label string `json:"label"`

	// Outstanding is the number of operations holding the indicator.
	Outstanding int `json:"outstanding"`

	// Visible is true while Outstanding > 0.
	Visible bool `json:"visible"`
}
