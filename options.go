package apicall

import (
	"log/slog"
	"time"
)

// ClientConfig holds Client configuration options.
type ClientConfig struct {
	// HTTPClient sends each attempt.
	// Default: &http.Client{} (no client-level timeout; attempts are bounded by the policy)
	HTTPClient Doer

	// Classifier decides which response statuses are retried.
	// Default: ServerErrorClassifier (status >= 500)
	Classifier RetryClassifier

	// Logger for call operations.
	// Default: slog.Default()
	Logger *slog.Logger

	// Metrics receives attempt and call observations. Nil disables metrics.
	Metrics *Metrics

	// RequestIDHeader, when set, carries one generated UUID per logical call, identical
	// across its attempts. A header of the same name in the RequestSpec wins.
	// Default: "" (disabled)
	RequestIDHeader string

	// Policy is the retry and timeout policy.
	// Default: DefaultRetryPolicy()
	Policy RetryPolicy
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*ClientConfig)

// WithRetryPolicy sets the retry and timeout policy.
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *ClientConfig) {
		c.Policy = policy
	}
}

// WithHTTPClient sets the transport used for every attempt.
//
// Example:
//
//	breaker := apicall.NewCircuitBreakerDoer(&http.Client{})
//	apicall.WithHTTPClient(breaker)
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *ClientConfig) {
		c.HTTPClient = doer
	}
}

// WithRetryClassifier sets a custom status classifier for retry decisions.
func WithRetryClassifier(classifier RetryClassifier) ClientOption {
	return func(c *ClientConfig) {
		c.Classifier = classifier
	}
}

// WithLogger sets a custom logger for call operations.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	apicall.WithLogger(logger)
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *ClientConfig) {
		c.Logger = logger
	}
}

// WithMetrics records client activity on m.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *ClientConfig) {
		c.Metrics = m
	}
}

// WithRequestIDHeader enables a per-call request id sent in header.
func WithRequestIDHeader(header string) ClientOption {
	return func(c *ClientConfig) {
		c.RequestIDHeader = header
	}
}

// DefaultClientConfig returns client configuration with sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Classifier: DefaultRetryClassifier(),
		Logger:     slog.Default(),
		Policy:     DefaultRetryPolicy(),
	}
}

// CircuitBreakerConfig holds circuit breaker configuration options.
type CircuitBreakerConfig struct {
	// ReadyToTrip is called with a copy of counts whenever a request fails in the closed state.
	// If ReadyToTrip returns true, the circuit breaker will be placed into the open state.
	// Default: trips after 3 requests with 60% failure rate
	ReadyToTrip func(counts CircuitBreakerCounts) bool

	// ErrorClassifier determines which errors should trip the circuit breaker.
	// Default: HTTPStatusClassifier with standard trip codes
	ErrorClassifier CircuitBreakerErrorClassifier

	// OnStateChange is called whenever the circuit breaker changes state.
	OnStateChange func(name string, from, to CircuitBreakerState)

	// Logger for circuit breaker operations.
	// Default: slog.Default()
	Logger *slog.Logger

	// Name identifies the breaker in logs and state change callbacks.
	// Default: "thirdeye-backend"
	Name string

	// Interval is the cyclic period of the closed state for the circuit breaker
	// to clear the internal counts. If 0, never clears.
	// Default: 10 seconds
	Interval time.Duration

	// Timeout is the period of the open state, after which the state becomes half-open.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRequests is the maximum number of requests allowed to pass through
	// when the circuit breaker is in the half-open state.
	// Default: 3
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

	// StateHalfOpen means the circuit is testing if the backend has recovered.
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

// WithBreakerName sets the breaker name used in logs.
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

// WithOpenTimeout sets how long the breaker stays open before probing again.
func WithOpenTimeout(timeout time.Duration) CircuitBreakerOption {
	return func(c *CircuitBreakerConfig) {
		c.Timeout = timeout
	}
}

// WithReadyToTrip sets a custom function to determine when to trip the circuit.
//
// Example:
//
//	apicall.WithReadyToTrip(func(counts apicall.CircuitBreakerCounts) bool {
//	    return counts.ConsecutiveFailures >= 5
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
		Name:        "thirdeye-backend",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts CircuitBreakerCounts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		ErrorClassifier: DefaultCircuitBreakerErrorClassifier(),
		Logger:          slog.Default(),
	}
}
