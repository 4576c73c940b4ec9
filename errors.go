package apicall

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/JohnPlummer/jp-go-errors"
)

// StatusNoResponse is the status reported when no transport response was obtained.
const StatusNoResponse = 0

var (
	// ErrTimeout matches a CallError whose final attempt hit its own per-attempt timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrNetwork matches a CallError whose final attempt failed at the transport level.
	ErrNetwork = errors.New("network error")

	// ErrInvalidPolicy is returned when a RetryPolicy cannot drive a logical call.
	ErrInvalidPolicy = errors.New("invalid retry policy")

	// ErrInvalidRequest is returned when a RequestSpec cannot be turned into an HTTP request.
	ErrInvalidRequest = errors.New("invalid request")
)

// ErrorKind distinguishes the two terminal failures of a logical call.
type ErrorKind int

const (
	// KindNetwork means the final attempt failed in the transport (DNS, refused, reset...).
	KindNetwork ErrorKind = iota

	// KindTimeout means the final attempt was abandoned by its own timer.
	KindTimeout
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// CallError is returned by Client.Execute when every attempt of a logical call failed
// without a transport response. HTTP error statuses are never reported as CallError.
type CallError struct {
	Err      error
	Method   string
	Path     string
	Kind     ErrorKind
	Attempts int
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("%s %s: %s after %d attempt(s): %v", e.Method, e.Path, e.sentinel(), e.Attempts, e.Err)
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *CallError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTimeout) and errors.Is(err, ErrNetwork) follow Kind.
func (e *CallError) Is(target error) bool {
	return target == e.sentinel()
}

// Status always returns StatusNoResponse: a CallError never carries a response.
func (e *CallError) Status() int {
	return StatusNoResponse
}

func (e *CallError) sentinel() error {
	if e.Kind == KindTimeout {
		return ErrTimeout
	}
	return ErrNetwork
}

// IsTimeout reports whether err is a terminal per-attempt timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsNetwork reports whether err is a terminal transport failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// newTimeoutCause wraps the attempt error so jp-go-errors recognises it as a timeout too.
func newTimeoutCause(method, path string, policy RetryPolicy, err error) error {
	timeoutErr := pkgerrors.NewTimeoutError("request timed out", method+" "+path, policy.AttemptTimeout)
	return fmt.Errorf("%w: %w", timeoutErr, err)
}

// RetryClassifier decides whether a received response status deserves another attempt.
// Transport errors are always retried while attempts remain; only statuses are classified.
type RetryClassifier interface {
	// IsRetryableStatus returns true if the status represents a transient server failure.
	IsRetryableStatus(status int) bool
}

// ServerErrorClassifier retries server-class statuses (>= 500) and nothing else.
// Client errors (4xx) are returned to the caller on the first attempt.
type ServerErrorClassifier struct{}

// IsRetryableStatus implements RetryClassifier.
func (ServerErrorClassifier) IsRetryableStatus(status int) bool {
	return status >= http.StatusInternalServerError
}

// DefaultRetryClassifier returns the classifier used when none is configured.
func DefaultRetryClassifier() RetryClassifier {
	return ServerErrorClassifier{}
}

// CircuitBreakerErrorClassifier determines whether an error should trip the circuit breaker.
// Implement this interface to customize circuit breaker behavior for your specific error types.
type CircuitBreakerErrorClassifier interface {
	// ShouldTripCircuit returns true if the error represents a failure serious enough
	// to open the circuit breaker and stop requests temporarily.
	ShouldTripCircuit(err error) bool
}

// HTTPStatusClassifier trips the circuit on transport failures and on selected statuses.
type HTTPStatusClassifier struct {
	// CircuitTripStatuses lists HTTP status codes that should trip the circuit breaker.
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
		CircuitTripStatuses: []int{500, 502, 503, 504},
	}
}

// ShouldTripCircuit implements CircuitBreakerErrorClassifier for HTTP status codes.
func (c *HTTPStatusClassifier) ShouldTripCircuit(err error) bool {
	if err == nil {
		return false
	}

	// Rate limits, timeouts and caller cancellation are transient or self-inflicted
	if errors.Is(err, pkgerrors.ErrRateLimited) {
		return false
	}
	if pkgerrors.IsTimeout(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	statusCode := extractStatusCode(err)
	if statusCode == 0 {
		// Unknown transport errors trip the circuit
		return true
	}

	return containsStatus(c.getCircuitTripStatuses(), statusCode)
}

func (c *HTTPStatusClassifier) getCircuitTripStatuses() []int {
	if c.CircuitTripStatuses != nil {
		return c.CircuitTripStatuses
	}
	return []int{500, 502, 503, 504}
}

// DefaultCircuitBreakerErrorClassifier trips on transport failures and 5xx responses,
// but not on rate limits or timeouts which are transient.
func DefaultCircuitBreakerErrorClassifier() CircuitBreakerErrorClassifier {
	return NewHTTPStatusClassifier()
}

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
