package apicall

import (
	"fmt"
	"time"
)

// RetryPolicy holds the process-wide retry and timeout settings for logical calls.
// It is a plain value: build it once at startup with NewRetryPolicy and share it freely.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of physical attempts per logical call,
	// including the first one. Must be at least 1.
	MaxAttempts int

	// Delay is the constant wait between two attempts. Zero retries immediately.
	Delay time.Duration

	// AttemptTimeout bounds a single attempt when TimeoutEnabled is set.
	AttemptTimeout time.Duration

	// TimeoutEnabled arms a fresh AttemptTimeout timer for every attempt.
	TimeoutEnabled bool
}

// RetryPolicyOption is a functional option for building a RetryPolicy.
type RetryPolicyOption func(*RetryPolicy)

// WithMaxAttempts sets the maximum number of attempts per logical call.
//
// Example:
//
//	apicall.WithMaxAttempts(5) // Try up to 5 times total
func WithMaxAttempts(attempts int) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.MaxAttempts = attempts
	}
}

// WithDelay sets the constant delay between attempts.
func WithDelay(delay time.Duration) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.Delay = delay
	}
}

// WithAttemptTimeout enables the per-attempt timeout and sets its duration.
//
// Example:
//
//	apicall.WithAttemptTimeout(500 * time.Millisecond)
func WithAttemptTimeout(timeout time.Duration) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.AttemptTimeout = timeout
		p.TimeoutEnabled = true
	}
}

// WithTimeoutEnabled toggles the per-attempt timeout without touching its duration.
func WithTimeoutEnabled(enabled bool) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.TimeoutEnabled = enabled
	}
}

// DefaultRetryPolicy returns the policy used when none is configured:
// 3 attempts, 1 second apart, no per-attempt timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		Delay:          time.Second,
		AttemptTimeout: 10 * time.Second,
		TimeoutEnabled: false,
	}
}

// NewRetryPolicy applies opts on top of DefaultRetryPolicy and validates the result.
// An invalid policy is reported here, at construction, rather than on the first call.
func NewRetryPolicy(opts ...RetryPolicyOption) (RetryPolicy, error) {
	policy := DefaultRetryPolicy()
	for _, opt := range opts {
		opt(&policy)
	}
	if err := policy.Validate(); err != nil {
		return RetryPolicy{}, err
	}
	return policy, nil
}

// Validate reports whether the policy can drive a logical call.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidPolicy, p.MaxAttempts)
	}
	if p.Delay < 0 {
		return fmt.Errorf("%w: delay must not be negative, got %s", ErrInvalidPolicy, p.Delay)
	}
	if p.TimeoutEnabled && p.AttemptTimeout <= 0 {
		return fmt.Errorf("%w: attempt timeout must be positive when enabled, got %s", ErrInvalidPolicy, p.AttemptTimeout)
	}
	return nil
}
