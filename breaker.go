package apicall

import (
	"errors"
	"log/slog"
	"net/http"

	jperrors "github.com/JohnPlummer/jp-go-errors"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerDoer wraps a Doer with circuit breaker functionality.
// Transport failures and configured response statuses count as failures; while the
// circuit is open, requests are rejected without reaching the backend. A rejection is a
// transport error to the Client, so it is retried and eventually reported as KindNetwork.
type CircuitBreakerDoer struct {
	next       Doer
	cb         *gobreaker.CircuitBreaker[*http.Response]
	logger     *slog.Logger
	classifier CircuitBreakerErrorClassifier
}

var _ Doer = (*CircuitBreakerDoer)(nil)

// NewCircuitBreakerDoer creates a new circuit breaker around next.
//
// Example:
//
//	breaker := apicall.NewCircuitBreakerDoer(
//	    &http.Client{},
//	    apicall.WithMaxRequests(5),
//	    apicall.WithOpenTimeout(60*time.Second),
//	)
//	client, err := apicall.NewClient(baseURL, apicall.WithHTTPClient(breaker))
func NewCircuitBreakerDoer(next Doer, opts ...CircuitBreakerOption) *CircuitBreakerDoer {
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
			return config.ReadyToTrip(convertGobreakerCounts(counts))
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

			// Don't count errors that shouldn't trip the circuit as failures
			return !classifier.ShouldTripCircuit(err)
		},
	}

	return &CircuitBreakerDoer{
		next:       next,
		cb:         gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:     config.Logger,
		classifier: classifier,
	}
}

// Do sends req through the circuit breaker. A response is always handed back to the
// caller, even when its status was counted as a breaker failure.
func (d *CircuitBreakerDoer) Do(req *http.Request) (*http.Response, error) {
	var received *http.Response

	resp, err := d.cb.Execute(func() (*http.Response, error) {
		resp, err := d.next.Do(req)
		if err != nil {
			return nil, err
		}
		received = resp
		return resp, NewStatusCodeError(resp.StatusCode, errors.New(resp.Status))
	})
	if received != nil {
		return received, nil
	}
	if err == nil {
		return resp, nil
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		counts := d.cb.Counts()
		d.logger.Warn("circuit breaker is open, request rejected",
			"path", req.URL.Path,
			"state", d.cb.State().String(),
			"counts", counts)
		return nil, jperrors.NewCircuitBreakerError(
			"request rejected",
			req.Method+" "+req.URL.Path,
			"open",
			jperrors.WithCause(err),
			jperrors.WithCounts(convertJPCounts(counts)),
		)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		counts := d.cb.Counts()
		d.logger.Debug("circuit breaker in half-open state, too many requests",
			"path", req.URL.Path)
		return nil, jperrors.NewCircuitBreakerError(
			"too many requests in half-open state",
			req.Method+" "+req.URL.Path,
			"half-open",
			jperrors.WithCause(err),
			jperrors.WithCounts(convertJPCounts(counts)),
		)
	default:
		d.logger.Debug("request failed through circuit breaker",
			"path", req.URL.Path,
			"error", err,
			"should_trip", d.classifier.ShouldTripCircuit(err))
	}
	return nil, err
}

// State returns the current state of the circuit breaker.
func (d *CircuitBreakerDoer) State() CircuitBreakerState {
	return convertGobreakerState(d.cb.State())
}

// Counts returns the current counts of the circuit breaker.
func (d *CircuitBreakerDoer) Counts() CircuitBreakerCounts {
	return convertGobreakerCounts(d.cb.Counts())
}

// GetHealth returns the health status of the circuit breaker.
func (d *CircuitBreakerDoer) GetHealth() HealthStatus {
	state := d.State()
	counts := d.Counts()

	var healthy bool
	switch state {
	case StateClosed, StateHalfOpen:
		// Half-open is degraded but operational
		healthy = true
	case StateOpen:
		healthy = false
	}

	return HealthStatus{
		Healthy:              healthy,
		Status:               state.String(),
		State:                state.String(),
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
	}
}

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

func convertGobreakerCounts(counts gobreaker.Counts) CircuitBreakerCounts {
	return CircuitBreakerCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

func convertJPCounts(counts gobreaker.Counts) jperrors.CircuitCounts {
	return jperrors.CircuitCounts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}
