// Package apicall provides the resilient call layer of the ThirdEye dashboard client: a
// retrying HTTP client with an optional per-attempt timeout, and a reference-counted busy
// indicator coordinator shared by every feature module that talks to the backend.
//
// The two halves do not know about each other. A feature module composes them:
//
//	release := busy.Track("Saving threshold")
//	defer release()
//
//	res, err := client.Call(ctx, "um/user/threshold", apicall.CallOptions{
//	    Method: http.MethodPost,
//	    Header: map[string]string{"Content-Type": "application/json", "token": token},
//	    Body:   payload,
//	})
package apicall

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// ResilientClient defines a generic interface for executing requests with resilience applied.
// Client satisfies ResilientClient[RequestSpec, *CallResult].
type ResilientClient[Req, Resp any] interface {
	// Execute performs a request and returns a response or error.
	// The context should be used to control cancellation.
	Execute(ctx context.Context, req Req) (Resp, error)
}

// Doer sends one HTTP request. *http.Client and CircuitBreakerDoer implement it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues logical calls against a base URL, retrying transient failures according
// to its RetryPolicy. It holds no per-call state and is safe for concurrent use.
type Client struct {
	doer            Doer
	classifier      RetryClassifier
	logger          *slog.Logger
	metrics         *Metrics
	stats           *callStats
	baseURL         string
	requestIDHeader string
	policy          RetryPolicy
}

var _ ResilientClient[RequestSpec, *CallResult] = (*Client)(nil)

// NewClient creates a client for baseURL. The policy is validated here so a misconfigured
// process fails at startup rather than on its first call.
//
// Example:
//
//	policy, err := apicall.NewRetryPolicy(
//	    apicall.WithMaxAttempts(3),
//	    apicall.WithDelay(time.Second),
//	    apicall.WithAttemptTimeout(10*time.Second),
//	)
//	client, err := apicall.NewClient("https://backend.example.com/", apicall.WithRetryPolicy(policy))
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	config := DefaultClientConfig()
	for _, opt := range opts {
		opt(config)
	}

	if err := config.Policy.Validate(); err != nil {
		return nil, err
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Classifier == nil {
		config.Classifier = DefaultRetryClassifier()
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &Client{
		doer:            config.HTTPClient,
		classifier:      config.Classifier,
		logger:          config.Logger,
		metrics:         config.Metrics,
		stats:           &callStats{},
		baseURL:         baseURL,
		requestIDHeader: config.RequestIDHeader,
		policy:          config.Policy,
	}, nil
}

// BaseURL returns the address every request path is appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Policy returns the retry policy the client was built with.
func (c *Client) Policy() RetryPolicy {
	return c.policy
}

// Call is the consumer-facing form of Execute.
func (c *Client) Call(ctx context.Context, path string, opts CallOptions) (*CallResult, error) {
	return c.Execute(ctx, RequestSpec{
		Path:   path,
		Method: opts.Method,
		Header: opts.Header,
		Body:   opts.Body,
	})
}

// Execute performs one logical call. It returns a CallResult for any received response,
// whatever its status, and a *CallError only when the final attempt produced no response.
// Cancelling ctx stops the call and returns ctx.Err().
func (c *Client) Execute(ctx context.Context, spec RequestSpec) (*CallResult, error) {
	select {
	case <-ctx.Done():
		c.logger.Warn("context already done before request (expected condition)",
			"path", spec.Path,
			"error", ctx.Err())
		return nil, ctx.Err()
	default:
	}

	method := spec.method()
	logger := c.logger.With("method", method, "path", spec.Path)

	var requestID string
	if c.requestIDHeader != "" {
		requestID = uuid.NewString()
		logger = logger.With("request_id", requestID)
	}

	start := time.Now()
	c.stats.recordCall()

	var (
		result   *CallResult
		attempts int
	)

	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempts++
		last := attempts >= c.policy.MaxAttempts
		c.stats.recordAttempt(attempts)

		res, timedOut, err := c.attempt(ctx, spec, requestID)
		if err != nil && ctx.Err() != nil {
			// The caller gave up; the attempt error is only a symptom.
			return ctx.Err()
		}

		var status int
		if res != nil {
			status = res.Status
		}
		c.recordAttemptOutcome(res, timedOut, err)

		switch decideAttempt(c.classifier, status, err, last) {
		case outcomeDone:
			res.Attempts = attempts
			result = res
			return nil

		case outcomeRetry:
			if err != nil {
				logger.Debug("retrying request after transport failure",
					"attempt", attempts,
					"timeout", timedOut,
					"error", err)
				return retry.RetryableError(err)
			}
			logger.Debug("retrying request after server error",
				"attempt", attempts,
				"status", status)
			return retry.RetryableError(NewStatusCodeError(status, errors.New(http.StatusText(status))))

		case outcomeExhausted:
			callErr := &CallError{
				Method:   method,
				Path:     spec.Path,
				Kind:     KindNetwork,
				Attempts: attempts,
				Err:      err,
			}
			if timedOut {
				callErr.Kind = KindTimeout
				callErr.Err = newTimeoutCause(method, spec.Path, c.policy, err)
			}
			return callErr

		default:
			return err
		}
	})
	if err != nil {
		logger.Warn("request failed after retries",
			"attempts", attempts,
			"error", err)
		c.stats.recordFailure(err)
		c.metrics.observeCall(callOutcome(nil, err), time.Since(start))
		return nil, err
	}

	if attempts > 1 {
		if c.classifier.IsRetryableStatus(result.Status) {
			logger.Warn("request exhausted retries with server error",
				"attempts", attempts,
				"status", result.Status)
		} else {
			logger.Info("request succeeded after retry",
				"attempts", attempts,
				"status", result.Status)
		}
	}

	c.stats.recordResult(result.Status)
	c.metrics.observeCall(callOutcome(result, nil), time.Since(start))
	return result, nil
}

// attempt performs one physical round-trip. The timeout timer belongs to this attempt only
// and is stopped as soon as a response arrives, so it cannot abort a response being read.
// timedOut reports whether the attempt's own timer cancelled it.
func (c *Client) attempt(ctx context.Context, spec RequestSpec, requestID string) (res *CallResult, timedOut bool, err error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		timer   *time.Timer
		expired atomic.Bool
	)
	if c.policy.TimeoutEnabled {
		timer = time.AfterFunc(c.policy.AttemptTimeout, func() {
			expired.Store(true)
			cancel()
		})
	}
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	req, err := spec.newHTTPRequest(attemptCtx, c.baseURL, c.requestIDHeader, requestID)
	if err != nil {
		stopTimer()
		return nil, false, err
	}

	resp, err := c.doer.Do(req)
	stopTimer()
	if err != nil {
		return nil, expired.Load(), err
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		c.logger.Debug("response body unreadable, using empty payload",
			"path", spec.Path,
			"status", resp.StatusCode,
			"error", readErr)
		body = nil
	}

	return &CallResult{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
		Data:   decodePayload(body),
	}, false, nil
}

// backoff waits a constant Delay between attempts and stops after MaxAttempts-1 retries.
func (c *Client) backoff() retry.Backoff {
	delay := c.policy.Delay
	return retry.WithMaxRetries(
		uint64(c.policy.MaxAttempts-1), // #nosec G115 - MaxAttempts validated >= 1
		retry.BackoffFunc(func() (time.Duration, bool) {
			return delay, false
		}),
	)
}

func (c *Client) recordAttemptOutcome(res *CallResult, timedOut bool, err error) {
	switch {
	case err == nil:
		c.stats.recordResponse(res.Status)
		c.metrics.observeAttempt(attemptResponse)
	case timedOut:
		c.stats.recordTimeout()
		c.metrics.observeAttempt(attemptTimeout)
	case errors.Is(err, ErrInvalidRequest):
		c.metrics.observeAttempt(attemptInvalid)
	default:
		c.stats.recordNetworkError()
		c.metrics.observeAttempt(attemptNetwork)
	}
}

// attemptOutcome is the state an attempt leaves the logical call in.
type attemptOutcome int

const (
	// outcomeDone returns the response to the caller.
	outcomeDone attemptOutcome = iota
	// outcomeRetry waits Delay and starts the next attempt.
	outcomeRetry
	// outcomeExhausted ends the call with a CallError.
	outcomeExhausted
	// outcomeFatal ends the call with the attempt error unchanged.
	outcomeFatal
)

// decideAttempt is the retry predicate. err is the transport error of the attempt, nil when
// a response with status was received.
func decideAttempt(classifier RetryClassifier, status int, err error, last bool) attemptOutcome {
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			return outcomeFatal
		}
		if last {
			return outcomeExhausted
		}
		return outcomeRetry
	}
	if classifier.IsRetryableStatus(status) && !last {
		return outcomeRetry
	}
	return outcomeDone
}
