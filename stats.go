package apicall

import (
	"sync"
	"time"
)

// callStats tracks client statistics.
type callStats struct {
	mu                 sync.RWMutex
	totalCalls         int64
	totalAttempts      int64
	totalRetries       int64
	totalResponses     int64
	totalTimeouts      int64
	totalNetworkErrors int64
	totalFailures      int64
	lastAttemptTime    time.Time
	lastStatus         int
	lastError          error
}

func (s *callStats) recordCall() {
	s.mu.Lock()
	s.totalCalls++
	s.mu.Unlock()
}

func (s *callStats) recordAttempt(attempt int) {
	s.mu.Lock()
	s.totalAttempts++
	if attempt > 1 {
		s.totalRetries++
	}
	s.lastAttemptTime = time.Now()
	s.mu.Unlock()
}

func (s *callStats) recordResponse(status int) {
	s.mu.Lock()
	s.totalResponses++
	s.lastStatus = status
	s.mu.Unlock()
}

func (s *callStats) recordTimeout() {
	s.mu.Lock()
	s.totalTimeouts++
	s.mu.Unlock()
}

func (s *callStats) recordNetworkError() {
	s.mu.Lock()
	s.totalNetworkErrors++
	s.mu.Unlock()
}

func (s *callStats) recordResult(status int) {
	s.mu.Lock()
	s.lastStatus = status
	s.lastError = nil
	s.mu.Unlock()
}

func (s *callStats) recordFailure(err error) {
	s.mu.Lock()
	s.totalFailures++
	s.lastStatus = StatusNoResponse
	s.lastError = err
	s.mu.Unlock()
}

// CallStats holds statistics about the logical calls made by a Client.
type CallStats struct {
	// LastAttemptTime is the time of the last attempt
	LastAttemptTime time.Time

	// LastError is the error of the last logical call, nil if it returned a result
	LastError error

	// TotalCalls is the number of logical calls started
	TotalCalls int64

	// TotalAttempts is the total number of physical attempts (initial and retries)
	TotalAttempts int64

	// TotalRetries is the number of attempts after the first of each call
	TotalRetries int64

	// TotalResponses is the number of attempts that received a response, any status
	TotalResponses int64

	// TotalTimeouts is the number of attempts abandoned by their own timer
	TotalTimeouts int64

	// TotalNetworkErrors is the number of attempts that failed in the transport
	TotalNetworkErrors int64

	// TotalFailures is the number of logical calls that ended with an error
	TotalFailures int64

	// LastStatus is the status of the last logical call, StatusNoResponse if it failed
	LastStatus int
}

// GetCallStats returns a snapshot of the client statistics.
// This method is thread-safe.
func (c *Client) GetCallStats() CallStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()

	return CallStats{
		LastAttemptTime:    c.stats.lastAttemptTime,
		LastError:          c.stats.lastError,
		TotalCalls:         c.stats.totalCalls,
		TotalAttempts:      c.stats.totalAttempts,
		TotalRetries:       c.stats.totalRetries,
		TotalResponses:     c.stats.totalResponses,
		TotalTimeouts:      c.stats.totalTimeouts,
		TotalNetworkErrors: c.stats.totalNetworkErrors,
		TotalFailures:      c.stats.totalFailures,
		LastStatus:         c.stats.lastStatus,
	}
}
