package apicall

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	attemptResponse = "response"
	attemptTimeout  = "timeout"
	attemptNetwork  = "network"
	attemptInvalid  = "invalid"
)

// Metrics exposes client and coordinator activity as Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	attempts        *prometheus.CounterVec
	calls           *prometheus.CounterVec
	callDuration    prometheus.Histogram
	busyOutstanding prometheus.Gauge
	busyVisible     prometheus.Gauge
	busyShown       prometheus.Counter
}

// NewMetrics creates the collectors under namespace and registers them with reg.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	metrics, err := apicall.NewMetrics("thirdeye", reg)
//	client, err := apicall.NewClient(baseURL, apicall.WithMetrics(metrics))
//	busy := apicall.NewCoordinator(indicator, apicall.WithCoordinatorMetrics(metrics))
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "apicall",
			Name:      "attempts_total",
			Help:      "Physical request attempts by result.",
		}, []string{"result"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "apicall",
			Name:      "calls_total",
			Help:      "Logical calls by outcome.",
		}, []string{"outcome"}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "apicall",
			Name:      "call_duration_seconds",
			Help:      "Duration of logical calls including retries and delays.",
			Buckets:   prometheus.DefBuckets,
		}),
		busyOutstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "busy",
			Name:      "outstanding_operations",
			Help:      "Operations currently holding the busy indicator.",
		}),
		busyVisible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "busy",
			Name:      "visible",
			Help:      "1 while the busy indicator is shown.",
		}),
		busyShown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "busy",
			Name:      "shown_total",
			Help:      "Times the busy indicator went from hidden to visible.",
		}),
	}

	for _, collector := range []prometheus.Collector{
		m.attempts, m.calls, m.callDuration, m.busyOutstanding, m.busyVisible, m.busyShown,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeAttempt(result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(result).Inc()
}

func (m *Metrics) observeCall(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(outcome).Inc()
	m.callDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeBusy(outstanding int, shown bool) {
	if m == nil {
		return
	}
	m.busyOutstanding.Set(float64(outstanding))
	if outstanding > 0 {
		m.busyVisible.Set(1)
	} else {
		m.busyVisible.Set(0)
	}
	if shown {
		m.busyShown.Inc()
	}
}

// callOutcome labels a finished logical call.
func callOutcome(res *CallResult, err error) string {
	switch {
	case err == nil && res.Status < 400:
		return "success"
	case err == nil && res.Status < 500:
		return "client_error"
	case err == nil:
		return "server_error"
	case IsTimeout(err):
		return "timeout"
	case IsNetwork(err):
		return "network"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	default:
		return "error"
	}
}
