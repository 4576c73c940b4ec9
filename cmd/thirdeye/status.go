package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apicall "github.com/JohnPlummer/jp-go-apicall"
)

type statusResponse struct {
	Breaker *apicall.HealthStatus `json:"breaker,omitempty"`
	Calls   callStatsView         `json:"calls"`
	Busy    apicall.BusyStatus    `json:"busy"`
}

type callStatsView struct {
	LastAttemptTime    *time.Time `json:"last_attempt_time,omitempty"`
	LastError          string     `json:"last_error,omitempty"`
	TotalCalls         int64      `json:"total_calls"`
	TotalAttempts      int64      `json:"total_attempts"`
	TotalRetries       int64      `json:"total_retries"`
	TotalResponses     int64      `json:"total_responses"`
	TotalTimeouts      int64      `json:"total_timeouts"`
	TotalNetworkErrors int64      `json:"total_network_errors"`
	TotalFailures      int64      `json:"total_failures"`
	LastStatus         int        `json:"last_status"`
}

func newCallStatsView(stats apicall.CallStats) callStatsView {
	view := callStatsView{
		TotalCalls:         stats.TotalCalls,
		TotalAttempts:      stats.TotalAttempts,
		TotalRetries:       stats.TotalRetries,
		TotalResponses:     stats.TotalResponses,
		TotalTimeouts:      stats.TotalTimeouts,
		TotalNetworkErrors: stats.TotalNetworkErrors,
		TotalFailures:      stats.TotalFailures,
		LastStatus:         stats.LastStatus,
	}
	if !stats.LastAttemptTime.IsZero() {
		t := stats.LastAttemptTime
		view.LastAttemptTime = &t
	}
	if stats.LastError != nil {
		view.LastError = stats.LastError.Error()
	}
	return view
}

// newStatusRouter serves the watcher's health and metrics. breaker may be nil.
func newStatusRouter(
	busy *apicall.Coordinator,
	client *apicall.Client,
	breaker *apicall.CircuitBreakerDoer,
	gatherer prometheus.Gatherer,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		resp := statusResponse{
			Busy:  busy.Status(),
			Calls: newCallStatsView(client.GetCallStats()),
		}
		code := http.StatusOK
		if breaker != nil {
			health := breaker.GetHealth()
			resp.Breaker = &health
			if !health.Healthy {
				code = http.StatusServiceUnavailable
			}
		}
		c.JSON(code, resp)
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return router
}
