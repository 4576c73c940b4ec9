package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	apicall "github.com/JohnPlummer/jp-go-apicall"
	"github.com/JohnPlummer/jp-go-apicall/config"
)

// runtime is everything a command needs, built once from configuration.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	client   *apicall.Client
	breaker  *apicall.CircuitBreakerDoer
	busy     *apicall.Coordinator
}

func newRuntime(cliCtx *cli.Context, indicator apicall.Indicator) (*runtime, error) {
	cfg, err := config.Load(cliCtx.String(flagConfig))
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if cliCtx.IsSet(flagLogLevel) {
		cfg.Log.Level = cliCtx.String(flagLogLevel)
	}
	if cliCtx.IsSet(flagLogFormat) {
		cfg.Log.Format = cliCtx.String(flagLogFormat)
	}

	logger, err := newLogger(cfg.Log, cliCtx.App.ErrWriter)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	return buildRuntime(cfg, logger, indicator, &http.Client{})
}

// buildRuntime wires the client stack: transport, optional breaker, metrics, coordinator.
func buildRuntime(cfg *config.Config, logger *slog.Logger, indicator apicall.Indicator, transport apicall.Doer) (*runtime, error) {
	policy, err := cfg.RetryPolicy()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics, err := apicall.NewMetrics(cfg.Metrics.Namespace, registry)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
	}

	doer := transport
	if cfg.Breaker.Enabled {
		opts := append(cfg.BreakerOptions(), apicall.WithCircuitBreakerLogger(logger))
		rt.breaker = apicall.NewCircuitBreakerDoer(transport, opts...)
		doer = rt.breaker
	}

	rt.client, err = apicall.NewClient(cfg.Backend.BaseURL(),
		apicall.WithRetryPolicy(policy),
		apicall.WithHTTPClient(doer),
		apicall.WithLogger(logger),
		apicall.WithMetrics(metrics),
		apicall.WithRequestIDHeader(cfg.Client.RequestIDHeader),
	)
	if err != nil {
		return nil, err
	}

	rt.busy = apicall.NewCoordinator(indicator,
		apicall.WithCoordinatorLogger(logger),
		apicall.WithCoordinatorMetrics(metrics),
	)
	apicall.SetDefaultCoordinator(rt.busy)

	return rt, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
}

// parseHeaders accepts "Name=value" or "Name: value". Later duplicates win.
func parseHeaders(raw []string) (map[string]string, error) {
	header := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, "=")
		if !ok || strings.Contains(name, ":") {
			name, value, ok = strings.Cut(h, ":")
		}
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected Name=value", h)
		}
		header[name] = strings.TrimSpace(value)
	}
	return header, nil
}
