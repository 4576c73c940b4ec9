// Package config loads the ThirdEye client settings from defaults, an optional file and
// the environment. Settings are read once at startup and never reloaded.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	apicall "github.com/JohnPlummer/jp-go-apicall"
)

// EnvPrefix prefixes every primary environment variable name.
const EnvPrefix = "THIRDEYE"

// Config is the complete client configuration.
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Client  ClientConfig  `mapstructure:"client"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// BackendConfig selects the backend base URL.
type BackendConfig struct {
	// URL is the live deployment address.
	URL string `mapstructure:"url"`
	// LocalURL is the local deployment address.
	LocalURL string `mapstructure:"url_local"`
	// IsLive selects URL over LocalURL.
	IsLive bool `mapstructure:"is_live"`
}

// BaseURL returns the address for the selected deployment target.
func (b BackendConfig) BaseURL() string {
	if b.IsLive {
		return b.URL
	}
	return b.LocalURL
}

// RetryConfig is the retry policy in configuration units.
type RetryConfig struct {
	Count         int  `mapstructure:"count"`
	DelayMS       int  `mapstructure:"delay_ms"`
	TimeoutMS     int  `mapstructure:"timeout_ms"`
	EnableTimeout bool `mapstructure:"enable_timeout"`
}

// BreakerConfig configures the optional circuit breaker in front of the transport.
type BreakerConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRequests uint32        `mapstructure:"max_requests"`
	Enabled     bool          `mapstructure:"enabled"`
}

// ClientConfig holds transport-level client settings.
type ClientConfig struct {
	// RequestIDHeader carries a per-call UUID; empty disables it.
	RequestIDHeader string `mapstructure:"request_id_header"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
}

// MetricsConfig names the Prometheus namespace.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// envBindings lists, per key, the environment names consulted in order. The VITE_* and
// ENABLE_TIMEOUT names are the ones the web front-end deployment already sets.
var envBindings = map[string][]string{
	"backend.is_live":          {"THIRDEYE_BACKEND_IS_LIVE", "VITE_ISLIVE"},
	"backend.url":              {"THIRDEYE_BACKEND_URL", "VITE_THIRDEYEBACKEND_URL"},
	"backend.url_local":        {"THIRDEYE_BACKEND_URL_LOCAL", "VITE_THIRDEYEBACKEND_URL_LOCAL"},
	"retry.count":              {"THIRDEYE_RETRY_COUNT", "VITE_API_RETRY_COUNT"},
	"retry.delay_ms":           {"THIRDEYE_RETRY_DELAY_MS", "VITE_API_RETRY_DELAY_MS"},
	"retry.timeout_ms":         {"THIRDEYE_RETRY_TIMEOUT_MS", "VITE_API_TIMEOUT_MS"},
	"retry.enable_timeout":     {"THIRDEYE_RETRY_ENABLE_TIMEOUT", "ENABLE_TIMEOUT"},
	"breaker.enabled":          {"THIRDEYE_BREAKER_ENABLED"},
	"breaker.max_requests":     {"THIRDEYE_BREAKER_MAX_REQUESTS"},
	"breaker.interval":         {"THIRDEYE_BREAKER_INTERVAL"},
	"breaker.timeout":          {"THIRDEYE_BREAKER_TIMEOUT"},
	"client.request_id_header": {"THIRDEYE_CLIENT_REQUEST_ID_HEADER"},
	"log.level":                {"THIRDEYE_LOG_LEVEL"},
	"log.format":               {"THIRDEYE_LOG_FORMAT"},
	"metrics.namespace":        {"THIRDEYE_METRICS_NAMESPACE"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.is_live", false)
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.url_local", "http://localhost:8080/")
	v.SetDefault("retry.count", 3)
	v.SetDefault("retry.delay_ms", 1000)
	v.SetDefault("retry.timeout_ms", 10000)
	v.SetDefault("retry.enable_timeout", false)
	v.SetDefault("breaker.enabled", false)
	v.SetDefault("breaker.max_requests", 3)
	v.SetDefault("breaker.interval", 10*time.Second)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("client.request_id_header", "X-Request-Id")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.namespace", "thirdeye")
}

// Load reads the configuration. path may be empty, in which case only defaults and the
// environment are used; otherwise its extension selects the format (yaml, toml, json).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration can build a client.
func (c *Config) Validate() error {
	var errs []error
	if c.Backend.BaseURL() == "" {
		target := "local"
		if c.Backend.IsLive {
			target = "live"
		}
		errs = append(errs, fmt.Errorf("backend: %s base URL is empty", target))
	}
	if _, err := c.RetryPolicy(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// RetryPolicy converts the retry block into a validated apicall.RetryPolicy.
func (c *Config) RetryPolicy() (apicall.RetryPolicy, error) {
	return apicall.NewRetryPolicy(
		apicall.WithMaxAttempts(c.Retry.Count),
		apicall.WithDelay(time.Duration(c.Retry.DelayMS)*time.Millisecond),
		apicall.WithAttemptTimeout(time.Duration(c.Retry.TimeoutMS)*time.Millisecond),
		apicall.WithTimeoutEnabled(c.Retry.EnableTimeout),
	)
}

// BreakerOptions converts the breaker block into circuit breaker options.
func (c *Config) BreakerOptions() []apicall.CircuitBreakerOption {
	return []apicall.CircuitBreakerOption{
		apicall.WithMaxRequests(c.Breaker.MaxRequests),
		apicall.WithInterval(c.Breaker.Interval),
		apicall.WithOpenTimeout(c.Breaker.Timeout),
	}
}
