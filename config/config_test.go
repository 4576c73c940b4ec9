package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apicall "github.com/JohnPlummer/jp-go-apicall"
	"github.com/JohnPlummer/jp-go-apicall/config"
)

var _ = Describe("Load", func() {
	writeFile := func(name, content string) string {
		path := filepath.Join(GinkgoT().TempDir(), name)
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	Describe("defaults", func() {
		It("should target the local backend with the default policy", func() {
			cfg, err := config.Load("")
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Backend.IsLive).To(BeFalse())
			Expect(cfg.Backend.BaseURL()).To(Equal("http://localhost:8080/"))
			Expect(cfg.Retry).To(Equal(config.RetryConfig{
				Count:         3,
				DelayMS:       1000,
				TimeoutMS:     10000,
				EnableTimeout: false,
			}))
			Expect(cfg.Breaker.Enabled).To(BeFalse())
			Expect(cfg.Breaker.MaxRequests).To(Equal(uint32(3)))
			Expect(cfg.Breaker.Interval).To(Equal(10 * time.Second))
			Expect(cfg.Breaker.Timeout).To(Equal(30 * time.Second))
			Expect(cfg.Client.RequestIDHeader).To(Equal("X-Request-Id"))
			Expect(cfg.Log).To(Equal(config.LogConfig{Level: "info", Format: "text"}))
			Expect(cfg.Metrics.Namespace).To(Equal("thirdeye"))

			policy, err := cfg.RetryPolicy()
			Expect(err).NotTo(HaveOccurred())
			Expect(policy).To(Equal(apicall.DefaultRetryPolicy()))
		})
	})

	Describe("environment", func() {
		It("should read the front-end variable names", func() {
			GinkgoT().Setenv("VITE_ISLIVE", "1")
			GinkgoT().Setenv("VITE_THIRDEYEBACKEND_URL", "https://thirdeye.example.com/")
			GinkgoT().Setenv("VITE_API_RETRY_COUNT", "5")
			GinkgoT().Setenv("VITE_API_RETRY_DELAY_MS", "250")
			GinkgoT().Setenv("VITE_API_TIMEOUT_MS", "4000")
			GinkgoT().Setenv("ENABLE_TIMEOUT", "true")

			cfg, err := config.Load("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Backend.BaseURL()).To(Equal("https://thirdeye.example.com/"))

			policy, err := cfg.RetryPolicy()
			Expect(err).NotTo(HaveOccurred())
			Expect(policy).To(Equal(apicall.RetryPolicy{
				MaxAttempts:    5,
				Delay:          250 * time.Millisecond,
				AttemptTimeout: 4 * time.Second,
				TimeoutEnabled: true,
			}))
		})

		It("should prefer the THIRDEYE_ names", func() {
			GinkgoT().Setenv("VITE_API_RETRY_COUNT", "5")
			GinkgoT().Setenv("THIRDEYE_RETRY_COUNT", "2")
			GinkgoT().Setenv("THIRDEYE_BREAKER_ENABLED", "true")
			GinkgoT().Setenv("THIRDEYE_BREAKER_TIMEOUT", "1m")
			GinkgoT().Setenv("THIRDEYE_LOG_FORMAT", "json")

			cfg, err := config.Load("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Retry.Count).To(Equal(2))
			Expect(cfg.Breaker.Enabled).To(BeTrue())
			Expect(cfg.Breaker.Timeout).To(Equal(time.Minute))
			Expect(cfg.Log.Format).To(Equal("json"))
		})

		It("should select the local URL unless live is set", func() {
			GinkgoT().Setenv("VITE_ISLIVE", "0")
			GinkgoT().Setenv("VITE_THIRDEYEBACKEND_URL", "https://thirdeye.example.com/")
			GinkgoT().Setenv("VITE_THIRDEYEBACKEND_URL_LOCAL", "http://127.0.0.1:9000/")

			cfg, err := config.Load("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Backend.BaseURL()).To(Equal("http://127.0.0.1:9000/"))
		})
	})

	Describe("file", func() {
		It("should load YAML", func() {
			path := writeFile("thirdeye.yaml", `
backend:
  is_live: true
  url: https://thirdeye.example.com/
retry:
  count: 4
  delay_ms: 500
  timeout_ms: 2000
  enable_timeout: true
breaker:
  enabled: true
  interval: 20s
client:
  request_id_header: X-Correlation-Id
log:
  level: debug
`)
			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Backend.BaseURL()).To(Equal("https://thirdeye.example.com/"))
			Expect(cfg.Retry).To(Equal(config.RetryConfig{Count: 4, DelayMS: 500, TimeoutMS: 2000, EnableTimeout: true}))
			Expect(cfg.Breaker.Enabled).To(BeTrue())
			Expect(cfg.Breaker.Interval).To(Equal(20 * time.Second))
			Expect(cfg.Breaker.Timeout).To(Equal(30 * time.Second))
			Expect(cfg.Client.RequestIDHeader).To(Equal("X-Correlation-Id"))
			Expect(cfg.Log.Level).To(Equal("debug"))
		})

		It("should let the environment override the file", func() {
			path := writeFile("thirdeye.json", `{"retry": {"count": 4}}`)
			GinkgoT().Setenv("THIRDEYE_RETRY_COUNT", "6")

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Retry.Count).To(Equal(6))
		})

		It("should fail on a missing file", func() {
			_, err := config.Load(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("reading config file"))
		})
	})

	Describe("validation", func() {
		It("should reject a live target without a URL", func() {
			GinkgoT().Setenv("VITE_ISLIVE", "true")

			_, err := config.Load("")
			Expect(err).To(MatchError(ContainSubstring("live base URL is empty")))
		})

		It("should reject a zero retry count", func() {
			GinkgoT().Setenv("VITE_API_RETRY_COUNT", "0")

			_, err := config.Load("")
			Expect(errors.Is(err, apicall.ErrInvalidPolicy)).To(BeTrue())
		})

		It("should reject an enabled zero timeout", func() {
			GinkgoT().Setenv("ENABLE_TIMEOUT", "true")
			GinkgoT().Setenv("VITE_API_TIMEOUT_MS", "0")

			_, err := config.Load("")
			Expect(errors.Is(err, apicall.ErrInvalidPolicy)).To(BeTrue())
		})

		It("should report every problem at once", func() {
			cfg := &config.Config{
				Backend: config.BackendConfig{IsLive: true},
				Retry:   config.RetryConfig{Count: 0},
				Log:     config.LogConfig{Format: "xml"},
			}
			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("base URL is empty"))
			Expect(err.Error()).To(ContainSubstring("max attempts"))
			Expect(err.Error()).To(ContainSubstring(`unknown format "xml"`))
		})
	})

	Describe("BreakerOptions", func() {
		It("should carry the breaker block", func() {
			cfg := &config.Config{Breaker: config.BreakerConfig{
				MaxRequests: 7,
				Interval:    time.Minute,
				Timeout:     5 * time.Second,
			}}
			breakerConfig := apicall.DefaultCircuitBreakerConfig()
			for _, opt := range cfg.BreakerOptions() {
				opt(breakerConfig)
			}
			Expect(breakerConfig.MaxRequests).To(Equal(uint32(7)))
			Expect(breakerConfig.Interval).To(Equal(time.Minute))
			Expect(breakerConfig.Timeout).To(Equal(5 * time.Second))
		})
	})
})
