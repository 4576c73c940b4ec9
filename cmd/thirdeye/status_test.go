package main

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/goccy/go-json"
	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apicall "github.com/JohnPlummer/jp-go-apicall"
)

var _ = Describe("status router", func() {
	var (
		transport *httpmock.MockTransport
		rt        *runtime
	)

	BeforeEach(func() {
		previous := apicall.DefaultCoordinator()
		DeferCleanup(func() {
			apicall.SetDefaultCoordinator(previous)
		})

		transport = httpmock.NewMockTransport()
		cfg := testConfig()
		cfg.Breaker.Enabled = true

		var err error
		rt, err = buildRuntime(cfg, discardLogger(), apicall.NopIndicator{}, &http.Client{Transport: transport})
		Expect(err).NotTo(HaveOccurred())
	})

	get := func(path string) *httptest.ResponseRecorder {
		router := newStatusRouter(rt.busy, rt.client, rt.breaker, rt.registry)
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(recorder, req)
		return recorder
	}

	It("should report busy state, call stats and a healthy breaker", func() {
		transport.RegisterResponder(http.MethodGet, backendURL+"es/eurekasummary",
			httpmock.NewStringResponder(200, `{}`))
		_, err := rt.client.Call(context.Background(), "es/eurekasummary", apicall.CallOptions{})
		Expect(err).NotTo(HaveOccurred())

		release := rt.busy.Track("Refreshing...")
		defer release()

		recorder := get("/healthz")
		Expect(recorder.Code).To(Equal(http.StatusOK))

		var body statusResponse
		Expect(json.Unmarshal(recorder.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Busy).To(Equal(apicall.BusyStatus{Label: "Refreshing...", Outstanding: 1, Visible: true}))
		Expect(body.Calls.TotalCalls).To(Equal(int64(1)))
		Expect(body.Calls.LastStatus).To(Equal(200))
		Expect(body.Calls.LastAttemptTime).NotTo(BeNil())
		Expect(body.Breaker).NotTo(BeNil())
		Expect(body.Breaker.Healthy).To(BeTrue())
		Expect(body.Breaker.State).To(Equal("closed"))
	})

	It("should answer 503 while the breaker is open", func() {
		transport.RegisterResponder(http.MethodGet, backendURL+"es/alerts",
			httpmock.NewStringResponder(502, `{}`))
		_, _ = rt.client.Call(context.Background(), "es/alerts", apicall.CallOptions{})

		recorder := get("/healthz")
		Expect(recorder.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(recorder.Body.String()).To(ContainSubstring(`"state":"open"`))
	})

	It("should serve Prometheus metrics", func() {
		rt.busy.Begin("")
		rt.busy.End()

		recorder := get("/metrics")
		Expect(recorder.Code).To(Equal(http.StatusOK))
		Expect(recorder.Body.String()).To(ContainSubstring("test_busy_shown_total 1"))
	})
})
