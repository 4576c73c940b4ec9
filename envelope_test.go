package apicall_test

import (
	"context"
	"errors"
	"net/http"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apicall "github.com/JohnPlummer/jp-go-apicall"
)

type property struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var _ = Describe("Envelope", func() {
	result := func(status int, body string) *apicall.CallResult {
		return &apicall.CallResult{Status: status, Body: []byte(body)}
	}

	Describe("DecodeEnvelope", func() {
		It("should decode a successful response", func() {
			env := apicall.DecodeEnvelope[property](result(200,
				`{"success": true, "response": {"id": 7, "name": "Lakeside"}}`))
			Expect(env.OK).To(BeTrue())
			Expect(env.Status).To(Equal(200))
			Expect(env.Value).To(Equal(property{ID: 7, Name: "Lakeside"}))
			Expect(env.ErrorMessage).To(BeEmpty())
		})

		It("should accept a null response", func() {
			env := apicall.DecodeEnvelope[*property](result(200, `{"success": true, "response": null}`))
			Expect(env.OK).To(BeTrue())
			Expect(env.Value).To(BeNil())
		})

		It("should accept a missing response", func() {
			env := apicall.DecodeEnvelope[[]property](result(200, `{"success": true}`))
			Expect(env.OK).To(BeTrue())
			Expect(env.Value).To(BeEmpty())
		})

		It("should report the backend error message", func() {
			env := apicall.DecodeEnvelope[property](result(400,
				`{"success": false, "errorMessage": "Invalid credentials"}`))
			Expect(env.OK).To(BeFalse())
			Expect(env.Status).To(Equal(400))
			Expect(env.ErrorMessage).To(Equal("Invalid credentials"))
		})

		DescribeTable("falls back to the status when there is no message",
			func(status int, body string) {
				env := apicall.DecodeEnvelope[property](result(status, body))
				Expect(env.OK).To(BeFalse())
				Expect(env.ErrorMessage).To(Equal("request failed with status 503"))
			},
			Entry("unsuccessful envelope", 503, `{"success": false}`),
			Entry("HTML body", 503, `<html>down</html>`),
			Entry("empty body", 503, ``),
			Entry("object without success", 503, `{"message": "down"}`),
		)

		It("should report a response of the wrong shape", func() {
			env := apicall.DecodeEnvelope[property](result(200, `{"success": true, "response": [1, 2]}`))
			Expect(env.OK).To(BeFalse())
			Expect(env.ErrorMessage).To(HavePrefix("decoding response:"))
		})
	})

	Describe("CallEnvelope", func() {
		var (
			transport *httpmock.MockTransport
			client    *apicall.Client
		)

		BeforeEach(func() {
			var httpClient *http.Client
			httpClient, transport = newMockHTTPClient()
			policy, err := apicall.NewRetryPolicy(apicall.WithMaxAttempts(1))
			Expect(err).NotTo(HaveOccurred())
			client, err = apicall.NewClient(baseURL,
				apicall.WithHTTPClient(httpClient),
				apicall.WithLogger(quietLogger()),
				apicall.WithRetryPolicy(policy),
			)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should call and decode", func() {
			transport.RegisterResponder(http.MethodPost, baseURL+"pm/properties/update",
				httpmock.NewStringResponder(200, `{"success": true, "response": {"id": 1, "name": "Harbour"}}`))

			env, err := apicall.CallEnvelope[property](context.Background(), client, apicall.RequestSpec{
				Path:   "pm/properties/update",
				Method: http.MethodPost,
				Body:   []byte(`{"id": 1}`),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(env.OK).To(BeTrue())
			Expect(env.Value.Name).To(Equal("Harbour"))
		})

		It("should return the terminal error", func() {
			transport.RegisterResponder(http.MethodGet, baseURL+"pm/properties",
				httpmock.NewErrorResponder(errors.New("no route to host")))

			env, err := apicall.CallEnvelope[property](context.Background(), client, apicall.RequestSpec{
				Path: "pm/properties",
			})
			Expect(apicall.IsNetwork(err)).To(BeTrue())
			Expect(env.OK).To(BeFalse())
		})
	})
})
