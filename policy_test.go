package apicall_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apicall "github.com/JohnPlummer/jp-go-apicall"
)

var _ = Describe("RetryPolicy", func() {
	Describe("DefaultRetryPolicy", func() {
		It("should make three attempts one second apart without a timeout", func() {
			policy := apicall.DefaultRetryPolicy()
			Expect(policy.MaxAttempts).To(Equal(3))
			Expect(policy.Delay).To(Equal(time.Second))
			Expect(policy.AttemptTimeout).To(Equal(10 * time.Second))
			Expect(policy.TimeoutEnabled).To(BeFalse())
			Expect(policy.Validate()).To(Succeed())
		})
	})

	Describe("NewRetryPolicy", func() {
		It("should apply options over the defaults", func() {
			policy, err := apicall.NewRetryPolicy(
				apicall.WithMaxAttempts(5),
				apicall.WithDelay(250*time.Millisecond),
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(policy.MaxAttempts).To(Equal(5))
			Expect(policy.Delay).To(Equal(250 * time.Millisecond))
			Expect(policy.TimeoutEnabled).To(BeFalse())
		})

		It("should enable the timeout when a duration is given", func() {
			policy, err := apicall.NewRetryPolicy(apicall.WithAttemptTimeout(2 * time.Second))
			Expect(err).NotTo(HaveOccurred())
			Expect(policy.TimeoutEnabled).To(BeTrue())
			Expect(policy.AttemptTimeout).To(Equal(2 * time.Second))
		})

		It("should allow a zero delay", func() {
			_, err := apicall.NewRetryPolicy(apicall.WithDelay(0))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should allow a disabled timeout with a zero duration", func() {
			_, err := apicall.NewRetryPolicy(
				apicall.WithAttemptTimeout(0),
				apicall.WithTimeoutEnabled(false),
			)
			Expect(err).NotTo(HaveOccurred())
		})

		DescribeTable("invalid policies",
			func(opts []apicall.RetryPolicyOption, message string) {
				policy, err := apicall.NewRetryPolicy(opts...)
				Expect(errors.Is(err, apicall.ErrInvalidPolicy)).To(BeTrue())
				Expect(err.Error()).To(ContainSubstring(message))
				Expect(policy).To(Equal(apicall.RetryPolicy{}))
			},
			Entry("zero attempts",
				[]apicall.RetryPolicyOption{apicall.WithMaxAttempts(0)}, "max attempts"),
			Entry("negative attempts",
				[]apicall.RetryPolicyOption{apicall.WithMaxAttempts(-2)}, "max attempts"),
			Entry("negative delay",
				[]apicall.RetryPolicyOption{apicall.WithDelay(-time.Second)}, "delay"),
			Entry("enabled timeout of zero",
				[]apicall.RetryPolicyOption{apicall.WithAttemptTimeout(0)}, "attempt timeout"),
			Entry("enabled negative timeout",
				[]apicall.RetryPolicyOption{apicall.WithAttemptTimeout(-time.Millisecond)}, "attempt timeout"),
		)
	})
})
