package docqa_test

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	docqa "github.com/JohnPlummer/jp-go-docqa"
)

var _ = Describe("Failure", func() {
	DescribeTable("CanRetry",
		func(kind docqa.ErrorKind, expected bool) {
			Expect(docqa.CanRetry(&docqa.Failure{Kind: kind})).To(Equal(expected))
		},
		Entry("network", docqa.KindNetworkError, true),
		Entry("server", docqa.KindServerError, true),
		Entry("gateway", docqa.KindGatewayError, true),
		Entry("circuit open", docqa.KindCircuitOpen, true),
		Entry("unknown", docqa.KindUnknown, true),
		Entry("quota", docqa.KindQuotaExceeded, false),
		Entry("auth", docqa.KindAuthFailure, false),
		Entry("not found", docqa.KindNotFound, false),
	)

	It("cannot retry without a failure", func() {
		Expect(docqa.CanRetry(nil)).To(BeFalse())
	})

	It("appends the retry tip when a retry may help", func() {
		f := docqa.NewFailureOutcome(docqa.KindGatewayError, "").Failure()

		Expect(f.Display()).To(Equal(
			"AI service temporarily unavailable. We tried multiple times but couldn't connect." +
				"\n\nTip: You can try sending your question again."))
	})

	It("shows the message alone when a retry will not help", func() {
		f := docqa.NewFailureOutcome(docqa.KindQuotaExceeded, "").Failure()

		Expect(f.Display()).To(Equal("API quota exceeded. Please try again later or contact support if this persists."))
	})

	DescribeTable("default messages",
		func(kind docqa.ErrorKind, prefix string) {
			Expect(docqa.NewFailureOutcome(kind, "").Failure().Message).To(HavePrefix(prefix))
		},
		Entry("network", docqa.KindNetworkError, "Network connection error."),
		Entry("server", docqa.KindServerError, "Server error occurred."),
		Entry("not found", docqa.KindNotFound, "Document not found."),
		Entry("auth", docqa.KindAuthFailure, "Authentication failed."),
		Entry("circuit open", docqa.KindCircuitOpen, "The service is temporarily unavailable."),
		Entry("unknown", docqa.KindUnknown, "An unexpected error occurred."),
	)

	It("formats as an error with the status", func() {
		f := &docqa.Failure{Kind: docqa.KindNotFound, Message: "gone", HTTPStatus: http.StatusNotFound}

		Expect(f.Error()).To(Equal("NOT_FOUND (status 404): gone"))
		Expect(f.StatusCode()).To(Equal(http.StatusNotFound))
		Expect(errors.Is(f, docqa.ErrNotFound)).To(BeTrue())
	})

	It("is found in a wrapped error chain", func() {
		cause := errors.New("boom")
		err := errors.Join(errors.New("context"), &docqa.Failure{Kind: docqa.KindNetworkError, Cause: cause})

		f, ok := docqa.AsFailure(err)
		Expect(ok).To(BeTrue())
		Expect(f.Kind).To(Equal(docqa.KindNetworkError))
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(errors.Is(err, docqa.ErrNetwork)).To(BeTrue())

		_, ok = docqa.AsFailure(cause)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Outcome", func() {
	It("treats the zero value as a failure", func() {
		var o docqa.Outcome

		Expect(o.IsSuccess()).To(BeFalse())
		Expect(o.Kind()).To(Equal(docqa.KindUnknown))
		Expect(o.Payload()).To(BeNil())
		Expect(o.Err()).To(HaveOccurred())
	})

	It("refuses to decode a failure", func() {
		o := docqa.NewFailureOutcome(docqa.KindNotFound, "")

		var v map[string]any
		Expect(o.Decode(&v)).To(MatchError(docqa.ErrNotFound))
	})
})
