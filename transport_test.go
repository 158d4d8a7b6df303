package docqa_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	docqa "github.com/JohnPlummer/jp-go-docqa"
)

var _ = Describe("HTTPTransport", func() {
	var (
		ctx       context.Context
		transport *docqa.HTTPTransport
	)

	BeforeEach(func() {
		ctx = context.Background()
		transport = docqa.NewHTTPTransport(nil)
	})

	It("sends the method, headers and body", func() {
		var (
			gotMethod string
			gotHeader http.Header
			gotBody   []byte
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotHeader = r.Header.Clone()
			gotBody, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"ok":true}`)
		}))
		DeferCleanup(server.Close)

		resp, err := transport.Execute(ctx, &docqa.Request{
			URL:    server.URL + "/query",
			Method: http.MethodPost,
			Header: http.Header{"Authorization": []string{"token-1"}},
			Body:   []byte(`{"question":"q"}`),
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(gotMethod).To(Equal(http.MethodPost))
		Expect(gotHeader.Get("Authorization")).To(Equal("token-1"))
		Expect(string(gotBody)).To(Equal(`{"question":"q"}`))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		Expect(resp.OK()).To(BeTrue())
		Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
		Expect(string(resp.Body)).To(Equal(`{"ok":true}`))
	})

	It("returns error statuses as responses", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}))
		DeferCleanup(server.Close)

		resp, err := transport.Execute(ctx, &docqa.Request{URL: server.URL, Method: http.MethodGet})

		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		Expect(resp.OK()).To(BeFalse())
		Expect(resp.StatusText()).To(Equal("Service Unavailable"))
	})

	It("returns an error without the query string when nothing answers", func() {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		resp, err := transport.Execute(ctx, &docqa.Request{
			URL:    url + "/upload?filename=a.pdf&auth=secret-token",
			Method: http.MethodPost,
		})

		Expect(resp).To(BeNil())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("/upload"))
		Expect(err.Error()).NotTo(ContainSubstring("secret-token"))
	})

	It("rejects a malformed URL", func() {
		_, err := transport.Execute(ctx, &docqa.Request{URL: "://bad", Method: http.MethodGet})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Request", func() {
	It("clones headers and body", func() {
		req := &docqa.Request{
			URL:    "https://api.example.com",
			Method: http.MethodPost,
			Header: http.Header{"X-Test": []string{"a"}},
			Body:   []byte("body"),
		}

		clone := req.Clone()
		clone.Header.Set("X-Test", "b")
		clone.Body[0] = 'B'

		Expect(req.Header.Get("X-Test")).To(Equal("a"))
		Expect(string(req.Body)).To(Equal("body"))
		Expect(clone.URL).To(Equal(req.URL))
	})
})

var _ = Describe("Response", func() {
	DescribeTable("StatusText",
		func(status int, line, expected string) {
			resp := &docqa.Response{StatusCode: status, Status: line}
			Expect(resp.StatusText()).To(Equal(expected))
		},
		Entry("from the status line", 418, "418 Short And Stout", "Short And Stout"),
		Entry("standard phrase when the line is empty", 404, "", "Not Found"),
		Entry("standard phrase when the line is only a code", 400, "400", "Bad Request"),
	)
})
