package extraction

import (
	"context"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Mindee", func() {
	const apiKey = "secret-mindee-key"

	var (
		server    *ghttp.Server
		extractor *Mindee
		doc       Document
		result    *Result
		err       error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var newErr error
		extractor, newErr = NewMindee(server.URL(), apiKey)
		Expect(newErr).NotTo(HaveOccurred())
		doc = Document{
			Filename:    "receipt.jpg",
			ContentType: "image/jpeg",
			Data:        []byte("fake image data"),
		}
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		result, err = extractor.Extract(context.Background(), doc)
	})

	Describe("NewMindee", func() {
		It("requires an api key", func() {
			_, newErr := NewMindee("", "")
			Expect(newErr).To(MatchError("mindee api key is required"))
		})
	})

	When("the API returns line items", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, mindeeReceiptPath),
				ghttp.VerifyHeaderKV("Authorization", "Token "+apiKey),
				func(w http.ResponseWriter, r *http.Request) {
					f, header, formErr := r.FormFile("document")
					Expect(formErr).NotTo(HaveOccurred())
					defer f.Close()
					Expect(header.Filename).To(Equal("receipt.jpg"))
					data, readErr := io.ReadAll(f)
					Expect(readErr).NotTo(HaveOccurred())
					Expect(string(data)).To(Equal("fake image data"))
				},
				ghttp.RespondWith(http.StatusCreated, `{
					"api_request": {"error": {}, "status": "success", "status_code": 201},
					"document": {"inference": {"prediction": {"line_items": [
						{"description": "Milk", "total_amount": 3.5, "confidence": 0.99},
						{"description": "Bread", "total_amount": 2.0, "confidence": 0.98}
					]}}}
				}`),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the line items in order", func() {
			Expect(result.LineItems).To(HaveLen(2))
			Expect(result.LineItems[0].Description).To(Equal("Milk"))
			Expect(result.LineItems[1].Description).To(Equal("Bread"))
		})
	})

	When("the API returns an empty line item list", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusCreated,
				`{"document": {"inference": {"prediction": {"line_items": []}}}}`))
		})

		It("should return an empty result", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.LineItems).To(BeEmpty())
		})
	})

	When("the prediction is missing", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusCreated,
				`{"document": {"inference": {}}}`))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("no line item prediction")))
		})
	})

	When("the API rejects the credentials", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized,
				`{"api_request": {"error": {"code": "Unauthorized", "message": "Authorization required for key `+apiKey+`"}, "status": "failure", "status_code": 401}}`))
		})

		It("returns the status and message", func() {
			Expect(err).To(MatchError(ContainSubstring("status 401")))
			Expect(err).To(MatchError(ContainSubstring("Authorization required")))
		})

		It("should not leak the api key", func() {
			Expect(err.Error()).NotTo(ContainSubstring(apiKey))
			Expect(err.Error()).To(ContainSubstring("[REDACTED]"))
		})
	})

	When("the API returns a non-JSON error", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusBadGateway, "upstream unavailable"))
		})

		It("returns the raw body", func() {
			Expect(err).To(MatchError(ContainSubstring("upstream unavailable")))
		})
	})

	When("the API returns a long multi-byte error body", func() {
		BeforeEach(func() {
			// 511 ASCII bytes then a 3-byte rune straddling the cut
			server.AppendHandlers(ghttp.RespondWith(http.StatusBadGateway, strings.Repeat("a", 511)+strings.Repeat("€", 10)))
		})

		It("truncates on a rune boundary", func() {
			Expect(err).To(HaveOccurred())
			Expect(utf8.ValidString(err.Error())).To(BeTrue())
			Expect(err.Error()).To(HaveSuffix(strings.Repeat("a", 511)))
		})
	})

	When("the service is unreachable", func() {
		BeforeEach(func() {
			server.Close()
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("calling mindee API")))
		})
	})
})

var _ = Describe("truncateUTF8", func() {
	DescribeTable("cuts without splitting runes",
		func(input string, n int, expected string) {
			Expect(truncateUTF8(input, n)).To(Equal(expected))
		},
		Entry("short strings are untouched", "abc", 5, "abc"),
		Entry("ascii cut", "abcdef", 3, "abc"),
		Entry("backs up before a split rune", "ab€", 3, "ab"),
		Entry("keeps a whole rune", "ab€", 5, "ab€"),
	)
})
