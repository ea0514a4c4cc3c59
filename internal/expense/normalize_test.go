package expense

import (
	"encoding/json"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/expense-tracker/internal/extraction"
)

var _ = Describe("Normalize", func() {
	DescribeTable("maps raw lines to line items",
		func(raw extraction.RawLineItem, expected LineItem) {
			Expect(Normalize(raw)).To(Equal(expected))
		},
		Entry("description and string amount",
			extraction.RawLineItem{Description: "Milk", TotalAmount: "3.50"},
			LineItem{Name: "Milk", Price: 3.5}),
		Entry("numeric amount",
			extraction.RawLineItem{Description: "Bread", TotalAmount: 2.0},
			LineItem{Name: "Bread", Price: 2}),
		Entry("json.Number amount",
			extraction.RawLineItem{Description: "Eggs", TotalAmount: json.Number("4.25")},
			LineItem{Name: "Eggs", Price: 4.25}),
		Entry("no fields",
			extraction.RawLineItem{},
			LineItem{Name: "Unknown", Price: 0}),
		Entry("empty description",
			extraction.RawLineItem{Description: "", TotalAmount: "1"},
			LineItem{Name: "Unknown", Price: 1}),
		Entry("whitespace description",
			extraction.RawLineItem{Description: "   ", TotalAmount: "1"},
			LineItem{Name: "Unknown", Price: 1}),
		Entry("padded description",
			extraction.RawLineItem{Description: "  Tea  "},
			LineItem{Name: "Tea", Price: 0}),
		Entry("numeric description",
			extraction.RawLineItem{Description: json.Number("42")},
			LineItem{Name: "42", Price: 0}),
		Entry("non-numeric amount",
			extraction.RawLineItem{Description: "Soap", TotalAmount: "abc"},
			LineItem{Name: "Soap", Price: 0}),
		Entry("thousands separator",
			extraction.RawLineItem{Description: "TV", TotalAmount: "1,299.99"},
			LineItem{Name: "TV", Price: 1299.99}),
		Entry("comma decimal amount",
			extraction.RawLineItem{Description: "Milk", TotalAmount: "3,50"},
			LineItem{Name: "Milk", Price: 0}),
		Entry("misplaced comma",
			extraction.RawLineItem{Description: "Milk", TotalAmount: "12,34.00"},
			LineItem{Name: "Milk", Price: 0}),
		Entry("several thousands groups",
			extraction.RawLineItem{Description: "Car", TotalAmount: "1,234,567.50"},
			LineItem{Name: "Car", Price: 1234567.5}),
		Entry("negative amount",
			extraction.RawLineItem{Description: "Coupon", TotalAmount: -1.5},
			LineItem{Name: "Coupon", Price: 0}),
		Entry("NaN amount",
			extraction.RawLineItem{Description: "Odd", TotalAmount: "NaN"},
			LineItem{Name: "Odd", Price: 0}),
		Entry("infinite amount",
			extraction.RawLineItem{Description: "Odd", TotalAmount: math.Inf(1)},
			LineItem{Name: "Odd", Price: 0}),
		Entry("unsupported amount type",
			extraction.RawLineItem{Description: "Odd", TotalAmount: true},
			LineItem{Name: "Odd", Price: 0}),
	)

	It("is idempotent", func() {
		raw := extraction.RawLineItem{Description: "Milk", TotalAmount: "3.50"}
		Expect(Normalize(raw)).To(Equal(Normalize(raw)))
	})

	It("is a fixed point on its own output", func() {
		first := Normalize(extraction.RawLineItem{Description: "Milk", TotalAmount: "3.50"})
		second := Normalize(extraction.RawLineItem{Description: first.Name, TotalAmount: first.Price})
		Expect(second).To(Equal(first))
	})
})

var _ = Describe("NormalizeAll", func() {
	It("keeps extraction order", func() {
		items := NormalizeAll([]extraction.RawLineItem{
			{Description: "Milk", TotalAmount: "3.50"},
			{Description: "Bread", TotalAmount: "2.00"},
		})
		Expect(items).To(Equal([]LineItem{
			{Name: "Milk", Price: 3.5},
			{Name: "Bread", Price: 2},
		}))
	})

	It("returns an empty slice for no input", func() {
		Expect(NormalizeAll(nil)).To(BeEmpty())
	})
})
