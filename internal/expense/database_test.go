package expense

import (
	"context"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		ctx    context.Context
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("InsertLineItem", func() {
		var err error

		JustBeforeEach(func() {
			err = db.InsertLineItem(ctx, &LineItem{Name: "Milk", Price: 3.5})
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should store the item", func() {
			items, listErr := db.ListLineItems(ctx)
			Expect(listErr).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].LineItem).To(Equal(LineItem{Name: "Milk", Price: 3.5}))
			Expect(items[0].ID).To(Equal(uint64(1)))
		})

		It("allows duplicates", func() {
			Expect(db.InsertLineItem(ctx, &LineItem{Name: "Milk", Price: 3.5})).To(Succeed())
			items, listErr := db.ListLineItems(ctx)
			Expect(listErr).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
		})

		When("the context is cancelled", func() {
			BeforeEach(func() {
				cancelled, cancel := context.WithCancel(context.Background())
				cancel()
				ctx = cancelled
			})

			It("returns the context error", func() {
				Expect(err).To(MatchError(context.Canceled))
			})
		})
	})

	Describe("ListLineItems", func() {
		It("returns an empty slice when nothing is stored", func() {
			items, err := db.ListLineItems(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).NotTo(BeNil())
			Expect(items).To(BeEmpty())
		})

		It("returns items in insertion order beyond 255 keys", func() {
			for i := 0; i < 300; i++ {
				Expect(db.InsertLineItem(ctx, &LineItem{Name: "item", Price: float64(i)})).To(Succeed())
			}
			items, err := db.ListLineItems(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(300))
			for i, item := range items {
				Expect(item.Price).To(Equal(float64(i)))
			}
		})
	})

	Describe("WithinTx", func() {
		It("commits every insert when fn succeeds", func() {
			err := db.WithinTx(ctx, func(w LineItemWriter) error {
				if err := w.InsertLineItem(ctx, &LineItem{Name: "Milk", Price: 3.5}); err != nil {
					return err
				}
				return w.InsertLineItem(ctx, &LineItem{Name: "Bread", Price: 2})
			})
			Expect(err).NotTo(HaveOccurred())

			items, err := db.ListLineItems(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(2))
			Expect(items[0].Name).To(Equal("Milk"))
			Expect(items[1].Name).To(Equal("Bread"))
		})

		It("rolls back every insert when fn fails", func() {
			boom := errors.New("boom")
			err := db.WithinTx(ctx, func(w LineItemWriter) error {
				if err := w.InsertLineItem(ctx, &LineItem{Name: "Milk", Price: 3.5}); err != nil {
					return err
				}
				return boom
			})
			Expect(err).To(MatchError(boom))

			items, err := db.ListLineItems(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(BeEmpty())
		})
	})

	Describe("NewBoltDB", func() {
		It("reopens an existing file with its data", func() {
			Expect(db.InsertLineItem(ctx, &LineItem{Name: "Milk", Price: 3.5})).To(Succeed())
			Expect(db.Close()).To(Succeed())

			reopened, err := NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			db = reopened

			items, err := db.ListLineItems(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
		})

		It("fails for an unwritable path", func() {
			_, err := NewBoltDB(filepath.Join(GinkgoT().TempDir(), "missing", "test.db"))
			Expect(err).To(MatchError(ContainSubstring("opening boltdb")))
		})
	})
})
