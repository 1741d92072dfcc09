package bills_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/bill-tracker/internal/bills"
)

var _ = Describe("SQLiteLedger", func() {
	var (
		ctx    context.Context
		dbPath string
		ledger *bills.SQLiteLedger
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "bills_test.db")
		var err error
		ledger, err = bills.NewSQLiteLedger(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if ledger != nil {
			ledger.Close()
		}
	})

	Describe("Insert", func() {
		var (
			entry *bills.Entry
			err   error
		)

		BeforeEach(func() {
			entry = &bills.Entry{Date: "2024-01-15", Category: "grocery", Amount: 3.5, Description: "Milk"}
		})

		JustBeforeEach(func() {
			err = ledger.Insert(ctx, entry)
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should assign an id", func() {
			Expect(entry.ID).To(BeNumerically(">", 0))
		})

		It("should assign increasing ids", func() {
			next := &bills.Entry{Date: "2024-01-16", Category: "utensil", Amount: 1, Description: "Spoon"}
			Expect(ledger.Insert(ctx, next)).To(Succeed())
			Expect(next.ID).To(BeNumerically(">", entry.ID))
		})

		It("should accept a zero amount", func() {
			zero := &bills.Entry{Date: "2024-01-16", Category: "miscellaneous", Amount: 0}
			Expect(ledger.Insert(ctx, zero)).To(Succeed())
		})
	})

	Describe("List", func() {
		When("the ledger is empty", func() {
			It("should return an empty list", func() {
				entries, err := ledger.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).NotTo(BeNil())
				Expect(entries).To(BeEmpty())
			})
		})

		When("entries exist", func() {
			BeforeEach(func() {
				Expect(ledger.Insert(ctx, &bills.Entry{Date: "2024-02-01", Category: "clothing", Amount: 20, Description: "Shirt"})).To(Succeed())
				Expect(ledger.Insert(ctx, &bills.Entry{Date: "2024-01-15", Category: "grocery", Amount: 10, Description: "Food"})).To(Succeed())
			})

			It("should return them in insertion order", func() {
				entries, err := ledger.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(2))
				Expect(entries[0].Description).To(Equal("Shirt"))
				Expect(entries[1].Description).To(Equal("Food"))
			})

			It("should round trip every field", func() {
				entries, err := ledger.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(*entries[1]).To(Equal(bills.Entry{ID: entries[1].ID, Date: "2024-01-15", Category: "grocery", Amount: 10, Description: "Food"}))
			})
		})

		When("the ledger is reopened", func() {
			It("should keep the entries", func() {
				Expect(ledger.Insert(ctx, &bills.Entry{Date: "2024-02-01", Category: "grocery", Amount: 2})).To(Succeed())
				Expect(ledger.Close()).To(Succeed())

				var err error
				ledger, err = bills.NewSQLiteLedger(dbPath)
				Expect(err).NotTo(HaveOccurred())
				entries, err := ledger.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(1))
			})
		})
	})

	Describe("Delete", func() {
		var kept, removed *bills.Entry

		BeforeEach(func() {
			kept = &bills.Entry{Date: "2024-01-01", Category: "grocery", Amount: 1, Description: "keep"}
			removed = &bills.Entry{Date: "2024-01-02", Category: "grocery", Amount: 2, Description: "remove"}
			Expect(ledger.Insert(ctx, kept)).To(Succeed())
			Expect(ledger.Insert(ctx, removed)).To(Succeed())
		})

		When("the entry exists", func() {
			It("should report the removal", func() {
				deleted, err := ledger.Delete(ctx, removed.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(deleted).To(BeTrue())
			})

			It("should remove only that entry", func() {
				_, err := ledger.Delete(ctx, removed.ID)
				Expect(err).NotTo(HaveOccurred())
				entries, err := ledger.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(1))
				Expect(entries[0].ID).To(Equal(kept.ID))
			})
		})

		When("the entry does not exist", func() {
			It("should not return an error", func() {
				deleted, err := ledger.Delete(ctx, 9999)
				Expect(err).NotTo(HaveOccurred())
				Expect(deleted).To(BeFalse())
			})

			It("should leave the ledger unchanged", func() {
				_, err := ledger.Delete(ctx, 9999)
				Expect(err).NotTo(HaveOccurred())
				entries, err := ledger.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(2))
			})
		})

		When("the same entry is deleted twice", func() {
			It("should succeed both times", func() {
				first, err := ledger.Delete(ctx, removed.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(first).To(BeTrue())
				second, err := ledger.Delete(ctx, removed.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(second).To(BeFalse())
			})
		})
	})
})
