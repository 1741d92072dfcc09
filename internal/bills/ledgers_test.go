package bills_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/bill-tracker/internal/auth"
	"github.com/zombor/bill-tracker/internal/bills"
)

var _ = Describe("Ledgers", func() {
	var (
		ctx     context.Context
		dir     string
		ledgers *bills.Ledgers
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		var err error
		ledgers, err = bills.NewLedgers(dir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(ledgers.Close()).To(Succeed())
	})

	It("should create one file per user", func() {
		_, err := ledgers.For("alice")
		Expect(err).NotTo(HaveOccurred())
		_, err = os.Stat(ledgers.Path("alice"))
		Expect(err).NotTo(HaveOccurred())
		Expect(ledgers.Path("alice")).To(HaveSuffix("bills_alice.db"))
	})

	It("should return the same handle for the same user", func() {
		first, err := ledgers.For("alice")
		Expect(err).NotTo(HaveOccurred())
		second, err := ledgers.For("alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(BeIdenticalTo(first))
	})

	It("should keep users' entries apart", func() {
		alice, err := ledgers.For("alice")
		Expect(err).NotTo(HaveOccurred())
		bob, err := ledgers.For("bob")
		Expect(err).NotTo(HaveOccurred())

		Expect(alice.Insert(ctx, &bills.Entry{Date: "2024-01-01", Category: "grocery", Amount: 5})).To(Succeed())

		entries, err := bob.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("should refuse usernames that could escape the data directory", func() {
		_, err := ledgers.For("../alice")
		Expect(err).To(MatchError(auth.ErrInvalidUsername))
	})

	It("should reopen a user's ledger after Close", func() {
		alice, err := ledgers.For("alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(alice.Insert(ctx, &bills.Entry{Date: "2024-01-01", Category: "grocery", Amount: 5})).To(Succeed())
		Expect(ledgers.Close()).To(Succeed())

		alice, err = ledgers.For("alice")
		Expect(err).NotTo(HaveOccurred())
		entries, err := alice.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})
})
