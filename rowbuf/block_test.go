package rowbuf_test

import (
	"github.com/linuxfood/setab/row"
	"github.com/linuxfood/setab/rowbuf"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Block", func() {
	// OneInsert scenario.
	It("tracks a single row's id and timestamp", func() {
		b := rowbuf.NewBlock(10)
		r := makeRow(4, 10, row.TextValue("hello"))

		Expect(b.Size()).To(Equal(0))
		Expect(b.Append(r)).To(BeTrue())
		Expect(b.Size()).To(Equal(1))

		min, max := b.MinMaxTS()
		Expect(min).To(Equal(int64(10)))
		Expect(max).To(Equal(int64(10)))
		Expect(b.Front().RowID()).To(Equal(int64(4)))
	})

	// MaxInsert scenario.
	It("refuses appends past capacity and reports the right bounds", func() {
		b := rowbuf.NewBlock(10)
		ts := int64(0)
		id := int64(0)
		appended := true
		for appended {
			id++
			appended = b.Append(makeRow(id, ts))
			ts += 2
		}
		Expect(b.Size()).To(Equal(10))
		min, max := b.MinMaxTS()
		Expect(min).To(Equal(int64(0)))
		Expect(max).To(Equal(int64(18)))
		Expect(b.Front().RowID()).To(Equal(int64(1)))
		Expect(b.Back().RowID()).To(Equal(int64(10)))
	})

	It("does not mutate on a failed append", func() {
		b := rowbuf.NewBlock(1)
		Expect(b.Append(makeRow(1, 0))).To(BeTrue())
		Expect(b.Append(makeRow(2, 5))).To(BeFalse())
		Expect(b.Size()).To(Equal(1))
		_, max := b.MinMaxTS()
		Expect(max).To(Equal(int64(0)))
	})
})
