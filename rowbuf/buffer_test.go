package rowbuf_test

import (
	"time"

	"github.com/linuxfood/setab/rowbuf"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Buffer", func() {
	// AppendExtend scenario.
	It("extends the chain when a block fills up", func() {
		buf := rowbuf.New(100, 6000, 9600*time.Millisecond, 10)
		for i := int64(0); i < 15; i++ {
			buf.Append(makeRow(i, i))
		}
		stats := buf.Stat()
		Expect(stats.TotalRows).To(Equal(int64(15)))
		Expect(stats.TotalBlocks).To(Equal(int64(2)))
	})

	// CursorLiveBlocks scenario.
	It("keeps a block alive for an outstanding cursor past GC eligibility", func() {
		buf := rowbuf.New(30, 6000, 9600*time.Millisecond, 10)
		c := buf.GetCursor()
		Expect(c.Next()).To(BeFalse(), "advanced cursor on empty buffer")

		for i := int64(0); i < 40; i++ {
			buf.Append(makeRow(i, i))
		}
		stats := buf.Stat()
		Expect(stats.TotalBlocks).To(Equal(int64(3)))
		Expect(stats.TotalRows).To(Equal(int64(30)))

		for j := int64(0); j < 10; j++ {
			Expect(c.Get().RowID()).To(Equal(j))
			Expect(c.Next()).To(BeTrue())
		}

		c2 := buf.GetCursor()
		Expect(c2.Get().RowID()).To(Equal(int64(10)))
	})

	// CursorSeek scenario.
	It("seeks to the first row at or after a timestamp", func() {
		buf := rowbuf.New(20, 3000, 9600*time.Millisecond, 10)
		for i := int64(0); i < 20; i++ {
			buf.Append(makeRow(i, i))
		}
		c := buf.GetCursor()
		Expect(c.Seek(11)).To(BeTrue())
		Expect(c.Get().RowID()).To(Equal(int64(11)))
	})

	// ThreadUse scenario.
	It("wakes a blocked reader on the next write, positioned on the first appended row", func() {
		buf := rowbuf.New(20, 3000, 9600*time.Millisecond, 10)
		done := make(chan struct{})
		go func() {
			defer close(done)
			c := buf.GetCursor()
			Expect(buf.WaitForWrite(0)).To(BeTrue())
			Expect(c.Get().Valid()).To(BeTrue())
			Expect(c.Get().TS()).To(Equal(int64(30)))
		}()

		buf.Append(makeRow(1, 30))
		buf.Append(makeRow(2, 31))
		time.Sleep(20 * time.Millisecond)
		buf.Append(makeRow(3, 32))
		buf.Append(makeRow(4, 33))
		buf.Append(makeRow(5, 34))
		Eventually(done, time.Second).Should(BeClosed())
	})

	It("never drops the tail block even under heavy GC pressure", func() {
		buf := rowbuf.New(5, 100, time.Millisecond, 2)
		for i := int64(0); i < 50; i++ {
			buf.Append(makeRow(i, i))
		}
		Expect(buf.Stat().TotalBlocks).To(BeNumerically(">=", int64(1)))
	})
})
