package streamtime_test

import (
	"time"

	"github.com/linuxfood/setab/streamtime"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func fakeClock(startMS int64) (*int64, func() int64) {
	t := startMS
	return &t, func() int64 { return t }
}

var _ = Describe("Estimator", func() {
	// StreamTime single sample scenario.
	It("reports stream-now equal to the single observation it has seen", func() {
		clock, fn := fakeClock(1_000_000)
		e := streamtime.New(5*time.Second, 50)
		e.SetClock(fn)

		e.AddObservation(1_000_000)
		_ = clock
		Expect(e.StreamNow(streamtime.Fast)).To(Equal(int64(1_000_000)))
		Expect(e.StreamNow(streamtime.Slow)).To(Equal(int64(1_000_000)))
		Expect(e.CurrentDelta(streamtime.Fast)).To(Equal(int64(0)))
	})

	It("clamps wildly out-of-order observations to maxDelta", func() {
		clock, fn := fakeClock(1_000_000)
		e := streamtime.New(2*time.Second, 50)
		e.SetClock(fn)

		e.AddObservation(*clock + 60_000) // way ahead of wall clock
		Expect(e.CurrentDelta(streamtime.Fast)).To(Equal(int64(2000)))

		e.AddObservation(*clock - 60_000) // way behind
		Expect(e.CurrentDelta(streamtime.Fast)).To(BeNumerically("<", 2000))
	})

	It("tracks the median delta across several samples", func() {
		clock, fn := fakeClock(0)
		e := streamtime.New(10*time.Second, 50)
		e.SetClock(fn)

		deltas := []int64{100, 200, 300, 400, 500}
		for _, d := range deltas {
			e.AddObservation(*clock + d)
		}
		Expect(e.CurrentDelta(streamtime.Fast)).To(Equal(int64(300)))
	})

	It("drops samples that have aged out of the requested window but keeps them for the slower one", func() {
		clock, fn := fakeClock(0)
		e := streamtime.New(10*time.Second, 50)
		e.SetClock(fn)
		e.SetWindows(100*time.Millisecond, 10*time.Second)

		e.AddObservation(*clock + 50)
		*clock += 500
		e.AddObservation(*clock + 1000)

		Expect(e.CurrentDelta(streamtime.Fast)).To(Equal(int64(1000)))
		Expect(e.SampleCount()).To(Equal(2))
	})

	It("reports zero delta and wall-now when nothing has been observed", func() {
		clock, fn := fakeClock(42)
		e := streamtime.New(time.Second, 50)
		e.SetClock(fn)

		Expect(e.CurrentDelta(streamtime.Fast)).To(Equal(int64(0)))
		Expect(e.StreamNow(streamtime.Fast)).To(Equal(*clock))
	})
})
