package ahb

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Arbiter", func() {
	busy := NonSeqPhase(ReadMeta(0x10, SizeWord))

	hold := func(a AddrPhase) AddrPhase {
		a.Ready = false
		return a
	}

	locked := func(a AddrPhase) AddrPhase {
		a.Lock = true
		return a
	}

	Context("fixed priority", func() {
		var arbiter *FixedArbiter

		BeforeEach(func() {
			arbiter = NewFixedArbiter("Arbiter", 1)
			arbiter.Commit()
		})

		It("should start with the default master", func() {
			Expect(arbiter.Arbitrate([]bool{false, false}, IdlePhase())).
				To(Equal(1))
			Expect(arbiter.AddrRoute()).To(Equal(1))
		})

		It("should prefer the lowest index", func() {
			Expect(arbiter.Arbitrate([]bool{true, true}, busy)).To(Equal(0))
			arbiter.Commit()
			Expect(arbiter.Arbitrate([]bool{true, true}, busy)).To(Equal(0))
		})

		It("should hand over when the owner goes idle", func() {
			Expect(arbiter.Arbitrate([]bool{false, false}, IdlePhase())).
				To(Equal(1))
			arbiter.Commit()
			Expect(arbiter.Arbitrate([]bool{true, false}, IdlePhase())).
				To(Equal(0))
		})

		It("should keep the owner on a hold", func() {
			Expect(arbiter.Arbitrate([]bool{true, false}, hold(busy))).
				To(Equal(1))
		})

		It("should keep the owner of a locked transfer", func() {
			Expect(arbiter.Arbitrate([]bool{true, false}, locked(busy))).
				To(Equal(1))
		})
	})

	Context("round-robin", func() {
		var arbiter *RoundRobinArbiter

		BeforeEach(func() {
			arbiter = NewRoundRobinArbiter("Arbiter")
			arbiter.Commit()
		})

		It("should start without an owner", func() {
			Expect(arbiter.Arbitrate([]bool{false, false}, IdlePhase())).
				To(Equal(NoMaster))
		})

		It("should serve contending masters in turn", func() {
			var grants []int

			for i := 0; i < 6; i++ {
				grants = append(grants,
					arbiter.Arbitrate([]bool{true, true, true}, busy))
				arbiter.Commit()
			}

			Expect(grants).To(Equal([]int{0, 1, 2, 0, 1, 2}))
		})

		It("should skip masters that do not request", func() {
			Expect(arbiter.Arbitrate([]bool{false, true, true}, busy)).
				To(Equal(1))
			arbiter.Commit()
			Expect(arbiter.Arbitrate([]bool{true, false, true}, busy)).
				To(Equal(2))
			arbiter.Commit()
			Expect(arbiter.Arbitrate([]bool{false, true, false}, busy)).
				To(Equal(1))
		})

		It("should keep the owner on a hold", func() {
			arbiter.Arbitrate([]bool{false, true}, busy)
			arbiter.Commit()

			Expect(arbiter.Arbitrate([]bool{true, false}, hold(busy))).
				To(Equal(1))
		})
	})
})
