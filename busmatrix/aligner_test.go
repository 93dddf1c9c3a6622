package busmatrix

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ahbfabric/ahb"
	"github.com/sarchlab/ahbfabric/sim"
)

var _ = Describe("Aligner", func() {
	var (
		clock *sim.Clock
		mem   *byteMem
	)

	setup := func(b AlignerBuilder, inject ...ahb.HandlerResult) *Aligner {
		clock = sim.NewClock("Clock", 1*sim.MHz)
		mem = newByteMem(inject...)
		for i := 0; i < 0x40; i++ {
			mem.fill(uint32(i), byte(i))
		}

		slave := ahb.NewSlaveDriver("Mem", mem)
		aligner := b.WithDownstream(slave).Build("Aligner")

		clock.Register(aligner)
		clock.Register(slave)

		return aligner
	}

	sizes := func(log []ahb.TransferMeta) []ahb.Size {
		s := make([]ahb.Size, len(log))
		for i, m := range log {
			s[i] = m.Size
		}

		return s
	}

	It("should pick the largest aligned chunk", func() {
		Expect(largestAligned(0x11, 4)).To(Equal(ahb.SizeByte))
		Expect(largestAligned(0x12, 3)).To(Equal(ahb.SizeHalfword))
		Expect(largestAligned(0x14, 1)).To(Equal(ahb.SizeByte))
		Expect(largestAligned(0x14, 4)).To(Equal(ahb.SizeWord))
	})

	It("should split an unaligned read", func() {
		aligner := setup(MakeAlignerBuilder())
		master := newQueueMaster(clock, aligner, read(0x11, ahb.SizeWord))

		clock.Run(5)

		Expect(metaAddrs(mem.log)).To(Equal([]uint32{0x11, 0x12, 0x14}))
		Expect(sizes(mem.log)).To(Equal([]ahb.Size{
			ahb.SizeByte, ahb.SizeHalfword, ahb.SizeByte,
		}))
		Expect(master.replies[:4]).To(Equal([]ahb.Response{
			ahb.Success, ahb.WaitState, ahb.WaitState, ahb.Success,
		}))
		Expect(master.done).To(HaveLen(1))
		Expect(master.done[0].Data).To(Equal(ahb.Word(0x14131211)))
		Expect(aligner.IsSplitting()).To(BeFalse())
	})

	It("should slice the data of an unaligned write", func() {
		aligner := setup(MakeAlignerBuilder())
		master := newQueueMaster(clock, aligner,
			write(0x13, ahb.Word(0x44332211)))

		clock.Run(5)

		Expect(metaAddrs(mem.log)).To(Equal([]uint32{0x13, 0x14, 0x16}))
		Expect(mem.word(0x13)).To(Equal(uint32(0x44332211)))
		Expect(mem.mem[0x12]).To(Equal(byte(0x12)))
		Expect(mem.mem[0x17]).To(Equal(byte(0x17)))
		Expect(master.done).To(HaveLen(1))
	})

	It("should cover exactly the bytes of every unaligned transfer", func() {
		for _, size := range []ahb.Size{ahb.SizeHalfword, ahb.SizeWord} {
			for addr := uint32(0x20); addr < 0x24; addr++ {
				if size.IsAligned(addr) {
					continue
				}

				aligner := setup(MakeAlignerBuilder())
				master := newQueueMaster(clock, aligner, read(addr, size))

				clock.Run(6)

				desc := fmt.Sprintf("%s at 0x%x", size, addr)
				next := addr
				for _, m := range mem.log {
					Expect(m.Addr).To(Equal(next), desc)
					Expect(m.Size.IsAligned(m.Addr)).To(BeTrue(), desc)
					next += m.Size.Bytes()
				}
				Expect(next).To(Equal(addr+size.Bytes()), desc)

				expected := make([]byte, size.Bytes())
				for i := range expected {
					expected[i] = byte(addr) + byte(i)
				}
				Expect(master.done).To(HaveLen(1), desc)
				Expect(master.done[0].Data).
					To(Equal(ahb.FromBytes(expected)), desc)
			}
		}
	})

	It("should pipeline the next transfer after a split", func() {
		aligner := setup(MakeAlignerBuilder())
		master := newQueueMaster(clock, aligner,
			read(0x11, ahb.SizeWord), read(0x18, ahb.SizeWord))

		clock.Run(6)

		Expect(master.replies[:5]).To(Equal([]ahb.Response{
			ahb.Success, ahb.WaitState, ahb.WaitState, ahb.Success, ahb.Success,
		}))
		Expect(master.done).To(HaveLen(2))
		Expect(master.done[1].Data).To(Equal(ahb.Word(0x1b1a1918)))
	})

	It("should abandon a split on an error", func() {
		aligner := setup(MakeAlignerBuilder(),
			ahb.HandlerSuccess, ahb.HandlerError)
		master := newQueueMaster(clock, aligner, read(0x11, ahb.SizeWord))

		clock.Run(5)

		Expect(master.replies[:4]).To(Equal([]ahb.Response{
			ahb.Success, ahb.WaitState, ahb.Error1, ahb.Error2,
		}))
		Expect(master.aborted).To(HaveLen(1))
		Expect(metaAddrs(mem.log)).To(Equal([]uint32{0x11}))
		Expect(aligner.IsSplitting()).To(BeFalse())
	})

	Context("when truncating", func() {
		truncating := func() AlignerBuilder {
			return MakeAlignerBuilder().WithPolicy(TruncateIn(
				ahb.AddrRange{Start: 0x10, End: 0x20}))
		}

		It("should read once and rotate the lanes", func() {
			aligner := setup(truncating())
			master := newQueueMaster(clock, aligner, read(0x11, ahb.SizeWord))

			clock.Run(3)

			Expect(metaAddrs(mem.log)).To(Equal([]uint32{0x10}))
			Expect(master.done[0].Data).To(Equal(ahb.Word(0x10131211)))
		})

		It("should write once with the same lane mapping", func() {
			aligner := setup(truncating())
			newQueueMaster(clock, aligner, write(0x11, ahb.Halfword(0xbbaa)))

			clock.Run(3)

			Expect(metaAddrs(mem.log)).To(Equal([]uint32{0x10}))
			Expect(mem.mem[0x10]).To(Equal(byte(0xbb)))
			Expect(mem.mem[0x11]).To(Equal(byte(0xaa)))
		})

		It("should still split outside the range", func() {
			aligner := setup(truncating())
			newQueueMaster(clock, aligner, read(0x21, ahb.SizeHalfword))

			clock.Run(4)

			Expect(metaAddrs(mem.log)).To(Equal([]uint32{0x21, 0x22}))
		})
	})

	Context("when disabled", func() {
		It("should forward unaligned transfers", func() {
			aligner := setup(MakeAlignerBuilder().Disabled())
			newQueueMaster(clock, aligner, read(0x11, ahb.SizeWord))

			clock.Run(3)

			Expect(aligner.IsEnabled()).To(BeFalse())
			Expect(mem.log).To(Equal([]ahb.TransferMeta{
				ahb.ReadMeta(0x11, ahb.SizeWord),
			}))
		})

		It("should apply enabling between transfers", func() {
			aligner := setup(MakeAlignerBuilder().Disabled())
			aligner.SetEnabled(true)

			Expect(aligner.IsEnabled()).To(BeFalse())

			newQueueMaster(clock, aligner, read(0x11, ahb.SizeWord))
			clock.Run(5)

			Expect(aligner.IsEnabled()).To(BeTrue())
			Expect(mem.log).To(HaveLen(3))
		})
	})
})
