package ahb

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DataBus", func() {
	It("should not be driven by default", func() {
		Expect(HighZ().IsPresent()).To(BeFalse())
		Expect(func() { HighZ().Size() }).To(Panic())
	})

	It("should clip a word", func() {
		Expect(ClipWord(0x12345678, SizeHalfword)).To(Equal(Halfword(0x5678)))
		Expect(ClipWord(0x12345678, SizeByte)).To(Equal(Byte(0x78)))
	})

	It("should be little endian", func() {
		Expect(Word(0x11223344).Bytes()).
			To(Equal([]byte{0x44, 0x33, 0x22, 0x11}))
		Expect(FromBytes([]byte{0x44, 0x33})).To(Equal(Halfword(0x3344)))
	})

	DescribeTable("extracting parts",
		func(addr uint32, size Size, expected DataBus) {
			Expect(Word(0x11223344).ExtractFromAligned(addr, size)).
				To(Equal(expected))
		},
		Entry("low byte", uint32(0x10), SizeByte, Byte(0x44)),
		Entry("third byte", uint32(0x12), SizeByte, Byte(0x22)),
		Entry("unaligned halfword", uint32(0x11), SizeHalfword,
			Halfword(0x2233)),
		Entry("high halfword", uint32(0x12), SizeHalfword, Halfword(0x1122)),
		Entry("word", uint32(0x10), SizeWord, Word(0x11223344)),
	)

	It("should emplace parts", func() {
		w := Word(0).
			EmplaceInAligned(0x11, Halfword(0xbeef)).
			EmplaceInAligned(0x13, Byte(0xaa))

		Expect(w).To(Equal(Word(0xaabeef00)))
	})

	It("should refuse parts that overflow", func() {
		Expect(func() {
			Word(0).ExtractFromAligned(0x13, SizeHalfword)
		}).To(Panic())
	})
})
