package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Naming", func() {
	DescribeTable("valid names",
		func(name string) {
			Expect(func() { NameMustBeValid(name) }).NotTo(Panic())
		},
		Entry("single element", "Bus"),
		Entry("hierarchy", "Bus.Decoder"),
		Entry("indexed", "Bus.Master[0].Driver"),
		Entry("multi-indexed", "Bus.Port[1][2]"),
	)

	DescribeTable("invalid names",
		func(name string) {
			Expect(func() { NameMustBeValid(name) }).To(Panic())
		},
		Entry("trailing dot", "Bus."),
		Entry("empty element", "Bus..Decoder"),
		Entry("lower case", "Bus.decoder"),
		Entry("underscore", "Bus.Out_Stage"),
		Entry("unclosed bracket", "Bus.Port[1"),
		Entry("non-integer index", "Bus.Port[a]"),
	)

	It("should build names", func() {
		Expect(BuildName("", "Bus")).To(Equal("Bus"))
		Expect(BuildName("Bus", "Decoder")).To(Equal("Bus.Decoder"))
		Expect(BuildNameWithIndex("Bus", "Master", 2)).
			To(Equal("Bus.Master[2]"))
	})
})

var _ = Describe("Freq", func() {
	It("should get period", func() {
		f := 1 * GHz
		Expect(f.Period()).To(BeNumerically("==", 1e-9))
	})

	It("should convert between cycles and time", func() {
		f := 50 * MHz
		Expect(f.CycleTime(5)).To(BeNumerically("~", 100e-9, 1e-15))
		Expect(f.Cycle(100e-9)).To(Equal(uint64(5)))
	})

	It("should panic on zero frequency", func() {
		Expect(func() { Freq(0).Period() }).To(Panic())
	})
})

var _ = Describe("IDGenerator", func() {
	It("should count up", func() {
		g := NewSequentialIDGenerator()

		Expect([]string{g.Generate(), g.Generate(), g.Generate()}).
			To(Equal([]string{"1", "2", "3"}))
	})

	It("should not repeat unique IDs", func() {
		g := NewUniqueIDGenerator()

		Expect(g.Generate()).NotTo(Equal(g.Generate()))
	})

	It("should be replaceable", func() {
		prev := GetIDGenerator()
		DeferCleanup(SetIDGenerator, prev)

		g := NewSequentialIDGenerator()
		SetIDGenerator(g)

		Expect(GetIDGenerator()).To(BeIdenticalTo(g))
		Expect(GetIDGenerator().Generate()).To(Equal("1"))
	})
})
