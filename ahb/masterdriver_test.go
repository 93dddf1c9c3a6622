package ahb

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

type writeSupplier struct {
	*MockMasterOwner
	data DataBus
}

func (s *writeSupplier) WriteNeedsData(_ *Transfer) DataBus {
	return s.data
}

var _ = Describe("MasterDriver", func() {
	var (
		mockCtrl *gomock.Controller
		port     *MockPort
		owner    *MockMasterOwner
		driver   *MasterDriver
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		port = NewMockPort(mockCtrl)
		owner = NewMockMasterOwner(mockCtrl)
		driver = MakeMasterDriverBuilder().
			WithDownstream(port).
			WithOwner(owner).
			Build("Master")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	cycle := func(reply SlaveToMaster, granted bool) {
		port.EXPECT().Response().Return(reply)
		port.EXPECT().Request(gomock.Any()).Return(granted)
		driver.Drive()
	}

	It("should only take requests between tick and drive", func() {
		t := &Transfer{Meta: ReadMeta(0x10, SizeWord)}

		Expect(func() { driver.TryRequest(t) }).To(Panic())
	})

	It("should present the address phase and pipeline", func() {
		t1 := &Transfer{Meta: ReadMeta(0x10, SizeWord)}
		t2 := &Transfer{Meta: ReadMeta(0x14, SizeWord)}

		driver.Tick()
		Expect(driver.TryRequest(t1)).To(BeTrue())
		Expect(driver.TryRequest(t2)).To(BeFalse())
		Expect(t1.ID).NotTo(BeEmpty())

		port.EXPECT().Response().Return(ReplyOf(Success, "S"))
		port.EXPECT().Request(gomock.Any()).
			DoAndReturn(func(msg MasterToSlave) bool {
				Expect(msg.Addr.Kind).To(Equal(TransferNonSeq))
				Expect(msg.Addr.Meta).To(Equal(t1.Meta))
				Expect(msg.Addr.Ready).To(BeTrue())
				Expect(msg.Addr.ID).To(Equal(t1.ID))
				return true
			})
		driver.Drive()

		driver.Tick()
		Expect(driver.PipelineAdvanced()).To(BeTrue())
		Expect(driver.DataPhase()).To(BeIdenticalTo(t1))
		Expect(t1.Status).To(Equal(DataPhaseWaiting))
		Expect(driver.CanPipeline()).To(BeTrue())
		Expect(driver.TryRequest(t2)).To(BeTrue())

		owner.EXPECT().TransferDone(t1)
		cycle(SlaveToMaster{Resp: Success, Data: Word(7), Responder: "S"}, true)

		Expect(t1.Status).To(Equal(DataPhaseDone))
		Expect(t1.Data).To(Equal(Word(7)))
		Expect(driver.AddrPhase()).To(BeIdenticalTo(t2))
	})

	It("should keep a denied address phase", func() {
		t := &Transfer{Meta: ReadMeta(0x10, SizeWord)}

		driver.Tick()
		driver.TryRequest(t)
		cycle(ReplyOf(Success, "S"), false)

		driver.Tick()
		Expect(t.Status).To(Equal(AddrPhaseDenied))
		Expect(driver.HasDataPhase()).To(BeFalse())
		Expect(driver.AddrPhase()).To(BeIdenticalTo(t))
	})

	It("should stall the address phase on a wait-state", func() {
		t1 := &Transfer{Meta: ReadMeta(0x10, SizeWord)}
		t2 := &Transfer{Meta: ReadMeta(0x14, SizeWord)}

		driver.Tick()
		driver.TryRequest(t1)
		cycle(ReplyOf(Success, "S"), true)

		driver.Tick()
		driver.TryRequest(t2)
		port.EXPECT().Response().Return(ReplyOf(WaitState, "S"))
		port.EXPECT().Request(gomock.Any()).
			DoAndReturn(func(msg MasterToSlave) bool {
				Expect(msg.Addr.Ready).To(BeFalse())
				return true
			})
		driver.Drive()

		driver.Tick()
		Expect(t2.Status).To(Equal(AddrPhaseStalled))
		Expect(driver.DataPhase()).To(BeIdenticalTo(t1))
		Expect(driver.PipelineAdvanced()).To(BeFalse())
	})

	It("should abort both phases on an error", func() {
		t1 := &Transfer{Meta: ReadMeta(0x10, SizeWord)}
		t2 := &Transfer{Meta: ReadMeta(0x14, SizeWord)}

		driver.Tick()
		driver.TryRequest(t1)
		cycle(ReplyOf(Success, "S"), true)

		driver.Tick()
		driver.TryRequest(t2)
		owner.EXPECT().TransfersAborted(t2, t1)
		cycle(ReplyOf(Error1, "S"), true)

		Expect(driver.IsFree()).To(BeTrue())

		driver.Tick()
		cycle(ReplyOf(Error2, "S"), true)

		driver.Tick()
		Expect(driver.IsFree()).To(BeTrue())
	})

	It("should panic on data with a wait-state", func() {
		driver.Tick()
		port.EXPECT().Response().
			Return(SlaveToMaster{Resp: WaitState, Data: Word(1), Responder: "S"})
		port.EXPECT().Request(gomock.Any()).Return(true)

		Expect(func() { driver.Drive() }).To(Panic())
	})

	Context("when replacing the address phase", func() {
		It("should allow it by default", func() {
			t1 := &Transfer{Meta: ReadMeta(0x10, SizeWord)}
			t2 := &Transfer{Meta: ReadMeta(0x20, SizeWord)}

			driver.Tick()
			driver.TryRequest(t1)

			Expect(driver.TryForceRequest(t2)).To(BeTrue())
			Expect(driver.AddrPhase()).To(BeIdenticalTo(t2))
			Expect(driver.TryForceCancel()).To(BeTrue())
			Expect(driver.HasAddrPhase()).To(BeFalse())
		})

		It("should refuse it in AHB-Lite compatible mode", func() {
			driver = MakeMasterDriverBuilder().
				WithAHBLiteCompat().
				WithDownstream(port).
				WithOwner(owner).
				Build("Master")
			t1 := &Transfer{Meta: ReadMeta(0x10, SizeWord)}
			t2 := &Transfer{Meta: ReadMeta(0x20, SizeWord)}

			driver.Tick()
			driver.TryRequest(t1)

			Expect(driver.TryForceRequest(t2)).To(BeFalse())
			Expect(driver.TryForceCancel()).To(BeFalse())
			Expect(driver.AddrPhase()).To(BeIdenticalTo(t1))
		})
	})

	Context("when writing", func() {
		It("should drive the provided data in the data phase", func() {
			t := &Transfer{Meta: WriteMeta(0x10, SizeWord)}

			driver.Tick()
			driver.TryRequest(t)
			Expect(driver.ProvideData(Word(3))).To(BeTrue())
			Expect(driver.ProvideData(Word(4))).To(BeFalse())
			cycle(ReplyOf(Success, "S"), true)

			driver.Tick()
			port.EXPECT().Response().Return(ReplyOf(Success, "S"))
			port.EXPECT().Request(gomock.Any()).
				DoAndReturn(func(msg MasterToSlave) bool {
					Expect(msg.Data.Data).To(Equal(Word(4)))
					Expect(msg.Data.ID).To(Equal(t.ID))
					return true
				})
			owner.EXPECT().TransferDone(t)
			driver.Drive()
		})

		It("should take late data for the write that just advanced", func() {
			t1 := &Transfer{Meta: WriteMeta(0x10, SizeWord)}
			t2 := &Transfer{Meta: WriteMeta(0x14, SizeWord)}

			driver.Tick()
			driver.TryRequest(t1)
			cycle(ReplyOf(Success, "S"), true)

			driver.Tick()
			driver.TryRequest(t2)
			driver.ProvideData(Word(8))

			Expect(t1.Data).To(Equal(Word(8)))
			Expect(t2.Data.IsPresent()).To(BeFalse())
		})

		It("should ask the owner for missing data", func() {
			supplier := &writeSupplier{MockMasterOwner: owner, data: Word(6)}
			driver.SetOwner(supplier)
			t := &Transfer{Meta: WriteMeta(0x10, SizeWord)}

			driver.Tick()
			driver.TryRequest(t)
			cycle(ReplyOf(Success, "S"), true)

			driver.Tick()
			owner.EXPECT().TransferDone(t)
			cycle(ReplyOf(Success, "S"), true)

			Expect(t.Data).To(Equal(Word(6)))
		})

		It("should panic without data", func() {
			t := &Transfer{Meta: WriteMeta(0x10, SizeWord)}

			driver.Tick()
			driver.TryRequest(t)
			cycle(ReplyOf(Success, "S"), true)

			driver.Tick()
			port.EXPECT().Response().Return(ReplyOf(Success, "S"))

			Expect(func() { driver.Drive() }).To(Panic())
		})
	})
})
