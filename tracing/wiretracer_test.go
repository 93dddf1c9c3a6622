package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/ahbfabric/memory"
)

var _ = Describe("WireTracer", func() {
	var (
		mockCtrl *gomock.Controller
		backend  *MockDataRecorder
		recs     []WireRecord
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		backend = NewMockDataRecorder(mockCtrl)
		recs = nil

		backend.EXPECT().CreateTable(WireTable, WireRecord{})
		backend.EXPECT().InsertData(WireTable, gomock.Any()).
			Do(func(_ string, entry any) {
				recs = append(recs, entry.(WireRecord))
			}).
			AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should record both directions of a tap", func() {
		ctrl := memory.MakeControllerBuilder().Build("RAM")
		Expect(ctrl.Storage.Write(0x10, []byte{1, 2, 3, 4})).To(Succeed())

		f := newFabric(ctrl, readOf("r1", 0x10))
		NewWireTracer(backend).Watch(f.tap)

		f.clock.Run(2)

		Expect(recs).To(HaveLen(4))

		Expect(recs[0].Signal).To(Equal("Response"))
		Expect(recs[0].Cycle).To(Equal(uint64(0)))

		req := recs[1]
		Expect(req.Signal).To(Equal("Request"))
		Expect(req.Tap).To(Equal("Tap"))
		Expect(req.Kind).To(Equal("NonSeq"))
		Expect(req.Addr).To(Equal(uint32(0x10)))
		Expect(req.Ready).To(BeTrue())
		Expect(req.Granted).To(BeTrue())

		resp := recs[2]
		Expect(resp.Cycle).To(Equal(uint64(1)))
		Expect(resp.Resp).To(Equal("Success"))
		Expect(resp.Responder).To(Equal("RAM"))
		Expect(resp.HasData).To(BeTrue())
		Expect(resp.Data).To(Equal(uint32(0x04030201)))

		Expect(recs[3].Kind).To(Equal("Idle"))
	})
})
