package tracing

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ahbfabric/memory"
)

var _ = Describe("TransferLogger", func() {
	It("should log the transfer events", func() {
		buf := new(bytes.Buffer)
		f := newFabric(memory.MakeControllerBuilder().Build("RAM"),
			writeOf("w1", 0x10, 0xab), readOf("r1", 0x10))
		f.master.AcceptHook(NewTransferLogger(log.New(buf, "", 0)))

		f.clock.Run(4)

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		Expect(lines).To(HaveLen(4))
		Expect(string(lines[0])).To(HavePrefix("1,Master,TransferStart,w1,"))
		Expect(string(lines[1])).To(HavePrefix("1,Master,TransferDone,w1,"))
		Expect(string(lines[2])).To(HavePrefix("2,Master,TransferStart,r1,"))
		Expect(string(lines[3])).To(HavePrefix("2,Master,TransferDone,r1,"))
	})
})
