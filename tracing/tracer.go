// Package tracing turns the events of master drivers and taps into records.
// Records can be collected in memory, written to a data recorder or logged.
package tracing

import (
	"github.com/sarchlab/ahbfabric/ahb"
)

// Outcomes of a traced transfer.
const (
	OutcomeDone    = "Done"
	OutcomeAborted = "Aborted"
)

// A TransferRecord describes one transfer of one master. Start is the cycle
// in which the transfer entered its data phase. Transfers aborted before
// reaching the data phase start and end in the same cycle.
type TransferRecord struct {
	ID      string
	Master  string
	Addr    uint32
	Size    uint32
	Write   bool
	Start   uint64
	End     uint64
	Outcome string
}

// Latency returns the number of cycles the data phase took.
func (r TransferRecord) Latency() uint64 {
	return r.End - r.Start + 1
}

func recordOf(master string, t *ahb.Transfer) TransferRecord {
	return TransferRecord{
		ID:     t.ID,
		Master: master,
		Addr:   t.Meta.Addr,
		Size:   t.Meta.Size.Bytes(),
		Write:  t.Meta.IsWriting(),
	}
}

// A Tracer can collect transfer traces
type Tracer interface {
	// StartTransfer is called when a transfer enters its data phase. Only
	// the identity of the transfer and Start are set.
	StartTransfer(rec TransferRecord)

	// EndTransfer is called with the complete record when a transfer
	// succeeds or is aborted.
	EndTransfer(rec TransferRecord)
}
