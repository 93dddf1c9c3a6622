package tracing

import (
	"sync"

	"github.com/sarchlab/ahbfabric/datarecording"
	"github.com/tebeka/atexit"
)

// TransferTable is the table that a DBTracer writes to.
const TransferTable = "ahb_transfers"

// DBTracer is a tracer that stores the records of finished transfers in a
// data recorder.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder

	startCycle, endCycle uint64
	count                uint64
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	dataRecorder.CreateTable(TransferTable, TransferRecord{})

	t := &DBTracer{
		backend: dataRecorder,
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// SetCycleRange only keeps the transfers that end within [start, end]. An
// end of 0 means no upper bound.
func (t *DBTracer) SetCycleRange(start, end uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startCycle = start
	t.endCycle = end
}

// StartTransfer does nothing.
func (t *DBTracer) StartTransfer(_ TransferRecord) {
	// Records are complete at the end.
}

// EndTransfer buffers the record.
func (t *DBTracer) EndTransfer(rec TransferRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec.End < t.startCycle {
		return
	}

	if t.endCycle > 0 && rec.End > t.endCycle {
		return
	}

	t.backend.InsertData(TransferTable, rec)
	t.count++
}

// NumRecords returns the number of records written.
func (t *DBTracer) NumRecords() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.count
}

// Terminate flushes the buffered records.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.backend.Flush()
}
