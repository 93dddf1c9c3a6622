package tracing

import (
	"sync"
)

// TransferFilter selects the transfers that a tracer cares about.
type TransferFilter func(rec TransferRecord) bool

// AllTransfers is a TransferFilter that keeps everything.
func AllTransfers(TransferRecord) bool {
	return true
}

// A TransferCollector keeps the records of finished transfers in memory.
// It is safe to read from another goroutine while the fabric runs.
type TransferCollector struct {
	lock     sync.Mutex
	filter   TransferFilter
	inflight map[string]TransferRecord
	records  []TransferRecord

	totalLatency uint64
	doneCount    uint64
}

// NewTransferCollector creates a collector that keeps the transfers that
// pass the filter.
func NewTransferCollector(filter TransferFilter) *TransferCollector {
	if filter == nil {
		filter = AllTransfers
	}

	return &TransferCollector{
		filter:   filter,
		inflight: make(map[string]TransferRecord),
	}
}

// StartTransfer records the transfer as in flight.
func (c *TransferCollector) StartTransfer(rec TransferRecord) {
	if !c.filter(rec) {
		return
	}

	c.lock.Lock()
	c.inflight[rec.ID] = rec
	c.lock.Unlock()
}

// EndTransfer keeps the finished record.
func (c *TransferCollector) EndTransfer(rec TransferRecord) {
	if !c.filter(rec) {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	delete(c.inflight, rec.ID)
	c.records = append(c.records, rec)

	if rec.Outcome == OutcomeDone {
		c.totalLatency += rec.Latency()
		c.doneCount++
	}
}

// Records returns a copy of the finished records in completion order.
func (c *TransferCollector) Records() []TransferRecord {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]TransferRecord(nil), c.records...)
}

// NumInFlight returns the number of transfers in their data phase.
func (c *TransferCollector) NumInFlight() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return len(c.inflight)
}

// NumDone returns the number of transfers that succeeded.
func (c *TransferCollector) NumDone() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.doneCount
}

// AverageLatency returns the average number of data phase cycles of the
// transfers that succeeded.
func (c *TransferCollector) AverageLatency() float64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.doneCount == 0 {
		return 0
	}

	return float64(c.totalLatency) / float64(c.doneCount)
}
