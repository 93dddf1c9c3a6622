package tracing

import (
	"github.com/sarchlab/ahbfabric/ahb"
	"github.com/sarchlab/ahbfabric/datarecording"
	"github.com/sarchlab/ahbfabric/sim"
)

// WireTable is the table that a WireTracer writes to.
const WireTable = "ahb_wires"

// A WireRecord is what passed through a tap in one direction in one cycle.
type WireRecord struct {
	Cycle     uint64
	Tap       string
	Signal    string
	Kind      string
	Addr      uint32
	Write     bool
	Lock      bool
	Ready     bool
	Granted   bool
	Resp      string
	Responder string
	Data      uint32
	HasData   bool
}

// A WireTracer is a hook that records the wires of the taps it watches.
type WireTracer struct {
	backend datarecording.DataRecorder
}

// NewWireTracer creates a WireTracer that writes to the given recorder.
func NewWireTracer(dataRecorder datarecording.DataRecorder) *WireTracer {
	dataRecorder.CreateTable(WireTable, WireRecord{})

	return &WireTracer{backend: dataRecorder}
}

// Watch attaches the tracer to a tap.
func (t *WireTracer) Watch(tap *ahb.Tap) {
	tap.AcceptHook(t)
}

// Func records a request or a response.
func (t *WireTracer) Func(ctx sim.HookCtx) {
	rec := WireRecord{
		Cycle: ctx.Cycle,
		Tap:   ctx.Domain.Name(),
	}

	switch ctx.Pos {
	case ahb.HookPosRequest:
		msg := ctx.Item.(ahb.MasterToSlave)
		rec.Signal = "Request"
		rec.Kind = msg.Addr.Kind.String()
		rec.Addr = msg.Addr.Meta.Addr
		rec.Write = msg.Addr.Meta.IsWriting()
		rec.Lock = msg.Addr.Lock
		rec.Ready = msg.Addr.Ready
		rec.Granted, _ = ctx.Detail.(bool)
		rec.Data, rec.HasData = dataOf(msg.Data.Data)
	case ahb.HookPosResponse:
		reply := ctx.Item.(ahb.SlaveToMaster)
		rec.Signal = "Response"
		rec.Resp = reply.Resp.String()
		rec.Responder = reply.Responder
		rec.Ready = reply.Resp.Ready()
		rec.Data, rec.HasData = dataOf(reply.Data)
	default:
		return
	}

	t.backend.InsertData(WireTable, rec)
}

func dataOf(d ahb.DataBus) (uint32, bool) {
	if !d.IsPresent() {
		return 0, false
	}

	return d.ZeroExtend(), true
}
