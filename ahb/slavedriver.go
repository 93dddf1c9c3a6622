package ahb

import (
	"log"

	"github.com/sarchlab/ahbfabric/sim"
)

// HandlerResult is what a peripheral answers for one cycle of a transfer.
type HandlerResult int

// The results of a handler.
const (
	HandlerSuccess HandlerResult = iota
	HandlerPending
	HandlerError
)

func (r HandlerResult) response() Response {
	switch r {
	case HandlerSuccess:
		return Success
	case HandlerPending:
		return WaitState
	}

	return Error1
}

// A Handler is the behavioral model of a peripheral behind a SlaveDriver.
//
// The driver calls the handler once per cycle of a data phase. A handler must
// treat repeated PreWrite and WriteData calls for the same transfer as the
// same request until it answers something other than HandlerPending.
type Handler interface {
	// ReadData answers a read. The data is only used on HandlerSuccess, and
	// must have the size of the transfer.
	ReadData(meta TransferMeta) (HandlerResult, DataBus)

	// PreWrite is called in the first cycle of a write data phase when the
	// data is not known yet, to decide whether a wait-state is needed.
	PreWrite(meta TransferMeta) HandlerResult

	// WriteData delivers the data of a write. It is called once for every
	// wait-stated cycle with postSuccess false, and a last time with
	// postSuccess true in the cycle the transfer succeeds. The last call must
	// return HandlerSuccess.
	WriteData(meta TransferMeta, data DataBus, postSuccess bool) HandlerResult
}

// A SlaveDriver connects a Handler to the bus. It implements Port.
type SlaveDriver struct {
	name    string
	handler Handler

	response           *sim.Flop[Response]
	addrPhase          *sim.Flop[AddrPhase]
	registeredResponse *sim.Flop[HandlerResult]
	regs               sim.Registers

	reply     SlaveToMaster
	requested bool
}

// NewSlaveDriver creates a slave driver in front of the handler.
func NewSlaveDriver(name string, handler Handler) *SlaveDriver {
	sim.NameMustBeValid(name)

	d := &SlaveDriver{
		name:    name,
		handler: handler,
		response: sim.NewFlopWith(
			sim.BuildName(name, "Response"), sim.Buffered, Success),
		addrPhase: sim.NewFlop[AddrPhase](
			sim.BuildName(name, "AddrPhase"), sim.Combinational),
		registeredResponse: sim.NewFlop[HandlerResult](
			sim.BuildName(name, "RegisteredResponse"), sim.Sequential),
	}
	d.regs.Add(d.response, d.addrPhase, d.registeredResponse)

	return d
}

// Name returns the name of the slave driver.
func (d *SlaveDriver) Name() string {
	return d.name
}

// Tick commits the registers and computes the response of the new cycle.
func (d *SlaveDriver) Tick() {
	d.regs.Commit()
	d.requested = false

	var resp Response

	data := HighZ()

	switch {
	case d.response.PrevCycle() == Error1:
		resp = Error2

		if d.addrPhase.IsSet() {
			d.addrPhase.Ignore()
		}
	case d.addrPhase.IsSet():
		resp, data = d.respond(d.addrPhase.Get())
	default:
		resp = Success
	}

	d.response.SetThisCycle(resp)
	d.reply = SlaveToMaster{Resp: resp, Data: data, Responder: d.name}

	if resp.IsWaitstate() {
		d.addrPhase.DefaultKeepCurrent()
	}
}

func (d *SlaveDriver) respond(ap AddrPhase) (Response, DataBus) {
	if !ap.IsAddressValid() {
		return Success, HighZ()
	}

	if ap.Meta.IsWriting() {
		if r, ok := d.registeredResponse.TryTake(); ok {
			return r.response(), HighZ()
		}

		return d.handler.PreWrite(ap.Meta).response(), HighZ()
	}

	r, data := d.handler.ReadData(ap.Meta)
	if r != HandlerSuccess {
		return r.response(), HighZ()
	}

	if !data.IsPresent() || data.Size() != ap.Meta.Size {
		log.Panicf("%s: read of %s answered with %s",
			d.name, ap.Meta, data)
	}

	return Success, data
}

// Response returns the reply of this cycle.
func (d *SlaveDriver) Response() SlaveToMaster {
	return d.reply
}

// Request samples the address phase and delivers the write data.
func (d *SlaveDriver) Request(msg MasterToSlave) bool {
	if d.requested {
		log.Panicf("%s: got a second request in one cycle", d.name)
	}

	d.requested = true

	resp := d.response.ThisCycle()
	ap := msg.Addr

	if !ap.Ready || resp.IsWaitstate() || !ap.IsSelected() {
		if d.addrPhase.IsSet() && resp.IsWaitstate() {
			d.addrPhase.KeepCurrentAsNext()
		}
	} else {
		d.addrPhase.Set(ap)
	}

	if !d.addrPhase.IsSet() || resp == Error2 {
		return true
	}

	cur := d.addrPhase.Get()
	if !cur.IsAddressValid() || !cur.Meta.IsWriting() || resp == Error1 {
		return true
	}

	d.deliverWrite(cur.Meta, msg.Data.Data, resp.Ready())

	return true
}

func (d *SlaveDriver) deliverWrite(
	meta TransferMeta,
	data DataBus,
	postSuccess bool,
) {
	if !data.IsPresent() {
		log.Panicf("%s: write %s has no data in its data phase",
			d.name, meta)
	}

	r := d.handler.WriteData(meta, data, postSuccess)

	if !postSuccess {
		d.registeredResponse.Set(r)
		return
	}

	if r != HandlerSuccess {
		log.Panicf("%s: final delivery of %s answered %d", d.name, meta, r)
	}
}
