package ahb

import (
	"log"

	"github.com/sarchlab/ahbfabric/sim"
)

// TransferStatus tells where a transfer is in the pipeline of a master.
type TransferStatus int

// The statuses of a transfer.
const (
	AddrPhaseNew TransferStatus = iota
	// AddrPhaseStalled means the address phase waits for the previous data
	// phase to complete.
	AddrPhaseStalled
	// AddrPhaseDenied means an arbiter refused the address phase.
	AddrPhaseDenied
	DataPhaseWaiting
	DataPhaseDone
)

func (s TransferStatus) String() string {
	switch s {
	case AddrPhaseNew:
		return "AddrPhaseNew"
	case AddrPhaseStalled:
		return "AddrPhaseStalled"
	case AddrPhaseDenied:
		return "AddrPhaseDenied"
	case DataPhaseWaiting:
		return "DataPhaseWaiting"
	case DataPhaseDone:
		return "DataPhaseDone"
	}

	return "Unknown"
}

// A Transfer is a request of the owner of a master driver.
type Transfer struct {
	ID     string
	Meta   TransferMeta
	Status TransferStatus

	// Data is the data to write, or the data read once the transfer is done.
	Data DataBus

	// User is free for the owner to use.
	User any
}

// A MasterOwner is the bus initiator behind a MasterDriver.
type MasterOwner interface {
	// TransferDone is called when a transfer succeeds. Reads carry their data.
	TransferDone(t *Transfer)

	// TransfersAborted is called in the first cycle of a bus error. Both
	// transfers in the pipeline are dropped; either can be nil.
	TransfersAborted(addrPhase, dataPhase *Transfer)
}

// A StallObserver wants to know about the wait-states of its transfers.
type StallObserver interface {
	TransfersWillStall(hasAddrPhase, hasDataPhase bool)
}

// An AdvanceObserver wants to know when its address phase is accepted. It may
// provide the write data at that moment.
type AdvanceObserver interface {
	TransferWillAdvance(t *Transfer) (data DataBus, ok bool)
}

// A DataProvider supplies write data that was not provided in advance.
type DataProvider interface {
	WriteNeedsData(t *Transfer) DataBus
}

type masterStage int

const (
	stageGotMessages masterStage = iota
	stageTickExtra
	stageRunDriver
	stageSentMessages
)

// A MasterDriver connects a bus initiator to a downstream Port. It keeps at
// most one transfer in the address phase and one in the data phase.
type MasterDriver struct {
	sim.HookableBase

	name       string
	owner      MasterOwner
	down       Port
	liteCompat bool
	clock      sim.CycleTeller

	addrPhase    *Transfer
	dataPhase    *Transfer
	justAdvanced bool
	stage        masterStage

	lastResp *sim.Flop[Response]
	held     *sim.Flop[bool]
	regs     sim.Registers
}

// Name returns the name of the master driver.
func (d *MasterDriver) Name() string {
	return d.name
}

// Downstream returns the port that the master drives.
func (d *MasterDriver) Downstream() Port {
	return d.down
}

// SetDownstream connects the master to a port.
func (d *MasterDriver) SetDownstream(p Port) {
	d.down = p
}

// SetOwner sets the component that receives the callbacks.
func (d *MasterDriver) SetOwner(o MasterOwner) {
	d.owner = o
}

// Tick commits the registers and advances the pipeline.
func (d *MasterDriver) Tick() {
	if d.stage != stageGotMessages {
		log.Panicf("%s: ticked before driving the bus", d.name)
	}

	d.regs.Commit()

	ready := true
	if d.lastResp.HasPrevCycle() {
		ready = d.lastResp.PrevCycle().Ready()
	}

	blocked := d.held.HasPrevCycle() && d.held.PrevCycle()

	d.justAdvanced = false

	if ready && !blocked {
		if d.dataPhase != nil {
			log.Panicf("%s: data phase %s was not consumed",
				d.name, d.dataPhase.Meta)
		}

		d.dataPhase = d.addrPhase
		d.addrPhase = nil

		if d.dataPhase != nil {
			d.justAdvanced = true
			d.dataPhase.Status = DataPhaseWaiting
			d.invoke(HookPosTransferStart, d.dataPhase)
		}
	}

	if d.addrPhase != nil {
		if blocked {
			d.addrPhase.Status = AddrPhaseDenied
		} else {
			d.addrPhase.Status = AddrPhaseStalled
		}
	}

	d.stage = stageTickExtra
}

// TryRequest places a transfer in the address phase. It fails if there is
// one already.
func (d *MasterDriver) TryRequest(t *Transfer) bool {
	if d.addrPhase != nil {
		return false
	}

	return d.TryForceRequest(t)
}

// TryForceRequest places a transfer in the address phase, replacing the one
// that is there. Replacing a held address phase violates AHB-Lite, so it
// fails in AHB-Lite compatible mode.
func (d *MasterDriver) TryForceRequest(t *Transfer) bool {
	d.mustAcceptRequests()

	if d.liteCompat && d.addrPhase != nil {
		return false
	}

	if t.ID == "" {
		t.ID = sim.GetIDGenerator().Generate()
	}

	if d.addrPhase != nil {
		d.invoke(HookPosTransferAborted, d.addrPhase)
	}

	t.Status = AddrPhaseNew
	d.addrPhase = t

	return true
}

// TryForceCancel withdraws the transfer in the address phase. It fails in
// AHB-Lite compatible mode.
func (d *MasterDriver) TryForceCancel() bool {
	d.mustAcceptRequests()

	if d.addrPhase == nil {
		return true
	}

	if d.liteCompat {
		return false
	}

	d.invoke(HookPosTransferAborted, d.addrPhase)
	d.addrPhase = nil

	return true
}

// ProvideData sets the write data of the transfer that needs it next: the
// write that has just entered the data phase without data, or else the one
// in the address phase. It returns false if the data replaces data provided
// earlier.
func (d *MasterDriver) ProvideData(data DataBus) bool {
	d.mustAcceptRequests()

	t := d.addrPhase
	if d.justAdvanced && d.dataPhase.Meta.IsWriting() &&
		!d.dataPhase.Data.IsPresent() {
		t = d.dataPhase
	}

	if t == nil {
		log.Panicf("%s: no transfer to provide data to", d.name)
	}

	if !t.Meta.IsWriting() {
		log.Panicf("%s: providing data to read %s", d.name, t.Meta)
	}

	wasEmpty := !t.Data.IsPresent()
	t.Data = data

	return wasEmpty
}

func (d *MasterDriver) mustAcceptRequests() {
	if d.stage != stageTickExtra {
		log.Panicf("%s: requests are only taken between tick and drive",
			d.name)
	}
}

// HasAddrPhase returns true if a transfer is in the address phase.
func (d *MasterDriver) HasAddrPhase() bool {
	return d.addrPhase != nil
}

// HasDataPhase returns true if a transfer is in the data phase.
func (d *MasterDriver) HasDataPhase() bool {
	return d.dataPhase != nil
}

// AddrPhase returns the transfer in the address phase, if any.
func (d *MasterDriver) AddrPhase() *Transfer {
	return d.addrPhase
}

// DataPhase returns the transfer in the data phase, if any.
func (d *MasterDriver) DataPhase() *Transfer {
	return d.dataPhase
}

// IsFree returns true if the pipeline is empty.
func (d *MasterDriver) IsFree() bool {
	return d.addrPhase == nil && d.dataPhase == nil
}

// CanPipeline returns true if a new transfer can be requested.
func (d *MasterDriver) CanPipeline() bool {
	return d.addrPhase == nil
}

// PipelineAdvanced returns true if a transfer entered the data phase in this
// cycle.
func (d *MasterDriver) PipelineAdvanced() bool {
	return d.justAdvanced
}

// Drive samples the downstream response, presents this cycle's wires and
// handles the response.
func (d *MasterDriver) Drive() {
	if d.stage != stageTickExtra {
		log.Panicf("%s: driving twice in a cycle", d.name)
	}

	d.stage = stageRunDriver

	reply := d.down.Response()
	msg := d.dispatch(reply.Resp.Ready())

	d.invokeWithItem(HookPosRequest, msg)
	granted := d.down.Request(msg)
	d.stage = stageSentMessages

	d.handleResponse(reply)
	d.considerAdvance(reply.Resp, granted)
	d.held.SetThisCycle(!granted)

	d.stage = stageGotMessages
}

func (d *MasterDriver) dispatch(ready bool) MasterToSlave {
	msg := IdleRequest()
	msg.Addr.Ready = ready

	if d.addrPhase != nil {
		if d.addrPhase.Meta.Burst != BurstSingle {
			log.Panicf("%s: bursts are not implemented", d.name)
		}

		msg.Addr.Kind = TransferNonSeq
		msg.Addr.Meta = d.addrPhase.Meta
		msg.Addr.ID = d.addrPhase.ID
	}

	if d.dataPhase != nil && d.dataPhase.Meta.IsWriting() {
		if !d.dataPhase.Data.IsPresent() {
			provider, ok := d.owner.(DataProvider)
			if !ok {
				log.Panicf("%s: data was not provided for write %s",
					d.name, d.dataPhase.Meta)
			}

			d.dataPhase.Data = provider.WriteNeedsData(d.dataPhase)
		}

		msg.Data = DataPhase{Data: d.dataPhase.Data, ID: d.dataPhase.ID}
	}

	return msg
}

func (d *MasterDriver) handleResponse(reply SlaveToMaster) {
	d.lastResp.SetThisCycle(reply.Resp)

	if reply.Data.IsPresent() && !reply.Resp.IsDone() {
		log.Panicf("%s: got data with response %s", d.name, reply.Resp)
	}

	switch reply.Resp {
	case Success:
		if d.dataPhase == nil {
			return
		}

		t := d.dataPhase
		d.dataPhase = nil
		t.Status = DataPhaseDone

		if t.Meta.IsReading() {
			t.Data = reply.Data
		}

		d.invoke(HookPosTransferDone, t)
		d.owner.TransferDone(t)
	case WaitState:
		if o, ok := d.owner.(StallObserver); ok {
			o.TransfersWillStall(d.addrPhase != nil, d.dataPhase != nil)
		}
	case Error1:
		addr, data := d.addrPhase, d.dataPhase
		d.addrPhase, d.dataPhase = nil, nil

		for _, t := range []*Transfer{data, addr} {
			if t != nil {
				d.invoke(HookPosTransferAborted, t)
			}
		}

		d.owner.TransfersAborted(addr, data)
	case Error2:
		if d.dataPhase != nil {
			log.Panicf("%s: data phase survived a bus error", d.name)
		}
	}
}

func (d *MasterDriver) considerAdvance(resp Response, granted bool) {
	if !resp.Ready() || !granted || d.addrPhase == nil {
		return
	}

	o, ok := d.owner.(AdvanceObserver)
	if !ok {
		return
	}

	if data, ok := o.TransferWillAdvance(d.addrPhase); ok {
		d.addrPhase.Data = data
	}
}

func (d *MasterDriver) invoke(pos *sim.HookPos, t *Transfer) {
	d.invokeWithItem(pos, t)
}

func (d *MasterDriver) invokeWithItem(pos *sim.HookPos, item any) {
	if d.NumHooks() == 0 {
		return
	}

	ctx := sim.HookCtx{Domain: d, Pos: pos, Item: item}
	if d.clock != nil {
		ctx.Cycle = d.clock.CurrentCycle()
	}

	d.InvokeHook(ctx)
}

// MasterDriverBuilder builds master drivers.
type MasterDriverBuilder struct {
	liteCompat bool
	clock      sim.CycleTeller
	down       Port
	owner      MasterOwner
}

// MakeMasterDriverBuilder creates a builder with the default configuration:
// the Cortex-M behavior that lets a master replace or cancel a held address
// phase.
func MakeMasterDriverBuilder() MasterDriverBuilder {
	return MasterDriverBuilder{}
}

// WithAHBLiteCompat forbids replacing or cancelling a held address phase.
func (b MasterDriverBuilder) WithAHBLiteCompat() MasterDriverBuilder {
	b.liteCompat = true
	return b
}

// WithClock sets the clock used to stamp hook contexts.
func (b MasterDriverBuilder) WithClock(c sim.CycleTeller) MasterDriverBuilder {
	b.clock = c
	return b
}

// WithDownstream sets the port that the master drives.
func (b MasterDriverBuilder) WithDownstream(p Port) MasterDriverBuilder {
	b.down = p
	return b
}

// WithOwner sets the component that receives the callbacks.
func (b MasterDriverBuilder) WithOwner(o MasterOwner) MasterDriverBuilder {
	b.owner = o
	return b
}

// Build creates the master driver.
func (b MasterDriverBuilder) Build(name string) *MasterDriver {
	sim.NameMustBeValid(name)

	d := &MasterDriver{
		name:       name,
		owner:      b.owner,
		down:       b.down,
		liteCompat: b.liteCompat,
		clock:      b.clock,
		lastResp: sim.NewFlop[Response](
			sim.BuildName(name, "LastResp"), sim.Buffered),
		held: sim.NewFlop[bool](sim.BuildName(name, "Held"), sim.Buffered),
	}
	d.regs.Add(d.lastResp, d.held)

	return d
}
