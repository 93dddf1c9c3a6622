package ahb

import (
	"github.com/sarchlab/ahbfabric/sim"
)

// A Port is the upstream-facing side of a bus stage, that is, what a master
// or an upstream stage is connected to.
//
// In each cycle, the upstream side first samples Response and then presents
// its wires with Request. Response only depends on what the stage committed
// at the start of the cycle, so it can be sampled before the request is known.
// This is how HREADY flows up before the address phase flows down.
type Port interface {
	sim.Named

	// Response returns the reply of this cycle.
	Response() SlaveToMaster

	// Request presents the wires of this cycle. It returns false if the
	// address phase is denied and has to be presented again.
	Request(msg MasterToSlave) (granted bool)
}

// Hook positions of the components in this package.
var (
	// HookPosRequest triggers when a request passes a tap or leaves a master.
	HookPosRequest = &sim.HookPos{Name: "Request"}
	// HookPosResponse triggers when a reply passes a tap.
	HookPosResponse = &sim.HookPos{Name: "Response"}
	// HookPosTransferStart triggers when a master promotes a transfer to its
	// data phase.
	HookPosTransferStart = &sim.HookPos{Name: "TransferStart"}
	// HookPosTransferDone triggers when a transfer completes successfully.
	HookPosTransferDone = &sim.HookPos{Name: "TransferDone"}
	// HookPosTransferAborted triggers when a transfer is aborted by a bus
	// error or cancelled.
	HookPosTransferAborted = &sim.HookPos{Name: "TransferAborted"}
)

// A Tap connects an upstream stage to a downstream port and reports what
// passes through it to its hooks. It does not change the traffic.
type Tap struct {
	sim.HookableBase

	name  string
	down  Port
	clock sim.CycleTeller
}

// NewTap creates a tap in front of down.
func NewTap(name string, down Port, clock sim.CycleTeller) *Tap {
	sim.NameMustBeValid(name)

	return &Tap{name: name, down: down, clock: clock}
}

// Name returns the name of the tap.
func (t *Tap) Name() string {
	return t.name
}

// Response forwards the reply of the downstream port.
func (t *Tap) Response() SlaveToMaster {
	reply := t.down.Response()

	t.InvokeHook(sim.HookCtx{
		Domain: t,
		Cycle:  t.cycle(),
		Pos:    HookPosResponse,
		Item:   reply,
	})

	return reply
}

// Request forwards the request to the downstream port.
func (t *Tap) Request(msg MasterToSlave) bool {
	granted := t.down.Request(msg)

	t.InvokeHook(sim.HookCtx{
		Domain: t,
		Cycle:  t.cycle(),
		Pos:    HookPosRequest,
		Item:   msg,
		Detail: granted,
	})

	return granted
}

func (t *Tap) cycle() uint64 {
	if t.clock == nil {
		return 0
	}

	return t.clock.CurrentCycle()
}
