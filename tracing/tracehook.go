package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/ahbfabric/ahb"
	"github.com/sarchlab/ahbfabric/sim"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	sim.Named
	sim.Hookable
}

type hookLister interface {
	HookList() []sim.Hook
}

// CollectTransfers lets the tracer collect the transfers of a master driver.
func CollectTransfers(domain NamedHookable, tracer Tracer) {
	if l, ok := domain.(hookLister); ok {
		for _, hook := range l.HookList() {
			hook, ok := hook.(*transferHook)
			if ok && hook.t == tracer {
				panic(fmt.Sprintf(
					"domain %s already has tracer %s",
					domain.Name(), reflect.TypeOf(tracer)))
			}
		}
	}

	h := &transferHook{
		t:       tracer,
		master:  domain.Name(),
		started: make(map[string]uint64),
	}
	domain.AcceptHook(h)
}

// A transferHook remembers when each transfer started and reports complete
// records to a tracer.
type transferHook struct {
	t       Tracer
	master  string
	started map[string]uint64
}

// Func calls the tracer interfaces when the hook is triggered
func (h *transferHook) Func(ctx sim.HookCtx) {
	t, ok := ctx.Item.(*ahb.Transfer)
	if !ok {
		return
	}

	rec := recordOf(h.master, t)

	switch ctx.Pos {
	case ahb.HookPosTransferStart:
		h.started[t.ID] = ctx.Cycle
		rec.Start = ctx.Cycle
		h.t.StartTransfer(rec)
	case ahb.HookPosTransferDone:
		h.end(rec, ctx.Cycle, OutcomeDone)
	case ahb.HookPosTransferAborted:
		h.end(rec, ctx.Cycle, OutcomeAborted)
	}
}

func (h *transferHook) end(rec TransferRecord, cycle uint64, outcome string) {
	start, ok := h.started[rec.ID]
	if !ok {
		start = cycle
	}

	delete(h.started, rec.ID)

	rec.Start = start
	rec.End = cycle
	rec.Outcome = outcome

	h.t.EndTransfer(rec)
}
