package tracing

import (
	"log"

	"github.com/sarchlab/ahbfabric/ahb"
	"github.com/sarchlab/ahbfabric/sim"
)

// A TransferLogger is a hook that logs the transfer events of master
// drivers.
type TransferLogger struct {
	sim.LogHookBase
}

// NewTransferLogger creates a TransferLogger that writes to logger.
func NewTransferLogger(logger *log.Logger) *TransferLogger {
	h := new(TransferLogger)
	h.Logger = logger

	return h
}

// Func writes the event to the log.
func (h *TransferLogger) Func(ctx sim.HookCtx) {
	t, ok := ctx.Item.(*ahb.Transfer)
	if !ok {
		return
	}

	switch ctx.Pos {
	case ahb.HookPosTransferDone:
		if t.Meta.IsReading() {
			h.Printf("%d,%s,%s,%s,%s,%s",
				ctx.Cycle, ctx.Domain.Name(), ctx.Pos.Name, t.ID, t.Meta, t.Data)
			return
		}

		fallthrough
	case ahb.HookPosTransferStart, ahb.HookPosTransferAborted:
		h.Printf("%d,%s,%s,%s,%s",
			ctx.Cycle, ctx.Domain.Name(), ctx.Pos.Name, t.ID, t.Meta)
	}
}
