package memory

import (
	"github.com/sarchlab/ahbfabric/ahb"
	"github.com/sarchlab/ahbfabric/sim"
)

// A Controller is a RAM behind an ahb.SlaveDriver. It answers every access
// after a fixed number of wait-states, and fails accesses to its error
// ranges and beyond its storage.
type Controller struct {
	name string
	base uint32

	Storage         *Storage
	ReadWaitstates  int
	WriteWaitstates int
	ErrorRanges     []ahb.AddrRange

	waited int
	reads  uint64
	writes uint64
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// Base returns the bus address of the first byte of the storage.
func (c *Controller) Base() uint32 {
	return c.base
}

// NumReads returns the number of completed reads.
func (c *Controller) NumReads() uint64 {
	return c.reads
}

// NumWrites returns the number of completed writes.
func (c *Controller) NumWrites() uint64 {
	return c.writes
}

func (c *Controller) fails(meta ahb.TransferMeta) bool {
	for _, r := range c.ErrorRanges {
		if r.Contains(meta.Addr) {
			return true
		}
	}

	if meta.Addr < c.base {
		return true
	}

	return c.Storage.check(meta.Addr-c.base, meta.Size.Bytes()) != nil
}

func (c *Controller) wait(waitstates int) ahb.HandlerResult {
	if c.waited < waitstates {
		c.waited++
		return ahb.HandlerPending
	}

	return ahb.HandlerSuccess
}

// ReadData answers a read.
func (c *Controller) ReadData(
	meta ahb.TransferMeta,
) (ahb.HandlerResult, ahb.DataBus) {
	if c.fails(meta) {
		c.waited = 0
		return ahb.HandlerError, ahb.HighZ()
	}

	if c.wait(c.ReadWaitstates) == ahb.HandlerPending {
		return ahb.HandlerPending, ahb.HighZ()
	}

	c.waited = 0

	b, err := c.Storage.Read(meta.Addr-c.base, meta.Size.Bytes())
	if err != nil {
		return ahb.HandlerError, ahb.HighZ()
	}

	c.reads++

	return ahb.HandlerSuccess, ahb.FromBytes(b)
}

// PreWrite starts a write.
func (c *Controller) PreWrite(meta ahb.TransferMeta) ahb.HandlerResult {
	c.waited = 0

	if c.fails(meta) {
		return ahb.HandlerError
	}

	return c.wait(c.WriteWaitstates)
}

// WriteData stores the data once the wait-states have passed.
func (c *Controller) WriteData(
	meta ahb.TransferMeta,
	data ahb.DataBus,
	postSuccess bool,
) ahb.HandlerResult {
	if !postSuccess {
		return c.wait(c.WriteWaitstates)
	}

	c.waited = 0

	if err := c.Storage.Write(meta.Addr-c.base, data.Bytes()); err != nil {
		return ahb.HandlerError
	}

	c.writes++

	return ahb.HandlerSuccess
}

// ControllerBuilder builds memory controllers.
type ControllerBuilder struct {
	base            uint32
	capacity        uint32
	storage         *Storage
	readWaitstates  int
	writeWaitstates int
	errorRanges     []ahb.AddrRange
}

// MakeControllerBuilder creates a builder of a 64 KiB memory without
// wait-states.
func MakeControllerBuilder() ControllerBuilder {
	return ControllerBuilder{capacity: 64 * 1024}
}

// WithBase sets the bus address of the first byte.
func (b ControllerBuilder) WithBase(base uint32) ControllerBuilder {
	b.base = base
	return b
}

// WithNewStorage makes the controller allocate a storage of the given size.
func (b ControllerBuilder) WithNewStorage(capacity uint32) ControllerBuilder {
	b.storage = nil
	b.capacity = capacity

	return b
}

// WithStorage sets the storage of the controller.
func (b ControllerBuilder) WithStorage(s *Storage) ControllerBuilder {
	b.storage = s
	return b
}

// WithReadWaitstates sets the number of wait-states of every read.
func (b ControllerBuilder) WithReadWaitstates(n int) ControllerBuilder {
	b.readWaitstates = n
	return b
}

// WithWriteWaitstates sets the number of wait-states of every write.
func (b ControllerBuilder) WithWriteWaitstates(n int) ControllerBuilder {
	b.writeWaitstates = n
	return b
}

// WithErrorRange makes the accesses to r fail with a bus error.
func (b ControllerBuilder) WithErrorRange(r ahb.AddrRange) ControllerBuilder {
	b.errorRanges = append(b.errorRanges, r)
	return b
}

// Build creates the controller.
func (b ControllerBuilder) Build(name string) *Controller {
	sim.NameMustBeValid(name)

	c := &Controller{
		name:            name,
		base:            b.base,
		Storage:         b.storage,
		ReadWaitstates:  b.readWaitstates,
		WriteWaitstates: b.writeWaitstates,
		ErrorRanges:     b.errorRanges,
	}

	if c.Storage == nil {
		c.Storage = NewStorage(b.capacity)
	}

	return c
}
