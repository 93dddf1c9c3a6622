package ahb

import (
	"fmt"
	"log"

	"github.com/sarchlab/ahbfabric/sim"
)

// SlaveTag identifies a port of a decoder. DefaultSlaveTag is the slave that
// answers unmapped addresses.
type SlaveTag int

// DefaultSlaveTag is the tag of the default slave.
const DefaultSlaveTag SlaveTag = -1

// An AddrRange is the half-open range [Start, End).
type AddrRange struct {
	Start uint32
	End   uint32
}

// Contains returns true if addr is in the range.
func (r AddrRange) Contains(addr uint32) bool {
	return addr >= r.Start && addr < r.End
}

func (r AddrRange) overlaps(o AddrRange) bool {
	return r.Start < o.End && o.Start < r.End
}

func (r AddrRange) String() string {
	return fmt.Sprintf("[0x%08x, 0x%08x)", r.Start, r.End)
}

// A StatelessMock answers unmapped accesses with synthetic data. It returns
// false if the access should fail.
type StatelessMock func(meta TransferMeta) (DataBus, bool)

type route struct {
	name   string
	rng    AddrRange
	port   Port
	target SlaveTag
}

// A Decoder routes the transfers of one master to one of several slave ports
// by address. It implements Port.
//
// The data phase goes to the slave that accepted the address phase in the
// previous cycle. That slave also provides the response, which is reflected
// as HREADY to all the slaves.
type Decoder struct {
	name         string
	routes       []route
	defaultSlave *SlaveDriver

	dataRoute *sim.Flop[SlaveTag]
	regs      sim.Registers

	reply     SlaveToMaster
	hasReply  bool
	requested bool
}

// Name returns the name of the decoder.
func (d *Decoder) Name() string {
	return d.name
}

// Decode returns the slave that serves the address.
func (d *Decoder) Decode(addr uint32) (SlaveTag, bool) {
	for _, r := range d.routes {
		if r.rng.Contains(addr) {
			return r.target, true
		}
	}

	return DefaultSlaveTag, false
}

// SlaveName returns the name of the route of the tag.
func (d *Decoder) SlaveName(tag SlaveTag) string {
	if tag == DefaultSlaveTag {
		return d.defaultSlave.Name()
	}

	return d.routes[tag].name
}

// NumSlaves returns the number of slaves, not counting the default slave.
func (d *Decoder) NumSlaves() int {
	return len(d.routes)
}

// DataRoute returns the slave that owns the data phase in this cycle.
func (d *Decoder) DataRoute() SlaveTag {
	return d.dataRoute.Get()
}

// Tick commits the registers. The default slave ticks with the decoder.
func (d *Decoder) Tick() {
	d.regs.Commit()
	d.defaultSlave.Tick()
	d.dataRoute.DefaultKeepCurrent()

	d.hasReply = false
	d.requested = false
}

func (d *Decoder) port(tag SlaveTag) Port {
	if tag == DefaultSlaveTag {
		return d.defaultSlave
	}

	return d.routes[tag].port
}

// Response returns the reply of the slave that owns the data phase.
func (d *Decoder) Response() SlaveToMaster {
	if !d.hasReply {
		d.reply = d.port(d.dataRoute.Get()).Response()
		d.hasReply = true
	}

	return d.reply
}

// Request sends the address phase to the decoded slave, the data phase to
// the slave that owns it, and NoSel to everyone else.
func (d *Decoder) Request(msg MasterToSlave) bool {
	if d.requested {
		log.Panicf("%s: got a second request in one cycle", d.name)
	}

	d.requested = true

	reply := d.Response()
	ready := msg.Addr.Ready && reply.Resp.Ready()
	msg.Addr.Ready = ready

	dataRoute := d.dataRoute.Get()
	target := dataRoute

	if msg.Addr.IsAddressValid() {
		target, _ = d.Decode(msg.Addr.Meta.Addr)
	}

	granted := true

	for tag := DefaultSlaveTag; int(tag) < len(d.routes); tag++ {
		out := MasterToSlave{Addr: NoSelPhase(ready), Data: EmptyDataPhase()}

		if tag == target {
			out.Addr = msg.Addr
		}

		if tag == dataRoute {
			out.Data = msg.Data
		}

		g := d.port(tag).Request(out)
		if tag == target {
			granted = g
		}
	}

	if ready && msg.Addr.IsAddressValid() && granted {
		d.dataRoute.Set(target)
	}

	return granted
}

// DecoderBuilder builds decoders.
type DecoderBuilder struct {
	routes []route
	mock   StatelessMock
}

// MakeDecoderBuilder creates a builder of a decoder without routes.
func MakeDecoderBuilder() DecoderBuilder {
	return DecoderBuilder{}
}

// WithRoute adds a slave that serves the range [start, end). Routes must not
// overlap.
func (b DecoderBuilder) WithRoute(
	name string,
	start, end uint32,
	port Port,
) DecoderBuilder {
	r := route{
		name:   name,
		rng:    AddrRange{Start: start, End: end},
		port:   port,
		target: SlaveTag(len(b.routes)),
	}

	if start >= end {
		log.Panicf("route %s has an empty range %s", name, r.rng)
	}

	for _, other := range b.routes {
		if other.rng.overlaps(r.rng) {
			log.Panicf("route %s %s overlaps route %s %s",
				name, r.rng, other.name, other.rng)
		}
	}

	b.routes = append(append([]route(nil), b.routes...), r)

	return b
}

// WithStatelessMock makes the default slave answer with the mock.
func (b DecoderBuilder) WithStatelessMock(m StatelessMock) DecoderBuilder {
	b.mock = m
	return b
}

// Build creates the decoder.
func (b DecoderBuilder) Build(name string) *Decoder {
	sim.NameMustBeValid(name)

	d := &Decoder{
		name:   name,
		routes: b.routes,
		defaultSlave: NewSlaveDriver(
			sim.BuildName(name, "Default"),
			&unmappedHandler{mock: b.mock},
		),
		dataRoute: sim.NewFlopWith(
			sim.BuildName(name, "DataRoute"),
			sim.Combinational,
			DefaultSlaveTag,
		),
	}
	d.regs.Add(d.dataRoute)

	return d
}

// unmappedHandler is the behavior of the default slave.
type unmappedHandler struct {
	mock StatelessMock
}

func (h *unmappedHandler) ReadData(meta TransferMeta) (HandlerResult, DataBus) {
	if h.mock == nil {
		return HandlerError, HighZ()
	}

	data, ok := h.mock(meta)
	if !ok {
		return HandlerError, HighZ()
	}

	return HandlerSuccess, data
}

func (h *unmappedHandler) PreWrite(meta TransferMeta) HandlerResult {
	if h.mock == nil {
		return HandlerError
	}

	if _, ok := h.mock(meta); !ok {
		return HandlerError
	}

	return HandlerSuccess
}

func (h *unmappedHandler) WriteData(
	_ TransferMeta,
	_ DataBus,
	_ bool,
) HandlerResult {
	return HandlerSuccess
}
