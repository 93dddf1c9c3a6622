// Package busmatrix provides the bus stages that sit between a master and
// the decoders of a bus matrix: the aligner and the bit-band translator.
package busmatrix

import (
	"log"

	"github.com/sarchlab/ahbfabric/ahb"
	"github.com/sarchlab/ahbfabric/sim"
)

// Mode selects how the aligner handles an unaligned transfer.
type Mode int

// The alignment modes.
const (
	// ModeSplit splits the transfer into aligned transfers.
	ModeSplit Mode = iota
	// ModeTruncateReinterpret aligns the address down and rotates the byte
	// lanes, with a single access. This is what a slave that ignores the
	// low address bits does.
	ModeTruncateReinterpret
)

func (m Mode) String() string {
	switch m {
	case ModeSplit:
		return "Split"
	case ModeTruncateReinterpret:
		return "TruncateReinterpret"
	}

	return "Unknown"
}

// A ModePolicy picks the alignment mode of an address.
type ModePolicy func(addr uint32) Mode

// SplitEverywhere splits all unaligned transfers.
func SplitEverywhere(uint32) Mode {
	return ModeSplit
}

// TruncateIn truncates unaligned transfers in the given ranges and splits the
// others.
func TruncateIn(ranges ...ahb.AddrRange) ModePolicy {
	return func(addr uint32) Mode {
		for _, r := range ranges {
			if r.Contains(addr) {
				return ModeTruncateReinterpret
			}
		}

		return ModeSplit
	}
}

type split struct {
	meta      ahb.TransferMeta
	id        string
	next      uint32
	remaining uint32
	collected []byte
	issued    bool
	aborted   bool
}

func (s *split) end() uint32 {
	return s.meta.Addr + s.meta.Size.Bytes()
}

func (s *split) chunk() ahb.TransferMeta {
	m := s.meta
	m.Addr = s.next
	m.Size = largestAligned(s.next, s.remaining)

	return m
}

func (s *split) advance() {
	size := largestAligned(s.next, s.remaining).Bytes()
	s.next += size
	s.remaining -= size
}

// largestAligned returns the largest size that is aligned at addr and not
// larger than n bytes.
func largestAligned(addr, n uint32) ahb.Size {
	for _, s := range []ahb.Size{ahb.SizeWord, ahb.SizeHalfword} {
		if s.Bytes() <= n && s.IsAligned(addr) {
			return s
		}
	}

	return ahb.SizeByte
}

// An Aligner turns unaligned transfers into aligned ones. It implements
// ahb.Port towards the master and drives a downstream ahb.Port.
//
// In split mode, the first aligned chunk takes the address phase of the
// master. The other chunks are issued one per cycle while the master is
// wait-stated, and the data is collected or sliced as the chunks complete.
type Aligner struct {
	name   string
	down   ahb.Port
	policy ModePolicy

	enabled     bool
	wantEnabled bool

	upTrack   ahb.StateTrack
	downTrack ahb.StateTrack
	split     *split
	truncated *ahb.TransferMeta

	reply     ahb.SlaveToMaster
	downReady bool
	hasReply  bool
	requested bool
}

// Name returns the name of the aligner.
func (a *Aligner) Name() string {
	return a.name
}

// SetDownstream connects the aligner to a port.
func (a *Aligner) SetDownstream(p ahb.Port) {
	a.down = p
}

// SetEnabled turns the aligner on or off. A disabled aligner forwards
// unaligned transfers unchanged. The change applies once no transfer is in
// progress.
func (a *Aligner) SetEnabled(enabled bool) {
	a.wantEnabled = enabled
}

// IsEnabled returns whether the aligner currently translates transfers.
func (a *Aligner) IsEnabled() bool {
	return a.enabled
}

// IsSplitting returns true if a split transfer is in progress.
func (a *Aligner) IsSplitting() bool {
	return a.split != nil
}

// Tick moves both pipelines to the next cycle.
func (a *Aligner) Tick() {
	up := a.upTrack.Update()
	down := a.downTrack.Update()

	if a.split != nil {
		if a.split.issued && down.Advanced {
			a.split.advance()
		}

		a.split.issued = false
	}

	if up.Finished {
		a.split = nil
		a.truncated = nil
	}

	if up.Advanced {
		if ap, ok := a.upTrack.DataAddress(); ok {
			a.start(ap)
		}
	}

	if !up.HasDataPhase && a.split == nil && a.truncated == nil {
		a.enabled = a.wantEnabled
	}

	a.hasReply = false
	a.requested = false
}

func (a *Aligner) start(ap ahb.AddrPhase) {
	meta := ap.Meta
	if !a.enabled || meta.IsAligned() {
		return
	}

	switch a.policy(meta.Addr) {
	case ModeSplit:
		first := largestAligned(meta.Addr, meta.Size.Bytes()).Bytes()
		a.split = &split{
			meta:      meta,
			id:        ap.ID,
			next:      meta.Addr + first,
			remaining: meta.Size.Bytes() - first,
			collected: make([]byte, meta.Size.Bytes()),
		}
	case ModeTruncateReinterpret:
		a.truncated = &meta
	}
}

// Response returns the reply of this cycle to the master.
func (a *Aligner) Response() ahb.SlaveToMaster {
	if a.hasReply {
		return a.reply
	}

	down := a.down.Response()
	a.downTrack.SetLastReply(down.Resp)
	a.downReady = down.Resp.Ready()

	reply := down

	switch {
	case a.split != nil:
		reply = a.splitResponse(down)
	case a.truncated != nil && a.truncated.IsReading() &&
		down.Resp == ahb.Success:
		off := a.truncated.Size.OffsetFromAligned(a.truncated.Addr)
		reply.Data = rotate(down.Data, off)
	}

	a.upTrack.SetLastReply(reply.Resp)
	a.reply = reply
	a.hasReply = true

	return reply
}

func (a *Aligner) splitResponse(down ahb.SlaveToMaster) ahb.SlaveToMaster {
	s := a.split

	switch down.Resp {
	case ahb.Error1:
		s.aborted = true
		return down
	case ahb.Error2, ahb.WaitState:
		return down
	}

	chunk, ok := a.downTrack.DataAddress()
	if !ok {
		return ahb.ReplyOf(ahb.WaitState, down.Responder)
	}

	if s.meta.IsReading() {
		copy(s.collected[chunk.Meta.Addr-s.meta.Addr:], down.Data.Bytes())
	}

	if chunk.Meta.Addr+chunk.Meta.Size.Bytes() < s.end() {
		return ahb.ReplyOf(ahb.WaitState, down.Responder)
	}

	reply := ahb.ReplyOf(ahb.Success, down.Responder)
	if s.meta.IsReading() {
		reply.Data = ahb.FromBytes(s.collected)
	}

	return reply
}

// Request presents the wires of the master. While a split is in progress,
// the next chunk takes the downstream address phase.
func (a *Aligner) Request(msg ahb.MasterToSlave) bool {
	if a.requested {
		log.Panicf("%s: got a second request in one cycle", a.name)
	}

	a.requested = true
	a.Response()

	out := ahb.MasterToSlave{Data: a.downData(msg.Data)}

	issuing := a.split != nil && !a.split.aborted && a.split.remaining > 0
	if issuing {
		out.Addr = ahb.NonSeqPhase(a.split.chunk())
		out.Addr.Ready = a.downReady
		out.Addr.ID = a.split.id
	} else {
		out.Addr = a.translate(msg.Addr)
	}

	granted := a.down.Request(out)
	a.downTrack.SetLastAddr(out.Addr)
	a.downTrack.SetLastDeny(!granted)

	if issuing {
		a.split.issued = true
		granted = true
	}

	a.upTrack.SetLastAddr(msg.Addr)
	a.upTrack.SetLastDeny(!granted)

	return granted
}

func (a *Aligner) translate(ap ahb.AddrPhase) ahb.AddrPhase {
	if !a.enabled || !ap.IsAddressValid() || ap.Meta.IsAligned() {
		return ap
	}

	addr := ap.Meta.Addr
	switch a.policy(addr) {
	case ModeSplit:
		ap.Meta.Size = largestAligned(addr, ap.Meta.Size.Bytes())
	case ModeTruncateReinterpret:
		ap.Meta.Addr = ap.Meta.Size.AlignDown(addr)
	}

	return ap
}

func (a *Aligner) downData(d ahb.DataPhase) ahb.DataPhase {
	if !d.Data.IsPresent() {
		return d
	}

	switch {
	case a.split != nil && a.split.meta.IsWriting():
		chunk, ok := a.downTrack.DataAddress()
		if !ok {
			return ahb.EmptyDataPhase()
		}

		off := chunk.Meta.Addr - a.split.meta.Addr
		b := d.Data.Bytes()[off : off+chunk.Meta.Size.Bytes()]
		d.Data = ahb.FromBytes(b)
	case a.truncated != nil && a.truncated.IsWriting():
		size := a.truncated.Size.Bytes()
		off := a.truncated.Size.OffsetFromAligned(a.truncated.Addr)
		d.Data = rotate(d.Data, size-off)
	}

	return d
}

// rotate returns the bytes of d starting from lane off, wrapping around.
func rotate(d ahb.DataBus, off uint32) ahb.DataBus {
	in := d.Bytes()
	n := uint32(len(in))
	out := make([]byte, n)

	for i := uint32(0); i < n; i++ {
		out[i] = in[(i+off)%n]
	}

	return ahb.FromBytes(out)
}

// AlignerBuilder builds aligners.
type AlignerBuilder struct {
	down     ahb.Port
	policy   ModePolicy
	disabled bool
}

// MakeAlignerBuilder creates a builder of an enabled aligner that splits all
// unaligned transfers.
func MakeAlignerBuilder() AlignerBuilder {
	return AlignerBuilder{policy: SplitEverywhere}
}

// WithDownstream sets the port that the aligner drives.
func (b AlignerBuilder) WithDownstream(p ahb.Port) AlignerBuilder {
	b.down = p
	return b
}

// WithPolicy sets the function that picks the mode of each address.
func (b AlignerBuilder) WithPolicy(p ModePolicy) AlignerBuilder {
	b.policy = p
	return b
}

// Disabled makes the aligner start disabled.
func (b AlignerBuilder) Disabled() AlignerBuilder {
	b.disabled = true
	return b
}

// Build creates the aligner.
func (b AlignerBuilder) Build(name string) *Aligner {
	sim.NameMustBeValid(name)

	return &Aligner{
		name:        name,
		down:        b.down,
		policy:      b.policy,
		enabled:     !b.disabled,
		wantEnabled: !b.disabled,
	}
}
