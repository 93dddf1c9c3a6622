package busmatrix

import (
	"log"

	"github.com/sarchlab/ahbfabric/ahb"
	"github.com/sarchlab/ahbfabric/sim"
)

// The bit-banded regions and their aliases. Each bit of a region is a word
// of its alias.
var (
	SRAMBitbandRegion   = ahb.AddrRange{Start: 0x2000_0000, End: 0x2010_0000}
	PeriphBitbandRegion = ahb.AddrRange{Start: 0x4000_0000, End: 0x4010_0000}
	SRAMBitbandAlias    = aliasOf(SRAMBitbandRegion)
	PeriphBitbandAlias  = aliasOf(PeriphBitbandRegion)
)

const aliasOffset = 0x0200_0000

func aliasOf(r ahb.AddrRange) ahb.AddrRange {
	size := r.End - r.Start

	return ahb.AddrRange{
		Start: r.Start + aliasOffset,
		End:   r.Start + aliasOffset + size*32,
	}
}

// DestructAlias maps an alias address to the word and the bit it stands
// for. rem is the misalignment of the alias address. ok is false if the
// address is not in an alias region.
func DestructAlias(addr uint32) (word, bit, rem uint32, ok bool) {
	for _, region := range []ahb.AddrRange{
		SRAMBitbandRegion, PeriphBitbandRegion,
	} {
		alias := aliasOf(region)
		if !alias.Contains(addr) {
			continue
		}

		off := addr - alias.Start

		return region.Start + (off>>5)&^3, (off >> 2) & 0x1f, off & 3, true
	}

	return 0, 0, 0, false
}

// MakeAlias returns the alias address of a bit of a word in a bit-banded
// region.
func MakeAlias(word, bit uint32) uint32 {
	for _, region := range []ahb.AddrRange{
		SRAMBitbandRegion, PeriphBitbandRegion,
	} {
		if region.Contains(word) {
			return aliasOf(region).Start + (word&^3-region.Start)*32 + bit*4
		}
	}

	log.Panicf("0x%08x is not in a bit-banded region", word)

	return 0
}

type bitbandStage int

const (
	stageNormal bitbandStage = iota
	stageRead
	stageWriteReading
	stageWriteRequestWriting
	stageWriteWritingFirstCycle
	stageWriteWriting
)

func (s bitbandStage) String() string {
	switch s {
	case stageNormal:
		return "Normal"
	case stageRead:
		return "BitbandRead"
	case stageWriteReading:
		return "WriteReading"
	case stageWriteRequestWriting:
		return "WriteRequestWriting"
	case stageWriteWritingFirstCycle:
		return "WriteWritingFirstCycle"
	case stageWriteWriting:
		return "WriteWriting"
	}

	return "Unknown"
}

type bitbandState struct {
	stage bitbandStage
	word  uint32
	bit   uint32
	size  ahb.Size
	prot  ahb.Protection
	id    string

	rdata    uint32
	wdata    uint32
	modified uint32
}

// A Bitband translates accesses to the bit-band alias regions. A read of an
// alias returns one bit of the aliased word. A write of an alias reads the
// word and writes it back with one bit changed. The read-modify-write is
// locked so that no other master can use the slave in between.
//
// Other accesses pass through unchanged.
type Bitband struct {
	name string
	down ahb.Port

	state *sim.Flop[bitbandState]
	regs  sim.Registers

	cur       bitbandState
	reply     ahb.SlaveToMaster
	readWord  uint32
	downReady bool
	hasReply  bool
	requested bool
}

// NewBitband creates a bit-band translator in front of down.
func NewBitband(name string, down ahb.Port) *Bitband {
	sim.NameMustBeValid(name)

	b := &Bitband{
		name: name,
		down: down,
		state: sim.NewFlopWith(sim.BuildName(name, "State"),
			sim.Sequential, bitbandState{stage: stageNormal}),
	}
	b.regs.Add(b.state)

	return b
}

// Name returns the name of the translator.
func (b *Bitband) Name() string {
	return b.name
}

// SetDownstream connects the translator to a port.
func (b *Bitband) SetDownstream(p ahb.Port) {
	b.down = p
}

// IsNormal returns true if no bit-band access is in progress.
func (b *Bitband) IsNormal() bool {
	return b.cur.stage == stageNormal
}

// Tick commits the state of the translator.
func (b *Bitband) Tick() {
	b.regs.Commit()
	b.cur = b.state.Get()

	b.hasReply = false
	b.requested = false
}

// Response returns the reply of this cycle to the master.
func (b *Bitband) Response() ahb.SlaveToMaster {
	if b.hasReply {
		return b.reply
	}

	down := b.down.Response()
	b.downReady = down.Resp.Ready()

	reply := down

	switch b.cur.stage {
	case stageRead:
		if down.Resp == ahb.Success {
			bit := (down.Data.ZeroExtend() >> b.cur.bit) & 1
			reply.Data = ahb.ClipWord(bit, b.cur.size)
		}
	case stageWriteReading:
		if down.Resp == ahb.Success {
			b.readWord = down.Data.ZeroExtend()
		}

		if !down.Resp.IsError() {
			reply = ahb.ReplyOf(ahb.WaitState, down.Responder)
		}
	case stageWriteRequestWriting:
		reply = ahb.ReplyOf(ahb.WaitState, b.name)
	}

	b.reply = reply
	b.hasReply = true

	return reply
}

// Request presents the wires of the master, or the wires of the
// read-modify-write sequence while one is in progress.
func (b *Bitband) Request(msg ahb.MasterToSlave) bool {
	if b.requested {
		log.Panicf("%s: got a second request in one cycle", b.name)
	}

	b.requested = true
	reply := b.Response()

	s := b.cur
	next := s
	done := reply.Resp.Ready()
	forward := false

	out := ahb.MasterToSlave{
		Addr: ahb.IdlePhase(),
		Data: ahb.EmptyDataPhase(),
	}
	out.Addr.Ready = b.downReady

	switch s.stage {
	case stageNormal, stageRead:
		forward = true
		out.Data = msg.Data
	case stageWriteReading:
		if msg.Data.Data.IsPresent() {
			next.wdata = msg.Data.Data.ZeroExtend()
		}

		switch {
		case reply.Resp == ahb.Error2:
			forward = true
		case reply.Resp.IsError():
		case b.downReady:
			out.Addr.Lock = true
			next.rdata = b.readWord
			next.stage = stageWriteRequestWriting
		default:
			out.Addr.Lock = true
		}
	case stageWriteRequestWriting:
		out.Addr = ahb.NonSeqPhase(ahb.WriteMeta(s.word, ahb.SizeWord))
		out.Addr.Meta.Prot = s.prot
		out.Addr.Ready = b.downReady
		out.Addr.Lock = true
		out.Addr.ID = s.id
	case stageWriteWritingFirstCycle, stageWriteWriting:
		if s.stage == stageWriteWritingFirstCycle {
			next.modified = s.rdata&^(1<<s.bit) | (s.wdata&1)<<s.bit
		}

		out.Data = ahb.DataPhase{Data: ahb.Word(next.modified), ID: s.id}
		forward = true
	}

	var pending bitbandState
	if forward {
		out.Addr, pending = b.translate(msg.Addr)
	}

	granted := b.down.Request(out)

	switch {
	case s.stage == stageWriteRequestWriting:
		if granted && out.Addr.Ready {
			next.stage = stageWriteWritingFirstCycle
		}
	case !forward:
	case !done:
		if s.stage == stageWriteWritingFirstCycle {
			next.stage = stageWriteWriting
		}
	case granted && out.Addr.AdvancesToValid():
		next = pending
	default:
		next = bitbandState{stage: stageNormal}
	}

	b.state.Set(next)

	if forward {
		return granted
	}

	return true
}

func (b *Bitband) translate(ap ahb.AddrPhase) (ahb.AddrPhase, bitbandState) {
	normal := bitbandState{stage: stageNormal}

	if !ap.IsAddressValid() {
		return ap, normal
	}

	word, bit, rem, ok := DestructAlias(ap.Meta.Addr)
	if !ok {
		return ap, normal
	}

	if rem != 0 {
		log.Panicf("%s: unpredictable: unaligned access to bitband "+
			"alias region at 0x%08x", b.name, ap.Meta.Addr)
	}

	state := bitbandState{
		stage: stageRead,
		word:  word,
		bit:   bit,
		size:  ap.Meta.Size,
		prot:  ap.Meta.Prot,
		id:    ap.ID,
	}

	out := ap
	out.Meta = ahb.ReadMeta(word, ahb.SizeWord)
	out.Meta.Prot = ap.Meta.Prot

	if ap.Meta.IsWriting() {
		out.Lock = true
		state.stage = stageWriteReading
	}

	return out, state
}
