// Package ahb models an AHB-Lite bus at cycle level. It provides the wire
// records exchanged by masters and slaves, the drivers that terminate both
// ends of the bus, and the interconnect stages (decoders, output stages and
// arbiters) that sit in between.
package ahb

import "fmt"

// Direction tells whether a transfer reads or writes.
type Direction int

// The directions of a transfer.
const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	if d == DirWrite {
		return "Write"
	}

	return "Read"
}

// Size is the number of bytes moved by a single transfer (HSIZE).
type Size uint32

// The supported transfer sizes.
const (
	SizeByte     Size = 1
	SizeHalfword Size = 2
	SizeWord     Size = 4
)

func (s Size) String() string {
	switch s {
	case SizeByte:
		return "Byte"
	case SizeHalfword:
		return "Halfword"
	case SizeWord:
		return "Word"
	}

	return fmt.Sprintf("Size(%d)", uint32(s))
}

// Bytes returns the number of bytes of the size.
func (s Size) Bytes() uint32 {
	return uint32(s)
}

// IsAligned returns true if addr is a multiple of the size.
func (s Size) IsAligned(addr uint32) bool {
	return addr%uint32(s) == 0
}

// AlignDown returns the closest aligned address below addr.
func (s Size) AlignDown(addr uint32) uint32 {
	return addr &^ (uint32(s) - 1)
}

// OffsetFromAligned returns the distance between addr and the aligned
// address below it.
func (s Size) OffsetFromAligned(addr uint32) uint32 {
	return addr & (uint32(s) - 1)
}

// Burst is the burst kind of a transfer (HBURST). Only single transfers are
// carried end to end.
type Burst int

// The burst kinds.
const (
	BurstSingle Burst = iota
	BurstIncr
)

// Protection carries the HPROT bits.
type Protection struct {
	Data       bool
	Privileged bool
	Bufferable bool
	Cacheable  bool
}

// TransferMeta describes what a transfer does.
type TransferMeta struct {
	Addr  uint32
	Size  Size
	Burst Burst
	Dir   Direction
	Prot  Protection
}

// ReadMeta creates the metadata of a single read.
func ReadMeta(addr uint32, size Size) TransferMeta {
	return TransferMeta{
		Addr: addr,
		Size: size,
		Dir:  DirRead,
		Prot: Protection{Data: true},
	}
}

// WriteMeta creates the metadata of a single write.
func WriteMeta(addr uint32, size Size) TransferMeta {
	m := ReadMeta(addr, size)
	m.Dir = DirWrite

	return m
}

// IsWriting returns true for writes.
func (m TransferMeta) IsWriting() bool {
	return m.Dir == DirWrite
}

// IsReading returns true for reads.
func (m TransferMeta) IsReading() bool {
	return m.Dir == DirRead
}

// IsAligned returns true if the address is aligned to the size.
func (m TransferMeta) IsAligned() bool {
	return m.Size.IsAligned(m.Addr)
}

func (m TransferMeta) String() string {
	return fmt.Sprintf("%s(0x%08x, %s)", m.Dir, m.Addr, m.Size)
}

// TransferKind is the HTRANS value of an address phase. NoSel stands for a
// deasserted HSEL.
type TransferKind int

// The transfer kinds.
const (
	TransferIdle TransferKind = iota
	TransferNoSel
	TransferNonSeq
	TransferSeq
)

func (k TransferKind) String() string {
	switch k {
	case TransferIdle:
		return "Idle"
	case TransferNoSel:
		return "NoSel"
	case TransferNonSeq:
		return "NonSeq"
	case TransferSeq:
		return "Seq"
	}

	return "Unknown"
}

// AddrPhase is what a master presents in the address phase of a transfer.
//
// Ready is the HREADY input of the slave, that is, the reflection of the
// previous response. A slave only samples an address phase when it is ready.
type AddrPhase struct {
	Kind  TransferKind
	Meta  TransferMeta
	Ready bool
	Lock  bool
	ID    string
}

// IdlePhase returns a ready idle address phase.
func IdlePhase() AddrPhase {
	return AddrPhase{Kind: TransferIdle, Ready: true}
}

// NoSelPhase returns an address phase of a slave that is not selected.
func NoSelPhase(ready bool) AddrPhase {
	return AddrPhase{Kind: TransferNoSel, Ready: ready}
}

// NonSeqPhase returns a ready address phase of a new single transfer.
func NonSeqPhase(meta TransferMeta) AddrPhase {
	return AddrPhase{Kind: TransferNonSeq, Meta: meta, Ready: true}
}

// IsAddressValid returns true if the phase carries a transfer.
func (a AddrPhase) IsAddressValid() bool {
	return a.Kind == TransferNonSeq || a.Kind == TransferSeq
}

// IsSelected returns false if the slave is not selected.
func (a AddrPhase) IsSelected() bool {
	return a.Kind != TransferNoSel
}

// IsIdle returns true if the phase does not carry a transfer.
func (a AddrPhase) IsIdle() bool {
	return !a.IsAddressValid()
}

// AdvancesToValid returns true if the phase will become a data phase at the
// end of this cycle, provided the slave does not deny it.
func (a AddrPhase) AdvancesToValid() bool {
	return a.Ready && a.IsAddressValid()
}

func (a AddrPhase) String() string {
	s := a.Kind.String()
	if a.IsAddressValid() {
		s += " " + a.Meta.String()
	}

	if !a.Ready {
		s += " (hold)"
	}

	if a.Lock {
		s += " (locked)"
	}

	return s
}

// DataPhase is what a master presents in the data phase of a transfer.
type DataPhase struct {
	Data DataBus
	ID   string
}

// EmptyDataPhase returns a data phase without payload.
func EmptyDataPhase() DataPhase {
	return DataPhase{Data: HighZ()}
}

// MasterToSlave bundles the wires driven by a master in one cycle.
type MasterToSlave struct {
	Addr AddrPhase
	Data DataPhase
}

// IdleRequest returns a request that carries nothing.
func IdleRequest() MasterToSlave {
	return MasterToSlave{Addr: IdlePhase(), Data: EmptyDataPhase()}
}

// Response is the HREADYOUT and HRESP pair of a slave.
type Response int

// The responses of a slave.
const (
	Success Response = iota
	WaitState
	Error1
	Error2
)

func (r Response) String() string {
	switch r {
	case Success:
		return "Success"
	case WaitState:
		return "WaitState"
	case Error1:
		return "Error1"
	case Error2:
		return "Error2"
	}

	return "Unknown"
}

// Ready returns the HREADYOUT signal.
func (r Response) Ready() bool {
	return r == Success || r == Error2
}

// IsWaitstate returns true if the data phase continues next cycle.
func (r Response) IsWaitstate() bool {
	return r == WaitState || r == Error1
}

// IsDone returns true if the data phase completed successfully.
func (r Response) IsDone() bool {
	return r == Success
}

// IsError returns the HRESP signal.
func (r Response) IsError() bool {
	return r == Error1 || r == Error2
}

// SlaveToMaster bundles the wires driven by a slave in one cycle.
type SlaveToMaster struct {
	Resp      Response
	Data      DataBus
	Responder string
}

// ReplyOf returns a reply without data.
func ReplyOf(resp Response, responder string) SlaveToMaster {
	return SlaveToMaster{Resp: resp, Data: HighZ(), Responder: responder}
}

func (s SlaveToMaster) String() string {
	if s.Data.IsPresent() {
		return fmt.Sprintf("%s %s from %s", s.Resp, s.Data, s.Responder)
	}

	return fmt.Sprintf("%s from %s", s.Resp, s.Responder)
}
