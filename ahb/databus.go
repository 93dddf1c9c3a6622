package ahb

import (
	"encoding/binary"
	"fmt"
	"log"
)

// DataBus is the value on HWDATA or HRDATA. A bus that is not driven is
// HighZ. Values are little endian.
type DataBus struct {
	size  Size
	value uint32
}

// HighZ returns a bus that is not driven.
func HighZ() DataBus {
	return DataBus{}
}

// Byte returns a byte on the bus.
func Byte(v uint8) DataBus {
	return DataBus{size: SizeByte, value: uint32(v)}
}

// Halfword returns a halfword on the bus.
func Halfword(v uint16) DataBus {
	return DataBus{size: SizeHalfword, value: uint32(v)}
}

// Word returns a word on the bus.
func Word(v uint32) DataBus {
	return DataBus{size: SizeWord, value: v}
}

// ClipWord keeps the low bytes of v that fit in size.
func ClipWord(v uint32, size Size) DataBus {
	switch size {
	case SizeByte:
		return Byte(uint8(v))
	case SizeHalfword:
		return Halfword(uint16(v))
	case SizeWord:
		return Word(v)
	}

	log.Panicf("invalid bus size %d", size)

	return HighZ()
}

// FromBytes returns the bus that carries the given little-endian bytes.
func FromBytes(b []byte) DataBus {
	switch len(b) {
	case 1:
		return Byte(b[0])
	case 2:
		return Halfword(binary.LittleEndian.Uint16(b))
	case 4:
		return Word(binary.LittleEndian.Uint32(b))
	}

	log.Panicf("cannot put %d bytes on the bus", len(b))

	return HighZ()
}

// IsPresent returns true if the bus is driven.
func (d DataBus) IsPresent() bool {
	return d.size != 0
}

// Size returns the width of the value. It panics on HighZ.
func (d DataBus) Size() Size {
	d.mustBePresent()
	return d.size
}

// ZeroExtend returns the value as a word.
func (d DataBus) ZeroExtend() uint32 {
	d.mustBePresent()
	return d.value
}

// Bytes returns the little-endian bytes of the value.
func (d DataBus) Bytes() []byte {
	d.mustBePresent()

	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, d.value)

	return b[:d.size]
}

// ExtractFromAligned reads a size-wide part of d. The part starts at the
// offset of addr within d, and does not need to be aligned.
func (d DataBus) ExtractFromAligned(addr uint32, size Size) DataBus {
	offset := d.Size().OffsetFromAligned(addr)
	if offset+size.Bytes() > d.size.Bytes() {
		log.Panicf("cannot extract %s at offset %d from %s",
			size, offset, d)
	}

	return FromBytes(d.Bytes()[offset : offset+size.Bytes()])
}

// EmplaceInAligned returns d with part written at the offset of addr within
// d.
func (d DataBus) EmplaceInAligned(addr uint32, part DataBus) DataBus {
	offset := d.Size().OffsetFromAligned(addr)
	if offset+part.Size().Bytes() > d.size.Bytes() {
		log.Panicf("cannot emplace %s at offset %d in %s", part, offset, d)
	}

	b := d.Bytes()
	copy(b[offset:], part.Bytes())

	return FromBytes(b)
}

func (d DataBus) mustBePresent() {
	if !d.IsPresent() {
		log.Panic("data bus is not driven")
	}
}

func (d DataBus) String() string {
	switch d.size {
	case SizeByte:
		return fmt.Sprintf("Byte(0x%02x)", d.value)
	case SizeHalfword:
		return fmt.Sprintf("Halfword(0x%04x)", d.value)
	case SizeWord:
		return fmt.Sprintf("Word(0x%08x)", d.value)
	}

	return "HighZ"
}
