// Package memory provides the RAM slaves of the bus fabric.
package memory

import (
	"errors"
	"fmt"
)

// ErrBeyondCapacity is returned when an access falls outside a storage.
var ErrBeyondCapacity = errors.New("access beyond the storage capacity")

// A Storage keeps the bytes of a memory.
//
// The storage is managed in units. A unit is only allocated when it is first
// touched, so sparse address spaces are cheap.
type Storage struct {
	unitSize uint32
	capacity uint32
	data     map[uint32][]byte
}

// NewStorage creates a storage of the given capacity in bytes.
func NewStorage(capacity uint32) *Storage {
	return &Storage{
		unitSize: 4096,
		capacity: capacity,
		data:     make(map[uint32][]byte),
	}
}

// Capacity returns the size of the storage in bytes.
func (s *Storage) Capacity() uint32 {
	return s.capacity
}

func (s *Storage) unit(offset uint32) []byte {
	base, _ := s.split(offset)

	unit, ok := s.data[base]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[base] = unit
	}

	return unit
}

func (s *Storage) split(offset uint32) (base, inUnit uint32) {
	inUnit = offset % s.unitSize
	base = offset - inUnit

	return base, inUnit
}

func (s *Storage) check(offset, n uint32) error {
	if uint64(offset)+uint64(n) > uint64(s.capacity) {
		return fmt.Errorf("offset 0x%x, %d bytes: %w",
			offset, n, ErrBeyondCapacity)
	}

	return nil
}

// Read returns n bytes starting from offset.
func (s *Storage) Read(offset, n uint32) ([]byte, error) {
	if err := s.check(offset, n); err != nil {
		return nil, err
	}

	res := make([]byte, n)

	for done := uint32(0); done < n; {
		cur := offset + done
		_, inUnit := s.split(cur)
		chunk := min(n-done, s.unitSize-inUnit)

		copy(res[done:done+chunk], s.unit(cur)[inUnit:inUnit+chunk])
		done += chunk
	}

	return res, nil
}

// Write stores data starting from offset.
func (s *Storage) Write(offset uint32, data []byte) error {
	n := uint32(len(data))
	if err := s.check(offset, n); err != nil {
		return err
	}

	for done := uint32(0); done < n; {
		cur := offset + done
		_, inUnit := s.split(cur)
		chunk := min(n-done, s.unitSize-inUnit)

		copy(s.unit(cur)[inUnit:inUnit+chunk], data[done:done+chunk])
		done += chunk
	}

	return nil
}
