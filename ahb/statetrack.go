package ahb

import "log"

// A StateTrack follows the pipeline of one side of a bus stage from the
// wires it sees, so that the stage knows which transfer is in its data phase.
type StateTrack struct {
	lastAddr  *AddrPhase
	lastReply *Response
	lastDeny  *bool
	dataAddr  *AddrPhase
}

// A Transition reports how the pipeline moved at a cycle boundary.
type Transition struct {
	// Advanced is true if the address phase of the previous cycle entered
	// the data phase.
	Advanced bool
	// Finished is true if the data phase of the previous cycle ended.
	Finished bool
	// HasDataPhase is true if a transfer is now in the data phase.
	HasDataPhase bool
}

// SetLastAddr records the address phase of this cycle.
func (s *StateTrack) SetLastAddr(a AddrPhase) {
	if s.lastAddr != nil {
		log.Panic("address phase recorded twice in a cycle")
	}

	s.lastAddr = &a
}

// SetLastReply records the reply of this cycle.
func (s *StateTrack) SetLastReply(r Response) {
	if s.lastReply != nil {
		log.Panic("reply recorded twice in a cycle")
	}

	s.lastReply = &r
}

// SetLastDeny records whether the address phase of this cycle was denied.
func (s *StateTrack) SetLastDeny(denied bool) {
	s.lastDeny = &denied
}

// DataAddress returns the address phase of the transfer in the data phase.
func (s *StateTrack) DataAddress() (AddrPhase, bool) {
	if s.dataAddr == nil {
		return AddrPhase{}, false
	}

	return *s.dataAddr, true
}

// Update moves to the next cycle.
func (s *StateTrack) Update() Transition {
	readyOut := s.lastReply == nil || s.lastReply.Ready()
	readyIn := readyOut
	if s.lastAddr != nil {
		readyIn = readyOut && s.lastAddr.Ready
	}

	denied := s.lastDeny != nil && *s.lastDeny
	advanced := readyIn && !denied

	if advanced && s.lastAddr != nil && s.lastAddr.IsAddressValid() {
		a := *s.lastAddr
		s.dataAddr = &a
	} else if readyIn {
		s.dataAddr = nil
	}

	s.lastAddr = nil
	s.lastReply = nil
	s.lastDeny = nil

	return Transition{
		Advanced:     advanced,
		Finished:     readyIn,
		HasDataPhase: s.dataAddr != nil,
	}
}
