package ahb

import (
	"github.com/sarchlab/ahbfabric/sim"
)

// NoMaster is the address route when no master owns the address phase.
const NoMaster = -1

// An Arbiter decides which master drives the address phase of a shared
// slave.
type Arbiter interface {
	sim.Committer

	// Arbitrate picks the address route of this cycle. requests tells which
	// masters presented a valid, ready address phase in the previous cycle,
	// and last is the address phase forwarded to the slave in the previous
	// cycle. A hold or a locked transfer keeps the current owner.
	Arbitrate(requests []bool, last AddrPhase) int

	// AddrRoute returns the master picked for this cycle, or NoMaster.
	AddrRoute() int
}

// A FixedArbiter grants the lowest-index requesting master. The owner keeps
// the bus while it presents transfers; an idle owner keeps it until someone
// else requests.
type FixedArbiter struct {
	addrInPort *sim.Flop[int]
}

// NewFixedArbiter creates a fixed-priority arbiter. The default master owns
// the bus before anyone requests.
func NewFixedArbiter(name string, defaultMaster int) *FixedArbiter {
	return &FixedArbiter{
		addrInPort: sim.NewFlopWith(name, sim.Buffered, defaultMaster),
	}
}

// Commit commits the registers of the arbiter.
func (a *FixedArbiter) Commit() {
	a.addrInPort.Commit()
}

// Arbitrate picks the address route of this cycle.
func (a *FixedArbiter) Arbitrate(requests []bool, last AddrPhase) int {
	if !last.Ready || last.Lock {
		a.addrInPort.KeepCurrentAsNext()
		return a.addrInPort.ThisCycle()
	}

	current := a.addrInPort.PrevCycle()
	next := NoMaster

	for i, req := range requests {
		if req || (i == current && !last.IsIdle()) {
			next = i
			break
		}
	}

	if next == NoMaster && last.IsIdle() {
		next = current
	}

	a.addrInPort.SetThisCycle(next)

	return next
}

// AddrRoute returns the master picked for this cycle.
func (a *FixedArbiter) AddrRoute() int {
	return a.addrInPort.ThisCycle()
}

// A RoundRobinArbiter grants the next requesting master after the current
// owner, so that under contention every master is served in turn.
type RoundRobinArbiter struct {
	addrInPort *sim.Flop[int]
}

// NewRoundRobinArbiter creates a round-robin arbiter without an owner.
func NewRoundRobinArbiter(name string) *RoundRobinArbiter {
	return &RoundRobinArbiter{
		addrInPort: sim.NewFlopWith(name, sim.Buffered, NoMaster),
	}
}

// Commit commits the registers of the arbiter.
func (a *RoundRobinArbiter) Commit() {
	a.addrInPort.Commit()
}

// Arbitrate picks the address route of this cycle.
func (a *RoundRobinArbiter) Arbitrate(requests []bool, last AddrPhase) int {
	if !last.Ready || last.Lock {
		a.addrInPort.KeepCurrentAsNext()
		return a.addrInPort.ThisCycle()
	}

	current := a.addrInPort.PrevCycle()
	n := len(requests)

	start := current
	if start == NoMaster {
		start = n - 1
	}

	next := NoMaster

	for k := 1; k <= n; k++ {
		i := (start + k) % n
		if requests[i] {
			next = i
			break
		}
	}

	if next == NoMaster && last.IsIdle() {
		next = current
	}

	a.addrInPort.SetThisCycle(next)

	return next
}

// AddrRoute returns the master picked for this cycle.
func (a *RoundRobinArbiter) AddrRoute() int {
	return a.addrInPort.ThisCycle()
}
