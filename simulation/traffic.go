package simulation

import (
	"github.com/sarchlab/ahbfabric/ahb"
	"github.com/sarchlab/ahbfabric/sim"
)

type trafficItem struct {
	transfer *ahb.Transfer
	idle     int
}

// A TrafficGenerator is the owner of a master driver that issues a scripted
// sequence of transfers, back to back.
type TrafficGenerator struct {
	name   string
	driver *ahb.MasterDriver

	items    []trafficItem
	next     int
	idleLeft int
	issued   int

	done    []*ahb.Transfer
	aborted []*ahb.Transfer
}

// NewTrafficGenerator creates a generator with an empty script.
func NewTrafficGenerator(name string) *TrafficGenerator {
	sim.NameMustBeValid(name)

	return &TrafficGenerator{name: name}
}

// Name returns the name of the generator.
func (g *TrafficGenerator) Name() string {
	return g.name
}

// Attach makes the generator issue through d in every cycle of clock.
func (g *TrafficGenerator) Attach(d *ahb.MasterDriver, clock *sim.Clock) {
	g.driver = d
	d.SetOwner(g)
	clock.OnCycle(g.issue)
}

// Enqueue appends transfers to the script.
func (g *TrafficGenerator) Enqueue(transfers ...*ahb.Transfer) {
	for _, t := range transfers {
		g.items = append(g.items, trafficItem{transfer: t})
	}
}

// EnqueueIdle appends n quiet cycles to the script.
func (g *TrafficGenerator) EnqueueIdle(n int) {
	g.items = append(g.items, trafficItem{idle: n})
}

// EnqueueConfig appends scripted transfers from a topology.
func (g *TrafficGenerator) EnqueueConfig(script []TransferConfig) {
	for _, c := range script {
		size := ahb.Size(c.Size)

		switch c.Op {
		case "idle":
			g.EnqueueIdle(c.Cycles)
		case "read":
			g.Enqueue(&ahb.Transfer{Meta: ahb.ReadMeta(c.Addr, size)})
		case "write":
			g.Enqueue(&ahb.Transfer{
				Meta: ahb.WriteMeta(c.Addr, size),
				Data: ahb.ClipWord(c.Data, size),
			})
		}
	}
}

func (g *TrafficGenerator) issue(uint64) {
	for g.next < len(g.items) {
		item := &g.items[g.next]

		if item.transfer == nil {
			if item.idle <= 0 {
				g.next++
				continue
			}

			if g.idleLeft == 0 {
				g.idleLeft = item.idle
			}

			g.idleLeft--
			if g.idleLeft == 0 {
				g.next++
			}

			return
		}

		if !g.driver.TryRequest(item.transfer) {
			return
		}

		g.issued++
		g.next++

		return
	}
}

// TransferDone records a finished transfer.
func (g *TrafficGenerator) TransferDone(t *ahb.Transfer) {
	g.done = append(g.done, t)
}

// TransfersAborted records the transfers lost to a bus error.
func (g *TrafficGenerator) TransfersAborted(addr, data *ahb.Transfer) {
	for _, t := range []*ahb.Transfer{data, addr} {
		if t != nil {
			g.aborted = append(g.aborted, t)
		}
	}
}

// NumIssued returns the number of transfers the driver has accepted.
func (g *TrafficGenerator) NumIssued() int {
	return g.issued
}

// Done returns the transfers that succeeded, in completion order.
func (g *TrafficGenerator) Done() []*ahb.Transfer {
	return g.done
}

// Aborted returns the transfers that failed.
func (g *TrafficGenerator) Aborted() []*ahb.Transfer {
	return g.aborted
}

// IsFinished returns true if the whole script has been issued and every
// transfer has finished.
func (g *TrafficGenerator) IsFinished() bool {
	return g.next == len(g.items) &&
		len(g.done)+len(g.aborted) == g.issued
}
