// Package simulation assembles complete fabrics. A Simulation is an arena
// that owns every component of a fabric and hands out index handles to
// them; a Builder wires a fabric from a topology Config.
package simulation

import (
	"log"

	"github.com/sarchlab/ahbfabric/ahb"
	"github.com/sarchlab/ahbfabric/datarecording"
	"github.com/sarchlab/ahbfabric/memory"
	"github.com/sarchlab/ahbfabric/monitoring"
	"github.com/sarchlab/ahbfabric/sim"
	"github.com/sarchlab/ahbfabric/tracing"
)

// A Handle identifies a component registered with a Simulation.
type Handle int

// NoHandle is returned when a name is not registered.
const NoHandle Handle = -1

// A Simulation owns the clock and the components of a fabric.
type Simulation struct {
	id    string
	clock *sim.Clock

	components    []sim.Named
	compNameIndex map[string]Handle

	masters    []Handle
	generators []Handle
	memories   []Handle

	dataRecorder datarecording.DataRecorder
	dbTracer     *tracing.DBTracer
	wires        *tracing.WireTracer
	collector    *tracing.TransferCollector
	monitor      *monitoring.Monitor
}

// NewSimulation creates an empty simulation driven by clock.
func NewSimulation(clock *sim.Clock) *Simulation {
	return &Simulation{
		id:            sim.GetIDGenerator().Generate(),
		clock:         clock,
		compNameIndex: make(map[string]Handle),
		collector:     tracing.NewTransferCollector(nil),
	}
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Clock returns the clock of the fabric.
func (s *Simulation) Clock() *sim.Clock {
	return s.clock
}

// Register adds a component to the arena and returns its handle. Names must
// be unique.
func (s *Simulation) Register(c sim.Named) Handle {
	name := c.Name()
	if _, ok := s.compNameIndex[name]; ok {
		log.Panicf("component %s already registered", name)
	}

	h := Handle(len(s.components))
	s.components = append(s.components, c)
	s.compNameIndex[name] = h

	switch c.(type) {
	case *ahb.MasterDriver:
		s.masters = append(s.masters, h)
	case *TrafficGenerator:
		s.generators = append(s.generators, h)
	case *memory.Controller:
		s.memories = append(s.memories, h)
	}

	if s.monitor != nil {
		s.monitor.RegisterComponent(c)
	}

	return h
}

// Component returns the component of a handle.
func (s *Simulation) Component(h Handle) sim.Named {
	return s.components[h]
}

// Lookup returns the handle of the named component.
func (s *Simulation) Lookup(name string) Handle {
	h, ok := s.compNameIndex[name]
	if !ok {
		return NoHandle
	}

	return h
}

// GetComponentByName returns the named component, or nil.
func (s *Simulation) GetComponentByName(name string) sim.Named {
	h := s.Lookup(name)
	if h == NoHandle {
		return nil
	}

	return s.components[h]
}

// Components returns all the components in registration order.
func (s *Simulation) Components() []sim.Named {
	return s.components
}

// Masters returns the master drivers.
func (s *Simulation) Masters() []*ahb.MasterDriver {
	return collect[*ahb.MasterDriver](s, s.masters)
}

// Generators returns the traffic generators, in the order of the masters.
func (s *Simulation) Generators() []*TrafficGenerator {
	return collect[*TrafficGenerator](s, s.generators)
}

// Memories returns the memory controllers behind the slaves.
func (s *Simulation) Memories() []*memory.Controller {
	return collect[*memory.Controller](s, s.memories)
}

func collect[T sim.Named](s *Simulation, handles []Handle) []T {
	out := make([]T, len(handles))
	for i, h := range handles {
		out[i] = s.components[h].(T)
	}

	return out
}

// Collector returns the collector that sees the transfers of every master.
func (s *Simulation) Collector() *tracing.TransferCollector {
	return s.collector
}

// GetDataRecorder returns the data recorder, or nil if the fabric is not
// traced.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor, or nil if the fabric is not monitored.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// Run runs n cycles.
func (s *Simulation) Run(n uint64) {
	if s.monitor != nil {
		s.monitor.Run(n)
		return
	}

	s.clock.Run(n)
}

// RunUntilFinished runs until every traffic generator has finished, for at
// most limit cycles. It returns the number of cycles run and whether the
// generators finished.
//
// A monitored fabric shows the run as a progress bar towards the limit.
func (s *Simulation) RunUntilFinished(limit uint64) (uint64, bool) {
	var bar *monitoring.ProgressBar
	if s.monitor != nil {
		bar = s.monitor.CreateProgressBar(s.clock.Name(), limit)
		defer s.monitor.CompleteProgressBar(bar)
	}

	for n := uint64(0); n < limit; n++ {
		if s.isFinished() {
			return n, true
		}

		s.Run(1)

		if bar != nil {
			bar.IncrementFinished(1)
		}
	}

	return limit, s.isFinished()
}

func (s *Simulation) isFinished() bool {
	for _, g := range s.Generators() {
		if !g.IsFinished() {
			return false
		}
	}

	return true
}

// Terminate flushes and closes the data recorder.
func (s *Simulation) Terminate() error {
	if s.dataRecorder == nil {
		return nil
	}

	s.dbTracer.Terminate()

	return s.dataRecorder.Close()
}
