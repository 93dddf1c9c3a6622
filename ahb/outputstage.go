package ahb

import (
	"log"

	"github.com/sarchlab/ahbfabric/sim"
)

// An OutputStage lets several masters share one slave. Each master connects
// to one of its input ports. The arbiter picks the master whose address phase
// is forwarded; the data phase and the response follow the master whose
// address phase was accepted in the previous cycle.
type OutputStage struct {
	name    string
	arbiter Arbiter
	slave   Port
	inputs  []*OutputStageInput

	dataRoute *sim.Flop[int]
	regs      sim.Registers

	route      int
	slaveReady bool
	hasReply   bool
	requested  []bool
	wants      []bool
	outAddr    *AddrPhase
	dataBuf    *DataPhase
	sent       bool
	lastAddr   AddrPhase
}

// An OutputStageInput is the port of an OutputStage that a master, usually
// through its decoder, connects to.
type OutputStageInput struct {
	stage *OutputStage
	index int
	name  string
}

// Name returns the name of the input.
func (p *OutputStageInput) Name() string {
	return p.name
}

// Response returns the reply that the input receives in this cycle.
func (p *OutputStageInput) Response() SlaveToMaster {
	return p.stage.responseFor(p.index)
}

// Request presents the wires of the master behind the input.
func (p *OutputStageInput) Request(msg MasterToSlave) bool {
	return p.stage.request(p.index, msg)
}

// Name returns the name of the output stage.
func (s *OutputStage) Name() string {
	return s.name
}

// Input returns the port of the i-th master.
func (s *OutputStage) Input(i int) *OutputStageInput {
	return s.inputs[i]
}

// NumInputs returns the number of masters.
func (s *OutputStage) NumInputs() int {
	return len(s.inputs)
}

// SetSlave connects the output stage to the slave.
func (s *OutputStage) SetSlave(p Port) {
	s.slave = p
}

// AddrRoute returns the master whose address phase is forwarded in this
// cycle, or NoMaster.
func (s *OutputStage) AddrRoute() int {
	return s.arbiter.AddrRoute()
}

// DataRoute returns the master that owns the data phase in this cycle, or
// NoMaster.
func (s *OutputStage) DataRoute() int {
	return s.route
}

// Tick arbitrates from the requests of the previous cycle.
func (s *OutputStage) Tick() {
	if !s.sent && (s.outAddr != nil || s.dataBuf != nil) {
		log.Panicf("%s: the previous cycle was not forwarded", s.name)
	}

	s.regs.Commit()
	s.arbiter.Commit()

	s.arbiter.Arbitrate(s.wants, s.lastAddr)

	s.route = s.dataRoute.Get()
	s.dataRoute.Set(NoMaster)

	s.hasReply = false
	s.sent = false
	s.outAddr = nil
	s.dataBuf = nil
	s.lastAddr = IdlePhase()
	s.wants = make([]bool, len(s.inputs))
	s.requested = make([]bool, len(s.inputs))
}

func (s *OutputStage) sampleSlave() {
	if s.hasReply {
		return
	}

	s.hasReply = true
	s.slaveReady = true

	if s.route == NoMaster {
		return
	}

	s.slaveReady = s.slave.Response().Resp.Ready()
	if !s.slaveReady {
		s.dataRoute.KeepCurrentAsNext()
	}
}

func (s *OutputStage) responseFor(i int) SlaveToMaster {
	s.sampleSlave()

	if i != s.route {
		return ReplyOf(Success, s.name)
	}

	return s.slave.Response()
}

func (s *OutputStage) request(i int, msg MasterToSlave) bool {
	s.sampleSlave()

	if s.requested[i] {
		log.Panicf("%s: input %d got a second request in one cycle",
			s.name, i)
	}

	s.requested[i] = true

	addrRoute := s.arbiter.AddrRoute()
	wants := msg.Addr.AdvancesToValid()
	s.wants[i] = wants

	if addrRoute == i {
		addr := msg.Addr
		s.outAddr = &addr
	}

	if s.route == i {
		data := msg.Data
		s.dataBuf = &data
	}

	granted := true

	switch {
	case wants && addrRoute != i:
		granted = false
	case msg.Addr.IsSelected() && i != s.route && !s.slaveReady:
		granted = false
	}

	s.trySend()

	return granted
}

func (s *OutputStage) trySend() {
	if s.sent {
		return
	}

	addrRoute := s.arbiter.AddrRoute()

	if (s.route != NoMaster) != (s.dataBuf != nil) ||
		(addrRoute != NoMaster) != (s.outAddr != nil) {
		return
	}

	s.sent = true

	addr := IdlePhase()
	if s.outAddr != nil {
		addr = *s.outAddr
	}

	if addr.IsAddressValid() {
		s.dataRoute.SetIfNotLatching(addrRoute)
	} else if !addr.IsSelected() && s.route == NoMaster {
		s.lastAddr = addr
		return
	}

	data := EmptyDataPhase()
	if s.dataBuf != nil {
		data = *s.dataBuf
	}

	s.lastAddr = addr
	s.slave.Request(MasterToSlave{Addr: addr, Data: data})
}

// OutputStageBuilder builds output stages.
type OutputStageBuilder struct {
	numInputs     int
	roundRobin    bool
	defaultMaster int
}

// MakeOutputStageBuilder creates a builder of a fixed-priority output stage
// with two inputs.
func MakeOutputStageBuilder() OutputStageBuilder {
	return OutputStageBuilder{numInputs: 2}
}

// WithNumInputs sets the number of masters.
func (b OutputStageBuilder) WithNumInputs(n int) OutputStageBuilder {
	b.numInputs = n
	return b
}

// WithRoundRobin makes the output stage use a round-robin arbiter.
func (b OutputStageBuilder) WithRoundRobin() OutputStageBuilder {
	b.roundRobin = true
	return b
}

// WithDefaultMaster sets the master that owns a fixed-priority output stage
// before anyone requests.
func (b OutputStageBuilder) WithDefaultMaster(i int) OutputStageBuilder {
	b.defaultMaster = i
	return b
}

// Build creates the output stage in front of slave.
func (b OutputStageBuilder) Build(name string, slave Port) *OutputStage {
	sim.NameMustBeValid(name)

	if b.numInputs < 1 {
		log.Panicf("%s: an output stage needs at least one input", name)
	}

	s := &OutputStage{
		name:  name,
		slave: slave,
		dataRoute: sim.NewFlopWith(
			sim.BuildName(name, "DataRoute"), sim.Combinational, NoMaster),
		wants:    make([]bool, b.numInputs),
		lastAddr: IdlePhase(),
		sent:     true,
	}
	s.regs.Add(s.dataRoute)

	arbiterName := sim.BuildName(name, "Arbiter")
	if b.roundRobin {
		s.arbiter = NewRoundRobinArbiter(arbiterName)
	} else {
		s.arbiter = NewFixedArbiter(arbiterName, b.defaultMaster)
	}

	for i := 0; i < b.numInputs; i++ {
		s.inputs = append(s.inputs, &OutputStageInput{
			stage: s,
			index: i,
			name:  sim.BuildNameWithIndex(name, "Input", i),
		})
	}

	return s
}
