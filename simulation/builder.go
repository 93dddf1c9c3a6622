package simulation

import (
	"log"
	"os"

	"github.com/sarchlab/ahbfabric/ahb"
	"github.com/sarchlab/ahbfabric/busmatrix"
	"github.com/sarchlab/ahbfabric/datarecording"
	"github.com/sarchlab/ahbfabric/memory"
	"github.com/sarchlab/ahbfabric/monitoring"
	"github.com/sarchlab/ahbfabric/sim"
	"github.com/sarchlab/ahbfabric/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	config       Config
	monitorOn    bool
	dataRecorder datarecording.DataRecorder
}

// MakeBuilder creates a builder of the default fabric.
func MakeBuilder() Builder {
	return Builder{config: DefaultConfig()}
}

// WithConfig sets the topology of the fabric.
func (b Builder) WithConfig(c Config) Builder {
	b.config = c
	return b
}

// WithMonitor puts the fabric behind a monitor. The server is not started.
func (b Builder) WithMonitor() Builder {
	b.monitorOn = true
	return b
}

// WithDataRecorder traces the fabric into r instead of the database named
// by the config.
func (b Builder) WithDataRecorder(r datarecording.DataRecorder) Builder {
	b.dataRecorder = r
	return b
}

// Build validates the config and wires the fabric. Each master is followed
// by its optional bit-band translator and aligner, then by a decoder. The
// decoder has a route to the output stage of every slave, and each output
// stage arbitrates between all the masters.
func (b Builder) Build() (*Simulation, error) {
	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.UniqueIDs {
		sim.SetIDGenerator(sim.NewUniqueIDGenerator())
	}

	clock := sim.NewClock(sim.BuildName(cfg.Name, "Clock"),
		sim.Freq(cfg.FreqMHz)*sim.MHz)
	s := NewSimulation(clock)

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor().WithPortNumber(cfg.MonitorPort)
		s.monitor.RegisterClock(clock)
		s.monitor.RegisterCollector(s.collector)
	}

	s.Register(clock)

	b.setupRecording(s)

	stages := b.buildSlaves(s)
	for i, m := range cfg.Masters {
		b.buildMaster(s, i, m, stages)
	}

	return s, nil
}

func (b Builder) setupRecording(s *Simulation) {
	s.dataRecorder = b.dataRecorder
	if s.dataRecorder == nil && b.config.TraceDB != "" {
		s.dataRecorder = datarecording.New(b.config.TraceDB)
	}

	if s.dataRecorder != nil {
		s.dbTracer = tracing.NewDBTracer(s.dataRecorder)
	}
}

func (b Builder) buildSlaves(s *Simulation) []*ahb.OutputStage {
	cfg := b.config
	stages := make([]*ahb.OutputStage, 0, len(cfg.Slaves))

	for _, sc := range cfg.Slaves {
		name := sim.BuildName(cfg.Name, sc.Name)

		cb := memory.MakeControllerBuilder().
			WithBase(sc.Start).
			WithNewStorage(sc.End - sc.Start).
			WithReadWaitstates(sc.ReadWaitstates).
			WithWriteWaitstates(sc.WriteWaitstates)
		for _, r := range sc.ErrorRanges {
			cb = cb.WithErrorRange(r.addrRange())
		}

		ctrl := cb.Build(sim.BuildName(name, "Memory"))
		slave := ahb.NewSlaveDriver(name, ctrl)

		sb := ahb.MakeOutputStageBuilder().
			WithNumInputs(len(cfg.Masters)).
			WithDefaultMaster(cfg.DefaultMaster)
		if cfg.Arbitration == ArbitrationRoundRobin {
			sb = sb.WithRoundRobin()
		}

		stage := sb.Build(sim.BuildName(name, "Stage"), slave)

		s.Register(ctrl)
		s.Register(slave)
		s.Register(stage)
		s.clock.Register(slave)
		s.clock.Register(stage)

		stages = append(stages, stage)
	}

	return stages
}

func (b Builder) buildMaster(
	s *Simulation,
	index int,
	mc MasterConfig,
	stages []*ahb.OutputStage,
) {
	cfg := b.config
	name := sim.BuildName(cfg.Name, mc.Name)

	db := ahb.MakeDecoderBuilder()
	for j, sc := range cfg.Slaves {
		db = db.WithRoute(sc.Name, sc.Start, sc.End, stages[j].Input(index))
	}

	decoder := db.Build(sim.BuildName(name, "Decoder"))
	s.Register(decoder)
	s.clock.Register(decoder)

	var front ahb.Port = decoder

	if cfg.TraceWires && s.dataRecorder != nil {
		tap := ahb.NewTap(sim.BuildName(name, "Tap"), front, s.clock)
		s.wireTracer().Watch(tap)
		s.Register(tap)
		front = tap
	}

	if mc.Aligner == AlignerSplit || mc.Aligner == AlignerTruncate {
		ab := busmatrix.MakeAlignerBuilder().WithDownstream(front)
		if mc.Aligner == AlignerTruncate {
			ranges := make([]ahb.AddrRange, len(mc.TruncateRanges))
			for i, r := range mc.TruncateRanges {
				ranges[i] = r.addrRange()
			}

			ab = ab.WithPolicy(busmatrix.TruncateIn(ranges...))
		}

		aligner := ab.Build(sim.BuildName(name, "Aligner"))
		s.Register(aligner)
		s.clock.Register(aligner)
		front = aligner
	}

	if mc.Bitband {
		bitband := busmatrix.NewBitband(sim.BuildName(name, "Bitband"), front)
		s.Register(bitband)
		s.clock.Register(bitband)
		front = bitband
	}

	mb := ahb.MakeMasterDriverBuilder().
		WithClock(s.clock).
		WithDownstream(front)
	if cfg.AHBLiteCompat {
		mb = mb.WithAHBLiteCompat()
	}

	master := mb.Build(name)

	gen := NewTrafficGenerator(sim.BuildName(name, "Traffic"))
	gen.Attach(master, s.clock)
	gen.EnqueueConfig(mc.Traffic)

	s.Register(master)
	s.Register(gen)
	s.clock.Register(master)

	tracing.CollectTransfers(master, s.collector)

	if s.dbTracer != nil {
		tracing.CollectTransfers(master, s.dbTracer)
	}

	if cfg.LogTransfers {
		master.AcceptHook(tracing.NewTransferLogger(
			log.New(os.Stderr, "", 0)))
	}
}

func (s *Simulation) wireTracer() *tracing.WireTracer {
	if s.wires == nil {
		s.wires = tracing.NewWireTracer(s.dataRecorder)
	}

	return s.wires
}
