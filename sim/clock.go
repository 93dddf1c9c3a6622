package sim

import "log"

// A Cycler is a component that has registers to commit at each cycle
// boundary.
type Cycler interface {
	Named

	// Tick commits the registers of the component and computes the state of
	// the new cycle from the committed values.
	Tick()
}

// A Driver initiates the traffic of a cycle. Masters are drivers.
type Driver interface {
	Named

	// Drive samples the response of the downstream port and presents the
	// request of this cycle.
	Drive()
}

// A CycleTeller can tell the current cycle.
type CycleTeller interface {
	CurrentCycle() uint64
}

// A Clock advances a set of components in lock-step.
//
// Each cycle has three steps. First, every registered Cycler ticks. Then, the
// cycle callbacks run; this is where the owners of masters issue requests.
// Finally, every Driver drives the bus, in the order of registration.
type Clock struct {
	HookableBase

	name  string
	freq  Freq
	cycle uint64

	cyclers   []Cycler
	drivers   []Driver
	callbacks []func(cycle uint64)
	inCycle   bool
}

// NewClock creates a clock with the given frequency.
func NewClock(name string, freq Freq) *Clock {
	NameMustBeValid(name)

	return &Clock{name: name, freq: freq}
}

// Name returns the name of the clock.
func (c *Clock) Name() string {
	return c.name
}

// Freq returns the frequency of the clock.
func (c *Clock) Freq() Freq {
	return c.freq
}

// Register attaches a component to the clock. The component must be a
// Cycler, a Driver, or both.
func (c *Clock) Register(comp Named) {
	registered := false

	if cycler, ok := comp.(Cycler); ok {
		c.cyclers = append(c.cyclers, cycler)
		registered = true
	}

	if driver, ok := comp.(Driver); ok {
		c.drivers = append(c.drivers, driver)
		registered = true
	}

	if !registered {
		log.Panicf("component %s neither ticks nor drives", comp.Name())
	}
}

// OnCycle adds a callback that runs after the tick of every cycle.
func (c *Clock) OnCycle(f func(cycle uint64)) {
	c.callbacks = append(c.callbacks, f)
}

// CurrentCycle returns the number of the cycle that is running or is about to
// run.
func (c *Clock) CurrentCycle() uint64 {
	return c.cycle
}

// Now returns the time of the current cycle.
func (c *Clock) Now() VTimeInSec {
	return c.freq.CycleTime(c.cycle)
}

// Step runs one cycle.
func (c *Clock) Step() {
	if c.inCycle {
		log.Panic("clock stepped from inside a cycle")
	}

	c.inCycle = true
	defer func() { c.inCycle = false }()

	for _, cycler := range c.cyclers {
		cycler.Tick()
	}

	c.InvokeHook(HookCtx{Domain: c, Cycle: c.cycle, Pos: HookPosCycleStart})

	for _, f := range c.callbacks {
		f(c.cycle)
	}

	for _, d := range c.drivers {
		d.Drive()
	}

	c.InvokeHook(HookCtx{Domain: c, Cycle: c.cycle, Pos: HookPosCycleEnd})

	c.cycle++
}

// Run runs n cycles.
func (c *Clock) Run(n uint64) {
	for i := uint64(0); i < n; i++ {
		c.Step()
	}
}
