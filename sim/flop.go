package sim

import "log"

// FlopKind selects the write discipline of a Flop.
type FlopKind int

// The kinds of flops.
const (
	// Sequential flops accept one Set between two commits.
	Sequential FlopKind = iota
	// Combinational flops accept any number of Sets between two commits.
	// They hold values whose writers cannot be bounded to one per cycle.
	Combinational
	// Buffered flops are Sequential flops whose next value is also read in
	// the same cycle (see ThisCycle and PrevCycle).
	Buffered
	// Latching flops accept one proposal per cycle and can be told to keep
	// the current value instead.
	Latching
)

func (k FlopKind) String() string {
	switch k {
	case Sequential:
		return "Sequential"
	case Combinational:
		return "Combinational"
	case Buffered:
		return "Buffered"
	case Latching:
		return "Latching"
	}

	return "Unknown"
}

// A Flop is a register that delays a value by one cycle.
//
// A value written with Set becomes visible through Get only after Commit.
// Every committed value must be consumed during the cycle, either by reading
// it or by calling Ignore. Any violation of this discipline panics, since it
// means the timing of the component that owns the flop is wrong.
type Flop[T any] struct {
	name string
	kind FlopKind

	cur     T
	hasCur  bool
	next    T
	hasNext bool
	keep    bool

	wasRead    bool
	wasIgnored bool
	strict     bool
}

// NewFlop creates an empty flop.
func NewFlop[T any](name string, kind FlopKind) *Flop[T] {
	return &Flop[T]{name: name, kind: kind}
}

// NewFlopWith creates a flop that holds v after the first commit.
func NewFlopWith[T any](name string, kind FlopKind, v T) *Flop[T] {
	f := NewFlop[T](name, kind)
	f.next = v
	f.hasNext = true

	return f
}

// Name returns the name of the flop.
func (f *Flop[T]) Name() string {
	return f.name
}

// StrictReads makes Get panic when the current value is read a second time
// before the next commit. Owners that read a flop once per cycle can enable it
// to catch a reader that consumes the same value twice.
func (f *Flop[T]) StrictReads() *Flop[T] {
	f.strict = true
	return f
}

// Kind returns the write discipline of the flop.
func (f *Flop[T]) Kind() FlopKind {
	return f.kind
}

// IsSet returns true if a value was committed in the previous cycle.
func (f *Flop[T]) IsSet() bool {
	if !f.hasCur && f.wasRead {
		log.Panicf("flop %s: value was taken", f.name)
	}

	return f.hasCur
}

// IsEmpty returns true if the flop holds neither a current nor a next value.
func (f *Flop[T]) IsEmpty() bool {
	return !f.hasCur && !f.hasNext
}

// Get returns the value committed in the previous cycle.
func (f *Flop[T]) Get() T {
	if f.wasIgnored {
		log.Panicf("flop %s: using value of ignored flop", f.name)
	}

	if !f.hasCur {
		log.Panicf("flop %s: reading flop that is not set", f.name)
	}

	if f.strict && f.wasRead {
		log.Panicf("flop %s: value read twice in one cycle", f.name)
	}

	f.wasRead = true

	return f.cur
}

// GetOr returns the current value or def if the flop is not set.
func (f *Flop[T]) GetOr(def T) T {
	if f.IsSet() {
		return f.Get()
	}

	return def
}

// Ignore marks the current value as deliberately unused.
func (f *Flop[T]) Ignore() {
	if f.wasRead {
		log.Panicf("flop %s: ignoring value that was already used", f.name)
	}

	f.wasIgnored = true
}

// Take returns the current value and clears it.
func (f *Flop[T]) Take() T {
	f.IsSet()
	v := f.Get()

	var zero T
	f.cur = zero
	f.hasCur = false

	return v
}

// TryTake takes the current value if there is one.
func (f *Flop[T]) TryTake() (T, bool) {
	if !f.IsSet() {
		var zero T
		return zero, false
	}

	return f.Take(), true
}

// IsNextSet returns true if the flop will hold a value after the next commit.
func (f *Flop[T]) IsNextSet() bool {
	return f.keep || f.hasNext
}

// PeekNext returns the value that the flop will hold after the next commit.
func (f *Flop[T]) PeekNext() T {
	if !f.IsNextSet() {
		log.Panicf("flop %s: peeking flop without next value", f.name)
	}

	if f.keep {
		return f.cur
	}

	return f.next
}

// Set proposes the value for the next cycle.
func (f *Flop[T]) Set(v T) {
	switch f.kind {
	case Combinational:
		f.keep = false
	case Latching:
		if f.hasNext {
			log.Panicf("flop %s: setting latch proposal for a second time",
				f.name)
		}
	default:
		if f.IsNextSet() {
			log.Panicf("flop %s: setting flop that is already set", f.name)
		}
	}

	f.next = v
	f.hasNext = true
}

// KeepCurrentAsNext makes the flop hold its current value for one more
// cycle. For Combinational and Latching flops, it overrides any proposal.
func (f *Flop[T]) KeepCurrentAsNext() {
	if f.wasIgnored {
		log.Panicf("flop %s: using value of ignored flop", f.name)
	}

	if !f.hasCur {
		log.Panicf("flop %s: keeping value of flop that is not set", f.name)
	}

	switch f.kind {
	case Combinational:
		f.clearNext()
	case Latching:
	default:
		if f.IsNextSet() {
			log.Panicf("flop %s: setting flop that is already set", f.name)
		}
	}

	f.wasRead = true
	f.keep = true
}

// SetDefault sets the next value unless one was already proposed.
func (f *Flop[T]) SetDefault(v T) {
	f.mustBe(Combinational, "SetDefault")

	if !f.IsNextSet() {
		f.Set(v)
	}
}

// DefaultKeepCurrent keeps the current value unless a next value was already
// proposed.
func (f *Flop[T]) DefaultKeepCurrent() {
	f.mustBe(Combinational, "DefaultKeepCurrent")

	if !f.IsNextSet() && f.IsSet() {
		f.SetDefault(f.Get())
	}
}

// SetIfNotLatching sets the next value unless the current one is kept.
func (f *Flop[T]) SetIfNotLatching(v T) {
	f.mustBe(Combinational, "SetIfNotLatching")

	if !f.keep {
		f.Set(v)
	}
}

// UnsetNext drops any proposal for the next cycle.
func (f *Flop[T]) UnsetNext() {
	f.mustBe(Combinational, "UnsetNext")
	f.clearNext()
	f.keep = false
}

// SetThisCycle publishes the value of this cycle.
func (f *Flop[T]) SetThisCycle(v T) {
	f.mustBe(Buffered, "SetThisCycle")
	f.Set(v)
}

// ThisCycle returns the value published in this cycle.
func (f *Flop[T]) ThisCycle() T {
	f.mustBe(Buffered, "ThisCycle")
	return f.PeekNext()
}

// HasThisCycle returns true if a value was published in this cycle.
func (f *Flop[T]) HasThisCycle() bool {
	f.mustBe(Buffered, "HasThisCycle")
	return f.IsNextSet()
}

// PrevCycle returns the value published in the previous cycle.
func (f *Flop[T]) PrevCycle() T {
	f.mustBe(Buffered, "PrevCycle")
	return f.Get()
}

// HasPrevCycle returns true if a value was published in the previous cycle.
func (f *Flop[T]) HasPrevCycle() bool {
	f.mustBe(Buffered, "HasPrevCycle")
	return f.IsSet()
}

// Commit moves the next value to the current value.
func (f *Flop[T]) Commit() {
	if f.hasCur && !f.wasRead && !f.wasIgnored {
		log.Panicf("flop %s: value not used in previous cycle", f.name)
	}

	f.wasRead = false
	f.wasIgnored = false

	if f.keep {
		f.keep = false
		f.clearNext()

		return
	}

	f.cur = f.next
	f.hasCur = f.hasNext
	f.clearNext()
}

func (f *Flop[T]) clearNext() {
	var zero T
	f.next = zero
	f.hasNext = false
}

func (f *Flop[T]) mustBe(kind FlopKind, op string) {
	if f.kind != kind {
		log.Panicf("flop %s: %s is not allowed on %s flops",
			f.name, op, f.kind)
	}
}

// A Committer is a register that can be committed at a cycle boundary.
type Committer interface {
	Commit()
}

// Registers is a set of registers that commit together.
type Registers []Committer

// Add appends registers to the set.
func (r *Registers) Add(c ...Committer) {
	*r = append(*r, c...)
}

// Commit commits all the registers in the set.
func (r Registers) Commit() {
	for _, c := range r {
		c.Commit()
	}
}
