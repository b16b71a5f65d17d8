package trap

// access is the question a gateway function asks the classifier.
type access uint8

const (
	accessRead access = iota
	accessWrite
	// the caller says whether the call crosses a protection boundary
	accessExplicit
	// trap whenever memory protection is on
	accessAlways
	// startup code, before traps can be taken
	accessBoot
)

// Gateway is the caller side of every service on one core. Each call either
// runs the kernel implementation in place or marshals a packet and traps.
type Gateway struct {
	view     View
	cls      *Classifier
	k        Services
	t        Transport
	rep      Reporter
	traced   ClassSet
	crossing func(ChannelID) bool
}

type Option func(*Gateway)

// WithReporter replaces the default LogReporter.
func WithReporter(r Reporter) Option {
	return func(g *Gateway) { g.rep = r }
}

// WithTracing marks service classes as traced.
func WithTracing(classes ClassSet) Option {
	return func(g *Gateway) { g.traced = classes }
}

// WithChannelBoundary tells the gateway which IOC channels connect two
// different applications. Without it every channel is assumed to.
func WithChannelBoundary(crossing func(ChannelID) bool) Option {
	return func(g *Gateway) { g.crossing = crossing }
}

func NewGateway(caps Capabilities, view View, k Services, t Transport, opts ...Option) *Gateway {
	g := &Gateway{
		view:     view,
		k:        k,
		t:        t,
		rep:      LogReporter{},
		crossing: func(ChannelID) bool { return true },
	}
	for _, o := range opts {
		o(g)
	}
	g.cls = NewClassifier(caps, view, g.traced)
	return g
}

func (g *Gateway) Classifier() *Classifier {
	return g.cls
}

func (g *Gateway) needTrap(a access, tag Tag, explicit bool) bool {
	switch a {
	case accessRead:
		return g.cls.ReadTrapRequired(tag.Class())
	case accessWrite:
		return g.cls.WriteTrapRequired()
	case accessExplicit:
		return g.cls.TrapRequired(explicit)
	case accessAlways:
		return g.cls.Capabilities().MemoryProtection
	}
	return false
}

func (g *Gateway) exec(trap bool, c Call) Word {
	if !trap {
		return execute(g.k, c)
	}
	p := Packet{Call: c}
	g.t.Trap(&p)
	return p.Ret
}

func (g *Gateway) call(a access, c Call) Word {
	return g.exec(g.needTrap(a, c.Tag(), false), c)
}

func (g *Gateway) report(tag Tag, st Status, args ...Word) Status {
	return g.rep.Report(tag, st, args...)
}

// withShadow runs the call built by mk with its output parameter pointing at
// dst in place, or at a shadow copy in the gateway's own frame when it
// traps. The shadow is copied back after the trap; the supervisor never
// writes through the caller's pointer.
func withShadow[T any](g *Gateway, a access, explicit bool, dst *T, mk func(*T) Call) Word {
	c := mk(dst)
	if !g.needTrap(a, c.Tag(), explicit) {
		return execute(g.k, c)
	}
	shadow := *dst
	p := Packet{Call: mk(&shadow)}
	g.t.Trap(&p)
	*dst = shadow
	return p.Ret
}

// noReturn returns after the kernel has resumed another context. The
// Resumed unwind stops here on both paths.
func (g *Gateway) noReturn(c Call) {
	if g.needTrap(accessAlways, c.Tag(), false) {
		p := Packet{Call: c}
		g.t.Trap(&p)
		return
	}
	if catchResumed(func() { execute(g.k, c) }) == nil {
		kernelPanic(c.Tag(), "non-returning service returned")
	}
}

func readVia[T Width](g *Gateway, area AreaID, addr uintptr, dst *T) Status {
	tag := TagReadPeripheral8 + widthOffset[T]()
	if dst == nil {
		return g.report(tag, StatusParamPointer, Word(area), Word(addr))
	}
	ret := withShadow(g, accessRead, false, dst, func(o *T) Call {
		return &ReadPeripheral[T]{Area: area, Address: addr, Out: o}
	})
	return g.report(tag, Status(ret), Word(area), Word(addr))
}

func writeVia[T Width](g *Gateway, area AreaID, addr uintptr, v T) Status {
	c := &WritePeripheral[T]{Area: area, Address: addr, Value: v}
	return g.report(c.Tag(), Status(g.call(accessWrite, c)), Word(area), Word(addr), Word(v))
}

func modifyVia[T Width](g *Gateway, area AreaID, addr uintptr, clear, set T) Status {
	c := &ModifyPeripheral[T]{Area: area, Address: addr, Clear: clear, Set: set}
	return g.report(c.Tag(), Status(g.call(accessWrite, c)), Word(area), Word(addr), Word(clear), Word(set))
}
