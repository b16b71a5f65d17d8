package trap

import "sync/atomic"

// Transport performs the privileged transition. Trap returns once the
// packet has been dispatched and its return slot filled.
type Transport interface {
	Trap(p *Packet)
}

// SoftwareTrap is a Transport for a Core modelled in memory: it saves the
// caller's state, runs the dispatcher in supervisor mode and resumes the
// caller with the state the dispatcher left in the saved copy.
type SoftwareTrap struct {
	core  *Core
	d     *Dispatcher
	traps atomic.Uint64
}

func NewSoftwareTrap(core *Core, d *Dispatcher) *SoftwareTrap {
	return &SoftwareTrap{core: core, d: d}
}

func (t *SoftwareTrap) Trap(p *Packet) {
	t.traps.Add(1)
	saved := t.core.enter()
	if r := catchResumed(func() { t.d.Enter(p, &saved) }); r != nil {
		// the context resumed runs in the caller's mode
		saved = r.State&^PrivilegedFlag | saved&PrivilegedFlag
	}
	t.core.leave(saved)
}

// Traps returns how many traps have been taken.
func (t *SoftwareTrap) Traps() uint64 {
	return t.traps.Load()
}
