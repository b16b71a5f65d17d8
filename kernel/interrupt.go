package kernel

import (
	"github.com/ziyangfu/ostemp-sub000/klog"
	"github.com/ziyangfu/ostemp-sub000/trap"
)

type isr struct {
	object
	id       trap.ISRID
	core     int
	priority uint8
	category int
	thread   trap.Thread
}

func (r *isr) line() uint32 {
	return uint32(r.id)
}

func (s *System) isr(id trap.ISRID) *isr {
	if int(id) >= len(s.isrs) {
		return nil
	}
	return s.isrs[id]
}

func (k *Kernel) updateState(f func(s *trap.IntState)) {
	s := k.core.State()
	f(&s)
	k.core.SetState(s)
}

func (k *Kernel) EnableAllInterrupts() {
	k.updateState(func(s *trap.IntState) { s.Unset(trap.AllDisabledFlag) })
}

func (k *Kernel) DisableAllInterrupts() {
	k.updateState(func(s *trap.IntState) { s.Set(trap.AllDisabledFlag) })
}

// SuspendAllInterrupts nests; only the outermost resume lifts it.
func (k *Kernel) SuspendAllInterrupts() {
	k.suspendAll++
	k.updateState(func(s *trap.IntState) { s.Set(trap.AllSuspendedFlag) })
}

func (k *Kernel) ResumeAllInterrupts() {
	if k.suspendAll == 0 {
		return
	}
	k.suspendAll--
	if k.suspendAll == 0 {
		k.updateState(func(s *trap.IntState) { s.Unset(trap.AllSuspendedFlag) })
	}
}

func (k *Kernel) SuspendOSInterrupts() {
	k.suspendOS++
	k.updateState(func(s *trap.IntState) { s.Set(trap.OSSuspendedFlag) })
}

func (k *Kernel) ResumeOSInterrupts() {
	if k.suspendOS == 0 {
		return
	}
	k.suspendOS--
	if k.suspendOS == 0 {
		k.updateState(func(s *trap.IntState) { s.Unset(trap.OSSuspendedFlag) })
	}
}

func (k *Kernel) lookupISR(id trap.ISRID) (*isr, trap.Status) {
	r := k.sys.isr(id)
	if r == nil || r.category != 2 {
		return nil, trap.StatusID
	}
	if !r.accessibleBy(k.currentApp()) {
		return nil, trap.StatusAccess
	}
	return r, trap.StatusOK
}

func (k *Kernel) EnableInterruptSource(id trap.ISRID, clearPending bool) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	r, st := k.lookupISR(id)
	if st != trap.StatusOK {
		return st
	}
	if k.sys.pic.Enabled(r.line()) {
		return trap.StatusNoFunc
	}
	if clearPending {
		k.sys.pic.ClearPending(r.line())
	}
	k.sys.pic.Enable(r.line())
	return trap.StatusOK
}

func (k *Kernel) DisableInterruptSource(id trap.ISRID) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	r, st := k.lookupISR(id)
	if st != trap.StatusOK {
		return st
	}
	if !k.sys.pic.Enabled(r.line()) {
		return trap.StatusNoFunc
	}
	k.sys.pic.Disable(r.line())
	return trap.StatusOK
}

func (k *Kernel) ClearPendingInterrupt(id trap.ISRID) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	r, st := k.lookupISR(id)
	if st != trap.StatusOK {
		return st
	}
	k.sys.pic.ClearPending(r.line())
	return trap.StatusOK
}

// GetISRID returns the category 2 ISR running on this core.
func (k *Kernel) GetISRID() trap.ISRID {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	for i := len(k.frames) - 1; i >= 0; i-- {
		if f := k.frames[i]; f.kind == frameISR {
			if f.isr.category == 2 {
				return f.isr.id
			}
			break
		}
	}
	return trap.InvalidISR
}

// EnterISR takes the interrupt on line id if it is pending, enabled and not
// masked by the current state, and makes the ISR the running thread. It
// reports whether the interrupt was taken.
func (k *Kernel) EnterISR(id trap.ISRID) bool {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	r := k.sys.isr(id)
	if r == nil || r.core != int(k.core.ID()) {
		return false
	}
	p := k.sys.pic
	s := k.core.State()
	if !p.Pending(r.line()) || !p.Enabled(r.line()) || s.Masks(r.priority, r.category == 2) {
		return false
	}
	p.Acknowledge(r.line())
	k.push(frame{kind: frameISR, thread: k.core.Thread(), state: s, isr: r})
	s.SetLevel(r.priority)
	k.core.SetState(s)
	k.switchTo(&r.thread)
	klog.Debugf("core %d: enter isr %s", k.core.ID(), r.name)
	return true
}

// ISREpilogue returns from the innermost ISR to the context it interrupted,
// which may have changed if the ISR made a task ready.
func (k *Kernel) ISREpilogue() {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	cur := k.core.Thread()
	f := k.pop(frameISR)
	k.releaseAll(cur)
	k.sys.pic.EOI(f.isr.line())
	k.core.SetState(f.state)
	k.dispatch()
	k.resume(k.core.State())
}
