package kernel

import (
	"github.com/ziyangfu/ostemp-sub000/klog"
	"github.com/ziyangfu/ostemp-sub000/trap"
)

func (k *Kernel) startCore(id trap.CoreID, nonAutosar bool) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if int(id) >= len(k.sys.cores) {
		return trap.StatusID
	}
	if k.sys.started {
		return trap.StatusAccess
	}
	c := k.sys.cores[id]
	if c.active {
		return trap.StatusState
	}
	c.active = true
	c.nonAutosar = nonAutosar
	klog.Infof("core %d started", id)
	return trap.StatusOK
}

// StartCore marks a core as running the OS. It is only allowed before
// StartOS.
func (k *Kernel) StartCore(id trap.CoreID) trap.Status {
	return k.startCore(id, false)
}

func (k *Kernel) StartNonAutosarCore(id trap.CoreID) trap.Status {
	return k.startCore(id, true)
}

// StartOS starts the OS on this core in the given mode: autostart tasks and
// alarms of the core are activated and the first task is dispatched.
func (k *Kernel) StartOS(mode trap.AppMode) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	k.sys.mode = mode
	k.sys.started = true
	k.active = true
	k.down = false
	for _, t := range k.sys.tasks {
		if t.auto && t.core == int(k.core.ID()) && t.act == 0 {
			k.activate(t)
		}
	}
	if k.core.ID() == 0 {
		for _, a := range k.sys.alarms {
			if a.autostart != nil && !a.armed {
				k.arm(a, a.autostart.start, a.autostart.cycle)
			}
		}
	}
	klog.Infof("core %d: OS started in mode %d", k.core.ID(), mode)
	k.dispatch()
}

func (k *Kernel) shutdown(err trap.Status) {
	if k.down {
		return
	}
	k.down = true
	k.active = false
	klog.Warnf("core %d: shutdown %s", k.core.ID(), err)
	if h := k.sys.ShutdownHook; h != nil {
		h(k, err)
	}
}

func (k *Kernel) ShutdownOS(err trap.Status) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	k.shutdown(err)
}

func (k *Kernel) ShutdownAllCores(err trap.Status) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	for _, c := range k.sys.cores {
		c.shutdown(err)
	}
}

// Down reports whether this core has shut down.
func (k *Kernel) Down() bool {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	return k.down
}

// CallTrustedFunction runs a trusted function in the context of its own
// application. Interrupt and lock state the body leaves behind reaches the
// caller.
func (k *Kernel) CallTrustedFunction(id trap.TrustedFunctionID, arg trap.Word) trap.Status {
	k.sys.mu.Lock()
	if int(id) >= len(k.sys.trusted) || k.sys.trusted[id].body == nil {
		k.sys.mu.Unlock()
		return trap.StatusServiceID
	}
	f := k.sys.trusted[id]
	if f.owner.state != trap.AppAccessible {
		k.sys.mu.Unlock()
		return trap.StatusAccess
	}
	depth := len(k.frames)
	k.push(frame{kind: frameService, thread: k.core.Thread()})
	k.switchTo(&trap.Thread{Name: f.name, App: &f.owner.Application})
	k.sys.mu.Unlock()

	st := f.body(k, arg)

	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if len(k.frames) > depth {
		k.pop(frameService)
	}
	return st
}

// ServiceReturn leaves a trusted function body early and resumes its
// caller.
func (k *Kernel) ServiceReturn() {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	k.pop(frameService)
	k.resume(k.core.State())
}

// HookReturn leaves the hook running on this core.
func (k *Kernel) HookReturn() {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	f := k.pop(frameHook)
	k.resume(f.state)
}
