package kernel

import (
	"github.com/ziyangfu/ostemp-sub000/klog"
	"github.com/ziyangfu/ostemp-sub000/trap"
)

// GetApplicationID returns the application the running thread is
// configured for. Inside a trusted function that is still the caller's.
func (k *Kernel) GetApplicationID() trap.AppID {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	t := k.core.Thread()
	for i := len(k.frames) - 1; i >= 0 && k.frames[i].kind == frameService; i-- {
		t = k.frames[i].thread
	}
	if t == nil || t.App == nil {
		return trap.InvalidApp
	}
	return t.App.ID
}

// GetCurrentApplicationID returns the application whose rights apply now.
func (k *Kernel) GetCurrentApplicationID() trap.AppID {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if a := k.currentApp(); a != nil {
		return a.ID
	}
	return trap.InvalidApp
}

func (k *Kernel) GetCoreID() trap.CoreID {
	return k.core.ID()
}

func (k *Kernel) GetNumberOfActivatedCores() uint32 {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	n := uint32(0)
	for _, c := range k.sys.cores {
		if c.active && !c.nonAutosar {
			n++
		}
	}
	return n
}

func (k *Kernel) GetActiveApplicationMode() trap.AppMode {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	return k.sys.mode
}

// objectOf finds a kernel object by type and ID.
func (s *System) objectOf(typ trap.ObjectType, id uint32) *object {
	i := int(id)
	switch typ {
	case trap.ObjectTask:
		if i < len(s.tasks) {
			return &s.tasks[i].object
		}
	case trap.ObjectISR:
		if i < len(s.isrs) {
			return &s.isrs[i].object
		}
	case trap.ObjectAlarm:
		if i < len(s.alarms) {
			return &s.alarms[i].object
		}
	case trap.ObjectResource:
		if i < len(s.resources) {
			return &s.resources[i].object
		}
	case trap.ObjectCounter:
		if i < len(s.counters) {
			return &s.counters[i].object
		}
	case trap.ObjectScheduleTable:
		if i < len(s.tables) {
			return &s.tables[i].object
		}
	}
	return nil
}

func (k *Kernel) CheckObjectOwnership(typ trap.ObjectType, id uint32) trap.AppID {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	o := k.sys.objectOf(typ, id)
	if o == nil {
		return trap.InvalidApp
	}
	return o.ownerID()
}

func (k *Kernel) CheckObjectAccess(id trap.AppID, typ trap.ObjectType, obj uint32) trap.ObjectAccess {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	o := k.sys.objectOf(typ, obj)
	if o == nil || int(id) >= len(k.sys.apps) {
		return trap.NoAccess
	}
	if o.accessibleBy(k.sys.apps[id]) {
		return trap.Access
	}
	return trap.NoAccess
}

// memoryAccess answers for [addr, addr+size) from the regions of a.
func memoryAccess(a *app, addr trap.MemoryAddress, size trap.MemorySize) trap.AccessType {
	if a == nil {
		return 0
	}
	if a.Trusted {
		return trap.AccessRead | trap.AccessWrite | trap.AccessExecute
	}
	lo, hi := uint64(addr), uint64(addr)+uint64(size)
	for _, r := range a.regions {
		if lo >= r.base && hi <= r.base+r.size {
			return r.access
		}
	}
	return 0
}

func (k *Kernel) CheckISRMemoryAccess(id trap.ISRID, addr trap.MemoryAddress, size trap.MemorySize) trap.AccessType {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	r := k.sys.isr(id)
	if r == nil {
		return 0
	}
	return memoryAccess(r.owner, addr, size)
}

func (k *Kernel) CheckTaskMemoryAccess(id trap.TaskID, addr trap.MemoryAddress, size trap.MemorySize) trap.AccessType {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	t := k.sys.task(id)
	if t == nil {
		return 0
	}
	return memoryAccess(t.owner, addr, size)
}

// TerminateApplication kills every task, alarm and schedule table of an
// application. Untrusted applications may only terminate themselves.
func (k *Kernel) TerminateApplication(id trap.AppID, restart trap.RestartOption) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if int(id) >= len(k.sys.apps) || restart > trap.Restart {
		return trap.StatusValue
	}
	a := k.sys.apps[id]
	cur := k.currentApp()
	if cur != nil && !cur.Trusted && cur != a {
		return trap.StatusAccess
	}
	if a.state == trap.AppTerminated || (a.state == trap.AppRestarting && cur != a) {
		return trap.StatusState
	}
	if restart == trap.Restart && a.restart == nil {
		return trap.StatusValue
	}
	klog.Infof("terminate application %s", a.Name)
	for _, t := range k.sys.tasks {
		if t.owner != a {
			continue
		}
		if c := k.sys.cores[t.core]; c.running == t {
			c.running = nil
			if c == k {
				k.releaseAll(&t.thread)
				k.switchTo(nil)
			}
		}
		t.state = trap.TaskSuspended
		t.act = 0
		t.events = 0
	}
	for _, al := range k.sys.alarms {
		if al.owner == a {
			al.armed = false
		}
	}
	for _, st := range k.sys.tables {
		if st.owner == a {
			st.status = trap.ScheduleTableStopped
			st.next = nil
		}
	}
	for _, r := range k.sys.isrs {
		if r.owner == a {
			k.sys.pic.Disable(r.line())
		}
	}
	a.state = trap.AppTerminated
	if restart == trap.Restart {
		a.state = trap.AppRestarting
		k.activate(a.restart)
	}
	k.dispatch()
	return trap.StatusOK
}

// AllowAccess ends the restart of the calling application.
func (k *Kernel) AllowAccess() trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	a := k.currentApp()
	if a == nil || a.state != trap.AppRestarting {
		return trap.StatusState
	}
	a.state = trap.AppAccessible
	return trap.StatusOK
}

func (k *Kernel) GetApplicationState(id trap.AppID) (trap.AppState, trap.Status) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if int(id) >= len(k.sys.apps) {
		return 0, trap.StatusID
	}
	return k.sys.apps[id].state, trap.StatusOK
}
