package kernel

import (
	"github.com/ziyangfu/ostemp-sub000/klog"
	"github.com/ziyangfu/ostemp-sub000/trap"
)

type task struct {
	object
	id       trap.TaskID
	core     int
	priority uint8
	maxAct   uint32
	act      uint32
	extended bool
	auto     bool

	state  trap.TaskState
	events trap.EventMask
	wait   trap.EventMask
	thread trap.Thread
}

func (s *System) task(id trap.TaskID) *task {
	if int(id) >= len(s.tasks) {
		return nil
	}
	return s.tasks[id]
}

// activate moves t towards ready and records the activation.
func (k *Kernel) activate(t *task) trap.Status {
	if t.act >= t.maxAct {
		return trap.StatusLimit
	}
	t.act++
	if t.state == trap.TaskSuspended {
		t.state = trap.TaskReady
		t.events = 0
	}
	return trap.StatusOK
}

// terminate ends the running instance of t.
func (k *Kernel) terminate(t *task) {
	t.act--
	t.state = trap.TaskSuspended
	if t.act > 0 {
		t.state = trap.TaskReady
		t.events = 0
	}
	if k.running == t {
		k.running = nil
	}
}

// effectivePriority is the running task's priority raised by the ceilings
// of the resources it holds.
func (k *Kernel) effectivePriority() int {
	if k.running == nil {
		return -1
	}
	p := int(k.running.priority)
	for _, h := range k.held {
		if h.thread == &k.running.thread && int(h.res.ceiling) > p {
			p = int(h.res.ceiling)
		}
	}
	return p
}

// dispatch lets the highest priority ready task of this core preempt the
// running one. Nothing is switched while an ISR or hook is active.
func (k *Kernel) dispatch() {
	if len(k.frames) > 0 {
		return
	}
	var best *task
	for _, t := range k.sys.tasks {
		if t.core != int(k.core.ID()) || t.state != trap.TaskReady {
			continue
		}
		if best == nil || t.priority > best.priority {
			best = t
		}
	}
	if best == nil || int(best.priority) <= k.effectivePriority() {
		return
	}
	if k.running != nil {
		k.running.state = trap.TaskReady
	}
	best.state = trap.TaskRunning
	k.running = best
	k.switchTo(&best.thread)
	klog.Debugf("core %d: dispatch %s", k.core.ID(), best.name)
}

func (k *Kernel) holds(t *task) bool {
	for _, h := range k.held {
		if h.thread == &t.thread {
			return true
		}
	}
	return false
}

func (k *Kernel) ActivateTask(id trap.TaskID) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	t := k.sys.task(id)
	if t == nil {
		return trap.StatusID
	}
	if !t.accessibleBy(k.currentApp()) {
		return trap.StatusAccess
	}
	if st := k.activate(t); st != trap.StatusOK {
		return st
	}
	k.dispatch()
	return trap.StatusOK
}

// leaveTask checks that the running task may terminate.
func (k *Kernel) leaveTask() trap.Status {
	if !k.taskLevel() {
		return trap.StatusCallLevel
	}
	if k.holds(k.running) {
		return trap.StatusResource
	}
	if len(k.spinlocks) > 0 {
		return trap.StatusSpinlock
	}
	return trap.StatusOK
}

func (k *Kernel) TerminateTask() trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if st := k.leaveTask(); st != trap.StatusOK {
		return st
	}
	k.terminate(k.running)
	k.switchTo(nil)
	k.dispatch()
	return trap.StatusOK
}

func (k *Kernel) ChainTask(id trap.TaskID) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if st := k.leaveTask(); st != trap.StatusOK {
		return st
	}
	t := k.sys.task(id)
	if t == nil {
		return trap.StatusID
	}
	if !t.accessibleBy(k.currentApp()) {
		return trap.StatusAccess
	}
	cur := k.running
	if t != cur && t.act >= t.maxAct {
		return trap.StatusLimit
	}
	k.terminate(cur)
	k.activate(t)
	k.switchTo(nil)
	k.dispatch()
	return trap.StatusOK
}

func (k *Kernel) Schedule() trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if !k.taskLevel() {
		return trap.StatusCallLevel
	}
	if k.holds(k.running) {
		return trap.StatusResource
	}
	k.dispatch()
	return trap.StatusOK
}

func (k *Kernel) GetTaskID() (trap.TaskID, trap.Status) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if k.running == nil {
		return trap.InvalidTask, trap.StatusOK
	}
	return k.running.id, trap.StatusOK
}

func (k *Kernel) GetTaskState(id trap.TaskID) (trap.TaskState, trap.Status) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	t := k.sys.task(id)
	if t == nil {
		return 0, trap.StatusID
	}
	if !t.accessibleBy(k.currentApp()) {
		return 0, trap.StatusAccess
	}
	return t.state, trap.StatusOK
}

func (k *Kernel) setEvent(t *task, mask trap.EventMask) trap.Status {
	if !t.extended {
		return trap.StatusAccess
	}
	if t.state == trap.TaskSuspended {
		return trap.StatusState
	}
	t.events |= mask
	if t.state == trap.TaskWaiting && t.events&t.wait != 0 {
		t.state = trap.TaskReady
		t.wait = 0
	}
	return trap.StatusOK
}

func (k *Kernel) SetEvent(id trap.TaskID, mask trap.EventMask) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	t := k.sys.task(id)
	if t == nil {
		return trap.StatusID
	}
	if !t.accessibleBy(k.currentApp()) {
		return trap.StatusAccess
	}
	if st := k.setEvent(t, mask); st != trap.StatusOK {
		return st
	}
	k.dispatch()
	return trap.StatusOK
}

func (k *Kernel) ClearEvent(mask trap.EventMask) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if !k.taskLevel() {
		return trap.StatusCallLevel
	}
	if !k.running.extended {
		return trap.StatusAccess
	}
	k.running.events &^= mask
	return trap.StatusOK
}

func (k *Kernel) GetEvent(id trap.TaskID) (trap.EventMask, trap.Status) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	t := k.sys.task(id)
	if t == nil {
		return 0, trap.StatusID
	}
	if !t.extended || !t.accessibleBy(k.currentApp()) {
		return 0, trap.StatusAccess
	}
	if t.state == trap.TaskSuspended {
		return 0, trap.StatusState
	}
	return t.events, trap.StatusOK
}

func (k *Kernel) WaitEvent(mask trap.EventMask) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if !k.taskLevel() {
		return trap.StatusCallLevel
	}
	t := k.running
	if !t.extended {
		return trap.StatusAccess
	}
	if k.holds(t) {
		return trap.StatusResource
	}
	if len(k.spinlocks) > 0 {
		return trap.StatusSpinlock
	}
	if t.events&mask != 0 {
		return trap.StatusOK
	}
	t.state = trap.TaskWaiting
	t.wait = mask
	k.running = nil
	k.switchTo(nil)
	k.dispatch()
	return trap.StatusOK
}

// MissingTerminateTask ends a task whose body returned without
// terminating itself, then resumes whatever runs next.
func (k *Kernel) MissingTerminateTask() {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if t := k.running; t != nil {
		klog.Warnf("core %d: task %s returned without TerminateTask", k.core.ID(), t.name)
		k.releaseAll(&t.thread)
		k.terminate(t)
	}
	k.switchTo(nil)
	k.dispatch()
	k.resume(k.core.State())
}

// resume hands control to the context now current on this core.
func (k *Kernel) resume(s trap.IntState) {
	k.core.SetState(s)
	panic(&trap.Resumed{State: s})
}
