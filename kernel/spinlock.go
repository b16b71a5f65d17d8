package kernel

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/ziyangfu/ostemp-sub000/trap"
)

type lockMethod uint8

const (
	lockNothing lockMethod = iota
	lockAllInterrupts
	lockOSInterrupts
)

func parseLockMethod(s string) (lockMethod, error) {
	switch s {
	case "", "nothing":
		return lockNothing, nil
	case "all_interrupts":
		return lockAllInterrupts, nil
	case "os_interrupts":
		return lockOSInterrupts, nil
	}
	return 0, fmt.Errorf("unknown lock method %q", s)
}

type spinlock struct {
	object
	id     trap.SpinlockID
	method lockMethod
	// 0 when free, else the owning core id plus one
	owner atomic.Uint32
}

type heldSpinlock struct {
	lock   *spinlock
	thread *trap.Thread
}

func (k *Kernel) lookupSpinlock(id trap.SpinlockID) (*spinlock, trap.Status) {
	if int(id) >= len(k.sys.locks) {
		return nil, trap.StatusID
	}
	l := k.sys.locks[id]
	if !l.accessibleBy(k.currentApp()) {
		return nil, trap.StatusAccess
	}
	return l, trap.StatusOK
}

func (k *Kernel) tag() uint32 {
	return uint32(k.core.ID()) + 1
}

// locked masks interrupts according to the lock method and records l.
func (k *Kernel) locked(l *spinlock) {
	switch l.method {
	case lockAllInterrupts:
		k.SuspendAllInterrupts()
	case lockOSInterrupts:
		k.SuspendOSInterrupts()
	}
	k.spinlocks = append(k.spinlocks, heldSpinlock{lock: l, thread: k.core.Thread()})
}

// GetSpinlock busy waits until l is free. Taking a lock this core already
// holds would never finish and is refused.
func (k *Kernel) GetSpinlock(id trap.SpinlockID) trap.Status {
	l, st := k.lookupSpinlock(id)
	if st != trap.StatusOK {
		return st
	}
	if l.owner.Load() == k.tag() {
		return trap.StatusInterferenceDeadlock
	}
	for !l.owner.CompareAndSwap(0, k.tag()) {
		runtime.Gosched()
	}
	k.locked(l)
	return trap.StatusOK
}

func (k *Kernel) TryToGetSpinlock(id trap.SpinlockID) (trap.TryToGetSpinlockType, trap.Status) {
	l, st := k.lookupSpinlock(id)
	if st != trap.StatusOK {
		return trap.TryGetSpinlockNoSuccess, st
	}
	if l.owner.Load() == k.tag() {
		return trap.TryGetSpinlockNoSuccess, trap.StatusInterferenceDeadlock
	}
	if !l.owner.CompareAndSwap(0, k.tag()) {
		return trap.TryGetSpinlockNoSuccess, trap.StatusOK
	}
	k.locked(l)
	return trap.TryGetSpinlockSuccess, trap.StatusOK
}

// ReleaseSpinlock releases the lock this core took last.
func (k *Kernel) ReleaseSpinlock(id trap.SpinlockID) trap.Status {
	l, st := k.lookupSpinlock(id)
	if st != trap.StatusOK {
		return st
	}
	if l.owner.Load() != k.tag() {
		return trap.StatusState
	}
	if k.spinlocks[len(k.spinlocks)-1].lock != l {
		return trap.StatusNoFunc
	}
	k.unlock(l)
	return trap.StatusOK
}

// unlock releases the innermost lock, which must be l.
func (k *Kernel) unlock(l *spinlock) {
	k.spinlocks = k.spinlocks[:len(k.spinlocks)-1]
	l.owner.Store(0)
	switch l.method {
	case lockAllInterrupts:
		k.ResumeAllInterrupts()
	case lockOSInterrupts:
		k.ResumeOSInterrupts()
	}
}
