package kernel

import "github.com/ziyangfu/ostemp-sub000/trap"

type resource struct {
	object
	id      trap.ResourceID
	ceiling uint8
	taken   bool
}

type heldResource struct {
	res    *resource
	thread *trap.Thread
	// priority level before the resource was taken
	level uint8
}

func (k *Kernel) GetResource(id trap.ResourceID) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if int(id) >= len(k.sys.resources) {
		return trap.StatusID
	}
	r := k.sys.resources[id]
	if !r.accessibleBy(k.currentApp()) || r.taken {
		return trap.StatusAccess
	}
	if k.running != nil && len(k.frames) == 0 && k.running.priority > r.ceiling {
		return trap.StatusAccess
	}
	s := k.core.State()
	k.held = append(k.held, heldResource{res: r, thread: k.core.Thread(), level: s.Level()})
	r.taken = true
	if r.ceiling > s.Level() {
		s.SetLevel(r.ceiling)
		k.core.SetState(s)
	}
	return trap.StatusOK
}

// ReleaseResource releases the resource taken last.
func (k *Kernel) ReleaseResource(id trap.ResourceID) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	if int(id) >= len(k.sys.resources) {
		return trap.StatusID
	}
	r := k.sys.resources[id]
	if !r.accessibleBy(k.currentApp()) {
		return trap.StatusAccess
	}
	if len(k.held) == 0 || k.held[len(k.held)-1].res != r {
		return trap.StatusNoFunc
	}
	h := k.held[len(k.held)-1]
	k.held = k.held[:len(k.held)-1]
	r.taken = false
	s := k.core.State()
	s.SetLevel(h.level)
	k.core.SetState(s)
	k.dispatch()
	return trap.StatusOK
}

// releaseAll drops every resource and spinlock t still holds, the way the
// kernel cleans up after a thread that ended without releasing them.
func (k *Kernel) releaseAll(t *trap.Thread) {
	level := -1
	kept := k.held[:0]
	for _, h := range k.held {
		if h.thread != t {
			kept = append(kept, h)
			continue
		}
		h.res.taken = false
		if level < 0 {
			level = int(h.level)
		}
	}
	k.held = kept
	if level >= 0 {
		s := k.core.State()
		s.SetLevel(uint8(level))
		k.core.SetState(s)
	}
	for len(k.spinlocks) > 0 && k.spinlocks[len(k.spinlocks)-1].thread == t {
		k.unlock(k.spinlocks[len(k.spinlocks)-1].lock)
	}
}
