package kernel

import (
	"github.com/ziyangfu/ostemp-sub000/klog"
	"github.com/ziyangfu/ostemp-sub000/trap"
)

type eventSetting struct {
	task *task
	mask trap.EventMask
}

type expiryPoint struct {
	offset   trap.Tick
	activate []*task
	events   []eventSetting
}

type scheduleTable struct {
	object
	id        trap.ScheduleTableID
	counter   *counter
	duration  trap.Tick
	repeating bool
	explicit  bool
	points    []expiryPoint

	status trap.ScheduleTableStatus
	// ticks left before offset 0 is reached
	wait uint64
	pos  trap.Tick
	next *scheduleTable
}

func (st *scheduleTable) running() bool {
	return st.status == trap.ScheduleTableRunning || st.status == trap.ScheduleTableRunningAndSynchronous
}

func (s *System) table(id trap.ScheduleTableID) *scheduleTable {
	if int(id) >= len(s.tables) {
		return nil
	}
	return s.tables[id]
}

func (k *Kernel) lookupTable(id trap.ScheduleTableID) (*scheduleTable, trap.Status) {
	st := k.sys.table(id)
	if st == nil {
		return nil, trap.StatusID
	}
	if !st.accessibleBy(k.currentApp()) {
		return nil, trap.StatusAccess
	}
	return st, trap.StatusOK
}

func (k *Kernel) start(st *scheduleTable, wait uint64) {
	st.status = trap.ScheduleTableRunning
	st.wait = wait
	st.pos = 0
}

func (k *Kernel) StartScheduleTableRel(id trap.ScheduleTableID, offset trap.Tick) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	st, s := k.lookupTable(id)
	if s != trap.StatusOK {
		return s
	}
	if offset == 0 || offset > st.counter.base.MaxAllowedValue-st.firstOffset() {
		return trap.StatusValue
	}
	if st.status != trap.ScheduleTableStopped {
		return trap.StatusState
	}
	k.start(st, uint64(offset))
	return trap.StatusOK
}

func (k *Kernel) StartScheduleTableAbs(id trap.ScheduleTableID, start trap.Tick) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	st, s := k.lookupTable(id)
	if s != trap.StatusOK {
		return s
	}
	c := st.counter
	if start > c.base.MaxAllowedValue {
		return trap.StatusValue
	}
	if st.status != trap.ScheduleTableStopped {
		return trap.StatusState
	}
	wait := uint64(c.diff(start, c.value))
	if wait == 0 {
		wait = c.modulus()
	}
	k.start(st, wait)
	return trap.StatusOK
}

func (st *scheduleTable) firstOffset() trap.Tick {
	if len(st.points) == 0 {
		return 0
	}
	first := st.points[0].offset
	for _, p := range st.points {
		if p.offset < first {
			first = p.offset
		}
	}
	return first
}

func (k *Kernel) StopScheduleTable(id trap.ScheduleTableID) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	st, s := k.lookupTable(id)
	if s != trap.StatusOK {
		return s
	}
	if st.status == trap.ScheduleTableStopped {
		return trap.StatusNoFunc
	}
	st.status = trap.ScheduleTableStopped
	if st.next != nil {
		st.next.status = trap.ScheduleTableStopped
		st.next = nil
	}
	return trap.StatusOK
}

// NextScheduleTable queues to behind from. A table queued before is dropped.
func (k *Kernel) NextScheduleTable(from, to trap.ScheduleTableID) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	f, s := k.lookupTable(from)
	if s != trap.StatusOK {
		return s
	}
	t, s := k.lookupTable(to)
	if s != trap.StatusOK {
		return s
	}
	if f.counter != t.counter {
		return trap.StatusID
	}
	if f.status == trap.ScheduleTableStopped || f.status == trap.ScheduleTableNext {
		return trap.StatusNoFunc
	}
	if t.status != trap.ScheduleTableStopped {
		return trap.StatusState
	}
	if f.next != nil {
		f.next.status = trap.ScheduleTableStopped
	}
	f.next = t
	t.status = trap.ScheduleTableNext
	return trap.StatusOK
}

// SyncScheduleTable moves an explicitly synchronized table to position
// value.
func (k *Kernel) SyncScheduleTable(id trap.ScheduleTableID, value trap.Tick) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	st, s := k.lookupTable(id)
	if s != trap.StatusOK {
		return s
	}
	if !st.explicit {
		return trap.StatusID
	}
	if value >= st.duration {
		return trap.StatusValue
	}
	if !st.running() || st.wait > 0 {
		return trap.StatusState
	}
	st.pos = value
	st.status = trap.ScheduleTableRunningAndSynchronous
	return trap.StatusOK
}

func (k *Kernel) SetScheduleTableAsync(id trap.ScheduleTableID) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	st, s := k.lookupTable(id)
	if s != trap.StatusOK {
		return s
	}
	if !st.explicit {
		return trap.StatusID
	}
	if st.status == trap.ScheduleTableRunningAndSynchronous {
		st.status = trap.ScheduleTableRunning
	}
	return trap.StatusOK
}

func (k *Kernel) GetScheduleTableStatus(id trap.ScheduleTableID) (trap.ScheduleTableStatus, trap.Status) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	st, s := k.lookupTable(id)
	if s != trap.StatusOK {
		return 0, s
	}
	return st.status, trap.StatusOK
}

// advance moves a running table one tick along.
func (k *Kernel) advance(st *scheduleTable) {
	if !st.running() {
		return
	}
	if st.wait > 0 {
		st.wait--
		if st.wait > 0 {
			return
		}
	} else {
		st.pos++
	}
	k.expire(st)
	if st.pos < st.duration {
		return
	}
	switch {
	case st.next != nil:
		n := st.next
		st.next = nil
		st.status = trap.ScheduleTableStopped
		k.start(n, 0)
		k.expire(n)
	case st.repeating:
		st.pos = 0
		k.expire(st)
	default:
		st.status = trap.ScheduleTableStopped
	}
}

func (k *Kernel) expire(st *scheduleTable) {
	for _, p := range st.points {
		if p.offset != st.pos {
			continue
		}
		for _, t := range p.activate {
			if s := k.activate(t); s != trap.StatusOK {
				klog.Warnf("schedule table %s: activate %s: %s", st.name, t.name, s)
			}
		}
		for _, e := range p.events {
			if s := k.setEvent(e.task, e.mask); s != trap.StatusOK {
				klog.Warnf("schedule table %s: set event on %s: %s", st.name, e.task.name, s)
			}
		}
	}
}
