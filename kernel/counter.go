package kernel

import (
	"github.com/ziyangfu/ostemp-sub000/klog"
	"github.com/ziyangfu/ostemp-sub000/trap"
)

type counter struct {
	object
	id    trap.CounterID
	base  trap.AlarmBase
	value trap.Tick
}

func (c *counter) modulus() uint64 {
	return uint64(c.base.MaxAllowedValue) + 1
}

func (c *counter) add(v, d trap.Tick) trap.Tick {
	return trap.Tick((uint64(v) + uint64(d)) % c.modulus())
}

// diff is the number of ticks from then to now.
func (c *counter) diff(now, then trap.Tick) trap.Tick {
	return trap.Tick((uint64(now) + c.modulus() - uint64(then)) % c.modulus())
}

// validCycle checks the cycle of an alarm, 0 meaning single shot.
func (c *counter) validCycle(cycle trap.Tick) bool {
	return cycle == 0 || (cycle >= c.base.MinCycle && cycle <= c.base.MaxAllowedValue)
}

type actionKind uint8

const (
	actionActivate actionKind = iota
	actionSetEvent
	actionIncrement
)

type alarmAction struct {
	kind    actionKind
	task    *task
	mask    trap.EventMask
	counter *counter
}

type alarmStart struct {
	start, cycle trap.Tick
}

type alarm struct {
	object
	id        trap.AlarmID
	counter   *counter
	action    alarmAction
	autostart *alarmStart

	armed  bool
	expiry trap.Tick
	cycle  trap.Tick
}

func (s *System) alarm(id trap.AlarmID) *alarm {
	if int(id) >= len(s.alarms) {
		return nil
	}
	return s.alarms[id]
}

func (s *System) counter(id trap.CounterID) *counter {
	if int(id) >= len(s.counters) {
		return nil
	}
	return s.counters[id]
}

func (k *Kernel) GetAlarmBase(id trap.AlarmID) (trap.AlarmBase, trap.Status) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	a := k.sys.alarm(id)
	if a == nil {
		return trap.AlarmBase{}, trap.StatusID
	}
	if !a.accessibleBy(k.currentApp()) {
		return trap.AlarmBase{}, trap.StatusAccess
	}
	return a.counter.base, trap.StatusOK
}

// GetAlarm returns the ticks left before the alarm expires.
func (k *Kernel) GetAlarm(id trap.AlarmID) (trap.Tick, trap.Status) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	a := k.sys.alarm(id)
	if a == nil {
		return 0, trap.StatusID
	}
	if !a.accessibleBy(k.currentApp()) {
		return 0, trap.StatusAccess
	}
	if !a.armed {
		return 0, trap.StatusNoFunc
	}
	return a.counter.diff(a.expiry, a.counter.value), trap.StatusOK
}

func (k *Kernel) arm(a *alarm, expiry, cycle trap.Tick) {
	a.armed = true
	a.expiry = expiry
	a.cycle = cycle
}

func (k *Kernel) SetRelAlarm(id trap.AlarmID, increment, cycle trap.Tick) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	a := k.sys.alarm(id)
	if a == nil {
		return trap.StatusID
	}
	if !a.accessibleBy(k.currentApp()) {
		return trap.StatusAccess
	}
	if a.armed {
		return trap.StatusState
	}
	c := a.counter
	if increment == 0 || increment > c.base.MaxAllowedValue || !c.validCycle(cycle) {
		return trap.StatusValue
	}
	k.arm(a, c.add(c.value, increment), cycle)
	return trap.StatusOK
}

func (k *Kernel) SetAbsAlarm(id trap.AlarmID, start, cycle trap.Tick) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	a := k.sys.alarm(id)
	if a == nil {
		return trap.StatusID
	}
	if !a.accessibleBy(k.currentApp()) {
		return trap.StatusAccess
	}
	if a.armed {
		return trap.StatusState
	}
	if start > a.counter.base.MaxAllowedValue || !a.counter.validCycle(cycle) {
		return trap.StatusValue
	}
	k.arm(a, start, cycle)
	return trap.StatusOK
}

func (k *Kernel) CancelAlarm(id trap.AlarmID) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	a := k.sys.alarm(id)
	if a == nil {
		return trap.StatusID
	}
	if !a.accessibleBy(k.currentApp()) {
		return trap.StatusAccess
	}
	if !a.armed {
		return trap.StatusNoFunc
	}
	a.armed = false
	return trap.StatusOK
}

func (k *Kernel) IncrementCounter(id trap.CounterID) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	c := k.sys.counter(id)
	if c == nil {
		return trap.StatusID
	}
	if !c.accessibleBy(k.currentApp()) {
		return trap.StatusAccess
	}
	k.tick(c)
	k.dispatch()
	return trap.StatusOK
}

// tick advances c by one and runs everything that expires on it.
func (k *Kernel) tick(c *counter) {
	c.value = c.add(c.value, 1)
	for _, a := range k.sys.alarms {
		if a.counter != c || !a.armed || a.expiry != c.value {
			continue
		}
		if a.cycle == 0 {
			a.armed = false
		} else {
			a.expiry = c.add(a.expiry, a.cycle)
		}
		k.fire(a)
	}
	// a table started by its predecessor on this tick waits for the next one
	var due []*scheduleTable
	for _, st := range k.sys.tables {
		if st.counter == c && st.running() {
			due = append(due, st)
		}
	}
	for _, st := range due {
		k.advance(st)
	}
}

func (k *Kernel) fire(a *alarm) {
	var st trap.Status
	switch a.action.kind {
	case actionActivate:
		st = k.activate(a.action.task)
	case actionSetEvent:
		st = k.setEvent(a.action.task, a.action.mask)
	case actionIncrement:
		k.tick(a.action.counter)
	}
	if st != trap.StatusOK {
		klog.Warnf("alarm %s: %s", a.name, st)
	}
}

func (k *Kernel) GetCounterValue(id trap.CounterID) (trap.Tick, trap.Status) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	c := k.sys.counter(id)
	if c == nil {
		return 0, trap.StatusID
	}
	if !c.accessibleBy(k.currentApp()) {
		return 0, trap.StatusAccess
	}
	return c.value, trap.StatusOK
}

// GetElapsedValue returns the current value and the ticks since previous.
func (k *Kernel) GetElapsedValue(id trap.CounterID, previous trap.Tick) (trap.Tick, trap.Tick, trap.Status) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	c := k.sys.counter(id)
	if c == nil {
		return 0, 0, trap.StatusID
	}
	if !c.accessibleBy(k.currentApp()) {
		return 0, 0, trap.StatusAccess
	}
	if previous > c.base.MaxAllowedValue {
		return 0, 0, trap.StatusValue
	}
	return c.value, c.diff(c.value, previous), trap.StatusOK
}
