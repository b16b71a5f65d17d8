package kernel

import (
	"fmt"

	"github.com/ziyangfu/ostemp-sub000/trap"
)

// Snapshot is the observable state of a system, one line per object. The
// privilege bit of each core is left out: it belongs to the caller, not to
// the kernel.
type Snapshot struct {
	Mode         trap.AppMode `yaml:"mode"`
	Started      bool         `yaml:"started"`
	Cores        []string     `yaml:"cores"`
	Applications []string     `yaml:"applications"`
	Tasks        []string     `yaml:"tasks"`
	Resources    []string     `yaml:"resources,omitempty"`
	Counters     []string     `yaml:"counters,omitempty"`
	Alarms       []string     `yaml:"alarms,omitempty"`
	Tables       []string     `yaml:"schedule_tables,omitempty"`
	Spinlocks    []string     `yaml:"spinlocks,omitempty"`
	Channels     []string     `yaml:"channels,omitempty"`
	Areas        []string     `yaml:"areas,omitempty"`
	PIC          string       `yaml:"pic"`
}

func (s *System) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	irr, isr, imr := s.pic.Registers()
	snap := Snapshot{
		Mode:    s.mode,
		Started: s.started,
		PIC:     fmt.Sprintf("irr=%x isr=%x imr=%x", irr, isr, imr),
	}
	for _, k := range s.cores {
		running := "-"
		if k.running != nil {
			running = k.running.name
		}
		thread := "-"
		if t := k.core.Thread(); t != nil {
			thread = t.Name
		}
		snap.Cores = append(snap.Cores, fmt.Sprintf("core%d active=%v down=%v running=%s thread=%s frames=%d state=%s held=%d locks=%d",
			k.core.ID(), k.active, k.down, running, thread, len(k.frames),
			k.core.State()&^trap.PrivilegedFlag, len(k.held), len(k.spinlocks)))
	}
	for _, a := range s.apps {
		snap.Applications = append(snap.Applications, fmt.Sprintf("%s state=%d", a.Name, a.state))
	}
	for _, t := range s.tasks {
		snap.Tasks = append(snap.Tasks, fmt.Sprintf("%s %s act=%d events=%#x wait=%#x", t.name, t.state, t.act, t.events, t.wait))
	}
	for _, r := range s.resources {
		snap.Resources = append(snap.Resources, fmt.Sprintf("%s taken=%v", r.name, r.taken))
	}
	for _, c := range s.counters {
		snap.Counters = append(snap.Counters, fmt.Sprintf("%s value=%d", c.name, c.value))
	}
	for _, a := range s.alarms {
		snap.Alarms = append(snap.Alarms, fmt.Sprintf("%s armed=%v expiry=%d cycle=%d", a.name, a.armed, a.expiry, a.cycle))
	}
	for _, st := range s.tables {
		next := "-"
		if st.next != nil {
			next = st.next.name
		}
		snap.Tables = append(snap.Tables, fmt.Sprintf("%s status=%d wait=%d pos=%d next=%s", st.name, st.status, st.wait, st.pos, next))
	}
	for _, l := range s.locks {
		snap.Spinlocks = append(snap.Spinlocks, fmt.Sprintf("%s owner=%d", l.name, l.owner.Load()))
	}
	for _, ch := range s.channels {
		snap.Channels = append(snap.Channels, fmt.Sprintf("%s len=%d lost=%v", ch.name, ch.q.Len(), ch.lost.Load()))
	}
	for _, a := range s.areas {
		snap.Areas = append(snap.Areas, fmt.Sprintf("%s % x", a.name, a.mem))
	}
	return snap
}
