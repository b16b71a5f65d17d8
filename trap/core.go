package trap

import (
	"io"

	"github.com/fatih/color"
)

// Application is the owner of threads and kernel objects.
type Application struct {
	ID      AppID
	Name    string
	Trusted bool
}

// Thread is whatever currently executes on a core: a task, an ISR or a hook.
type Thread struct {
	Name string
	App  *Application
}

// View is the part of a core's context that unprivileged code may look at.
type View interface {
	ID() CoreID
	Privileged() bool
	Thread() *Thread
}

// HAL is the platform's interrupt state access used by the dispatcher.
type HAL interface {
	// Restore loads the caller's masks into the live state while keeping
	// supervisor mode.
	Restore(s IntState)
	// Update writes the live masks back into the caller's saved state,
	// leaving the caller's privilege untouched.
	Update(saved *IntState)
}

// Core is the kernel context of one processor. Only code running on that
// core touches it.
type Core struct {
	id     CoreID
	state  IntState
	thread *Thread
}

func NewCore(id CoreID) *Core {
	return &Core{id: id, state: PrivilegedFlag}
}

func (c *Core) ID() CoreID {
	return c.id
}

func (c *Core) Privileged() bool {
	return c.state.IsEnable(PrivilegedFlag)
}

func (c *Core) Thread() *Thread {
	return c.thread
}

// State returns the live state.
func (c *Core) State() IntState {
	return c.state
}

// SetState replaces the live state.
func (c *Core) SetState(s IntState) {
	c.state = s
}

// Switch makes t the running thread in the given privilege mode.
func (c *Core) Switch(t *Thread, privileged bool) {
	c.thread = t
	c.state.SetVal(PrivilegedFlag, privileged)
}

func (c *Core) Restore(s IntState) {
	c.state = s | PrivilegedFlag
}

func (c *Core) Update(saved *IntState) {
	*saved = (c.state &^ PrivilegedFlag) | (*saved & PrivilegedFlag)
}

// enter is the hardware side of taking a trap: the caller's state is saved,
// the core goes supervisor with everything masked.
func (c *Core) enter() IntState {
	saved := c.state
	c.state = saved | PrivilegedFlag | AllDisabledFlag
	return saved
}

func (c *Core) leave(s IntState) {
	c.state = s
}

func (c *Core) Dump(w io.Writer) {
	name, app := "-", "-"
	if c.thread != nil {
		name = c.thread.Name
		if c.thread.App != nil {
			app = c.thread.App.Name
		}
	}
	color.New(color.FgGreen).Fprintf(w, "CORE%d thread=%s app=%s\n", c.id, name, app)
	c.state.Dump(w)
}
