package trap

// Capabilities describes what the platform lets unprivileged code find out
// about itself without a trap.
type Capabilities struct {
	MemoryProtection bool `yaml:"memory_protection"`
	// the privileged-mode flag can be read from user mode
	PrivilegedReadable bool `yaml:"privileged_readable"`
	// the current thread pointer can be read from user mode
	ThreadReadable bool `yaml:"thread_readable"`
	// the core id can be read from user mode
	CoreIDReadable bool `yaml:"core_id_readable"`
}

// Classifier decides whether a call has to trap. Every answer is derived
// from the capabilities and the live view of the calling core; when the
// platform cannot prove a trap is unnecessary the answer is yes.
type Classifier struct {
	caps   Capabilities
	view   View
	traced ClassSet
}

func NewClassifier(caps Capabilities, view View, traced ClassSet) *Classifier {
	return &Classifier{caps: caps, view: view, traced: traced}
}

func (c *Classifier) Capabilities() Capabilities {
	return c.caps
}

// WriteTrapRequired answers for services that modify kernel state.
func (c *Classifier) WriteTrapRequired() bool {
	if !c.caps.MemoryProtection {
		return false
	}
	if c.caps.PrivilegedReadable {
		return !c.view.Privileged()
	}
	if c.caps.ThreadReadable {
		t := c.view.Thread()
		if t == nil || t.App == nil {
			return true
		}
		return !t.App.Trusted
	}
	return true
}

// ReadTrapRequired answers for services that only read kernel state. A
// traced class needs the same protected state as the write path.
func (c *Classifier) ReadTrapRequired(class Class) bool {
	if !c.caps.MemoryProtection {
		return false
	}
	if c.traced.Has(class) {
		return c.WriteTrapRequired()
	}
	if c.caps.ThreadReadable && c.caps.CoreIDReadable {
		return false
	}
	return c.WriteTrapRequired()
}

// TrapRequired answers for services whose caller knows whether the call
// crosses a protection boundary. explicit is that knowledge.
func (c *Classifier) TrapRequired(explicit bool) bool {
	if !c.caps.MemoryProtection {
		return false
	}
	if c.caps.ThreadReadable {
		if c.WriteTrapRequired() {
			return explicit
		}
		return false
	}
	if c.caps.PrivilegedReadable {
		return !c.view.Privileged()
	}
	return true
}
