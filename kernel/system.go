// Package kernel is an in-memory OS kernel behind the trap gateway. It
// implements every service of trap.Services for each configured core and
// wires a Gateway, Dispatcher and SoftwareTrap around it.
package kernel

import (
	"fmt"
	"sync"

	"github.com/ziyangfu/ostemp-sub000/ioq"
	"github.com/ziyangfu/ostemp-sub000/klog"
	"github.com/ziyangfu/ostemp-sub000/trap"
)

// object is the ownership record shared by every kernel object.
type object struct {
	name   string
	owner  *app
	access uint64 // bit per application ID
}

// accessibleBy reports whether code of application a may use the object.
// A nil application is the OS itself.
func (o *object) accessibleBy(a *app) bool {
	if a == nil {
		return true
	}
	if o.owner != nil && o.owner.state != trap.AppAccessible && o.owner != a {
		return false
	}
	return a.Trusted || o.owner == a || o.access&(1<<a.ID) != 0
}

func (o *object) ownerID() trap.AppID {
	if o.owner == nil {
		return trap.InvalidApp
	}
	return o.owner.ID
}

type region struct {
	base, size uint64
	access     trap.AccessType
}

type app struct {
	trap.Application
	state   trap.AppState
	restart *task
	regions []region
}

// TrustedFunction is the body of a trusted function. It runs on the calling
// core in the context of the function's application.
type TrustedFunction func(k *Kernel, arg trap.Word) trap.Status

type trustedFunction struct {
	name  string
	owner *app
	body  TrustedFunction
}

// System is the kernel state shared by all cores. Everything except the
// IOC queues and spinlock words is guarded by mu.
type System struct {
	mu  sync.Mutex
	cfg *Config

	caps   trap.Capabilities
	traced trap.ClassSet

	mode    trap.AppMode
	started bool
	pic     *PIC

	apps      []*app
	tasks     []*task
	isrs      []*isr
	resources []*resource
	counters  []*counter
	alarms    []*alarm
	tables    []*scheduleTable
	locks     []*spinlock
	channels  []*channel
	areas     []*area
	trusted   []*trustedFunction

	cores []*Kernel

	// ErrorHook, when set, runs as a hook on the calling core for every
	// service that fails.
	ErrorHook func(k *Kernel, tag trap.Tag, st trap.Status)
	// ShutdownHook runs when a core shuts down.
	ShutdownHook func(k *Kernel, err trap.Status)
}

// New builds a system from a checked configuration. Extra gateway options
// are applied to every core's gateway.
func New(cfg *Config, opts ...trap.Option) (*System, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	ix, err := cfg.indexes()
	if err != nil {
		return nil, err
	}
	traced, _ := cfg.TracedClasses()
	s := &System{
		cfg:    cfg,
		caps:   cfg.Platform.Capabilities,
		traced: traced,
		pic:    NewPIC(),
	}
	b := builder{s: s, ix: ix}
	b.apps()
	b.tasks()
	b.isrs()
	b.resources()
	b.counters()
	b.alarms()
	b.tables()
	b.spinlocks()
	b.channels()
	b.areas()
	b.trustedFunctions()
	if b.err != nil {
		return nil, b.err
	}
	for i := 0; i < cfg.Cores; i++ {
		s.cores = append(s.cores, newKernel(s, trap.CoreID(i), opts))
	}
	return s, nil
}

// Core returns the kernel of core id.
func (s *System) Core(id trap.CoreID) *Kernel {
	return s.cores[id]
}

func (s *System) Cores() []*Kernel {
	return s.cores
}

func (s *System) PIC() *PIC {
	return s.pic
}

// Bind attaches a body to the trusted function called name.
func (s *System) Bind(name string, body TrustedFunction) error {
	for _, f := range s.trusted {
		if f.name == name {
			f.body = body
			return nil
		}
	}
	return fmt.Errorf("no trusted function %q", name)
}

// builder resolves the name references of a Config.
type builder struct {
	s   *System
	ix  *indexes
	err error
}

func (b *builder) fail(format string, args ...interface{}) {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
}

func (b *builder) app(kind, obj, name string) *app {
	i, err := b.ix.apps.lookup("application", name, true)
	if err != nil {
		b.fail("%s %q: %v", kind, obj, err)
		return nil
	}
	if i < 0 {
		return nil
	}
	return b.s.apps[i]
}

func (b *builder) object(kind, name, owner string, access []string) object {
	o := object{name: name, owner: b.app(kind, name, owner)}
	for _, n := range access {
		if a := b.app(kind, name, n); a != nil {
			o.access |= 1 << a.ID
		}
	}
	return o
}

func (b *builder) task(kind, obj, name string) *task {
	i, err := b.ix.tasks.lookup("task", name, false)
	if err != nil {
		b.fail("%s %q: %v", kind, obj, err)
		return nil
	}
	return b.s.tasks[i]
}

func (b *builder) counter(kind, obj, name string) *counter {
	i, err := b.ix.counters.lookup("counter", name, false)
	if err != nil {
		b.fail("%s %q: %v", kind, obj, err)
		return nil
	}
	return b.s.counters[i]
}

func (b *builder) apps() {
	if len(b.s.cfg.Applications) > 64 {
		b.fail("at most 64 applications")
		return
	}
	for i, c := range b.s.cfg.Applications {
		a := &app{Application: trap.Application{ID: trap.AppID(i), Name: c.Name, Trusted: c.Trusted}}
		for _, r := range c.Regions {
			acc, _ := parseAccess(r.Access)
			a.regions = append(a.regions, region{base: r.Base, size: r.Size, access: acc})
		}
		b.s.apps = append(b.s.apps, a)
	}
}

func (b *builder) tasks() {
	for i, c := range b.s.cfg.Tasks {
		t := &task{
			object:   b.object("task", c.Name, c.App, c.Access),
			id:       trap.TaskID(i),
			core:     c.Core,
			priority: c.Priority,
			maxAct:   c.Activations,
			extended: c.Extended,
			auto:     c.Autostart,
		}
		if t.maxAct == 0 {
			t.maxAct = 1
		}
		t.thread = trap.Thread{Name: c.Name}
		if t.owner != nil {
			t.thread.App = &t.owner.Application
		}
		b.s.tasks = append(b.s.tasks, t)
	}
	for i, c := range b.s.cfg.Applications {
		if c.RestartTask != "" {
			b.s.apps[i].restart = b.task("application", c.Name, c.RestartTask)
		}
	}
}

func (b *builder) isrs() {
	for i, c := range b.s.cfg.ISRs {
		r := &isr{
			object:   b.object("isr", c.Name, c.App, c.Access),
			id:       trap.ISRID(i),
			core:     c.Core,
			priority: c.Priority,
			category: c.Category,
		}
		if r.category == 0 {
			r.category = 2
		}
		r.thread = trap.Thread{Name: c.Name}
		if r.owner != nil {
			r.thread.App = &r.owner.Application
		}
		b.s.isrs = append(b.s.isrs, r)
	}
}

func (b *builder) resources() {
	for i, c := range b.s.cfg.Resources {
		b.s.resources = append(b.s.resources, &resource{
			object:  b.object("resource", c.Name, c.App, c.Access),
			id:      trap.ResourceID(i),
			ceiling: c.Ceiling,
		})
	}
}

func (b *builder) counters() {
	for i, c := range b.s.cfg.Counters {
		b.s.counters = append(b.s.counters, &counter{
			object: b.object("counter", c.Name, c.App, c.Access),
			id:     trap.CounterID(i),
			base: trap.AlarmBase{
				MaxAllowedValue: trap.Tick(c.MaxAllowedValue),
				TicksPerBase:    trap.Tick(c.TicksPerBase),
				MinCycle:        trap.Tick(c.MinCycle),
			},
		})
	}
}

func (b *builder) alarms() {
	for i, c := range b.s.cfg.Alarms {
		a := &alarm{
			object:  b.object("alarm", c.Name, c.App, c.Access),
			id:      trap.AlarmID(i),
			counter: b.counter("alarm", c.Name, c.Counter),
		}
		switch c.Action.Type {
		case "activate_task":
			a.action = alarmAction{kind: actionActivate, task: b.task("alarm", c.Name, c.Action.Task)}
		case "set_event":
			a.action = alarmAction{kind: actionSetEvent, task: b.task("alarm", c.Name, c.Action.Task), mask: trap.EventMask(c.Action.Event)}
		case "increment_counter":
			a.action = alarmAction{kind: actionIncrement, counter: b.counter("alarm", c.Name, c.Action.Counter)}
		}
		if c.Autostart != nil {
			a.autostart = &alarmStart{start: trap.Tick(c.Autostart.Start), cycle: trap.Tick(c.Autostart.Cycle)}
		}
		b.s.alarms = append(b.s.alarms, a)
	}
}

func (b *builder) tables() {
	for i, c := range b.s.cfg.ScheduleTables {
		st := &scheduleTable{
			object:    b.object("schedule table", c.Name, c.App, c.Access),
			id:        trap.ScheduleTableID(i),
			counter:   b.counter("schedule table", c.Name, c.Counter),
			duration:  trap.Tick(c.Duration),
			repeating: c.Repeating,
			explicit:  c.Explicit,
		}
		for _, p := range c.Points {
			ep := expiryPoint{offset: trap.Tick(p.Offset)}
			for _, n := range p.Activate {
				ep.activate = append(ep.activate, b.task("schedule table", c.Name, n))
			}
			for _, e := range p.Events {
				ep.events = append(ep.events, eventSetting{task: b.task("schedule table", c.Name, e.Task), mask: trap.EventMask(e.Mask)})
			}
			st.points = append(st.points, ep)
		}
		b.s.tables = append(b.s.tables, st)
	}
}

func (b *builder) spinlocks() {
	for i, c := range b.s.cfg.Spinlocks {
		m, _ := parseLockMethod(c.LockMethod)
		b.s.locks = append(b.s.locks, &spinlock{
			object: b.object("spinlock", c.Name, "", c.Access),
			id:     trap.SpinlockID(i),
			method: m,
		})
	}
}

func (b *builder) channels() {
	for i, c := range b.s.cfg.Channels {
		ch := &channel{
			name:     c.Name,
			id:       trap.ChannelID(i),
			q:        ioq.New[trap.Word](c.Capacity),
			sender:   b.app("channel", c.Name, c.Sender),
			receiver: b.app("channel", c.Name, c.Receiver),
		}
		ch.q.InitWriter()
		ch.q.InitReader()
		b.s.channels = append(b.s.channels, ch)
	}
}

func (b *builder) areas() {
	for i, c := range b.s.cfg.Areas {
		b.s.areas = append(b.s.areas, &area{
			object: b.object("area", c.Name, "", c.Access),
			id:     trap.AreaID(i),
			base:   uintptr(c.Base),
			mem:    make([]byte, c.Size),
		})
	}
}

func (b *builder) trustedFunctions() {
	for _, c := range b.s.cfg.TrustedFunctions {
		b.s.trusted = append(b.s.trusted, &trustedFunction{
			name:  c.Name,
			owner: b.app("trusted function", c.Name, c.App),
		})
	}
}

type frameKind uint8

const (
	frameISR frameKind = iota
	frameHook
	frameService
)

func (f frameKind) String() string {
	return [...]string{"isr", "hook", "service"}[f]
}

// frame is a context the kernel switched into on top of the running task
// and will return from.
type frame struct {
	kind   frameKind
	thread *trap.Thread
	state  trap.IntState
	isr    *isr
}

// Kernel is the kernel of one core. It implements trap.Services; all of its
// methods must be called on that core.
type Kernel struct {
	sys  *System
	core *trap.Core

	gw   *trap.Gateway
	trap *trap.SoftwareTrap

	active     bool
	nonAutosar bool
	down       bool

	running *task
	frames  []frame

	held       []heldResource
	spinlocks  []heldSpinlock
	suspendAll int
	suspendOS  int
}

var _ trap.Services = (*Kernel)(nil)

func newKernel(s *System, id trap.CoreID, opts []trap.Option) *Kernel {
	k := &Kernel{sys: s, core: trap.NewCore(id)}
	d := trap.NewDispatcher(s.caps, k, k.core)
	k.trap = trap.NewSoftwareTrap(k.core, d)
	all := []trap.Option{
		trap.WithTracing(s.traced),
		trap.WithChannelBoundary(s.cfg.Crossing),
		trap.WithReporter(trap.LogReporter{Hook: k.errorHook}),
	}
	k.gw = trap.NewGateway(s.caps, k.core, k, k.trap, append(all, opts...)...)
	return k
}

// Gateway is the application side of this core's services.
func (k *Kernel) Gateway() *trap.Gateway {
	return k.gw
}

func (k *Kernel) Core() *trap.Core {
	return k.core
}

// Traps returns the number of traps taken on this core.
func (k *Kernel) Traps() uint64 {
	return k.trap.Traps()
}

// Enter makes the named task of this core the running one, in user or
// supervisor mode, activating it if needed. It is how host code sets up the
// calling context of the gateway.
func (k *Kernel) Enter(name string, privileged bool) error {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	for _, t := range k.sys.tasks {
		if t.name != name {
			continue
		}
		if t.core != int(k.core.ID()) {
			return fmt.Errorf("task %q runs on core %d", name, t.core)
		}
		if k.running != nil && k.running != t {
			k.running.state = trap.TaskReady
		}
		if t.act == 0 {
			t.act = 1
			t.events = 0
		}
		t.state = trap.TaskRunning
		k.running = t
		k.core.Switch(&t.thread, privileged)
		return nil
	}
	return fmt.Errorf("no task %q", name)
}

func (k *Kernel) errorHook(tag trap.Tag, st trap.Status, args []trap.Word) {
	h := k.sys.ErrorHook
	if h == nil {
		return
	}
	k.CallHook("ErrorHook", func() { h(k, tag, st) })
}

// CallHook runs body as a hook on this core. The body leaves through
// HookReturn, or simply returns.
func (k *Kernel) CallHook(name string, body func()) {
	depth := len(k.frames)
	k.push(frame{kind: frameHook, thread: k.core.Thread(), state: k.core.State()})
	k.core.Switch(&trap.Thread{Name: name}, k.core.Privileged())
	body()
	if len(k.frames) > depth {
		k.pop(frameHook)
	}
}

func (k *Kernel) push(f frame) {
	k.frames = append(k.frames, f)
}

// pop leaves the innermost frame, which must be of kind, and switches back
// to the context it interrupted.
func (k *Kernel) pop(kind frameKind) frame {
	if len(k.frames) == 0 || k.frames[len(k.frames)-1].kind != kind {
		klog.Fatalf("core %d: no %s frame to leave", k.core.ID(), kind)
		panic(&trap.KernelPanic{Reason: fmt.Sprintf("no %s frame to leave", kind)})
	}
	f := k.frames[len(k.frames)-1]
	k.frames = k.frames[:len(k.frames)-1]
	k.core.Switch(f.thread, k.core.Privileged())
	return f
}

// inISR reports whether the innermost frame is an ISR.
func (k *Kernel) inISR() bool {
	return len(k.frames) > 0 && k.frames[len(k.frames)-1].kind == frameISR
}

// taskLevel reports whether a task is the running thread.
func (k *Kernel) taskLevel() bool {
	return len(k.frames) == 0 && k.running != nil
}

// currentApp returns the application of the running thread, nil for the OS.
func (k *Kernel) currentApp() *app {
	t := k.core.Thread()
	if t == nil || t.App == nil {
		return nil
	}
	return k.sys.apps[t.App.ID]
}

// switchTo makes t the running thread. Privilege is left to the trap path.
func (k *Kernel) switchTo(t *trap.Thread) {
	k.core.Switch(t, k.core.Privileged())
}
