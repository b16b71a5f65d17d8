package kernel

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/ziyangfu/ostemp-sub000/trap"
)

// Config is the static description of a system. Objects refer to each
// other by name; an object's ID is its index in its list.
type Config struct {
	Platform         Platform                `yaml:"platform"`
	Cores            int                     `yaml:"cores"`
	Applications     []AppConfig             `yaml:"applications"`
	Tasks            []TaskConfig            `yaml:"tasks"`
	ISRs             []ISRConfig             `yaml:"isrs"`
	Resources        []ResourceConfig        `yaml:"resources"`
	Counters         []CounterConfig         `yaml:"counters"`
	Alarms           []AlarmConfig           `yaml:"alarms"`
	ScheduleTables   []ScheduleTableConfig   `yaml:"schedule_tables"`
	Spinlocks        []SpinlockConfig        `yaml:"spinlocks"`
	Channels         []ChannelConfig         `yaml:"channels"`
	Areas            []AreaConfig            `yaml:"areas"`
	TrustedFunctions []TrustedFunctionConfig `yaml:"trusted_functions"`
}

type Platform struct {
	trap.Capabilities `yaml:",inline"`
	// service classes traced by the kernel, e.g. [alarm, counter]
	Traced []string `yaml:"traced"`
}

type AppConfig struct {
	Name        string         `yaml:"name"`
	Trusted     bool           `yaml:"trusted"`
	RestartTask string         `yaml:"restart_task"`
	Regions     []RegionConfig `yaml:"regions"`
}

// RegionConfig is a memory region of an application. Access is a subset of
// "rwxs" (read, write, execute, stack).
type RegionConfig struct {
	Base   uint64 `yaml:"base"`
	Size   uint64 `yaml:"size"`
	Access string `yaml:"access"`
}

type TaskConfig struct {
	Name        string   `yaml:"name"`
	App         string   `yaml:"app"`
	Core        int      `yaml:"core"`
	Priority    uint8    `yaml:"priority"`
	Activations uint32   `yaml:"activations"`
	Extended    bool     `yaml:"extended"`
	Autostart   bool     `yaml:"autostart"`
	Access      []string `yaml:"access"`
}

type ISRConfig struct {
	Name     string   `yaml:"name"`
	App      string   `yaml:"app"`
	Core     int      `yaml:"core"`
	Priority uint8    `yaml:"priority"`
	Category int      `yaml:"category"`
	Access   []string `yaml:"access"`
}

type ResourceConfig struct {
	Name    string   `yaml:"name"`
	App     string   `yaml:"app"`
	Ceiling uint8    `yaml:"ceiling"`
	Access  []string `yaml:"access"`
}

type CounterConfig struct {
	Name            string   `yaml:"name"`
	App             string   `yaml:"app"`
	MaxAllowedValue uint32   `yaml:"max_allowed_value"`
	TicksPerBase    uint32   `yaml:"ticks_per_base"`
	MinCycle        uint32   `yaml:"min_cycle"`
	Access          []string `yaml:"access"`
}

// ActionConfig is what an alarm does when it expires. Type is one of
// activate_task, set_event and increment_counter.
type ActionConfig struct {
	Type    string `yaml:"type"`
	Task    string `yaml:"task"`
	Event   uint64 `yaml:"event"`
	Counter string `yaml:"counter"`
}

type AlarmConfig struct {
	Name      string       `yaml:"name"`
	App       string       `yaml:"app"`
	Counter   string       `yaml:"counter"`
	Action    ActionConfig `yaml:"action"`
	Autostart *struct {
		Start uint32 `yaml:"start"`
		Cycle uint32 `yaml:"cycle"`
	} `yaml:"autostart"`
	Access []string `yaml:"access"`
}

type EventConfig struct {
	Task string `yaml:"task"`
	Mask uint64 `yaml:"mask"`
}

type ExpiryPointConfig struct {
	Offset   uint32        `yaml:"offset"`
	Activate []string      `yaml:"activate"`
	Events   []EventConfig `yaml:"events"`
}

type ScheduleTableConfig struct {
	Name      string              `yaml:"name"`
	App       string              `yaml:"app"`
	Counter   string              `yaml:"counter"`
	Duration  uint32              `yaml:"duration"`
	Repeating bool                `yaml:"repeating"`
	Explicit  bool                `yaml:"explicit_sync"`
	Points    []ExpiryPointConfig `yaml:"expiry_points"`
	Access    []string            `yaml:"access"`
}

// SpinlockConfig.LockMethod is "", "all_interrupts" or "os_interrupts".
type SpinlockConfig struct {
	Name       string   `yaml:"name"`
	LockMethod string   `yaml:"lock_method"`
	Access     []string `yaml:"access"`
}

type ChannelConfig struct {
	Name     string `yaml:"name"`
	Capacity int    `yaml:"capacity"`
	Sender   string `yaml:"sender"`
	Receiver string `yaml:"receiver"`
}

type AreaConfig struct {
	Name   string   `yaml:"name"`
	Base   uint64   `yaml:"base"`
	Size   uint64   `yaml:"size"`
	Access []string `yaml:"access"`
}

type TrustedFunctionConfig struct {
	Name string `yaml:"name"`
	App  string `yaml:"app"`
}

// LoadConfig reads and checks a YAML system description.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := ParseConfig(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func ParseConfig(b []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TracedClasses converts Platform.Traced.
func (c *Config) TracedClasses() (trap.ClassSet, error) {
	var set trap.ClassSet
	for _, n := range c.Platform.Traced {
		cl, ok := trap.ParseClass(n)
		if !ok {
			return 0, fmt.Errorf("platform: unknown service class %q", n)
		}
		set = set.With(cl)
	}
	return set, nil
}

// Crossing reports whether channel ch connects two different applications.
// Unknown channels are reported as crossing.
func (c *Config) Crossing(ch trap.ChannelID) bool {
	if int(ch) >= len(c.Channels) {
		return true
	}
	return c.Channels[ch].Sender != c.Channels[ch].Receiver
}

// names maps object names to their IDs.
type names map[string]int

func index[T any](kind string, list []T, name func(T) string) (names, error) {
	n := names{}
	for i, o := range list {
		s := name(o)
		if s == "" {
			return nil, fmt.Errorf("%s %d: missing name", kind, i)
		}
		if _, dup := n[s]; dup {
			return nil, fmt.Errorf("%s %q: defined twice", kind, s)
		}
		n[s] = i
	}
	return n, nil
}

// lookup resolves a reference. An empty reference is allowed when optional.
func (n names) lookup(kind, name string, optional bool) (int, error) {
	if name == "" && optional {
		return -1, nil
	}
	i, ok := n[name]
	if !ok {
		return 0, fmt.Errorf("unknown %s %q", kind, name)
	}
	return i, nil
}

// index of every object list of a config
type indexes struct {
	apps, tasks, counters names
}

func (c *Config) indexes() (*indexes, error) {
	var (
		ix  indexes
		err error
	)
	if ix.apps, err = index("application", c.Applications, func(a AppConfig) string { return a.Name }); err != nil {
		return nil, err
	}
	if ix.tasks, err = index("task", c.Tasks, func(t TaskConfig) string { return t.Name }); err != nil {
		return nil, err
	}
	if ix.counters, err = index("counter", c.Counters, func(o CounterConfig) string { return o.Name }); err != nil {
		return nil, err
	}
	checks := []error{
		uniq("isr", c.ISRs, func(o ISRConfig) string { return o.Name }),
		uniq("resource", c.Resources, func(o ResourceConfig) string { return o.Name }),
		uniq("alarm", c.Alarms, func(o AlarmConfig) string { return o.Name }),
		uniq("schedule table", c.ScheduleTables, func(o ScheduleTableConfig) string { return o.Name }),
		uniq("spinlock", c.Spinlocks, func(o SpinlockConfig) string { return o.Name }),
		uniq("channel", c.Channels, func(o ChannelConfig) string { return o.Name }),
		uniq("area", c.Areas, func(o AreaConfig) string { return o.Name }),
		uniq("trusted function", c.TrustedFunctions, func(o TrustedFunctionConfig) string { return o.Name }),
	}
	for _, err := range checks {
		if err != nil {
			return nil, err
		}
	}
	return &ix, nil
}

func uniq[T any](kind string, list []T, name func(T) string) error {
	_, err := index(kind, list, name)
	return err
}

// check validates everything that does not need the built system.
func (c *Config) check() error {
	if c.Cores <= 0 {
		c.Cores = 1
	}
	ix, err := c.indexes()
	if err != nil {
		return err
	}
	if _, err := c.TracedClasses(); err != nil {
		return err
	}
	for _, a := range c.Applications {
		if _, err := ix.tasks.lookup("task", a.RestartTask, true); err != nil {
			return fmt.Errorf("application %q: %w", a.Name, err)
		}
		for _, r := range a.Regions {
			if _, err := parseAccess(r.Access); err != nil {
				return fmt.Errorf("application %q: %w", a.Name, err)
			}
		}
	}
	for _, t := range c.Tasks {
		if t.Core < 0 || t.Core >= c.Cores {
			return fmt.Errorf("task %q: core %d out of range", t.Name, t.Core)
		}
	}
	for _, i := range c.ISRs {
		if i.Core < 0 || i.Core >= c.Cores {
			return fmt.Errorf("isr %q: core %d out of range", i.Name, i.Core)
		}
		if i.Category != 0 && i.Category != 1 && i.Category != 2 {
			return fmt.Errorf("isr %q: category %d", i.Name, i.Category)
		}
	}
	for _, k := range c.Counters {
		if k.MaxAllowedValue == 0 {
			return fmt.Errorf("counter %q: max_allowed_value must not be 0", k.Name)
		}
	}
	for _, a := range c.Alarms {
		if _, err := ix.counters.lookup("counter", a.Counter, false); err != nil {
			return fmt.Errorf("alarm %q: %w", a.Name, err)
		}
		switch a.Action.Type {
		case "activate_task", "set_event":
			if _, err := ix.tasks.lookup("task", a.Action.Task, false); err != nil {
				return fmt.Errorf("alarm %q: %w", a.Name, err)
			}
		case "increment_counter":
			if a.Action.Counter == a.Counter {
				return fmt.Errorf("alarm %q: increments its own counter", a.Name)
			}
			if _, err := ix.counters.lookup("counter", a.Action.Counter, false); err != nil {
				return fmt.Errorf("alarm %q: %w", a.Name, err)
			}
		default:
			return fmt.Errorf("alarm %q: unknown action %q", a.Name, a.Action.Type)
		}
	}
	for _, st := range c.ScheduleTables {
		ci, err := ix.counters.lookup("counter", st.Counter, false)
		if err != nil {
			return fmt.Errorf("schedule table %q: %w", st.Name, err)
		}
		if st.Duration == 0 || st.Duration > c.Counters[ci].MaxAllowedValue {
			return fmt.Errorf("schedule table %q: duration %d out of range", st.Name, st.Duration)
		}
		for _, p := range st.Points {
			if p.Offset > st.Duration {
				return fmt.Errorf("schedule table %q: expiry point %d past the end", st.Name, p.Offset)
			}
		}
	}
	for _, s := range c.Spinlocks {
		if _, err := parseLockMethod(s.LockMethod); err != nil {
			return fmt.Errorf("spinlock %q: %w", s.Name, err)
		}
	}
	for _, ch := range c.Channels {
		if ch.Capacity < 2 {
			return fmt.Errorf("channel %q: capacity %d, need at least 2", ch.Name, ch.Capacity)
		}
		for _, n := range []string{ch.Sender, ch.Receiver} {
			if _, err := ix.apps.lookup("application", n, false); err != nil {
				return fmt.Errorf("channel %q: %w", ch.Name, err)
			}
		}
	}
	for _, a := range c.Areas {
		if a.Size == 0 || a.Size > 1<<20 {
			return fmt.Errorf("area %q: size %d out of range", a.Name, a.Size)
		}
	}
	for _, f := range c.TrustedFunctions {
		if _, err := ix.apps.lookup("application", f.App, false); err != nil {
			return fmt.Errorf("trusted function %q: %w", f.Name, err)
		}
	}
	return nil
}

func parseAccess(s string) (trap.AccessType, error) {
	var a trap.AccessType
	for _, r := range s {
		switch r {
		case 'r':
			a |= trap.AccessRead
		case 'w':
			a |= trap.AccessWrite
		case 'x':
			a |= trap.AccessExecute
		case 's':
			a |= trap.AccessStack
		default:
			return 0, fmt.Errorf("access %q: unknown right %q", s, r)
		}
	}
	return a, nil
}
