package kernel

import (
	"strings"
	"testing"

	"github.com/ziyangfu/ostemp-sub000/trap"
)

// load builds the test system. Without protection every call is direct.
func load(t *testing.T, protected bool) *System {
	t.Helper()
	cfg, err := LoadConfig("testdata/system.yaml")
	if err != nil {
		t.Fatalf("LoadConfig: %v\n", err)
	}
	cfg.Platform.MemoryProtection = protected
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v\n", err)
	}
	return s
}

// enter runs the named task in user mode.
func enter(t *testing.T, k *Kernel, name string) {
	t.Helper()
	if err := k.Enter(name, false); err != nil {
		t.Fatalf("Enter(%s): %v\n", name, err)
	}
}

func do(t *testing.T, k *Kernel, call string, args ...uint64) Result {
	t.Helper()
	r, err := k.Exec(Step{Call: call, Args: args})
	if err != nil {
		t.Fatalf("%s%v: %v\n", call, args, err)
	}
	return r
}

// expect runs a call and checks its status and, when given, its outputs.
func expect(t *testing.T, k *Kernel, status string, call string, args ...uint64) Result {
	t.Helper()
	r := do(t, k, call, args...)
	if r.Status != status {
		t.Fatalf("%s%v = %s, expected %s\n", call, args, r.Status, status)
	}
	return r
}

func assertOut(t *testing.T, r Result, out ...string) {
	t.Helper()
	if strings.Join(r.Out, " ") != strings.Join(out, " ") {
		t.Fatalf("%s out = %v, expected %v\n", r.Call, r.Out, out)
	}
}

func assertTask(t *testing.T, s *System, name string, want trap.TaskState) {
	t.Helper()
	for _, tk := range s.tasks {
		if tk.name == name {
			if tk.state != want {
				t.Fatalf("task %s is %s, expected %s\n", name, tk.state, want)
			}
			return
		}
	}
	t.Fatalf("no task %s\n", name)
}

func assertRunning(t *testing.T, k *Kernel, name string) {
	t.Helper()
	got := "-"
	if th := k.Core().Thread(); th != nil {
		got = th.Name
	}
	if got != name {
		t.Fatalf("core %d runs %s, expected %s\n", k.Core().ID(), got, name)
	}
}

func assertFlag(t *testing.T, k *Kernel, flag trap.IntState, want bool) {
	t.Helper()
	if s := k.Core().State(); s.IsEnable(flag) != want {
		t.Fatalf("core %d state %s, expected flag %#x = %v\n", k.Core().ID(), s, uint32(flag), want)
	}
}

func TestStartOS(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	do(t, k, "StartOS", 3)
	assertRunning(t, k, "init")
	assertOut(t, expect(t, k, "E_OK", "GetTaskID"), "0")
	assertOut(t, do(t, k, "GetActiveApplicationMode"), "3")
	// divider is autostarted at 50
	assertOut(t, expect(t, k, "E_OK", "GetAlarm", 2), "50")
	if k.Traps() != 0 {
		t.Fatalf("privileged boot code took %d traps\n", k.Traps())
	}
}

func TestStartCore(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	expect(t, k, "E_OK", "StartCore", 1)
	expect(t, k, "E_OS_STATE", "StartCore", 1)
	expect(t, k, "E_OS_ID", "StartNonAutosarCore", 5)
	do(t, k, "StartOS", 0)
	assertOut(t, do(t, k, "GetNumberOfActivatedCores"), "2")
	expect(t, k, "E_OS_ACCESS", "StartCore", 1)
	if k.Traps() != 0 {
		t.Fatalf("boot services took %d traps\n", k.Traps())
	}
}

func TestEnter(t *testing.T) {
	s := load(t, true)
	if err := s.Core(0).Enter("remote", false); err == nil {
		t.Fatalf("entered a task of core 1 on core 0\n")
	}
	if err := s.Core(0).Enter("nobody", false); err == nil {
		t.Fatalf("entered an unknown task\n")
	}
	if _, err := s.Core(0).Exec(Step{Call: "Reboot"}); err == nil {
		t.Fatalf("unknown call accepted\n")
	}
}

func TestErrorHook(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	var got []string
	s.ErrorHook = func(k *Kernel, tag trap.Tag, st trap.Status) {
		got = append(got, tag.String()+" "+st.String()+" "+k.Core().Thread().Name)
		k.Gateway().HookReturn()
	}
	enter(t, k, "worker")
	expect(t, k, "E_OS_ID", "ActivateTask", 42)
	expect(t, k, "E_OK", "ActivateTask", 2)
	if len(got) != 1 || got[0] != "ActivateTask E_OS_ID ErrorHook" {
		t.Fatalf("hook saw %v\n", got)
	}
	assertRunning(t, k, "worker")
	if len(k.frames) != 0 {
		t.Fatalf("%d frames left\n", len(k.frames))
	}
	assertFlag(t, k, trap.PrivilegedFlag, false)
}

func TestShutdown(t *testing.T) {
	s := load(t, true)
	var got []string
	s.ShutdownHook = func(k *Kernel, err trap.Status) {
		got = append(got, err.String())
	}
	k0, k1 := s.Core(0), s.Core(1)
	enter(t, k0, "worker")
	do(t, k0, "ShutdownOS", uint64(trap.StatusValue))
	if !k0.Down() || k1.Down() {
		t.Fatalf("down = %v %v\n", k0.Down(), k1.Down())
	}
	do(t, k0, "ShutdownAllCores", uint64(trap.StatusState))
	if !k1.Down() {
		t.Fatalf("core 1 still up\n")
	}
	if strings.Join(got, " ") != "E_OS_VALUE E_OS_STATE" {
		t.Fatalf("shutdown hook saw %v\n", got)
	}
}

func TestStepNames(t *testing.T) {
	names := StepNames()
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, tag := range trap.Tags() {
		if !have[tag.String()] {
			t.Fatalf("no step for %s\n", tag)
		}
	}
	if !have["Enter"] || !have["Interrupt"] {
		t.Fatalf("host steps missing from %v\n", names)
	}
}
