package kernel

import (
	"reflect"
	"testing"

	yaml "gopkg.in/yaml.v2"

	"github.com/ziyangfu/ostemp-sub000/trap"
)

func steps(list ...Step) []Step {
	return list
}

func call(name string, args ...uint64) Step {
	return Step{Call: name, Args: args}
}

var asWorker = call("Enter", 1, 0)

// scenarios exercise every service once. Each runs on core 0 of a system
// without memory protection and of one where the caller is in user mode;
// both must end up the same.
var scenarios = map[string][]Step{
	"ActivateTask":  steps(asWorker, call("ActivateTask", 2), call("ActivateTask", 3), call("GetTaskID")),
	"TerminateTask": steps(asWorker, call("ActivateTask", 2), call("TerminateTask"), call("GetTaskID")),
	"ChainTask":     steps(asWorker, call("ChainTask", 2), call("GetTaskState", 2)),
	"Schedule":      steps(call("Enter", 5, 0), call("Schedule"), call("ActivateTask", 2), call("Schedule"), call("GetTaskID")),
	"GetTaskID":     steps(asWorker, call("GetTaskID")),
	"GetTaskState":  steps(asWorker, call("GetTaskState", 2), call("GetTaskState", 0)),

	"SetEvent":   steps(asWorker, call("SetEvent", 1, 3), call("GetEvent", 1)),
	"ClearEvent": steps(asWorker, call("SetEvent", 1, 7), call("ClearEvent", 2), call("GetEvent", 1)),
	"GetEvent":   steps(asWorker, call("GetEvent", 1), call("GetEvent", 2)),
	"WaitEvent":  steps(asWorker, call("WaitEvent", 1), call("GetTaskState", 1), call("SetEvent", 1, 1)),

	"GetResource":     steps(asWorker, call("GetResource", 0), call("GetResource", 1)),
	"ReleaseResource": steps(asWorker, call("GetResource", 0), call("ReleaseResource", 1), call("ReleaseResource", 0)),

	"GetAlarmBase": steps(asWorker, call("GetAlarmBase", 0), call("GetAlarmBase", 9)),
	"GetAlarm":     steps(asWorker, call("SetRelAlarm", 0, 5, 0), call("GetAlarm", 0)),
	"SetRelAlarm":  steps(asWorker, call("SetRelAlarm", 0, 2, 0), call("IncrementCounter", 0), call("IncrementCounter", 0), call("GetTaskState", 2)),
	"SetAbsAlarm":  steps(asWorker, call("SetAbsAlarm", 2, 1, 3), call("IncrementCounter", 0)),
	"CancelAlarm":  steps(asWorker, call("SetRelAlarm", 1, 4, 0), call("CancelAlarm", 1), call("CancelAlarm", 1)),

	"IncrementCounter": steps(asWorker, call("IncrementCounter", 0), call("IncrementCounter", 1)),
	"GetCounterValue":  steps(asWorker, call("IncrementCounter", 0), call("GetCounterValue", 0)),
	"GetElapsedValue":  steps(asWorker, call("IncrementCounter", 0), call("IncrementCounter", 0), call("GetElapsedValue", 0, 95)),

	"EnableAllInterrupts":    steps(asWorker, call("DisableAllInterrupts"), call("EnableAllInterrupts")),
	"DisableAllInterrupts":   steps(asWorker, call("DisableAllInterrupts")),
	"ResumeAllInterrupts":    steps(asWorker, call("SuspendAllInterrupts"), call("SuspendAllInterrupts"), call("ResumeAllInterrupts")),
	"SuspendAllInterrupts":   steps(asWorker, call("SuspendAllInterrupts")),
	"ResumeOSInterrupts":     steps(asWorker, call("SuspendOSInterrupts"), call("ResumeOSInterrupts")),
	"SuspendOSInterrupts":    steps(asWorker, call("EnableInterruptSource", 0, 0), call("SuspendOSInterrupts"), call("Interrupt", 0)),
	"EnableInterruptSource":  steps(asWorker, call("EnableInterruptSource", 0, 1), call("Interrupt", 0), call("GetISRID")),
	"DisableInterruptSource": steps(asWorker, call("EnableInterruptSource", 0, 0), call("DisableInterruptSource", 0), call("Interrupt", 0)),
	"ClearPendingInterrupt":  steps(asWorker, call("Interrupt", 0), call("ClearPendingInterrupt", 0), call("EnableInterruptSource", 0, 0)),
	"GetISRID":               steps(asWorker, call("GetISRID")),

	"StartScheduleTableRel":  steps(asWorker, call("StartScheduleTableRel", 0, 1), call("IncrementCounter", 0), call("IncrementCounter", 0), call("IncrementCounter", 0)),
	"StartScheduleTableAbs":  steps(asWorker, call("StartScheduleTableAbs", 1, 2), call("IncrementCounter", 0), call("IncrementCounter", 0)),
	"StopScheduleTable":      steps(asWorker, call("StartScheduleTableRel", 0, 1), call("StopScheduleTable", 0)),
	"NextScheduleTable":      steps(asWorker, call("StartScheduleTableRel", 0, 1), call("NextScheduleTable", 0, 1), call("GetScheduleTableStatus", 1)),
	"SyncScheduleTable":      steps(asWorker, call("StartScheduleTableRel", 0, 1), call("IncrementCounter", 0), call("SyncScheduleTable", 0, 4)),
	"SetScheduleTableAsync":  steps(asWorker, call("StartScheduleTableRel", 0, 1), call("IncrementCounter", 0), call("SyncScheduleTable", 0, 4), call("SetScheduleTableAsync", 0)),
	"GetScheduleTableStatus": steps(asWorker, call("GetScheduleTableStatus", 0)),

	"GetSpinlock":      steps(asWorker, call("GetSpinlock", 0), call("GetSpinlock", 0)),
	"ReleaseSpinlock":  steps(asWorker, call("GetSpinlock", 0), call("ReleaseSpinlock", 0)),
	"TryToGetSpinlock": steps(asWorker, call("TryToGetSpinlock", 1)),

	"IocSend":       steps(asWorker, call("IocSend", 0, 5), call("IocSend", 0, 6), call("IocSend", 0, 7), call("IocSend", 0, 8)),
	"IocReceive":    steps(asWorker, call("IocSend", 1, 5), call("IocReceive", 1), call("IocReceive", 1)),
	"IocEmptyQueue": steps(asWorker, call("IocSend", 1, 5), call("IocEmptyQueue", 1), call("IocReceive", 1)),

	"ReadPeripheral8":    steps(asWorker, call("WritePeripheral32", 0, uart, 0x01020304), call("ReadPeripheral8", 0, uart+1)),
	"ReadPeripheral16":   steps(asWorker, call("WritePeripheral32", 0, uart, 0x01020304), call("ReadPeripheral16", 0, uart+2)),
	"ReadPeripheral32":   steps(asWorker, call("ReadPeripheral32", 0, uart), call("ReadPeripheral32", 0, uart+1)),
	"WritePeripheral8":   steps(asWorker, call("WritePeripheral8", 0, uart+5, 0xaa)),
	"WritePeripheral16":  steps(asWorker, call("WritePeripheral16", 0, uart+6, 0xaabb)),
	"WritePeripheral32":  steps(asWorker, call("WritePeripheral32", 0, uart+8, 0xaabbccdd)),
	"ModifyPeripheral8":  steps(asWorker, call("WritePeripheral8", 0, uart, 0xf0), call("ModifyPeripheral8", 0, uart, 0x30, 0x01)),
	"ModifyPeripheral16": steps(asWorker, call("ModifyPeripheral16", 0, uart, 0, 0x1234)),
	"ModifyPeripheral32": steps(asWorker, call("ModifyPeripheral32", 0, uart, 0, 0x12345678), call("ReadPeripheral32", 0, uart)),

	"GetApplicationID":          steps(asWorker, call("GetApplicationID")),
	"GetCurrentApplicationID":   steps(asWorker, call("GetCurrentApplicationID")),
	"GetCoreID":                 steps(asWorker, call("GetCoreID")),
	"GetNumberOfActivatedCores": steps(asWorker, call("GetNumberOfActivatedCores")),
	"GetActiveApplicationMode":  steps(asWorker, call("GetActiveApplicationMode")),
	"CheckObjectOwnership":      steps(asWorker, call("CheckObjectOwnership", uint64(trap.ObjectAlarm), 1)),
	"CheckObjectAccess":         steps(asWorker, call("CheckObjectAccess", 2, uint64(trap.ObjectCounter), 0)),
	"CheckISRMemoryAccess":      steps(asWorker, call("CheckISRMemoryAccess", 0, 0x20000000, 4)),
	"CheckTaskMemoryAccess":     steps(asWorker, call("CheckTaskMemoryAccess", 1, 0x08000000, 4)),

	"TerminateApplication": steps(asWorker, call("TerminateApplication", 1, 1), call("GetApplicationState", 1)),
	"AllowAccess":          steps(asWorker, call("TerminateApplication", 1, 1), call("AllowAccess"), call("AllowAccess")),
	"GetApplicationState":  steps(asWorker, call("GetApplicationState", 2), call("GetApplicationState", 3)),

	"ShutdownOS":          steps(asWorker, call("ShutdownOS", 3)),
	"ShutdownAllCores":    steps(asWorker, call("ShutdownAllCores", 3)),
	"StartCore":           steps(call("StartCore", 1), call("GetNumberOfActivatedCores")),
	"StartNonAutosarCore": steps(call("StartNonAutosarCore", 1), call("GetNumberOfActivatedCores")),
	"StartOS":             steps(call("StartOS", 2), call("GetTaskID")),

	"CallTrustedFunction": steps(asWorker, call("CallTrustedFunction", 0, 0), call("CallTrustedFunction", 1, 0)),

	// set_level leaves through ServiceReturn when passed 1
	"ServiceReturn":        steps(asWorker, call("CallTrustedFunction", 0, 1), call("GetTaskID")),
	"ISREpilogue":          steps(asWorker, call("EnableInterruptSource", 0, 0), call("Interrupt", 0), call("ActivateTask", 3), call("ISREpilogue"), call("GetTaskID")),
	"MissingTerminateTask": steps(asWorker, call("ActivateTask", 2), call("GetResource", 0), call("MissingTerminateTask"), call("GetTaskID")),
	// the error hook leaves through HookReturn
	"HookReturn": steps(asWorker, call("ActivateTask", 42), call("GetTaskID")),
}

// boot services are called from privileged start-up code and never trap.
// Their scenarios avoid errors: the error hook leaves through a trap.
var boot = map[string]bool{"StartCore": true, "StartNonAutosarCore": true, "StartOS": true}

// fixture builds a test system with the hooks and trusted functions the
// scenarios rely on.
func fixture(t *testing.T, protected bool) *System {
	t.Helper()
	s := load(t, protected)
	s.ErrorHook = func(k *Kernel, tag trap.Tag, st trap.Status) {
		k.Gateway().HookReturn()
	}
	err := s.Bind("set_level", func(k *Kernel, arg trap.Word) trap.Status {
		g := k.Gateway()
		g.SuspendOSInterrupts()
		if arg == 1 {
			g.ServiceReturn()
		}
		return trap.StatusOK
	})
	if err != nil {
		t.Fatalf("Bind: %v\n", err)
	}
	return s
}

type outcome struct {
	Results  []Result `yaml:"results"`
	Snapshot Snapshot `yaml:"snapshot"`
}

func play(t *testing.T, s *System, list []Step) string {
	t.Helper()
	k := s.Core(0)
	var o outcome
	for _, st := range list {
		r, err := k.Exec(st)
		if err != nil {
			t.Fatalf("%s: %v\n", st.Call, err)
		}
		o.Results = append(o.Results, r)
	}
	o.Snapshot = s.Snapshot()
	b, err := yaml.Marshal(&o)
	if err != nil {
		t.Fatalf("yaml: %v\n", err)
	}
	return string(b)
}

func TestScenariosCoverServices(t *testing.T) {
	for _, tag := range trap.Tags() {
		if _, ok := scenarios[tag.String()]; !ok {
			t.Errorf("no scenario for %s\n", tag)
		}
	}
}

// TestDirectAndTrappedAgree checks that taking the trap changes nothing an
// application can observe: results, outputs and kernel state are the same
// whether the call is direct or goes through the dispatcher.
func TestDirectAndTrappedAgree(t *testing.T) {
	for name, list := range scenarios {
		direct := fixture(t, false)
		trapped := fixture(t, true)
		want := play(t, direct, list)
		got := play(t, trapped, list)
		if got != want {
			t.Fatalf("%s: trapped run differs\n--- direct\n%s--- trapped\n%s", name, want, got)
		}
		if n := direct.Core(0).Traps(); n != 0 {
			t.Fatalf("%s: %d traps without memory protection\n", name, n)
		}
		n := trapped.Core(0).Traps()
		if boot[name] && n != 0 {
			t.Fatalf("%s: boot service trapped %d times\n", name, n)
		}
		if !boot[name] && n == 0 {
			t.Fatalf("%s: user mode caller never trapped\n", name)
		}
	}
}

// outputCalls lists the services with an output parameter.
func outputCalls() []string {
	var out []string
	for _, c := range trap.Calls() {
		typ := reflect.TypeOf(c).Elem()
		for i := 0; i < typ.NumField(); i++ {
			if typ.Field(i).Type.Kind() == reflect.Ptr {
				out = append(out, c.Tag().String())
				break
			}
		}
	}
	return out
}

func TestNullOutputNeverTraps(t *testing.T) {
	names := outputCalls()
	if len(names) < 16 {
		t.Fatalf("only %d services with outputs: %v\n", len(names), names)
	}
	s := load(t, true)
	k := s.Core(0)
	enter(t, k, "worker")
	for _, name := range names {
		before := k.Traps()
		r, err := k.Exec(Step{Call: name, Args: []uint64{0, uart}, Nil: true})
		if err != nil {
			t.Fatalf("%s: %v\n", name, err)
		}
		if r.Status != "E_OS_PARAM_POINTER" {
			t.Fatalf("%s(nil) = %s\n", name, r.Status)
		}
		if k.Traps() != before {
			t.Fatalf("%s(nil) trapped\n", name)
		}
	}
}
