package kernel

import (
	"fmt"
	"sort"

	"github.com/ziyangfu/ostemp-sub000/trap"
)

// Step is one call of a script, e.g. {call: SetRelAlarm, args: [0, 5, 0]}.
// Output parameters are not arguments; they show up in the Result.
type Step struct {
	Call string   `yaml:"call"`
	Args []uint64 `yaml:"args,flow"`
	// pass nil for every output parameter
	Nil bool `yaml:"nil,omitempty"`
}

// Result is what a step returned: the status, if the service has one, and
// the values it delivered.
type Result struct {
	Call   string   `yaml:"call"`
	Status string   `yaml:"status,omitempty"`
	Out    []string `yaml:"out,flow,omitempty"`
}

type args []uint64

func (a args) at(i int) uint64 {
	if i < len(a) {
		return a[i]
	}
	return 0
}

func ptr[T any](v *T, null bool) *T {
	if null {
		return nil
	}
	return v
}

func result(st trap.Status, out ...interface{}) Result {
	r := Result{Status: st.String()}
	if st.Delivered() {
		for _, o := range out {
			r.Out = append(r.Out, fmt.Sprint(o))
		}
	}
	return r
}

func values(out ...interface{}) Result {
	var r Result
	for _, o := range out {
		r.Out = append(r.Out, fmt.Sprint(o))
	}
	return r
}

type invoker func(g *trap.Gateway, a args, null bool) Result

var invokers = map[string]invoker{
	"ActivateTask": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.ActivateTask(trap.TaskID(a.at(0))))
	},
	"TerminateTask": func(g *trap.Gateway, _ args, _ bool) Result {
		return result(g.TerminateTask())
	},
	"ChainTask": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.ChainTask(trap.TaskID(a.at(0))))
	},
	"Schedule": func(g *trap.Gateway, _ args, _ bool) Result {
		return result(g.Schedule())
	},
	"GetTaskID": func(g *trap.Gateway, _ args, null bool) Result {
		var v trap.TaskID
		st := g.GetTaskID(ptr(&v, null))
		return result(st, v)
	},
	"GetTaskState": func(g *trap.Gateway, a args, null bool) Result {
		var v trap.TaskState
		st := g.GetTaskState(trap.TaskID(a.at(0)), ptr(&v, null))
		return result(st, v)
	},

	"SetEvent": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.SetEvent(trap.TaskID(a.at(0)), trap.EventMask(a.at(1))))
	},
	"ClearEvent": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.ClearEvent(trap.EventMask(a.at(0))))
	},
	"GetEvent": func(g *trap.Gateway, a args, null bool) Result {
		var v trap.EventMask
		st := g.GetEvent(trap.TaskID(a.at(0)), ptr(&v, null))
		return result(st, v)
	},
	"WaitEvent": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.WaitEvent(trap.EventMask(a.at(0))))
	},

	"GetResource": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.GetResource(trap.ResourceID(a.at(0))))
	},
	"ReleaseResource": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.ReleaseResource(trap.ResourceID(a.at(0))))
	},

	"GetAlarmBase": func(g *trap.Gateway, a args, null bool) Result {
		var v trap.AlarmBase
		st := g.GetAlarmBase(trap.AlarmID(a.at(0)), ptr(&v, null))
		return result(st, v.MaxAllowedValue, v.TicksPerBase, v.MinCycle)
	},
	"GetAlarm": func(g *trap.Gateway, a args, null bool) Result {
		var v trap.Tick
		st := g.GetAlarm(trap.AlarmID(a.at(0)), ptr(&v, null))
		return result(st, v)
	},
	"SetRelAlarm": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.SetRelAlarm(trap.AlarmID(a.at(0)), trap.Tick(a.at(1)), trap.Tick(a.at(2))))
	},
	"SetAbsAlarm": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.SetAbsAlarm(trap.AlarmID(a.at(0)), trap.Tick(a.at(1)), trap.Tick(a.at(2))))
	},
	"CancelAlarm": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.CancelAlarm(trap.AlarmID(a.at(0))))
	},

	"IncrementCounter": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.IncrementCounter(trap.CounterID(a.at(0))))
	},
	"GetCounterValue": func(g *trap.Gateway, a args, null bool) Result {
		var v trap.Tick
		st := g.GetCounterValue(trap.CounterID(a.at(0)), ptr(&v, null))
		return result(st, v)
	},
	// args: counter, previous value
	"GetElapsedValue": func(g *trap.Gateway, a args, null bool) Result {
		v, e := trap.Tick(a.at(1)), trap.Tick(0)
		st := g.GetElapsedValue(trap.CounterID(a.at(0)), ptr(&v, null), ptr(&e, null))
		return result(st, v, e)
	},

	"EnableAllInterrupts": func(g *trap.Gateway, _ args, _ bool) Result {
		g.EnableAllInterrupts()
		return Result{}
	},
	"DisableAllInterrupts": func(g *trap.Gateway, _ args, _ bool) Result {
		g.DisableAllInterrupts()
		return Result{}
	},
	"ResumeAllInterrupts": func(g *trap.Gateway, _ args, _ bool) Result {
		g.ResumeAllInterrupts()
		return Result{}
	},
	"SuspendAllInterrupts": func(g *trap.Gateway, _ args, _ bool) Result {
		g.SuspendAllInterrupts()
		return Result{}
	},
	"ResumeOSInterrupts": func(g *trap.Gateway, _ args, _ bool) Result {
		g.ResumeOSInterrupts()
		return Result{}
	},
	"SuspendOSInterrupts": func(g *trap.Gateway, _ args, _ bool) Result {
		g.SuspendOSInterrupts()
		return Result{}
	},
	"EnableInterruptSource": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.EnableInterruptSource(trap.ISRID(a.at(0)), a.at(1) != 0))
	},
	"DisableInterruptSource": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.DisableInterruptSource(trap.ISRID(a.at(0))))
	},
	"ClearPendingInterrupt": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.ClearPendingInterrupt(trap.ISRID(a.at(0))))
	},
	"GetISRID": func(g *trap.Gateway, _ args, _ bool) Result {
		return values(g.GetISRID())
	},

	"StartScheduleTableRel": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.StartScheduleTableRel(trap.ScheduleTableID(a.at(0)), trap.Tick(a.at(1))))
	},
	"StartScheduleTableAbs": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.StartScheduleTableAbs(trap.ScheduleTableID(a.at(0)), trap.Tick(a.at(1))))
	},
	"StopScheduleTable": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.StopScheduleTable(trap.ScheduleTableID(a.at(0))))
	},
	"NextScheduleTable": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.NextScheduleTable(trap.ScheduleTableID(a.at(0)), trap.ScheduleTableID(a.at(1))))
	},
	"SyncScheduleTable": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.SyncScheduleTable(trap.ScheduleTableID(a.at(0)), trap.Tick(a.at(1))))
	},
	"SetScheduleTableAsync": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.SetScheduleTableAsync(trap.ScheduleTableID(a.at(0))))
	},
	"GetScheduleTableStatus": func(g *trap.Gateway, a args, null bool) Result {
		var v trap.ScheduleTableStatus
		st := g.GetScheduleTableStatus(trap.ScheduleTableID(a.at(0)), ptr(&v, null))
		return result(st, v)
	},

	"GetSpinlock": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.GetSpinlock(trap.SpinlockID(a.at(0))))
	},
	"ReleaseSpinlock": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.ReleaseSpinlock(trap.SpinlockID(a.at(0))))
	},
	"TryToGetSpinlock": func(g *trap.Gateway, a args, null bool) Result {
		var v trap.TryToGetSpinlockType
		st := g.TryToGetSpinlock(trap.SpinlockID(a.at(0)), ptr(&v, null))
		return result(st, v)
	},

	"IocSend": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.IocSend(trap.ChannelID(a.at(0)), trap.Word(a.at(1))))
	},
	"IocReceive": func(g *trap.Gateway, a args, null bool) Result {
		var v trap.Word
		st := g.IocReceive(trap.ChannelID(a.at(0)), ptr(&v, null))
		return result(st, v)
	},
	"IocEmptyQueue": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.IocEmptyQueue(trap.ChannelID(a.at(0))))
	},

	"ReadPeripheral8": func(g *trap.Gateway, a args, null bool) Result {
		var v uint8
		st := g.ReadPeripheral8(trap.AreaID(a.at(0)), uintptr(a.at(1)), ptr(&v, null))
		return result(st, v)
	},
	"ReadPeripheral16": func(g *trap.Gateway, a args, null bool) Result {
		var v uint16
		st := g.ReadPeripheral16(trap.AreaID(a.at(0)), uintptr(a.at(1)), ptr(&v, null))
		return result(st, v)
	},
	"ReadPeripheral32": func(g *trap.Gateway, a args, null bool) Result {
		var v uint32
		st := g.ReadPeripheral32(trap.AreaID(a.at(0)), uintptr(a.at(1)), ptr(&v, null))
		return result(st, v)
	},
	"WritePeripheral8": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.WritePeripheral8(trap.AreaID(a.at(0)), uintptr(a.at(1)), uint8(a.at(2))))
	},
	"WritePeripheral16": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.WritePeripheral16(trap.AreaID(a.at(0)), uintptr(a.at(1)), uint16(a.at(2))))
	},
	"WritePeripheral32": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.WritePeripheral32(trap.AreaID(a.at(0)), uintptr(a.at(1)), uint32(a.at(2))))
	},
	"ModifyPeripheral8": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.ModifyPeripheral8(trap.AreaID(a.at(0)), uintptr(a.at(1)), uint8(a.at(2)), uint8(a.at(3))))
	},
	"ModifyPeripheral16": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.ModifyPeripheral16(trap.AreaID(a.at(0)), uintptr(a.at(1)), uint16(a.at(2)), uint16(a.at(3))))
	},
	"ModifyPeripheral32": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.ModifyPeripheral32(trap.AreaID(a.at(0)), uintptr(a.at(1)), uint32(a.at(2)), uint32(a.at(3))))
	},

	"GetApplicationID": func(g *trap.Gateway, _ args, _ bool) Result {
		return values(g.GetApplicationID())
	},
	"GetCurrentApplicationID": func(g *trap.Gateway, _ args, _ bool) Result {
		return values(g.GetCurrentApplicationID())
	},
	"GetCoreID": func(g *trap.Gateway, _ args, _ bool) Result {
		return values(g.GetCoreID())
	},
	"GetNumberOfActivatedCores": func(g *trap.Gateway, _ args, _ bool) Result {
		return values(g.GetNumberOfActivatedCores())
	},
	"GetActiveApplicationMode": func(g *trap.Gateway, _ args, _ bool) Result {
		return values(g.GetActiveApplicationMode())
	},
	"CheckObjectOwnership": func(g *trap.Gateway, a args, _ bool) Result {
		return values(g.CheckObjectOwnership(trap.ObjectType(a.at(0)), uint32(a.at(1))))
	},
	"CheckObjectAccess": func(g *trap.Gateway, a args, _ bool) Result {
		return values(g.CheckObjectAccess(trap.AppID(a.at(0)), trap.ObjectType(a.at(1)), uint32(a.at(2))))
	},
	"CheckISRMemoryAccess": func(g *trap.Gateway, a args, _ bool) Result {
		return values(g.CheckISRMemoryAccess(trap.ISRID(a.at(0)), trap.MemoryAddress(a.at(1)), trap.MemorySize(a.at(2))))
	},
	"CheckTaskMemoryAccess": func(g *trap.Gateway, a args, _ bool) Result {
		return values(g.CheckTaskMemoryAccess(trap.TaskID(a.at(0)), trap.MemoryAddress(a.at(1)), trap.MemorySize(a.at(2))))
	},

	"TerminateApplication": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.TerminateApplication(trap.AppID(a.at(0)), trap.RestartOption(a.at(1))))
	},
	"AllowAccess": func(g *trap.Gateway, _ args, _ bool) Result {
		return result(g.AllowAccess())
	},
	"GetApplicationState": func(g *trap.Gateway, a args, null bool) Result {
		var v trap.AppState
		st := g.GetApplicationState(trap.AppID(a.at(0)), ptr(&v, null))
		return result(st, v)
	},

	"ShutdownOS": func(g *trap.Gateway, a args, _ bool) Result {
		g.ShutdownOS(trap.Status(a.at(0)))
		return Result{}
	},
	"ShutdownAllCores": func(g *trap.Gateway, a args, _ bool) Result {
		g.ShutdownAllCores(trap.Status(a.at(0)))
		return Result{}
	},
	"StartCore": func(g *trap.Gateway, a args, null bool) Result {
		var v trap.Status
		g.StartCore(trap.CoreID(a.at(0)), ptr(&v, null))
		if null {
			return Result{Status: trap.StatusParamPointer.String()}
		}
		return Result{Status: v.String()}
	},
	"StartNonAutosarCore": func(g *trap.Gateway, a args, null bool) Result {
		var v trap.Status
		g.StartNonAutosarCore(trap.CoreID(a.at(0)), ptr(&v, null))
		if null {
			return Result{Status: trap.StatusParamPointer.String()}
		}
		return Result{Status: v.String()}
	},
	"StartOS": func(g *trap.Gateway, a args, _ bool) Result {
		g.StartOS(trap.AppMode(a.at(0)))
		return Result{}
	},

	"CallTrustedFunction": func(g *trap.Gateway, a args, _ bool) Result {
		return result(g.CallTrustedFunction(trap.TrustedFunctionID(a.at(0)), trap.Word(a.at(1))))
	},

	"ServiceReturn": func(g *trap.Gateway, _ args, _ bool) Result {
		g.ServiceReturn()
		return Result{}
	},
	"ISREpilogue": func(g *trap.Gateway, _ args, _ bool) Result {
		g.ISREpilogue()
		return Result{}
	},
	"MissingTerminateTask": func(g *trap.Gateway, _ args, _ bool) Result {
		g.MissingTerminateTask()
		return Result{}
	},
	"HookReturn": func(g *trap.Gateway, _ args, _ bool) Result {
		g.HookReturn()
		return Result{}
	},
}

// host steps act on the simulated machine rather than call a service.
var host = map[string]func(k *Kernel, a args) (Result, error){
	// args: task id, privileged
	"Enter": func(k *Kernel, a args) (Result, error) {
		id := trap.TaskID(a.at(0))
		t := k.sys.task(id)
		if t == nil {
			return Result{}, fmt.Errorf("no task %d", id)
		}
		return Result{}, k.Enter(t.name, a.at(1) != 0)
	},
	// args: isr id; raises the line and takes the interrupt if it can
	"Interrupt": func(k *Kernel, a args) (Result, error) {
		id := trap.ISRID(a.at(0))
		if k.sys.isr(id) == nil {
			return Result{}, fmt.Errorf("no isr %d", id)
		}
		k.sys.pic.Raise(uint32(id))
		return values(k.EnterISR(id)), nil
	},
}

// Exec runs one step on this core through its gateway.
func (k *Kernel) Exec(s Step) (Result, error) {
	if h, ok := host[s.Call]; ok {
		r, err := h(k, args(s.Args))
		r.Call = s.Call
		return r, err
	}
	f, ok := invokers[s.Call]
	if !ok {
		return Result{}, fmt.Errorf("unknown call %q", s.Call)
	}
	r := f(k.gw, args(s.Args), s.Nil)
	r.Call = s.Call
	return r, nil
}

// StepNames lists every call a Step may name.
func StepNames() []string {
	var out []string
	for n := range invokers {
		out = append(out, n)
	}
	for n := range host {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
