package trap

import (
	"fmt"

	"github.com/ziyangfu/ostemp-sub000/klog"
)

// KernelPanic is the panic value for broken kernel invariants: a trap taken
// without memory protection, an unknown call, a non-returning service that
// returned. None of them can be handled by the application.
type KernelPanic struct {
	Tag    Tag
	Reason string
}

func (p *KernelPanic) Error() string {
	return fmt.Sprintf("kernel panic in %s: %s", p.Tag, p.Reason)
}

func kernelPanic(tag Tag, reason string) {
	klog.Fatalf("kernel panic in %s: %s", tag, reason)
	panic(&KernelPanic{Tag: tag, Reason: reason})
}

// Resumed is raised as a panic value by services that never return, once
// the kernel has switched away from the calling context. State is the state
// of the context that runs next.
type Resumed struct {
	State IntState
}

// catchResumed runs f and returns the Resumed it raised, or nil if f
// returned normally. Any other panic keeps unwinding.
func catchResumed(f func()) (r *Resumed) {
	defer func() {
		if v := recover(); v != nil {
			rv, ok := v.(*Resumed)
			if !ok {
				panic(v)
			}
			r = rv
		}
	}()
	f()
	return nil
}

// Dispatcher is the supervisor side of the trap.
type Dispatcher struct {
	protected bool
	k         Services
	hal       HAL
}

func NewDispatcher(caps Capabilities, k Services, hal HAL) *Dispatcher {
	return &Dispatcher{protected: caps.MemoryProtection, k: k, hal: hal}
}

// Enter handles one packet. saved is the caller's state at the moment it
// trapped; services that change interrupt or lock state write the result
// back into it.
func (d *Dispatcher) Enter(p *Packet, saved *IntState) {
	tag := p.Tag()
	if !d.protected {
		kernelPanic(tag, "trap taken with memory protection disabled")
	}
	d.hal.Restore(*saved)
	klog.Tracef("trap %s from %s", p, *saved)

	p.Ret = execute(d.k, p.Call)

	if tag.NoReturn() {
		kernelPanic(tag, "non-returning service returned")
	}
	if tag.PushesState() {
		d.hal.Update(saved)
	}
}

// execute runs the kernel implementation matching c and returns the value
// for the packet's return slot. Output parameters are written only when the
// status says a value was delivered.
func execute(k Services, c Call) Word {
	switch a := c.(type) {
	case *ActivateTask:
		return Word(k.ActivateTask(a.Task))
	case *TerminateTask:
		return Word(k.TerminateTask())
	case *ChainTask:
		return Word(k.ChainTask(a.Task))
	case *Schedule:
		return Word(k.Schedule())
	case *GetTaskID:
		v, st := k.GetTaskID()
		return out(a.Out, v, st)
	case *GetTaskState:
		v, st := k.GetTaskState(a.Task)
		return out(a.Out, v, st)

	case *SetEvent:
		return Word(k.SetEvent(a.Task, a.Mask))
	case *ClearEvent:
		return Word(k.ClearEvent(a.Mask))
	case *GetEvent:
		v, st := k.GetEvent(a.Task)
		return out(a.Out, v, st)
	case *WaitEvent:
		return Word(k.WaitEvent(a.Mask))

	case *GetResource:
		return Word(k.GetResource(a.Resource))
	case *ReleaseResource:
		return Word(k.ReleaseResource(a.Resource))

	case *GetAlarmBase:
		v, st := k.GetAlarmBase(a.Alarm)
		return out(a.Out, v, st)
	case *GetAlarm:
		v, st := k.GetAlarm(a.Alarm)
		return out(a.Out, v, st)
	case *SetRelAlarm:
		return Word(k.SetRelAlarm(a.Alarm, a.Increment, a.Cycle))
	case *SetAbsAlarm:
		return Word(k.SetAbsAlarm(a.Alarm, a.Start, a.Cycle))
	case *CancelAlarm:
		return Word(k.CancelAlarm(a.Alarm))

	case *IncrementCounter:
		return Word(k.IncrementCounter(a.Counter))
	case *GetCounterValue:
		v, st := k.GetCounterValue(a.Counter)
		return out(a.Out, v, st)
	case *GetElapsedValue:
		v, e, st := k.GetElapsedValue(a.Counter, *a.Value)
		if st.Delivered() {
			*a.Value = v
			*a.Elapsed = e
		}
		return Word(st)

	case *EnableAllInterrupts:
		k.EnableAllInterrupts()
	case *DisableAllInterrupts:
		k.DisableAllInterrupts()
	case *ResumeAllInterrupts:
		k.ResumeAllInterrupts()
	case *SuspendAllInterrupts:
		k.SuspendAllInterrupts()
	case *ResumeOSInterrupts:
		k.ResumeOSInterrupts()
	case *SuspendOSInterrupts:
		k.SuspendOSInterrupts()
	case *EnableInterruptSource:
		return Word(k.EnableInterruptSource(a.ISR, a.ClearPending))
	case *DisableInterruptSource:
		return Word(k.DisableInterruptSource(a.ISR))
	case *ClearPendingInterrupt:
		return Word(k.ClearPendingInterrupt(a.ISR))
	case *GetISRID:
		return Word(k.GetISRID())

	case *StartScheduleTableRel:
		return Word(k.StartScheduleTableRel(a.Table, a.Offset))
	case *StartScheduleTableAbs:
		return Word(k.StartScheduleTableAbs(a.Table, a.Start))
	case *StopScheduleTable:
		return Word(k.StopScheduleTable(a.Table))
	case *NextScheduleTable:
		return Word(k.NextScheduleTable(a.From, a.To))
	case *SyncScheduleTable:
		return Word(k.SyncScheduleTable(a.Table, a.Value))
	case *SetScheduleTableAsync:
		return Word(k.SetScheduleTableAsync(a.Table))
	case *GetScheduleTableStatus:
		v, st := k.GetScheduleTableStatus(a.Table)
		return out(a.Out, v, st)

	case *GetSpinlock:
		return Word(k.GetSpinlock(a.Lock))
	case *ReleaseSpinlock:
		return Word(k.ReleaseSpinlock(a.Lock))
	case *TryToGetSpinlock:
		v, st := k.TryToGetSpinlock(a.Lock)
		return out(a.Out, v, st)

	case *IocSend:
		return Word(k.IocSend(a.Channel, a.Value))
	case *IocReceive:
		v, st := k.IocReceive(a.Channel)
		return out(a.Out, v, st)
	case *IocEmptyQueue:
		return Word(k.IocEmptyQueue(a.Channel))

	case *ReadPeripheral[uint8]:
		return readPeripheral(k, a)
	case *ReadPeripheral[uint16]:
		return readPeripheral(k, a)
	case *ReadPeripheral[uint32]:
		return readPeripheral(k, a)
	case *WritePeripheral[uint8]:
		return writePeripheral(k, a)
	case *WritePeripheral[uint16]:
		return writePeripheral(k, a)
	case *WritePeripheral[uint32]:
		return writePeripheral(k, a)
	case *ModifyPeripheral[uint8]:
		return modifyPeripheral(k, a)
	case *ModifyPeripheral[uint16]:
		return modifyPeripheral(k, a)
	case *ModifyPeripheral[uint32]:
		return modifyPeripheral(k, a)

	case *GetApplicationID:
		return Word(k.GetApplicationID())
	case *GetCurrentApplicationID:
		return Word(k.GetCurrentApplicationID())
	case *GetCoreID:
		return Word(k.GetCoreID())
	case *GetNumberOfActivatedCores:
		return Word(k.GetNumberOfActivatedCores())
	case *GetActiveApplicationMode:
		return Word(k.GetActiveApplicationMode())
	case *CheckObjectOwnership:
		return Word(k.CheckObjectOwnership(a.Type, a.Object))
	case *CheckObjectAccess:
		return Word(k.CheckObjectAccess(a.App, a.Type, a.Object))
	case *CheckISRMemoryAccess:
		return Word(k.CheckISRMemoryAccess(a.ISR, a.Address, a.Size))
	case *CheckTaskMemoryAccess:
		return Word(k.CheckTaskMemoryAccess(a.Task, a.Address, a.Size))

	case *TerminateApplication:
		return Word(k.TerminateApplication(a.App, a.Restart))
	case *AllowAccess:
		return Word(k.AllowAccess())
	case *GetApplicationState:
		v, st := k.GetApplicationState(a.App)
		return out(a.Out, v, st)

	case *ShutdownOS:
		k.ShutdownOS(a.Error)
	case *ShutdownAllCores:
		k.ShutdownAllCores(a.Error)
	case *StartCore:
		st := k.StartCore(a.Core)
		*a.Out = st
		return Word(st)
	case *StartNonAutosarCore:
		st := k.StartNonAutosarCore(a.Core)
		*a.Out = st
		return Word(st)
	case *StartOS:
		k.StartOS(a.Mode)

	case *CallTrustedFunction:
		return Word(k.CallTrustedFunction(a.Function, a.Arg))

	case *ServiceReturn:
		k.ServiceReturn()
	case *ISREpilogue:
		k.ISREpilogue()
	case *MissingTerminateTask:
		k.MissingTerminateTask()
	case *HookReturn:
		k.HookReturn()

	default:
		tag := tagNone
		if c != nil {
			tag = c.Tag()
		}
		kernelPanic(tag, fmt.Sprintf("no service for call %T", c))
	}
	return Word(StatusOK)
}

func out[T any](dst *T, v T, st Status) Word {
	if st.Delivered() {
		*dst = v
	}
	return Word(st)
}

func readPeripheral[T Width](k Services, a *ReadPeripheral[T]) Word {
	v, st := k.ReadPeripheral(a.Area, a.Address, widthBits[T]())
	return out(a.Out, T(v), st)
}

func writePeripheral[T Width](k Services, a *WritePeripheral[T]) Word {
	return Word(k.WritePeripheral(a.Area, a.Address, widthBits[T](), uint32(a.Value)))
}

func modifyPeripheral[T Width](k Services, a *ModifyPeripheral[T]) Word {
	return Word(k.ModifyPeripheral(a.Area, a.Address, widthBits[T](), uint32(a.Clear), uint32(a.Set)))
}
