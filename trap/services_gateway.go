package trap

// Task

func (g *Gateway) ActivateTask(task TaskID) Status {
	ret := g.call(accessWrite, &ActivateTask{Task: task})
	return g.report(TagActivateTask, Status(ret), Word(task))
}

func (g *Gateway) TerminateTask() Status {
	return g.report(TagTerminateTask, Status(g.call(accessWrite, &TerminateTask{})))
}

func (g *Gateway) ChainTask(task TaskID) Status {
	ret := g.call(accessWrite, &ChainTask{Task: task})
	return g.report(TagChainTask, Status(ret), Word(task))
}

func (g *Gateway) Schedule() Status {
	return g.report(TagSchedule, Status(g.call(accessWrite, &Schedule{})))
}

func (g *Gateway) GetTaskID(task *TaskID) Status {
	if task == nil {
		return g.report(TagGetTaskID, StatusParamPointer)
	}
	ret := withShadow(g, accessRead, false, task, func(o *TaskID) Call {
		return &GetTaskID{Out: o}
	})
	return g.report(TagGetTaskID, Status(ret))
}

func (g *Gateway) GetTaskState(task TaskID, state *TaskState) Status {
	if state == nil {
		return g.report(TagGetTaskState, StatusParamPointer, Word(task))
	}
	ret := withShadow(g, accessRead, false, state, func(o *TaskState) Call {
		return &GetTaskState{Task: task, Out: o}
	})
	return g.report(TagGetTaskState, Status(ret), Word(task))
}

// Event

func (g *Gateway) SetEvent(task TaskID, mask EventMask) Status {
	ret := g.call(accessWrite, &SetEvent{Task: task, Mask: mask})
	return g.report(TagSetEvent, Status(ret), Word(task), Word(mask))
}

func (g *Gateway) ClearEvent(mask EventMask) Status {
	ret := g.call(accessWrite, &ClearEvent{Mask: mask})
	return g.report(TagClearEvent, Status(ret), Word(mask))
}

func (g *Gateway) GetEvent(task TaskID, mask *EventMask) Status {
	if mask == nil {
		return g.report(TagGetEvent, StatusParamPointer, Word(task))
	}
	ret := withShadow(g, accessRead, false, mask, func(o *EventMask) Call {
		return &GetEvent{Task: task, Out: o}
	})
	return g.report(TagGetEvent, Status(ret), Word(task))
}

func (g *Gateway) WaitEvent(mask EventMask) Status {
	ret := g.call(accessWrite, &WaitEvent{Mask: mask})
	return g.report(TagWaitEvent, Status(ret), Word(mask))
}

// Resource

func (g *Gateway) GetResource(res ResourceID) Status {
	ret := g.call(accessWrite, &GetResource{Resource: res})
	return g.report(TagGetResource, Status(ret), Word(res))
}

func (g *Gateway) ReleaseResource(res ResourceID) Status {
	ret := g.call(accessWrite, &ReleaseResource{Resource: res})
	return g.report(TagReleaseResource, Status(ret), Word(res))
}

// Alarm

func (g *Gateway) GetAlarmBase(alarm AlarmID, base *AlarmBase) Status {
	if base == nil {
		return g.report(TagGetAlarmBase, StatusParamPointer, Word(alarm))
	}
	ret := withShadow(g, accessRead, false, base, func(o *AlarmBase) Call {
		return &GetAlarmBase{Alarm: alarm, Out: o}
	})
	return g.report(TagGetAlarmBase, Status(ret), Word(alarm))
}

func (g *Gateway) GetAlarm(alarm AlarmID, tick *Tick) Status {
	if tick == nil {
		return g.report(TagGetAlarm, StatusParamPointer, Word(alarm))
	}
	ret := withShadow(g, accessRead, false, tick, func(o *Tick) Call {
		return &GetAlarm{Alarm: alarm, Out: o}
	})
	return g.report(TagGetAlarm, Status(ret), Word(alarm))
}

func (g *Gateway) SetRelAlarm(alarm AlarmID, increment, cycle Tick) Status {
	ret := g.call(accessWrite, &SetRelAlarm{Alarm: alarm, Increment: increment, Cycle: cycle})
	return g.report(TagSetRelAlarm, Status(ret), Word(alarm), Word(increment), Word(cycle))
}

func (g *Gateway) SetAbsAlarm(alarm AlarmID, start, cycle Tick) Status {
	ret := g.call(accessWrite, &SetAbsAlarm{Alarm: alarm, Start: start, Cycle: cycle})
	return g.report(TagSetAbsAlarm, Status(ret), Word(alarm), Word(start), Word(cycle))
}

func (g *Gateway) CancelAlarm(alarm AlarmID) Status {
	ret := g.call(accessWrite, &CancelAlarm{Alarm: alarm})
	return g.report(TagCancelAlarm, Status(ret), Word(alarm))
}

// Counter

func (g *Gateway) IncrementCounter(counter CounterID) Status {
	ret := g.call(accessWrite, &IncrementCounter{Counter: counter})
	return g.report(TagIncrementCounter, Status(ret), Word(counter))
}

func (g *Gateway) GetCounterValue(counter CounterID, value *Tick) Status {
	if value == nil {
		return g.report(TagGetCounterValue, StatusParamPointer, Word(counter))
	}
	ret := withShadow(g, accessRead, false, value, func(o *Tick) Call {
		return &GetCounterValue{Counter: counter, Out: o}
	})
	return g.report(TagGetCounterValue, Status(ret), Word(counter))
}

// GetElapsedValue takes the previously read counter value in value and
// replaces it with the current one.
func (g *Gateway) GetElapsedValue(counter CounterID, value, elapsed *Tick) Status {
	if value == nil || elapsed == nil {
		return g.report(TagGetElapsedValue, StatusParamPointer, Word(counter))
	}
	if !g.needTrap(accessRead, TagGetElapsedValue, false) {
		ret := execute(g.k, &GetElapsedValue{Counter: counter, Value: value, Elapsed: elapsed})
		return g.report(TagGetElapsedValue, Status(ret), Word(counter))
	}
	v, e := *value, *elapsed
	p := Packet{Call: &GetElapsedValue{Counter: counter, Value: &v, Elapsed: &e}}
	g.t.Trap(&p)
	*value, *elapsed = v, e
	return g.report(TagGetElapsedValue, Status(p.Ret), Word(counter))
}

// Interrupt

func (g *Gateway) EnableAllInterrupts() {
	g.call(accessWrite, &EnableAllInterrupts{})
}

func (g *Gateway) DisableAllInterrupts() {
	g.call(accessWrite, &DisableAllInterrupts{})
}

func (g *Gateway) ResumeAllInterrupts() {
	g.call(accessWrite, &ResumeAllInterrupts{})
}

func (g *Gateway) SuspendAllInterrupts() {
	g.call(accessWrite, &SuspendAllInterrupts{})
}

func (g *Gateway) ResumeOSInterrupts() {
	g.call(accessWrite, &ResumeOSInterrupts{})
}

func (g *Gateway) SuspendOSInterrupts() {
	g.call(accessWrite, &SuspendOSInterrupts{})
}

func (g *Gateway) EnableInterruptSource(isr ISRID, clearPending bool) Status {
	ret := g.call(accessWrite, &EnableInterruptSource{ISR: isr, ClearPending: clearPending})
	cp := Word(0)
	if clearPending {
		cp = 1
	}
	return g.report(TagEnableInterruptSource, Status(ret), Word(isr), cp)
}

func (g *Gateway) DisableInterruptSource(isr ISRID) Status {
	ret := g.call(accessWrite, &DisableInterruptSource{ISR: isr})
	return g.report(TagDisableInterruptSource, Status(ret), Word(isr))
}

func (g *Gateway) ClearPendingInterrupt(isr ISRID) Status {
	ret := g.call(accessWrite, &ClearPendingInterrupt{ISR: isr})
	return g.report(TagClearPendingInterrupt, Status(ret), Word(isr))
}

func (g *Gateway) GetISRID() ISRID {
	return ISRID(g.call(accessAlways, &GetISRID{}))
}

// Schedule table

func (g *Gateway) StartScheduleTableRel(st ScheduleTableID, offset Tick) Status {
	ret := g.call(accessWrite, &StartScheduleTableRel{Table: st, Offset: offset})
	return g.report(TagStartScheduleTableRel, Status(ret), Word(st), Word(offset))
}

func (g *Gateway) StartScheduleTableAbs(st ScheduleTableID, start Tick) Status {
	ret := g.call(accessWrite, &StartScheduleTableAbs{Table: st, Start: start})
	return g.report(TagStartScheduleTableAbs, Status(ret), Word(st), Word(start))
}

func (g *Gateway) StopScheduleTable(st ScheduleTableID) Status {
	ret := g.call(accessWrite, &StopScheduleTable{Table: st})
	return g.report(TagStopScheduleTable, Status(ret), Word(st))
}

func (g *Gateway) NextScheduleTable(from, to ScheduleTableID) Status {
	ret := g.call(accessWrite, &NextScheduleTable{From: from, To: to})
	return g.report(TagNextScheduleTable, Status(ret), Word(from), Word(to))
}

func (g *Gateway) SyncScheduleTable(st ScheduleTableID, value Tick) Status {
	ret := g.call(accessWrite, &SyncScheduleTable{Table: st, Value: value})
	return g.report(TagSyncScheduleTable, Status(ret), Word(st), Word(value))
}

func (g *Gateway) SetScheduleTableAsync(st ScheduleTableID) Status {
	ret := g.call(accessWrite, &SetScheduleTableAsync{Table: st})
	return g.report(TagSetScheduleTableAsync, Status(ret), Word(st))
}

func (g *Gateway) GetScheduleTableStatus(st ScheduleTableID, status *ScheduleTableStatus) Status {
	if status == nil {
		return g.report(TagGetScheduleTableStatus, StatusParamPointer, Word(st))
	}
	ret := withShadow(g, accessRead, false, status, func(o *ScheduleTableStatus) Call {
		return &GetScheduleTableStatus{Table: st, Out: o}
	})
	return g.report(TagGetScheduleTableStatus, Status(ret), Word(st))
}

// Spinlock

func (g *Gateway) GetSpinlock(lock SpinlockID) Status {
	ret := g.call(accessWrite, &GetSpinlock{Lock: lock})
	return g.report(TagGetSpinlock, Status(ret), Word(lock))
}

func (g *Gateway) ReleaseSpinlock(lock SpinlockID) Status {
	ret := g.call(accessWrite, &ReleaseSpinlock{Lock: lock})
	return g.report(TagReleaseSpinlock, Status(ret), Word(lock))
}

func (g *Gateway) TryToGetSpinlock(lock SpinlockID, success *TryToGetSpinlockType) Status {
	if success == nil {
		return g.report(TagTryToGetSpinlock, StatusParamPointer, Word(lock))
	}
	ret := withShadow(g, accessWrite, false, success, func(o *TryToGetSpinlockType) Call {
		return &TryToGetSpinlock{Lock: lock, Out: o}
	})
	return g.report(TagTryToGetSpinlock, Status(ret), Word(lock))
}

// IOC

func (g *Gateway) IocSend(ch ChannelID, value Word) Status {
	ret := g.exec(g.needTrap(accessExplicit, TagIocSend, g.crossing(ch)), &IocSend{Channel: ch, Value: value})
	return g.report(TagIocSend, Status(ret), Word(ch), value)
}

func (g *Gateway) IocReceive(ch ChannelID, value *Word) Status {
	if value == nil {
		return g.report(TagIocReceive, StatusParamPointer, Word(ch))
	}
	ret := withShadow(g, accessExplicit, g.crossing(ch), value, func(o *Word) Call {
		return &IocReceive{Channel: ch, Out: o}
	})
	return g.report(TagIocReceive, Status(ret), Word(ch))
}

func (g *Gateway) IocEmptyQueue(ch ChannelID) Status {
	ret := g.exec(g.needTrap(accessExplicit, TagIocEmptyQueue, g.crossing(ch)), &IocEmptyQueue{Channel: ch})
	return g.report(TagIocEmptyQueue, Status(ret), Word(ch))
}

// Peripheral

func (g *Gateway) ReadPeripheral8(area AreaID, addr uintptr, v *uint8) Status {
	return readVia(g, area, addr, v)
}

func (g *Gateway) ReadPeripheral16(area AreaID, addr uintptr, v *uint16) Status {
	return readVia(g, area, addr, v)
}

func (g *Gateway) ReadPeripheral32(area AreaID, addr uintptr, v *uint32) Status {
	return readVia(g, area, addr, v)
}

func (g *Gateway) WritePeripheral8(area AreaID, addr uintptr, v uint8) Status {
	return writeVia(g, area, addr, v)
}

func (g *Gateway) WritePeripheral16(area AreaID, addr uintptr, v uint16) Status {
	return writeVia(g, area, addr, v)
}

func (g *Gateway) WritePeripheral32(area AreaID, addr uintptr, v uint32) Status {
	return writeVia(g, area, addr, v)
}

func (g *Gateway) ModifyPeripheral8(area AreaID, addr uintptr, clear, set uint8) Status {
	return modifyVia(g, area, addr, clear, set)
}

func (g *Gateway) ModifyPeripheral16(area AreaID, addr uintptr, clear, set uint16) Status {
	return modifyVia(g, area, addr, clear, set)
}

func (g *Gateway) ModifyPeripheral32(area AreaID, addr uintptr, clear, set uint32) Status {
	return modifyVia(g, area, addr, clear, set)
}

// Diagnostic

func (g *Gateway) GetApplicationID() AppID {
	return AppID(g.call(accessAlways, &GetApplicationID{}))
}

func (g *Gateway) GetCurrentApplicationID() AppID {
	return AppID(g.call(accessAlways, &GetCurrentApplicationID{}))
}

// GetCoreID is answered from the core's view when the platform exposes the
// core id to user mode.
func (g *Gateway) GetCoreID() CoreID {
	caps := g.cls.Capabilities()
	if caps.CoreIDReadable {
		return g.view.ID()
	}
	return CoreID(g.exec(caps.MemoryProtection, &GetCoreID{}))
}

func (g *Gateway) GetNumberOfActivatedCores() uint32 {
	return uint32(g.call(accessRead, &GetNumberOfActivatedCores{}))
}

func (g *Gateway) GetActiveApplicationMode() AppMode {
	return AppMode(g.call(accessRead, &GetActiveApplicationMode{}))
}

func (g *Gateway) CheckObjectOwnership(typ ObjectType, object uint32) AppID {
	return AppID(g.call(accessRead, &CheckObjectOwnership{Type: typ, Object: object}))
}

func (g *Gateway) CheckObjectAccess(app AppID, typ ObjectType, object uint32) ObjectAccess {
	return ObjectAccess(g.call(accessRead, &CheckObjectAccess{App: app, Type: typ, Object: object}))
}

func (g *Gateway) CheckISRMemoryAccess(isr ISRID, addr MemoryAddress, size MemorySize) AccessType {
	return AccessType(g.call(accessRead, &CheckISRMemoryAccess{ISR: isr, Address: addr, Size: size}))
}

func (g *Gateway) CheckTaskMemoryAccess(task TaskID, addr MemoryAddress, size MemorySize) AccessType {
	return AccessType(g.call(accessRead, &CheckTaskMemoryAccess{Task: task, Address: addr, Size: size}))
}

// Application

func (g *Gateway) TerminateApplication(app AppID, restart RestartOption) Status {
	ret := g.call(accessWrite, &TerminateApplication{App: app, Restart: restart})
	return g.report(TagTerminateApplication, Status(ret), Word(app), Word(restart))
}

func (g *Gateway) AllowAccess() Status {
	return g.report(TagAllowAccess, Status(g.call(accessWrite, &AllowAccess{})))
}

func (g *Gateway) GetApplicationState(app AppID, state *AppState) Status {
	if state == nil {
		return g.report(TagGetApplicationState, StatusParamPointer, Word(app))
	}
	ret := withShadow(g, accessRead, false, state, func(o *AppState) Call {
		return &GetApplicationState{App: app, Out: o}
	})
	return g.report(TagGetApplicationState, Status(ret), Word(app))
}

// Core

func (g *Gateway) ShutdownOS(err Status) {
	g.call(accessWrite, &ShutdownOS{Error: err})
}

func (g *Gateway) ShutdownAllCores(err Status) {
	g.call(accessWrite, &ShutdownAllCores{Error: err})
}

// StartCore, StartNonAutosarCore and StartOS run during startup, before
// the trap vectors exist, and always call the kernel in place.
func (g *Gateway) StartCore(core CoreID, status *Status) {
	if status == nil {
		g.report(TagStartCore, StatusParamPointer, Word(core))
		return
	}
	g.call(accessBoot, &StartCore{Core: core, Out: status})
	g.report(TagStartCore, *status, Word(core))
}

func (g *Gateway) StartNonAutosarCore(core CoreID, status *Status) {
	if status == nil {
		g.report(TagStartNonAutosarCore, StatusParamPointer, Word(core))
		return
	}
	g.call(accessBoot, &StartNonAutosarCore{Core: core, Out: status})
	g.report(TagStartNonAutosarCore, *status, Word(core))
}

func (g *Gateway) StartOS(mode AppMode) {
	g.call(accessBoot, &StartOS{Mode: mode})
}

// Trusted functions

func (g *Gateway) CallTrustedFunction(fn TrustedFunctionID, arg Word) Status {
	ret := g.call(accessWrite, &CallTrustedFunction{Function: fn, Arg: arg})
	return g.report(TagCallTrustedFunction, Status(ret), Word(fn), arg)
}

// Kernel internal
//
// These never return to the context that called them. The gateway call
// itself does return once the kernel has switched away, and whatever follows
// it runs in the resumed context, not the one that made the call. A caller
// should return right after.

// ServiceReturn leaves the innermost trusted function body.
func (g *Gateway) ServiceReturn() {
	g.noReturn(&ServiceReturn{})
}

// ISREpilogue ends the running ISR.
func (g *Gateway) ISREpilogue() {
	g.noReturn(&ISREpilogue{})
}

func (g *Gateway) MissingTerminateTask() {
	g.noReturn(&MissingTerminateTask{})
}

// HookReturn leaves the running hook.
func (g *Gateway) HookReturn() {
	g.noReturn(&HookReturn{})
}
