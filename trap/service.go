package trap

// Services is the kernel side of every tag, bound to one core. The
// gateway calls it directly when no trap is needed and the dispatcher calls
// it on the supervisor side of a trap.
type Services interface {
	ActivateTask(task TaskID) Status
	TerminateTask() Status
	ChainTask(task TaskID) Status
	Schedule() Status
	GetTaskID() (TaskID, Status)
	GetTaskState(task TaskID) (TaskState, Status)

	SetEvent(task TaskID, mask EventMask) Status
	ClearEvent(mask EventMask) Status
	GetEvent(task TaskID) (EventMask, Status)
	WaitEvent(mask EventMask) Status

	GetResource(res ResourceID) Status
	ReleaseResource(res ResourceID) Status

	GetAlarmBase(alarm AlarmID) (AlarmBase, Status)
	GetAlarm(alarm AlarmID) (Tick, Status)
	SetRelAlarm(alarm AlarmID, increment, cycle Tick) Status
	SetAbsAlarm(alarm AlarmID, start, cycle Tick) Status
	CancelAlarm(alarm AlarmID) Status

	IncrementCounter(counter CounterID) Status
	GetCounterValue(counter CounterID) (Tick, Status)
	GetElapsedValue(counter CounterID, previous Tick) (value, elapsed Tick, st Status)

	EnableAllInterrupts()
	DisableAllInterrupts()
	ResumeAllInterrupts()
	SuspendAllInterrupts()
	ResumeOSInterrupts()
	SuspendOSInterrupts()
	EnableInterruptSource(isr ISRID, clearPending bool) Status
	DisableInterruptSource(isr ISRID) Status
	ClearPendingInterrupt(isr ISRID) Status
	GetISRID() ISRID

	StartScheduleTableRel(st ScheduleTableID, offset Tick) Status
	StartScheduleTableAbs(st ScheduleTableID, start Tick) Status
	StopScheduleTable(st ScheduleTableID) Status
	NextScheduleTable(from, to ScheduleTableID) Status
	SyncScheduleTable(st ScheduleTableID, value Tick) Status
	SetScheduleTableAsync(st ScheduleTableID) Status
	GetScheduleTableStatus(st ScheduleTableID) (ScheduleTableStatus, Status)

	GetSpinlock(lock SpinlockID) Status
	ReleaseSpinlock(lock SpinlockID) Status
	TryToGetSpinlock(lock SpinlockID) (TryToGetSpinlockType, Status)

	IocSend(ch ChannelID, value Word) Status
	IocReceive(ch ChannelID) (Word, Status)
	IocEmptyQueue(ch ChannelID) Status

	// bits is 8, 16 or 32
	ReadPeripheral(area AreaID, addr uintptr, bits int) (uint32, Status)
	WritePeripheral(area AreaID, addr uintptr, bits int, value uint32) Status
	ModifyPeripheral(area AreaID, addr uintptr, bits int, clear, set uint32) Status

	GetApplicationID() AppID
	GetCurrentApplicationID() AppID
	GetCoreID() CoreID
	GetNumberOfActivatedCores() uint32
	GetActiveApplicationMode() AppMode
	CheckObjectOwnership(typ ObjectType, object uint32) AppID
	CheckObjectAccess(app AppID, typ ObjectType, object uint32) ObjectAccess
	CheckISRMemoryAccess(isr ISRID, addr MemoryAddress, size MemorySize) AccessType
	CheckTaskMemoryAccess(task TaskID, addr MemoryAddress, size MemorySize) AccessType

	TerminateApplication(app AppID, restart RestartOption) Status
	AllowAccess() Status
	GetApplicationState(app AppID) (AppState, Status)

	ShutdownOS(err Status)
	ShutdownAllCores(err Status)
	StartCore(core CoreID) Status
	StartNonAutosarCore(core CoreID) Status
	StartOS(mode AppMode)

	CallTrustedFunction(fn TrustedFunctionID, arg Word) Status

	// These never return. An implementation ends by raising *Resumed.
	ServiceReturn()
	ISREpilogue()
	MissingTerminateTask()
	HookReturn()
}
