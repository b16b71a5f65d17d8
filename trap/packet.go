package trap

import "fmt"

// MaxParams is the number of parameter slots a packet carries.
const MaxParams = 4

// Call is the parameter block of one service. The concrete type decides
// the tag, so the marshaling side and the dispatcher cannot disagree about
// which fields are live. Pointer fields are output parameters; they always
// point at storage the gateway owns for the duration of the trap.
type Call interface {
	Tag() Tag
}

// Packet crosses the privilege boundary. It lives on the gateway's stack for
// exactly one trap.
type Packet struct {
	Call Call
	Ret  Word
}

func (p *Packet) Tag() Tag {
	if p.Call == nil {
		return tagNone
	}
	return p.Call.Tag()
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s%+v ret=%d", p.Tag(), p.Call, p.Ret)
}

// Task

type ActivateTask struct{ Task TaskID }
type TerminateTask struct{}
type ChainTask struct{ Task TaskID }
type Schedule struct{}
type GetTaskID struct{ Out *TaskID }
type GetTaskState struct {
	Task TaskID
	Out  *TaskState
}

func (*ActivateTask) Tag() Tag  { return TagActivateTask }
func (*TerminateTask) Tag() Tag { return TagTerminateTask }
func (*ChainTask) Tag() Tag     { return TagChainTask }
func (*Schedule) Tag() Tag      { return TagSchedule }
func (*GetTaskID) Tag() Tag     { return TagGetTaskID }
func (*GetTaskState) Tag() Tag  { return TagGetTaskState }

// Event

type SetEvent struct {
	Task TaskID
	Mask EventMask
}
type ClearEvent struct{ Mask EventMask }
type GetEvent struct {
	Task TaskID
	Out  *EventMask
}
type WaitEvent struct{ Mask EventMask }

func (*SetEvent) Tag() Tag   { return TagSetEvent }
func (*ClearEvent) Tag() Tag { return TagClearEvent }
func (*GetEvent) Tag() Tag   { return TagGetEvent }
func (*WaitEvent) Tag() Tag  { return TagWaitEvent }

// Resource

type GetResource struct{ Resource ResourceID }
type ReleaseResource struct{ Resource ResourceID }

func (*GetResource) Tag() Tag     { return TagGetResource }
func (*ReleaseResource) Tag() Tag { return TagReleaseResource }

// Alarm

type GetAlarmBase struct {
	Alarm AlarmID
	Out   *AlarmBase
}
type GetAlarm struct {
	Alarm AlarmID
	Out   *Tick
}
type SetRelAlarm struct {
	Alarm     AlarmID
	Increment Tick
	Cycle     Tick
}
type SetAbsAlarm struct {
	Alarm AlarmID
	Start Tick
	Cycle Tick
}
type CancelAlarm struct{ Alarm AlarmID }

func (*GetAlarmBase) Tag() Tag { return TagGetAlarmBase }
func (*GetAlarm) Tag() Tag     { return TagGetAlarm }
func (*SetRelAlarm) Tag() Tag  { return TagSetRelAlarm }
func (*SetAbsAlarm) Tag() Tag  { return TagSetAbsAlarm }
func (*CancelAlarm) Tag() Tag  { return TagCancelAlarm }

// Counter

type IncrementCounter struct{ Counter CounterID }
type GetCounterValue struct {
	Counter CounterID
	Out     *Tick
}

// GetElapsedValue reads the previous value from Value and overwrites it with
// the current one.
type GetElapsedValue struct {
	Counter CounterID
	Value   *Tick
	Elapsed *Tick
}

func (*IncrementCounter) Tag() Tag { return TagIncrementCounter }
func (*GetCounterValue) Tag() Tag  { return TagGetCounterValue }
func (*GetElapsedValue) Tag() Tag  { return TagGetElapsedValue }

// Interrupt

type EnableAllInterrupts struct{}
type DisableAllInterrupts struct{}
type ResumeAllInterrupts struct{}
type SuspendAllInterrupts struct{}
type ResumeOSInterrupts struct{}
type SuspendOSInterrupts struct{}
type EnableInterruptSource struct {
	ISR          ISRID
	ClearPending bool
}
type DisableInterruptSource struct{ ISR ISRID }
type ClearPendingInterrupt struct{ ISR ISRID }
type GetISRID struct{}

func (*EnableAllInterrupts) Tag() Tag    { return TagEnableAllInterrupts }
func (*DisableAllInterrupts) Tag() Tag   { return TagDisableAllInterrupts }
func (*ResumeAllInterrupts) Tag() Tag    { return TagResumeAllInterrupts }
func (*SuspendAllInterrupts) Tag() Tag   { return TagSuspendAllInterrupts }
func (*ResumeOSInterrupts) Tag() Tag     { return TagResumeOSInterrupts }
func (*SuspendOSInterrupts) Tag() Tag    { return TagSuspendOSInterrupts }
func (*EnableInterruptSource) Tag() Tag  { return TagEnableInterruptSource }
func (*DisableInterruptSource) Tag() Tag { return TagDisableInterruptSource }
func (*ClearPendingInterrupt) Tag() Tag  { return TagClearPendingInterrupt }
func (*GetISRID) Tag() Tag               { return TagGetISRID }

// Schedule table

type StartScheduleTableRel struct {
	Table  ScheduleTableID
	Offset Tick
}
type StartScheduleTableAbs struct {
	Table ScheduleTableID
	Start Tick
}
type StopScheduleTable struct{ Table ScheduleTableID }
type NextScheduleTable struct {
	From ScheduleTableID
	To   ScheduleTableID
}
type SyncScheduleTable struct {
	Table ScheduleTableID
	Value Tick
}
type SetScheduleTableAsync struct{ Table ScheduleTableID }
type GetScheduleTableStatus struct {
	Table ScheduleTableID
	Out   *ScheduleTableStatus
}

func (*StartScheduleTableRel) Tag() Tag  { return TagStartScheduleTableRel }
func (*StartScheduleTableAbs) Tag() Tag  { return TagStartScheduleTableAbs }
func (*StopScheduleTable) Tag() Tag      { return TagStopScheduleTable }
func (*NextScheduleTable) Tag() Tag      { return TagNextScheduleTable }
func (*SyncScheduleTable) Tag() Tag      { return TagSyncScheduleTable }
func (*SetScheduleTableAsync) Tag() Tag  { return TagSetScheduleTableAsync }
func (*GetScheduleTableStatus) Tag() Tag { return TagGetScheduleTableStatus }

// Spinlock

type GetSpinlock struct{ Lock SpinlockID }
type ReleaseSpinlock struct{ Lock SpinlockID }
type TryToGetSpinlock struct {
	Lock SpinlockID
	Out  *TryToGetSpinlockType
}

func (*GetSpinlock) Tag() Tag      { return TagGetSpinlock }
func (*ReleaseSpinlock) Tag() Tag  { return TagReleaseSpinlock }
func (*TryToGetSpinlock) Tag() Tag { return TagTryToGetSpinlock }

// IOC

type IocSend struct {
	Channel ChannelID
	Value   Word
}
type IocReceive struct {
	Channel ChannelID
	Out     *Word
}
type IocEmptyQueue struct{ Channel ChannelID }

func (*IocSend) Tag() Tag       { return TagIocSend }
func (*IocReceive) Tag() Tag    { return TagIocReceive }
func (*IocEmptyQueue) Tag() Tag { return TagIocEmptyQueue }

// Peripheral

// Width is the register width of a peripheral access.
type Width interface {
	uint8 | uint16 | uint32
}

// widthOffset picks the 8, 16 or 32 bit tag of an accessor family.
func widthOffset[T Width]() Tag {
	var v T
	switch any(v).(type) {
	case uint8:
		return 0
	case uint16:
		return 1
	}
	return 2
}

func widthBits[T Width]() int {
	return 8 << widthOffset[T]()
}

type ReadPeripheral[T Width] struct {
	Area    AreaID
	Address uintptr
	Out     *T
}
type WritePeripheral[T Width] struct {
	Area    AreaID
	Address uintptr
	Value   T
}
type ModifyPeripheral[T Width] struct {
	Area    AreaID
	Address uintptr
	Clear   T
	Set     T
}

func (*ReadPeripheral[T]) Tag() Tag   { return TagReadPeripheral8 + widthOffset[T]() }
func (*WritePeripheral[T]) Tag() Tag  { return TagWritePeripheral8 + widthOffset[T]() }
func (*ModifyPeripheral[T]) Tag() Tag { return TagModifyPeripheral8 + widthOffset[T]() }

// Diagnostic

type GetApplicationID struct{}
type GetCurrentApplicationID struct{}
type GetCoreID struct{}
type GetNumberOfActivatedCores struct{}
type GetActiveApplicationMode struct{}
type CheckObjectOwnership struct {
	Type   ObjectType
	Object uint32
}
type CheckObjectAccess struct {
	App    AppID
	Type   ObjectType
	Object uint32
}
type CheckISRMemoryAccess struct {
	ISR     ISRID
	Address MemoryAddress
	Size    MemorySize
}
type CheckTaskMemoryAccess struct {
	Task    TaskID
	Address MemoryAddress
	Size    MemorySize
}

func (*GetApplicationID) Tag() Tag          { return TagGetApplicationID }
func (*GetCurrentApplicationID) Tag() Tag   { return TagGetCurrentApplicationID }
func (*GetCoreID) Tag() Tag                 { return TagGetCoreID }
func (*GetNumberOfActivatedCores) Tag() Tag { return TagGetNumberOfActivatedCores }
func (*GetActiveApplicationMode) Tag() Tag  { return TagGetActiveApplicationMode }
func (*CheckObjectOwnership) Tag() Tag      { return TagCheckObjectOwnership }
func (*CheckObjectAccess) Tag() Tag         { return TagCheckObjectAccess }
func (*CheckISRMemoryAccess) Tag() Tag      { return TagCheckISRMemoryAccess }
func (*CheckTaskMemoryAccess) Tag() Tag     { return TagCheckTaskMemoryAccess }

// Application

type TerminateApplication struct {
	App     AppID
	Restart RestartOption
}
type AllowAccess struct{}
type GetApplicationState struct {
	App AppID
	Out *AppState
}

func (*TerminateApplication) Tag() Tag { return TagTerminateApplication }
func (*AllowAccess) Tag() Tag          { return TagAllowAccess }
func (*GetApplicationState) Tag() Tag  { return TagGetApplicationState }

// Core

type ShutdownOS struct{ Error Status }
type ShutdownAllCores struct{ Error Status }
type StartCore struct {
	Core CoreID
	Out  *Status
}
type StartNonAutosarCore struct {
	Core CoreID
	Out  *Status
}
type StartOS struct{ Mode AppMode }

func (*ShutdownOS) Tag() Tag          { return TagShutdownOS }
func (*ShutdownAllCores) Tag() Tag    { return TagShutdownAllCores }
func (*StartCore) Tag() Tag           { return TagStartCore }
func (*StartNonAutosarCore) Tag() Tag { return TagStartNonAutosarCore }
func (*StartOS) Tag() Tag             { return TagStartOS }

// Trusted functions

type CallTrustedFunction struct {
	Function TrustedFunctionID
	Arg      Word
}

func (*CallTrustedFunction) Tag() Tag { return TagCallTrustedFunction }

// Kernel internal, never returning

type ServiceReturn struct{}
type ISREpilogue struct{}
type MissingTerminateTask struct{}
type HookReturn struct{}

func (*ServiceReturn) Tag() Tag        { return TagServiceReturn }
func (*ISREpilogue) Tag() Tag          { return TagISREpilogue }
func (*MissingTerminateTask) Tag() Tag { return TagMissingTerminateTask }
func (*HookReturn) Tag() Tag           { return TagHookReturn }

// Calls returns one parameter block per tag, in tag order, with every output
// parameter pointing at fresh storage.
func Calls() []Call {
	return []Call{
		&ActivateTask{},
		&TerminateTask{},
		&ChainTask{},
		&Schedule{},
		&GetTaskID{Out: new(TaskID)},
		&GetTaskState{Out: new(TaskState)},
		&SetEvent{},
		&ClearEvent{},
		&GetEvent{Out: new(EventMask)},
		&WaitEvent{},
		&GetResource{},
		&ReleaseResource{},
		&GetAlarmBase{Out: new(AlarmBase)},
		&GetAlarm{Out: new(Tick)},
		&SetRelAlarm{},
		&SetAbsAlarm{},
		&CancelAlarm{},
		&IncrementCounter{},
		&GetCounterValue{Out: new(Tick)},
		&GetElapsedValue{Value: new(Tick), Elapsed: new(Tick)},
		&EnableAllInterrupts{},
		&DisableAllInterrupts{},
		&ResumeAllInterrupts{},
		&SuspendAllInterrupts{},
		&ResumeOSInterrupts{},
		&SuspendOSInterrupts{},
		&EnableInterruptSource{},
		&DisableInterruptSource{},
		&ClearPendingInterrupt{},
		&GetISRID{},
		&StartScheduleTableRel{},
		&StartScheduleTableAbs{},
		&StopScheduleTable{},
		&NextScheduleTable{},
		&SyncScheduleTable{},
		&SetScheduleTableAsync{},
		&GetScheduleTableStatus{Out: new(ScheduleTableStatus)},
		&GetSpinlock{},
		&ReleaseSpinlock{},
		&TryToGetSpinlock{Out: new(TryToGetSpinlockType)},
		&IocSend{},
		&IocReceive{Out: new(Word)},
		&IocEmptyQueue{},
		&ReadPeripheral[uint8]{Out: new(uint8)},
		&ReadPeripheral[uint16]{Out: new(uint16)},
		&ReadPeripheral[uint32]{Out: new(uint32)},
		&WritePeripheral[uint8]{},
		&WritePeripheral[uint16]{},
		&WritePeripheral[uint32]{},
		&ModifyPeripheral[uint8]{},
		&ModifyPeripheral[uint16]{},
		&ModifyPeripheral[uint32]{},
		&GetApplicationID{},
		&GetCurrentApplicationID{},
		&GetCoreID{},
		&GetNumberOfActivatedCores{},
		&GetActiveApplicationMode{},
		&CheckObjectOwnership{},
		&CheckObjectAccess{},
		&CheckISRMemoryAccess{},
		&CheckTaskMemoryAccess{},
		&TerminateApplication{},
		&AllowAccess{},
		&GetApplicationState{Out: new(AppState)},
		&ShutdownOS{},
		&ShutdownAllCores{},
		&StartCore{Out: new(Status)},
		&StartNonAutosarCore{Out: new(Status)},
		&StartOS{},
		&CallTrustedFunction{},
		&ServiceReturn{},
		&ISREpilogue{},
		&MissingTerminateTask{},
		&HookReturn{},
	}
}
