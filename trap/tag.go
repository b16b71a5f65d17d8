package trap

// Tag names exactly one kernel service. The set is closed: a packet whose
// call does not map to one of these is a kernel panic.
type Tag uint8

const (
	tagNone Tag = iota

	TagActivateTask
	TagTerminateTask
	TagChainTask
	TagSchedule
	TagGetTaskID
	TagGetTaskState

	TagSetEvent
	TagClearEvent
	TagGetEvent
	TagWaitEvent

	TagGetResource
	TagReleaseResource

	TagGetAlarmBase
	TagGetAlarm
	TagSetRelAlarm
	TagSetAbsAlarm
	TagCancelAlarm

	TagIncrementCounter
	TagGetCounterValue
	TagGetElapsedValue

	TagEnableAllInterrupts
	TagDisableAllInterrupts
	TagResumeAllInterrupts
	TagSuspendAllInterrupts
	TagResumeOSInterrupts
	TagSuspendOSInterrupts
	TagEnableInterruptSource
	TagDisableInterruptSource
	TagClearPendingInterrupt
	TagGetISRID

	TagStartScheduleTableRel
	TagStartScheduleTableAbs
	TagStopScheduleTable
	TagNextScheduleTable
	TagSyncScheduleTable
	TagSetScheduleTableAsync
	TagGetScheduleTableStatus

	TagGetSpinlock
	TagReleaseSpinlock
	TagTryToGetSpinlock

	TagIocSend
	TagIocReceive
	TagIocEmptyQueue

	// the three widths of each accessor are consecutive
	TagReadPeripheral8
	TagReadPeripheral16
	TagReadPeripheral32
	TagWritePeripheral8
	TagWritePeripheral16
	TagWritePeripheral32
	TagModifyPeripheral8
	TagModifyPeripheral16
	TagModifyPeripheral32

	TagGetApplicationID
	TagGetCurrentApplicationID
	TagGetCoreID
	TagGetNumberOfActivatedCores
	TagGetActiveApplicationMode
	TagCheckObjectOwnership
	TagCheckObjectAccess
	TagCheckISRMemoryAccess
	TagCheckTaskMemoryAccess

	TagTerminateApplication
	TagAllowAccess
	TagGetApplicationState

	TagShutdownOS
	TagShutdownAllCores
	TagStartCore
	TagStartNonAutosarCore
	TagStartOS

	TagCallTrustedFunction

	TagServiceReturn
	TagISREpilogue
	TagMissingTerminateTask
	TagHookReturn

	numTags
)

// Class groups tags for tracing.
type Class uint8

const (
	ClassTask Class = iota
	ClassEvent
	ClassResource
	ClassAlarm
	ClassCounter
	ClassInterrupt
	ClassScheduleTable
	ClassSpinlock
	ClassIOC
	ClassPeripheral
	ClassDiagnostic
	ClassApplication
	ClassCore
	ClassTrusted
	ClassKernel
	numClasses
)

var classNames = [numClasses]string{
	"task", "event", "resource", "alarm", "counter", "interrupt",
	"schedule_table", "spinlock", "ioc", "peripheral", "diagnostic",
	"application", "core", "trusted", "kernel",
}

func (c Class) String() string {
	if c < numClasses {
		return classNames[c]
	}
	return "invalid"
}

// ParseClass maps a class name as written in the configuration.
func ParseClass(s string) (Class, bool) {
	for i, n := range classNames {
		if n == s {
			return Class(i), true
		}
	}
	return 0, false
}

// ClassSet is a bit set of classes.
type ClassSet uint32

func (s ClassSet) Has(c Class) bool {
	return s&(1<<c) != 0
}

func (s ClassSet) With(c Class) ClassSet {
	return s | 1<<c
}

type tagInfo struct {
	name  string
	class Class
	// the dispatcher hands the resulting interrupt state back to the caller
	pushState bool
	// the kernel implementation never returns to the dispatcher
	noReturn bool
}

var tags = [numTags]tagInfo{
	TagActivateTask:  {name: "ActivateTask", class: ClassTask},
	TagTerminateTask: {name: "TerminateTask", class: ClassTask},
	TagChainTask:     {name: "ChainTask", class: ClassTask},
	TagSchedule:      {name: "Schedule", class: ClassTask},
	TagGetTaskID:     {name: "GetTaskID", class: ClassTask},
	TagGetTaskState:  {name: "GetTaskState", class: ClassTask},

	TagSetEvent:   {name: "SetEvent", class: ClassEvent},
	TagClearEvent: {name: "ClearEvent", class: ClassEvent},
	TagGetEvent:   {name: "GetEvent", class: ClassEvent},
	TagWaitEvent:  {name: "WaitEvent", class: ClassEvent},

	TagGetResource:     {name: "GetResource", class: ClassResource, pushState: true},
	TagReleaseResource: {name: "ReleaseResource", class: ClassResource, pushState: true},

	TagGetAlarmBase: {name: "GetAlarmBase", class: ClassAlarm},
	TagGetAlarm:     {name: "GetAlarm", class: ClassAlarm},
	TagSetRelAlarm:  {name: "SetRelAlarm", class: ClassAlarm},
	TagSetAbsAlarm:  {name: "SetAbsAlarm", class: ClassAlarm},
	TagCancelAlarm:  {name: "CancelAlarm", class: ClassAlarm},

	TagIncrementCounter: {name: "IncrementCounter", class: ClassCounter},
	TagGetCounterValue:  {name: "GetCounterValue", class: ClassCounter},
	TagGetElapsedValue:  {name: "GetElapsedValue", class: ClassCounter},

	TagEnableAllInterrupts:    {name: "EnableAllInterrupts", class: ClassInterrupt, pushState: true},
	TagDisableAllInterrupts:   {name: "DisableAllInterrupts", class: ClassInterrupt, pushState: true},
	TagResumeAllInterrupts:    {name: "ResumeAllInterrupts", class: ClassInterrupt, pushState: true},
	TagSuspendAllInterrupts:   {name: "SuspendAllInterrupts", class: ClassInterrupt, pushState: true},
	TagResumeOSInterrupts:     {name: "ResumeOSInterrupts", class: ClassInterrupt, pushState: true},
	TagSuspendOSInterrupts:    {name: "SuspendOSInterrupts", class: ClassInterrupt, pushState: true},
	TagEnableInterruptSource:  {name: "EnableInterruptSource", class: ClassInterrupt},
	TagDisableInterruptSource: {name: "DisableInterruptSource", class: ClassInterrupt},
	TagClearPendingInterrupt:  {name: "ClearPendingInterrupt", class: ClassInterrupt},
	TagGetISRID:               {name: "GetISRID", class: ClassInterrupt},

	TagStartScheduleTableRel:  {name: "StartScheduleTableRel", class: ClassScheduleTable},
	TagStartScheduleTableAbs:  {name: "StartScheduleTableAbs", class: ClassScheduleTable},
	TagStopScheduleTable:      {name: "StopScheduleTable", class: ClassScheduleTable},
	TagNextScheduleTable:      {name: "NextScheduleTable", class: ClassScheduleTable},
	TagSyncScheduleTable:      {name: "SyncScheduleTable", class: ClassScheduleTable},
	TagSetScheduleTableAsync:  {name: "SetScheduleTableAsync", class: ClassScheduleTable},
	TagGetScheduleTableStatus: {name: "GetScheduleTableStatus", class: ClassScheduleTable},

	TagGetSpinlock:      {name: "GetSpinlock", class: ClassSpinlock, pushState: true},
	TagReleaseSpinlock:  {name: "ReleaseSpinlock", class: ClassSpinlock, pushState: true},
	TagTryToGetSpinlock: {name: "TryToGetSpinlock", class: ClassSpinlock, pushState: true},

	TagIocSend:       {name: "IocSend", class: ClassIOC},
	TagIocReceive:    {name: "IocReceive", class: ClassIOC},
	TagIocEmptyQueue: {name: "IocEmptyQueue", class: ClassIOC},

	TagReadPeripheral8:    {name: "ReadPeripheral8", class: ClassPeripheral},
	TagReadPeripheral16:   {name: "ReadPeripheral16", class: ClassPeripheral},
	TagReadPeripheral32:   {name: "ReadPeripheral32", class: ClassPeripheral},
	TagWritePeripheral8:   {name: "WritePeripheral8", class: ClassPeripheral},
	TagWritePeripheral16:  {name: "WritePeripheral16", class: ClassPeripheral},
	TagWritePeripheral32:  {name: "WritePeripheral32", class: ClassPeripheral},
	TagModifyPeripheral8:  {name: "ModifyPeripheral8", class: ClassPeripheral},
	TagModifyPeripheral16: {name: "ModifyPeripheral16", class: ClassPeripheral},
	TagModifyPeripheral32: {name: "ModifyPeripheral32", class: ClassPeripheral},

	TagGetApplicationID:          {name: "GetApplicationID", class: ClassDiagnostic},
	TagGetCurrentApplicationID:   {name: "GetCurrentApplicationID", class: ClassDiagnostic},
	TagGetCoreID:                 {name: "GetCoreID", class: ClassDiagnostic},
	TagGetNumberOfActivatedCores: {name: "GetNumberOfActivatedCores", class: ClassDiagnostic},
	TagGetActiveApplicationMode:  {name: "GetActiveApplicationMode", class: ClassDiagnostic},
	TagCheckObjectOwnership:      {name: "CheckObjectOwnership", class: ClassDiagnostic},
	TagCheckObjectAccess:         {name: "CheckObjectAccess", class: ClassDiagnostic},
	TagCheckISRMemoryAccess:      {name: "CheckISRMemoryAccess", class: ClassDiagnostic},
	TagCheckTaskMemoryAccess:     {name: "CheckTaskMemoryAccess", class: ClassDiagnostic},

	TagTerminateApplication: {name: "TerminateApplication", class: ClassApplication},
	TagAllowAccess:          {name: "AllowAccess", class: ClassApplication},
	TagGetApplicationState:  {name: "GetApplicationState", class: ClassApplication},

	TagShutdownOS:          {name: "ShutdownOS", class: ClassCore},
	TagShutdownAllCores:    {name: "ShutdownAllCores", class: ClassCore},
	TagStartCore:           {name: "StartCore", class: ClassCore},
	TagStartNonAutosarCore: {name: "StartNonAutosarCore", class: ClassCore},
	TagStartOS:             {name: "StartOS", class: ClassCore},

	TagCallTrustedFunction: {name: "CallTrustedFunction", class: ClassTrusted, pushState: true},

	TagServiceReturn:        {name: "ServiceReturn", class: ClassKernel, noReturn: true},
	TagISREpilogue:          {name: "ISREpilogue", class: ClassKernel, noReturn: true},
	TagMissingTerminateTask: {name: "MissingTerminateTask", class: ClassKernel, noReturn: true},
	TagHookReturn:           {name: "HookReturn", class: ClassKernel, noReturn: true},
}

func (t Tag) valid() bool {
	return t > tagNone && t < numTags
}

func (t Tag) String() string {
	if t.valid() {
		return tags[t].name
	}
	return "Tag(invalid)"
}

func (t Tag) Class() Class {
	if t.valid() {
		return tags[t].class
	}
	return ClassKernel
}

// PushesState reports whether the service can change the caller's
// interrupt or lock state.
func (t Tag) PushesState() bool {
	return t.valid() && tags[t].pushState
}

// NoReturn reports whether the kernel implementation never returns.
func (t Tag) NoReturn() bool {
	return t.valid() && tags[t].noReturn
}

// Tags lists every valid tag in order.
func Tags() []Tag {
	out := make([]Tag, 0, numTags-1)
	for t := tagNone + 1; t < numTags; t++ {
		out = append(out, t)
	}
	return out
}
