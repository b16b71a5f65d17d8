package trap

// Word is the width of the packet's return slot. Every value a service
// returns besides its output parameters fits in one.
type Word uint32

// Object identifiers. Each is an index into the kernel's configuration.
type (
	TaskID            uint32
	ResourceID        uint32
	AlarmID           uint32
	CounterID         uint32
	ISRID             uint32
	ScheduleTableID   uint32
	SpinlockID        uint32
	ChannelID         uint32
	AreaID            uint32
	AppID             uint32
	CoreID            uint32
	TrustedFunctionID uint32
)

const (
	InvalidTask TaskID = 0xffffffff
	InvalidISR  ISRID  = 0xffffffff
	InvalidApp  AppID  = 0xffffffff
)

type (
	Tick          uint32
	EventMask     uint64
	AppMode       uint32
	MemoryAddress uintptr
	MemorySize    uint32
)

type AlarmBase struct {
	MaxAllowedValue Tick
	TicksPerBase    Tick
	MinCycle        Tick
}

type TaskState uint8

const (
	TaskSuspended TaskState = iota
	TaskReady
	TaskWaiting
	TaskRunning
)

func (s TaskState) String() string {
	switch s {
	case TaskSuspended:
		return "SUSPENDED"
	case TaskReady:
		return "READY"
	case TaskWaiting:
		return "WAITING"
	case TaskRunning:
		return "RUNNING"
	}
	return "INVALID"
}

type ScheduleTableStatus uint8

const (
	ScheduleTableStopped ScheduleTableStatus = iota
	ScheduleTableNext
	ScheduleTableWaiting
	ScheduleTableRunning
	ScheduleTableRunningAndSynchronous
)

type AppState uint8

const (
	AppAccessible AppState = iota
	AppRestarting
	AppTerminated
)

type RestartOption uint8

const (
	NoRestart RestartOption = iota
	Restart
)

type TryToGetSpinlockType uint8

const (
	TryGetSpinlockNoSuccess TryToGetSpinlockType = iota
	TryGetSpinlockSuccess
)

type ObjectType uint8

const (
	ObjectTask ObjectType = iota
	ObjectISR
	ObjectAlarm
	ObjectResource
	ObjectCounter
	ObjectScheduleTable
)

type ObjectAccess uint8

const (
	NoAccess ObjectAccess = iota
	Access
)

// AccessType is a bit set answering a memory access check.
type AccessType uint8

const (
	AccessRead    AccessType = 1 << 0
	AccessWrite   AccessType = 1 << 1
	AccessExecute AccessType = 1 << 2
	AccessStack   AccessType = 1 << 3
)
