package trap

import "fmt"

// Status is the outcome a service hands back to the application.
type Status uint8

const (
	StatusOK                   Status = 0
	StatusAccess               Status = 1
	StatusCallLevel            Status = 2
	StatusID                   Status = 3
	StatusLimit                Status = 4
	StatusNoFunc               Status = 5
	StatusResource             Status = 6
	StatusState                Status = 7
	StatusValue                Status = 8
	StatusServiceID            Status = 9
	StatusIllegalAddress       Status = 10
	StatusMissingEnd           Status = 11
	StatusDisabledInt          Status = 12
	StatusStackFault           Status = 13
	StatusParamPointer         Status = 14
	StatusProtectionMemory     Status = 15
	StatusProtectionTime       Status = 16
	StatusProtectionArrival    Status = 17
	StatusProtectionLocked     Status = 18
	StatusProtectionException  Status = 19
	StatusSpinlock             Status = 20
	StatusInterferenceDeadlock Status = 21
	StatusNestingDeadlock      Status = 22
	StatusCore                 Status = 23

	// IOC channel outcomes.
	StatusIOCLostData Status = 64
	StatusIOCLimit    Status = 130
	StatusIOCNoData   Status = 131
)

var statusNames = map[Status]string{
	StatusOK:                   "E_OK",
	StatusAccess:               "E_OS_ACCESS",
	StatusCallLevel:            "E_OS_CALLEVEL",
	StatusID:                   "E_OS_ID",
	StatusLimit:                "E_OS_LIMIT",
	StatusNoFunc:               "E_OS_NOFUNC",
	StatusResource:             "E_OS_RESOURCE",
	StatusState:                "E_OS_STATE",
	StatusValue:                "E_OS_VALUE",
	StatusServiceID:            "E_OS_SERVICEID",
	StatusIllegalAddress:       "E_OS_ILLEGAL_ADDRESS",
	StatusMissingEnd:           "E_OS_MISSINGEND",
	StatusDisabledInt:          "E_OS_DISABLEDINT",
	StatusStackFault:           "E_OS_STACKFAULT",
	StatusParamPointer:         "E_OS_PARAM_POINTER",
	StatusProtectionMemory:     "E_OS_PROTECTION_MEMORY",
	StatusProtectionTime:       "E_OS_PROTECTION_TIME",
	StatusProtectionArrival:    "E_OS_PROTECTION_ARRIVAL",
	StatusProtectionLocked:     "E_OS_PROTECTION_LOCKED",
	StatusProtectionException:  "E_OS_PROTECTION_EXCEPTION",
	StatusSpinlock:             "E_OS_SPINLOCK",
	StatusInterferenceDeadlock: "E_OS_INTERFERENCE_DEADLOCK",
	StatusNestingDeadlock:      "E_OS_NESTING_DEADLOCK",
	StatusCore:                 "E_OS_CORE",
	StatusIOCLostData:          "IOC_E_LOST_DATA",
	StatusIOCLimit:             "IOC_E_LIMIT",
	StatusIOCNoData:            "IOC_E_NO_DATA",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("E_UNKNOWN(%d)", uint8(s))
}

// Delivered reports whether output parameters carry a value. IOC_E_LOST_DATA
// still hands out the oldest queued value.
func (s Status) Delivered() bool {
	return s == StatusOK || s == StatusIOCLostData
}

// Err returns nil for StatusOK and a StatusError otherwise, so host code can
// write errors.Is(err, trap.StatusError{Status: trap.StatusLimit}).
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	return StatusError{Status: s}
}

type StatusError struct {
	Status Status
}

func (e StatusError) Error() string {
	return "trap: " + e.Status.String()
}
