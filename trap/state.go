package trap

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// IntState is the privilege and interrupt snapshot of one execution
// context. It is copied by value across the trap boundary.
//
// The low byte is the priority mask level: sources at or below it are held
// off. Resources with a ceiling raise it.
type IntState uint32

const (
	LevelMask        = IntState(0xff)
	PrivilegedFlag   = IntState(1) << 8
	AllDisabledFlag  = IntState(1) << 9
	AllSuspendedFlag = IntState(1) << 10
	OSSuspendedFlag  = IntState(1) << 11
)

func (s *IntState) SetVal(flag IntState, value bool) {
	if value {
		s.Set(flag)
	} else {
		s.Unset(flag)
	}
}

func (s *IntState) Set(flag IntState) {
	*s |= flag
}

func (s *IntState) Unset(flag IntState) {
	*s &^= flag
}

func (s IntState) IsEnable(flag IntState) bool {
	return s&flag == flag
}

func (s IntState) Level() uint8 {
	return uint8(s & LevelMask)
}

func (s *IntState) SetLevel(level uint8) {
	*s = (*s &^ LevelMask) | IntState(level)
}

// Masks reports whether a source of the given priority is held off. OS
// sources are category 2 interrupts, the ones that may call the kernel.
func (s IntState) Masks(priority uint8, os bool) bool {
	if s.IsEnable(AllDisabledFlag) || s.IsEnable(AllSuspendedFlag) {
		return true
	}
	if os && s.IsEnable(OSSuspendedFlag) {
		return true
	}
	return priority <= s.Level()
}

func (s IntState) String() string {
	str := fmt.Sprintf("LVL=%d", s.Level())
	if s.IsEnable(PrivilegedFlag) {
		str += " PRIV"
	}
	if s.IsEnable(AllDisabledFlag) {
		str += " DIS"
	}
	if s.IsEnable(AllSuspendedFlag) {
		str += " SUSALL"
	}
	if s.IsEnable(OSSuspendedFlag) {
		str += " SUSOS"
	}
	return str
}

func (s IntState) Dump(w io.Writer) {
	color.New(color.FgCyan).Fprintf(w, "INTSTATE=%s\n", s)
}
