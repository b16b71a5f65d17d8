package kernel

import (
	"fmt"
	"testing"

	"github.com/ziyangfu/ostemp-sub000/trap"
)

func TestOwnershipAndAccess(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	enter(t, k, "worker")
	assertOut(t, do(t, k, "GetApplicationID"), "1")
	assertOut(t, do(t, k, "GetCurrentApplicationID"), "1")
	assertOut(t, do(t, k, "CheckObjectOwnership", uint64(trap.ObjectTask), 0), "0")
	assertOut(t, do(t, k, "CheckObjectOwnership", uint64(trap.ObjectCounter), 1), "1")
	assertOut(t, do(t, k, "CheckObjectOwnership", uint64(trap.ObjectTask), 42), "4294967295")
	assertOut(t, do(t, k, "CheckObjectAccess", 2, uint64(trap.ObjectTask), 1), "1")
	assertOut(t, do(t, k, "CheckObjectAccess", 2, uint64(trap.ObjectISR), 0), "0")
	assertOut(t, do(t, k, "CheckObjectAccess", 0, uint64(trap.ObjectISR), 0), "1")
	assertOut(t, do(t, k, "CheckObjectAccess", 9, uint64(trap.ObjectTask), 1), "0")
}

func TestMemoryAccess(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	enter(t, k, "worker")
	rws := trap.AccessRead | trap.AccessWrite | trap.AccessStack
	rx := trap.AccessRead | trap.AccessExecute
	rwx := trap.AccessRead | trap.AccessWrite | trap.AccessExecute
	cases := []struct {
		call       string
		id         uint64
		addr, size uint64
		want       trap.AccessType
	}{
		{"CheckTaskMemoryAccess", 1, 0x20000010, 16, rws},
		{"CheckTaskMemoryAccess", 1, 0x20000ff0, 0x20, 0},
		{"CheckTaskMemoryAccess", 1, 0x20001000, 4, 0},
		{"CheckTaskMemoryAccess", 4, 0x20001000, 4, trap.AccessRead | trap.AccessWrite},
		{"CheckTaskMemoryAccess", 0, 0x12345678, 4, rwx},
		{"CheckTaskMemoryAccess", 42, 0x20000000, 4, 0},
		{"CheckISRMemoryAccess", 0, 0x08000100, 4, rx},
		{"CheckISRMemoryAccess", 7, 0x08000100, 4, 0},
	}
	for _, c := range cases {
		r := do(t, k, c.call, c.id, c.addr, c.size)
		assertOut(t, r, fmt.Sprint(c.want))
	}
}

func TestTerminateApplication(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	enter(t, k, "worker")
	expect(t, k, "E_OK", "SetRelAlarm", 0, 5, 0)
	expect(t, k, "E_OK", "ActivateTask", 2)
	expect(t, k, "E_OK", "StartScheduleTableRel", 0, 3)
	expect(t, k, "E_OK", "EnableInterruptSource", 0, 0)
	assertOut(t, expect(t, k, "E_OK", "GetApplicationState", 1), "0")
	expect(t, k, "E_OS_ID", "GetApplicationState", 5)

	expect(t, k, "E_OS_ACCESS", "TerminateApplication", 0, 0)
	expect(t, k, "E_OS_VALUE", "TerminateApplication", 1, 2)
	expect(t, k, "E_OS_ACCESS", "TerminateApplication", 2, 1)

	expect(t, k, "E_OK", "TerminateApplication", 1, 1)
	assertRunning(t, k, "restart_a")
	assertTask(t, s, "worker", trap.TaskSuspended)
	assertTask(t, s, "logger", trap.TaskSuspended)
	assertOut(t, expect(t, k, "E_OK", "GetApplicationState", 1), "1")
	expect(t, k, "E_OS_NOFUNC", "GetAlarm", 0)
	assertOut(t, expect(t, k, "E_OK", "GetScheduleTableStatus", 0), "0")
	if s.PIC().Enabled(0) {
		t.Fatalf("timer still enabled\n")
	}

	// others cannot use the objects of a restarting application
	enter(t, s.Core(1), "remote")
	expect(t, s.Core(1), "E_OS_ACCESS", "GetTaskState", 1)

	expect(t, k, "E_OK", "AllowAccess")
	assertOut(t, expect(t, k, "E_OK", "GetApplicationState", 1), "0")
	expect(t, k, "E_OS_STATE", "AllowAccess")
	assertOut(t, expect(t, s.Core(1), "E_OK", "GetTaskState", 1), "SUSPENDED")

	expect(t, k, "E_OK", "TerminateApplication", 1, 0)
	assertRunning(t, k, "-")
	assertOut(t, expect(t, k, "E_OK", "GetApplicationState", 1), "2")
	expect(t, k, "E_OS_STATE", "TerminateApplication", 1, 0)
	assertOut(t, do(t, k, "GetApplicationID"), "4294967295")
	// app_b has no restart task
	expect(t, k, "E_OS_VALUE", "TerminateApplication", 2, 1)
}

func TestTrustedFunction(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	var inside []trap.AppID
	var after string
	err := s.Bind("set_level", func(k *Kernel, arg trap.Word) trap.Status {
		g := k.Gateway()
		inside = append(inside, g.GetApplicationID(), g.GetCurrentApplicationID())
		g.SuspendOSInterrupts()
		switch arg {
		case 0:
			return trap.StatusValue
		case 2:
			g.ServiceReturn()
			// the caller is already resumed
			after = fmt.Sprintf("%s %d", k.Core().Thread().Name, g.GetCurrentApplicationID())
		}
		return trap.StatusOK
	})
	if err != nil {
		t.Fatalf("Bind: %v\n", err)
	}
	enter(t, k, "worker")
	expect(t, k, "E_OK", "CallTrustedFunction", 0, 1)
	if len(inside) != 2 || inside[0] != 1 || inside[1] != 0 {
		t.Fatalf("inside the function: %v\n", inside)
	}
	// the interrupt state the function left reaches the caller
	assertFlag(t, k, trap.OSSuspendedFlag, true)
	assertFlag(t, k, trap.PrivilegedFlag, false)
	assertRunning(t, k, "worker")
	assertOut(t, do(t, k, "GetCurrentApplicationID"), "1")

	expect(t, k, "E_OS_VALUE", "CallTrustedFunction", 0, 0)
	expect(t, k, "E_OK", "CallTrustedFunction", 0, 2)
	if after != "worker 1" {
		t.Fatalf("after ServiceReturn the body runs as %q\n", after)
	}
	assertRunning(t, k, "worker")
	if len(k.frames) != 0 {
		t.Fatalf("%d frames left\n", len(k.frames))
	}
	expect(t, k, "E_OS_SERVICEID", "CallTrustedFunction", 1, 0)
	expect(t, k, "E_OS_SERVICEID", "CallTrustedFunction", 7, 0)
}
