package kernel

import (
	"testing"

	"github.com/ziyangfu/ostemp-sub000/trap"
)

func tick(t *testing.T, k *Kernel, c uint64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		expect(t, k, "E_OK", "IncrementCounter", c)
	}
}

func TestRelativeAlarm(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	enter(t, k, "init")
	expect(t, k, "E_OK", "SetRelAlarm", 0, 3, 0)
	assertOut(t, expect(t, k, "E_OK", "GetAlarm", 0), "3")
	expect(t, k, "E_OS_STATE", "SetRelAlarm", 0, 3, 0)
	expect(t, k, "E_OS_VALUE", "SetRelAlarm", 1, 0, 0)
	expect(t, k, "E_OS_VALUE", "SetRelAlarm", 1, 100, 0)
	expect(t, k, "E_OS_VALUE", "SetRelAlarm", 1, 5, 1)
	expect(t, k, "E_OS_VALUE", "SetAbsAlarm", 1, 100, 0)
	expect(t, k, "E_OS_ID", "SetRelAlarm", 9, 1, 0)

	tick(t, k, 0, 2)
	assertTask(t, s, "logger", trap.TaskSuspended)
	tick(t, k, 0, 1)
	assertRunning(t, k, "logger")
	assertTask(t, s, "init", trap.TaskReady)
	expect(t, k, "E_OS_NOFUNC", "GetAlarm", 0)
	expect(t, k, "E_OS_NOFUNC", "CancelAlarm", 0)

	assertOut(t, expect(t, k, "E_OK", "GetCounterValue", 0), "3")
	assertOut(t, expect(t, k, "E_OK", "GetElapsedValue", 0, 1), "3", "2")
	expect(t, k, "E_OS_VALUE", "GetElapsedValue", 0, 100)
	assertOut(t, expect(t, k, "E_OK", "GetAlarmBase", 0), "99", "1", "2")
}

func TestCyclicAlarm(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	enter(t, k, "worker")
	expect(t, k, "E_OK", "SetRelAlarm", 2, 1, 2)
	tick(t, k, 0, 5)
	// fired at 1, 3 and 5
	assertOut(t, expect(t, k, "E_OK", "GetCounterValue", 1), "3")
	assertOut(t, expect(t, k, "E_OK", "GetAlarm", 2), "2")
	expect(t, k, "E_OK", "CancelAlarm", 2)
	tick(t, k, 0, 2)
	assertOut(t, expect(t, k, "E_OK", "GetCounterValue", 1), "3")
}

func TestAbsoluteAlarmWraps(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	enter(t, k, "worker")
	tick(t, k, 0, 98)
	// 1 is reached after the wrap at 99
	expect(t, k, "E_OK", "SetAbsAlarm", 0, 1, 0)
	assertOut(t, expect(t, k, "E_OK", "GetAlarm", 0), "3")
	assertOut(t, expect(t, k, "E_OK", "GetElapsedValue", 0, 90), "98", "8")
	tick(t, k, 0, 3)
	assertTask(t, s, "logger", trap.TaskReady)
	assertOut(t, expect(t, k, "E_OK", "GetElapsedValue", 0, 98), "1", "3")
}

func TestAlarmSetsEvent(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	enter(t, k, "worker")
	expect(t, k, "E_OK", "SetRelAlarm", 1, 2, 0)
	expect(t, k, "E_OK", "WaitEvent", 2)
	assertRunning(t, k, "-")
	tick(t, k, 0, 2)
	assertRunning(t, k, "worker")
	assertOut(t, expect(t, k, "E_OK", "GetEvent", 1), "2")
}

func TestCounterAccess(t *testing.T) {
	s := load(t, true)
	k := s.Core(1)
	enter(t, k, "remote")
	// app_b may use the system counter but none of its alarms
	assertOut(t, expect(t, k, "E_OK", "GetCounterValue", 0), "0")
	expect(t, k, "E_OS_ACCESS", "GetCounterValue", 1)
	expect(t, k, "E_OS_ACCESS", "SetRelAlarm", 0, 1, 0)
	expect(t, k, "E_OS_ACCESS", "GetAlarmBase", 0)
	expect(t, k, "E_OS_ID", "IncrementCounter", 5)
}

func TestScheduleTable(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	enter(t, k, "init")
	expect(t, k, "E_OS_VALUE", "StartScheduleTableRel", 0, 0)
	expect(t, k, "E_OK", "StartScheduleTableRel", 0, 1)
	expect(t, k, "E_OS_STATE", "StartScheduleTableRel", 0, 1)
	assertOut(t, expect(t, k, "E_OK", "GetScheduleTableStatus", 0), "3")

	// offset 0 after one tick, the expiry point at 2 two ticks later
	tick(t, k, 0, 2)
	assertTask(t, s, "logger", trap.TaskSuspended)
	tick(t, k, 0, 1)
	assertRunning(t, k, "logger")

	expect(t, k, "E_OS_ID", "SyncScheduleTable", 1, 0)
	expect(t, k, "E_OS_VALUE", "SyncScheduleTable", 0, 10)
	expect(t, k, "E_OK", "SyncScheduleTable", 0, 5)
	assertOut(t, expect(t, k, "E_OK", "GetScheduleTableStatus", 0), "4")
	tick(t, k, 0, 1)
	expect(t, k, "E_OK", "SetScheduleTableAsync", 0)
	assertOut(t, expect(t, k, "E_OK", "GetScheduleTableStatus", 0), "3")

	expect(t, k, "E_OK", "NextScheduleTable", 0, 1)
	assertOut(t, expect(t, k, "E_OK", "GetScheduleTableStatus", 1), "1")
	expect(t, k, "E_OS_STATE", "NextScheduleTable", 0, 1)
	expect(t, k, "E_OS_NOFUNC", "NextScheduleTable", 1, 0)

	// positions 7 to 10, then follow takes over and expires at offset 0
	tick(t, k, 0, 4)
	assertOut(t, expect(t, k, "E_OK", "GetScheduleTableStatus", 0), "0")
	assertOut(t, expect(t, k, "E_OK", "GetScheduleTableStatus", 1), "3")
	if act := s.tasks[2].act; act != 2 {
		t.Fatalf("logger activations = %d, expected 2\n", act)
	}

	expect(t, k, "E_OK", "StopScheduleTable", 1)
	expect(t, k, "E_OS_NOFUNC", "StopScheduleTable", 1)
	expect(t, k, "E_OS_VALUE", "StartScheduleTableAbs", 1, 100)
	expect(t, k, "E_OS_ID", "GetScheduleTableStatus", 7)
}

func TestScheduleTableRepeats(t *testing.T) {
	s := load(t, true)
	k := s.Core(0)
	enter(t, k, "restart_a")
	expect(t, k, "E_OK", "StartScheduleTableAbs", 0, 1)
	// the expiry point at 2 is reached at counter values 3 and 13
	tick(t, k, 0, 3)
	assertTask(t, s, "logger", trap.TaskReady)
	tick(t, k, 0, 10)
	if act := s.tasks[2].act; act != 2 {
		t.Fatalf("logger activations = %d, expected 2\n", act)
	}
	assertOut(t, expect(t, k, "E_OK", "GetScheduleTableStatus", 0), "3")
}
