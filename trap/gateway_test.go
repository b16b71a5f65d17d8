package trap

import "testing"

// recordingTrap forwards to a SoftwareTrap and keeps every packet.
type recordingTrap struct {
	*SoftwareTrap
	packets []Packet
}

func (r *recordingTrap) Trap(p *Packet) {
	r.SoftwareTrap.Trap(p)
	r.packets = append(r.packets, *p)
}

type gatewayStub struct {
	stubKernel
	sent []Word
}

func (k *gatewayStub) IocSend(ch ChannelID, v Word) Status {
	k.sent = append(k.sent, v)
	return StatusOK
}

func newGateway(caps Capabilities, priv bool, opts ...Option) (*Gateway, *gatewayStub, *recordingTrap) {
	core := NewCore(0)
	core.Switch(&Thread{Name: "task", App: userApp}, priv)
	k := &gatewayStub{stubKernel: stubKernel{core: core}}
	rt := &recordingTrap{SoftwareTrap: NewSoftwareTrap(core, NewDispatcher(caps, k, core))}
	return NewGateway(caps, core, k, rt, opts...), k, rt
}

var userMode = Capabilities{MemoryProtection: true, PrivilegedReadable: true}

func TestGatewayNullPointer(t *testing.T) {
	var reported []Status
	rep := ReporterFunc(func(tag Tag, st Status, args ...Word) Status {
		reported = append(reported, st)
		return st
	})
	g, k, rt := newGateway(userMode, false, WithReporter(rep))
	if st := g.GetTaskState(1, nil); st != StatusParamPointer {
		t.Fatalf("GetTaskState(nil) = %s\n", st)
	}
	if st := g.ReadPeripheral16(0, 0x10, nil); st != StatusParamPointer {
		t.Fatalf("ReadPeripheral16(nil) = %s\n", st)
	}
	if rt.Traps() != 0 || len(k.calls) != 0 {
		t.Fatalf("traps = %d, calls = %v\n", rt.Traps(), k.calls)
	}
	if len(reported) != 2 || reported[0] != StatusParamPointer {
		t.Fatalf("reported %v\n", reported)
	}
}

func TestGatewayShadowCopy(t *testing.T) {
	g, _, rt := newGateway(userMode, false)
	state := TaskReady
	if st := g.GetTaskState(1, &state); st != StatusOK {
		t.Fatalf("GetTaskState = %s\n", st)
	}
	if state != TaskWaiting {
		t.Fatalf("state = %s\n", state)
	}
	if rt.Traps() != 1 {
		t.Fatalf("traps = %d\n", rt.Traps())
	}
	out := rt.packets[0].Call.(*GetTaskState).Out
	if out == &state {
		t.Fatalf("caller's pointer crossed the trap\n")
	}

	// failure leaves the caller's storage alone
	state = TaskReady
	if st := g.GetTaskState(9, &state); st != StatusID || state != TaskReady {
		t.Fatalf("GetTaskState(9) = %s, state = %s\n", st, state)
	}
}

func TestGatewayDirectCall(t *testing.T) {
	g, k, rt := newGateway(userMode, true)
	var state TaskState
	g.GetTaskState(1, &state)
	g.DisableAllInterrupts()
	if rt.Traps() != 0 {
		t.Fatalf("privileged caller trapped %d times\n", rt.Traps())
	}
	if state != TaskWaiting || len(k.calls) != 2 {
		t.Fatalf("state = %s, calls = %v\n", state, k.calls)
	}
	if !k.core.State().IsEnable(AllDisabledFlag | PrivilegedFlag) {
		t.Fatalf("state = %s\n", k.core.State())
	}
}

func TestGatewayNoReturn(t *testing.T) {
	g, k, _ := newGateway(Capabilities{}, true)
	g.ISREpilogue()
	assertState(t, "state", k.core.State(), 4)
	expectKernelPanic(t, func() { g.ServiceReturn() })

	g, k, rt := newGateway(userMode, false)
	g.ISREpilogue()
	assertState(t, "state", k.core.State(), 4)
	if rt.Traps() != 1 {
		t.Fatalf("traps = %d\n", rt.Traps())
	}
}

func TestGatewayChannelBoundary(t *testing.T) {
	caps := Capabilities{MemoryProtection: true, ThreadReadable: true}
	local := func(ch ChannelID) bool { return ch != 3 }
	g, k, rt := newGateway(caps, false, WithChannelBoundary(local))
	g.IocSend(3, 30)
	if rt.Traps() != 0 {
		t.Fatalf("local channel trapped\n")
	}
	g.IocSend(1, 10)
	if rt.Traps() != 1 {
		t.Fatalf("crossing channel did not trap\n")
	}
	if len(k.sent) != 2 || k.sent[0] != 30 || k.sent[1] != 10 {
		t.Fatalf("sent %v\n", k.sent)
	}
}

func TestGatewayCoreID(t *testing.T) {
	caps := Capabilities{MemoryProtection: true, CoreIDReadable: true}
	g, _, rt := newGateway(caps, false)
	if g.GetCoreID() != 0 || rt.Traps() != 0 {
		t.Fatalf("core id read from the view should not trap\n")
	}
}
