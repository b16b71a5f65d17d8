package kernel

import (
	"encoding/binary"

	"github.com/ziyangfu/ostemp-sub000/trap"
)

// area is a peripheral area: a window of device registers, modelled as
// little endian memory.
type area struct {
	object
	id   trap.AreaID
	base uintptr
	mem  []byte
}

// register returns the bytes of the register at addr.
func (a *area) register(addr uintptr, bits int) ([]byte, trap.Status) {
	n := uintptr(bits / 8)
	if addr < a.base || addr%n != 0 {
		return nil, trap.StatusValue
	}
	off := addr - a.base
	if off+n > uintptr(len(a.mem)) {
		return nil, trap.StatusValue
	}
	return a.mem[off : off+n], trap.StatusOK
}

func loadRegister(b []byte) uint32 {
	switch len(b) {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(binary.LittleEndian.Uint16(b))
	}
	return binary.LittleEndian.Uint32(b)
}

func storeRegister(b []byte, v uint32) {
	switch len(b) {
	case 1:
		b[0] = uint8(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	default:
		binary.LittleEndian.PutUint32(b, v)
	}
}

func (k *Kernel) lookupRegister(id trap.AreaID, addr uintptr, bits int) ([]byte, trap.Status) {
	if int(id) >= len(k.sys.areas) {
		return nil, trap.StatusID
	}
	a := k.sys.areas[id]
	if !a.accessibleBy(k.currentApp()) {
		return nil, trap.StatusAccess
	}
	return a.register(addr, bits)
}

func (k *Kernel) ReadPeripheral(id trap.AreaID, addr uintptr, bits int) (uint32, trap.Status) {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	r, st := k.lookupRegister(id, addr, bits)
	if st != trap.StatusOK {
		return 0, st
	}
	return loadRegister(r), trap.StatusOK
}

func (k *Kernel) WritePeripheral(id trap.AreaID, addr uintptr, bits int, v uint32) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	r, st := k.lookupRegister(id, addr, bits)
	if st != trap.StatusOK {
		return st
	}
	storeRegister(r, v)
	return trap.StatusOK
}

// ModifyPeripheral writes (content & clear) | set.
func (k *Kernel) ModifyPeripheral(id trap.AreaID, addr uintptr, bits int, clear, set uint32) trap.Status {
	k.sys.mu.Lock()
	defer k.sys.mu.Unlock()
	r, st := k.lookupRegister(id, addr, bits)
	if st != trap.StatusOK {
		return st
	}
	storeRegister(r, loadRegister(r)&clear|set)
	return trap.StatusOK
}
