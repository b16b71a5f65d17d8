package kernel

import (
	"io"
	"sync"

	"github.com/fatih/color"
)

// PIC is the interrupt controller model, one line per configured ISR.
type PIC struct {
	mu  sync.Mutex
	IRR uint64 // Interrupt Request Register: a bit per pending line
	ISR uint64 // In-Service Register: lines acknowledged and not yet ended
	IMR uint64 // Interrupt Mask Register: the bit is 0 only when the line is enabled
}

// NewPIC returns a controller with every line masked.
func NewPIC() *PIC {
	return &PIC{IMR: ^uint64(0)}
}

func (p *PIC) Enable(line uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.IMR &^= 1 << line
}

func (p *PIC) Disable(line uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.IMR |= 1 << line
}

func (p *PIC) Enabled(line uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.IMR&(1<<line) == 0
}

// Raise marks line pending, as the device would.
func (p *PIC) Raise(line uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.IRR |= 1 << line
}

func (p *PIC) Pending(line uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.IRR&(1<<line) != 0
}

func (p *PIC) ClearPending(line uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.IRR &^= 1 << line
}

// Acknowledge moves line from pending to in service.
func (p *PIC) Acknowledge(line uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.IRR &^= 1 << line
	p.ISR |= 1 << line
}

// EOI ends the service of line.
func (p *PIC) EOI(line uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ISR &^= 1 << line
}

// Registers returns IRR, ISR and IMR.
func (p *PIC) Registers() (irr, isr, imr uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.IRR, p.ISR, p.IMR
}

func (p *PIC) Dump(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	color.New(color.FgYellow).Fprintf(w, "IRR=%016x ISR=%016x IMR=%016x\n", p.IRR, p.ISR, p.IMR)
}
